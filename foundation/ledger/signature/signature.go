// Package signature provides helper functions for signing transactions bound
// for the ledger and validating the signatures that are produced.
package signature

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// statelessID is an arbitrary number added to the recovery id when signing
// messages. It makes it clear a signature was produced for the stateless
// ledger. Ethereum and Bitcoin do the same with the value 27.
const statelessID = 31

// Sign uses the specified private key to sign the value over its
// canonical hash.
func Sign(value any, privateKey *ecdsa.PrivateKey) (v, r, s *big.Int, err error) {

	// Prepare the canonical hash of the data for signing.
	data, err := stamp(value)
	if err != nil {
		return nil, nil, nil, err
	}

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return nil, nil, nil, err
	}

	// Extract the public key from the hash and the signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return nil, nil, nil, err
	}

	// Check the public key extracted from the hash and signature.
	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, rs) {
		return nil, nil, nil, errors.New("invalid signature produced")
	}

	// Convert the 65 byte signature into the [R|S|V] format.
	v, r, s = toSignatureValues(sig)

	return v, r, s, nil
}

// VerifySignature verifies the signature conforms to our standards.
func VerifySignature(v, r, s *big.Int) error {

	// Check the recovery id is either 0 or 1.
	uintV := v.Uint64() - statelessID
	if uintV != 0 && uintV != 1 {
		return errors.New("invalid recovery id")
	}

	// Check the signature values are valid.
	if !crypto.ValidateSignatureValues(byte(uintV), r, s, false) {
		return errors.New("invalid signature values")
	}

	return nil
}

// RecoverPublicKey extracts the public key of the account that signed
// the value.
func RecoverPublicKey(value any, v, r, s *big.Int) (*ecdsa.PublicKey, error) {
	data, err := stamp(value)
	if err != nil {
		return nil, err
	}

	// Convert the [R|S|V] format back into the original 65 bytes.
	sig := ToSignatureBytes(v, r, s)

	return crypto.SigToPub(data, sig)
}

// SignatureString returns the signature as a string for logging.
func SignatureString(v, r, s *big.Int) string {
	sig := ToSignatureBytes(v, r, s)
	sig[64] = byte(v.Uint64())
	return hexutil.Encode(sig)
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this value with a stamp
// embedded into the final hash so signatures are unique to this ledger.
func stamp(value any) ([]byte, error) {

	// Marshal the value. The wire format is the canonical form.
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	// Hash the value into a 32 byte array for length consistency.
	txHash := crypto.Keccak256(data)

	// Stamp and hash again so signatures produced here can never be
	// replayed against another chain.
	stamp := []byte("\x19Stateless Signed Message:\n32")

	return crypto.Keccak256(stamp, txHash), nil
}

// toSignatureValues converts the signature into the r, s, v values.
func toSignatureValues(sig []byte) (v, r, s *big.Int) {
	r = new(big.Int).SetBytes(sig[:32])
	s = new(big.Int).SetBytes(sig[32:64])
	v = new(big.Int).SetBytes([]byte{sig[64] + statelessID})

	return v, r, s
}

// ToSignatureBytes converts the r, s, v values into a slice of bytes with
// the removal of the statelessID.
func ToSignatureBytes(v, r, s *big.Int) []byte {
	sig := make([]byte, crypto.SignatureLength)

	rBytes := r.Bytes()
	copy(sig[32-len(rBytes):32], rBytes)

	sBytes := s.Bytes()
	copy(sig[64-len(sBytes):64], sBytes)

	sig[64] = byte(v.Uint64() - statelessID)

	return sig
}
