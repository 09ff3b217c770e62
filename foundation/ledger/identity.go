package ledger

import (
	"crypto/ecdsa"
	"fmt"
)

// Identity represents the signing identity the faucet operates under. The
// value is immutable once loaded at startup and is safe to share across
// every request.
type Identity struct {
	AccountID  AccountID
	PublicKey  PublicKey
	privateKey *ecdsa.PrivateKey
}

// NewIdentity constructs an identity from the account id and its private key.
func NewIdentity(accountID string, privateKey *ecdsa.PrivateKey) (Identity, error) {
	aID, err := ToAccountID(accountID)
	if err != nil {
		return Identity{}, fmt.Errorf("identity account: %w", err)
	}

	id := Identity{
		AccountID:  aID,
		PublicKey:  PublicKeyFromECDSA(privateKey.PublicKey),
		privateKey: privateKey,
	}

	return id, nil
}

// Sign signs the specified transaction with the identity's private key.
func (id Identity) Sign(tx Tx) (SignedTx, error) {
	return tx.sign(id.privateKey)
}
