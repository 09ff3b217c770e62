package ledger

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/statelessnet/faucet/foundation/ledger/signature"
)

// Set of action kinds a transaction can carry.
const (
	ActionCreateAccount = "create_account"
	ActionAddKey        = "add_key"
	ActionTransfer      = "transfer"
)

// Action represents a single operation the ledger executes against the
// receiver account when the transaction is applied.
type Action struct {
	Kind      string    `json:"kind"`
	PublicKey PublicKey `json:"public_key,omitempty"`
	Deposit   uint64    `json:"deposit,omitempty"`
}

// Tx is the transactional information submitted to the ledger.
type Tx struct {
	SignerID   AccountID `json:"signer_id"`
	PublicKey  PublicKey `json:"public_key"`
	Nonce      uint64    `json:"nonce"`
	ReceiverID AccountID `json:"receiver_id"`
	BlockRef   BlockRef  `json:"block_ref"`
	Actions    []Action  `json:"actions"`
}

// NewCreateAccountTx constructs the transaction that provisions a new
// account. The action order is fixed: the account must exist before the key
// is added, and the key must exist before the deposit lands.
func NewCreateAccountTx(identity Identity, nonce uint64, blockRef BlockRef, newAccount AccountID, newKey PublicKey, fundingAmount uint64) Tx {
	return Tx{
		SignerID:   identity.AccountID,
		PublicKey:  identity.PublicKey,
		Nonce:      nonce,
		ReceiverID: newAccount,
		BlockRef:   blockRef,
		Actions: []Action{
			{Kind: ActionCreateAccount},
			{Kind: ActionAddKey, PublicKey: newKey},
			{Kind: ActionTransfer, Deposit: fundingAmount},
		},
	}
}

// sign uses the specified private key to sign the transaction.
func (tx Tx) sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	v, r, s, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, fmt.Errorf("signing transaction: %w", err)
	}

	signedTx := SignedTx{
		Tx: tx,
		V:  v,
		R:  r,
		S:  s,
	}

	return signedTx, nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how the faucet
// provides transactions to the ledger for execution.
type SignedTx struct {
	Tx
	V *big.Int `json:"v"`
	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
}

// Validate verifies the transaction carries a proper signature and that the
// signing key matches the public key declared on the transaction.
func (tx SignedTx) Validate() error {
	if err := signature.VerifySignature(tx.V, tx.R, tx.S); err != nil {
		return err
	}

	publicKey, err := signature.RecoverPublicKey(tx.Tx, tx.V, tx.R, tx.S)
	if err != nil {
		return err
	}

	if PublicKeyFromECDSA(*publicKey) != tx.PublicKey {
		return fmt.Errorf("signature does not match public key %s", tx.PublicKey)
	}

	return nil
}

// SignatureString returns the signature as a string.
func (tx SignedTx) SignatureString() string {
	return signature.SignatureString(tx.V, tx.R, tx.S)
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	return fmt.Sprintf("%s:%d", tx.SignerID, tx.Nonce)
}
