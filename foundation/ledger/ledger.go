// Package ledger implements the types and client support for talking to the
// remote ledger: account and key formats, transaction construction and
// signing, and the RPC calls the faucet depends on.
package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlockRef represents the hash of a recent block. Every transaction must
// reference one to bound its validity window; the ledger rejects
// transactions referencing a block that is too old.
type BlockRef string

// ToBlockRef converts a hex encoded string to a BlockRef and validates the
// string decodes to a 32 byte hash.
func ToBlockRef(hex string) (BlockRef, error) {
	data, err := hexutil.Decode(hex)
	if err != nil {
		return "", fmt.Errorf("block ref %q is not properly formatted: %w", hex, err)
	}

	if len(data) != 32 {
		return "", fmt.Errorf("block ref must be a 32 byte hash, got %d bytes", len(data))
	}

	return BlockRef(hex), nil
}

// =============================================================================

// NonceConflictError indicates the ledger rejected a transaction because its
// nonce did not match the value the ledger expects for the access key. This
// is the one rejection the caller is expected to recover from.
type NonceConflictError struct {
	TxNonce       uint64 // The nonce the ledger reports our transaction carried.
	ExpectedNonce uint64 // The access key nonce the ledger currently holds.
}

// Error implements the error interface.
func (e *NonceConflictError) Error() string {
	return fmt.Sprintf("invalid nonce: tx nonce %d does not match access key nonce %d", e.TxNonce, e.ExpectedNonce)
}
