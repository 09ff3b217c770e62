package ledger

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account id constraints enforced by the ledger.
const (
	minAccountIDLen = 2
	maxAccountIDLen = 64
)

// AccountID represents a human readable account identifier on the ledger.
// Accounts are named like DNS entries: lowercase alphanumeric parts joined
// by dots, with dashes and underscores allowed inside a part.
type AccountID string

// ToAccountID converts a string to an AccountID and validates the string is
// formatted correctly.
func ToAccountID(s string) (AccountID, error) {
	a := AccountID(s)
	if !a.IsAccountID() {
		return "", fmt.Errorf("account id %q is not properly formatted", s)
	}

	return a, nil
}

// IsAccountID verifies whether the underlying string represents a valid
// account identifier.
func (a AccountID) IsAccountID() bool {
	if len(a) < minAccountIDLen || len(a) > maxAccountIDLen {
		return false
	}

	// Each dot separated part must start and end with an alphanumeric
	// character. Dashes and underscores may only appear inside a part.
	lastWasSeparator := true
	for i := 0; i < len(a); i++ {
		c := a[i]

		switch {
		case isLowerAlnum(c):
			lastWasSeparator = false

		case c == '-' || c == '_':
			if lastWasSeparator {
				return false
			}
			if i+1 == len(a) || a[i+1] == '.' {
				return false
			}

		case c == '.':
			if lastWasSeparator {
				return false
			}
			if i+1 == len(a) {
				return false
			}
			lastWasSeparator = true

		default:
			return false
		}
	}

	return !lastWasSeparator
}

// IsSubAccountOf verifies the account is a direct or indirect child of the
// specified parent account.
func (a AccountID) IsSubAccountOf(parent AccountID) bool {
	suffix := "." + string(parent)
	if len(a) <= len(suffix) {
		return false
	}

	return string(a[len(a)-len(suffix):]) == suffix
}

// isLowerAlnum returns true for the characters allowed to begin and end an
// account id part.
func isLowerAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('0' <= c && c <= '9')
}

// =============================================================================

// compressedKeyLen is the byte length of a compressed secp256k1 public key.
const compressedKeyLen = 33

// PublicKey represents a hex encoded compressed public key as it travels on
// the wire and is stored against access keys on the ledger.
type PublicKey string

// ToPublicKey converts a hex encoded string to a PublicKey and validates the
// string decodes to a point on the curve.
func ToPublicKey(hex string) (PublicKey, error) {
	data, err := hexutil.Decode(hex)
	if err != nil {
		return "", fmt.Errorf("public key %q is not properly formatted: %w", hex, err)
	}

	if len(data) != compressedKeyLen {
		return "", errors.New("public key is not a compressed key")
	}

	if _, err := crypto.DecompressPubkey(data); err != nil {
		return "", fmt.Errorf("public key is not on the curve: %w", err)
	}

	return PublicKey(hex), nil
}

// PublicKeyFromECDSA converts an ecdsa public key into its wire form.
func PublicKeyFromECDSA(pk ecdsa.PublicKey) PublicKey {
	return PublicKey(hexutil.Encode(crypto.CompressPubkey(&pk)))
}
