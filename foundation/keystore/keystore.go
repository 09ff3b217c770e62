// Package keystore reads a folder of ECDSA private key files and provides
// the signing keys by the name they were stored under.
package keystore

import (
	"crypto/ecdsa"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// keyExtension is the file extension a key file must carry to be loaded.
const keyExtension = ".ecdsa"

// KeyStore maintains the set of private keys loaded from disk. The keys are
// immutable after load and safe for concurrent use.
type KeyStore struct {
	keys map[string]*ecdsa.PrivateKey
}

// New constructs a keystore with all the key files found under the
// specified folder. The file name minus the extension becomes the key name.
func New(root string) (*KeyStore, error) {
	ks := KeyStore{
		keys: make(map[string]*ecdsa.PrivateKey),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != keyExtension {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading key file %s: %w", fileName, err)
		}

		name := strings.TrimSuffix(path.Base(fileName), keyExtension)
		ks.keys[name] = privateKey

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ks, nil
}

// PrivateKey returns the private key stored under the specified name.
func (ks *KeyStore) PrivateKey(name string) (*ecdsa.PrivateKey, error) {
	key, exists := ks.keys[name]
	if !exists {
		return nil, fmt.Errorf("key %q not found in keystore", name)
	}

	return key, nil
}

// Names returns the names of all the keys in the keystore.
func (ks *KeyStore) Names() []string {
	names := make([]string, 0, len(ks.keys))
	for name := range ks.keys {
		names = append(names, name)
	}

	return names
}
