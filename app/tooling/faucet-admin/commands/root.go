// Package commands contains the faucet admin commands.
package commands

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	keyName string
	keyPath string
)

const keyExtension = ".ecdsa"

func init() {
	rootCmd.PersistentFlags().StringVarP(&keyName, "key", "k", "faucet", "Name of the private key.")
	rootCmd.PersistentFlags().StringVarP(&keyPath, "key-path", "p", "zarf/keys/", "Path to the directory with private keys.")
}

var rootCmd = &cobra.Command{
	Use:   "faucet-admin",
	Short: "Admin tooling for the faucet service",
}

// Execute runs the selected command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	name := keyName
	if !strings.HasSuffix(name, keyExtension) {
		name += keyExtension
	}

	return filepath.Join(keyPath, name)
}
