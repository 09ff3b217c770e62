package commands

import (
	"fmt"
	"log"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"github.com/statelessnet/faucet/foundation/ledger"
)

// generateCmd represents the generate command.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new private key",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.GenerateKey()
		if err != nil {
			log.Fatal(err)
		}

		if err := os.MkdirAll(keyPath, 0755); err != nil {
			log.Fatal(err)
		}

		path := getPrivateKeyPath()
		if err := crypto.SaveECDSA(path, privateKey); err != nil {
			log.Fatal(err)
		}

		fmt.Println("key file :", path)
		fmt.Println("public key:", ledger.PublicKeyFromECDSA(privateKey.PublicKey))
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
