package commands

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/statelessnet/faucet/foundation/ledger"
)

var (
	rpcURL       string
	nonceAccount string
	nonceKey     string
)

// nonceCmd represents the nonce command. It is an ops aid for re-seeding
// after the access key nonce was moved outside the faucet process.
var nonceCmd = &cobra.Command{
	Use:   "nonce",
	Short: "Query the ledger for an access key nonce",
	Run: func(cmd *cobra.Command, args []string) {
		accountID, err := ledger.ToAccountID(nonceAccount)
		if err != nil {
			log.Fatal(err)
		}

		publicKey, err := ledger.ToPublicKey(nonceKey)
		if err != nil {
			log.Fatal(err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client := ledger.NewClient(rpcURL, 30*time.Second)
		nonce, err := client.AccessKeyNonce(ctx, accountID, publicKey)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println("nonce:", nonce)
	},
}

func init() {
	rootCmd.AddCommand(nonceCmd)
	nonceCmd.Flags().StringVarP(&rpcURL, "rpc-url", "u", "http://localhost:3030", "Url of the ledger RPC node.")
	nonceCmd.Flags().StringVarP(&nonceAccount, "account", "a", "", "Account id owning the access key.")
	nonceCmd.Flags().StringVarP(&nonceKey, "public-key", "b", "", "Public key of the access key.")
	nonceCmd.MarkFlagRequired("account")
	nonceCmd.MarkFlagRequired("public-key")
}
