package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	faucetURL string
	accountID string
	publicKey string
)

// createCmd represents the create command.
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Request a new account from a running faucet",
	Run: func(cmd *cobra.Command, args []string) {
		body := struct {
			AccountID string `json:"account_id"`
			PublicKey string `json:"public_key"`
		}{
			AccountID: accountID,
			PublicKey: publicKey,
		}

		data, err := json.Marshal(body)
		if err != nil {
			log.Fatal(err)
		}

		resp, err := http.Post(fmt.Sprintf("%s/v1/account/create", faucetURL), "application/json", bytes.NewBuffer(data))
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()

		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(resp.Status)
		fmt.Println(string(msg))
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVarP(&faucetURL, "url", "u", "http://localhost:8080", "Url of the faucet.")
	createCmd.Flags().StringVarP(&accountID, "account", "a", "", "Account id to create.")
	createCmd.Flags().StringVarP(&publicKey, "public-key", "b", "", "Public key for the new account.")
	createCmd.MarkFlagRequired("account")
	createCmd.MarkFlagRequired("public-key")
}
