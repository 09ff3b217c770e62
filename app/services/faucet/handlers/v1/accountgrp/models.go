package accountgrp

import (
	"strings"

	"github.com/statelessnet/faucet/business/sys/validate"
	"github.com/statelessnet/faucet/foundation/ledger"
)

// appNewAccount is what the request form posts to create an account.
type appNewAccount struct {
	AccountID string `json:"account_id" validate:"required"`
	PublicKey string `json:"public_key" validate:"required"`
}

// Validate checks the data in the model is considered clean.
func (app appNewAccount) Validate() error {
	if err := validate.Check(app); err != nil {
		return err
	}
	return nil
}

// normalize trims the caller supplied values and qualifies the account id
// as a sub account of the faucet's base account when the suffix is missing.
func (app appNewAccount) normalize(baseAccountID ledger.AccountID) appNewAccount {
	accountID := strings.TrimSpace(app.AccountID)

	suffix := "." + string(baseAccountID)
	if !strings.HasSuffix(accountID, suffix) {
		accountID += suffix
	}

	return appNewAccount{
		AccountID: accountID,
		PublicKey: strings.TrimSpace(app.PublicKey),
	}
}

// appAccount is what is echoed back once the account exists on the ledger.
type appAccount struct {
	AccountID string `json:"account_id"`
	PublicKey string `json:"public_key"`
}

func toAppAccount(account ledger.AccountID, publicKey ledger.PublicKey) appAccount {
	return appAccount{
		AccountID: string(account),
		PublicKey: string(publicKey),
	}
}
