// Package provision implements the workflow that turns one inbound request
// into one funded account on the ledger: allocate a nonce, attach a fresh
// block reference, sign, submit, and reconcile on nonce conflicts.
package provision

import (
	"context"
	"errors"
	"expvar"
	"fmt"

	"github.com/statelessnet/faucet/foundation/events"
	"github.com/statelessnet/faucet/foundation/ledger"
	"github.com/statelessnet/faucet/foundation/ledger/nonce"
	"go.uber.org/zap"
)

// Set of event kinds published during provisioning.
const (
	EventAccountCreated = "account.created"
	EventAccountFailed  = "account.failed"
)

// defaultMaxAttempts bounds the conflict retry loop. Conflicts normally
// cease after one reconciliation; a run of them means something else is
// racing the same signing identity and giving up beats spinning forever.
const defaultMaxAttempts = 10

// Set of error variables for provisioning failures.
var (
	ErrValidation       = errors.New("validation failed")
	ErrRetriesExhausted = errors.New("nonce conflict retries exhausted")
)

// Counters surfaced on the debug endpoint.
var (
	accountsCreated = expvar.NewInt("accounts_created")
	nonceConflicts  = expvar.NewInt("nonce_conflicts")
)

// Submitter broadcasts a signed transaction and reports its final outcome.
// A nil error means accepted, a *ledger.NonceConflictError means the nonce
// was rejected, anything else is terminal for the attempt.
type Submitter interface {
	SubmitTx(ctx context.Context, tx ledger.SignedTx) error
}

// RefReader provides the current block reference without network I/O.
type RefReader interface {
	Read() ledger.BlockRef
}

// =============================================================================

// Config represents the configuration required to construct the core.
type Config struct {
	Log           *zap.SugaredLogger
	Submitter     Submitter
	Nonces        *nonce.Allocator
	BlockRefs     RefReader
	Evts          *events.Events
	Identity      ledger.Identity
	FundingAmount uint64
	MaxAttempts   int
}

// Core manages the account provisioning workflow. The only state shared
// between concurrent invocations is the nonce allocator and the block
// reference cache, both safe for unbounded callers.
type Core struct {
	log           *zap.SugaredLogger
	submitter     Submitter
	nonces        *nonce.Allocator
	blockRefs     RefReader
	evts          *events.Events
	identity      ledger.Identity
	fundingAmount uint64
	maxAttempts   int
}

// NewCore constructs a core for the provisioning api access.
func NewCore(cfg Config) *Core {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Core{
		log:           cfg.Log,
		submitter:     cfg.Submitter,
		nonces:        cfg.Nonces,
		blockRefs:     cfg.BlockRefs,
		evts:          cfg.Evts,
		identity:      cfg.Identity,
		fundingAmount: cfg.FundingAmount,
		maxAttempts:   maxAttempts,
	}
}

// NewAccount contains the caller supplied information for a new account.
type NewAccount struct {
	AccountID string
	PublicKey string
}

// Account echoes back what was created on the ledger.
type Account struct {
	AccountID ledger.AccountID
	PublicKey ledger.PublicKey
}

// Create provisions the new account on the ledger, funding it with the
// configured amount. Nonce conflicts are reconciled and retried internally;
// every other failure is terminal for this request.
func (c *Core) Create(ctx context.Context, na NewAccount) (Account, error) {

	// Syntactic validation happens before any network call is made.
	accountID, err := ledger.ToAccountID(na.AccountID)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	publicKey, err := ledger.ToPublicKey(na.PublicKey)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	// Optimistically take the next nonce. If the counter is behind the
	// ledger, the first rejection tells us what the ledger wants.
	txNonce := c.nonces.Allocate()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {

		// Re-read on every attempt, the cache may have refreshed while the
		// previous attempt was in flight.
		blockRef := c.blockRefs.Read()

		tx := ledger.NewCreateAccountTx(c.identity, txNonce, blockRef, accountID, publicKey, c.fundingAmount)
		signedTx, err := c.identity.Sign(tx)
		if err != nil {
			return Account{}, err
		}

		c.log.Debugw("provision: create: submitting", "account", accountID, "nonce", txNonce, "attempt", attempt)

		err = c.submitter.SubmitTx(ctx, signedTx)

		var conflict *ledger.NonceConflictError
		switch {
		case err == nil:
			accountsCreated.Add(1)
			c.evts.Send(EventAccountCreated, string(accountID), "account created with nonce %d", txNonce)
			c.log.Infow("provision: create: account created", "account", accountID, "nonce", txNonce, "attempts", attempt)

			return Account{AccountID: accountID, PublicKey: publicKey}, nil

		case errors.As(err, &conflict):
			nonceConflicts.Add(1)
			next := c.nonces.Reconcile(txNonce, conflict.TxNonce, conflict.ExpectedNonce)
			c.log.Debugw("provision: create: nonce conflict", "account", accountID, "rejected", txNonce,
				"expected", conflict.ExpectedNonce, "next", next)
			txNonce = next

		default:
			c.evts.Send(EventAccountFailed, string(accountID), "submission failed: %s", err)
			return Account{}, fmt.Errorf("submitting transaction for account %s: %w", accountID, err)
		}
	}

	c.evts.Send(EventAccountFailed, string(accountID), "gave up after %d attempts", c.maxAttempts)
	return Account{}, fmt.Errorf("creating account %s after %d attempts: %w", accountID, c.maxAttempts, ErrRetriesExhausted)
}
