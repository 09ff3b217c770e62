package provision_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/statelessnet/faucet/business/core/provision"
	"github.com/statelessnet/faucet/foundation/events"
	"github.com/statelessnet/faucet/foundation/ledger"
	"github.com/statelessnet/faucet/foundation/ledger/nonce"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const testBlockRef = ledger.BlockRef("0x1111111111111111111111111111111111111111111111111111111111111111")

// stubSubmitter plays back a scripted sequence of submission outcomes and
// records the nonce of every transaction it saw.
type stubSubmitter struct {
	outcomes []error
	nonces   []uint64
}

func (s *stubSubmitter) SubmitTx(ctx context.Context, tx ledger.SignedTx) error {
	s.nonces = append(s.nonces, tx.Nonce)
	if len(s.outcomes) == 0 {
		return nil
	}
	out := s.outcomes[0]
	s.outcomes = s.outcomes[1:]
	return out
}

// stubRefs hands out a fixed block reference.
type stubRefs struct{}

func (stubRefs) Read() ledger.BlockRef {
	return testBlockRef
}

func newTestCore(t *testing.T, sub *stubSubmitter, seed uint64, maxAttempts int) (*provision.Core, ledger.PublicKey) {
	t.Helper()

	signingKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating signing key: %s", err)
	}

	identity, err := ledger.NewIdentity("faucet", signingKey)
	if err != nil {
		t.Fatalf("constructing identity: %s", err)
	}

	accountKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating account key: %s", err)
	}

	evts := events.New()
	t.Cleanup(evts.Shutdown)

	core := provision.NewCore(provision.Config{
		Log:           zap.NewNop().Sugar(),
		Submitter:     sub,
		Nonces:        nonce.New(seed, nil),
		BlockRefs:     stubRefs{},
		Evts:          evts,
		Identity:      identity,
		FundingAmount: 500,
		MaxAttempts:   maxAttempts,
	})

	return core, ledger.PublicKeyFromECDSA(accountKey.PublicKey)
}

func TestCreateRetryConvergence(t *testing.T) {
	t.Log("Given the need to converge on the ledger's nonce after conflicts.")
	{
		t.Logf("\tTest 0:\tWhen the ledger rejects the first two nonces.")
		{
			sub := &stubSubmitter{
				outcomes: []error{
					&ledger.NonceConflictError{TxNonce: 6, ExpectedNonce: 9},
					&ledger.NonceConflictError{TxNonce: 10, ExpectedNonce: 14},
					nil,
				},
			}
			core, publicKey := newTestCore(t, sub, 5, 0)

			account, err := core.Create(context.Background(), provision.NewAccount{
				AccountID: "alice.faucet",
				PublicKey: string(publicKey),
			})
			if err != nil {
				t.Fatalf("\t%s\tShould be able to create the account: %s", failed, err)
			}
			t.Logf("\t%s\tShould be able to create the account.", success)

			if account.AccountID != "alice.faucet" {
				t.Fatalf("\t%s\tShould echo the account id: got %s", failed, account.AccountID)
			}
			t.Logf("\t%s\tShould echo the account id.", success)

			if len(sub.nonces) != 3 {
				t.Fatalf("\t%s\tShould submit exactly 3 times: got %d", failed, len(sub.nonces))
			}
			t.Logf("\t%s\tShould submit exactly 3 times.", success)

			want := []uint64{6, 10, 15}
			for i, nonce := range want {
				if sub.nonces[i] != nonce {
					t.Fatalf("\t%s\tShould submit nonce %d on attempt %d: got %d", failed, nonce, i+1, sub.nonces[i])
				}
			}
			t.Logf("\t%s\tShould step the nonce past what the ledger expects each time.", success)
		}
	}
}

func TestCreateFatalShortCircuit(t *testing.T) {
	t.Log("Given the need to stop on a terminal submission failure.")
	{
		t.Logf("\tTest 0:\tWhen the ledger reports a non nonce failure.")
		{
			sub := &stubSubmitter{
				outcomes: []error{errors.New("account alice.faucet already exists")},
			}
			core, publicKey := newTestCore(t, sub, 5, 0)

			if _, err := core.Create(context.Background(), provision.NewAccount{
				AccountID: "alice.faucet",
				PublicKey: string(publicKey),
			}); err == nil {
				t.Fatalf("\t%s\tShould fail the request.", failed)
			}
			t.Logf("\t%s\tShould fail the request.", success)

			if len(sub.nonces) != 1 {
				t.Fatalf("\t%s\tShould submit exactly once: got %d", failed, len(sub.nonces))
			}
			t.Logf("\t%s\tShould submit exactly once.", success)
		}
	}
}

func TestCreateValidation(t *testing.T) {
	t.Log("Given the need to reject malformed requests before any submission.")
	{
		sub := &stubSubmitter{}
		core, publicKey := newTestCore(t, sub, 5, 0)

		t.Logf("\tTest 0:\tWhen the account id is malformed.")
		{
			_, err := core.Create(context.Background(), provision.NewAccount{
				AccountID: "UPPER.faucet",
				PublicKey: string(publicKey),
			})
			if !errors.Is(err, provision.ErrValidation) {
				t.Fatalf("\t%s\tShould report a validation error: %v", failed, err)
			}
			t.Logf("\t%s\tShould report a validation error.", success)
		}

		t.Logf("\tTest 1:\tWhen the public key is malformed.")
		{
			_, err := core.Create(context.Background(), provision.NewAccount{
				AccountID: "alice.faucet",
				PublicKey: "not-a-key",
			})
			if !errors.Is(err, provision.ErrValidation) {
				t.Fatalf("\t%s\tShould report a validation error: %v", failed, err)
			}
			t.Logf("\t%s\tShould report a validation error.", success)
		}

		if len(sub.nonces) != 0 {
			t.Fatalf("\t%s\tShould never reach the ledger: got %d submissions", failed, len(sub.nonces))
		}
		t.Logf("\t%s\tShould never reach the ledger.", success)
	}
}

func TestCreateRetriesExhausted(t *testing.T) {
	t.Log("Given the need to give up when nonce conflicts never stop.")
	{
		t.Logf("\tTest 0:\tWhen every attempt is rejected.")
		{
			const maxAttempts = 3

			sub := &stubSubmitter{
				outcomes: []error{
					&ledger.NonceConflictError{TxNonce: 6, ExpectedNonce: 9},
					&ledger.NonceConflictError{TxNonce: 10, ExpectedNonce: 20},
					&ledger.NonceConflictError{TxNonce: 21, ExpectedNonce: 30},
				},
			}
			core, publicKey := newTestCore(t, sub, 5, maxAttempts)

			_, err := core.Create(context.Background(), provision.NewAccount{
				AccountID: "alice.faucet",
				PublicKey: string(publicKey),
			})
			if !errors.Is(err, provision.ErrRetriesExhausted) {
				t.Fatalf("\t%s\tShould report retries exhausted: %v", failed, err)
			}
			t.Logf("\t%s\tShould report retries exhausted.", success)

			if len(sub.nonces) != maxAttempts {
				t.Fatalf("\t%s\tShould submit exactly %d times: got %d", failed, maxAttempts, len(sub.nonces))
			}
			t.Logf("\t%s\tShould submit exactly %d times.", success, maxAttempts)
		}
	}
}
