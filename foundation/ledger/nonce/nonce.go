// Package nonce manages the next nonce to use for the faucet's signing
// identity. The ledger requires every transaction from an access key to
// carry a strictly increasing nonce, so the allocator is the one place in
// the process that hands them out.
package nonce

import (
	"go.uber.org/atomic"
)

// EventHandler defines a function that is called when events occur during
// nonce bookkeeping.
type EventHandler func(v string, args ...any)

// Allocator owns the shared nonce counter for a single signing identity.
// All methods are safe for unbounded concurrent callers. No lock is ever
// held across a network call; callers allocate optimistically and reconcile
// after the ledger has spoken.
type Allocator struct {
	counter   *atomic.Uint64
	evHandler EventHandler
}

// New constructs an allocator seeded with the access key nonce the ledger
// currently holds. The first call to Allocate returns seed+1.
func New(seed uint64, evHandler EventHandler) *Allocator {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Allocator{
		counter:   atomic.NewUint64(seed),
		evHandler: ev,
	}
}

// Allocate atomically increments the counter and returns the new value. No
// two callers ever observe the same returned value.
func (a *Allocator) Allocate() uint64 {
	return a.counter.Inc()
}

// Reconcile is called after the ledger rejected the nonce carried by a
// transaction. It advances the counter to max(current, ledgerExpected)+1 and
// returns that value, so any concurrent caller holding a now stale nonce
// can't re-collide with the corrected one.
//
// sent is the nonce the caller remembers putting on the wire and reported is
// the nonce the ledger says the transaction carried. When they differ
// another goroutine corrected the counter between our send and the ledger's
// answer; that is only worth a warning, the math always uses ledgerExpected.
func (a *Allocator) Reconcile(sent uint64, reported uint64, ledgerExpected uint64) uint64 {
	if reported != sent {
		a.evHandler("nonce: reconcile: WARNING: ledger reports tx nonce %d, we remember sending %d", reported, sent)
	}

	for {
		current := a.counter.Load()

		next := ledgerExpected + 1
		if current > ledgerExpected {
			next = current + 1
		}

		if a.counter.CAS(current, next) {
			return next
		}
	}
}

// Current returns the counter value for reporting. The value may be stale
// the moment it is read.
func (a *Allocator) Current() uint64 {
	return a.counter.Load()
}
