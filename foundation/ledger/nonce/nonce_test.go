package nonce_test

import (
	"sync"
	"testing"

	"github.com/statelessnet/faucet/foundation/ledger/nonce"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestAllocateUniqueness(t *testing.T) {
	t.Log("Given the need to hand out unique nonces under concurrency.")
	{
		const goroutines = 50
		const perGoroutine = 100

		a := nonce.New(0, nil)

		var mu sync.Mutex
		seen := make(map[uint64]int, goroutines*perGoroutine)

		var wg sync.WaitGroup
		wg.Add(goroutines)

		for g := 0; g < goroutines; g++ {
			go func() {
				defer wg.Done()

				values := make([]uint64, 0, perGoroutine)
				for i := 0; i < perGoroutine; i++ {
					values = append(values, a.Allocate())
				}

				mu.Lock()
				defer mu.Unlock()
				for _, v := range values {
					seen[v]++
				}
			}()
		}
		wg.Wait()

		t.Logf("\tTest 0:\tWhen %d goroutines allocate %d nonces each.", goroutines, perGoroutine)
		{
			if len(seen) != goroutines*perGoroutine {
				t.Fatalf("\t%s\tShould have %d distinct nonces: got %d", failed, goroutines*perGoroutine, len(seen))
			}
			t.Logf("\t%s\tShould have %d distinct nonces.", success, goroutines*perGoroutine)

			for v, count := range seen {
				if count != 1 {
					t.Fatalf("\t%s\tShould never hand out nonce %d twice: got %d times", failed, v, count)
				}
			}
			t.Logf("\t%s\tShould never hand out any nonce twice.", success)
		}
	}
}

func TestReconcile(t *testing.T) {
	type table struct {
		name     string
		seed     uint64
		sent     uint64
		reported uint64
		expected uint64
		want     uint64
	}

	tt := []table{
		{"ledger ahead", 6, 6, 6, 9, 10},
		{"counter ahead", 20, 6, 6, 9, 21},
		{"equal", 9, 9, 9, 9, 10},
		{"reported mismatch", 6, 6, 7, 9, 10},
	}

	t.Log("Given the need to reconcile the counter with the ledger's view.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling case %q.", testID, tst.name)
			{
				f := func(t *testing.T) {
					a := nonce.New(tst.seed, nil)

					got := a.Reconcile(tst.sent, tst.reported, tst.expected)
					if got != tst.want {
						t.Fatalf("\t%s\tShould reconcile to %d: got %d", failed, tst.want, got)
					}
					t.Logf("\t%s\tShould reconcile to %d.", success, tst.want)

					if cur := a.Current(); cur < tst.expected+1 {
						t.Fatalf("\t%s\tShould leave the counter at or beyond %d: got %d", failed, tst.expected+1, cur)
					}
					t.Logf("\t%s\tShould leave the counter at or beyond expected+1.", success)
				}
				t.Run(tst.name, f)
			}
		}
	}
}

func TestReconcileMonotonic(t *testing.T) {
	t.Log("Given the need for the counter to never move backwards.")
	{
		const goroutines = 20

		a := nonce.New(0, nil)

		var wg sync.WaitGroup
		wg.Add(goroutines)

		results := make([]uint64, goroutines)
		for g := 0; g < goroutines; g++ {
			go func(g int) {
				defer wg.Done()
				results[g] = a.Reconcile(uint64(g), uint64(g), uint64(g*3))
			}(g)
		}
		wg.Wait()

		t.Logf("\tTest 0:\tWhen %d goroutines reconcile concurrently.", goroutines)
		{
			seen := make(map[uint64]bool, goroutines)
			for g, v := range results {
				if v < uint64(g*3)+1 {
					t.Fatalf("\t%s\tShould return a value >= expected+1: reconcile with %d returned %d", failed, g*3, v)
				}
				if seen[v] {
					t.Fatalf("\t%s\tShould never return the same corrected nonce twice: %d", failed, v)
				}
				seen[v] = true
			}
			t.Logf("\t%s\tShould return unique values all >= their expected+1.", success)

			if cur := a.Current(); cur < uint64((goroutines-1)*3)+1 {
				t.Fatalf("\t%s\tShould end at or beyond the largest expected+1: got %d", failed, cur)
			}
			t.Logf("\t%s\tShould end at or beyond the largest expected+1.", success)
		}
	}
}

func TestSeedScenario(t *testing.T) {
	t.Log("Given a faucet seeded with access key nonce 5.")
	{
		a := nonce.New(5, nil)

		t.Logf("\tTest 0:\tWhen the ledger expects nonce 9 after our first attempt.")
		{
			first := a.Allocate()
			if first != 6 {
				t.Fatalf("\t%s\tShould allocate 6 first: got %d", failed, first)
			}
			t.Logf("\t%s\tShould allocate 6 first.", success)

			corrected := a.Reconcile(first, first, 9)
			if corrected != 10 {
				t.Fatalf("\t%s\tShould reconcile to 10: got %d", failed, corrected)
			}
			t.Logf("\t%s\tShould reconcile to 10.", success)

			next := a.Allocate()
			if next != 11 {
				t.Fatalf("\t%s\tShould allocate 11 next, never 10 or below: got %d", failed, next)
			}
			t.Logf("\t%s\tShould allocate 11 next.", success)
		}
	}
}
