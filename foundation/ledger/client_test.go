package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/statelessnet/faucet/foundation/ledger"
)

// rpcServer runs a scripted ledger node for a single test.
func rpcServer(t *testing.T, respond func(method string) (int, string)) *httptest.Server {
	t.Helper()

	handler := func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding rpc request: %s", err)
		}

		status, body := respond(req.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}

	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)

	return srv
}

func TestAccessKeyNonce(t *testing.T) {
	t.Log("Given the need to query the access key nonce.")
	{
		srv := rpcServer(t, func(method string) (int, string) {
			if method != "query_access_key" {
				t.Fatalf("unexpected method %q", method)
			}
			return http.StatusOK, `{"jsonrpc":"2.0","id":"1","result":{"nonce":87,"block_height":1200}}`
		})

		client := ledger.NewClient(srv.URL, time.Second)

		t.Logf("\tTest 0:\tWhen the ledger answers.")
		{
			nonce, err := client.AccessKeyNonce(context.Background(), "faucet", "0x02aa")
			if err != nil {
				t.Fatalf("\t%s\tShould be able to query the nonce: %s", failed, err)
			}
			t.Logf("\t%s\tShould be able to query the nonce.", success)

			if nonce != 87 {
				t.Fatalf("\t%s\tShould report nonce 87: got %d", failed, nonce)
			}
			t.Logf("\t%s\tShould report nonce 87.", success)
		}
	}
}

func TestLatestBlockRef(t *testing.T) {
	t.Log("Given the need to query the latest block reference.")
	{
		srv := rpcServer(t, func(method string) (int, string) {
			if method != "status" {
				t.Fatalf("unexpected method %q", method)
			}
			return http.StatusOK, `{"jsonrpc":"2.0","id":"1","result":{"sync_info":{"latest_block_hash":"` + blockRefHex + `","latest_block_height":1200}}}`
		})

		client := ledger.NewClient(srv.URL, time.Second)

		t.Logf("\tTest 0:\tWhen the ledger answers.")
		{
			ref, err := client.LatestBlockRef(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tShould be able to query the block ref: %s", failed, err)
			}
			t.Logf("\t%s\tShould be able to query the block ref.", success)

			if string(ref) != blockRefHex {
				t.Fatalf("\t%s\tShould report the latest block hash: got %s", failed, ref)
			}
			t.Logf("\t%s\tShould report the latest block hash.", success)
		}
	}
}

func TestSubmitOutcomes(t *testing.T) {
	type table struct {
		name     string
		status   int
		body     string
		accepted bool
		conflict bool
	}

	tt := []table{
		{
			name:     "accepted",
			status:   http.StatusOK,
			body:     `{"jsonrpc":"2.0","id":"1","result":{"tx_hash":"0xabc","status":{"success_value":""}}}`,
			accepted: true,
		},
		{
			name:     "request level nonce conflict",
			status:   http.StatusOK,
			body:     `{"jsonrpc":"2.0","id":"1","error":{"code":-32000,"message":"invalid transaction","cause":{"name":"INVALID_NONCE","tx_nonce":6,"ak_nonce":9}}}`,
			conflict: true,
		},
		{
			name:     "execution level nonce conflict",
			status:   http.StatusOK,
			body:     `{"jsonrpc":"2.0","id":"1","result":{"tx_hash":"0xabc","status":{"failure":{"name":"INVALID_NONCE","tx_nonce":6,"ak_nonce":9}}}}`,
			conflict: true,
		},
		{
			name:   "execution failure",
			status: http.StatusOK,
			body:   `{"jsonrpc":"2.0","id":"1","result":{"tx_hash":"0xabc","status":{"failure":{"name":"ACCOUNT_ALREADY_EXISTS","message":"account alice.faucet already exists"}}}}`,
		},
		{
			name:   "rpc error without cause",
			status: http.StatusOK,
			body:   `{"jsonrpc":"2.0","id":"1","error":{"code":-32700,"message":"parse error"}}`,
		},
		{
			name:   "transport failure",
			status: http.StatusBadGateway,
			body:   `bad gateway`,
		},
	}

	t.Log("Given the need to classify ledger responses to a submission.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling response %q.", testID, tst.name)
			{
				f := func(t *testing.T) {
					srv := rpcServer(t, func(method string) (int, string) {
						if method != "broadcast_tx" {
							t.Fatalf("unexpected method %q", method)
						}
						return tst.status, tst.body
					})

					client := ledger.NewClient(srv.URL, time.Second)
					err := client.SubmitTx(context.Background(), ledger.SignedTx{})

					var conflict *ledger.NonceConflictError
					switch {
					case tst.accepted:
						if err != nil {
							t.Fatalf("\t%s\tShould classify as accepted: %s", failed, err)
						}
						t.Logf("\t%s\tShould classify as accepted.", success)

					case tst.conflict:
						if !errors.As(err, &conflict) {
							t.Fatalf("\t%s\tShould classify as a nonce conflict: %v", failed, err)
						}
						if conflict.TxNonce != 6 || conflict.ExpectedNonce != 9 {
							t.Fatalf("\t%s\tShould carry the nonces from the wire: got %+v", failed, conflict)
						}
						t.Logf("\t%s\tShould classify as a nonce conflict carrying both nonces.", success)

					default:
						if err == nil {
							t.Fatalf("\t%s\tShould classify as a terminal failure.", failed)
						}
						if errors.As(err, &conflict) {
							t.Fatalf("\t%s\tShould not classify as a nonce conflict: %v", failed, err)
						}
						t.Logf("\t%s\tShould classify as a terminal failure.", success)
					}
				}
				t.Run(tst.name, f)
			}
		}
	}
}
