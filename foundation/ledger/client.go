package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Set of RPC methods the faucet consumes. The ledger exposes more, but the
// faucet only needs these three.
const (
	methodQueryAccessKey = "query_access_key"
	methodStatus         = "status"
	methodBroadcastTx    = "broadcast_tx"
)

// failureInvalidNonce is the failure name the ledger reports when a
// transaction's nonce does not match the access key nonce. It shows up both
// as a request level error and as a terminal execution failure, depending on
// how far the transaction made it.
const failureInvalidNonce = "INVALID_NONCE"

// Client provides access to the remote ledger's RPC interface.
type Client struct {
	rpc *resty.Client
}

// NewClient constructs a client for the ledger RPC node at the specified url.
func NewClient(url string, timeout time.Duration) *Client {
	rpc := resty.New().
		SetBaseURL(url).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		rpc: rpc,
	}
}

// AccessKeyNonce queries the ledger for the current nonce of the specified
// account's access key. The faucet uses this once at startup to seed the
// nonce allocator.
func (c *Client) AccessKeyNonce(ctx context.Context, accountID AccountID, publicKey PublicKey) (uint64, error) {
	params := struct {
		AccountID AccountID `json:"account_id"`
		PublicKey PublicKey `json:"public_key"`
	}{
		AccountID: accountID,
		PublicKey: publicKey,
	}

	var result struct {
		Nonce       uint64 `json:"nonce"`
		BlockHeight uint64 `json:"block_height"`
	}

	if err := c.call(ctx, methodQueryAccessKey, params, &result); err != nil {
		return 0, fmt.Errorf("query access key %s@%s: %w", publicKey, accountID, err)
	}

	return result.Nonce, nil
}

// LatestBlockRef queries the ledger for the hash of the latest block.
func (c *Client) LatestBlockRef(ctx context.Context) (BlockRef, error) {
	var result struct {
		SyncInfo struct {
			LatestBlockHash   string `json:"latest_block_hash"`
			LatestBlockHeight uint64 `json:"latest_block_height"`
		} `json:"sync_info"`
	}

	if err := c.call(ctx, methodStatus, nil, &result); err != nil {
		return "", fmt.Errorf("query status: %w", err)
	}

	return ToBlockRef(result.SyncInfo.LatestBlockHash)
}

// SubmitTx broadcasts the signed transaction and waits for its final
// execution outcome. A nil error means the ledger accepted and executed the
// transaction. A *NonceConflictError means the nonce was rejected and the
// caller may reconcile and retry; the error is normalized from both wire
// shapes the ledger produces. Any other error is terminal for the attempt.
func (c *Client) SubmitTx(ctx context.Context, tx SignedTx) error {
	params := struct {
		SignedTx SignedTx `json:"signed_tx"`
	}{
		SignedTx: tx,
	}

	var result struct {
		TxHash string `json:"tx_hash"`
		Status struct {
			SuccessValue string      `json:"success_value,omitempty"`
			Failure      *rpcFailure `json:"failure,omitempty"`
		} `json:"status"`
	}

	// Some rejections never make it to an execution status and come back as
	// a request level error instead. The call helper normalizes those.
	if err := c.call(ctx, methodBroadcastTx, params, &result); err != nil {
		return err
	}

	// The ledger ran the transaction. A terminal failure status here is the
	// second shape an invalid nonce can take.
	if failure := result.Status.Failure; failure != nil {
		return failure.asError()
	}

	return nil
}

// =============================================================================

// rpcRequest is the JSON-RPC 2.0 envelope for an outbound call.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcResponse is the JSON-RPC 2.0 envelope for an inbound response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError is the request level error shape.
type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Cause   *rpcFailure `json:"cause,omitempty"`
}

// rpcFailure describes why the ledger refused or failed a transaction.
type rpcFailure struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	TxNonce uint64 `json:"tx_nonce,omitempty"`
	AkNonce uint64 `json:"ak_nonce,omitempty"`
}

// asError normalizes a failure into either a NonceConflictError or a plain
// terminal error.
func (f *rpcFailure) asError() error {
	if f.Name == failureInvalidNonce {
		return &NonceConflictError{
			TxNonce:       f.TxNonce,
			ExpectedNonce: f.AkNonce,
		}
	}

	return fmt.Errorf("transaction execution failed: %s: %s", f.Name, f.Message)
}

// call performs a single JSON-RPC request against the ledger node.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}

	resp, err := c.rpc.R().SetContext(ctx).SetBody(req).Post("")
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}

	// JSON-RPC errors normally ride on a 200. Overloaded nodes and proxies
	// can still answer with transport level codes.
	if resp.IsError() {
		return fmt.Errorf("calling %s: status[%s] body[%s]", method, resp.Status(), resp.Body())
	}

	var res rpcResponse
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}

	if res.Error != nil {
		if res.Error.Cause != nil {
			return res.Error.Cause.asError()
		}
		return fmt.Errorf("calling %s: rpc error code[%d] message[%s]", method, res.Error.Code, res.Error.Message)
	}

	if result != nil {
		if err := json.Unmarshal(res.Result, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}

	return nil
}
