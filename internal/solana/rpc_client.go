package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint  string
	client    *http.Client
	retry     retryPolicy
	requestID atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.retry.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retry.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retry.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
		retry:    defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	return c.retry.do(ctx, method, func() error {
		return c.once(ctx, body, result)
	})
}

// once performs a single HTTP round trip and classifies its failure.
func (c *HTTPClient) once(ctx context.Context, body []byte, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransientError{Err: fmt.Errorf("http request: %w", err)}
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return &TransientError{Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &TransientError{
			Err:        fmt.Errorf("rate limited (429)"),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("access denied (%d): %s", resp.StatusCode, string(respBody))
	case resp.StatusCode >= 500:
		return &TransientError{Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return &TransientError{Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	if rpcResp.Error != nil {
		return classifyRPCError(rpcResp.Error)
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

// parseRetryAfter reads a Retry-After header in seconds. HTTP dates are ignored.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// GetSlot returns the latest slot at commitment.
func (c *HTTPClient) GetSlot(ctx context.Context, commitment string) (uint64, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": commitment},
	}
	var result uint64
	if err := c.call(ctx, "getSlot", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// GetBlocks lists produced slots in [startSlot, endSlot].
func (c *HTTPClient) GetBlocks(ctx context.Context, startSlot, endSlot uint64) ([]uint64, error) {
	params := []interface{}{
		startSlot,
		endSlot,
		map[string]interface{}{"commitment": CommitmentFinalized},
	}
	var result []uint64
	if err := c.call(ctx, "getBlocks", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetBlock retrieves a finalized block with jsonParsed transactions.
func (c *HTTPClient) GetBlock(ctx context.Context, slot uint64) (*Block, error) {
	params := []interface{}{
		slot,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"transactionDetails":             "full",
			"rewards":                        false,
			"commitment":                     CommitmentFinalized,
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result *getBlockResult
	if err := c.call(ctx, "getBlock", params, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: slot %d", ErrSlotSkipped, slot)
	}

	block := &Block{
		Slot:         slot,
		BlockTime:    result.BlockTime,
		Transactions: make([]BlockTransaction, 0, len(result.Transactions)),
	}

	for _, w := range result.Transactions {
		block.Transactions = append(block.Transactions, w.toBlockTransaction())
	}

	return block, nil
}

// getBlockResult is the raw RPC response for getBlock.
type getBlockResult struct {
	BlockTime    *int64              `json:"blockTime"`
	Transactions []getBlockTxWrapper `json:"transactions"`
}

type getBlockTxWrapper struct {
	Transaction parsedTransaction `json:"transaction"`
	Meta        *parsedMeta       `json:"meta"`
}

type parsedTransaction struct {
	Signatures []string      `json:"signatures"`
	Message    parsedMessage `json:"message"`
}

type parsedMessage struct {
	AccountKeys  []parsedAccountKey  `json:"accountKeys"`
	Instructions []parsedInstruction `json:"instructions"`
}

type parsedAccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

type parsedInstruction struct {
	Program   string          `json:"program"`
	ProgramID string          `json:"programId"`
	Parsed    json.RawMessage `json:"parsed"`
}

type parsedMeta struct {
	Err               interface{}          `json:"err"`
	InnerInstructions []parsedInner        `json:"innerInstructions"`
	PreTokenBalances  []parsedTokenBalance `json:"preTokenBalances"`
	PostTokenBalances []parsedTokenBalance `json:"postTokenBalances"`
}

type parsedInner struct {
	Index        int                 `json:"index"`
	Instructions []parsedInstruction `json:"instructions"`
}

type parsedTokenBalance struct {
	AccountIndex  int            `json:"accountIndex"`
	Mint          string         `json:"mint"`
	Owner         string         `json:"owner"`
	UITokenAmount parsedUIAmount `json:"uiTokenAmount"`
}

type parsedUIAmount struct {
	Amount   string `json:"amount"`
	Decimals uint8  `json:"decimals"`
}

// parsedTokenInstruction is the "parsed" object of spl-token instructions.
type parsedTokenInstruction struct {
	Type string `json:"type"`
	Info struct {
		Source            string          `json:"source"`
		Destination       string          `json:"destination"`
		Authority         string          `json:"authority"`
		MultisigAuthority string          `json:"multisigAuthority"`
		Mint              string          `json:"mint"`
		Amount            string          `json:"amount"`
		TokenAmount       *parsedUIAmount `json:"tokenAmount"`
	} `json:"info"`
}

func (w getBlockTxWrapper) toBlockTransaction() BlockTransaction {
	tx := BlockTransaction{
		AccountKeys: make([]string, len(w.Transaction.Message.AccountKeys)),
	}
	if len(w.Transaction.Signatures) > 0 {
		tx.Signature = w.Transaction.Signatures[0]
	}
	for i, k := range w.Transaction.Message.AccountKeys {
		tx.AccountKeys[i] = k.Pubkey
	}
	for _, ix := range w.Transaction.Message.Instructions {
		tx.Instructions = append(tx.Instructions, ix.toInstruction())
	}

	if w.Meta == nil {
		return tx
	}
	tx.Err = w.Meta.Err
	for _, inner := range w.Meta.InnerInstructions {
		group := InnerInstructions{Index: inner.Index}
		for _, ix := range inner.Instructions {
			group.Instructions = append(group.Instructions, ix.toInstruction())
		}
		tx.InnerInstructions = append(tx.InnerInstructions, group)
	}
	tx.PreTokenBalances = convertBalances(w.Meta.PreTokenBalances)
	tx.PostTokenBalances = convertBalances(w.Meta.PostTokenBalances)
	return tx
}

func (ix parsedInstruction) toInstruction() Instruction {
	out := Instruction{ProgramID: ix.ProgramID}
	if ix.Program != "spl-token" && ix.Program != "spl-token-2022" {
		return out
	}
	if len(ix.Parsed) == 0 || ix.Parsed[0] != '{' {
		return out
	}

	var p parsedTokenInstruction
	if err := json.Unmarshal(ix.Parsed, &p); err != nil {
		return out
	}

	authority := p.Info.Authority
	if authority == "" {
		authority = p.Info.MultisigAuthority
	}

	switch p.Type {
	case "transfer":
		out.Transfer = &TokenTransfer{
			Source:      p.Info.Source,
			Destination: p.Info.Destination,
			Authority:   authority,
			Amount:      p.Info.Amount,
		}
	case "transferChecked":
		if p.Info.TokenAmount == nil {
			return out
		}
		decimals := p.Info.TokenAmount.Decimals
		out.Transfer = &TokenTransfer{
			Source:      p.Info.Source,
			Destination: p.Info.Destination,
			Authority:   authority,
			Mint:        p.Info.Mint,
			Amount:      p.Info.TokenAmount.Amount,
			Decimals:    &decimals,
		}
	}
	return out
}

func convertBalances(raw []parsedTokenBalance) []TokenBalance {
	if len(raw) == 0 {
		return nil
	}
	out := make([]TokenBalance, len(raw))
	for i, b := range raw {
		out[i] = TokenBalance{
			AccountIndex: b.AccountIndex,
			Mint:         b.Mint,
			Owner:        b.Owner,
			Amount:       b.UITokenAmount.Amount,
			Decimals:     b.UITokenAmount.Decimals,
		}
	}
	return out
}
