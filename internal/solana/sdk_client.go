package solana

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// RetryConfig configures retries of SDKClient.
type RetryConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	MaxDelay   time.Duration
}

// SDKClient implements RPCClient on top of the solana-go RPC client, decoding
// base64 transactions locally.
type SDKClient struct {
	client *rpc.Client
	retry  retryPolicy
}

// NewSDKClient creates a solana-go backed client. Zero RetryConfig fields
// keep the defaults.
func NewSDKClient(endpoint string, cfg RetryConfig) *SDKClient {
	policy := defaultRetryPolicy()
	if cfg.MaxRetries > 0 {
		policy.maxRetries = cfg.MaxRetries
	}
	if cfg.RetryDelay > 0 {
		policy.retryDelay = cfg.RetryDelay
	}
	if cfg.MaxDelay > 0 {
		policy.maxDelay = cfg.MaxDelay
	}
	return &SDKClient{
		client: rpc.New(endpoint),
		retry:  policy,
	}
}

// GetSlot returns the latest slot at commitment.
func (c *SDKClient) GetSlot(ctx context.Context, commitment string) (uint64, error) {
	var slot uint64
	err := c.retry.do(ctx, "getSlot", func() error {
		out, err := c.client.GetSlot(ctx, rpc.CommitmentType(commitment))
		if err != nil {
			return classifySDKError(ctx, err)
		}
		slot = out
		return nil
	})
	return slot, err
}

// GetBlocks lists produced slots in [startSlot, endSlot].
func (c *SDKClient) GetBlocks(ctx context.Context, startSlot, endSlot uint64) ([]uint64, error) {
	var slots []uint64
	err := c.retry.do(ctx, "getBlocks", func() error {
		end := endSlot
		out, err := c.client.GetBlocks(ctx, startSlot, &end, rpc.CommitmentFinalized)
		if err != nil {
			return classifySDKError(ctx, err)
		}
		slots = []uint64(out)
		return nil
	})
	return slots, err
}

// GetBlock retrieves a finalized block and decodes its transactions.
func (c *SDKClient) GetBlock(ctx context.Context, slot uint64) (*Block, error) {
	rewards := false
	maxVersion := uint64(0)
	opts := &rpc.GetBlockOpts{
		Encoding:                       solanago.EncodingBase64,
		TransactionDetails:             rpc.TransactionDetailsFull,
		Rewards:                        &rewards,
		Commitment:                     rpc.CommitmentFinalized,
		MaxSupportedTransactionVersion: &maxVersion,
	}

	var result *rpc.GetBlockResult
	err := c.retry.do(ctx, "getBlock", func() error {
		out, err := c.client.GetBlockWithOpts(ctx, slot, opts)
		if err != nil {
			return classifySDKError(ctx, err)
		}
		result = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	return convertSDKBlock(slot, result)
}

// classifySDKError maps solana-go errors onto this package's error kinds.
// A null block result means the slot produced no block. Rate limits, 5xx
// responses and errors without a status are retried; other HTTP statuses
// are final.
func classifySDKError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, rpc.ErrNotFound) || errors.Is(err, rpc.ErrNotConfirmed) {
		return fmt.Errorf("%w: %v", ErrSlotSkipped, err)
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return classifyRPCError(&RPCError{Code: rpcErr.Code, Message: rpcErr.Message})
	}
	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.Code == http.StatusTooManyRequests, httpErr.Code >= 500:
			return &TransientError{Err: err}
		case httpErr.Code == http.StatusForbidden, httpErr.Code == http.StatusUnauthorized:
			return fmt.Errorf("access denied (%d): %w", httpErr.Code, err)
		default:
			return fmt.Errorf("unexpected status %d: %w", httpErr.Code, err)
		}
	}
	return &TransientError{Err: err}
}

func convertSDKBlock(slot uint64, res *rpc.GetBlockResult) (*Block, error) {
	block := &Block{
		Slot:         slot,
		Transactions: make([]BlockTransaction, 0, len(res.Transactions)),
	}
	if res.BlockTime != nil {
		bt := int64(*res.BlockTime)
		block.BlockTime = &bt
	}

	for i := range res.Transactions {
		twm := res.Transactions[i]
		tx, err := twm.GetTransaction()
		if err != nil {
			return nil, fmt.Errorf("decode transaction %d of slot %d: %w", i, slot, err)
		}
		block.Transactions = append(block.Transactions, convertSDKTransaction(tx, twm.Meta))
	}

	return block, nil
}

func convertSDKTransaction(tx *solanago.Transaction, meta *rpc.TransactionMeta) BlockTransaction {
	// Loaded addresses follow the static keys: writable first, then read-only.
	keys := append(solanago.PublicKeySlice(nil), tx.Message.AccountKeys...)
	if meta != nil {
		keys = append(keys, meta.LoadedAddresses.Writable...)
		keys = append(keys, meta.LoadedAddresses.ReadOnly...)
	}

	out := BlockTransaction{AccountKeys: make([]string, len(keys))}
	for i, k := range keys {
		out.AccountKeys[i] = k.String()
	}
	if len(tx.Signatures) > 0 {
		out.Signature = tx.Signatures[0].String()
	}
	for _, ix := range tx.Message.Instructions {
		out.Instructions = append(out.Instructions,
			decodeCompiledInstruction(keys, ix.ProgramIDIndex, ix.Accounts, ix.Data))
	}

	if meta == nil {
		return out
	}
	out.Err = meta.Err

	for _, inner := range meta.InnerInstructions {
		group := InnerInstructions{Index: int(inner.Index)}
		for _, ix := range inner.Instructions {
			group.Instructions = append(group.Instructions,
				decodeCompiledInstruction(keys, ix.ProgramIDIndex, ix.Accounts, ix.Data))
		}
		out.InnerInstructions = append(out.InnerInstructions, group)
	}

	out.PreTokenBalances = convertSDKBalances(meta.PreTokenBalances)
	out.PostTokenBalances = convertSDKBalances(meta.PostTokenBalances)
	return out
}

func convertSDKBalances(raw []rpc.TokenBalance) []TokenBalance {
	if len(raw) == 0 {
		return nil
	}
	out := make([]TokenBalance, 0, len(raw))
	for _, b := range raw {
		tb := TokenBalance{
			AccountIndex: int(b.AccountIndex),
			Mint:         b.Mint.String(),
		}
		if b.Owner != nil {
			tb.Owner = b.Owner.String()
		}
		if b.UiTokenAmount != nil {
			tb.Amount = b.UiTokenAmount.Amount
			tb.Decimals = b.UiTokenAmount.Decimals
		}
		out = append(out, tb)
	}
	return out
}
