package solana

import (
	"errors"
	"fmt"
	"time"
)

// ErrSlotSkipped is returned when no block exists for a slot.
var ErrSlotSkipped = errors.New("slot skipped")

// JSON-RPC error codes with special handling.
const (
	codeBlockNotAvailable      = -32004
	codeNodeUnhealthy          = -32005
	codeSlotSkipped            = -32007
	codeLongTermStorageSkip    = -32009
	codeBlockStatusUnavailable = -32014
)

// RPCError is a JSON-RPC 2.0 error returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// TransientError marks a failure worth retrying: rate limits, 5xx responses,
// network errors and temporarily unavailable blocks. It never leaves the
// client unless retries are exhausted.
type TransientError struct {
	Err        error
	RetryAfter time.Duration // server-requested wait, zero if none
}

func (e *TransientError) Error() string {
	return "transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a *TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// classifyRPCError maps node error codes to skip or transient errors.
func classifyRPCError(e *RPCError) error {
	switch e.Code {
	case codeSlotSkipped, codeLongTermStorageSkip:
		return fmt.Errorf("%w: %s", ErrSlotSkipped, e.Message)
	case codeBlockNotAvailable, codeNodeUnhealthy, codeBlockStatusUnavailable:
		return &TransientError{Err: e}
	default:
		return e
	}
}
