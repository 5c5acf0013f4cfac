package detect

import (
	"errors"
	"fmt"
)

// Invariant violations. Reaching the detector with either is a bug in the
// graph builder, not bad input.
var (
	ErrBrokenContiguity = errors.New("swap path breaks contiguity")
	ErrInvalidEdge      = errors.New("invalid swap edge")
)

// MalformedTransactionError reports transfer events that cannot be turned
// into swap edges, e.g. an outgoing leg with no incoming counterpart in its
// instruction group. The transaction is skipped.
type MalformedTransactionError struct {
	TransactionID string
	Account       string
	Reason        string
}

func (e *MalformedTransactionError) Error() string {
	return fmt.Sprintf("malformed transaction %s (account %s): %s", e.TransactionID, e.Account, e.Reason)
}

// IsMalformed reports whether err is a *MalformedTransactionError.
func IsMalformed(err error) bool {
	var m *MalformedTransactionError
	return errors.As(err, &m)
}
