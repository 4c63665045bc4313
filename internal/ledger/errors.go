package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIssuanceNotFound means a validated transaction's metadata does not
// contain the issuance entry it should have created.
var ErrIssuanceNotFound = errors.New("issuance entry not found in transaction metadata")

// RejectedError is a terminal, non-successful engine result. Nothing was
// issued.
type RejectedError struct {
	Hash         string
	EngineResult string
	Message      string
}

func (e *RejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ledger rejected transaction %s: %s (%s)", e.Hash, e.EngineResult, e.Message)
	}
	return fmt.Sprintf("ledger rejected transaction %s: %s", e.Hash, e.EngineResult)
}

// PendingError means the transaction was broadcast but no terminal result
// was observed before the wait was cut short. The outcome must be
// re-queried by hash, never resubmitted.
type PendingError struct {
	Hash       string
	LastLedger uint32
	Err        error
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("transaction %s still pending: %v", e.Hash, e.Err)
}

func (e *PendingError) Unwrap() error { return e.Err }

// RPCError is an error status returned by the ledger node.
type RPCError struct {
	Method  string
	Code    string
	Message string
}

func (e *RPCError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Method, e.Code)
}

// IsNotFound reports whether err is the node's "transaction not found".
func IsNotFound(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == "txnNotFound"
}

// terminalPrelim reports whether a preliminary engine result means the
// transaction can never be included in a ledger.
func terminalPrelim(result string) bool {
	return strings.HasPrefix(result, "tem") ||
		strings.HasPrefix(result, "tef") ||
		strings.HasPrefix(result, "tel")
}
