// Package errors provides custom error types for the tokenization API.
// All service-layer errors should use AppError so responses stay
// consistent and never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
// Details carries safe, client-visible context such as the operation id.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"-"`
	Internal   error          `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches AppErrors by code, so a wrapped copy matches its sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
		Details:    cloneDetails(sentinel.Details),
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
		Details:    cloneDetails(sentinel.Details),
	}
}

// WithDetails returns a copy of err with the key/value pairs added to Details.
func WithDetails(err *AppError, kv ...any) *AppError {
	out := &AppError{
		Code:       err.Code,
		Message:    err.Message,
		StatusCode: err.StatusCode,
		Internal:   err.Internal,
		Details:    cloneDetails(err.Details),
	}
	if out.Details == nil {
		out.Details = make(map[string]any, len(kv)/2)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if s, isStr := kv[i+1].(string); isStr && s == "" {
			continue
		}
		out.Details[key] = kv[i+1]
	}
	return out
}

func cloneDetails(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Authentication & authorization errors.
var (
	ErrUnauthorized  = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrForbidden     = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrInvalidAPIKey = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
)

// General errors.
var (
	ErrInvalidInput     = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound         = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer   = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	ErrTooManyRequests  = &AppError{Code: "TOO_MANY_REQUESTS", Message: "Too many requests", StatusCode: http.StatusTooManyRequests}
	ErrCacheUnavailable = &AppError{Code: "CACHE_UNAVAILABLE", Message: "Coordination store is unavailable", StatusCode: http.StatusServiceUnavailable}
	ErrNotConfigured    = &AppError{Code: "NOT_CONFIGURED", Message: "This endpoint is not configured", StatusCode: http.StatusServiceUnavailable}
)

// Tokenization errors.
var (
	ErrRateLimited            = &AppError{Code: "RATE_LIMITED", Message: "Too many tokenization attempts, try again later", StatusCode: http.StatusTooManyRequests}
	ErrTokenizationInProgress = &AppError{Code: "TOKENIZATION_IN_PROGRESS", Message: "A tokenization for this symbol and wallet is already running", StatusCode: http.StatusConflict}
	ErrDuplicateSymbol        = &AppError{Code: "DUPLICATE_SYMBOL", Message: "A token with this symbol already exists", StatusCode: http.StatusConflict}
	ErrLedgerRejected         = &AppError{Code: "LEDGER_REJECTED", Message: "The ledger rejected the issuance transaction", StatusCode: http.StatusUnprocessableEntity}
	ErrLedgerUnavailable      = &AppError{Code: "LEDGER_UNAVAILABLE", Message: "The ledger could not be reached", StatusCode: http.StatusBadGateway}
	ErrLedgerPending          = &AppError{Code: "LEDGER_PENDING", Message: "The transaction was submitted but is not validated yet; query it by hash", StatusCode: http.StatusAccepted}
	ErrReconciliationRequired = &AppError{Code: "RECONCILIATION_REQUIRED", Message: "The ledger accepted the issuance but it needs manual reconciliation", StatusCode: http.StatusConflict}
)

// Lookup errors.
var (
	ErrTokenNotFound          = &AppError{Code: "TOKEN_NOT_FOUND", Message: "Token not found", StatusCode: http.StatusNotFound}
	ErrTransactionNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrReconciliationNotFound = &AppError{Code: "RECONCILIATION_NOT_FOUND", Message: "Reconciliation task not found", StatusCode: http.StatusNotFound}
)
