package testutil

import (
	"errors"
	"testing"

	apperrors "rwatoken/internal/errors"
)

// AsAppError returns err as an *AppError, failing the test otherwise.
func AsAppError(t *testing.T, err error) *apperrors.AppError {
	t.Helper()

	if err == nil {
		t.Fatal("expected *AppError, got nil")
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	return appErr
}

// AssertAppError checks that err is an *AppError with the expected code
// and returns it for further inspection.
func AssertAppError(t *testing.T, err error, expectedCode string) *apperrors.AppError {
	t.Helper()

	appErr := AsAppError(t, err)
	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s, details: %v)", expectedCode, appErr.Code, appErr.Message, appErr.Details)
	}
	return appErr
}

// ErrorDetail returns the string detail stored under key, or "".
func ErrorDetail(t *testing.T, err error, key string) string {
	t.Helper()

	v, _ := AsAppError(t, err).Details[key].(string)
	return v
}

// AssertErrorDetail checks a client-visible detail such as operation_id
// or engine_result.
func AssertErrorDetail(t *testing.T, err error, key, want string) {
	t.Helper()

	if got := ErrorDetail(t, err, key); got != want {
		t.Errorf("expected detail %s=%q, got %q", key, want, got)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
