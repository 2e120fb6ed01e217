package gateway

import (
	"errors"
	"strings"
)

var (
	// ErrBankServiceUnavailable means the acquiring bank kept answering 503. Callers may retry later.
	ErrBankServiceUnavailable = errors.New("bank service unavailable")
	// ErrBankInternal covers every other bank or transport failure, including malformed answers
	// and records that could not be stored.
	ErrBankInternal = errors.New("bank internal failure")
	// ErrDuplicatePayment is returned by every store backend when an id is inserted twice.
	ErrDuplicatePayment = errors.New("payment id already exists")
)

// ValidationError carries every rule a payment request violated, in rule order.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "payment request validation failed: " + strings.Join(e.Errors, ", ")
}
