// Package common defines the sentinel errors shared across the escrow bot
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Validation errors. The failing rule's message is wrapped around this
	// sentinel, e.g. fmt.Errorf("%w: minimum amount is 100", ErrorValidation).
	ErrorValidation = errors.New("validation error")

	// Security errors.
	ErrorAccessDenied = errors.New("access denied")
	ErrorRateLimited  = errors.New("rate limited")
	ErrorUserBlocked  = errors.New("user blocked")

	// Lifecycle errors (attempted a move the transition table forbids).
	ErrorIllegalTransition = errors.New("illegal status transition")
)
