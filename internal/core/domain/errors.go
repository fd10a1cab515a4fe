package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors below wrap one of these so callers can
// classify with errors.Is without knowing the specific cause.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

var (
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrProductNotFound     = fmt.Errorf("product %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)

	ErrEmailTaken    = fmt.Errorf("%w: an account with this email already exists", ErrConflict)
	ErrUsernameTaken = fmt.Errorf("%w: this username is already taken", ErrConflict)

	// ErrBalanceChanged is returned when a conditional balance update lost a
	// race against another request for the same user.
	ErrBalanceChanged = fmt.Errorf("%w: balance changed, please retry", ErrConflict)
	ErrNotPending     = fmt.Errorf("%w: transaction is not pending approval", ErrConflict)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrNotOwner           = fmt.Errorf("%w: product belongs to another user", ErrUnauthorized)

	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidAmount = fmt.Errorf("%w: points must be a positive integer", ErrInvalidInput)
)

// BalanceError reports a redemption attempted below the minimum balance.
type BalanceError struct {
	Required  int64
	Available int64
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("%v: you need at least %d points to redeem", ErrInsufficientBalance, e.Required)
}

func (e *BalanceError) Unwrap() error { return ErrInsufficientBalance }
