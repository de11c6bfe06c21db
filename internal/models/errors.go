package models

import "errors"

// Domain errors form a closed set. Every operation fails with exactly one of
// these; infrastructure errors are wrapped separately and never replace them.
var (
	// Lifecycle
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")

	// Identity
	ErrBountyExists     = errors.New("bounty already has locked funds")
	ErrBountyNotFound   = errors.New("bounty not found")
	ErrScheduleNotFound = errors.New("release schedule not found")

	// State
	ErrFundsNotLocked  = errors.New("funds are not in locked state")
	ErrAlreadyReleased = errors.New("schedule already released")

	// Temporal
	ErrDeadlineNotPassed = errors.New("deadline has not passed")
	ErrTooEarly          = errors.New("release timestamp not reached")
	ErrInvalidDeadline   = errors.New("deadline must be in the future")

	// Authorization
	ErrUnauthorized = errors.New("caller is not authorized")

	// Arithmetic / shape
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient remaining balance")
	ErrBatchMismatch       = errors.New("recipients and amounts mismatch")
	ErrAmountOverflow      = errors.New("amount addition overflows")
	ErrDuplicateBatchID    = errors.New("duplicate bounty id within batch")

	// Size
	ErrMetadataTooLarge = errors.New("metadata exceeds size limits")
)
