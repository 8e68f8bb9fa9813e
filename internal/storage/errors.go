package storage

import "errors"

// Storage errors shared by all implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientBalance is returned when a debit exceeds the account's
	// custodied balance.
	ErrInsufficientBalance = errors.New("insufficient escrow balance")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
