package core

import "errors"

// Business-rule failures surfaced to callers. The HTTP layer maps each one to
// a distinct client-facing status with errors.Is; anything else is treated as
// an infrastructure error.
var (
	// ErrNotFound: a user or catalog object is absent where required.
	ErrNotFound = errors.New("not found")
	// ErrConflict: duplicate user creation.
	ErrConflict = errors.New("already exists")
	// ErrAlreadyOwned: purchase of an id already in the ownership set.
	ErrAlreadyOwned = errors.New("already owned")
	// ErrInsufficientFunds: purchase cost exceeds the user's balance.
	ErrInsufficientFunds = errors.New("not enough money")
	// ErrInvalidState: an equipped or owned id no longer resolves in the catalog.
	ErrInvalidState = errors.New("invalid state")
	// ErrGeneration: the upstream text generator is unavailable or kept
	// producing unusable output.
	ErrGeneration = errors.New("tip generation failed")
)
