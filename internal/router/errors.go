package router

import "errors"

var (
	// ErrExpired is returned when a call's deadline has passed.
	ErrExpired = errors.New("transaction expired")
	// ErrInsufficientAAmount is returned when the computed A-side deposit or withdrawal is below its minimum bound.
	ErrInsufficientAAmount = errors.New("insufficient A amount")
	// ErrInsufficientBAmount is returned when the computed B-side deposit or withdrawal is below its minimum bound.
	ErrInsufficientBAmount = errors.New("insufficient B amount")
	// ErrInsufficientOutputAmount is returned when a swap output falls below the caller's minimum.
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")
	// ErrExcessiveInputAmount is returned when a required swap input exceeds the caller's maximum.
	ErrExcessiveInputAmount = errors.New("excessive input amount")
	// ErrInsufficientAmount is returned when a quote is requested over a non-positive amount.
	ErrInsufficientAmount = errors.New("insufficient amount")
	// ErrInvalidPath is returned when a swap path is not a single supported pair.
	ErrInvalidPath = errors.New("invalid path")
	// ErrPoolNotFound is returned when no pool exists for the requested token or pair.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrNoPendingLoan is returned on a flash-loan callback with no loan in flight.
	ErrNoPendingLoan = errors.New("no pending flash loan")
)
