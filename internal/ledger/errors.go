package ledger

import "errors"

var (
	// ErrInvalidAmount is returned when an amount is nil or negative.
	ErrInvalidAmount = errors.New("amount must be non-nil and non-negative")
	// ErrInsufficientBalance is returned when a transfer or burn exceeds the holder's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is returned when a transferFrom exceeds the spender's allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrPermitExpired is returned when a permit deadline has passed.
	ErrPermitExpired = errors.New("permit expired")
	// ErrInvalidSignature is returned when a permit signature does not recover to the owner.
	ErrInvalidSignature = errors.New("invalid permit signature")
	// ErrUnknownToken is returned when an address does not resolve to a registered token.
	ErrUnknownToken = errors.New("unknown token")
)
