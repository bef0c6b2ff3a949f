package pool

import "errors"

var (
	// ErrInsufficientLiquidity is returned when reserves cannot cover a requested output.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInsufficientLiquidityMinted is returned when a deposit computes to zero shares.
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	// ErrInsufficientLiquidityBurned is returned when burning shares computes a zero withdrawal.
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	// ErrInsufficientInputAmount is returned when a swap settles with no fee-bearing input.
	ErrInsufficientInputAmount = errors.New("insufficient input amount")
	// ErrInsufficientOutputAmount is returned when a swap requests no output at all.
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")
	// ErrInvariant is returned when the post-swap balance check fails the constant-product rule.
	ErrInvariant = errors.New("constant product invariant violated")
	// ErrExceedsMaxFlashLoan is returned when a loan request exceeds reserve - 1.
	ErrExceedsMaxFlashLoan = errors.New("amount exceeds max flash loan")
	// ErrLoanNotRepaid is returned when the post-callback balance is short of reserve + premium.
	ErrLoanNotRepaid = errors.New("flash loan not repaid")
)
