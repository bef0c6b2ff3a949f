package router

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"flashPool/internal/clock"
	"flashPool/internal/factory"
	"flashPool/internal/ledger"
	"flashPool/internal/pool"
	"flashPool/internal/state"
)

// Router batches multi-step user operations into single atomic calls:
// liquidity management, swaps, permit-based approvals, and flash-loan
// forwarding. Every entry point takes a deadline and aborts wholesale on
// any failed check; the router never retains a token or native balance
// after a call completes.
type Router struct {
	addr    common.Address
	ledger  *ledger.Ledger
	factory *factory.Factory
	wnative *ledger.WNative
	journal *state.Journal
	clk     clock.Clock
	logger  *zap.Logger

	// receiver of the in-flight flash loan; set only for the duration of
	// one FlashLoan call (top-level calls are serialized)
	pending pool.Borrower
}

func New(l *ledger.Ledger, f *factory.Factory, wnative *ledger.WNative, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		addr:    common.BytesToAddress(crypto.Keccak256([]byte("flashPool/router"))),
		ledger:  l,
		factory: f,
		wnative: wnative,
		journal: l.Journal(),
		clk:     l.Clock(),
		logger:  logger,
	}
}

func (r *Router) Address() common.Address { return r.addr }

// WNative is the wrapped-native token the native-currency entry points use.
func (r *Router) WNative() *ledger.WNative { return r.wnative }

// ensure rejects calls whose deadline has passed. A deadline equal to the
// current time is still valid.
func (r *Router) ensure(deadline uint64) error {
	if now := r.clk.Now(); now > deadline {
		return fmt.Errorf("%w: deadline %d, now %d", ErrExpired, deadline, now)
	}
	return nil
}

// AddLiquidity deposits amounts of both tokens at the pool's current price
// and mints shares to to. The pool is created lazily if absent. Computed
// deposits below the Min bounds abort.
func (r *Router) AddLiquidity(
	from common.Address,
	tokenA, tokenB common.Address,
	amountADesired, amountBDesired, amountAMin, amountBMin *big.Int,
	to common.Address,
	deadline uint64,
) (amountA, amountB, liquidity *big.Int, err error) {
	if err = r.ensure(deadline); err != nil {
		return nil, nil, nil, err
	}
	err = r.journal.Run(func() error {
		pair, a, b, err := r.prepareLiquidity(tokenA, tokenB, amountADesired, amountBDesired, amountAMin, amountBMin)
		if err != nil {
			return err
		}
		amountA, amountB = a, b

		tokA, err := r.ledger.MustToken(tokenA)
		if err != nil {
			return err
		}
		tokB, err := r.ledger.MustToken(tokenB)
		if err != nil {
			return err
		}
		if err := tokA.TransferFrom(r.addr, from, pair.Address(), amountA); err != nil {
			return fmt.Errorf("deposit %s: %w", tokA.Symbol(), err)
		}
		if err := tokB.TransferFrom(r.addr, from, pair.Address(), amountB); err != nil {
			return fmt.Errorf("deposit %s: %w", tokB.Symbol(), err)
		}

		liquidity, err = pair.Mint(r.addr, to)
		if err != nil {
			return err
		}
		r.logger.Debug("add liquidity",
			zap.String("pair", pair.Address().Hex()),
			zap.String("amount_a", amountA.String()),
			zap.String("amount_b", amountB.String()),
			zap.String("liquidity", liquidity.String()),
		)
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return amountA, amountB, liquidity, nil
}

// prepareLiquidity resolves (or creates) the pair and picks the deposit
// amounts preserving the current price: all of amountBDesired if the
// matching A-side fits under amountADesired, otherwise all of
// amountADesired with the matching B-side.
func (r *Router) prepareLiquidity(
	tokenA, tokenB common.Address,
	amountADesired, amountBDesired, amountAMin, amountBMin *big.Int,
) (*pool.Pair, *big.Int, *big.Int, error) {
	pair, ok := r.factory.Pair(tokenA, tokenB)
	if !ok {
		var err error
		pair, err = r.factory.CreatePair(tokenA, tokenB)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	reserveA, reserveB := r.orientedReserves(pair, tokenA)
	if reserveA.Sign() == 0 && reserveB.Sign() == 0 {
		return pair, amountADesired, amountBDesired, nil
	}

	amountAOptimal, err := Quote(amountBDesired, reserveB, reserveA)
	if err != nil {
		return nil, nil, nil, err
	}
	if amountAOptimal.Cmp(amountADesired) <= 0 {
		if amountAOptimal.Cmp(amountAMin) < 0 {
			return nil, nil, nil, fmt.Errorf("%w: optimal %s, min %s", ErrInsufficientAAmount, amountAOptimal, amountAMin)
		}
		return pair, amountAOptimal, amountBDesired, nil
	}

	amountBOptimal, err := Quote(amountADesired, reserveA, reserveB)
	if err != nil {
		return nil, nil, nil, err
	}
	if amountBOptimal.Cmp(amountBMin) < 0 {
		return nil, nil, nil, fmt.Errorf("%w: optimal %s, min %s", ErrInsufficientBAmount, amountBOptimal, amountBMin)
	}
	return pair, amountADesired, amountBOptimal, nil
}

// RemoveLiquidity moves shares from the caller into the pool, burns them,
// and enforces the minimum bounds on both returned amounts.
func (r *Router) RemoveLiquidity(
	from common.Address,
	tokenA, tokenB common.Address,
	liquidity, amountAMin, amountBMin *big.Int,
	to common.Address,
	deadline uint64,
) (amountA, amountB *big.Int, err error) {
	if err = r.ensure(deadline); err != nil {
		return nil, nil, err
	}
	err = r.journal.Run(func() error {
		pair, ok := r.factory.Pair(tokenA, tokenB)
		if !ok {
			return fmt.Errorf("%w: pair %s/%s", ErrPoolNotFound, tokenA.Hex(), tokenB.Hex())
		}

		if err := pair.Shares().TransferFrom(r.addr, from, pair.Address(), liquidity); err != nil {
			return fmt.Errorf("collect shares: %w", err)
		}
		amount0, amount1, err := pair.Burn(r.addr, to)
		if err != nil {
			return err
		}

		amountA, amountB = amount0, amount1
		if pair.Token0().Address() != tokenA {
			amountA, amountB = amount1, amount0
		}
		if amountA.Cmp(amountAMin) < 0 {
			return fmt.Errorf("%w: got %s, min %s", ErrInsufficientAAmount, amountA, amountAMin)
		}
		if amountB.Cmp(amountBMin) < 0 {
			return fmt.Errorf("%w: got %s, min %s", ErrInsufficientBAmount, amountB, amountBMin)
		}
		r.logger.Debug("remove liquidity",
			zap.String("pair", pair.Address().Hex()),
			zap.String("liquidity", liquidity.String()),
			zap.String("amount_a", amountA.String()),
			zap.String("amount_b", amountB.String()),
		)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amountA, amountB, nil
}

// RemoveLiquidityWithPermit establishes the share allowance from a permit
// signature and removes liquidity in the same atomic call. With approveMax
// the signed value is unlimited rather than the exact share amount.
func (r *Router) RemoveLiquidityWithPermit(
	from common.Address,
	tokenA, tokenB common.Address,
	liquidity, amountAMin, amountBMin *big.Int,
	to common.Address,
	deadline uint64,
	approveMax bool,
	v byte, sigR, sigS common.Hash,
) (amountA, amountB *big.Int, err error) {
	if err = r.ensure(deadline); err != nil {
		return nil, nil, err
	}
	err = r.journal.Run(func() error {
		pair, ok := r.factory.Pair(tokenA, tokenB)
		if !ok {
			return fmt.Errorf("%w: pair %s/%s", ErrPoolNotFound, tokenA.Hex(), tokenB.Hex())
		}
		value := liquidity
		if approveMax {
			value = ledger.MaxUint256
		}
		if err := pair.Shares().Permit(from, r.addr, value, deadline, v, sigR, sigS); err != nil {
			return err
		}
		amountA, amountB, err = r.RemoveLiquidity(from, tokenA, tokenB, liquidity, amountAMin, amountBMin, to, deadline)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return amountA, amountB, nil
}

// orientedReserves returns the pair reserves ordered as (tokenA, other).
func (r *Router) orientedReserves(pair *pool.Pair, tokenA common.Address) (*big.Int, *big.Int) {
	reserve0, reserve1, _ := pair.Reserves()
	if pair.Token0().Address() == tokenA {
		return reserve0, reserve1
	}
	return reserve1, reserve0
}
