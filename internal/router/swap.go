package router

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// SwapExactTokensForTokens swaps a fixed input amount along a two-token
// path, failing if the output falls below amountOutMin.
func (r *Router) SwapExactTokensForTokens(
	from common.Address,
	amountIn, amountOutMin *big.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) (amounts []*big.Int, err error) {
	if err = r.ensure(deadline); err != nil {
		return nil, err
	}
	err = r.journal.Run(func() error {
		amounts, err = r.amountsOut(amountIn, path)
		if err != nil {
			return err
		}
		if amounts[1].Cmp(amountOutMin) < 0 {
			return fmt.Errorf("%w: got %s, min %s", ErrInsufficientOutputAmount, amounts[1], amountOutMin)
		}
		return r.executeSwap(from, to, path, amounts, false)
	})
	if err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapTokensForExactTokens swaps for a fixed output amount, failing if the
// required input exceeds amountInMax.
func (r *Router) SwapTokensForExactTokens(
	from common.Address,
	amountOut, amountInMax *big.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) (amounts []*big.Int, err error) {
	if err = r.ensure(deadline); err != nil {
		return nil, err
	}
	err = r.journal.Run(func() error {
		amounts, err = r.amountsIn(amountOut, path)
		if err != nil {
			return err
		}
		if amounts[0].Cmp(amountInMax) > 0 {
			return fmt.Errorf("%w: need %s, max %s", ErrExcessiveInputAmount, amounts[0], amountInMax)
		}
		return r.executeSwap(from, to, path, amounts, false)
	})
	if err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapExactNativeForTokens wraps nativeAmount and swaps it for the path's
// output token. path[0] must be the wrapped-native token.
func (r *Router) SwapExactNativeForTokens(
	from common.Address,
	nativeAmount, amountOutMin *big.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) (amounts []*big.Int, err error) {
	if err = r.ensure(deadline); err != nil {
		return nil, err
	}
	err = r.journal.Run(func() error {
		if err := r.checkPath(path); err != nil {
			return err
		}
		if path[0] != r.wnative.Address() {
			return fmt.Errorf("%w: path must start with %s", ErrInvalidPath, r.wnative.Symbol())
		}
		amounts, err = r.amountsOut(nativeAmount, path)
		if err != nil {
			return err
		}
		if amounts[1].Cmp(amountOutMin) < 0 {
			return fmt.Errorf("%w: got %s, min %s", ErrInsufficientOutputAmount, amounts[1], amountOutMin)
		}
		if err := r.ledger.TransferNative(from, r.addr, nativeAmount); err != nil {
			return fmt.Errorf("collect native: %w", err)
		}
		if err := r.wnative.Deposit(r.addr, nativeAmount); err != nil {
			return err
		}
		return r.executeSwap(from, to, path, amounts, true)
	})
	if err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapExactTokensForNative swaps a fixed token input for native currency.
// path[1] must be the wrapped-native token; the output is unwrapped and
// paid to to as native balance.
func (r *Router) SwapExactTokensForNative(
	from common.Address,
	amountIn, amountOutMin *big.Int,
	path []common.Address,
	to common.Address,
	deadline uint64,
) (amounts []*big.Int, err error) {
	if err = r.ensure(deadline); err != nil {
		return nil, err
	}
	err = r.journal.Run(func() error {
		if err := r.checkPath(path); err != nil {
			return err
		}
		if path[1] != r.wnative.Address() {
			return fmt.Errorf("%w: path must end with %s", ErrInvalidPath, r.wnative.Symbol())
		}
		amounts, err = r.amountsOut(amountIn, path)
		if err != nil {
			return err
		}
		if amounts[1].Cmp(amountOutMin) < 0 {
			return fmt.Errorf("%w: got %s, min %s", ErrInsufficientOutputAmount, amounts[1], amountOutMin)
		}
		// swap to the router, then unwrap and pay out
		if err := r.executeSwap(from, r.addr, path, amounts, false); err != nil {
			return err
		}
		if err := r.wnative.Withdraw(r.addr, amounts[1]); err != nil {
			return err
		}
		if err := r.ledger.TransferNative(r.addr, to, amounts[1]); err != nil {
			return fmt.Errorf("pay out native: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amounts, nil
}

func (r *Router) checkPath(path []common.Address) error {
	if len(path) != 2 {
		return fmt.Errorf("%w: length %d", ErrInvalidPath, len(path))
	}
	if path[0] == path[1] {
		return fmt.Errorf("%w: identical tokens", ErrInvalidPath)
	}
	return nil
}

// amountsOut resolves the pair and fills [amountIn, amountOut].
func (r *Router) amountsOut(amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if err := r.checkPath(path); err != nil {
		return nil, err
	}
	pair, ok := r.factory.Pair(path[0], path[1])
	if !ok {
		return nil, fmt.Errorf("%w: pair %s/%s", ErrPoolNotFound, path[0].Hex(), path[1].Hex())
	}
	reserveIn, reserveOut := r.orientedReserves(pair, path[0])
	out, err := GetAmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}
	return []*big.Int{amountIn, out}, nil
}

// amountsIn resolves the pair and fills [amountIn, amountOut] for a fixed
// output.
func (r *Router) amountsIn(amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	if err := r.checkPath(path); err != nil {
		return nil, err
	}
	pair, ok := r.factory.Pair(path[0], path[1])
	if !ok {
		return nil, fmt.Errorf("%w: pair %s/%s", ErrPoolNotFound, path[0].Hex(), path[1].Hex())
	}
	reserveIn, reserveOut := r.orientedReserves(pair, path[0])
	in, err := GetAmountIn(amountOut, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}
	return []*big.Int{in, amountOut}, nil
}

// executeSwap moves the input into the pair and performs the swap. With
// inputHeld the router already holds the input token (wrapped native);
// otherwise it is pulled from the caller's allowance.
func (r *Router) executeSwap(from, to common.Address, path []common.Address, amounts []*big.Int, inputHeld bool) error {
	pair, ok := r.factory.Pair(path[0], path[1])
	if !ok {
		return fmt.Errorf("%w: pair %s/%s", ErrPoolNotFound, path[0].Hex(), path[1].Hex())
	}
	tokIn, err := r.ledger.MustToken(path[0])
	if err != nil {
		return err
	}

	if inputHeld {
		if err := tokIn.Transfer(r.addr, pair.Address(), amounts[0]); err != nil {
			return fmt.Errorf("deposit %s: %w", tokIn.Symbol(), err)
		}
	} else {
		if err := tokIn.TransferFrom(r.addr, from, pair.Address(), amounts[0]); err != nil {
			return fmt.Errorf("deposit %s: %w", tokIn.Symbol(), err)
		}
	}

	amount0Out, amount1Out := amounts[1], (*big.Int)(nil)
	if pair.Token0().Address() == path[0] {
		amount0Out, amount1Out = nil, amounts[1]
	}
	if err := pair.Swap(r.addr, amount0Out, amount1Out, to, nil, nil); err != nil {
		return err
	}
	r.logger.Debug("swap",
		zap.String("pair", pair.Address().Hex()),
		zap.String("token_in", path[0].Hex()),
		zap.String("amount_in", amounts[0].String()),
		zap.String("amount_out", amounts[1].String()),
	)
	return nil
}
