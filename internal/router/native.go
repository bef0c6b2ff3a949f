package router

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"flashPool/internal/ledger"
)

// AddLiquidityNative pairs a token with native currency: the native leg is
// taken into custody, wrapped, and deposited alongside the token. Any
// native dust left over after ratio matching is refunded to the caller.
func (r *Router) AddLiquidityNative(
	from common.Address,
	token common.Address,
	amountTokenDesired, amountTokenMin, amountNativeMin, nativeAmount *big.Int,
	to common.Address,
	deadline uint64,
) (amountToken, amountNative, liquidity *big.Int, err error) {
	if err = r.ensure(deadline); err != nil {
		return nil, nil, nil, err
	}
	err = r.journal.Run(func() error {
		if err := r.ledger.TransferNative(from, r.addr, nativeAmount); err != nil {
			return fmt.Errorf("collect native: %w", err)
		}

		pair, a, b, err := r.prepareLiquidity(token, r.wnative.Address(), amountTokenDesired, nativeAmount, amountTokenMin, amountNativeMin)
		if err != nil {
			return err
		}
		amountToken, amountNative = a, b

		tok, err := r.ledger.MustToken(token)
		if err != nil {
			return err
		}
		if err := tok.TransferFrom(r.addr, from, pair.Address(), amountToken); err != nil {
			return fmt.Errorf("deposit %s: %w", tok.Symbol(), err)
		}
		if err := r.wnative.Deposit(r.addr, amountNative); err != nil {
			return err
		}
		if err := r.wnative.Transfer(r.addr, pair.Address(), amountNative); err != nil {
			return fmt.Errorf("deposit %s: %w", r.wnative.Symbol(), err)
		}

		liquidity, err = pair.Mint(r.addr, to)
		if err != nil {
			return err
		}

		if dust := new(big.Int).Sub(nativeAmount, amountNative); dust.Sign() > 0 {
			if err := r.ledger.TransferNative(r.addr, from, dust); err != nil {
				return fmt.Errorf("refund native dust: %w", err)
			}
		}
		r.logger.Debug("add liquidity native",
			zap.String("pair", pair.Address().Hex()),
			zap.String("amount_token", amountToken.String()),
			zap.String("amount_native", amountNative.String()),
			zap.String("liquidity", liquidity.String()),
		)
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return amountToken, amountNative, liquidity, nil
}

// RemoveLiquidityNative burns shares of the token/wrapped-native pair,
// unwraps the native leg, and pays both legs out to to.
func (r *Router) RemoveLiquidityNative(
	from common.Address,
	token common.Address,
	liquidity, amountTokenMin, amountNativeMin *big.Int,
	to common.Address,
	deadline uint64,
) (amountToken, amountNative *big.Int, err error) {
	if err = r.ensure(deadline); err != nil {
		return nil, nil, err
	}
	err = r.journal.Run(func() error {
		// burn to the router first; the native leg must be unwrapped
		amountToken, amountNative, err = r.RemoveLiquidity(from, token, r.wnative.Address(), liquidity, amountTokenMin, amountNativeMin, r.addr, deadline)
		if err != nil {
			return err
		}

		tok, err := r.ledger.MustToken(token)
		if err != nil {
			return err
		}
		if err := tok.Transfer(r.addr, to, amountToken); err != nil {
			return fmt.Errorf("pay out %s: %w", tok.Symbol(), err)
		}
		if err := r.wnative.Withdraw(r.addr, amountNative); err != nil {
			return err
		}
		if err := r.ledger.TransferNative(r.addr, to, amountNative); err != nil {
			return fmt.Errorf("pay out native: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amountToken, amountNative, nil
}

// RemoveLiquidityNativeWithPermit is RemoveLiquidityNative with the share
// allowance established from a permit signature in the same call.
func (r *Router) RemoveLiquidityNativeWithPermit(
	from common.Address,
	token common.Address,
	liquidity, amountTokenMin, amountNativeMin *big.Int,
	to common.Address,
	deadline uint64,
	approveMax bool,
	v byte, sigR, sigS common.Hash,
) (amountToken, amountNative *big.Int, err error) {
	if err = r.ensure(deadline); err != nil {
		return nil, nil, err
	}
	err = r.journal.Run(func() error {
		pair, ok := r.factory.Pair(token, r.wnative.Address())
		if !ok {
			return fmt.Errorf("%w: pair %s/%s", ErrPoolNotFound, token.Hex(), r.wnative.Address().Hex())
		}
		value := liquidity
		if approveMax {
			value = ledger.MaxUint256
		}
		if err := pair.Shares().Permit(from, r.addr, value, deadline, v, sigR, sigS); err != nil {
			return err
		}
		amountToken, amountNative, err = r.RemoveLiquidityNative(from, token, liquidity, amountTokenMin, amountNativeMin, to, deadline)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return amountToken, amountNative, nil
}
