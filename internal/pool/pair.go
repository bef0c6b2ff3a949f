package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"flashPool/internal/clock"
	"flashPool/internal/events"
	"flashPool/internal/ledger"
	"flashPool/internal/model"
	"flashPool/internal/state"
)

var (
	// ZeroAddress receives the permanently locked first-mint shares.
	ZeroAddress common.Address

	feeNumerator   = big.NewInt(997)
	feeDenominator = big.NewInt(1000)
	feeSquared     = big.NewInt(1000 * 1000)
)

// SwapCallee is the flash-swap callback: it runs after the optimistic
// output transfer and before the invariant check, so the callee may use the
// output to source the input within the same call.
type SwapCallee interface {
	Call(sender common.Address, amount0, amount1 *big.Int, data []byte) error
}

// Pair is a two-token constant-product pool. It mints and burns liquidity
// shares against deposits, executes swaps under the 0.3% input-fee rule,
// and accumulates time-weighted prices once per timestamp tick.
//
// A Pair is not safe for concurrent use: top-level calls are serialized by
// the caller, matching the one-call-at-a-time execution model of the
// ledger. Callbacks issued mid-call may re-enter ledger operations; every
// settlement therefore reads balances only after the callback returns.
type Pair struct {
	addr   common.Address
	token0 *ledger.Token
	token1 *ledger.Token
	shares *ledger.Token

	journal  *state.Journal
	clk      clock.Clock
	recorder events.Recorder

	reserve0 *big.Int
	reserve1 *big.Int
	kLast    *big.Int

	priceCumulative0   *big.Int
	priceCumulative1   *big.Int
	blockTimestampLast uint64
}

// NewPair builds an empty pair pool. token0 and token1 must already be in
// canonical (sorted) order; the factory guarantees this.
func NewPair(addr common.Address, token0, token1, shares *ledger.Token, journal *state.Journal, clk clock.Clock, recorder events.Recorder) *Pair {
	if recorder == nil {
		recorder = events.Nop{}
	}
	return &Pair{
		addr:             addr,
		token0:           token0,
		token1:           token1,
		shares:           shares,
		journal:          journal,
		clk:              clk,
		recorder:         recorder,
		reserve0:         new(big.Int),
		reserve1:         new(big.Int),
		kLast:            new(big.Int),
		priceCumulative0: new(big.Int),
		priceCumulative1: new(big.Int),
	}
}

func (p *Pair) Address() common.Address { return p.addr }
func (p *Pair) Token0() *ledger.Token   { return p.token0 }
func (p *Pair) Token1() *ledger.Token   { return p.token1 }

// Shares is the liquidity-share token of this pool.
func (p *Pair) Shares() *ledger.Token { return p.shares }

// Reserves returns the last-synchronized reserves and their timestamp.
func (p *Pair) Reserves() (reserve0, reserve1 *big.Int, blockTimestampLast uint64) {
	return new(big.Int).Set(p.reserve0), new(big.Int).Set(p.reserve1), p.blockTimestampLast
}

// KLast is reserve0*reserve1 as of the most recent liquidity event.
func (p *Pair) KLast() *big.Int { return new(big.Int).Set(p.kLast) }

// PriceCumulatives returns the time-weighted price integrals, UQ112.112
// fixed point.
func (p *Pair) PriceCumulatives() (price0, price1 *big.Int) {
	return new(big.Int).Set(p.priceCumulative0), new(big.Int).Set(p.priceCumulative1)
}

// Mint converts the tokens deposited since the last sync into new shares
// for to. The first mint locks MinimumLiquidity to the zero address.
func (p *Pair) Mint(sender, to common.Address) (*big.Int, error) {
	var liquidity *big.Int
	err := p.journal.Run(func() error {
		balance0 := p.token0.BalanceOf(p.addr)
		balance1 := p.token1.BalanceOf(p.addr)
		amount0 := new(big.Int).Sub(balance0, p.reserve0)
		amount1 := new(big.Int).Sub(balance1, p.reserve1)

		total := p.shares.TotalSupply()
		if total.Sign() == 0 {
			if amount0.Sign() <= 0 || amount1.Sign() <= 0 {
				return ErrInsufficientLiquidityMinted
			}
			liquidity = sqrt(new(big.Int).Mul(amount0, amount1))
			liquidity.Sub(liquidity, MinimumLiquidity)
			if liquidity.Sign() <= 0 {
				return ErrInsufficientLiquidityMinted
			}
			// locked forever
			if err := p.shares.Mint(ZeroAddress, MinimumLiquidity); err != nil {
				return err
			}
		} else {
			l0 := new(big.Int).Mul(amount0, total)
			l0.Div(l0, p.reserve0)
			l1 := new(big.Int).Mul(amount1, total)
			l1.Div(l1, p.reserve1)
			liquidity = minBig(l0, l1)
			if liquidity.Sign() <= 0 {
				return ErrInsufficientLiquidityMinted
			}
		}

		if err := p.shares.Mint(to, liquidity); err != nil {
			return err
		}
		p.update(balance0, balance1)
		p.setKLast(new(big.Int).Mul(p.reserve0, p.reserve1))
		p.emit(model.KindMint, model.MintData{
			Sender:  sender.Hex(),
			Amount0: amount0.String(),
			Amount1: amount1.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return liquidity, nil
}

// Burn redeems the shares held at the pool address (transferred in by the
// caller beforehand) pro rata against current balances and pays both
// amounts to to. Rounding loss stays in the reserves.
func (p *Pair) Burn(sender, to common.Address) (*big.Int, *big.Int, error) {
	var amount0, amount1 *big.Int
	err := p.journal.Run(func() error {
		liquidity := p.shares.BalanceOf(p.addr)
		total := p.shares.TotalSupply()
		if total.Sign() == 0 {
			return ErrInsufficientLiquidity
		}

		balance0 := p.token0.BalanceOf(p.addr)
		balance1 := p.token1.BalanceOf(p.addr)
		amount0 = new(big.Int).Mul(liquidity, balance0)
		amount0.Div(amount0, total)
		amount1 = new(big.Int).Mul(liquidity, balance1)
		amount1.Div(amount1, total)
		if amount0.Sign() == 0 || amount1.Sign() == 0 {
			return ErrInsufficientLiquidityBurned
		}

		if err := p.shares.Burn(p.addr, liquidity); err != nil {
			return err
		}
		if err := p.token0.Transfer(p.addr, to, amount0); err != nil {
			return fmt.Errorf("pay out %s: %w", p.token0.Symbol(), err)
		}
		if err := p.token1.Transfer(p.addr, to, amount1); err != nil {
			return fmt.Errorf("pay out %s: %w", p.token1.Symbol(), err)
		}

		p.update(p.token0.BalanceOf(p.addr), p.token1.BalanceOf(p.addr))
		p.setKLast(new(big.Int).Mul(p.reserve0, p.reserve1))
		p.emit(model.KindBurn, model.BurnData{
			Sender:  sender.Hex(),
			Amount0: amount0.String(),
			Amount1: amount1.String(),
			To:      to.Hex(),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// Swap optimistically transfers the requested outputs to to, runs the
// flash-swap callback if data is non-empty, then verifies the
// constant-product invariant against a balance snapshot taken after the
// callback returned. The effective 0.3% fee applies to inflows only.
func (p *Pair) Swap(sender common.Address, amount0Out, amount1Out *big.Int, to common.Address, data []byte, callee SwapCallee) error {
	if amount0Out == nil {
		amount0Out = new(big.Int)
	}
	if amount1Out == nil {
		amount1Out = new(big.Int)
	}
	return p.journal.Run(func() error {
		if amount0Out.Sign() <= 0 && amount1Out.Sign() <= 0 {
			return ErrInsufficientOutputAmount
		}
		if amount0Out.Cmp(p.reserve0) >= 0 || amount1Out.Cmp(p.reserve1) >= 0 {
			return ErrInsufficientLiquidity
		}

		if amount0Out.Sign() > 0 {
			if err := p.token0.Transfer(p.addr, to, amount0Out); err != nil {
				return fmt.Errorf("swap output %s: %w", p.token0.Symbol(), err)
			}
		}
		if amount1Out.Sign() > 0 {
			if err := p.token1.Transfer(p.addr, to, amount1Out); err != nil {
				return fmt.Errorf("swap output %s: %w", p.token1.Symbol(), err)
			}
		}
		if len(data) > 0 && callee != nil {
			if err := callee.Call(sender, amount0Out, amount1Out, data); err != nil {
				return fmt.Errorf("swap callback: %w", err)
			}
		}

		// settlement snapshot, strictly after the callback
		balance0 := p.token0.BalanceOf(p.addr)
		balance1 := p.token1.BalanceOf(p.addr)

		amount0In := inferInput(balance0, p.reserve0, amount0Out)
		amount1In := inferInput(balance1, p.reserve1, amount1Out)
		if amount0In.Sign() == 0 && amount1In.Sign() == 0 {
			return ErrInsufficientInputAmount
		}

		adjusted0 := new(big.Int).Mul(balance0, feeDenominator)
		adjusted0.Sub(adjusted0, new(big.Int).Mul(amount0In, big.NewInt(3)))
		adjusted1 := new(big.Int).Mul(balance1, feeDenominator)
		adjusted1.Sub(adjusted1, new(big.Int).Mul(amount1In, big.NewInt(3)))

		k := new(big.Int).Mul(p.reserve0, p.reserve1)
		k.Mul(k, feeSquared)
		if new(big.Int).Mul(adjusted0, adjusted1).Cmp(k) < 0 {
			return ErrInvariant
		}

		p.update(balance0, balance1)
		p.emit(model.KindSwap, model.SwapData{
			Sender:     sender.Hex(),
			Amount0In:  amount0In.String(),
			Amount1In:  amount1In.String(),
			Amount0Out: amount0Out.String(),
			Amount1Out: amount1Out.String(),
			To:         to.Hex(),
		})
		return nil
	})
}

// Sync force-reconciles reserves with actual ledger balances.
func (p *Pair) Sync() error {
	return p.journal.Run(func() error {
		p.update(p.token0.BalanceOf(p.addr), p.token1.BalanceOf(p.addr))
		return nil
	})
}

// inferInput derives the inflow of one side from its post-call balance:
// anything above reserve minus what was paid out must have come in.
func inferInput(balance, reserve, amountOut *big.Int) *big.Int {
	floor := new(big.Int).Sub(reserve, amountOut)
	if balance.Cmp(floor) > 0 {
		return new(big.Int).Sub(balance, floor)
	}
	return new(big.Int)
}

// update advances the price accumulators for the elapsed time, then syncs
// reserves to the given balances and emits a Sync record.
func (p *Pair) update(balance0, balance1 *big.Int) {
	now := p.clk.Now()
	if elapsed := now - p.blockTimestampLast; elapsed > 0 && p.reserve0.Sign() > 0 && p.reserve1.Sign() > 0 {
		elapsedBig := new(big.Int).SetUint64(elapsed)

		inc0 := new(big.Int).Lsh(p.reserve1, 112)
		inc0.Div(inc0, p.reserve0)
		inc0.Mul(inc0, elapsedBig)

		inc1 := new(big.Int).Lsh(p.reserve0, 112)
		inc1.Div(inc1, p.reserve1)
		inc1.Mul(inc1, elapsedBig)

		p.setPriceCumulatives(
			new(big.Int).Add(p.priceCumulative0, inc0),
			new(big.Int).Add(p.priceCumulative1, inc1),
		)
	}
	p.setReserves(new(big.Int).Set(balance0), new(big.Int).Set(balance1), now)
	p.emit(model.KindSync, model.SyncData{
		Reserve0: p.reserve0.String(),
		Reserve1: p.reserve1.String(),
	})
}

func (p *Pair) emit(kind string, data interface{}) {
	p.recorder.Append(model.Record{
		Pool:      p.addr.Hex(),
		Kind:      kind,
		Timestamp: p.clk.Now(),
		Data:      data,
	})
	p.journal.Append(p.recorder.DropLast)
}

func (p *Pair) setReserves(reserve0, reserve1 *big.Int, timestamp uint64) {
	oldR0, oldR1, oldTS := p.reserve0, p.reserve1, p.blockTimestampLast
	p.journal.Append(func() {
		p.reserve0, p.reserve1, p.blockTimestampLast = oldR0, oldR1, oldTS
	})
	p.reserve0, p.reserve1, p.blockTimestampLast = reserve0, reserve1, timestamp
}

func (p *Pair) setPriceCumulatives(price0, price1 *big.Int) {
	old0, old1 := p.priceCumulative0, p.priceCumulative1
	p.journal.Append(func() {
		p.priceCumulative0, p.priceCumulative1 = old0, old1
	})
	p.priceCumulative0, p.priceCumulative1 = price0, price1
}

func (p *Pair) setKLast(k *big.Int) {
	old := p.kLast
	p.journal.Append(func() {
		p.kLast = old
	})
	p.kLast = k
}
