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

// flashPremiumDivisor sets the loan premium at 0.05% of the amount, floored.
var flashPremiumDivisor = big.NewInt(2000)

// Borrower is the flash-loan callback contract. OnFlashLoan runs between
// the optimistic transfer and the settle-and-verify phase; the borrower
// must leave the pool holding at least reserve + premium before returning.
type Borrower interface {
	Address() common.Address
	OnFlashLoan(initiator, token common.Address, amount, premium *big.Int, data []byte) error
}

// FlashPool is the single-token pool variant: one reserve, proportional
// share accounting, and a flash-loan facility. One unit of reserve is
// always retained so the pool can never be fully drained.
//
// Like Pair, a FlashPool is not safe for concurrent use; top-level calls
// are serialized by the caller.
type FlashPool struct {
	addr   common.Address
	token  *ledger.Token
	shares *ledger.Token

	journal  *state.Journal
	clk      clock.Clock
	recorder events.Recorder

	reserve            *big.Int
	blockTimestampLast uint64
}

// NewFlashPool builds an empty single-token pool.
func NewFlashPool(addr common.Address, token, shares *ledger.Token, journal *state.Journal, clk clock.Clock, recorder events.Recorder) *FlashPool {
	if recorder == nil {
		recorder = events.Nop{}
	}
	return &FlashPool{
		addr:     addr,
		token:    token,
		shares:   shares,
		journal:  journal,
		clk:      clk,
		recorder: recorder,
		reserve:  new(big.Int),
	}
}

func (p *FlashPool) Address() common.Address { return p.addr }
func (p *FlashPool) Token() *ledger.Token    { return p.token }
func (p *FlashPool) Shares() *ledger.Token   { return p.shares }

// Reserve returns the last-synchronized reserve and its timestamp.
func (p *FlashPool) Reserve() (*big.Int, uint64) {
	return new(big.Int).Set(p.reserve), p.blockTimestampLast
}

// FlashFee returns the premium for borrowing amount: amount/2000, floored.
func (p *FlashPool) FlashFee(amount *big.Int) *big.Int {
	if amount == nil || amount.Sign() < 0 {
		return new(big.Int)
	}
	return new(big.Int).Div(amount, flashPremiumDivisor)
}

// MaxFlashLoan is reserve - 1; zero for an unseeded pool.
func (p *FlashPool) MaxFlashLoan() *big.Int {
	if p.reserve.Sign() == 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(p.reserve, big.NewInt(1))
}

// Mint converts tokens deposited since the last sync into shares for to.
// The first mint locks MinimumLiquidity to the zero address.
func (p *FlashPool) Mint(sender, to common.Address) (*big.Int, error) {
	var liquidity *big.Int
	err := p.journal.Run(func() error {
		balance := p.token.BalanceOf(p.addr)
		amount := new(big.Int).Sub(balance, p.reserve)

		total := p.shares.TotalSupply()
		if total.Sign() == 0 {
			liquidity = new(big.Int).Sub(amount, MinimumLiquidity)
			if liquidity.Sign() <= 0 {
				return ErrInsufficientLiquidityMinted
			}
			if err := p.shares.Mint(ZeroAddress, MinimumLiquidity); err != nil {
				return err
			}
		} else {
			liquidity = new(big.Int).Mul(amount, total)
			liquidity.Div(liquidity, p.reserve)
			if liquidity.Sign() <= 0 {
				return ErrInsufficientLiquidityMinted
			}
		}

		if err := p.shares.Mint(to, liquidity); err != nil {
			return err
		}
		p.update(balance)
		p.emit(model.KindMint, model.MintData{
			Sender:  sender.Hex(),
			Amount0: amount.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return liquidity, nil
}

// Burn redeems the shares held at the pool address pro rata against the
// current balance and pays the amount to to.
func (p *FlashPool) Burn(sender, to common.Address) (*big.Int, error) {
	var amount *big.Int
	err := p.journal.Run(func() error {
		liquidity := p.shares.BalanceOf(p.addr)
		total := p.shares.TotalSupply()
		if total.Sign() == 0 {
			return ErrInsufficientLiquidity
		}

		balance := p.token.BalanceOf(p.addr)
		amount = new(big.Int).Mul(liquidity, balance)
		amount.Div(amount, total)
		if amount.Sign() == 0 {
			return ErrInsufficientLiquidityBurned
		}

		if err := p.shares.Burn(p.addr, liquidity); err != nil {
			return err
		}
		if err := p.token.Transfer(p.addr, to, amount); err != nil {
			return fmt.Errorf("pay out %s: %w", p.token.Symbol(), err)
		}

		p.update(p.token.BalanceOf(p.addr))
		p.emit(model.KindBurn, model.BurnData{
			Sender:  sender.Hex(),
			Amount0: amount.String(),
			To:      to.Hex(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// FlashLoan transfers amount to the borrower, invokes its callback, and
// then requires the pool balance to have grown by at least the premium.
// Any shortfall, or a callback error, aborts the whole call.
func (p *FlashPool) FlashLoan(sender common.Address, borrower Borrower, amount *big.Int, data []byte) error {
	return p.journal.Run(func() error {
		if amount == nil || amount.Sign() <= 0 {
			return ErrInsufficientInputAmount
		}
		if amount.Cmp(p.MaxFlashLoan()) > 0 {
			return fmt.Errorf("%w: requested %s, max %s", ErrExceedsMaxFlashLoan, amount, p.MaxFlashLoan())
		}
		premium := p.FlashFee(amount)

		if err := p.token.Transfer(p.addr, borrower.Address(), amount); err != nil {
			return fmt.Errorf("loan disbursement: %w", err)
		}
		if err := borrower.OnFlashLoan(sender, p.token.Address(), amount, premium, data); err != nil {
			return fmt.Errorf("flash loan callback: %w", err)
		}

		// settlement snapshot, strictly after the callback
		balance := p.token.BalanceOf(p.addr)
		required := new(big.Int).Add(p.reserve, premium)
		if balance.Cmp(required) < 0 {
			return fmt.Errorf("%w: balance %s, required %s", ErrLoanNotRepaid, balance, required)
		}

		p.update(balance)
		p.emit(model.KindFlashLoan, model.FlashLoanData{
			Recipient: borrower.Address().Hex(),
			Initiator: sender.Hex(),
			Token:     p.token.Address().Hex(),
			Amount:    amount.String(),
			Premium:   premium.String(),
		})
		return nil
	})
}

// Sync force-reconciles the reserve with the actual ledger balance.
func (p *FlashPool) Sync() error {
	return p.journal.Run(func() error {
		p.update(p.token.BalanceOf(p.addr))
		return nil
	})
}

func (p *FlashPool) update(balance *big.Int) {
	now := p.clk.Now()
	oldReserve, oldTS := p.reserve, p.blockTimestampLast
	p.journal.Append(func() {
		p.reserve, p.blockTimestampLast = oldReserve, oldTS
	})
	p.reserve, p.blockTimestampLast = new(big.Int).Set(balance), now
	p.emit(model.KindSync, model.SyncData{Reserve0: p.reserve.String()})
}

func (p *FlashPool) emit(kind string, data interface{}) {
	p.recorder.Append(model.Record{
		Pool:      p.addr.Hex(),
		Kind:      kind,
		Timestamp: p.clk.Now(),
		Data:      data,
	})
	p.journal.Append(p.recorder.DropLast)
}
