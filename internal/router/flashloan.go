package router

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"flashPool/internal/pool"
)

// FlashFee returns the premium the flash pool for token charges on amount.
func (r *Router) FlashFee(token common.Address, amount *big.Int) (*big.Int, error) {
	p, ok := r.factory.FlashPool(token)
	if !ok {
		return nil, fmt.Errorf("%w: flash pool %s", ErrPoolNotFound, token.Hex())
	}
	return p.FlashFee(amount), nil
}

// MaxFlashLoan returns the largest amount the flash pool for token can lend.
func (r *Router) MaxFlashLoan(token common.Address) (*big.Int, error) {
	p, ok := r.factory.FlashPool(token)
	if !ok {
		return nil, fmt.Errorf("%w: flash pool %s", ErrPoolNotFound, token.Hex())
	}
	return p.MaxFlashLoan(), nil
}

// FlashLoan borrows amount of token from the flash pool on behalf of
// receiver. The router takes the loan itself and forwards both the funds
// and the callback, so the pool sees the router as borrower while the
// receiver's callback carries the original initiator.
func (r *Router) FlashLoan(
	from common.Address,
	token common.Address,
	receiver pool.Borrower,
	amount *big.Int,
	data []byte,
	deadline uint64,
) error {
	if err := r.ensure(deadline); err != nil {
		return err
	}
	return r.journal.Run(func() error {
		p, ok := r.factory.FlashPool(token)
		if !ok {
			return fmt.Errorf("%w: flash pool %s", ErrPoolNotFound, token.Hex())
		}
		r.pending = receiver
		defer func() { r.pending = nil }()

		if err := p.FlashLoan(from, r, amount, data); err != nil {
			return err
		}
		r.logger.Debug("flash loan",
			zap.String("token", token.Hex()),
			zap.String("receiver", receiver.Address().Hex()),
			zap.String("amount", amount.String()),
		)
		return nil
	})
}

// OnFlashLoan receives the pool's callback and hands the loan on to the
// pending receiver. The receiver repays the pool directly.
func (r *Router) OnFlashLoan(initiator common.Address, token common.Address, amount, premium *big.Int, data []byte) error {
	receiver := r.pending
	if receiver == nil {
		return ErrNoPendingLoan
	}
	tok, err := r.ledger.MustToken(token)
	if err != nil {
		return err
	}
	if err := tok.Transfer(r.addr, receiver.Address(), amount); err != nil {
		return fmt.Errorf("forward loan: %w", err)
	}
	return receiver.OnFlashLoan(initiator, token, amount, premium, data)
}
