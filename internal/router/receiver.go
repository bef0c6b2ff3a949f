package router

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"flashPool/internal/ledger"
)

// FlashBorrower is a reference flash-loan receiver: it takes a loan through
// the router and repays principal plus premium to the pool from its own
// balance. The premium must already be funded before Borrow is called.
type FlashBorrower struct {
	addr   common.Address
	ledger *ledger.Ledger
	router *Router
}

func NewFlashBorrower(l *ledger.Ledger, r *Router, seed string) *FlashBorrower {
	return &FlashBorrower{
		addr:   common.BytesToAddress(crypto.Keccak256([]byte("flashPool/borrower/" + seed))),
		ledger: l,
		router: r,
	}
}

func (b *FlashBorrower) Address() common.Address { return b.addr }

// Borrow initiates a flash loan of amount of token through the router.
func (b *FlashBorrower) Borrow(token common.Address, amount *big.Int, data []byte, deadline uint64) error {
	return b.router.FlashLoan(b.addr, token, b, amount, data, deadline)
}

// OnFlashLoan repays the lending pool directly: the borrowed amount plus
// the premium, drawn from the borrower's balance.
func (b *FlashBorrower) OnFlashLoan(initiator common.Address, token common.Address, amount, premium *big.Int, data []byte) error {
	p, ok := b.router.factory.FlashPool(token)
	if !ok {
		return fmt.Errorf("%w: flash pool %s", ErrPoolNotFound, token.Hex())
	}
	tok, err := b.ledger.MustToken(token)
	if err != nil {
		return err
	}
	repay := new(big.Int).Add(amount, premium)
	if err := tok.Transfer(b.addr, p.Address(), repay); err != nil {
		return fmt.Errorf("repay loan: %w", err)
	}
	return nil
}
