package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// WNative wraps native currency as a regular token: deposits lock native
// currency with the adapter and credit wrapped units one-to-one, withdrawals
// do the reverse. Everything else is plain Token behavior.
type WNative struct {
	*Token
}

// NewWNative registers a wrapped-native token on the ledger.
func (l *Ledger) NewWNative(name, symbol string) *WNative {
	return &WNative{Token: l.NewToken(name, symbol)}
}

// Deposit locks native currency of from and credits wrapped units.
func (w *WNative) Deposit(from common.Address, amount *big.Int) error {
	if err := w.ledger.TransferNative(from, w.addr, amount); err != nil {
		return fmt.Errorf("deposit %s: %w", w.symbol, err)
	}
	if err := w.Mint(from, amount); err != nil {
		return fmt.Errorf("deposit %s: %w", w.symbol, err)
	}
	return nil
}

// Withdraw burns wrapped units of from and releases native currency.
func (w *WNative) Withdraw(from common.Address, amount *big.Int) error {
	if err := w.Burn(from, amount); err != nil {
		return fmt.Errorf("withdraw %s: %w", w.symbol, err)
	}
	if err := w.ledger.TransferNative(w.addr, from, amount); err != nil {
		return fmt.Errorf("withdraw %s: %w", w.symbol, err)
	}
	return nil
}
