package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Token is one fungible balance ledger: balances, allowances, and permit
// nonces keyed by address. All mutations register undo closures with the
// shared state journal, so a failed enclosing operation reverts them.
type Token struct {
	ledger *Ledger
	addr   common.Address
	name   string
	symbol string
	domain common.Hash

	mu         sync.RWMutex
	total      *big.Int
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
	nonces     map[common.Address]uint64
}

func (t *Token) Address() common.Address { return t.addr }
func (t *Token) Name() string            { return t.name }
func (t *Token) Symbol() string          { return t.symbol }

// DomainSeparator is the permit signing domain of this token.
func (t *Token) DomainSeparator() common.Hash { return t.domain }

func (t *Token) TotalSupply() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.total)
}

func (t *Token) BalanceOf(owner common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.balanceOf(owner))
}

func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.allowanceOf(owner, spender))
}

// Nonces returns the next unused permit nonce of owner.
func (t *Token) Nonces(owner common.Address) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nonces[owner]
}

// Transfer moves amount from one holder to another.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	fromBal := t.balanceOf(from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s balance of %s is %s, need %s",
			ErrInsufficientBalance, t.symbol, from.Hex(), fromBal, amount)
	}
	t.setBalance(from, new(big.Int).Sub(fromBal, amount))
	t.setBalance(to, new(big.Int).Add(t.balanceOf(to), amount))
	return nil
}

// TransferFrom spends the allowance granted by from to spender. An
// unlimited allowance (MaxUint256) is never decremented.
func (t *Token) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	allowance := t.allowanceOf(from, spender)
	if allowance.Cmp(MaxUint256) != 0 {
		if allowance.Cmp(amount) < 0 {
			return fmt.Errorf("%w: %s allowance of %s for %s is %s, need %s",
				ErrInsufficientAllowance, t.symbol, from.Hex(), spender.Hex(), allowance, amount)
		}
		t.setAllowance(from, spender, new(big.Int).Sub(allowance, amount))
	}

	fromBal := t.balanceOf(from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s balance of %s is %s, need %s",
			ErrInsufficientBalance, t.symbol, from.Hex(), fromBal, amount)
	}
	t.setBalance(from, new(big.Int).Sub(fromBal, amount))
	t.setBalance(to, new(big.Int).Add(t.balanceOf(to), amount))
	return nil
}

// Approve sets the spender allowance of owner.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setAllowance(owner, spender, new(big.Int).Set(amount))
	return nil
}

// Mint creates amount new units for to.
func (t *Token) Mint(to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setTotal(new(big.Int).Add(t.total, amount))
	t.setBalance(to, new(big.Int).Add(t.balanceOf(to), amount))
	return nil
}

// Burn destroys amount units held by from.
func (t *Token) Burn(from common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	fromBal := t.balanceOf(from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s balance of %s is %s, burn %s",
			ErrInsufficientBalance, t.symbol, from.Hex(), fromBal, amount)
	}
	t.setBalance(from, new(big.Int).Sub(fromBal, amount))
	t.setTotal(new(big.Int).Sub(t.total, amount))
	return nil
}

// Permit sets the spender allowance of owner from an off-chain signature
// over (owner, spender, value, nonce, deadline). The owner nonce is
// consumed on success, so a signature verifies exactly once.
func (t *Token) Permit(owner, spender common.Address, value *big.Int, deadline uint64, v byte, r, s common.Hash) error {
	if value == nil || value.Sign() < 0 {
		return ErrInvalidAmount
	}
	if t.ledger.clk.Now() > deadline {
		return fmt.Errorf("%w: deadline %d", ErrPermitExpired, deadline)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	nonce := t.nonces[owner]
	digest := PermitDigest(t.domain, owner, spender, value, nonce, deadline)
	if !t.ledger.verifier.Verify(owner, digest, v, r, s) {
		return fmt.Errorf("%w: owner %s nonce %d", ErrInvalidSignature, owner.Hex(), nonce)
	}

	t.setNonce(owner, nonce+1)
	t.setAllowance(owner, spender, new(big.Int).Set(value))
	return nil
}

// balanceOf reads without copying; callers must hold t.mu.
func (t *Token) balanceOf(owner common.Address) *big.Int {
	if b, ok := t.balances[owner]; ok {
		return b
	}
	return new(big.Int)
}

func (t *Token) allowanceOf(owner, spender common.Address) *big.Int {
	if m, ok := t.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return a
		}
	}
	return new(big.Int)
}

func (t *Token) setBalance(owner common.Address, v *big.Int) {
	old, existed := t.balances[owner]
	t.ledger.journal.Append(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if existed {
			t.balances[owner] = old
		} else {
			delete(t.balances, owner)
		}
	})
	t.balances[owner] = v
}

func (t *Token) setAllowance(owner, spender common.Address, v *big.Int) {
	m, hadOwner := t.allowances[owner]
	if !hadOwner {
		m = make(map[common.Address]*big.Int)
		t.allowances[owner] = m
	}
	old, existed := m[spender]
	t.ledger.journal.Append(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if existed {
			m[spender] = old
		} else {
			delete(m, spender)
		}
		if !hadOwner && len(m) == 0 {
			delete(t.allowances, owner)
		}
	})
	m[spender] = v
}

func (t *Token) setNonce(owner common.Address, v uint64) {
	old, existed := t.nonces[owner]
	t.ledger.journal.Append(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if existed {
			t.nonces[owner] = old
		} else {
			delete(t.nonces, owner)
		}
	})
	t.nonces[owner] = v
}

func (t *Token) setTotal(v *big.Int) {
	old := t.total
	t.ledger.journal.Append(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.total = old
	})
	t.total = v
}
