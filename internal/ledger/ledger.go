package ledger

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"flashPool/internal/clock"
	"flashPool/internal/state"
)

// MaxUint256 marks an unlimited allowance; unlimited allowances are not
// decremented on spend.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Ledger is the fungible-balance system: it registers tokens, tracks
// native-currency balances, and owns the state journal and the permit
// signature verifier shared by all tokens.
type Ledger struct {
	mu       sync.RWMutex
	journal  *state.Journal
	clk      clock.Clock
	verifier Verifier
	tokens   map[common.Address]*Token
	native   map[common.Address]*big.Int
	nextID   uint64
}

// New builds a Ledger. A nil verifier defaults to secp256k1 recovery.
func New(journal *state.Journal, clk clock.Clock, verifier Verifier) *Ledger {
	if verifier == nil {
		verifier = Secp256k1Verifier{}
	}
	return &Ledger{
		journal:  journal,
		clk:      clk,
		verifier: verifier,
		tokens:   make(map[common.Address]*Token),
		native:   make(map[common.Address]*big.Int),
	}
}

// Journal returns the shared state journal.
func (l *Ledger) Journal() *state.Journal {
	return l.journal
}

// Clock returns the ledger clock.
func (l *Ledger) Clock() clock.Clock {
	return l.clk
}

// NewToken registers a fresh token with a derived address and zero supply.
func (l *Ledger) NewToken(name, symbol string) *Token {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	addr := deriveAddress("flashPool/token", []byte(symbol), l.nextID)

	t := &Token{
		ledger:     l,
		addr:       addr,
		name:       name,
		symbol:     symbol,
		domain:     domainSeparator(name, symbol, addr),
		total:      new(big.Int),
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
		nonces:     make(map[common.Address]uint64),
	}
	l.tokens[addr] = t
	l.journal.Append(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.tokens, addr)
	})
	return t
}

// Token resolves a registered token by address.
func (l *Ledger) Token(addr common.Address) (*Token, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tokens[addr]
	return t, ok
}

// MustToken resolves a token or returns ErrUnknownToken.
func (l *Ledger) MustToken(addr common.Address) (*Token, error) {
	t, ok := l.Token(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, addr.Hex())
	}
	return t, nil
}

// NativeBalance returns the native-currency balance of addr.
func (l *Ledger) NativeBalance(addr common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.native[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// MintNative credits native currency to addr; used to seed accounts.
func (l *Ledger) MintNative(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setNative(addr, new(big.Int).Add(l.nativeOf(addr), amount))
	return nil
}

// TransferNative moves native currency between accounts.
func (l *Ledger) TransferNative(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	fromBal := l.nativeOf(from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: native balance of %s is %s, need %s",
			ErrInsufficientBalance, from.Hex(), fromBal, amount)
	}
	l.setNative(from, new(big.Int).Sub(fromBal, amount))
	l.setNative(to, new(big.Int).Add(l.nativeOf(to), amount))
	return nil
}

// nativeOf reads a native balance without copying; callers must hold l.mu.
func (l *Ledger) nativeOf(addr common.Address) *big.Int {
	if b, ok := l.native[addr]; ok {
		return b
	}
	return new(big.Int)
}

func (l *Ledger) setNative(addr common.Address, v *big.Int) {
	old, existed := l.native[addr]
	l.journal.Append(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if existed {
			l.native[addr] = old
		} else {
			delete(l.native, addr)
		}
	})
	l.native[addr] = v
}

func deriveAddress(kind string, salt []byte, id uint64) common.Address {
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], id)
	return common.BytesToAddress(crypto.Keccak256([]byte(kind), salt, idBytes[:]))
}
