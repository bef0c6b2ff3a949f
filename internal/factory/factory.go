package factory

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"flashPool/internal/events"
	"flashPool/internal/ledger"
	"flashPool/internal/model"
	"flashPool/internal/pool"
)

var (
	// ErrIdenticalTokens is returned when a pair is requested over one token.
	ErrIdenticalTokens = errors.New("identical tokens")
	// ErrPoolExists is returned when a pool for the key already exists.
	ErrPoolExists = errors.New("pool exists")
)

// Factory is the deterministic pool registry: single-token flash pools
// keyed by token address, pair pools keyed by the sorted token pair. Pools
// are created lazily and persist for the lifetime of the system.
type Factory struct {
	mu       sync.RWMutex
	ledger   *ledger.Ledger
	recorder events.Recorder
	pairs    map[pairKey]*pool.Pair
	flash    map[common.Address]*pool.FlashPool
}

type pairKey struct {
	token0, token1 common.Address
}

func New(l *ledger.Ledger, recorder events.Recorder) *Factory {
	return &Factory{
		ledger:   l,
		recorder: recorder,
		pairs:    make(map[pairKey]*pool.Pair),
		flash:    make(map[common.Address]*pool.FlashPool),
	}
}

// SortTokens puts a token pair into canonical order.
func SortTokens(tokenA, tokenB common.Address) (common.Address, common.Address, error) {
	if tokenA == tokenB {
		return common.Address{}, common.Address{}, fmt.Errorf("%w: %s", ErrIdenticalTokens, tokenA.Hex())
	}
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		return tokenA, tokenB, nil
	}
	return tokenB, tokenA, nil
}

// CreatePair registers a new pair pool for the sorted token pair.
func (f *Factory) CreatePair(tokenA, tokenB common.Address) (*pool.Pair, error) {
	addr0, addr1, err := SortTokens(tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	token0, err := f.ledger.MustToken(addr0)
	if err != nil {
		return nil, err
	}
	token1, err := f.ledger.MustToken(addr1)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := pairKey{token0: addr0, token1: addr1}
	if _, ok := f.pairs[key]; ok {
		return nil, fmt.Errorf("%w: pair %s/%s", ErrPoolExists, addr0.Hex(), addr1.Hex())
	}

	shares := f.ledger.NewToken("FlashPool Pair", "FLP-V1")
	poolAddr := deriveAddress("flashPool/pair", addr0, addr1)
	p := pool.NewPair(poolAddr, token0, token1, shares, f.ledger.Journal(), f.ledger.Clock(), f.recorder)

	f.pairs[key] = p
	f.ledger.Journal().Append(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.pairs, key)
	})
	return p, nil
}

// Pair looks up the pair pool for a token pair, in either order.
func (f *Factory) Pair(tokenA, tokenB common.Address) (*pool.Pair, bool) {
	addr0, addr1, err := SortTokens(tokenA, tokenB)
	if err != nil {
		return nil, false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.pairs[pairKey{token0: addr0, token1: addr1}]
	return p, ok
}

// CreateFlashPool registers a new single-token flash pool.
func (f *Factory) CreateFlashPool(token common.Address) (*pool.FlashPool, error) {
	tok, err := f.ledger.MustToken(token)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.flash[token]; ok {
		return nil, fmt.Errorf("%w: flash pool %s", ErrPoolExists, token.Hex())
	}

	shares := f.ledger.NewToken("FlashPool "+tok.Symbol(), "FLP-"+tok.Symbol())
	poolAddr := deriveAddress("flashPool/flash", token, common.Address{})
	p := pool.NewFlashPool(poolAddr, tok, shares, f.ledger.Journal(), f.ledger.Clock(), f.recorder)

	f.flash[token] = p
	f.ledger.Journal().Append(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.flash, token)
	})
	return p, nil
}

// FlashPool looks up the flash pool for a token.
func (f *Factory) FlashPool(token common.Address) (*pool.FlashPool, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.flash[token]
	return p, ok
}

// Pools returns metadata for every registered pool, for storage upserts.
func (f *Factory) Pools() []model.PoolInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()

	infos := make([]model.PoolInfo, 0, len(f.pairs)+len(f.flash))
	for _, p := range f.pairs {
		infos = append(infos, model.PoolInfo{
			Address: p.Address().Hex(),
			Kind:    model.PoolKindPair,
			Token0:  p.Token0().Address().Hex(),
			Token1:  p.Token1().Address().Hex(),
			Shares:  p.Shares().Address().Hex(),
		})
	}
	for _, p := range f.flash {
		infos = append(infos, model.PoolInfo{
			Address: p.Address().Hex(),
			Kind:    model.PoolKindFlash,
			Token0:  p.Token().Address().Hex(),
			Shares:  p.Shares().Address().Hex(),
		})
	}
	return infos
}

func deriveAddress(kind string, addr0, addr1 common.Address) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(kind), addr0.Bytes(), addr1.Bytes()))
}
