package scenario

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"flashPool/internal/clock"
	"flashPool/internal/events"
	"flashPool/internal/factory"
	"flashPool/internal/ledger"
	"flashPool/internal/model"
	"flashPool/internal/router"
	"flashPool/internal/state"
	"flashPool/internal/storage"
)

// RunConfig holds runtime settings for the scenario runner.
type RunConfig struct {
	Seed   string
	Rounds int
}

// PoolSink persists pool metadata alongside records. Optional.
type PoolSink interface {
	UpsertPools(ctx context.Context, pools []model.PoolInfo) error
	PutRecordBatch(ctx context.Context, records []model.Record) error
}

// Runner drives a deterministic trading scenario against an in-memory
// deployment and flushes the emitted records to storage after each round.
type Runner struct {
	cfg     RunConfig
	storage storage.Storage
	sink    PoolSink
	logger  *zap.Logger

	clk      *clock.Manual
	journal  *state.Journal
	ledger   *ledger.Ledger
	factory  *factory.Factory
	router   *router.Router
	recorder *events.Memory

	tokenA  *ledger.Token
	tokenB  *ledger.Token
	wnative *ledger.WNative

	alice    wallet
	bob      wallet
	borrower *router.FlashBorrower
}

type wallet struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func newWallet() (wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return wallet{}, fmt.Errorf("generate key: %w", err)
	}
	return wallet{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// NewRunner builds a Runner and deploys the in-memory environment:
// ledger, two tokens, wrapped native, factory, and router.
func NewRunner(cfg RunConfig, storageSink storage.Storage, sink PoolSink, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if storageSink == nil {
		return nil, fmt.Errorf("storage is nil")
	}
	if cfg.Rounds <= 0 {
		return nil, fmt.Errorf("rounds must be greater than zero")
	}

	clk := clock.NewManual(1_700_000_000)
	journal := state.NewJournal()
	recorder := events.NewMemory()
	l := ledger.New(journal, clk, nil)

	r := &Runner{
		cfg:      cfg,
		storage:  storageSink,
		sink:     sink,
		logger:   logger,
		clk:      clk,
		journal:  journal,
		ledger:   l,
		recorder: recorder,
	}

	r.tokenA = l.NewToken("Alpha Token", "ALPHA")
	r.tokenB = l.NewToken("Beta Token", "BETA")
	r.wnative = l.NewWNative("Wrapped Native", "WNAT")

	r.factory = factory.New(l, recorder)
	r.router = router.New(l, r.factory, r.wnative, logger.Named("router"))
	r.borrower = router.NewFlashBorrower(l, r.router, cfg.Seed)

	var err error
	if r.alice, err = newWallet(); err != nil {
		return nil, err
	}
	if r.bob, err = newWallet(); err != nil {
		return nil, err
	}
	return r, nil
}

// Run executes the scenario rounds and flushes records after each one.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.seed(); err != nil {
		return fmt.Errorf("seed balances: %w", err)
	}

	for round := 1; round <= r.cfg.Rounds; round++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("round start", zap.Int("round", round))

		if err := r.provideLiquidity(); err != nil {
			return fmt.Errorf("round %d: provide liquidity: %w", round, err)
		}
		r.clk.Advance(13)
		if err := r.trade(); err != nil {
			return fmt.Errorf("round %d: trade: %w", round, err)
		}
		r.clk.Advance(13)
		if err := r.flashLoan(); err != nil {
			return fmt.Errorf("round %d: flash loan: %w", round, err)
		}
		r.clk.Advance(13)
		if err := r.withdraw(); err != nil {
			return fmt.Errorf("round %d: withdraw: %w", round, err)
		}
		r.clk.Advance(13)

		if err := r.flush(ctx); err != nil {
			return fmt.Errorf("round %d: flush: %w", round, err)
		}
		r.logger.Info("round done", zap.Int("round", round))
	}
	return nil
}

func (r *Runner) seed() error {
	for _, w := range []wallet{r.alice, r.bob} {
		if err := r.tokenA.Mint(w.addr, units(1_000_000)); err != nil {
			return err
		}
		if err := r.tokenB.Mint(w.addr, units(1_000_000)); err != nil {
			return err
		}
		if err := r.ledger.MintNative(w.addr, units(1_000)); err != nil {
			return err
		}
		for _, tok := range []*ledger.Token{r.tokenA, r.tokenB} {
			if err := tok.Approve(w.addr, r.router.Address(), ledger.MaxUint256); err != nil {
				return err
			}
		}
	}
	// the borrower pre-funds premiums from its own balance
	if err := r.tokenA.Mint(r.borrower.Address(), units(100)); err != nil {
		return err
	}
	return nil
}

func (r *Runner) provideLiquidity() error {
	deadline := r.clk.Now() + 60

	_, _, liquidity, err := r.router.AddLiquidity(
		r.alice.addr, r.tokenA.Address(), r.tokenB.Address(),
		units(10_000), units(40_000), big.NewInt(0), big.NewInt(0),
		r.alice.addr, deadline,
	)
	if err != nil {
		return err
	}
	r.logger.Debug("liquidity added", zap.String("liquidity", liquidity.String()))

	_, _, _, err = r.router.AddLiquidityNative(
		r.alice.addr, r.tokenA.Address(),
		units(100), big.NewInt(0), big.NewInt(0), units(10),
		r.alice.addr, deadline,
	)
	return err
}

func (r *Runner) trade() error {
	deadline := r.clk.Now() + 60
	path := []common.Address{r.tokenA.Address(), r.tokenB.Address()}

	amounts, err := r.router.SwapExactTokensForTokens(
		r.bob.addr, units(100), big.NewInt(0), path, r.bob.addr, deadline,
	)
	if err != nil {
		return err
	}
	r.logger.Debug("swap",
		zap.String("in", amounts[0].String()),
		zap.String("out", amounts[1].String()),
	)

	_, err = r.router.SwapTokensForExactTokens(
		r.bob.addr, units(50), units(400), []common.Address{r.tokenB.Address(), r.tokenA.Address()}, r.bob.addr, deadline,
	)
	return err
}

func (r *Runner) flashLoan() error {
	p, ok := r.factory.FlashPool(r.tokenA.Address())
	if !ok {
		var err error
		p, err = r.factory.CreateFlashPool(r.tokenA.Address())
		if err != nil {
			return err
		}
		if err := r.tokenA.Transfer(r.alice.addr, p.Address(), units(10_000)); err != nil {
			return err
		}
		if _, err := p.Mint(r.alice.addr, r.alice.addr); err != nil {
			return err
		}
	}

	amount, err := r.router.MaxFlashLoan(r.tokenA.Address())
	if err != nil {
		return err
	}
	// borrow half the capacity; the premium comes out of the borrower's
	// pre-funded balance
	amount.Div(amount, big.NewInt(2))
	deadline := r.clk.Now() + 60
	return r.borrower.Borrow(r.tokenA.Address(), amount, nil, deadline)
}

func (r *Runner) withdraw() error {
	pair, ok := r.factory.Pair(r.tokenA.Address(), r.tokenB.Address())
	if !ok {
		return fmt.Errorf("%w: pair %s/%s", router.ErrPoolNotFound, r.tokenA.Symbol(), r.tokenB.Symbol())
	}
	shares := pair.Shares()
	balance := shares.BalanceOf(r.alice.addr)
	if balance.Sign() == 0 {
		return nil
	}
	liquidity := new(big.Int).Div(balance, big.NewInt(10))
	if liquidity.Sign() == 0 {
		return nil
	}

	deadline := r.clk.Now() + 60
	digest := ledger.PermitDigest(
		shares.DomainSeparator(), r.alice.addr, r.router.Address(),
		liquidity, shares.Nonces(r.alice.addr), deadline,
	)
	v, sigR, sigS, err := ledger.SignPermit(r.alice.key, digest)
	if err != nil {
		return fmt.Errorf("sign permit: %w", err)
	}

	_, _, err = r.router.RemoveLiquidityWithPermit(
		r.alice.addr, r.tokenA.Address(), r.tokenB.Address(),
		liquidity, big.NewInt(0), big.NewInt(0),
		r.alice.addr, deadline, false, v, sigR, sigS,
	)
	return err
}

// flush drains the recorder into storage and refreshes pool metadata in the
// optional database sink.
func (r *Runner) flush(ctx context.Context) error {
	records := r.recorder.Drain()
	if err := r.storage.PutRecordBatch(records); err != nil {
		return err
	}
	if r.sink != nil {
		if err := r.sink.UpsertPools(ctx, r.factory.Pools()); err != nil {
			return err
		}
		if err := r.sink.PutRecordBatch(ctx, records); err != nil {
			return err
		}
	}
	r.logger.Info("records flushed", zap.Int("count", len(records)))
	return nil
}

// units scales a whole-token amount to 18 decimals.
func units(n int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(n), scale)
}
