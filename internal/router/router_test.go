package router

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"flashPool/internal/clock"
	"flashPool/internal/events"
	"flashPool/internal/factory"
	"flashPool/internal/ledger"
	"flashPool/internal/state"
)

type routerFixture struct {
	journal *state.Journal
	clk     *clock.Manual
	ledger  *ledger.Ledger
	factory *factory.Factory
	router  *Router

	tokenA  *ledger.Token
	tokenB  *ledger.Token
	wnative *ledger.WNative

	aliceKey *ecdsa.PrivateKey
	alice    common.Address
	bob      common.Address
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	j := state.NewJournal()
	clk := clock.NewManual(1000)
	l := ledger.New(j, clk, nil)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	f := &routerFixture{
		journal:  j,
		clk:      clk,
		ledger:   l,
		tokenA:   l.NewToken("Alpha Token", "ALPHA"),
		tokenB:   l.NewToken("Beta Token", "BETA"),
		wnative:  l.NewWNative("Wrapped Native", "WNAT"),
		aliceKey: key,
		alice:    crypto.PubkeyToAddress(key.PublicKey),
		bob:      common.HexToAddress("0x00000000000000000000000000000000000000b2"),
	}
	f.factory = factory.New(l, events.NewMemory())
	f.router = New(l, f.factory, f.wnative, nil)

	for _, addr := range []common.Address{f.alice, f.bob} {
		require.NoError(t, f.tokenA.Mint(addr, e18(1000)))
		require.NoError(t, f.tokenB.Mint(addr, e18(1000)))
		require.NoError(t, l.MintNative(addr, e18(1000)))
		require.NoError(t, f.tokenA.Approve(addr, f.router.Address(), ledger.MaxUint256))
		require.NoError(t, f.tokenB.Approve(addr, f.router.Address(), ledger.MaxUint256))
		require.NoError(t, f.wnative.Approve(addr, f.router.Address(), ledger.MaxUint256))
	}
	return f
}

func e18(n int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(n), scale)
}

func (f *routerFixture) deadline() uint64 { return f.clk.Now() + 60 }

// requireRouterEmpty asserts the router retained no balances of any kind.
func (f *routerFixture) requireRouterEmpty(t *testing.T) {
	t.Helper()
	addr := f.router.Address()
	require.Equal(t, 0, f.tokenA.BalanceOf(addr).Sign(), "router retains ALPHA")
	require.Equal(t, 0, f.tokenB.BalanceOf(addr).Sign(), "router retains BETA")
	require.Equal(t, 0, f.wnative.BalanceOf(addr).Sign(), "router retains WNAT")
	require.Equal(t, 0, f.ledger.NativeBalance(addr).Sign(), "router retains native")
}

func (f *routerFixture) addLiquidity(t *testing.T, amountA, amountB *big.Int) {
	t.Helper()
	_, _, _, err := f.router.AddLiquidity(
		f.alice, f.tokenA.Address(), f.tokenB.Address(),
		amountA, amountB, big.NewInt(0), big.NewInt(0),
		f.alice, f.deadline(),
	)
	require.NoError(t, err)
}

func TestAddLiquidityCreatesPoolLazily(t *testing.T) {
	f := newRouterFixture(t)

	_, ok := f.factory.Pair(f.tokenA.Address(), f.tokenB.Address())
	require.False(t, ok)

	amountA, amountB, liquidity, err := f.router.AddLiquidity(
		f.alice, f.tokenA.Address(), f.tokenB.Address(),
		e18(1), e18(4), big.NewInt(0), big.NewInt(0),
		f.alice, f.deadline(),
	)
	require.NoError(t, err)
	require.Equal(t, e18(1), amountA)
	require.Equal(t, e18(4), amountB)
	require.Equal(t, new(big.Int).Sub(e18(2), big.NewInt(1000)), liquidity)

	_, ok = f.factory.Pair(f.tokenA.Address(), f.tokenB.Address())
	require.True(t, ok)
	f.requireRouterEmpty(t)
}

func TestAddLiquidityMatchesPoolRatio(t *testing.T) {
	f := newRouterFixture(t)
	f.addLiquidity(t, e18(10), e18(40))

	// B-desired is over-supplied relative to the 1:4 pool price
	amountA, amountB, _, err := f.router.AddLiquidity(
		f.alice, f.tokenA.Address(), f.tokenB.Address(),
		e18(1), e18(8), big.NewInt(0), big.NewInt(0),
		f.alice, f.deadline(),
	)
	require.NoError(t, err)
	require.Equal(t, e18(1), amountA)
	require.Equal(t, e18(4), amountB)
	f.requireRouterEmpty(t)
}

func TestAddLiquidityRespectsMinBounds(t *testing.T) {
	f := newRouterFixture(t)
	f.addLiquidity(t, e18(10), e18(40))

	_, _, _, err := f.router.AddLiquidity(
		f.alice, f.tokenA.Address(), f.tokenB.Address(),
		e18(1), e18(8), big.NewInt(0), e18(5),
		f.alice, f.deadline(),
	)
	require.ErrorIs(t, err, ErrInsufficientBAmount)
}

func TestDeadlineBoundary(t *testing.T) {
	f := newRouterFixture(t)

	// a deadline equal to now is still valid
	_, _, _, err := f.router.AddLiquidity(
		f.alice, f.tokenA.Address(), f.tokenB.Address(),
		e18(1), e18(4), big.NewInt(0), big.NewInt(0),
		f.alice, f.clk.Now(),
	)
	require.NoError(t, err)

	_, _, _, err = f.router.AddLiquidity(
		f.alice, f.tokenA.Address(), f.tokenB.Address(),
		e18(1), e18(4), big.NewInt(0), big.NewInt(0),
		f.alice, f.clk.Now()-1,
	)
	require.ErrorIs(t, err, ErrExpired)
}

func TestRemoveLiquidity(t *testing.T) {
	f := newRouterFixture(t)
	f.addLiquidity(t, e18(1), e18(4))

	pair, _ := f.factory.Pair(f.tokenA.Address(), f.tokenB.Address())
	liquidity := pair.Shares().BalanceOf(f.alice)
	require.NoError(t, pair.Shares().Approve(f.alice, f.router.Address(), liquidity))

	amountA, amountB, err := f.router.RemoveLiquidity(
		f.alice, f.tokenA.Address(), f.tokenB.Address(),
		liquidity, big.NewInt(0), big.NewInt(0),
		f.alice, f.deadline(),
	)
	require.NoError(t, err)
	require.Equal(t, new(big.Int).Sub(e18(1), big.NewInt(500)), amountA)
	require.Equal(t, new(big.Int).Sub(e18(4), big.NewInt(2000)), amountB)
	f.requireRouterEmpty(t)
}

func TestRemoveLiquidityWithPermit(t *testing.T) {
	f := newRouterFixture(t)
	f.addLiquidity(t, e18(1), e18(4))

	pair, _ := f.factory.Pair(f.tokenA.Address(), f.tokenB.Address())
	shares := pair.Shares()
	liquidity := shares.BalanceOf(f.alice)
	deadline := f.deadline()

	digest := ledger.PermitDigest(
		shares.DomainSeparator(), f.alice, f.router.Address(),
		liquidity, shares.Nonces(f.alice), deadline,
	)
	v, r, s, err := ledger.SignPermit(f.aliceKey, digest)
	require.NoError(t, err)

	amountA, amountB, err := f.router.RemoveLiquidityWithPermit(
		f.alice, f.tokenA.Address(), f.tokenB.Address(),
		liquidity, big.NewInt(0), big.NewInt(0),
		f.alice, deadline, false, v, r, s,
	)
	require.NoError(t, err)
	require.True(t, amountA.Sign() > 0)
	require.True(t, amountB.Sign() > 0)
	f.requireRouterEmpty(t)
}

func TestRemoveLiquidityWithPermitBadSignature(t *testing.T) {
	f := newRouterFixture(t)
	f.addLiquidity(t, e18(1), e18(4))

	pair, _ := f.factory.Pair(f.tokenA.Address(), f.tokenB.Address())
	liquidity := pair.Shares().BalanceOf(f.alice)
	balanceBefore := f.tokenA.BalanceOf(f.alice)

	_, _, err := f.router.RemoveLiquidityWithPermit(
		f.alice, f.tokenA.Address(), f.tokenB.Address(),
		liquidity, big.NewInt(0), big.NewInt(0),
		f.alice, f.deadline(), false, 27, common.Hash{}, common.Hash{},
	)
	require.ErrorIs(t, err, ledger.ErrInvalidSignature)
	require.Equal(t, balanceBefore, f.tokenA.BalanceOf(f.alice))
}

func TestAddLiquidityNativeRefundsDust(t *testing.T) {
	f := newRouterFixture(t)

	// bootstrap the token/native pool at 10:1
	_, _, _, err := f.router.AddLiquidityNative(
		f.alice, f.tokenA.Address(),
		e18(10), big.NewInt(0), big.NewInt(0), e18(1),
		f.alice, f.deadline(),
	)
	require.NoError(t, err)

	nativeBefore := f.ledger.NativeBalance(f.alice)

	// offer twice the native the ratio needs; the excess comes back
	amountToken, amountNative, _, err := f.router.AddLiquidityNative(
		f.alice, f.tokenA.Address(),
		e18(10), big.NewInt(0), big.NewInt(0), e18(2),
		f.alice, f.deadline(),
	)
	require.NoError(t, err)
	require.Equal(t, e18(10), amountToken)
	require.Equal(t, e18(1), amountNative)

	spent := new(big.Int).Sub(nativeBefore, f.ledger.NativeBalance(f.alice))
	require.Equal(t, e18(1), spent)
	f.requireRouterEmpty(t)
}

func TestRemoveLiquidityNative(t *testing.T) {
	f := newRouterFixture(t)

	_, _, liquidity, err := f.router.AddLiquidityNative(
		f.alice, f.tokenA.Address(),
		e18(10), big.NewInt(0), big.NewInt(0), e18(1),
		f.alice, f.deadline(),
	)
	require.NoError(t, err)

	pair, ok := f.factory.Pair(f.tokenA.Address(), f.wnative.Address())
	require.True(t, ok)
	require.NoError(t, pair.Shares().Approve(f.alice, f.router.Address(), liquidity))

	nativeBefore := f.ledger.NativeBalance(f.alice)
	amountToken, amountNative, err := f.router.RemoveLiquidityNative(
		f.alice, f.tokenA.Address(),
		liquidity, big.NewInt(0), big.NewInt(0),
		f.alice, f.deadline(),
	)
	require.NoError(t, err)
	require.True(t, amountToken.Sign() > 0)

	gained := new(big.Int).Sub(f.ledger.NativeBalance(f.alice), nativeBefore)
	require.Equal(t, amountNative, gained)
	f.requireRouterEmpty(t)
}
