package factory

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"flashPool/internal/clock"
	"flashPool/internal/events"
	"flashPool/internal/ledger"
	"flashPool/internal/model"
	"flashPool/internal/state"
)

func newTestFactory(t *testing.T) (*Factory, *ledger.Ledger, *state.Journal) {
	t.Helper()
	j := state.NewJournal()
	l := ledger.New(j, clock.NewManual(1000), nil)
	return New(l, events.NewMemory()), l, j
}

func TestSortTokens(t *testing.T) {
	_, l, _ := newTestFactory(t)
	a := l.NewToken("Alpha Token", "ALPHA").Address()
	b := l.NewToken("Beta Token", "BETA").Address()

	t0, t1, err := SortTokens(a, b)
	require.NoError(t, err)
	require.True(t, bytes.Compare(t0.Bytes(), t1.Bytes()) < 0)

	s0, s1, err := SortTokens(b, a)
	require.NoError(t, err)
	require.Equal(t, t0, s0)
	require.Equal(t, t1, s1)

	_, _, err = SortTokens(a, a)
	require.ErrorIs(t, err, ErrIdenticalTokens)
}

func TestCreatePairAndLookup(t *testing.T) {
	f, l, _ := newTestFactory(t)
	a := l.NewToken("Alpha Token", "ALPHA").Address()
	b := l.NewToken("Beta Token", "BETA").Address()

	p, err := f.CreatePair(a, b)
	require.NoError(t, err)

	// either order resolves to the same pool
	got, ok := f.Pair(a, b)
	require.True(t, ok)
	require.Same(t, p, got)
	got, ok = f.Pair(b, a)
	require.True(t, ok)
	require.Same(t, p, got)

	_, err = f.CreatePair(b, a)
	require.ErrorIs(t, err, ErrPoolExists)
}

func TestCreatePairUnknownToken(t *testing.T) {
	f, l, _ := newTestFactory(t)
	a := l.NewToken("Alpha Token", "ALPHA").Address()
	unknown := deriveAddress("test/unknown", a, a)

	_, err := f.CreatePair(a, unknown)
	require.ErrorIs(t, err, ledger.ErrUnknownToken)
}

func TestCreateFlashPool(t *testing.T) {
	f, l, _ := newTestFactory(t)
	a := l.NewToken("Alpha Token", "ALPHA")

	p, err := f.CreateFlashPool(a.Address())
	require.NoError(t, err)
	require.Equal(t, "FLP-ALPHA", p.Shares().Symbol())

	got, ok := f.FlashPool(a.Address())
	require.True(t, ok)
	require.Same(t, p, got)

	_, err = f.CreateFlashPool(a.Address())
	require.ErrorIs(t, err, ErrPoolExists)
}

func TestPoolRegistrationRevertsWithJournal(t *testing.T) {
	f, l, j := newTestFactory(t)
	a := l.NewToken("Alpha Token", "ALPHA").Address()
	b := l.NewToken("Beta Token", "BETA").Address()

	boom := errors.New("boom")
	err := j.Run(func() error {
		if _, err := f.CreatePair(a, b); err != nil {
			return err
		}
		if _, err := f.CreateFlashPool(a); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, ok := f.Pair(a, b)
	require.False(t, ok)
	_, ok = f.FlashPool(a)
	require.False(t, ok)
}

func TestPoolsMetadata(t *testing.T) {
	f, l, _ := newTestFactory(t)
	a := l.NewToken("Alpha Token", "ALPHA").Address()
	b := l.NewToken("Beta Token", "BETA").Address()

	pair, err := f.CreatePair(a, b)
	require.NoError(t, err)
	flash, err := f.CreateFlashPool(a)
	require.NoError(t, err)

	infos := f.Pools()
	require.Len(t, infos, 2)

	byAddr := make(map[string]model.PoolInfo, len(infos))
	for _, info := range infos {
		byAddr[info.Address] = info
	}

	pairInfo := byAddr[pair.Address().Hex()]
	require.Equal(t, model.PoolKindPair, pairInfo.Kind)
	require.NotEmpty(t, pairInfo.Token1)

	flashInfo := byAddr[flash.Address().Hex()]
	require.Equal(t, model.PoolKindFlash, flashInfo.Kind)
	require.Empty(t, flashInfo.Token1)
}
