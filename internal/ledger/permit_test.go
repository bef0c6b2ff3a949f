package ledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestPermitSetsAllowanceAndConsumesNonce(t *testing.T) {
	l, _, _ := newTestLedger(t)
	tok := l.NewToken("Alpha Token", "ALPHA")

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)

	value := big.NewInt(12345)
	deadline := uint64(2000)
	digest := PermitDigest(tok.DomainSeparator(), owner, addrB, value, tok.Nonces(owner), deadline)
	v, r, s, err := SignPermit(key, digest)
	require.NoError(t, err)

	require.NoError(t, tok.Permit(owner, addrB, value, deadline, v, r, s))
	require.Equal(t, value, tok.Allowance(owner, addrB))
	require.Equal(t, uint64(1), tok.Nonces(owner))
}

func TestPermitRejectsReplay(t *testing.T) {
	l, _, _ := newTestLedger(t)
	tok := l.NewToken("Alpha Token", "ALPHA")

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)

	value := big.NewInt(1)
	deadline := uint64(2000)
	digest := PermitDigest(tok.DomainSeparator(), owner, addrB, value, 0, deadline)
	v, r, s, err := SignPermit(key, digest)
	require.NoError(t, err)

	require.NoError(t, tok.Permit(owner, addrB, value, deadline, v, r, s))

	// the nonce moved on, so the same signature no longer verifies
	err = tok.Permit(owner, addrB, value, deadline, v, r, s)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestPermitDeadline(t *testing.T) {
	l, _, clk := newTestLedger(t)
	tok := l.NewToken("Alpha Token", "ALPHA")

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)

	value := big.NewInt(5)
	deadline := clk.Now()
	digest := PermitDigest(tok.DomainSeparator(), owner, addrB, value, 0, deadline)
	v, r, s, err := SignPermit(key, digest)
	require.NoError(t, err)

	// a deadline equal to the current time is still valid
	require.NoError(t, tok.Permit(owner, addrB, value, deadline, v, r, s))

	clk.Advance(1)
	digest = PermitDigest(tok.DomainSeparator(), owner, addrB, value, 1, deadline)
	v, r, s, err = SignPermit(key, digest)
	require.NoError(t, err)
	err = tok.Permit(owner, addrB, value, deadline, v, r, s)
	require.ErrorIs(t, err, ErrPermitExpired)
}

func TestPermitRejectsWrongSigner(t *testing.T) {
	l, _, _ := newTestLedger(t)
	tok := l.NewToken("Alpha Token", "ALPHA")

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)

	value := big.NewInt(5)
	deadline := uint64(2000)
	digest := PermitDigest(tok.DomainSeparator(), owner, addrB, value, 0, deadline)
	v, r, s, err := SignPermit(other, digest)
	require.NoError(t, err)

	err = tok.Permit(owner, addrB, value, deadline, v, r, s)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestDomainSeparatorsDifferPerToken(t *testing.T) {
	l, _, _ := newTestLedger(t)
	a := l.NewToken("Alpha Token", "ALPHA")
	b := l.NewToken("Beta Token", "BETA")
	require.NotEqual(t, a.DomainSeparator(), b.DomainSeparator())
}
