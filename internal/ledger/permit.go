package ledger

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// permitTypeHash binds signatures to the permit tuple layout.
var permitTypeHash = crypto.Keccak256Hash(
	[]byte("Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"),
)

// Verifier checks that a permit digest was signed by owner. It isolates the
// signature scheme from the nonce and replay logic of Token.Permit.
type Verifier interface {
	Verify(owner common.Address, digest common.Hash, v byte, r, s common.Hash) bool
}

// Secp256k1Verifier recovers the signer address from a compact (v, r, s)
// signature and compares it with the claimed owner.
type Secp256k1Verifier struct{}

func (Secp256k1Verifier) Verify(owner common.Address, digest common.Hash, v byte, r, s common.Hash) bool {
	if v != 27 && v != 28 {
		return false
	}
	sig := make([]byte, 65)
	copy(sig[:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = v - 27

	pub, err := crypto.Ecrecover(digest[:], sig)
	if err != nil {
		return false
	}
	var recovered common.Address
	copy(recovered[:], crypto.Keccak256(pub[1:])[12:])
	return recovered == owner
}

// domainSeparator derives a token-specific signing domain so a permit for
// one token can never replay against another.
func domainSeparator(name, symbol string, addr common.Address) common.Hash {
	return crypto.Keccak256Hash([]byte(name), []byte(symbol), addr.Bytes())
}

// PermitDigest computes the signed digest for a permit tuple: the type hash
// and the ABI-style 32-byte words of the tuple, wrapped with the 0x1901
// prefix and the token domain.
func PermitDigest(domain common.Hash, owner, spender common.Address, value *big.Int, nonce, deadline uint64) common.Hash {
	payload := make([]byte, 0, 6*32)
	payload = append(payload, permitTypeHash.Bytes()...)
	payload = append(payload, common.LeftPadBytes(owner.Bytes(), 32)...)
	payload = append(payload, common.LeftPadBytes(spender.Bytes(), 32)...)
	payload = append(payload, common.LeftPadBytes(value.Bytes(), 32)...)
	payload = append(payload, common.LeftPadBytes(new(big.Int).SetUint64(nonce).Bytes(), 32)...)
	payload = append(payload, common.LeftPadBytes(new(big.Int).SetUint64(deadline).Bytes(), 32)...)
	structHash := crypto.Keccak256(payload)
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domain.Bytes(), structHash)
}

// SignPermit signs a permit digest with a secp256k1 key, returning the
// compact signature components.
func SignPermit(key *ecdsa.PrivateKey, digest common.Hash) (v byte, r, s common.Hash, err error) {
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return 0, common.Hash{}, common.Hash{}, fmt.Errorf("sign permit digest: %w", err)
	}
	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])
	return sig[64] + 27, r, s, nil
}
