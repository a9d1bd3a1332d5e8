package blockdag

import (
	"github.com/xdagger/xdagd/util/daghash"
	"github.com/xdagger/xdagd/util/uint256"
)

// blockDifficulty derives the intrinsic difficulty of a block from its
// hash: floor(2^256 / lowBits128(hash)), clamped to at least 1. A hash
// with a smaller low-128-bit region is therefore worth more.
func blockDifficulty(hash *daghash.Hash) *uint256.Uint256 {
	lowBits, err := uint256.FromBytes(hash[daghash.HashSize/2:])
	if err != nil {
		// A 16-byte slice always fits; this cannot happen.
		panic(err)
	}
	difficulty := uint256.Zero().DivPow256(lowBits)
	if difficulty.IsZero() {
		return uint256.One()
	}
	return difficulty
}
