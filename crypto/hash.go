// Package crypto provides the hash primitives and secp256k1 signing used
// by the block model and consensus engine.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"

	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"

	"github.com/xdagger/xdagd/util/daghash"
)

// Sha256 calculates the hash sha256(b).
func Sha256(buf []byte) []byte {
	hash := sha256.Sum256(buf)
	return hash[:]
}

// DoubleSha256 calculates sha256(sha256(b)) and returns the resulting bytes
// as a daghash.Hash. Block hashes are derived this way.
func DoubleSha256(buf []byte) *daghash.Hash {
	first := sha256.Sum256(buf)
	second := daghash.Hash(sha256.Sum256(first[:]))
	return &second
}

// Keccak256 calculates the Keccak-256 hash of b.
func Keccak256(buf []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(buf)
	return h.Sum(nil)
}

// Hash160 calculates the hash ripemd160(sha256(b)). Addresses and public
// key commitments use this digest.
func Hash160(buf []byte) []byte {
	h := ripemd160.New()
	h.Write(Sha256(buf))
	return h.Sum(nil)
}

// HmacSha512 computes HMAC-SHA-512 of input keyed with key.
func HmacSha512(key, input []byte) []byte {
	mac := hmac.New(sha512.New, key)
	mac.Write(input)
	return mac.Sum(nil)
}
