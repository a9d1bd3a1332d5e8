// Package random provides cryptographically random values for nonces and
// node identifiers.
package random

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// randomUint64 returns a cryptographically random uint64 value. This
// unexported version takes a reader primarily to ensure the error paths
// can be properly tested by passing a fake reader in the tests.
func randomUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	_, err := io.ReadFull(r, b[:])
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// Uint64 returns a cryptographically random uint64 value.
func Uint64() (uint64, error) {
	return randomUint64(rand.Reader)
}

// Bytes fills the given slice with cryptographically random bytes.
func Bytes(b []byte) error {
	_, err := io.ReadFull(rand.Reader, b)
	return errors.WithStack(err)
}
