package wire

import (
	"io"

	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/util/daghash"
)

// readHash reads a 32-byte hash from r into hash.
func readHash(r io.Reader, hash *daghash.Hash) error {
	_, err := io.ReadFull(r, hash[:])
	return errors.WithStack(err)
}

// writeHash writes the 32 bytes of hash to w.
func writeHash(w io.Writer, hash *daghash.Hash) error {
	_, err := w.Write(hash[:])
	return errors.WithStack(err)
}
