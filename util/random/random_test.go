package random

import (
	"io"
	"testing"

	"github.com/pkg/errors"
)

// errReader fails after serving part of the requested bytes, to drive
// the short-read path.
type errReader struct {
	serve int
	err   error
}

func (r *errReader) Read(p []byte) (int, error) {
	n := r.serve
	if n > len(p) {
		n = len(p)
	}
	r.serve -= n
	return n, r.err
}

// TestUint64UsesAllBytes feeds a fixed 8-byte pattern and checks the
// whole pattern lands in the result: a nonce generator that drops bytes
// would make ping nonces and node ids collide far too often.
func TestUint64UsesAllBytes(t *testing.T) {
	fixed := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}
	got, err := randomUint64(newByteReader(fixed))
	if err != nil {
		t.Fatalf("randomUint64 unexpectedly failed: %s", err)
	}
	const want = uint64(0x0123456789abcdef)
	if got != want {
		t.Fatalf("randomUint64 = %#016x, want %#016x", got, want)
	}
}

// TestUint64Distinct draws a handful of values from the real RNG and
// requires them pairwise distinct; 64-bit collisions across a few draws
// only happen when the generator is broken.
func TestUint64Distinct(t *testing.T) {
	const draws = 16
	seen := make(map[uint64]bool, draws)
	for i := 0; i < draws; i++ {
		nonce, err := Uint64()
		if err != nil {
			t.Fatalf("Uint64 draw %d unexpectedly failed: %s", i, err)
		}
		if seen[nonce] {
			t.Fatalf("Uint64 repeated %#016x within %d draws", nonce, draws)
		}
		seen[nonce] = true
	}
}

// TestUint64ShortRead ensures a failing entropy source surfaces as an
// error rather than a half-random value.
func TestUint64ShortRead(t *testing.T) {
	nonce, err := randomUint64(&errReader{serve: 3, err: io.EOF})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("short read returned %v, want io.ErrUnexpectedEOF", err)
	}
	if nonce != 0 {
		t.Fatalf("short read returned nonce %d, want 0", nonce)
	}
}

// TestBytes fills buffers of a few sizes and rejects the all-zero
// outcome for the larger ones.
func TestBytes(t *testing.T) {
	for _, size := range []int{0, 1, 20, 32} {
		buf := make([]byte, size)
		if err := Bytes(buf); err != nil {
			t.Fatalf("Bytes(%d) unexpectedly failed: %s", size, err)
		}
		if size < 16 {
			continue
		}
		allZero := true
		for _, b := range buf {
			if b != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			t.Fatalf("Bytes(%d) returned all zeroes", size)
		}
	}
}

// newByteReader returns a reader over a fixed byte sequence.
func newByteReader(b []byte) io.Reader {
	return &byteReader{bytes: b}
}

type byteReader struct {
	bytes []byte
}

func (r *byteReader) Read(p []byte) (int, error) {
	if len(r.bytes) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.bytes)
	r.bytes = r.bytes[n:]
	return n, nil
}
