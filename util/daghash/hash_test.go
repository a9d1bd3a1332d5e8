package daghash

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// testHashBytes is an arbitrary hash fixture: note the String form is
// byte-reversed hex.
var testHashBytes = []byte{
	0x06, 0xe5, 0x33, 0xfd, 0x1a, 0xda, 0x86, 0x39,
	0x1f, 0x3f, 0x6c, 0x34, 0x32, 0x04, 0xb0, 0xd2,
	0x78, 0xd4, 0xaa, 0xec, 0x1c, 0x0b, 0x20, 0xaa,
	0x27, 0xba, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
}

func TestHashBasics(t *testing.T) {
	hash, err := NewHash(testHashBytes)
	if err != nil {
		t.Fatalf("NewHash unexpectedly failed: %s", err)
	}
	if !bytes.Equal(hash.CloneBytes(), testHashBytes) {
		t.Fatal("CloneBytes does not round-trip")
	}

	// SetBytes rejects wrong sizes.
	if err := hash.SetBytes(testHashBytes[:31]); err == nil {
		t.Fatal("SetBytes accepted 31 bytes")
	}
	if _, err := NewHash(append(testHashBytes, 0)); err == nil {
		t.Fatal("NewHash accepted 33 bytes")
	}

	// String is the byte-reversed hex form.
	wantString := func() string {
		reversed := make([]byte, HashSize)
		for i, b := range testHashBytes {
			reversed[HashSize-1-i] = b
		}
		return hex.EncodeToString(reversed)
	}()
	if hash.String() != wantString {
		t.Fatalf("String = %s, want %s", hash.String(), wantString)
	}

	// NewHashFromStr inverts String.
	parsed, err := NewHashFromStr(hash.String())
	if err != nil {
		t.Fatalf("NewHashFromStr unexpectedly failed: %s", err)
	}
	if !parsed.IsEqual(hash) {
		t.Fatalf("NewHashFromStr(String) = %s, want %s", parsed, hash)
	}

	// Over-long strings fail.
	if _, err := NewHashFromStr(wantString + "00"); err != ErrHashStrSize {
		t.Fatalf("over-long string returned %v, want ErrHashStrSize", err)
	}
}

func TestIsEqual(t *testing.T) {
	hash, _ := NewHash(testHashBytes)
	same, _ := NewHash(testHashBytes)
	var other Hash

	if !hash.IsEqual(same) {
		t.Fatal("equal hashes compare unequal")
	}
	if hash.IsEqual(&other) {
		t.Fatal("different hashes compare equal")
	}
	if hash.IsEqual(nil) {
		t.Fatal("non-nil hash compares equal to nil")
	}
	var nilHash *Hash
	if !nilHash.IsEqual(nil) {
		t.Fatal("nil hashes compare unequal")
	}
}

func TestLowHash(t *testing.T) {
	hash, _ := NewHash(testHashBytes)
	low := hash.LowHash()

	if !low.IsLow() {
		t.Fatal("LowHash left a non-zero tag region")
	}
	if !bytes.Equal(low[TagSize:], hash[TagSize:]) {
		t.Fatal("LowHash modified bytes outside the tag region")
	}
	// The original is untouched.
	if hash.IsLow() {
		t.Fatal("LowHash mutated its receiver")
	}
	// Idempotent.
	if !low.LowHash().IsEqual(low) {
		t.Fatal("LowHash of a low hash changed it")
	}
}

func TestCmp(t *testing.T) {
	smaller := &Hash{0x00, 0x01}
	larger := &Hash{0x00, 0x02}

	if smaller.Cmp(larger) != -1 || larger.Cmp(smaller) != 1 {
		t.Fatal("Cmp ordering is wrong")
	}
	if smaller.Cmp(smaller) != 0 {
		t.Fatal("Cmp of a hash with itself is not 0")
	}
	if !smaller.Less(larger) || larger.Less(smaller) {
		t.Fatal("Less disagrees with Cmp")
	}
}
