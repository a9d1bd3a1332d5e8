package crypto

import (
	"encoding/hex"
	"testing"
)

// The fixtures below are the standard published digests of the empty
// string (and the classic HMAC test string), so a mismatch means the
// primitive itself is miswired.
func TestHashVectors(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want string
	}{
		{
			name: "sha256 empty",
			got:  Sha256(nil),
			want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name: "double sha256 empty",
			got:  DoubleSha256(nil)[:],
			want: "5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456",
		},
		{
			name: "keccak256 empty",
			got:  Keccak256(nil),
			want: "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		},
		{
			name: "hash160 empty",
			got:  Hash160(nil),
			want: "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb",
		},
		{
			name: "hmac-sha512",
			got: HmacSha512([]byte("key"),
				[]byte("The quick brown fox jumps over the lazy dog")),
			want: "b42af09057bac1e2d41708e48a902e09b5ff7f12ab428a4fe86653c73dd248fb" +
				"82f948a549f7b791a5b41915ee4d1ec3935357e4e2317250d0372afa2ebeeb3a",
		},
	}

	for _, test := range tests {
		if got := hex.EncodeToString(test.got); got != test.want {
			t.Errorf("%s: got %s, want %s", test.name, got, test.want)
		}
	}
}

// TestSignRoundTrip proves sign/verify round-trips and that verification
// pins both the key and the digest.
func TestSignRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey unexpectedly failed: %s", err)
	}
	pubKey, err := key.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey unexpectedly failed: %s", err)
	}

	digest := DoubleSha256([]byte("xdag signature round trip"))
	sig, err := key.Sign(digest)
	if err != nil {
		t.Fatalf("Sign unexpectedly failed: %s", err)
	}
	if !pubKey.Verify(digest, sig) {
		t.Fatal("signature does not verify under its own key")
	}

	otherDigest := DoubleSha256([]byte("some other digest"))
	if pubKey.Verify(otherDigest, sig) {
		t.Fatal("signature verifies under a different digest")
	}

	otherKey, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey unexpectedly failed: %s", err)
	}
	otherPub, err := otherKey.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey unexpectedly failed: %s", err)
	}
	if otherPub.Verify(digest, sig) {
		t.Fatal("signature verifies under a different key")
	}
}

// TestPublicKeyXRoundTrip rebuilds a key from its X coordinate plus
// parity, the form keys take inside block fields.
func TestPublicKeyXRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey unexpectedly failed: %s", err)
	}
	pubKey, err := key.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey unexpectedly failed: %s", err)
	}

	rebuilt, err := DeserializePublicKeyX(pubKey.X(), pubKey.OddY())
	if err != nil {
		t.Fatalf("DeserializePublicKeyX unexpectedly failed: %s", err)
	}
	if hexOf(rebuilt.Serialize()) != hexOf(pubKey.Serialize()) {
		t.Fatalf("X round trip changed the key: %s != %s",
			hexOf(rebuilt.Serialize()), hexOf(pubKey.Serialize()))
	}
}

func hexOf(b []byte) string {
	return hex.EncodeToString(b)
}
