package blockdag

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/xdagger/xdagd/crypto"
	"github.com/xdagger/xdagd/util/daghash"
)

// TestBlockCodecRoundTrip ensures decode(encode(b)) is the identity and
// the hash is stable across the round trip.
func TestBlockCodecRoundTrip(t *testing.T) {
	linkHash := &daghash.Hash{}
	for i := daghash.TagSize; i < daghash.HashSize; i++ {
		linkHash[i] = byte(i)
	}

	block, err := NewBlockBuilder(1577836801000).
		AddOutputLink(linkHash, 42).
		SetRemark([]byte("round trip")).
		AddRandomNonce().
		Build()
	if err != nil {
		t.Fatalf("Build unexpectedly failed: %s", err)
	}

	encoded := block.Encode()
	if len(encoded) != BlockSize {
		t.Fatalf("encoded block is %d bytes, want %d", len(encoded), BlockSize)
	}

	decoded, err := DecodeBlock(encoded)
	if err != nil {
		t.Fatalf("DecodeBlock unexpectedly failed: %s", err)
	}
	if !bytes.Equal(decoded.Encode(), encoded) {
		t.Fatal("decode(encode(b)) is not the identity")
	}
	if !decoded.BlockHash().IsEqual(block.BlockHash()) {
		t.Fatalf("hash changed across the round trip: %s != %s",
			decoded.BlockHash(), block.BlockHash())
	}

	if decoded.Timestamp() != 1577836801000 {
		t.Fatalf("timestamp is %d, want 1577836801000", decoded.Timestamp())
	}
	links := decoded.Links()
	if len(links) != 1 {
		t.Fatalf("decoded %d links, want 1", len(links))
	}
	if links[0].Amount != 42 || links[0].IsInput() {
		t.Fatalf("link decoded as %+v, want 42-unit output", links[0])
	}
	if !links[0].LowHash.IsLow() {
		t.Fatal("link low hash has a non-zero tag region")
	}
	remark, ok := decoded.Remark()
	if !ok || !bytes.HasPrefix(remark[:], []byte("round trip")) {
		t.Fatal("remark did not survive the round trip")
	}
}

// TestDecodeBlockRejectsBadCompositions exercises the nibble composition
// rules one violation at a time.
func TestDecodeBlockRejectsBadCompositions(t *testing.T) {
	buildBytes := func(typeWord uint64) []byte {
		blockBytes := make([]byte, BlockSize)
		binary.LittleEndian.PutUint64(blockBytes[headerQuadType:headerQuadType+8], typeWord)
		return blockBytes
	}

	tests := []struct {
		name     string
		typeWord uint64
	}{
		{name: "no header", typeWord: 0},
		{name: "header not first", typeWord: uint64(FieldTypeHeader) << 4},
		{name: "duplicate header", typeWord: uint64(FieldTypeHeader) | uint64(FieldTypeHeader)<<4},
		{name: "two nonces", typeWord: uint64(FieldTypeHeader) |
			uint64(FieldTypeNonce)<<4 | uint64(FieldTypeNonce)<<8},
		{name: "unknown nibble", typeWord: uint64(FieldTypeHeader) | 0xf<<4},
		{name: "unpaired in-signature", typeWord: uint64(FieldTypeHeader) |
			uint64(FieldTypeInSignature)<<4 | uint64(FieldTypeRemark)<<8},
		{name: "unpaired out-signature at the end", typeWord: uint64(FieldTypeHeader) |
			uint64(FieldTypeOutSignature)<<60},
	}
	for _, test := range tests {
		_, err := DecodeBlock(buildBytes(test.typeWord))
		if !IsRuleError(err, ErrInvalidComposition) {
			t.Errorf("%s: DecodeBlock returned %v, want ErrInvalidComposition",
				test.name, err)
		}
	}

	// Wrong size is its own error class.
	_, err := DecodeBlock(make([]byte, BlockSize-1))
	if !IsRuleError(err, ErrInvalidBlockSize) {
		t.Errorf("short block returned %v, want ErrInvalidBlockSize", err)
	}
}

// TestSignableHash ensures the signable digest ignores signature field
// contents but not their positions.
func TestSignableHash(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey unexpectedly failed: %s", err)
	}
	pubKey, err := key.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey unexpectedly failed: %s", err)
	}

	block, err := NewBlockBuilder(1577836801000).
		AddPublicKey(pubKey).
		SignOutput(key).
		Build()
	if err != nil {
		t.Fatalf("Build unexpectedly failed: %s", err)
	}

	// The out-signature must verify under the declared key.
	sigs := block.OutSignatures()
	if len(sigs) != 1 {
		t.Fatalf("block has %d out-signatures, want 1", len(sigs))
	}
	keys := block.PublicKeys()
	if len(keys) != 1 {
		t.Fatalf("block declares %d keys, want 1", len(keys))
	}
	if !keys[0].Verify(block.SignableHash(), sigs[0]) {
		t.Fatal("out-signature does not verify under the declared key")
	}

	// Zeroing the signature contents must not change the signable hash,
	// while the block hash does change.
	mutated := *block
	mutated.hash = nil
	for i := 1; i < BlockFieldCount; i++ {
		if mutated.fieldTypes[i].isSignature() {
			mutated.fields[i] = [BlockFieldSize]byte{}
		}
	}
	if !mutated.SignableHash().IsEqual(block.SignableHash()) {
		t.Fatal("signable hash depends on signature contents")
	}
	if mutated.BlockHash().IsEqual(block.BlockHash()) {
		t.Fatal("block hash ignores signature contents")
	}
}

// TestLowHash ensures low-hash derivation zeroes exactly the tag region.
func TestLowHash(t *testing.T) {
	block, err := NewBlockBuilder(1577836801000).AddRandomNonce().Build()
	if err != nil {
		t.Fatalf("Build unexpectedly failed: %s", err)
	}
	low := block.LowHash()
	if !low.IsLow() {
		t.Fatal("LowHash left a non-zero tag region")
	}
	if !bytes.Equal(low[daghash.TagSize:], block.BlockHash()[daghash.TagSize:]) {
		t.Fatal("LowHash modified bytes outside the tag region")
	}
}
