package blockdag

import (
	"bytes"
	"encoding/binary"

	"github.com/xdagger/xdagd/crypto"
	"github.com/xdagger/xdagd/util"
	"github.com/xdagger/xdagd/util/daghash"
)

const (
	// BlockSize is the exact serialized size of every block.
	BlockSize = 512

	// BlockFieldSize is the size of a single block field.
	BlockFieldSize = 32

	// BlockFieldCount is the number of fields in a block.
	BlockFieldCount = BlockSize / BlockFieldSize
)

// Header field quad offsets. The header field packs four little-endian
// uint64 quads: a transport tag, the type word, the timestamp and the fee.
const (
	headerQuadTransport = 0
	headerQuadType      = 8
	headerQuadTimestamp = 16
	headerQuadFee       = 24
)

// Block is a single 512-byte DAG node: sixteen 32-byte fields, each tagged
// by a 4-bit type nibble packed into the header's type word. The encoding
// is position-based; decode(encode(b)) is the identity byte-for-byte.
type Block struct {
	fieldTypes [BlockFieldCount]FieldType
	fields     [BlockFieldCount][BlockFieldSize]byte

	// hash caches the double-sha256 of the serialized block.
	hash *daghash.Hash
}

// Link is a reference from a block to another block, extracted from an
// input-link or output-link field: the low hash of the referenced block
// plus the amount moved over the link.
type Link struct {
	Type    FieldType
	LowHash daghash.Hash
	Amount  util.Amount
}

// IsInput returns true when the link spends from the referenced block.
func (l *Link) IsInput() bool {
	return l.Type == FieldTypeInputLink
}

// DecodeBlock parses a serialized 512-byte block. It fails when the size
// is wrong or the type word does not describe a legal field composition:
// exactly one header at field 0, signature fields in consecutive
// same-typed pairs, at most one nonce, and no unknown field types.
func DecodeBlock(blockBytes []byte) (*Block, error) {
	if len(blockBytes) != BlockSize {
		return nil, ruleError(ErrInvalidBlockSize, "block is %d bytes, want %d",
			len(blockBytes), BlockSize)
	}

	block := &Block{}
	for i := 0; i < BlockFieldCount; i++ {
		copy(block.fields[i][:], blockBytes[i*BlockFieldSize:(i+1)*BlockFieldSize])
	}

	typeWord := binary.LittleEndian.Uint64(block.fields[0][headerQuadType : headerQuadType+8])
	for i := 0; i < BlockFieldCount; i++ {
		block.fieldTypes[i] = FieldType(typeWord >> (4 * uint(i)) & 0xf)
	}

	if err := block.checkFieldComposition(); err != nil {
		return nil, err
	}
	return block, nil
}

// checkFieldComposition validates the nibble sequence of the block's type
// word.
func (b *Block) checkFieldComposition() error {
	if b.fieldTypes[0] != FieldTypeHeader {
		return ruleError(ErrInvalidComposition, "field 0 is %s, want Header",
			b.fieldTypes[0])
	}

	nonces := 0
	for i := 1; i < BlockFieldCount; i++ {
		fieldType := b.fieldTypes[i]
		switch {
		case fieldType > maxKnownFieldType:
			return ruleError(ErrInvalidComposition, "field %d has unknown type %d",
				i, byte(fieldType))
		case fieldType == FieldTypeHeader:
			return ruleError(ErrInvalidComposition, "duplicate header at field %d", i)
		case fieldType == FieldTypeNonce:
			nonces++
			if nonces > 1 {
				return ruleError(ErrInvalidComposition, "more than one nonce field")
			}
		case fieldType.isSignature():
			// Signatures occupy a consecutive (r, s) pair of equal type.
			if i+1 >= BlockFieldCount || b.fieldTypes[i+1] != fieldType {
				return ruleError(ErrInvalidComposition,
					"signature at field %d lacks its second half", i)
			}
			i++
		}
	}
	return nil
}

// Encode returns the serialized 512-byte form of the block.
func (b *Block) Encode() []byte {
	blockBytes := make([]byte, BlockSize)
	for i := 0; i < BlockFieldCount; i++ {
		copy(blockBytes[i*BlockFieldSize:], b.fields[i][:])
	}
	return blockBytes
}

// BlockHash returns the double-sha256 of the serialized block. The result
// is cached.
func (b *Block) BlockHash() *daghash.Hash {
	if b.hash == nil {
		b.hash = crypto.DoubleSha256(b.Encode())
	}
	return b.hash
}

// LowHash returns the block hash with its nonce/tag region zeroed: the
// canonical identifier of the block in the store and on links.
func (b *Block) LowHash() *daghash.Hash {
	return b.BlockHash().LowHash()
}

// TransportHeader returns the transport tag quad of the header field.
func (b *Block) TransportHeader() uint64 {
	return binary.LittleEndian.Uint64(b.fields[0][headerQuadTransport : headerQuadTransport+8])
}

// TypeWord returns the packed field type word.
func (b *Block) TypeWord() uint64 {
	var typeWord uint64
	for i := 0; i < BlockFieldCount; i++ {
		typeWord |= uint64(b.fieldTypes[i]) << (4 * uint(i))
	}
	return typeWord
}

// Timestamp returns the block timestamp in milliseconds since the epoch.
func (b *Block) Timestamp() int64 {
	return int64(binary.LittleEndian.Uint64(b.fields[0][headerQuadTimestamp : headerQuadTimestamp+8]))
}

// HeaderFee returns the fee quad declared in the block header.
func (b *Block) HeaderFee() util.Amount {
	return util.Amount(binary.LittleEndian.Uint64(b.fields[0][headerQuadFee : headerQuadFee+8]))
}

// FieldType returns the type nibble of field i.
func (b *Block) FieldType(i int) FieldType {
	return b.fieldTypes[i]
}

// Field returns a copy of the raw bytes of field i.
func (b *Block) Field(i int) []byte {
	field := b.fields[i]
	return field[:]
}

// Links extracts the block's link fields in field order. A link field
// packs the moved amount in its first 8 bytes (little-endian) and the
// 24-byte tail of the referenced block's low hash in the rest.
func (b *Block) Links() []*Link {
	var links []*Link
	for i := 1; i < BlockFieldCount; i++ {
		if !b.fieldTypes[i].isLink() {
			continue
		}
		link := &Link{
			Type:   b.fieldTypes[i],
			Amount: util.Amount(binary.LittleEndian.Uint64(b.fields[i][:8])),
		}
		copy(link.LowHash[daghash.TagSize:], b.fields[i][8:])
		links = append(links, link)
	}
	return links
}

// InputLinks returns only the block's input links.
func (b *Block) InputLinks() []*Link {
	var inputs []*Link
	for _, link := range b.Links() {
		if link.IsInput() {
			inputs = append(inputs, link)
		}
	}
	return inputs
}

// OutputLinks returns only the block's output links.
func (b *Block) OutputLinks() []*Link {
	var outputs []*Link
	for _, link := range b.Links() {
		if !link.IsInput() {
			outputs = append(outputs, link)
		}
	}
	return outputs
}

// PublicKeys returns the public keys declared by the block's public key
// fields. Fields holding coordinates off the curve are skipped.
func (b *Block) PublicKeys() []*crypto.PublicKey {
	var keys []*crypto.PublicKey
	for i := 1; i < BlockFieldCount; i++ {
		if !b.fieldTypes[i].isPublicKey() {
			continue
		}
		oddY := b.fieldTypes[i] == FieldTypePublicKeyOdd
		key, err := crypto.DeserializePublicKeyX(b.fields[i][:], oddY)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// signatures collects the (r, s) pairs of the given signature field type.
func (b *Block) signatures(fieldType FieldType) []*crypto.Signature {
	var sigs []*crypto.Signature
	for i := 1; i < BlockFieldCount-1; i++ {
		if b.fieldTypes[i] != fieldType || b.fieldTypes[i+1] != fieldType {
			continue
		}
		sig, err := crypto.DeserializeSignature(b.fields[i][:], b.fields[i+1][:])
		if err == nil {
			sigs = append(sigs, sig)
		}
		i++
	}
	return sigs
}

// InSignatures returns the block's input-authorizing signatures.
func (b *Block) InSignatures() []*crypto.Signature {
	return b.signatures(FieldTypeInSignature)
}

// OutSignatures returns the block's self-binding signatures.
func (b *Block) OutSignatures() []*crypto.Signature {
	return b.signatures(FieldTypeOutSignature)
}

// Remark returns the block's remark field and true, or false when the
// block carries none.
func (b *Block) Remark() ([BlockFieldSize]byte, bool) {
	for i := 1; i < BlockFieldCount; i++ {
		if b.fieldTypes[i] == FieldTypeRemark {
			return b.fields[i], true
		}
	}
	return [BlockFieldSize]byte{}, false
}

// SignableHash returns the digest signatures commit to: the double-sha256
// of the block encoding with the contents of every signature field zeroed.
// Signature positions stay typed in the type word, so a block's signable
// digest is fixed the moment its composition is.
func (b *Block) SignableHash() *daghash.Hash {
	encoded := b.Encode()
	for i := 1; i < BlockFieldCount; i++ {
		if b.fieldTypes[i].isSignature() {
			zeroed := encoded[i*BlockFieldSize : (i+1)*BlockFieldSize]
			for j := range zeroed {
				zeroed[j] = 0
			}
		}
	}
	return crypto.DoubleSha256(encoded)
}

// IsEqual returns true when both blocks serialize to the same bytes.
func (b *Block) IsEqual(other *Block) bool {
	if b == nil || other == nil {
		return b == other
	}
	return bytes.Equal(b.Encode(), other.Encode())
}
