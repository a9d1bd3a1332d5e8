package blockdag

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/crypto"
	"github.com/xdagger/xdagd/util"
	"github.com/xdagger/xdagd/util/daghash"
)

// BlockBuilder assembles new blocks field by field: links first, then
// public keys and remark, then signatures. Fields are allocated in call
// order; the builder refuses to overflow the sixteen field slots.
type BlockBuilder struct {
	block     *Block
	nextField int
	err       error
}

// NewBlockBuilder returns a builder for a block with the given timestamp.
func NewBlockBuilder(timestamp int64) *BlockBuilder {
	builder := &BlockBuilder{
		block:     &Block{},
		nextField: 1,
	}
	builder.block.fieldTypes[0] = FieldTypeHeader
	binary.LittleEndian.PutUint64(
		builder.block.fields[0][headerQuadTimestamp:headerQuadTimestamp+8], uint64(timestamp))
	return builder
}

// allocField reserves the next free field with the given type and returns
// its index, or -1 when the block is full.
func (bb *BlockBuilder) allocField(fieldType FieldType) int {
	if bb.err != nil {
		return -1
	}
	if bb.nextField >= BlockFieldCount {
		bb.err = errors.Errorf("block field overflow: no slot left for %s", fieldType)
		return -1
	}
	i := bb.nextField
	bb.nextField++
	bb.block.fieldTypes[i] = fieldType
	return i
}

// addLink appends a link field of the given type.
func (bb *BlockBuilder) addLink(fieldType FieldType, lowHash *daghash.Hash, amount util.Amount) *BlockBuilder {
	i := bb.allocField(fieldType)
	if i < 0 {
		return bb
	}
	binary.LittleEndian.PutUint64(bb.block.fields[i][:8], uint64(amount))
	copy(bb.block.fields[i][8:], lowHash[daghash.TagSize:])
	return bb
}

// AddInputLink appends an input link spending amount from the block at
// lowHash.
func (bb *BlockBuilder) AddInputLink(lowHash *daghash.Hash, amount util.Amount) *BlockBuilder {
	return bb.addLink(FieldTypeInputLink, lowHash, amount)
}

// AddOutputLink appends an output link paying amount to the block at
// lowHash.
func (bb *BlockBuilder) AddOutputLink(lowHash *daghash.Hash, amount util.Amount) *BlockBuilder {
	return bb.addLink(FieldTypeOutputLink, lowHash, amount)
}

// AddPublicKey appends a public key field declaring the given key.
func (bb *BlockBuilder) AddPublicKey(key *crypto.PublicKey) *BlockBuilder {
	fieldType := FieldTypePublicKeyEven
	if key.OddY() {
		fieldType = FieldTypePublicKeyOdd
	}
	i := bb.allocField(fieldType)
	if i < 0 {
		return bb
	}
	copy(bb.block.fields[i][:], key.X())
	return bb
}

// SetRemark appends a remark field. Remarks longer than one field are
// truncated.
func (bb *BlockBuilder) SetRemark(remark []byte) *BlockBuilder {
	i := bb.allocField(FieldTypeRemark)
	if i < 0 {
		return bb
	}
	copy(bb.block.fields[i][:], remark)
	return bb
}

// AddRandomNonce appends a nonce field filled from crypto/rand. Locally
// minted blocks carry one so that equal payloads still hash apart.
func (bb *BlockBuilder) AddRandomNonce() *BlockBuilder {
	i := bb.allocField(FieldTypeNonce)
	if i < 0 {
		return bb
	}
	if _, err := rand.Read(bb.block.fields[i][:]); err != nil {
		bb.err = errors.Wrap(err, "cannot read random nonce")
	}
	return bb
}

// signWith allocates an (r, s) field pair of the given type, computes the
// block's signable digest and fills the pair with key's signature over it.
// Signature pairs must be the last fields added: allocating any further
// field would change the composition the digest commits to.
func (bb *BlockBuilder) signWith(fieldType FieldType, key *crypto.PrivateKey) *BlockBuilder {
	r := bb.allocField(fieldType)
	s := bb.allocField(fieldType)
	if r < 0 || s < 0 {
		return bb
	}
	bb.syncTypeWord()
	sig, err := key.Sign(bb.block.SignableHash())
	if err != nil {
		bb.err = err
		return bb
	}
	serialized := sig.Serialize()
	copy(bb.block.fields[r][:], serialized[:crypto.SignatureSize/2])
	copy(bb.block.fields[s][:], serialized[crypto.SignatureSize/2:])
	return bb
}

// SignInput signs the block's inputs with the given key.
func (bb *BlockBuilder) SignInput(key *crypto.PrivateKey) *BlockBuilder {
	return bb.signWith(FieldTypeInSignature, key)
}

// SignOutput binds the block itself with the given key.
func (bb *BlockBuilder) SignOutput(key *crypto.PrivateKey) *BlockBuilder {
	return bb.signWith(FieldTypeOutSignature, key)
}

// syncTypeWord writes the current field types into the header's type word
// quad.
func (bb *BlockBuilder) syncTypeWord() {
	binary.LittleEndian.PutUint64(
		bb.block.fields[0][headerQuadType:headerQuadType+8], bb.block.TypeWord())
}

// Build finalizes and returns the block. The built block is validated
// against the same composition rules DecodeBlock enforces.
func (bb *BlockBuilder) Build() (*Block, error) {
	if bb.err != nil {
		return nil, bb.err
	}
	bb.syncTypeWord()
	if err := bb.block.checkFieldComposition(); err != nil {
		return nil, err
	}
	bb.block.hash = nil
	return bb.block, nil
}
