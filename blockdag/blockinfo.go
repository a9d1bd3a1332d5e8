package blockdag

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/util"
	"github.com/xdagger/xdagd/util/binaryserializer"
	"github.com/xdagger/xdagd/util/daghash"
	"github.com/xdagger/xdagd/util/uint256"
)

// Flags is the bitset describing a block's lifecycle state.
type Flags uint32

// Block flag bits. The values are stable: they are persisted in the store.
const (
	// FlagApplied marks a block whose balance effects have been applied.
	FlagApplied Flags = 1 << iota

	// FlagMain marks an elected main block.
	FlagMain

	// FlagMainRef marks a block whose fee has been collected by a main
	// block.
	FlagMainRef

	// FlagMainChain marks a block lying on the canonical spine. Genesis
	// carries it without FlagMain.
	FlagMainChain

	// FlagOur marks a block minted by this node.
	FlagOur

	// FlagPretop marks the current best candidate for the next main
	// block.
	FlagPretop

	// FlagRemark marks a block carrying a remark field.
	FlagRemark

	// FlagExtra marks an applied block that has not been elected yet.
	FlagExtra

	// FlagSaved marks a block persisted to the store.
	FlagSaved

	// FlagUnwind marks a main block reverted by a reorg.
	FlagUnwind
)

// Has returns true when all the given bits are set.
func (f Flags) Has(bits Flags) bool {
	return f&bits == bits
}

// BlockInfo is the derived metadata of a block: everything consensus
// needs without re-decoding the 512-byte body.
type BlockInfo struct {
	Type      uint64
	Flags     Flags
	Height    uint64
	Timestamp int64

	// Difficulty is the cumulative difficulty of the block: its own block
	// difficulty plus the best reachable predecessor's.
	Difficulty *uint256.Uint256

	// Ref is the chosen reference link, used for fee accounting. Nil for
	// blocks without links.
	Ref *daghash.Hash

	// MaxDiffLink is the predecessor along the maximum-difficulty path.
	// Nil for genesis and for blocks without links.
	MaxDiffLink *daghash.Hash

	// Fee is the block's own transaction fee. The fees a main block
	// collects at election are credited to its Amount; Fee is unchanged.
	Fee util.Amount

	// Amount is the block's balance in base units.
	Amount util.Amount

	Hash    daghash.Hash
	HashLow daghash.Hash

	// Remark holds the block's remark field when FlagRemark is set.
	Remark [BlockFieldSize]byte
}

// blockInfo serialization presence bits.
const (
	infoHasRef uint8 = 1 << iota
	infoHasMaxDiffLink
)

// Serialize writes the BlockInfo to w in its fixed little-endian store
// layout.
func (info *BlockInfo) Serialize(w io.Writer) error {
	if err := binaryserializer.PutUint64(w, info.Type); err != nil {
		return err
	}
	if err := binaryserializer.PutUint32(w, uint32(info.Flags)); err != nil {
		return err
	}
	if err := binaryserializer.PutUint64(w, info.Height); err != nil {
		return err
	}
	if err := binaryserializer.PutUint64(w, uint64(info.Timestamp)); err != nil {
		return err
	}
	if err := binaryserializer.PutUint64(w, uint64(info.Fee)); err != nil {
		return err
	}
	if err := binaryserializer.PutUint64(w, uint64(info.Amount)); err != nil {
		return err
	}

	difficulty := info.Difficulty
	if difficulty == nil {
		difficulty = uint256.Zero()
	}
	difficultyBytes := difficulty.Bytes()
	if _, err := w.Write(difficultyBytes[:]); err != nil {
		return errors.WithStack(err)
	}
	if _, err := w.Write(info.Hash[:]); err != nil {
		return errors.WithStack(err)
	}
	if _, err := w.Write(info.HashLow[:]); err != nil {
		return errors.WithStack(err)
	}
	if _, err := w.Write(info.Remark[:]); err != nil {
		return errors.WithStack(err)
	}

	var presence uint8
	if info.Ref != nil {
		presence |= infoHasRef
	}
	if info.MaxDiffLink != nil {
		presence |= infoHasMaxDiffLink
	}
	if err := binaryserializer.PutUint8(w, presence); err != nil {
		return err
	}
	if info.Ref != nil {
		if _, err := w.Write(info.Ref[:]); err != nil {
			return errors.WithStack(err)
		}
	}
	if info.MaxDiffLink != nil {
		if _, err := w.Write(info.MaxDiffLink[:]); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// SerializeBlockInfo returns the serialized store form of info.
func SerializeBlockInfo(info *BlockInfo) ([]byte, error) {
	var buffer bytes.Buffer
	if err := info.Serialize(&buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Deserialize reads a BlockInfo from r.
func (info *BlockInfo) Deserialize(r io.Reader) error {
	var err error
	if info.Type, err = binaryserializer.Uint64(r); err != nil {
		return err
	}
	flags, err := binaryserializer.Uint32(r)
	if err != nil {
		return err
	}
	info.Flags = Flags(flags)
	if info.Height, err = binaryserializer.Uint64(r); err != nil {
		return err
	}
	timestamp, err := binaryserializer.Uint64(r)
	if err != nil {
		return err
	}
	info.Timestamp = int64(timestamp)
	fee, err := binaryserializer.Uint64(r)
	if err != nil {
		return err
	}
	info.Fee = util.Amount(fee)
	amount, err := binaryserializer.Uint64(r)
	if err != nil {
		return err
	}
	info.Amount = util.Amount(amount)

	var difficultyBytes [uint256.Size]byte
	if _, err := io.ReadFull(r, difficultyBytes[:]); err != nil {
		return errors.WithStack(err)
	}
	if info.Difficulty, err = uint256.FromBytes(difficultyBytes[:]); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, info.Hash[:]); err != nil {
		return errors.WithStack(err)
	}
	if _, err := io.ReadFull(r, info.HashLow[:]); err != nil {
		return errors.WithStack(err)
	}
	if _, err := io.ReadFull(r, info.Remark[:]); err != nil {
		return errors.WithStack(err)
	}

	presence, err := binaryserializer.Uint8(r)
	if err != nil {
		return err
	}
	if presence&infoHasRef != 0 {
		info.Ref = &daghash.Hash{}
		if _, err := io.ReadFull(r, info.Ref[:]); err != nil {
			return errors.WithStack(err)
		}
	}
	if presence&infoHasMaxDiffLink != 0 {
		info.MaxDiffLink = &daghash.Hash{}
		if _, err := io.ReadFull(r, info.MaxDiffLink[:]); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// DeserializeBlockInfo parses the serialized store form of a BlockInfo.
func DeserializeBlockInfo(infoBytes []byte) (*BlockInfo, error) {
	info := &BlockInfo{}
	if err := info.Deserialize(bytes.NewReader(infoBytes)); err != nil {
		return nil, err
	}
	return info, nil
}
