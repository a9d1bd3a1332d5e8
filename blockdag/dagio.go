package blockdag

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/infrastructure/db/dbaccess"
	"github.com/xdagger/xdagd/util/binaryserializer"
	"github.com/xdagger/xdagd/util/daghash"
)

// schemaVersion is the version of the store layout this build reads and
// writes. A store with a different version refuses to open.
const schemaVersion uint16 = 1

// storeMeta is the store meta record: it identifies the store and carries
// the current main-chain tip. It is rewritten in the same transaction as
// any tip change.
type storeMeta struct {
	SchemaVersion  uint16
	NetworkID      uint32
	GenesisLowHash daghash.Hash
	TipLowHash     daghash.Hash
	TipHeight      uint64
}

func (meta *storeMeta) serialize(w io.Writer) error {
	if err := binaryserializer.PutUint16(w, meta.SchemaVersion); err != nil {
		return err
	}
	if err := binaryserializer.PutUint32(w, meta.NetworkID); err != nil {
		return err
	}
	if _, err := w.Write(meta.GenesisLowHash[:]); err != nil {
		return errors.WithStack(err)
	}
	if _, err := w.Write(meta.TipLowHash[:]); err != nil {
		return errors.WithStack(err)
	}
	return binaryserializer.PutUint64(w, meta.TipHeight)
}

func (meta *storeMeta) deserialize(r io.Reader) error {
	var err error
	if meta.SchemaVersion, err = binaryserializer.Uint16(r); err != nil {
		return err
	}
	if meta.NetworkID, err = binaryserializer.Uint32(r); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, meta.GenesisLowHash[:]); err != nil {
		return errors.WithStack(err)
	}
	if _, err := io.ReadFull(r, meta.TipLowHash[:]); err != nil {
		return errors.WithStack(err)
	}
	meta.TipHeight, err = binaryserializer.Uint64(r)
	return err
}

// storeMetaRecord serializes and stores the meta record in the given
// context.
func storeMetaRecord(context dbaccess.Context, meta *storeMeta) error {
	var buffer bytes.Buffer
	if err := meta.serialize(&buffer); err != nil {
		return err
	}
	return dbaccess.StoreMeta(context, buffer.Bytes())
}

// fetchMetaRecord loads and parses the meta record, or returns nil when
// the store is freshly created.
func fetchMetaRecord(context dbaccess.Context) (*storeMeta, error) {
	exists, err := dbaccess.HasMeta(context)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	metaBytes, err := dbaccess.FetchMeta(context)
	if err != nil {
		return nil, err
	}
	meta := &storeMeta{}
	if err := meta.deserialize(bytes.NewReader(metaBytes)); err != nil {
		return nil, err
	}
	return meta, nil
}

// storeBlockInfo serializes and stores a block's metadata in the given
// context.
func storeBlockInfo(context dbaccess.Context, info *BlockInfo) error {
	infoBytes, err := SerializeBlockInfo(info)
	if err != nil {
		return err
	}
	return dbaccess.StoreBlockInfo(context, &info.HashLow, infoBytes)
}

// fetchBlockInfo loads and parses a block's metadata from the given
// context. Returns database.ErrNotFound when the block is unknown.
func fetchBlockInfo(context dbaccess.Context, lowHash *daghash.Hash) (*BlockInfo, error) {
	infoBytes, err := dbaccess.FetchBlockInfo(context, lowHash)
	if err != nil {
		return nil, err
	}
	return DeserializeBlockInfo(infoBytes)
}

// fetchBlock loads and decodes a block's body from the given context.
func fetchBlock(context dbaccess.Context, lowHash *daghash.Hash) (*Block, error) {
	blockBytes, err := dbaccess.FetchBlock(context, lowHash)
	if err != nil {
		return nil, err
	}
	return DecodeBlock(blockBytes)
}
