package dbaccess

import (
	"github.com/xdagger/xdagd/infrastructure/db/database"
	"github.com/xdagger/xdagd/util/daghash"
)

var blockInfosBucket = database.MakeBucket([]byte("info"))

func blockInfoKey(lowHash *daghash.Hash) *database.Key {
	return blockInfosBucket.Key(lowHash[:])
}

// StoreBlockInfo stores the serialized derived metadata of a block keyed
// by the block's low hash. Unlike StoreBlock it overwrites freely: block
// metadata is mutated over the block's lifecycle.
func StoreBlockInfo(context Context, lowHash *daghash.Hash, blockInfoBytes []byte) error {
	accessor, err := context.accessor()
	if err != nil {
		return err
	}

	return accessor.Put(blockInfoKey(lowHash), blockInfoBytes)
}

// HasBlockInfo returns whether metadata for the block of the given low
// hash exists in the database.
func HasBlockInfo(context Context, lowHash *daghash.Hash) (bool, error) {
	accessor, err := context.accessor()
	if err != nil {
		return false, err
	}

	return accessor.Has(blockInfoKey(lowHash))
}

// FetchBlockInfo returns the serialized metadata of the block of the given
// low hash. Returns ErrNotFound if no metadata had been stored.
func FetchBlockInfo(context Context, lowHash *daghash.Hash) ([]byte, error) {
	accessor, err := context.accessor()
	if err != nil {
		return nil, err
	}

	return accessor.Get(blockInfoKey(lowHash))
}
