package dbaccess

import (
	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/infrastructure/db/database"
	"github.com/xdagger/xdagd/util/daghash"
)

var blocksBucket = database.MakeBucket([]byte("blocks"))

func blockKey(lowHash *daghash.Hash) *database.Key {
	return blocksBucket.Key(lowHash[:])
}

// StoreBlock stores the given raw block bytes keyed by the block's low
// hash.
func StoreBlock(context Context, lowHash *daghash.Hash, blockBytes []byte) error {
	accessor, err := context.accessor()
	if err != nil {
		return err
	}

	// Make sure that the block does not already exist.
	exists, err := HasBlock(context, lowHash)
	if err != nil {
		return err
	}
	if exists {
		return errors.Errorf("block %s already exists", lowHash)
	}

	return accessor.Put(blockKey(lowHash), blockBytes)
}

// HasBlock returns whether the block of the given low hash has been
// previously inserted into the database.
func HasBlock(context Context, lowHash *daghash.Hash) (bool, error) {
	accessor, err := context.accessor()
	if err != nil {
		return false, err
	}

	return accessor.Has(blockKey(lowHash))
}

// FetchBlock returns the raw bytes of the block of the given low hash.
// Returns ErrNotFound if the block had not been previously inserted into
// the database.
func FetchBlock(context Context, lowHash *daghash.Hash) ([]byte, error) {
	accessor, err := context.accessor()
	if err != nil {
		return nil, err
	}

	return accessor.Get(blockKey(lowHash))
}
