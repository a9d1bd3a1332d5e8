package dbaccess

import (
	"encoding/binary"

	"github.com/xdagger/xdagd/infrastructure/db/database"
	"github.com/xdagger/xdagd/util/daghash"
)

var heightsBucket = database.MakeBucket([]byte("heights"))

// heightKey encodes the height big-endian so that lexicographic key order
// in the underlying store is ascending height order.
func heightKey(height uint64) *database.Key {
	var keyBytes [8]byte
	binary.BigEndian.PutUint64(keyBytes[:], height)
	return heightsBucket.Key(keyBytes[:])
}

// StoreMainChainBlock maps the given height to the low hash of the main
// block elected at that height.
func StoreMainChainBlock(context Context, height uint64, lowHash *daghash.Hash) error {
	accessor, err := context.accessor()
	if err != nil {
		return err
	}

	return accessor.Put(heightKey(height), lowHash[:])
}

// RemoveMainChainBlock removes the height mapping for the given height.
// Used when a reorg unwinds a main-chain segment.
func RemoveMainChainBlock(context Context, height uint64) error {
	accessor, err := context.accessor()
	if err != nil {
		return err
	}

	return accessor.Delete(heightKey(height))
}

// FetchMainChainBlockByHeight returns the low hash of the main block at
// the given height. Returns ErrNotFound if the height is above the tip.
func FetchMainChainBlockByHeight(context Context, height uint64) (*daghash.Hash, error) {
	accessor, err := context.accessor()
	if err != nil {
		return nil, err
	}

	hashBytes, err := accessor.Get(heightKey(height))
	if err != nil {
		return nil, err
	}
	return daghash.NewHash(hashBytes)
}

// MainChainBlocksBetween returns the low hashes of the main blocks at
// heights [fromHeight, toHeight], ordered by height ascending. Heights
// without an elected block are skipped.
func MainChainBlocksBetween(context Context, fromHeight, toHeight uint64) ([]*daghash.Hash, error) {
	accessor, err := context.accessor()
	if err != nil {
		return nil, err
	}

	cursor, err := accessor.Cursor(heightsBucket)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	err = cursor.Seek(heightKey(fromHeight))
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	var lowHashes []*daghash.Hash
	for {
		key, err := cursor.Key()
		if err != nil {
			return nil, err
		}
		height := binary.BigEndian.Uint64(key.Suffix())
		if height > toHeight {
			break
		}

		value, err := cursor.Value()
		if err != nil {
			return nil, err
		}
		lowHash, err := daghash.NewHash(value)
		if err != nil {
			return nil, err
		}
		lowHashes = append(lowHashes, lowHash)

		if !cursor.Next() {
			break
		}
	}
	return lowHashes, nil
}
