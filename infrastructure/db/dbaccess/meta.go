package dbaccess

import (
	"github.com/xdagger/xdagd/infrastructure/db/database"
)

var metaKey = database.MakeBucket().Key([]byte("meta"))

// StoreMeta stores the serialized store meta record: schema version,
// network id, genesis low hash and the current tip. Callers store it in
// the same transaction as any tip change.
func StoreMeta(context Context, metaBytes []byte) error {
	accessor, err := context.accessor()
	if err != nil {
		return err
	}

	return accessor.Put(metaKey, metaBytes)
}

// HasMeta returns whether a meta record exists. A missing record means a
// freshly created store.
func HasMeta(context Context) (bool, error) {
	accessor, err := context.accessor()
	if err != nil {
		return false, err
	}

	return accessor.Has(metaKey)
}

// FetchMeta returns the serialized store meta record.
func FetchMeta(context Context) ([]byte, error) {
	accessor, err := context.accessor()
	if err != nil {
		return nil, err
	}

	return accessor.Get(metaKey)
}
