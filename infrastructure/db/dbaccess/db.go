// Package dbaccess provides the data-access layer of the block store: all
// reads and writes of blocks, block metadata, main-chain heights and the
// store meta record go through it.
package dbaccess

import (
	"github.com/xdagger/xdagd/infrastructure/db/database"
	"github.com/xdagger/xdagd/infrastructure/db/database/ldb"
)

// leveldbCacheSizeMiB is the size of the leveldb block cache.
const leveldbCacheSizeMiB = 256

// DatabaseContext represents a context in which all database queries run.
type DatabaseContext struct {
	db database.Database
	*noTxContext
}

// New creates a new DatabaseContext with the database in the specified
// `path`.
func New(path string) (*DatabaseContext, error) {
	db, err := ldb.NewLevelDB(path, leveldbCacheSizeMiB)
	if err != nil {
		return nil, err
	}

	databaseContext := &DatabaseContext{db: db}
	databaseContext.noTxContext = &noTxContext{backend: databaseContext}

	return databaseContext, nil
}

// Close closes the DatabaseContext's connection, if it's open.
func (ctx *DatabaseContext) Close() error {
	return ctx.db.Close()
}
