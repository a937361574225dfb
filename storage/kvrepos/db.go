// Package kvrepos implements the ledgers and repositories on top of a core.Store.
// Every key holds a JSON array of rows; each mutation is a locked read-modify-write of that array.
package kvrepos

import (
	"sync"

	"github.com/trezcool/davomat/core"
)

type DB struct {
	sync.Mutex
	store core.Store
}

func Open(store core.Store) *DB {
	return &DB{store: store}
}

// Store exposes the underlying gateway.
func (db *DB) Store() core.Store {
	return db.store
}
