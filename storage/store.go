package storage

import (
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/storage/database"
	filekv "github.com/trezcool/davomat/storage/kv/file"
	inmemkv "github.com/trezcool/davomat/storage/kv/inmem"
)

// Open opens the key/value store selected by conf.Store.Driver: memory (default), file or postgres.
// The database handle is only returned for postgres; the caller closes it.
func Open(conf *core.Config, logger core.Logger) (core.Store, *sqlx.DB, error) {
	switch conf.Store.Driver {
	case "", "memory":
		return inmemkv.Open(conf.Store.Prefix, logger), nil, nil

	case "file":
		dir := conf.Store.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(conf.WorkDir, dir)
		}
		store, err := filekv.Open(dir, conf.Store.Prefix, logger)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening file store")
		}
		return store, nil, nil

	case "postgres":
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, nil, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return database.NewStore(db, conf.Store.Prefix, logger), db, nil
	}
	return nil, nil, errors.Errorf("unknown store driver %q", conf.Store.Driver)
}
