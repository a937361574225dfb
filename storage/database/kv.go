package database

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/storage/kv"
)

// Store keeps every key as a JSONB row of the kv_store table.
type Store struct {
	db     *sqlx.DB
	prefix string
	logger core.Logger
}

var _ core.Store = (*Store)(nil) // interface compliance check

func NewStore(db *sqlx.DB, prefix string, logger core.Logger) *Store {
	return &Store{db: db, prefix: prefix, logger: logger}
}

func (s *Store) Load(key string, dst interface{}) bool {
	var raw []byte
	err := s.db.Get(&raw, `SELECT value FROM kv_store WHERE key = $1`, s.prefix+key)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Error(fmt.Sprintf("loading %q: %v", key, err), errors.Wrap(err, "selecting "+key))
		}
		return false
	}
	return kv.Decode(s.logger, key, raw, dst)
}

func (s *Store) Save(key string, value interface{}) error {
	data, err := kv.Encode(key, value)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		s.prefix+key, string(data),
	)
	return errors.Wrapf(err, "saving %q", key)
}

func (s *Store) Remove(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv_store WHERE key = $1`, s.prefix+key)
	return errors.Wrapf(err, "removing %q", key)
}

func pqQuoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}
