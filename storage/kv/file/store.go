// Package filekv stores every key as a JSON document in a directory.
package filekv

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/storage/kv"
)

type Store struct {
	sync.RWMutex
	dir    string
	prefix string
	logger core.Logger
}

var _ core.Store = (*Store)(nil) // interface compliance check

// Open creates dir if needed.
func Open(dir, prefix string, logger core.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating store directory")
	}
	return &Store{dir: dir, prefix: prefix, logger: logger}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, s.prefix+key+".json")
}

func (s *Store) Load(key string, dst interface{}) bool {
	s.RLock()
	raw, err := ioutil.ReadFile(s.path(key))
	s.RUnlock()
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error(fmt.Sprintf("loading %q: %v", key, err), errors.Wrap(err, "reading "+key))
		}
		return false
	}
	return kv.Decode(s.logger, key, raw, dst)
}

// Save writes to a temporary file first, so a crash never leaves a half written document.
func (s *Store) Save(key string, value interface{}) error {
	data, err := kv.Encode(key, value)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	tmp, err := ioutil.TempFile(s.dir, s.prefix+key+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "saving %q", key)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "saving %q", key)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "saving %q", key)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "saving %q", key)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), s.path(key)), "saving %q", key)
}

func (s *Store) Remove(key string) error {
	s.Lock()
	defer s.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing %q", key)
	}
	return nil
}
