package inmemkv

import (
	"sort"
	"strings"
	"sync"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/storage/kv"
)

type Store struct {
	sync.RWMutex
	prefix string
	table  map[string][]byte
	logger core.Logger
}

var _ core.Store = (*Store)(nil) // interface compliance check

func Open(prefix string, logger core.Logger) *Store {
	return &Store{
		prefix: prefix,
		table:  make(map[string][]byte),
		logger: logger,
	}
}

func (s *Store) Load(key string, dst interface{}) bool {
	s.RLock()
	raw, ok := s.table[s.prefix+key]
	s.RUnlock()
	if !ok {
		return false
	}
	return kv.Decode(s.logger, key, raw, dst)
}

func (s *Store) Save(key string, value interface{}) error {
	data, err := kv.Encode(key, value)
	if err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	s.table[s.prefix+key] = data
	return nil
}

func (s *Store) Remove(key string) error {
	s.Lock()
	defer s.Unlock()
	delete(s.table, s.prefix+key)
	return nil
}

// Put stores raw content under key, bypassing encoding.
func (s *Store) Put(key string, raw []byte) {
	s.Lock()
	defer s.Unlock()
	s.table[s.prefix+key] = append([]byte(nil), raw...)
}

// Keys lists the stored keys, without prefix.
func (s *Store) Keys() []string {
	s.RLock()
	defer s.RUnlock()
	keys := make([]string, 0, len(s.table))
	for k := range s.table {
		keys = append(keys, strings.TrimPrefix(k, s.prefix))
	}
	sort.Strings(keys)
	return keys
}
