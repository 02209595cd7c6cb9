// Package memory provides in-memory implementations of the board's store
// and settlement ledger, used by tests and the dev backend.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/edgeee/likeboard/board"
)

// Store keeps all partitions in a single map. Update transactions run
// against a copy that replaces the live map only on success, so a failed
// transaction leaves no trace.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) View(_ context.Context, fn func(tx board.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&tx{data: s.data, readOnly: true})
}

func (s *Store) Update(_ context.Context, fn func(tx board.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		clone[k] = v
	}
	if err := fn(&tx{data: clone}); err != nil {
		return err
	}
	s.data = clone
	return nil
}

type tx struct {
	data     map[string][]byte
	readOnly bool
}

func (t *tx) Get(key []byte) ([]byte, error) {
	v, ok := t.data[string(key)]
	if !ok {
		return nil, board.ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

func (t *tx) Set(key, value []byte) error {
	if t.readOnly {
		panic("memory: set inside a read-only transaction")
	}
	t.data[string(key)] = bytes.Clone(value)
	return nil
}

func (t *tx) Scan(prefix []byte, fn func(key, value []byte) error) error {
	keys := make([]string, 0, len(t.data))
	for k := range t.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), bytes.Clone(t.data[k])); err != nil {
			return err
		}
	}
	return nil
}
