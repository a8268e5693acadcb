package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"nftescrow/storage"
)

// ErrTxClosed is returned when a committed or discarded transaction is used.
var ErrTxClosed = errors.New("state: transaction closed")

// KV is the read/write surface every native module persists through. Get
// returns (nil, nil) for absent keys.
type KV interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Manager hands out write-overlay transactions over the backing database.
// Writes become visible to the database only when a transaction commits.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a transaction. Transactions are not safe for concurrent use;
// callers serialize them (see core.Node).
func (m *Manager) Begin() *Tx {
	return &Tx{
		manager: m,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

// Tx buffers writes on top of the committed state.
type Tx struct {
	manager *Manager
	writes  map[string][]byte
	deletes map[string]struct{}
	closed  bool
}

// Get reads through the overlay.
func (tx *Tx) Get(key []byte) ([]byte, error) {
	if tx.closed {
		return nil, ErrTxClosed
	}
	k := string(key)
	if value, ok := tx.writes[k]; ok {
		return append([]byte(nil), value...), nil
	}
	if _, ok := tx.deletes[k]; ok {
		return nil, nil
	}
	value, err := tx.manager.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put stages a write.
func (tx *Tx) Put(key, value []byte) error {
	if tx.closed {
		return ErrTxClosed
	}
	k := string(key)
	delete(tx.deletes, k)
	tx.writes[k] = append([]byte(nil), value...)
	return nil
}

// Delete stages a deletion.
func (tx *Tx) Delete(key []byte) error {
	if tx.closed {
		return ErrTxClosed
	}
	k := string(key)
	delete(tx.writes, k)
	tx.deletes[k] = struct{}{}
	return nil
}

// Pending reports the number of staged operations.
func (tx *Tx) Pending() int {
	return len(tx.writes) + len(tx.deletes)
}

// Commit atomically applies every staged operation to the database.
func (tx *Tx) Commit() error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.closed = true
	if tx.Pending() == 0 {
		return nil
	}
	keys := make([]string, 0, tx.Pending())
	for k := range tx.writes {
		keys = append(keys, k)
	}
	for k := range tx.deletes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := new(storage.Batch)
	for _, k := range keys {
		if value, ok := tx.writes[k]; ok {
			batch.Put([]byte(k), value)
			continue
		}
		batch.Delete([]byte(k))
	}
	tx.manager.mu.Lock()
	defer tx.manager.mu.Unlock()
	if err := tx.manager.db.Write(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	return nil
}

// Discard drops every staged operation.
func (tx *Tx) Discard() {
	tx.closed = true
	tx.writes = nil
	tx.deletes = nil
}
