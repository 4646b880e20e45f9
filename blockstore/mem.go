package blockstore

import (
	"sync"

	"github.com/rhizomedb/rhizome/cid"
)

// Mem is an in-memory Blockstore, the reactor's default and the
// implementation every test in this module uses.
type Mem struct {
	mu     sync.RWMutex
	blocks map[cid.Cid][]byte
}

// NewMem returns an empty Mem blockstore.
func NewMem() *Mem {
	return &Mem{blocks: map[cid.Cid][]byte{}}
}

func (m *Mem) Has(c cid.Cid) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blocks[c]
	return ok, nil
}

func (m *Mem) Get(c cid.Cid) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blocks[c]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// PutKeyed stores data under c. Re-putting an existing Cid is a silent
// no-op (spec.md §6: blocks are immutable).
func (m *Mem) PutKeyed(c cid.Cid, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[c]; ok {
		return nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blocks[c] = cp
	return nil
}

// Len reports the number of distinct blocks stored, for tests.
func (m *Mem) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}
