package store

import (
	"context"
	"sync"

	"github.com/sweeney/inkdash/internal/errcode"
)

// MemoryStore keeps the encoded block in memory. It goes through the same
// envelope as the other backends, so a round trip is validated exactly as a
// real one would be.
type MemoryStore struct {
	mu     sync.Mutex
	data   []byte
	period int

	// SaveError, if set, will be returned by Save.
	SaveError error
	// Saves counts successful saves.
	Saves int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(period int) *MemoryStore {
	return &MemoryStore{period: period}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context) (Retained, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return Retained{}, &errcode.E{C: errcode.StorageUnavailable, Op: "store", Msg: "no retained block"}
	}
	return Decode(m.data, m.period)
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, r Retained) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	data, err := Encode(r)
	if err != nil {
		return errcode.New(errcode.StorageUnavailable, "store", err)
	}
	m.data = data
	m.Saves++
	return nil
}

// Raw returns the encoded block, or nil before the first save.
func (m *MemoryStore) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// SetRaw replaces the encoded block, for corruption tests.
func (m *MemoryStore) SetRaw(data []byte) {
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
}
