package cart

import (
	"errors"
	"sync"
)

// ErrSlotNotFound is returned by a Store when nothing was saved under a key.
var ErrSlotNotFound = errors.New("cart: slot not found")

// Store is a durable key/value slot holding a serialized cart.
type Store interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
}

// MemoryStore keeps slots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

// Load returns a copy of the slot saved under key.
func (s *MemoryStore) Load(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.slots[key]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return append([]byte(nil), data...), nil
}

// Save replaces the slot under key.
func (s *MemoryStore) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = append([]byte(nil), data...)
	return nil
}
