package persist

import (
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store used for tests and for hosts whose
// save/load mechanism carries the bytes itself.
type MemoryStore struct {
	mu      sync.Mutex
	payload []byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveQueues snapshots the state.
func (s *MemoryStore) SaveQueues(state QueueState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling queue state: %w", err)
	}
	s.mu.Lock()
	s.payload = payload
	s.mu.Unlock()
	return nil
}

// LoadQueues returns the last saved state, found=false if never saved.
func (s *MemoryStore) LoadQueues() (QueueState, bool, error) {
	s.mu.Lock()
	payload := s.payload
	s.mu.Unlock()
	if payload == nil {
		return QueueState{}, false, nil
	}
	var state QueueState
	if err := json.Unmarshal(payload, &state); err != nil {
		return QueueState{}, false, fmt.Errorf("unmarshalling queue state: %w", err)
	}
	return state, true, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
