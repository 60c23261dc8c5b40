package storage

import (
	"context"
	"sync"

	"github.com/stepwise/formwizard/pkg/api"
)

// MemoryStore keeps wizard state in process memory. Suited to tests and
// single-process deployments
type MemoryStore struct {
	states map[string]*api.WizardState
	mu     sync.RWMutex
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory state store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: map[string]*api.WizardState{},
	}
}

// Load returns a deep copy of the stored state for key
func (m *MemoryStore) Load(
	_ context.Context, key string,
) (*api.WizardState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.states[key]
	if !ok {
		return nil, ErrNotFound
	}
	return st.Clone(), nil
}

// Save stores a deep copy of st under key
func (m *MemoryStore) Save(
	_ context.Context, key string, st *api.WizardState,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = st.Clone()
	return nil
}

// Delete removes any state stored under key
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

// Len returns the number of stored sessions
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
