package tokenstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/api"
)

// ErrCorrupt is returned by Get when the persisted value cannot be decoded.
var ErrCorrupt = errors.New("persisted session corrupt")

// Persisted is the value kept by a [Store].
type Persisted struct {
	Token   string    `json:"token" yaml:"token"`
	User    *api.User `json:"user,omitempty" yaml:"user,omitempty"`
	SavedAt time.Time `json:"savedAt" yaml:"saved_at"`
}

// Store is the persisted-token collaborator.
//
// Get reports ok=false when nothing is persisted. Clear is idempotent.
type Store interface {
	Get(ctx context.Context) (Persisted, bool, error)
	Set(ctx context.Context, token string, user *api.User) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	value *Persisted
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements [Store].
func (m *MemoryStore) Get(context.Context) (Persisted, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.value == nil {
		return Persisted{}, false, nil
	}
	p := *m.value
	p.User = p.User.Clone()
	return p, true, nil
}

// Set implements [Store].
func (m *MemoryStore) Set(_ context.Context, token string, user *api.User) error {
	if token == "" {
		return errors.New("empty token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = &Persisted{Token: token, User: user.Clone(), SavedAt: time.Now().UTC()}
	return nil
}

// Clear implements [Store].
func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = nil
	return nil
}
