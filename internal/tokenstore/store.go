// Package tokenstore persists the session access token between runs of the
// portal client. Every implementation stores one opaque string per key and
// reports a missing key as sentinel.ErrNotFound.
package tokenstore

import (
	"context"
	"sync"

	"taskportal/pkg/platform/sentinel"
)

// Store is the persistence contract the session slice depends on.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// Memory keeps the token for the lifetime of the process only.
type Memory struct {
	mu    sync.RWMutex
	token string
	set   bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return "", sentinel.ErrNotFound
	}
	return m.token, nil
}

func (m *Memory) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.set = token, true
	return nil
}

func (m *Memory) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.set = "", false
	return nil
}
