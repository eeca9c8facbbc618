package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

const memoryAuditLimit = 1000

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	audits   []AuditEntry
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]Session{}, now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, s Session) (Session, error) {
	if s.Token == "" {
		return Session{}, fmt.Errorf("session token is required")
	}
	if s.ObjectKey == "" {
		return Session{}, fmt.Errorf("object key is required")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.Token]; exists {
		return Session{}, fmt.Errorf("session %q already exists", s.Token)
	}
	m.sessions[s.Token] = s
	return s, nil
}

func (m *MemoryStore) Get(_ context.Context, token string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, token)
	return nil
}

// RecordTranslation keeps the most recent audit entries in memory.
func (m *MemoryStore) RecordTranslation(_ context.Context, entry AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = m.now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, entry)
	if len(m.audits) > memoryAuditLimit {
		m.audits = append([]AuditEntry(nil), m.audits[len(m.audits)-memoryAuditLimit:]...)
	}
	return nil
}

func (m *MemoryStore) Audits(token string) []AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AuditEntry, 0)
	for _, entry := range m.audits {
		if entry.SessionToken == token {
			out = append(out, entry)
		}
	}
	return out
}

func (m *MemoryStore) ListCreatedBefore(_ context.Context, before time.Time, limit int) ([]Session, error) {
	m.mu.RLock()
	out := make([]Session, 0)
	for _, s := range m.sessions {
		if s.CreatedAt.Before(before) {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Token < out[j].Token
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
