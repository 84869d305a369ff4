package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryNonceTracker tracks used nonces in process. Single node only.
type MemoryNonceTracker struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

func NewMemoryNonceTracker() *MemoryNonceTracker {
	return &MemoryNonceTracker{used: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryNonceTracker) MarkNonceUsed(_ context.Context, nonce string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for n, exp := range m.used {
		if now.After(exp) {
			delete(m.used, n)
		}
	}

	if _, ok := m.used[nonce]; ok {
		return false, nil
	}
	m.used[nonce] = now.Add(ttl)
	return true, nil
}

// MemoryRevoker holds revoked session ids until their tokens would expire anyway.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevoker) RevokeSession(_ context.Context, sessionID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[sessionID] = m.now().Add(ttl)
	return nil
}

func (m *MemoryRevoker) IsSessionRevoked(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.revoked[sessionID]
	if !ok {
		return false, nil
	}
	if m.now().After(exp) {
		delete(m.revoked, sessionID)
		return false, nil
	}
	return true, nil
}
