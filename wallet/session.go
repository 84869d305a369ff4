package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrCorruptSession is returned by Load when stored data cannot be decoded.
var ErrCorruptSession = errors.New("stored wallet session is corrupt")

// sessionKey is the single key the session is stored under.
const sessionKey = "wallet_session"

// WalletSession is the client's proof of authentication.
type WalletSession struct {
	AccessToken   string    `json:"access_token"`
	WalletAddress string    `json:"wallet_address"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the session's expiry has passed. Sessions without
// an expiry never expire client-side.
func (s *WalletSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionStore persists at most one WalletSession. Save overwrites.
// Load returns nil, nil when nothing is stored.
type SessionStore interface {
	Load() (*WalletSession, error)
	Save(s *WalletSession) error
	Clear() error
}

// FileStore keeps the session as {"wallet_session": {...}} in a JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (*WalletSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc map[string]*WalletSession
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, ErrCorruptSession
	}
	s := doc[sessionKey]
	if s == nil {
		return nil, nil
	}
	if s.AccessToken == "" || s.WalletAddress == "" {
		return nil, ErrCorruptSession
	}
	return s, nil
}

func (f *FileStore) Save(s *WalletSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(map[string]*WalletSession{sessionKey: s})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryStore keeps the session in memory.
type MemoryStore struct {
	mu      sync.Mutex
	session *WalletSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (*WalletSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

func (m *MemoryStore) Save(s *WalletSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.session = &cp
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
