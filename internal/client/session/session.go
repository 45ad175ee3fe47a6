// Package session holds the client's access token.
//
// The store is the only writer of the persisted token. Presence of a token
// means "authenticated" for display purposes only; the server decides whether
// it is still valid, and a 401 from any call is the caller's cue to Clear.
package session

import (
	"strings"
	"sync"

	"flashcards/internal/client/config"
)

// TokenKey is the config key the token is persisted under.
const TokenKey = "access_token"

// Store gets, sets and clears the current access token.
type Store interface {
	Get() (string, bool)
	Set(token string) error
	Clear() error
}

// FileStore persists the token in the client config file.
// The token is cached in memory after the first read.
type FileStore struct {
	mu     sync.RWMutex
	token  string
	loaded bool
}

// NewFileStore returns a store backed by the config file.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Get returns the token and whether one is present.
func (s *FileStore) Get() (string, bool) {
	s.mu.RLock()
	if s.loaded {
		tok := s.token
		s.mu.RUnlock()
		return tok, tok != ""
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		cfg, err := config.LoadConfig()
		if err == nil {
			s.token = cfg.AccessToken
		}
		s.loaded = true
	}
	return s.token, s.token != ""
}

// Set persists token. Blank tokens are treated as Clear.
func (s *FileStore) Set(token string) error {
	token = strings.TrimSpace(token)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := config.Update(func(cfg *config.Config) { cfg.AccessToken = token }); err != nil {
		return err
	}
	s.token = token
	s.loaded = true
	return nil
}

// Clear removes the persisted token.
func (s *FileStore) Clear() error {
	return s.Set("")
}

// MemoryStore keeps the token in memory only. Used by tests and one-shot commands.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore returns a store seeded with token (may be empty).
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (s *MemoryStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *MemoryStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
	return nil
}

func (s *MemoryStore) Clear() error {
	return s.Set("")
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
