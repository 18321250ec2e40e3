package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultSessionFile is the fixed storage key for the persisted session.
const DefaultSessionFile = "zkresume-wallet-session.json"

// SessionStore persists the wallet session across process restarts.
type SessionStore interface {
	// Load returns the persisted session, or false if none is stored.
	Load() (Session, bool, error)

	// Save persists the session.
	Save(session Session) error

	// Clear removes the persisted session.
	Clear() error
}

// FileSessionStore implements SessionStore using a JSON file.
type FileSessionStore struct {
	filePath string
	mu       sync.Mutex
}

// NewFileSessionStore creates a file-based session store rooted at dir. The
// directory is created if missing.
func NewFileSessionStore(dir string) (*FileSessionStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}

	return &FileSessionStore{
		filePath: filepath.Join(dir, DefaultSessionFile),
	}, nil
}

// Load returns the persisted session, or false if none is stored.
func (s *FileSessionStore) Load() (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return emptySession(), false, nil
		}
		return emptySession(), false, fmt.Errorf("failed to read "+
			"session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return emptySession(), false, fmt.Errorf("failed to unmarshal "+
			"session: %w", err)
	}

	return session, true, nil
}

// Save persists the session.
func (s *FileSessionStore) Save(session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	return nil
}

// Clear removes the persisted session.
func (s *FileSessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	return nil
}

// MemorySessionStore implements SessionStore in memory.
type MemorySessionStore struct {
	session Session
	stored  bool
	mu      sync.Mutex
}

// NewMemorySessionStore creates an in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

// Load returns the stored session, or false if none is stored.
func (s *MemorySessionStore) Load() (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.stored {
		return emptySession(), false, nil
	}

	return s.session, true, nil
}

// Save stores the session.
func (s *MemorySessionStore) Save(session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = session
	s.stored = true

	return nil
}

// Clear removes the stored session.
func (s *MemorySessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = emptySession()
	s.stored = false

	return nil
}
