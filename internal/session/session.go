// Package session persists the opaque per-device identity a participant
// plays under. Core packages never read it; they receive the id as an
// argument.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Store struct {
	mu    sync.Mutex
	path  string
	id    string
	newID func() string
}

// New returns a Store persisted at path. An empty path keeps the id in
// memory only.
func New(path string) *Store {
	return &Store{path: path, newID: uuid.NewString}
}

// GetOrCreate returns the persisted id, generating and persisting a fresh one
// first when none exists.
func (s *Store) GetOrCreate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.load()
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = s.newID()
	if err := s.save(id); err != nil {
		return "", err
	}
	return id, nil
}

// Rotate replaces the persisted id with a fresh one. Every room seat gets
// its own id, so creating or joining a room rotates.
func (s *Store) Rotate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	if err := s.save(id); err != nil {
		return "", err
	}
	return id, nil
}

// Current returns the persisted id, or "" when there is none.
func (s *Store) Current() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Clear forgets the persisted id. Clearing an absent session is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

func (s *Store) load() (string, error) {
	if s.id != "" || s.path == "" {
		return s.id, nil
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading session: %w", err)
	}
	s.id = strings.TrimSpace(string(b))
	return s.id, nil
}

func (s *Store) save(id string) error {
	if s.path != "" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
			return fmt.Errorf("creating session dir: %w", err)
		}
		tmp := s.path + ".tmp"
		if err := os.WriteFile(tmp, []byte(id+"\n"), 0o600); err != nil {
			return fmt.Errorf("writing session: %w", err)
		}
		if err := os.Rename(tmp, s.path); err != nil {
			return fmt.Errorf("replacing session: %w", err)
		}
	}
	s.id = id
	return nil
}
