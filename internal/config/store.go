package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Store persists the stream intent to a TOML file so the recovery loader can
// restore the stream after a reboot.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the persisted intent. A missing file returns os.ErrNotExist.
func (s *Store) Load() (*StreamIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var intent StreamIntent
	if err := toml.Unmarshal(data, &intent); err != nil {
		return nil, fmt.Errorf("failed to parse stream config: %w", err)
	}
	return &intent, nil
}

// Save writes the intent, replacing any previous content.
func (s *Store) Save(intent *StreamIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to marshal stream config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write stream config: %w", err)
	}
	return nil
}

// Exists reports whether a persisted config is present.
func (s *Store) Exists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := os.Stat(s.path)
	return err == nil
}
