// Package store persists all users' task data to a single JSON file.
// The document is a map from user id to that user's full state. A mutex
// serializes every load-mutate-save sequence so callers get atomic
// updates without coordinating among themselves.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/sivanlab/mazkir/internal/taskstore"
	"github.com/sivanlab/mazkir/pkg/types"
)

// Store owns the users file. All methods are safe for concurrent use.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a store backed by the given file path. The file does not
// need to exist yet; it is created on first save.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// LoadAll reads every user from disk. A missing or unreadable file
// yields an empty map so a fresh deployment starts clean; only the
// mapping itself is normalized here, the per-user repairs happen in
// loadLocked.
func (s *Store) LoadAll() (map[string]*types.UserData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// LoadUser reads one user's data, returning defaulted empty state for an
// unknown user.
func (s *Store) LoadUser(userID string) (*types.UserData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	data, ok := users[userID]
	if !ok {
		return taskstore.DefaultUserData(), nil
	}
	return data, nil
}

// UpdateUser runs fn against one user's data under the store lock and
// persists the result. The user is created with defaults if absent. When
// fn returns an error nothing is written, so failed mutations leave the
// file untouched.
func (s *Store) UpdateUser(userID string, fn func(*types.UserData) error) (*types.UserData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	data, ok := users[userID]
	if !ok {
		data = taskstore.DefaultUserData()
		users[userID] = data
	}

	if err := fn(data); err != nil {
		return nil, err
	}

	if err := s.saveLocked(users); err != nil {
		return nil, err
	}
	return data, nil
}

// UpdateAll runs fn against the full user map under the store lock. fn
// returns the ids of users it changed; when none changed the file is not
// rewritten.
func (s *Store) UpdateAll(fn func(map[string]*types.UserData) []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadLocked()
	if err != nil {
		return err
	}

	dirty := fn(users)
	if len(dirty) == 0 {
		return nil
	}
	slog.Debug("persisting updated users", "count", len(dirty))
	return s.saveLocked(users)
}

func (s *Store) loadLocked() (map[string]*types.UserData, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("users file unreadable, starting empty", "path", s.path, "error", err)
		}
		return map[string]*types.UserData{}, nil
	}

	users := map[string]*types.UserData{}
	if err := json.Unmarshal(raw, &users); err != nil {
		slog.Warn("users file malformed, starting empty", "path", s.path, "error", err)
		return map[string]*types.UserData{}, nil
	}

	for id, data := range users {
		if data == nil {
			data = taskstore.DefaultUserData()
			users[id] = data
		}
		taskstore.Normalize(data)
	}
	return users, nil
}

// saveLocked writes the full document atomically: marshal to a temp file
// in the same directory, then rename over the target.
func (s *Store) saveLocked(users map[string]*types.UserData) error {
	raw, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshaling users: %v", types.ErrStore, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", types.ErrStore, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".mazkir-users-*.json")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", types.ErrStore, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: writing temp file: %v", types.ErrStore, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: closing temp file: %v", types.ErrStore, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replacing %s: %v", types.ErrStore, s.path, err)
	}
	return nil
}
