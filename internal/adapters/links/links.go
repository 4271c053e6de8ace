// Package links maintains the user-to-judge-handle mapping backed by a
// JSON file.
package links

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/okian/cfduel/internal/domain/model"
	"github.com/okian/cfduel/pkg/logger"
)

// Fetcher verifies a handle exists on the judge. Satisfied by the judge
// client.
type Fetcher interface {
	Submissions(ctx context.Context, handle string) (model.SubmissionHistory, error)
}

// Store is the handle registry. A handle may be claimed by at most one
// user, compared case-insensitively.
type Store struct {
	mu      sync.Mutex
	path    string
	fetcher Fetcher
	logger  logger.Logger
	handles map[string]string // userID -> handle
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New opens (or creates) the handle store at path. Existing links are
// loaded; a missing file is an empty store.
func New(path string, fetcher Fetcher, opts ...Option) (*Store, error) {
	s := &Store{
		path:    path,
		fetcher: fetcher,
		handles: make(map[string]string),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Named("links")
	}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, ErrLoad)
	}

	if err := json.Unmarshal(raw, &s.handles); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, ErrLoad)
	}
	return s, nil
}

// Link claims handle for userID after checking it against the judge.
// Relinking replaces the user's previous handle.
func (s *Store) Link(ctx context.Context, userID, handle string) error {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return ErrInvalidHandle
	}

	if _, err := s.fetcher.Submissions(ctx, handle); err != nil {
		return fmt.Errorf("verify %q: %w", handle, ErrInvalidHandle)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for uid, h := range s.handles {
		if uid != userID && strings.EqualFold(h, handle) {
			return ErrHandleTaken
		}
	}

	prev, had := s.handles[userID]
	s.handles[userID] = handle
	if err := s.persist(); err != nil {
		// roll back the in-memory state so memory and disk agree
		if had {
			s.handles[userID] = prev
		} else {
			delete(s.handles, userID)
		}
		s.logger.Error(ctx, "handle store write failed",
			logger.String("user_id", userID),
			logger.Error(err),
		)
		return err
	}
	return nil
}

// Unlink removes userID's handle, if any.
func (s *Store) Unlink(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.handles[userID]
	if !ok {
		return ErrNotLinked
	}

	delete(s.handles, userID)
	if err := s.persist(); err != nil {
		s.handles[userID] = prev
		s.logger.Error(ctx, "handle store write failed",
			logger.String("user_id", userID),
			logger.Error(err),
		)
		return err
	}
	return nil
}

// Handle returns userID's linked handle.
func (s *Store) Handle(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[userID]
	return h, ok
}

// All returns a copy of the full mapping.
func (s *Store) All() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.handles))
	for uid, h := range s.handles {
		out[uid] = h
	}
	return out
}

func (s *Store) persist() error {
	raw, err := json.MarshalIndent(s.handles, "", "  ")
	if err != nil {
		return fmt.Errorf("encode handles: %w", ErrPersist)
	}

	tmp := s.path + ".tmp"
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, ErrPersist)
		}
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, ErrPersist)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, ErrPersist)
	}
	return nil
}
