// Package session keeps the service's sessions, each isolated in its own
// working directory under a shared root.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/cardpress/internal/models"
)

// CardsDir is the per-session subdirectory holding rendered cards.
const CardsDir = "cards"

var (
	ErrNotFound  = errors.New("session not found")
	ErrBusy      = errors.New("session is busy")
	ErrInvalidID = errors.New("invalid session id")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type entry struct {
	session models.Session
	busy    bool
}

// Store is a SessionStore keyed by session id.
type Store struct {
	root     string
	sessions map[string]*entry
	mu       sync.RWMutex
}

func New(root string) *Store {
	return &Store{
		root:     root,
		sessions: make(map[string]*entry),
	}
}

// ValidID reports whether id is safe to use as a directory name.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Dir is the session's directory.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.root, id)
}

// CardsPath is the session's card working directory.
func (s *Store) CardsPath(id string) string {
	return filepath.Join(s.Dir(id), CardsDir)
}

// Create registers a session and makes its directories. Creating an
// existing id returns the existing session.
func (s *Store) Create(id string) (models.Session, error) {
	if !ValidID(id) {
		return models.Session{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[id]; ok {
		return e.session, nil
	}

	dir := s.Dir(id)
	if err := os.MkdirAll(filepath.Join(dir, CardsDir), 0755); err != nil {
		return models.Session{}, fmt.Errorf("failed to create session directory: %w", err)
	}

	now := time.Now()
	sess := models.Session{
		ID:        id,
		Status:    models.StatusUploaded,
		Dir:       dir,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[id] = &entry{session: sess}
	return sess, nil
}

func (s *Store) Get(id string) (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return models.Session{}, false
	}
	return e.session, true
}

// Update applies fn to the stored session under the store lock.
func (s *Store) Update(id string, fn func(*models.Session)) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return models.Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(&e.session)
	e.session.UpdatedAt = time.Now()
	return e.session, nil
}

// GetAll returns every session, oldest first.
func (s *Store) GetAll() []models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Session, 0, len(s.sessions))
	for _, e := range s.sessions {
		result = append(result, e.session)
	}
	slices.SortFunc(result, func(a, b models.Session) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return result
}

// Acquire marks the session busy; only one stage runs per session at a time.
func (s *Store) Acquire(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.busy {
		return fmt.Errorf("%w: %s", ErrBusy, id)
	}
	e.busy = true
	return nil
}

func (s *Store) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		e.busy = false
	}
}

// Delete forgets the session and removes its directory. A busy session
// cannot be deleted.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.busy {
		return fmt.Errorf("%w: %s", ErrBusy, id)
	}
	delete(s.sessions, id)
	if err := os.RemoveAll(e.session.Dir); err != nil {
		return fmt.Errorf("failed to remove session directory: %w", err)
	}
	return nil
}
