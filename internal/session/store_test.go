package session

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lehigh-university-libraries/cardpress/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{id: "abc", valid: true},
		{id: "2024_run-1", valid: true},
		{id: "", valid: false},
		{id: "../etc", valid: false},
		{id: "a/b", valid: false},
		{id: "with space", valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidID(tt.id))
		})
	}
}

func TestStoreLifecycle(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	sess, err := s.Create("one")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, sess.Status)
	assert.DirExists(t, filepath.Join(root, "one", CardsDir))

	again, err := s.Create("one")
	require.NoError(t, err)
	assert.Equal(t, sess.CreatedAt, again.CreatedAt)

	updated, err := s.Update("one", func(sess *models.Session) {
		sess.Status = models.StatusRendered
		sess.Cards = 3
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Cards)

	got, ok := s.Get("one")
	require.True(t, ok)
	assert.Equal(t, models.StatusRendered, got.Status)

	_, err = s.Create("two")
	require.NoError(t, err)
	all := s.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "one", all[0].ID)

	require.NoError(t, s.Delete("one"))
	_, ok = s.Get("one")
	assert.False(t, ok)
	_, err = os.Stat(filepath.Join(root, "one"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, s.Delete("one"), ErrNotFound)
	_, err = s.Update("one", func(*models.Session) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreRejectsInvalidID(t *testing.T) {
	_, err := New(t.TempDir()).Create("../../x")
	assert.True(t, errors.Is(err, ErrInvalidID))
}

func TestStoreAcquire(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Create("busy")
	require.NoError(t, err)

	require.NoError(t, s.Acquire("busy"))
	assert.ErrorIs(t, s.Acquire("busy"), ErrBusy)
	assert.ErrorIs(t, s.Delete("busy"), ErrBusy)
	s.Release("busy")
	require.NoError(t, s.Acquire("busy"))
	s.Release("busy")

	assert.ErrorIs(t, s.Acquire("nope"), ErrNotFound)
}

func TestStoreAcquireConcurrent(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Create("race")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Acquire("race") == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
