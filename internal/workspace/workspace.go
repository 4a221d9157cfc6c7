// Package workspace models a session's working directory: the rendered
// single-card documents plus the archive and journal derived from them.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/cardpress/internal/cardname"
)

// ArchiveExt is the extension of card archives.
const ArchiveExt = ".zip"

// Workspace is one working directory and the filename schema its cards use.
type Workspace struct {
	Dir          string
	Schema       cardname.Schema
	JournalName  string
	ManifestName string
}

// New creates a workspace descriptor; call Ensure before writing to it.
func New(dir string, schema cardname.Schema) *Workspace {
	return &Workspace{
		Dir:          dir,
		Schema:       schema,
		JournalName:  "journal.pdf",
		ManifestName: "journal.yaml",
	}
}

// Entry is a rendered card found in the directory.
type Entry struct {
	cardname.Name
	Filename string
	Path     string
	// Seq is the position in directory-listing order.
	Seq int
}

// Ensure creates the directory if needed.
func (w *Workspace) Ensure() error {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create working directory: %w", err)
	}
	return nil
}

// Path joins name onto the working directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// JournalPath is where the combined journal is written.
func (w *Workspace) JournalPath() string {
	return w.Path(w.JournalName)
}

// ManifestPath is where the journal manifest is written.
func (w *Workspace) ManifestPath() string {
	return w.Path(w.ManifestName)
}

// ArchiveName returns the timestamped archive filename for t.
func ArchiveName(t time.Time) string {
	return t.Format("2006-01-02_15-04-05") + ArchiveExt
}

// ListCards returns every file matching the card schema in listing order.
// The journal, archives and temporary files are never cards.
func (w *Workspace) ListCards() ([]Entry, error) {
	dirEntries, err := os.ReadDir(w.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list working directory: %w", err)
	}

	var cards []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || name == w.JournalName {
			continue
		}
		n, err := w.Schema.Parse(name)
		if err != nil {
			continue
		}
		cards = append(cards, Entry{
			Name:     n,
			Filename: name,
			Path:     w.Path(name),
			Seq:      len(cards),
		})
	}
	return cards, nil
}

// Reset removes cards, archives, journal artifacts and leftover temp files
// from a previous run. Unrelated files are left alone.
func (w *Workspace) Reset() error {
	dirEntries, err := os.ReadDir(w.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to list working directory: %w", err)
	}

	removed := 0
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		_, cardErr := w.Schema.Parse(name)
		stale := cardErr == nil ||
			strings.HasSuffix(strings.ToLower(name), ArchiveExt) ||
			name == w.JournalName || name == w.ManifestName ||
			strings.HasSuffix(name, ".tmp")
		if !stale {
			continue
		}
		if err := os.Remove(w.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
		removed++
	}

	slog.Debug("Working directory reset", "dir", w.Dir, "removed", removed)
	return nil
}

// WriteFileAtomic streams content into a temp file next to path and renames
// it into place, so path never holds a partial file.
func WriteFileAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
