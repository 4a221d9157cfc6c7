// Package assets provides the card template store and the logo store.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/cardpress/internal/models"
	gocache "github.com/patrickmn/go-cache"
)

var (
	// ErrTemplateNotFound means no markup template exists for a type tag.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrLogoNotFound means a referenced logo file does not exist.
	ErrLogoNotFound = errors.New("logo not found")
	// ErrBlankLogoMissing means the required fallback logo is absent.
	ErrBlankLogoMissing = errors.New("fallback blank logo is missing")
)

// Templates loads <dir>/<tag>.html files, caching their contents.
type Templates struct {
	dir   string
	cache *gocache.Cache
}

// NewTemplates creates a template store; ttl <= 0 caches for the store's lifetime.
func NewTemplates(dir string, ttl time.Duration) *Templates {
	return &Templates{dir: dir, cache: newCache(ttl)}
}

// Path returns the template file path for tag.
func (t *Templates) Path(tag models.TypeTag) string {
	return filepath.Join(t.dir, string(tag)+".html")
}

// Has reports whether a template file exists for tag.
func (t *Templates) Has(tag models.TypeTag) bool {
	info, err := os.Stat(t.Path(tag))
	return err == nil && !info.IsDir()
}

// Load returns the markup for tag. A missing file wraps ErrTemplateNotFound;
// any other read failure is returned as is.
func (t *Templates) Load(tag models.TypeTag) (string, error) {
	key := string(tag)
	if v, ok := t.cache.Get(key); ok {
		return v.(string), nil
	}

	data, err := os.ReadFile(t.Path(tag))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, t.Path(tag))
		}
		return "", fmt.Errorf("failed to read template %s: %w", t.Path(tag), err)
	}

	html := string(data)
	t.cache.SetDefault(key, html)
	return html, nil
}

func newCache(ttl time.Duration) *gocache.Cache {
	if ttl <= 0 {
		return gocache.New(gocache.NoExpiration, 0)
	}
	return gocache.New(ttl, 2*ttl)
}
