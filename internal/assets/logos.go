package assets

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/cardpress/internal/models"
	gocache "github.com/patrickmn/go-cache"
)

var logoExtensions = []string{"", ".png", ".svg", ".jpg", ".jpeg", ".webp", ".gif"}

// Logos resolves logo references to inline data URIs.
type Logos struct {
	dir   string
	cache *gocache.Cache
}

// NewLogos creates a logo store rooted at dir.
func NewLogos(dir string, ttl time.Duration) *Logos {
	return &Logos{dir: dir, cache: newCache(ttl)}
}

// CheckBlank verifies the fallback logo exists.
func (l *Logos) CheckBlank() error {
	if _, err := l.find(models.DefaultLogo); err != nil {
		return fmt.Errorf("%w in %s", ErrBlankLogoMissing, l.dir)
	}
	return nil
}

// DataURI returns the logo as a data: URI. An empty name resolves to the
// blank logo; an unknown name wraps ErrLogoNotFound.
func (l *Logos) DataURI(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = models.DefaultLogo
	}
	if v, ok := l.cache.Get(name); ok {
		return v.(string), nil
	}

	path, err := l.find(name)
	if err != nil {
		if name == models.DefaultLogo {
			return "", fmt.Errorf("%w in %s", ErrBlankLogoMissing, l.dir)
		}
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read logo %s: %w", path, err)
	}

	uri := "data:" + contentType(path, data) + ";base64," + base64.StdEncoding.EncodeToString(data)
	l.cache.SetDefault(name, uri)
	return uri, nil
}

func (l *Logos) find(name string) (string, error) {
	base := filepath.Base(filepath.Clean("/" + name))
	for _, ext := range logoExtensions {
		path := filepath.Join(l.dir, base+ext)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to stat logo %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrLogoNotFound, name)
}

func contentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
