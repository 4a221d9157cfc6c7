package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/cardpress/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG
var pixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

func TestTemplatesLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cupom.html"), []byte("<p>{{VALOR}}</p>"), 0644))

	store := NewTemplates(dir, 0)
	assert.True(t, store.Has(models.TypeCoupon))
	assert.False(t, store.Has(models.TypeBC))

	html, err := store.Load(models.TypeCoupon)
	require.NoError(t, err)
	assert.Equal(t, "<p>{{VALOR}}</p>", html)

	// cached copy survives the file going away
	require.NoError(t, os.Remove(filepath.Join(dir, "cupom.html")))
	html, err = store.Load(models.TypeCoupon)
	require.NoError(t, err)
	assert.Equal(t, "<p>{{VALOR}}</p>", html)

	_, err = store.Load(models.TypeBC)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
}

func TestLogosDataURI(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blank.png"), pixel, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme.png"), pixel, 0644))

	logos := NewLogos(dir, 0)
	require.NoError(t, logos.CheckBlank())

	uri, err := logos.DataURI("acme")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"), uri)

	blank, err := logos.DataURI("")
	require.NoError(t, err)
	assert.Equal(t, uri, blank)

	_, err = logos.DataURI("missing.png")
	assert.True(t, errors.Is(err, ErrLogoNotFound))

	_, err = logos.DataURI("../../etc/passwd")
	assert.True(t, errors.Is(err, ErrLogoNotFound))
}

func TestLogosBlankMissing(t *testing.T) {
	logos := NewLogos(t.TempDir(), 0)
	assert.True(t, errors.Is(logos.CheckBlank(), ErrBlankLogoMissing))

	_, err := logos.DataURI(models.DefaultLogo)
	assert.True(t, errors.Is(err, ErrBlankLogoMissing))
}
