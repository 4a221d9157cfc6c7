package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, 15, cfg.Journal.CardsPerPage)
	assert.Equal(t, 1400, cfg.Render.Width)
	assert.Equal(t, 2115, cfg.Render.Height)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cardpress.yaml")
	content := `
work_dir: /tmp/cards
render:
  workers: 4
  idle_wait: 2s
journal:
  cards_per_page: 9
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("CARDPRESS_JOURNAL_COLUMNS", "4")
	t.Setenv("CARDPRESS_LOGGING_FORMAT", "json")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/cards", cfg.WorkDir)
	assert.Equal(t, 4, cfg.Render.Workers)
	assert.Equal(t, 2*time.Second, cfg.Render.IdleWait)
	assert.Equal(t, 9, cfg.Journal.CardsPerPage)
	assert.Equal(t, 4, cfg.Journal.Columns)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Render.CategoryInFilename)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero width", mutate: func(c *Config) { c.Render.Width = 0 }},
		{name: "no workers", mutate: func(c *Config) { c.Render.Workers = 0 }},
		{name: "no columns", mutate: func(c *Config) { c.Journal.Columns = 0 }},
		{name: "no capacity", mutate: func(c *Config) { c.Journal.CardsPerPage = 0 }},
		{name: "negative gap", mutate: func(c *Config) { c.Journal.Gap = -1 }},
		{name: "no work dir", mutate: func(c *Config) { c.WorkDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}
