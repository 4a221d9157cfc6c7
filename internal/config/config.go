// Package config loads cardpress settings from defaults, an optional YAML file,
// CARDPRESS_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. CARDPRESS_RENDER_WORKERS.
const EnvPrefix = "CARDPRESS"

// Config holds all application configuration.
type Config struct {
	WorkDir      string        `mapstructure:"work_dir" yaml:"work_dir"`
	TemplatesDir string        `mapstructure:"templates_dir" yaml:"templates_dir"`
	LogosDir     string        `mapstructure:"logos_dir" yaml:"logos_dir"`
	Render       RenderConfig  `mapstructure:"render" yaml:"render"`
	Journal      JournalConfig `mapstructure:"journal" yaml:"journal"`
	Server       ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging      LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// RenderConfig controls single-card rendering.
type RenderConfig struct {
	// Width and Height are the fixed card page size in CSS pixels.
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`

	// Workers bounds parallel card rendering; 1 renders strictly in sequence.
	Workers int `mapstructure:"workers" yaml:"workers"`

	// CategoryInFilename selects the <order>_<TYPE>_<CATEGORY>.pdf schema.
	// Renderer and composer must agree on it for the lifetime of a deployment.
	CategoryInFilename bool `mapstructure:"category_in_filename" yaml:"category_in_filename"`

	IdleWait          time.Duration `mapstructure:"idle_wait" yaml:"idle_wait"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	BrowserBin        string        `mapstructure:"browser_bin" yaml:"browser_bin"`
	NoSandbox         bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// JournalConfig controls composite page layout. Lengths are PDF points.
type JournalConfig struct {
	CardsPerPage int     `mapstructure:"cards_per_page" yaml:"cards_per_page"`
	Columns      int     `mapstructure:"columns" yaml:"columns"`
	CardWidth    float64 `mapstructure:"card_width" yaml:"card_width"`
	Gap          float64 `mapstructure:"gap" yaml:"gap"`
	Margin       float64 `mapstructure:"margin" yaml:"margin"`
	BannerHeight float64 `mapstructure:"banner_height" yaml:"banner_height"`
	BannerRadius float64 `mapstructure:"banner_radius" yaml:"banner_radius"`

	// FontPath points at a TTF for banner labels; empty uses the embedded Go Bold face.
	FontPath string `mapstructure:"font_path" yaml:"font_path"`

	OutputName   string `mapstructure:"output_name" yaml:"output_name"`
	ManifestName string `mapstructure:"manifest_name" yaml:"manifest_name"`

	// Seed fixes banner colors across runs; 0 picks a fresh seed each run.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port" yaml:"port"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
	UploadRate      float64       `mapstructure:"upload_rate" yaml:"upload_rate"`
	UploadBurst     int           `mapstructure:"upload_burst" yaml:"upload_burst"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		WorkDir:      "output",
		TemplatesDir: "templates",
		LogosDir:     "templates/logos",
		Render: RenderConfig{
			Width:              1400,
			Height:             2115,
			Workers:            1,
			CategoryInFilename: true,
			IdleWait:           500 * time.Millisecond,
			NavigationTimeout:  30 * time.Second,
			NoSandbox:          true,
			CacheTTL:           5 * time.Minute,
		},
		Journal: JournalConfig{
			CardsPerPage: 15,
			Columns:      3,
			CardWidth:    400,
			Gap:          20,
			Margin:       40,
			BannerHeight: 120,
			BannerRadius: 24,
			OutputName:   "journal.pdf",
			ManifestName: "journal.yaml",
		},
		Server: ServerConfig{
			Port:            "8888",
			MaxUploadBytes:  10 * 1024 * 1024,
			UploadRate:      1,
			UploadBurst:     5,
			ShutdownTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every key with viper so env overrides apply on Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("work_dir", d.WorkDir)
	v.SetDefault("templates_dir", d.TemplatesDir)
	v.SetDefault("logos_dir", d.LogosDir)

	v.SetDefault("render.width", d.Render.Width)
	v.SetDefault("render.height", d.Render.Height)
	v.SetDefault("render.workers", d.Render.Workers)
	v.SetDefault("render.category_in_filename", d.Render.CategoryInFilename)
	v.SetDefault("render.idle_wait", d.Render.IdleWait)
	v.SetDefault("render.navigation_timeout", d.Render.NavigationTimeout)
	v.SetDefault("render.browser_bin", d.Render.BrowserBin)
	v.SetDefault("render.no_sandbox", d.Render.NoSandbox)
	v.SetDefault("render.cache_ttl", d.Render.CacheTTL)

	v.SetDefault("journal.cards_per_page", d.Journal.CardsPerPage)
	v.SetDefault("journal.columns", d.Journal.Columns)
	v.SetDefault("journal.card_width", d.Journal.CardWidth)
	v.SetDefault("journal.gap", d.Journal.Gap)
	v.SetDefault("journal.margin", d.Journal.Margin)
	v.SetDefault("journal.banner_height", d.Journal.BannerHeight)
	v.SetDefault("journal.banner_radius", d.Journal.BannerRadius)
	v.SetDefault("journal.font_path", d.Journal.FontPath)
	v.SetDefault("journal.output_name", d.Journal.OutputName)
	v.SetDefault("journal.manifest_name", d.Journal.ManifestName)
	v.SetDefault("journal.seed", d.Journal.Seed)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	v.SetDefault("server.upload_rate", d.Server.UploadRate)
	v.SetDefault("server.upload_burst", d.Server.UploadBurst)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Load reads configuration into a validated Config. A non-empty configFile must
// exist; otherwise ./cardpress.yaml is used when present.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("cardpress")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fails fast on settings that would break rendering or layout.
func (c *Config) Validate() error {
	var errs []error
	if c.WorkDir == "" {
		errs = append(errs, errors.New("work_dir is required"))
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, fmt.Errorf("render size must be positive, got %dx%d", c.Render.Width, c.Render.Height))
	}
	if c.Render.Workers < 1 {
		errs = append(errs, fmt.Errorf("render.workers must be at least 1, got %d", c.Render.Workers))
	}
	if c.Journal.Columns < 1 {
		errs = append(errs, fmt.Errorf("journal.columns must be at least 1, got %d", c.Journal.Columns))
	}
	if c.Journal.CardsPerPage < 1 {
		errs = append(errs, fmt.Errorf("journal.cards_per_page must be at least 1, got %d", c.Journal.CardsPerPage))
	}
	if c.Journal.CardWidth <= 0 || c.Journal.BannerHeight <= 0 {
		errs = append(errs, errors.New("journal.card_width and journal.banner_height must be positive"))
	}
	if c.Journal.Gap < 0 || c.Journal.Margin < 0 || c.Journal.BannerRadius < 0 {
		errs = append(errs, errors.New("journal gap, margin and banner_radius cannot be negative"))
	}
	if c.Journal.OutputName == "" || c.Journal.ManifestName == "" {
		errs = append(errs, errors.New("journal.output_name and journal.manifest_name are required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
