package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sitegen/internal/site"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Site      SiteConfig        `yaml:"site"`
	Templates TemplatesConfig   `yaml:"templates"`
	Serve     ServeConfig       `yaml:"serve"`
	Watch     WatchConfig       `yaml:"watch"`
	History   HistoryConfig     `yaml:"history"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	if err := c.Serve.Validate(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return nil
}

// Settings returns the generation settings derived from the site and
// template sections.
func (c *Config) Settings() site.Settings {
	return site.Settings{
		SourceExt:  c.Site.SourceExt,
		OutputExt:  c.Site.OutputExt,
		LayoutDir:  c.Site.LayoutDir,
		Autoescape: c.Templates.Autoescape,
	}
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatText, LogFormatJSON)),
	)
}

// SiteConfig selects which files are documents and where templates live.
type SiteConfig struct {
	SourceExt string `yaml:"source_ext"`
	OutputExt string `yaml:"output_ext"`
	LayoutDir string `yaml:"layout_dir"`
}

var (
	extPattern = regexp.MustCompile(`^\.[A-Za-z0-9_-]+$`)
	extRule    = validation.Match(extPattern).Error("must look like .ext")
)

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SourceExt, validation.Required, extRule),
		validation.Field(&c.OutputExt, validation.Required, extRule),
		validation.Field(&c.LayoutDir, validation.Required),
	)
}

// TemplatesConfig holds template engine switches.
type TemplatesConfig struct {
	Autoescape bool `yaml:"autoescape"`
}

// ServeConfig holds preview server configuration.
type ServeConfig struct {
	Port           int           `yaml:"port"`
	LiveReload     bool          `yaml:"live_reload"`
	ReloadThrottle time.Duration `yaml:"reload_throttle"`
}

// Address returns HTTP server address.
func (c *ServeConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the serve configuration.
func (c *ServeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ReloadThrottle, validation.Min(time.Duration(0))),
	)
}

// WatchConfig holds file watcher configuration.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// HistoryConfig holds the build history database configuration.
//
// Keep bounds how many runs are retained; 0 keeps everything.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Keep    int    `yaml:"keep"`
}

// Validate validates the history configuration.
func (c *HistoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Keep, validation.Min(0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelWarn,
			LogFormat: LogFormatText,
		},
		Site: SiteConfig{
			SourceExt: site.SourceExt,
			OutputExt: site.OutputExt,
			LayoutDir: site.LayoutDir,
		},
		Serve: ServeConfig{
			Port:           8080,
			LiveReload:     true,
			ReloadThrottle: 500 * time.Millisecond,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    "./sitegen.db",
			Keep:    100,
		},
	}
}
