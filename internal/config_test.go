package internal

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelWarn {
		t.Errorf("default log level = %v, want WARN", cfg.App.LogLevel)
	}
	s := cfg.Settings()
	if s.SourceExt != ".rst" || s.OutputExt != ".html" || s.LayoutDir != "layout" || s.Autoescape {
		t.Errorf("settings = %+v", s)
	}
}

func TestApplicationConfig_EmptyFormatDefaultsText(t *testing.T) {
	cfg := ApplicationConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.LogFormat != LogFormatText {
		t.Errorf("format = %q, want %q", cfg.LogFormat, LogFormatText)
	}
}

func TestApplicationConfig_InvalidFormat(t *testing.T) {
	cfg := ApplicationConfig{LogFormat: "xml"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown log format should fail")
	}
}

func TestSiteConfig_Extensions(t *testing.T) {
	for _, ext := range []string{".md", ".rst", ".htm"} {
		cfg := SiteConfig{SourceExt: ext, OutputExt: ".html", LayoutDir: "layout"}
		if err := cfg.Validate(); err != nil {
			t.Errorf("ext %q should pass: %v", ext, err)
		}
	}
	for _, ext := range []string{"rst", ".", ".a/b", ""} {
		cfg := SiteConfig{SourceExt: ext, OutputExt: ".html", LayoutDir: "layout"}
		if err := cfg.Validate(); err == nil {
			t.Errorf("ext %q should fail", ext)
		}
	}
}

func TestServeConfig_Port(t *testing.T) {
	cfg := ServeConfig{Port: 70000}
	if err := cfg.Validate(); err == nil {
		t.Fatal("out of range port should fail")
	}
	cfg = ServeConfig{Port: 3000}
	if cfg.Address() != ":3000" {
		t.Errorf("address = %q", cfg.Address())
	}
}

func TestWatchConfig_NegativeDebounce(t *testing.T) {
	cfg := WatchConfig{Debounce: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative debounce should fail")
	}
}

func TestHistoryConfig_PathRequiredWhenEnabled(t *testing.T) {
	cfg := HistoryConfig{Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled history without path should fail")
	}
	cfg = HistoryConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled history needs no path: %v", err)
	}
}

func TestFullConfig_ErrorNamesSection(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.History.Keep = -1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch history error")
	}
	if !strings.HasPrefix(err.Error(), "history:") {
		t.Errorf("error = %v", err)
	}
}
