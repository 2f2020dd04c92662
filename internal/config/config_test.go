package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/a3tai/pdf-rag-ingest/internal/table"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "stdio" {
		t.Errorf("Expected default mode to be 'stdio', got '%s'", cfg.Mode)
	}

	if cfg.Port != 8088 {
		t.Errorf("Expected default port to be 8088, got %d", cfg.Port)
	}

	if cfg.ServerName != "pdf-rag-ingest" {
		t.Errorf("Expected default server name to be 'pdf-rag-ingest', got '%s'", cfg.ServerName)
	}

	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}

	if cfg.MaxDocumentChars != 6000 || cfg.OverlapChars != 800 || cfg.MaxTextPages != 200 {
		t.Errorf("Unexpected output bounds: %d/%d/%d", cfg.MaxDocumentChars, cfg.OverlapChars, cfg.MaxTextPages)
	}

	if cfg.MaxHeaderRows != 4 || cfg.MinRowsForTable != 2 || cfg.MinColsForTable != 2 {
		t.Errorf("Unexpected table thresholds: %d/%d/%d", cfg.MaxHeaderRows, cfg.MinRowsForTable, cfg.MinColsForTable)
	}

	if cfg.HeaderNumericRatio != 0.5 || cfg.EntityTextRatio != 0.7 || cfg.EntityMinValues != 3 {
		t.Errorf("Unexpected heuristics: %v/%v/%d", cfg.HeaderNumericRatio, cfg.EntityTextRatio, cfg.EntityMinValues)
	}

	if cfg.Pages != "all" {
		t.Errorf("Expected default pages to be 'all', got '%s'", cfg.Pages)
	}

	if !cfg.DetectorQuiet || cfg.ParallelDetectors {
		t.Errorf("Expected quiet sequential detectors by default")
	}

	currentDir, _ := os.Getwd()
	if cfg.PDFDirectory != currentDir {
		t.Errorf("Expected default PDF directory to be '%s', got '%s'", currentDir, cfg.PDFDirectory)
	}
}

func TestDefaultConfig_NumericSetsFollowMatcher(t *testing.T) {
	cfg := DefaultConfig()

	if !reflect.DeepEqual(cfg.NumericTokens, table.DefaultNumericTokens) {
		t.Errorf("NumericTokens = %v, want %v", cfg.NumericTokens, table.DefaultNumericTokens)
	}
	if !reflect.DeepEqual(cfg.NumericUnits, table.DefaultNumericUnits) {
		t.Errorf("NumericUnits = %v, want %v", cfg.NumericUnits, table.DefaultNumericUnits)
	}

	cfg.NumericTokens[0] = "changed"
	if table.DefaultNumericTokens[0] == "changed" {
		t.Errorf("DefaultConfig() must not share the matcher's default slice")
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PDFDirectory = t.TempDir()
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid config - stdio mode", mutate: func(c *Config) {}},
		{
			name: "valid config - server mode",
			mutate: func(c *Config) {
				c.Mode = ModeServer
				c.APIKey = "secret"
			},
		},
		{
			name:    "invalid mode",
			mutate:  func(c *Config) { c.Mode = "invalid" },
			wantErr: "mode must be",
		},
		{
			name: "invalid port - too low (server mode)",
			mutate: func(c *Config) {
				c.Mode = ModeServer
				c.APIKey = "secret"
				c.Port = 0
			},
			wantErr: "port",
		},
		{
			name: "invalid port - too high (server mode)",
			mutate: func(c *Config) {
				c.Mode = ModeServer
				c.APIKey = "secret"
				c.Port = 70000
			},
			wantErr: "port",
		},
		{
			name:   "invalid port ignored in stdio mode",
			mutate: func(c *Config) { c.Port = 0 },
		},
		{
			name:    "server mode without api key",
			mutate:  func(c *Config) { c.Mode = ModeServer },
			wantErr: "apikey",
		},
		{
			name:    "empty PDF directory",
			mutate:  func(c *Config) { c.PDFDirectory = "" },
			wantErr: "directory",
		},
		{
			name:    "zero max file size",
			mutate:  func(c *Config) { c.MaxFileSize = 0 },
			wantErr: "file size",
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.MaxDocumentChars = 0 },
			wantErr: "max-document-chars",
		},
		{
			name:    "negative overlap",
			mutate:  func(c *Config) { c.OverlapChars = -1 },
			wantErr: "overlap-chars",
		},
		{
			name:    "overlap equal to chunk size",
			mutate:  func(c *Config) { c.MaxDocumentChars = 6000; c.OverlapChars = 6000 },
			wantErr: "overlap-chars must be smaller",
		},
		{
			name:    "overlap larger than chunk size",
			mutate:  func(c *Config) { c.MaxDocumentChars = 100; c.OverlapChars = 150 },
			wantErr: "overlap-chars must be smaller",
		},
		{
			name:    "zero text pages",
			mutate:  func(c *Config) { c.MaxTextPages = 0 },
			wantErr: "max-text-pages",
		},
		{
			name:    "negative header rows",
			mutate:  func(c *Config) { c.MaxHeaderRows = -1 },
			wantErr: "max-header-rows",
		},
		{
			name:    "negative table threshold",
			mutate:  func(c *Config) { c.MinColsForTable = -2 },
			wantErr: "thresholds",
		},
		{
			name:    "ratio above one",
			mutate:  func(c *Config) { c.EntityTextRatio = 1.5 },
			wantErr: "entity-text-ratio",
		},
		{
			name:    "negative ratio",
			mutate:  func(c *Config) { c.HeaderNumericRatio = -0.1 },
			wantErr: "header-numeric-ratio",
		},
		{
			name:    "non-positive column gap",
			mutate:  func(c *Config) { c.StreamColumnGap = 0 },
			wantErr: "stream-column-gap",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 9000}
	if got := cfg.Address(); got != "localhost:9000" {
		t.Errorf("Address() = %s, want localhost:9000", got)
	}
}

func TestConfigSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level}
			if got := cfg.SlogLevel(); got != tt.want {
				t.Errorf("SlogLevel() = %v, want %v", got, tt.want)
			}
			if cfg.IsDebug() != (tt.level == "debug") {
				t.Errorf("IsDebug() = %v for %s", cfg.IsDebug(), tt.level)
			}
		})
	}
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "top-secret"

	str := cfg.String()
	if strings.Contains(str, "top-secret") {
		t.Errorf("String() leaks the API key: %s", str)
	}
	for _, want := range []string{"Mode: stdio", "Port: 8088", "APIKey: set", "MaxDocumentChars: 6000"} {
		if !strings.Contains(str, want) {
			t.Errorf("String() = %s, want it to contain %q", str, want)
		}
	}
}

func TestConfigValidateDirectoryCreation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "pdfs")

	cfg := DefaultConfig()
	cfg.PDFDirectory = dir

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Validate() should create the PDF directory: %v", err)
	}
}

func TestConfigModes(t *testing.T) {
	cfg := &Config{Mode: ModeServer}
	if !cfg.IsServerMode() || cfg.IsStdioMode() {
		t.Errorf("server mode misreported")
	}

	cfg.Mode = ModeStdio
	if cfg.IsServerMode() || !cfg.IsStdioMode() {
		t.Errorf("stdio mode misreported")
	}
}
