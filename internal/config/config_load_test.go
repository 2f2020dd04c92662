package config

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func newFlagSet() *pflag.FlagSet {
	return pflag.NewFlagSet("pdf-rag-ingest", pflag.ContinueOnError)
}

func TestLoad_DefaultConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(newFlagSet(), []string{"--dir=" + dir})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("Load() Mode = %v, want %v", cfg.Mode, "stdio")
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Load() Host = %v, want %v", cfg.Host, "127.0.0.1")
	}
	if cfg.Port != 8088 {
		t.Errorf("Load() Port = %v, want %v", cfg.Port, 8088)
	}
	if cfg.PDFDirectory != dir {
		t.Errorf("Load() PDFDirectory = %v, want %v", cfg.PDFDirectory, dir)
	}
	if !reflect.DeepEqual(cfg.NumericUnits, DefaultConfig().NumericUnits) {
		t.Errorf("Load() NumericUnits = %v, want defaults", cfg.NumericUnits)
	}
}

func TestLoad_ValidFlags(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(newFlagSet(), []string{
		"--dir=" + dir,
		"--mode=server",
		"--apikey=secret",
		"--host=0.0.0.0",
		"--port=9090",
		"--loglevel=debug",
		"--pages=1-3",
		"--max-document-chars=1200",
		"--overlap-chars=100",
		"--max-header-rows=2",
		"--entity-text-ratio=0.8",
		"--numeric-units=€,%",
		"--parallel-detectors",
		"--stream-column-gap=12.5",
	})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Mode != "server" || cfg.APIKey != "secret" {
		t.Errorf("Load() Mode/APIKey = %v/%v", cfg.Mode, cfg.APIKey)
	}
	if cfg.Address() != "0.0.0.0:9090" {
		t.Errorf("Load() Address = %v, want 0.0.0.0:9090", cfg.Address())
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Load() LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.Pages != "1-3" {
		t.Errorf("Load() Pages = %v, want 1-3", cfg.Pages)
	}
	if cfg.MaxDocumentChars != 1200 || cfg.OverlapChars != 100 || cfg.MaxHeaderRows != 2 {
		t.Errorf("Load() bounds = %d/%d/%d", cfg.MaxDocumentChars, cfg.OverlapChars, cfg.MaxHeaderRows)
	}
	if cfg.EntityTextRatio != 0.8 {
		t.Errorf("Load() EntityTextRatio = %v, want 0.8", cfg.EntityTextRatio)
	}
	if !reflect.DeepEqual(cfg.NumericUnits, []string{"€", "%"}) {
		t.Errorf("Load() NumericUnits = %v", cfg.NumericUnits)
	}
	if !cfg.ParallelDetectors {
		t.Errorf("Load() ParallelDetectors = false, want true")
	}
	if cfg.StreamColumnGap != 12.5 {
		t.Errorf("Load() StreamColumnGap = %v, want 12.5", cfg.StreamColumnGap)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("PDF_RAG_MODE", "server")
	t.Setenv("PDF_RAG_PORT", "3000")
	t.Setenv("PDF_RAG_DIR", t.TempDir())
	t.Setenv("PDF_RAG_LOGLEVEL", "warn")
	t.Setenv("PDF_RAG_APIKEY", "from-env")
	t.Setenv("PDF_RAG_MAX_TEXT_PAGES", "12")
	t.Setenv("PDF_RAG_DETECTOR_QUIET", "false")

	cfg, err := Load(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Mode != "server" || cfg.Port != 3000 || cfg.LogLevel != "warn" {
		t.Errorf("Load() = %s", cfg)
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("Load() APIKey = %v, want from-env", cfg.APIKey)
	}
	if cfg.MaxTextPages != 12 {
		t.Errorf("Load() MaxTextPages = %v, want 12", cfg.MaxTextPages)
	}
	if cfg.DetectorQuiet {
		t.Errorf("Load() DetectorQuiet = true, want false")
	}
}

func TestLoad_LegacyEnvironmentVariables(t *testing.T) {
	t.Setenv("ENGINE_API_KEY", "legacy")
	t.Setenv("PDF_PAGES", "2-4")
	t.Setenv("MAX_DOC_CHARS", "3000")
	t.Setenv("OVERLAP_CHARS", "300")

	cfg, err := Load(newFlagSet(), []string{"--dir=" + t.TempDir()})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.APIKey != "legacy" || cfg.Pages != "2-4" {
		t.Errorf("Load() APIKey/Pages = %v/%v", cfg.APIKey, cfg.Pages)
	}
	if cfg.MaxDocumentChars != 3000 || cfg.OverlapChars != 300 {
		t.Errorf("Load() chunking = %d/%d", cfg.MaxDocumentChars, cfg.OverlapChars)
	}
}

func TestLoad_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("PDF_RAG_MODE", "server")
	t.Setenv("PDF_RAG_HOST", "192.168.1.1")
	t.Setenv("PDF_RAG_PORT", "3000")

	cfg, err := Load(newFlagSet(), []string{"--mode=stdio", "--host=localhost", "--port=8888", "--dir=" + t.TempDir()})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("Load() Mode = %v, want %v (should override env)", cfg.Mode, "stdio")
	}
	if cfg.Host != "localhost" {
		t.Errorf("Load() Host = %v, want %v (should override env)", cfg.Host, "localhost")
	}
	if cfg.Port != 8888 {
		t.Errorf("Load() Port = %v, want %v (should override env)", cfg.Port, 8888)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"invalid mode", []string{"--mode=invalid"}, "mode must be either 'stdio' or 'server'"},
		{"invalid port", []string{"--mode=server", "--apikey=k", "--port=99999"}, "port must be between"},
		{"invalid log level", []string{"--loglevel=verbose"}, "invalid log level"},
		{"server without key", []string{"--mode=server"}, "apikey is required"},
		{"unknown flag", []string{"--nope"}, "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--dir=" + t.TempDir()}, tt.args...)
			_, err := Load(newFlagSet(), args)
			if err == nil {
				t.Fatalf("Load() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_VersionFlag(t *testing.T) {
	_, err := Load(newFlagSet(), []string{"--version"})
	if !errors.Is(err, ErrVersionRequested) {
		t.Errorf("Load() error = %v, want ErrVersionRequested", err)
	}
}

func TestLoadFromFlags_UsesProcessArguments(t *testing.T) {
	originalArgs := os.Args
	originalFlags := pflag.CommandLine
	defer func() {
		os.Args = originalArgs
		pflag.CommandLine = originalFlags
	}()

	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	os.Args = []string{"pdf-rag-ingest", "--dir=" + t.TempDir(), "--port=7000"}

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if cfg.Port != 7000 {
		t.Errorf("LoadFromFlags() Port = %v, want 7000", cfg.Port)
	}
}
