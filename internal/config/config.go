package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/pdf-rag-ingest/internal/table"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8088
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultPages       = "all"

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable, e.g. PDF_RAG_PORT.
	EnvPrefix = "PDF_RAG"
)

// ErrVersionRequested is returned by Load when --version was passed.
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the ingestion engine
type Config struct {
	// Server configuration
	Mode   string // "server" or "stdio"
	Host   string
	Port   int
	APIKey string

	// Directory that MCP tool paths must live in
	PDFDirectory string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum upload size in bytes

	// Output bounds
	Pages            string
	MaxDocumentChars int
	OverlapChars     int
	MaxTextPages     int

	// Table recovery
	MaxHeaderRows      int
	MinRowsForTable    int
	MinColsForTable    int
	HeaderNumericRatio float64
	EntityTextRatio    float64
	EntityMinValues    int
	NumericTokens      []string
	NumericUnits       []string
	ParallelDetectors  bool
	DetectorQuiet      bool

	// Detector tuning, in points
	LatticeMinLineLength      float64
	LatticeAlignmentTolerance float64
	StreamColumnGap           float64
	StreamSnapTolerance       float64
	LayoutMinConfidence       float64
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:         ModeStdio,
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: currentDir,
		Version:      "1.0.0",
		ServerName:   "pdf-rag-ingest",
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,

		Pages:            DefaultPages,
		MaxDocumentChars: 6000,
		OverlapChars:     800,
		MaxTextPages:     200,

		MaxHeaderRows:      4,
		MinRowsForTable:    2,
		MinColsForTable:    2,
		HeaderNumericRatio: 0.5,
		EntityTextRatio:    0.7,
		EntityMinValues:    3,
		NumericTokens:      slices.Clone(table.DefaultNumericTokens),
		NumericUnits:       slices.Clone(table.DefaultNumericUnits),
		DetectorQuiet:      true,

		LatticeMinLineLength:      10,
		LatticeAlignmentTolerance: 3,
		StreamColumnGap:           8,
		StreamSnapTolerance:       3,
		LayoutMinConfidence:       0.5,
	}
}

// LoadFromFlags parses the process command line and returns a configuration
func LoadFromFlags() (*Config, error) {
	setupUsageMessage()
	return Load(pflag.CommandLine, os.Args[1:])
}

// Load defines the configuration flags on fs, parses args and resolves the
// final values from flags, environment and defaults, in that order.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	DefineFlags(fs, DefaultConfig())

	// Check for version flag before parsing
	if err := checkVersionFlag(args); err != nil {
		return nil, err
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return FromFlagSet(fs)
}

// FromFlagSet resolves a configuration from flags already defined with
// DefineFlags and parsed, falling back to the environment and defaults.
func FromFlagSet(fs *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	setupViperEnvironment(v, cfg)
	bindFlagsToViper(v, fs)
	populateConfigFromViper(v, cfg)

	// Expand paths if needed
	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Variable names understood by earlier deployments of the engine.
	_ = v.BindEnv("apikey", EnvPrefix+"_APIKEY", "ENGINE_API_KEY")
	_ = v.BindEnv("pages", EnvPrefix+"_PAGES", "PDF_PAGES")
	_ = v.BindEnv("max-document-chars", EnvPrefix+"_MAX_DOCUMENT_CHARS", "MAX_DOC_CHARS")
	_ = v.BindEnv("overlap-chars", EnvPrefix+"_OVERLAP_CHARS", "OVERLAP_CHARS")
	_ = v.BindEnv("max-text-pages", EnvPrefix+"_MAX_TEXT_PAGES", "MAX_TEXT_PAGES")
	_ = v.BindEnv("max-header-rows", EnvPrefix+"_MAX_HEADER_ROWS", "MAX_HEADER_ROWS")
	_ = v.BindEnv("min-rows-for-table", EnvPrefix+"_MIN_ROWS_FOR_TABLE", "MIN_ROWS_FOR_TABLE")
	_ = v.BindEnv("min-cols-for-table", EnvPrefix+"_MIN_COLS_FOR_TABLE", "MIN_COLS_FOR_TABLE")

	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("dir", cfg.PDFDirectory)
	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("maxfilesize", cfg.MaxFileSize)
	v.SetDefault("apikey", cfg.APIKey)
	v.SetDefault("pages", cfg.Pages)
	v.SetDefault("max-document-chars", cfg.MaxDocumentChars)
	v.SetDefault("overlap-chars", cfg.OverlapChars)
	v.SetDefault("max-text-pages", cfg.MaxTextPages)
	v.SetDefault("max-header-rows", cfg.MaxHeaderRows)
	v.SetDefault("min-rows-for-table", cfg.MinRowsForTable)
	v.SetDefault("min-cols-for-table", cfg.MinColsForTable)
	v.SetDefault("header-numeric-ratio", cfg.HeaderNumericRatio)
	v.SetDefault("entity-text-ratio", cfg.EntityTextRatio)
	v.SetDefault("entity-min-values", cfg.EntityMinValues)
	v.SetDefault("numeric-tokens", cfg.NumericTokens)
	v.SetDefault("numeric-units", cfg.NumericUnits)
	v.SetDefault("parallel-detectors", cfg.ParallelDetectors)
	v.SetDefault("detector-quiet", cfg.DetectorQuiet)
	v.SetDefault("lattice-min-line-length", cfg.LatticeMinLineLength)
	v.SetDefault("lattice-alignment-tolerance", cfg.LatticeAlignmentTolerance)
	v.SetDefault("stream-column-gap", cfg.StreamColumnGap)
	v.SetDefault("stream-snap-tolerance", cfg.StreamSnapTolerance)
	v.SetDefault("layout-min-confidence", cfg.LayoutMinConfidence)
}

// DefineFlags sets up all command line flags on fs
func DefineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("dir", cfg.PDFDirectory, "Directory containing PDF files (stdio mode)")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum upload size in bytes")
	fs.String("apikey", cfg.APIKey, "Bearer token required by PUT /process (server mode only)")

	fs.String("pages", cfg.Pages, "Page selection, e.g. 'all', '1-5', '1,3,even'")
	fs.Int("max-document-chars", cfg.MaxDocumentChars, "Maximum characters per emitted document")
	fs.Int("overlap-chars", cfg.OverlapChars, "Characters shared by consecutive chunks")
	fs.Int("max-text-pages", cfg.MaxTextPages, "Pages read by the text fallback")

	fs.Int("max-header-rows", cfg.MaxHeaderRows, "Maximum leading rows folded into column names")
	fs.Int("min-rows-for-table", cfg.MinRowsForTable, "Minimum body rows of an accepted table")
	fs.Int("min-cols-for-table", cfg.MinColsForTable, "Minimum columns of an accepted table")
	fs.Float64("header-numeric-ratio", cfg.HeaderNumericRatio, "Maximum share of numeric-like cells in a header row")
	fs.Float64("entity-text-ratio", cfg.EntityTextRatio, "Minimum share of textual first-column values for row documents")
	fs.Int("entity-min-values", cfg.EntityMinValues, "Minimum non-empty first-column values for row documents")
	fs.StringSlice("numeric-tokens", cfg.NumericTokens, "Words treated as numeric-like cell values")
	fs.StringSlice("numeric-units", cfg.NumericUnits, "Unit suffixes allowed after a number")
	fs.Bool("parallel-detectors", cfg.ParallelDetectors, "Run table detectors concurrently")
	fs.Bool("detector-quiet", cfg.DetectorQuiet, "Suppress per-page detector diagnostics")

	fs.Float64("lattice-min-line-length", cfg.LatticeMinLineLength, "Shortest ruling considered by the lattice detector")
	fs.Float64("lattice-alignment-tolerance", cfg.LatticeAlignmentTolerance, "Ruling alignment tolerance")
	fs.Float64("stream-column-gap", cfg.StreamColumnGap, "Horizontal gap that separates stream cells")
	fs.Float64("stream-snap-tolerance", cfg.StreamSnapTolerance, "Tolerance when aligning stream columns and rows")
	fs.Float64("layout-min-confidence", cfg.LayoutMinConfidence, "Minimum confidence of layout tables")
}

// bindFlagsToViper binds every flag on fs to the viper key of the same name
func bindFlagsToViper(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPDF RAG Ingest - turns PDF tables into retrieval documents\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# MCP stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --apikey=secret            # HTTP server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=9000 # server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  Every flag maps to %s_<FLAG>, dashes replaced by underscores,\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  e.g. %s_MAX_DOCUMENT_CHARS. ENGINE_API_KEY, PDF_PAGES, MAX_DOC_CHARS,\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  OVERLAP_CHARS and MAX_TEXT_PAGES are also honoured.\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag(args []string) error {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.PDFDirectory = v.GetString("dir")
	cfg.LogLevel = v.GetString("loglevel")
	cfg.MaxFileSize = v.GetInt64("maxfilesize")
	cfg.APIKey = v.GetString("apikey")

	cfg.Pages = v.GetString("pages")
	cfg.MaxDocumentChars = v.GetInt("max-document-chars")
	cfg.OverlapChars = v.GetInt("overlap-chars")
	cfg.MaxTextPages = v.GetInt("max-text-pages")

	cfg.MaxHeaderRows = v.GetInt("max-header-rows")
	cfg.MinRowsForTable = v.GetInt("min-rows-for-table")
	cfg.MinColsForTable = v.GetInt("min-cols-for-table")
	cfg.HeaderNumericRatio = v.GetFloat64("header-numeric-ratio")
	cfg.EntityTextRatio = v.GetFloat64("entity-text-ratio")
	cfg.EntityMinValues = v.GetInt("entity-min-values")
	cfg.NumericTokens = v.GetStringSlice("numeric-tokens")
	cfg.NumericUnits = v.GetStringSlice("numeric-units")
	cfg.ParallelDetectors = v.GetBool("parallel-detectors")
	cfg.DetectorQuiet = v.GetBool("detector-quiet")

	cfg.LatticeMinLineLength = v.GetFloat64("lattice-min-line-length")
	cfg.LatticeAlignmentTolerance = v.GetFloat64("lattice-alignment-tolerance")
	cfg.StreamColumnGap = v.GetFloat64("stream-column-gap")
	cfg.StreamSnapTolerance = v.GetFloat64("stream-snap-tolerance")
	cfg.LayoutMinConfidence = v.GetFloat64("layout-min-confidence")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer {
		if c.Port < 1 || c.Port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		if c.APIKey == "" {
			return errors.New("apikey is required in server mode")
		}
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// Check if PDF directory exists, create if it doesn't
	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if _, ok := logLevels[c.LogLevel]; !ok {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	switch {
	case c.MaxDocumentChars < 1:
		return errors.New("max-document-chars must be positive")
	case c.OverlapChars < 0:
		return errors.New("overlap-chars cannot be negative")
	case c.OverlapChars >= c.MaxDocumentChars:
		return errors.New("overlap-chars must be smaller than max-document-chars")
	case c.MaxTextPages < 1:
		return errors.New("max-text-pages must be positive")
	case c.MaxHeaderRows < 0:
		return errors.New("max-header-rows cannot be negative")
	case c.MinRowsForTable < 0 || c.MinColsForTable < 0:
		return errors.New("table thresholds cannot be negative")
	case c.EntityMinValues < 0:
		return errors.New("entity-min-values cannot be negative")
	}

	for name, ratio := range map[string]float64{
		"header-numeric-ratio":  c.HeaderNumericRatio,
		"entity-text-ratio":     c.EntityTextRatio,
		"layout-min-confidence": c.LayoutMinConfidence,
	} {
		if ratio < 0 || ratio > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", name, ratio)
		}
	}

	for name, pts := range map[string]float64{
		"lattice-min-line-length":     c.LatticeMinLineLength,
		"lattice-alignment-tolerance": c.LatticeAlignmentTolerance,
		"stream-column-gap":           c.StreamColumnGap,
		"stream-snap-tolerance":       c.StreamSnapTolerance,
	} {
		if pts <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, pts)
		}
	}

	return nil
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	if lvl, ok := logLevels[c.LogLevel]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration. The API key
// is never printed.
func (c *Config) String() string {
	key := "unset"
	if c.APIKey != "" {
		key = "set"
	}
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"APIKey: %s, Pages: %s, MaxDocumentChars: %d, OverlapChars: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.LogLevel, c.MaxFileSize,
		key, c.Pages, c.MaxDocumentChars, c.OverlapChars)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
