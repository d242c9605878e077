package normalizer

import (
	"log/slog"
	"time"

	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer/encoding"
	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer/script"
)

// Hooks defines callbacks for status updates during a normalization run.
// Implementations MUST be thread-safe as methods may be called concurrently
// from the walker and worker goroutines.
type Hooks interface {
	OnFileDiscovered(path string) error
	OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error
	OnRunComplete(report Report) error
}

// NoOpHooks provides a default, do-nothing implementation of the Hooks
// interface.
type NoOpHooks struct{}

// OnFileDiscovered implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnFileDiscovered(path string) error { return nil }

// OnFileStatusUpdate implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error {
	return nil
}

// OnRunComplete implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnRunComplete(report Report) error { return nil }

// Options holds all configuration for a Normalize run.
type Options struct {
	// --- Core Paths ---
	RootPath string `mapstructure:"root"` // Required: path to the directory tree to normalize

	// --- Application Info ---
	AppVersion string `mapstructure:"-"` // Populated by the caller for reporting/logging

	// --- Behavior & Control ---
	ConfigFilePath string      `mapstructure:"-"`       // Path to the loaded config file (for reporting)
	Verbose        bool        `mapstructure:"verbose"` // Enable debug logging
	TuiEnabled     bool        `mapstructure:"tui"`     // Hint for CLI to use TUI (ignored if Verbose)
	OnErrorMode    OnErrorMode `mapstructure:"onError"` // Behavior on file processing error ("continue", "stop")
	DryRun         bool        `mapstructure:"dryRun"`  // Report what would change without touching the filesystem

	// --- Conversion ---
	Conversion   string    `mapstructure:"conversion"`   // OpenCC conversion name (e.g. "t2s")
	WriteMode    WriteMode `mapstructure:"writeMode"`    // ("in-place", "backup")
	StrictDecode bool      `mapstructure:"strictDecode"` // Fail files whose decode lost bytes to U+FFFD

	// --- Detection ---
	MinConfidence   int    `mapstructure:"minConfidence"`   // Statistical detection confidence floor (0-100)
	DefaultEncoding string `mapstructure:"defaultEncoding"` // Assumed charset when detection fails (empty: skip file)

	// --- Performance ---
	Concurrency int `mapstructure:"concurrency"` // Number of workers (0=auto)

	// --- File Handling & Filtering ---
	Extensions     []string `mapstructure:"extensions"`     // Candidate file extensions (default [".txt"])
	TempFilePrefix string   `mapstructure:"tempFilePrefix"` // Temp-marker prefix excluded from candidacy
	IgnorePatterns []string `mapstructure:"ignore"`         // Glob patterns from config/flags (aggregated with .batchtxtignore)

	// --- Output & Formatting ---
	OutputFormat OutputFormat `mapstructure:"outputFormat"` // ("text", "json") for the final report

	// --- Injected Dependencies & Internal State ---
	EventHooks            Hooks             `mapstructure:"-"` // Optional: callback interface (NoOpHooks when nil)
	Logger                slog.Handler      `mapstructure:"-"` // Required: logging backend
	EncodingDetector      encoding.Detector `mapstructure:"-"` // Optional: charset detection implementation
	ScriptConverter       script.Converter  `mapstructure:"-"` // Optional: script conversion implementation
	DispatchWarnThreshold time.Duration     `mapstructure:"-"` // Internal: threshold for logging slow worker dispatch
}
