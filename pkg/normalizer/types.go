package normalizer

// Status defines the live processing states of a file as surfaced through
// the Hooks interface (TUI, progress displays).
type Status string

// Constants representing the defined file processing statuses.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// OnErrorMode defines the behavior when a file fails to process.
type OnErrorMode string

const (
	OnErrorContinue OnErrorMode = "continue"
	OnErrorStop     OnErrorMode = "stop"
)

// WriteMode defines how converted content replaces the original file.
type WriteMode string

const (
	// WriteInPlace overwrites the original file atomically.
	WriteInPlace WriteMode = "in-place"
	// WriteBackup saves the original bytes alongside the file before
	// overwriting it.
	WriteBackup WriteMode = "backup"
)

// OutputFormat defines the format for the final summary report printed to
// standard output when the TUI is disabled.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)
