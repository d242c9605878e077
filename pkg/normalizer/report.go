package normalizer

import "time"

// Report summarizes the result of a single Normalize run.
type Report struct {
	Summary   ReportSummary `json:"summary"`
	Converted []FileResult  `json:"convertedFiles"`
	Skipped   []SkippedInfo `json:"skippedFiles"`
	Errors    []ErrorInfo   `json:"errors"`
}

// ReportSummary contains aggregated statistics for a Normalize run.
type ReportSummary struct {
	RunID                  string    `json:"runId"`
	RootPath               string    `json:"rootPath"`
	ConfigFilePath         string    `json:"configFilePath,omitempty"`
	Conversion             string    `json:"conversion"`
	DryRun                 bool      `json:"dryRun,omitempty"`
	TotalFilesScanned      int       `json:"totalFilesScanned"`
	ConvertedCount         int       `json:"convertedCount"`
	AlreadyNormalizedCount int       `json:"alreadyNormalizedCount"`
	UnknownEncodingCount   int       `json:"unknownEncodingCount"`
	RenamedCount           int       `json:"renamedCount"`
	RenameCollisionCount   int       `json:"renameCollisionCount"`
	ErrorCount             int       `json:"errorCount"`
	FatalErrorOccurred     bool      `json:"fatalError"`
	DurationSeconds        float64   `json:"durationSeconds"`
	Concurrency            int       `json:"concurrency"`
	Timestamp              time.Time `json:"timestamp"`
	SchemaVersion          string    `json:"schemaVersion,omitempty"`
}

// FileResult details a single file whose content was converted. Path is the
// file's current relative location; OriginalPath is set when the file was
// renamed during the run.
type FileResult struct {
	Path            string `json:"path"`
	OriginalPath    string `json:"originalPath,omitempty"`
	FromEncoding    string `json:"fromEncoding"`
	Renamed         bool   `json:"renamed,omitempty"`
	RenameCollision bool   `json:"renameCollision,omitempty"`
	SizeBytes       int64  `json:"sizeBytes"`
	DurationMs      int64  `json:"durationMs"`
}

// SkippedInfo details a file whose content was intentionally left untouched.
// The rename fields are still meaningful: a file can be renamed (or refuse a
// rename) and then skip content conversion.
type SkippedInfo struct {
	Path            string `json:"path"`
	OriginalPath    string `json:"originalPath,omitempty"`
	Reason          string `json:"reason"`
	Details         string `json:"details,omitempty"`
	Renamed         bool   `json:"renamed,omitempty"`
	RenameCollision bool   `json:"renameCollision,omitempty"`
}

// ErrorInfo details an error encountered while processing a specific file.
// The rename fields mirror FileResult's: the rename step runs first, so a
// file can be renamed and still fail content processing.
type ErrorInfo struct {
	Path            string `json:"path"`
	OriginalPath    string `json:"originalPath,omitempty"`
	Error           string `json:"error"`
	Renamed         bool   `json:"renamed,omitempty"`
	RenameCollision bool   `json:"renameCollision,omitempty"`
	IsFatal         bool   `json:"isFatal"`
}
