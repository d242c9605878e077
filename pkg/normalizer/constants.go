package normalizer

// Constants defining default values for configuration options. These are
// used when setting up Viper defaults in the configuration loading process.
const (
	// DefaultConversion is the OpenCC conversion applied when none is
	// configured: Traditional to Simplified.
	DefaultConversion = "t2s"
	// DefaultConcurrency determines the default number of workers. 0 means
	// runtime.NumCPU().
	DefaultConcurrency = 0
	// DefaultTuiEnabled is the default state for the Terminal UI.
	DefaultTuiEnabled = true
	// DefaultOnErrorMode is the default behavior on file errors.
	DefaultOnErrorMode = OnErrorContinue
	// DefaultWriteMode is the default strategy for replacing file content.
	DefaultWriteMode = WriteInPlace
	// DefaultOutputFormat is the default format for the final summary report.
	DefaultOutputFormat = OutputFormatText
	// DefaultMinConfidence is the minimum chardet confidence (0-100) for a
	// statistical detection result to be trusted.
	DefaultMinConfidence = 30
	// DefaultTempFilePrefix marks editor temporary files that are never
	// treated as candidates.
	DefaultTempFilePrefix = "~$"
	// DefaultVerbose is the default state for verbose logging.
	DefaultVerbose = false
)

// DefaultExtensions lists the file extensions recognized as candidates when
// none are configured.
var DefaultExtensions = []string{".txt"}

const (
	// IgnoreFileName is the gitignore-style exclusion file honored by the
	// walker, found in or above the root path.
	IgnoreFileName = ".batchtxtignore"
	// BackupSuffix is appended to a file's name when WriteMode is
	// WriteBackup.
	BackupSuffix = ".bak"
)

// ReportSchemaVersion indicates the version of the JSON report structure.
const ReportSchemaVersion = "1.0"

// Constants defining skip reasons used in the Report. Files excluded by the
// candidate filters or ignore patterns never appear as report entries.
const (
	SkipReasonAlreadyNormalized = "already_normalized"
	SkipReasonUnknownEncoding   = "unknown_encoding"
)
