package normalizer

import "errors"

// These errors represent specific categories of issues that might be
// returned directly by Normalize or recorded per file in Report.Errors.
// Library users can check against these using errors.Is.

var (
	// ErrConfigValidation indicates that the provided Options failed the
	// validation checks performed at the beginning of Normalize (invalid
	// root path, unknown conversion name, invalid modes). Always returned
	// directly as a fatal error.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrConverterInit indicates the script converter could not be
	// constructed for the configured conversion name.
	ErrConverterInit = errors.New("script converter initialization failed")

	// ErrStatFailed indicates a failure to stat a candidate file, typically
	// permissions or deletion after discovery. Recorded per file.
	ErrStatFailed = errors.New("failed to get file stats")

	// ErrReadFailed indicates a failure to read a candidate file from the
	// filesystem. Recorded per file.
	ErrReadFailed = errors.New("failed to read file")

	// ErrDecodeFailed indicates the file's bytes could not be decoded from
	// the detected encoding. Recorded per file.
	ErrDecodeFailed = errors.New("failed to decode file content")

	// ErrDecodeLoss indicates decoding replaced undecodable bytes with
	// U+FFFD and strict decoding is enabled. The file is left untouched.
	ErrDecodeLoss = errors.New("decoding lost content")

	// ErrConvertFailed indicates the script conversion itself failed for a
	// file's content. Recorded per file.
	ErrConvertFailed = errors.New("script conversion failed")

	// ErrBackupFailed indicates the pre-overwrite backup copy could not be
	// written. The original file is left untouched. Recorded per file.
	ErrBackupFailed = errors.New("failed to write backup file")

	// ErrWriteFailed indicates the converted content could not be written
	// over the original file. The atomic write protocol guarantees the
	// original is intact when this is reported. Recorded per file.
	ErrWriteFailed = errors.New("failed to write converted file")
)
