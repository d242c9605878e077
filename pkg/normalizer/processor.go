package normalizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer/encoding"
	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer/script"
)

// FileProcessor runs the content pipeline for a single file: stat, read,
// detect encoding, decode to UTF-8, convert script, and write the result
// back in place. The filename rename step happens before the processor is
// invoked; the RenameResult it receives says where the file now lives.
type FileProcessor struct {
	opts     *Options
	logger   *slog.Logger
	detector encoding.Detector
	gate     *Gate
}

// NewFileProcessor creates a new FileProcessor.
func NewFileProcessor(
	opts *Options,
	loggerHandler slog.Handler,
	detector encoding.Detector,
	conv script.Converter,
) *FileProcessor {
	logger := slog.New(loggerHandler).With(slog.String("component", "processor"))
	return &FileProcessor{
		opts:     opts,
		logger:   logger,
		detector: detector,
		gate:     NewGate(conv),
	}
}

// ProcessFile executes the full pipeline for a file the walker dispatched.
// The returned result is a FileResult, SkippedInfo, or ErrorInfo for the
// aggregator; status is the terminal state reported to hooks.
func (p *FileProcessor) ProcessFile(ctx context.Context, rr RenameResult) (result interface{}, status Status, err error) {
	startTime := time.Now()
	absPath := rr.Path
	relPath, pathErr := filepath.Rel(p.opts.RootPath, absPath)
	if pathErr != nil {
		errMsg := fmt.Sprintf("Failed to calculate relative path for '%s' relative to '%s': %v", absPath, p.opts.RootPath, pathErr)
		p.logger.Error(errMsg)
		status = StatusFailed
		err = fmt.Errorf("%w: calculating relative path: %w", ErrConfigValidation, pathErr)
		return ErrorInfo{Path: "", Error: errMsg, Renamed: rr.Renamed, RenameCollision: rr.Collision, IsFatal: true}, status, err
	}
	relPath = filepath.ToSlash(relPath)

	// Report the pre-rename location only when the file actually moved.
	originalRelPath := ""
	if rr.OriginalPath != "" && rr.OriginalPath != absPath {
		if origRel, origErr := filepath.Rel(p.opts.RootPath, rr.OriginalPath); origErr == nil {
			originalRelPath = filepath.ToSlash(origRel)
		}
	}
	logArgs := []any{slog.String("path", relPath)}

	defer func() {
		duration := time.Since(startTime)
		finalStatus := status
		message := ""
		if err != nil {
			if finalStatus != StatusFailed {
				p.logger.Warn("Processor returning error but status was not StatusFailed, correcting status",
					append(logArgs, slog.String("originalStatus", string(status)), slog.String("error", err.Error()))...)
				finalStatus = StatusFailed
			}
			if _, ok := result.(ErrorInfo); !ok {
				isFatal := p.opts.OnErrorMode == OnErrorStop
				result = ErrorInfo{Path: relPath, OriginalPath: originalRelPath, Error: err.Error(), Renamed: rr.Renamed, RenameCollision: rr.Collision, IsFatal: isFatal}
			}
			message = err.Error()
		} else if finalStatus == "" {
			finalStatus = StatusSuccess
		}
		logLevel := slog.LevelDebug
		if finalStatus == StatusFailed {
			logLevel = slog.LevelError
		}
		p.logger.Log(ctx, logLevel, "Processor finished file task",
			append(logArgs, slog.String("status", string(finalStatus)), slog.Duration("duration", duration), slog.String("message", message))...)
		status = finalStatus
	}()

	// 1. Check context cancellation early.
	select {
	case <-ctx.Done():
		p.logger.Debug("Processing cancelled before start", logArgs...)
		status = StatusFailed
		err = ctx.Err()
		return ErrorInfo{Path: relPath, OriginalPath: originalRelPath, Error: err.Error(), Renamed: rr.Renamed, RenameCollision: rr.Collision, IsFatal: true}, status, err
	default:
	}

	// 2. Stat for size and permissions.
	fileInfo, statErr := os.Stat(absPath)
	if statErr != nil {
		errMsg := fmt.Sprintf("Failed to stat file: %v", statErr)
		status = StatusFailed
		err = fmt.Errorf("%w: %w", ErrStatFailed, statErr)
		isFatal := p.opts.OnErrorMode == OnErrorStop
		return ErrorInfo{Path: relPath, OriginalPath: originalRelPath, Error: errMsg, Renamed: rr.Renamed, RenameCollision: rr.Collision, IsFatal: isFatal}, status, err
	}
	fileSize := fileInfo.Size()
	fileMode := fileInfo.Mode()

	// 3. Read content.
	content, readErr := os.ReadFile(absPath)
	if readErr != nil {
		errMsg := fmt.Sprintf("Failed to read file: %v", readErr)
		status = StatusFailed
		err = fmt.Errorf("%w: %w", ErrReadFailed, readErr)
		isFatal := p.opts.OnErrorMode == OnErrorStop
		return ErrorInfo{Path: relPath, OriginalPath: originalRelPath, Error: errMsg, Renamed: rr.Renamed, RenameCollision: rr.Collision, IsFatal: isFatal}, status, err
	}

	// 4. Detect the source encoding.
	guess := p.detector.Detect(content)
	if guess.Unknown() {
		p.logger.Info("Skipping file with undetectable encoding", logArgs...)
		status = StatusSkipped
		result = SkippedInfo{
			Path:            relPath,
			OriginalPath:    originalRelPath,
			Reason:          SkipReasonUnknownEncoding,
			Details:         "no encoding inferred with adequate confidence",
			Renamed:         rr.Renamed,
			RenameCollision: rr.Collision,
		}
		return result, status, nil
	}
	logArgs = append(logArgs, slog.String("charset", guess.Charset))
	p.logger.Debug("Encoding detected", append(logArgs, slog.Int("confidence", guess.Confidence))...)

	// 5. Decode to UTF-8.
	text, decodeErr := p.detector.Decode(content, guess.Charset)
	if decodeErr != nil {
		if errors.Is(decodeErr, encoding.ErrUnsupportedCharset) {
			p.logger.Info("Skipping file with unsupported charset", append(logArgs, slog.String("error", decodeErr.Error()))...)
			status = StatusSkipped
			result = SkippedInfo{
				Path:            relPath,
				OriginalPath:    originalRelPath,
				Reason:          SkipReasonUnknownEncoding,
				Details:         fmt.Sprintf("no decoder available for charset %q", guess.Charset),
				Renamed:         rr.Renamed,
				RenameCollision: rr.Collision,
			}
			return result, status, nil
		}
		errMsg := fmt.Sprintf("Failed to decode content from %s: %v", guess.Charset, decodeErr)
		status = StatusFailed
		err = fmt.Errorf("%w: %w", ErrDecodeFailed, decodeErr)
		isFatal := p.opts.OnErrorMode == OnErrorStop
		return ErrorInfo{Path: relPath, OriginalPath: originalRelPath, Error: errMsg, Renamed: rr.Renamed, RenameCollision: rr.Collision, IsFatal: isFatal}, status, err
	}

	// 6. Strict mode rejects decodes that substituted undecodable bytes.
	if p.opts.StrictDecode && encoding.ReplacementIntroduced(content, text) {
		errMsg := fmt.Sprintf("Decoding from %s replaced undecodable bytes with U+FFFD", guess.Charset)
		status = StatusFailed
		err = fmt.Errorf("%w: charset %s", ErrDecodeLoss, guess.Charset)
		isFatal := p.opts.OnErrorMode == OnErrorStop
		return ErrorInfo{Path: relPath, OriginalPath: originalRelPath, Error: errMsg, Renamed: rr.Renamed, RenameCollision: rr.Collision, IsFatal: isFatal}, status, err
	}

	// 7. Convert script and decide whether the file already conforms.
	normalized, converted, convErr := p.gate.Check(guess.Charset, text)
	if convErr != nil {
		errMsg := fmt.Sprintf("Script conversion failed: %v", convErr)
		status = StatusFailed
		err = fmt.Errorf("%w: %w", ErrConvertFailed, convErr)
		isFatal := p.opts.OnErrorMode == OnErrorStop
		return ErrorInfo{Path: relPath, OriginalPath: originalRelPath, Error: errMsg, Renamed: rr.Renamed, RenameCollision: rr.Collision, IsFatal: isFatal}, status, err
	}
	if normalized {
		p.logger.Debug("File already normalized, nothing to write", logArgs...)
		status = StatusSkipped
		result = SkippedInfo{
			Path:            relPath,
			OriginalPath:    originalRelPath,
			Reason:          SkipReasonAlreadyNormalized,
			Renamed:         rr.Renamed,
			RenameCollision: rr.Collision,
		}
		return result, status, nil
	}

	// 8. Write the normalized content back in place.
	if p.opts.DryRun {
		p.logger.Info("Dry run: would rewrite file", logArgs...)
	} else {
		if writeErr := p.writeNormalized(absPath, content, []byte(converted), fileMode); writeErr != nil {
			errMsg := fmt.Sprintf("Failed to write normalized content: %v", writeErr)
			status = StatusFailed
			err = writeErr
			isFatal := p.opts.OnErrorMode == OnErrorStop
			return ErrorInfo{Path: relPath, OriginalPath: originalRelPath, Error: errMsg, Renamed: rr.Renamed, RenameCollision: rr.Collision, IsFatal: isFatal}, status, err
		}
		p.logger.Info("File normalized", append(logArgs, slog.Int64("size", fileSize))...)
	}

	status = StatusSuccess
	result = FileResult{
		Path:            relPath,
		OriginalPath:    originalRelPath,
		FromEncoding:    guess.Charset,
		Renamed:         rr.Renamed,
		RenameCollision: rr.Collision,
		SizeBytes:       fileSize,
		DurationMs:      time.Since(startTime).Milliseconds(),
	}
	return result, status, nil
}

// writeNormalized replaces the file content atomically: the new bytes go to
// a temporary file in the same directory which is then renamed over the
// original, so a crash mid-write never leaves a half-converted file. In
// backup mode the original bytes are first copied to path+BackupSuffix.
func (p *FileProcessor) writeNormalized(absPath string, original, converted []byte, mode fs.FileMode) error {
	if p.opts.WriteMode == WriteBackup {
		backupPath := absPath + BackupSuffix
		if backupErr := os.WriteFile(backupPath, original, mode.Perm()); backupErr != nil {
			return fmt.Errorf("%w: writing '%s': %w", ErrBackupFailed, backupPath, backupErr)
		}
		p.logger.Debug("Backup written", slog.String("path", backupPath))
	}

	dir := filepath.Dir(absPath)
	tempFile, tmpErr := os.CreateTemp(dir, filepath.Base(absPath)+".tmp-*")
	if tmpErr != nil {
		return fmt.Errorf("%w: creating temporary file in '%s': %w", ErrWriteFailed, dir, tmpErr)
	}
	tempFilePath := tempFile.Name()

	closed := false
	defer func() {
		if !closed {
			_ = tempFile.Close()
		}
		if _, statErr := os.Stat(tempFilePath); statErr == nil {
			_ = os.Remove(tempFilePath)
		}
	}()

	if _, writeErr := tempFile.Write(converted); writeErr != nil {
		return fmt.Errorf("%w: writing temporary file '%s': %w", ErrWriteFailed, tempFilePath, writeErr)
	}
	if chmodErr := tempFile.Chmod(mode.Perm()); chmodErr != nil {
		return fmt.Errorf("%w: preserving mode on '%s': %w", ErrWriteFailed, tempFilePath, chmodErr)
	}
	if closeErr := tempFile.Close(); closeErr != nil {
		closed = true
		return fmt.Errorf("%w: closing temporary file '%s': %w", ErrWriteFailed, tempFilePath, closeErr)
	}
	closed = true

	if renameErr := os.Rename(tempFilePath, absPath); renameErr != nil {
		return fmt.Errorf("%w: replacing '%s': %w", ErrWriteFailed, absPath, renameErr)
	}
	return nil
}
