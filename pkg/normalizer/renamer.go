package normalizer

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer/script"
)

// RenameResult describes the outcome of the rename step for one file. Path
// is the file's current location: the rename target on success, the
// original path otherwise. OriginalPath always holds the pre-rename path.
type RenameResult struct {
	Path         string
	OriginalPath string
	Renamed      bool
	Collision    bool
}

// Renamer normalizes file names to the converted script. A single Renamer
// coordinates every rename in a run: the target-exists check and the rename
// itself execute under one lock, so concurrent workers cannot race two
// files onto the same target name.
type Renamer struct {
	script script.Converter
	logger *slog.Logger
	dryRun bool

	mu sync.Mutex
}

// NewRenamer creates a Renamer using the given script converter for name
// conversion. In dry-run mode the collision check still runs but no rename
// is performed.
func NewRenamer(conv script.Converter, loggerHandler slog.Handler, dryRun bool) *Renamer {
	return &Renamer{
		script: conv,
		logger: slog.New(loggerHandler).With(slog.String("component", "renamer")),
		dryRun: dryRun,
	}
}

// RenameIfNeeded renames the file at absPath when its base name changes
// under script conversion. It never fails the file: a refused or failed
// rename leaves the file under its original name, flagged as a collision,
// and content processing continues there. The extension never changes, only
// the stem.
func (r *Renamer) RenameIfNeeded(absPath string) RenameResult {
	base := filepath.Base(absPath)
	converted, err := r.script.ConvertFilename(base)
	if err != nil {
		r.logger.Warn("Filename conversion failed, keeping original name",
			slog.String("path", absPath), slog.String("error", err.Error()))
		return RenameResult{Path: absPath, OriginalPath: absPath}
	}
	if converted == base {
		return RenameResult{Path: absPath, OriginalPath: absPath}
	}

	target := filepath.Join(filepath.Dir(absPath), converted)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, statErr := os.Lstat(target); statErr == nil {
		r.logger.Info("Rename refused, target already exists",
			slog.String("path", absPath), slog.String("target", target))
		return RenameResult{Path: absPath, OriginalPath: absPath, Collision: true}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		r.logger.Warn("Rename target check failed, treating as collision",
			slog.String("path", absPath), slog.String("target", target),
			slog.String("error", statErr.Error()))
		return RenameResult{Path: absPath, OriginalPath: absPath, Collision: true}
	}

	if r.dryRun {
		r.logger.Info("Dry run: would rename file",
			slog.String("path", absPath), slog.String("target", target))
		return RenameResult{Path: absPath, OriginalPath: absPath, Renamed: true}
	}

	if renameErr := os.Rename(absPath, target); renameErr != nil {
		r.logger.Warn("Rename failed, treating as collision",
			slog.String("path", absPath), slog.String("target", target),
			slog.String("error", renameErr.Error()))
		return RenameResult{Path: absPath, OriginalPath: absPath, Collision: true}
	}

	r.logger.Debug("File renamed",
		slog.String("from", absPath), slog.String("to", target))
	return RenameResult{Path: target, OriginalPath: absPath, Renamed: true}
}
