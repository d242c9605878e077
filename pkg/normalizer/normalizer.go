// Package normalizer converts directory trees of Chinese text files to
// canonical UTF-8 with a consistent script (by default Simplified Chinese),
// rewriting both file content and file names in place.
//
// The entry point is Normalize. Callers construct an Options value, inject
// an slog.Handler and optionally an event Hooks implementation, and receive
// a Report describing every file the run converted, skipped, or failed.
package normalizer

import (
	"context"
)

// Normalize runs the full normalization over opts.RootPath and returns the
// aggregated report. A nil error means the run completed, even if
// individual files failed; per-file failures are recorded in Report.Errors.
// A non-nil error means the run itself did not finish: invalid options, a
// failed directory walk, cancellation, or a fatal file error in stop mode.
func Normalize(ctx context.Context, opts Options) (Report, error) {
	engine, err := NewEngine(ctx, opts)
	if err != nil {
		return Report{}, err
	}
	return engine.Run()
}
