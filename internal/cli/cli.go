// Package cli glues the command line front end to the normalizer library.
// It selects a display mode (TUI, progress bar, or plain logs), installs the
// matching event hooks, runs the normalization, and renders the final report.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/mattchoo2/batchtxttochineseutf8/internal/cli/hooks"
	"github.com/mattchoo2/batchtxttochineseutf8/internal/cli/ui"
	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer"
)

// Run executes a normalization run with the display mode implied by the
// options and the terminal, then renders the final report. It returns a
// non-nil error when the run aborted, and also when the run completed but
// individual files failed, so the process exits non-zero either way.
func Run(ctx context.Context, opts normalizer.Options, logger *slog.Logger) error {
	interactive := term.IsTerminal(int(os.Stderr.Fd()))
	useTUI := opts.TuiEnabled && interactive

	var (
		report normalizer.Report
		runErr error
	)
	if useTUI {
		report, runErr = runWithTUI(ctx, opts, logger)
	} else {
		report, runErr = runHeadless(ctx, opts, logger, interactive)
	}

	if writeErr := writeReport(os.Stdout, report, opts.OutputFormat, useTUI); writeErr != nil {
		logger.Error("Failed to render final report", slog.String("error", writeErr.Error()))
		if runErr == nil {
			runErr = writeErr
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("run cancelled: %w", runErr)
		}
		return runErr
	}
	if n := report.Summary.ErrorCount; n > 0 {
		return fmt.Errorf("%d of %d files failed to normalize", n, report.Summary.TotalFilesScanned)
	}
	return nil
}

// runWithTUI drives the run under the Bubble Tea interface. The engine's own
// log output is discarded for the duration: the TUI owns the terminal, and
// the events the logs would carry are on screen already.
func runWithTUI(ctx context.Context, opts normalizer.Options, logger *slog.Logger) (normalizer.Report, error) {
	model := ui.NewModel(opts.AppVersion)
	program := tea.NewProgram(&model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))

	opts.EventHooks = hooks.NewCLIHooks(logger, true, false, program, nil)
	opts.Logger = slog.NewTextHandler(io.Discard, nil)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		report normalizer.Report
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		report, runErr = normalizer.Normalize(runCtx, opts)
	}()

	if _, tuiErr := program.Run(); tuiErr != nil {
		logger.Debug("Terminal UI terminated", slog.String("reason", tuiErr.Error()))
	}
	// Quitting the UI aborts a run that is still in flight.
	cancel()
	<-done

	return report, runErr
}

// runHeadless runs without the TUI: verbose structured logs when requested,
// otherwise a progress bar when attached to a terminal, plain logs when not.
func runHeadless(ctx context.Context, opts normalizer.Options, logger *slog.Logger, interactive bool) (normalizer.Report, error) {
	var bar hooks.ProgressBar
	if interactive && !opts.Verbose {
		bar = &progressBarAdapter{bar: newProgressBar()}
	}
	opts.EventHooks = hooks.NewCLIHooks(logger, false, opts.Verbose, nil, bar)
	return normalizer.Normalize(ctx, opts)
}

// newProgressBar builds the spinner-style bar used when the run is attached
// to a terminal but the TUI is off. The total is unknown until the walk
// finishes, so the bar runs in indeterminate mode with a running count.
func newProgressBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("normalizing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// progressBarAdapter adapts schollz/progressbar to the hooks.ProgressBar
// interface.
type progressBarAdapter struct {
	bar *progressbar.ProgressBar
}

func (a *progressBarAdapter) Add(num int) error { return a.bar.Add(num) }

func (a *progressBarAdapter) Describe(description string) error {
	a.bar.Describe(description)
	return nil
}

func (a *progressBarAdapter) Close() error { return a.bar.Close() }

// writeReport renders the final report to w. JSON always prints; the text
// summary is suppressed after a TUI run, which has already shown the same
// numbers on screen.
func writeReport(w io.Writer, report normalizer.Report, format normalizer.OutputFormat, summaryShown bool) error {
	if format == normalizer.OutputFormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding JSON report: %w", err)
		}
		return nil
	}
	if summaryShown {
		return nil
	}
	_, err := io.WriteString(w, renderTextSummary(report))
	return err
}

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true)
	summaryErrStyle   = lipgloss.NewStyle().Foreground(ui.ColorStatusFailed)
	summaryWarnStyle  = lipgloss.NewStyle().Foreground(ui.ColorStatusSkipped)
)

// renderTextSummary builds the human-readable run summary. Files that need
// operator attention (undetectable encodings, rename collisions, errors) are
// listed individually; everything else is counts.
func renderTextSummary(report normalizer.Report) string {
	s := report.Summary

	var b strings.Builder
	title := fmt.Sprintf("Normalized %s (%s): %d files scanned in %.2fs",
		s.RootPath, s.Conversion, s.TotalFilesScanned, s.DurationSeconds)
	b.WriteString(summaryTitleStyle.Render(title))
	b.WriteString("\n")
	if s.DryRun {
		b.WriteString(summaryWarnStyle.Render("Dry run: no files were modified."))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "  Converted:          %d\n", s.ConvertedCount)
	fmt.Fprintf(&b, "  Already normalized: %d\n", s.AlreadyNormalizedCount)
	fmt.Fprintf(&b, "  Unknown encoding:   %d\n", s.UnknownEncodingCount)
	fmt.Fprintf(&b, "  Renamed:            %d\n", s.RenamedCount)
	if s.RenameCollisionCount > 0 {
		fmt.Fprintf(&b, "  Rename collisions:  %d\n", s.RenameCollisionCount)
	}
	fmt.Fprintf(&b, "  Failed:             %d\n", s.ErrorCount)

	if s.UnknownEncodingCount > 0 {
		b.WriteString("\nUnknown encoding (left untouched):\n")
		for _, sk := range report.Skipped {
			if sk.Reason != normalizer.SkipReasonUnknownEncoding {
				continue
			}
			if sk.Details != "" {
				fmt.Fprintf(&b, "  - %s (%s)\n", sk.Path, sk.Details)
			} else {
				fmt.Fprintf(&b, "  - %s\n", sk.Path)
			}
		}
	}

	if s.RenameCollisionCount > 0 {
		b.WriteString("\nRename collisions (original names kept):\n")
		for _, path := range collisionPaths(report) {
			fmt.Fprintf(&b, "  - %s\n", path)
		}
	}

	if len(report.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range report.Errors {
			b.WriteString(summaryErrStyle.Render(fmt.Sprintf("  ✗ %s: %s", e.Path, e.Error)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// collisionPaths lists every file whose normalized name already existed.
func collisionPaths(report normalizer.Report) []string {
	paths := make([]string, 0, report.Summary.RenameCollisionCount)
	for _, f := range report.Converted {
		if f.RenameCollision {
			paths = append(paths, f.Path)
		}
	}
	for _, sk := range report.Skipped {
		if sk.RenameCollision {
			paths = append(paths, sk.Path)
		}
	}
	for _, ei := range report.Errors {
		if ei.RenameCollision {
			paths = append(paths, ei.Path)
		}
	}
	sort.Strings(paths)
	return paths
}
