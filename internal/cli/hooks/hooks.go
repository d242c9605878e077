// Package hooks bridges normalizer library events to the CLI's output
// layer: the Bubble Tea TUI, a progress bar, or plain log lines.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer"
)

// FileDiscoveredMsg signals that the walker found a candidate file.
type FileDiscoveredMsg struct{ Path string }

// FileStatusUpdateMsg signals a change in a file's processing status.
type FileStatusUpdateMsg struct {
	Path     string
	Status   normalizer.Status
	Message  string
	Duration time.Duration
}

// RunCompleteMsg signals the completion of the entire run.
type RunCompleteMsg struct{ Report normalizer.Report }

// TUIProgram defines the interface needed to interact with the Bubble Tea
// program.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// ProgressBar defines the interface needed to interact with the progress
// bar.
type ProgressBar interface {
	Add(num int) error
	Describe(description string) error
	Close() error
}

// NoOpTUIProgram provides a default null implementation.
type NoOpTUIProgram struct{}

// Send implements TUIProgram.
func (n *NoOpTUIProgram) Send(msg tea.Msg) {}

// NoOpProgressBar provides a default null implementation.
type NoOpProgressBar struct{}

// Add implements ProgressBar.
func (n *NoOpProgressBar) Add(num int) error { return nil }

// Describe implements ProgressBar.
func (n *NoOpProgressBar) Describe(description string) error { return nil }

// Close implements ProgressBar.
func (n *NoOpProgressBar) Close() error { return nil }

// CLIHooks implements the normalizer.Hooks interface, routing library events
// to whichever output mode the run selected.
type CLIHooks struct {
	logger         *slog.Logger
	tuiEnabled     bool
	verboseEnabled bool
	tuiProgram     TUIProgram
	progressBar    ProgressBar
	barActive      bool
	mu             sync.Mutex // Protects concurrent access to progressBar
}

// NewCLIHooks creates a new CLIHooks instance. Pass nil for tuiProgram or
// progressBar if not applicable; NoOp versions will be used.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verboseEnabled bool, tuiProg TUIProgram, progBar ProgressBar) normalizer.Hooks {
	barActive := progBar != nil
	if tuiProg == nil {
		tuiProg = &NoOpTUIProgram{}
	}
	if progBar == nil {
		progBar = &NoOpProgressBar{}
	}
	return &CLIHooks{
		logger:         logger,
		tuiEnabled:     tuiEnabled,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProg,
		progressBar:    progBar,
		barActive:      barActive,
	}
}

// OnFileDiscovered handles the event when the walker finds a candidate.
func (h *CLIHooks) OnFileDiscovered(path string) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileDiscoveredMsg{Path: path})
	} else if h.verboseEnabled {
		h.logger.Debug("File discovered", slog.String("path", path))
	}
	return nil
}

// OnFileStatusUpdate handles events when a file's processing status changes.
// This method MUST be thread-safe.
func (h *CLIHooks) OnFileStatusUpdate(path string, status normalizer.Status, message string, duration time.Duration) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileStatusUpdateMsg{
			Path:     path,
			Status:   status,
			Message:  message,
			Duration: duration,
		})
		return nil
	}

	if h.verboseEnabled {
		logLevel := slog.LevelDebug
		logMsg := "File status updated"
		attrs := []any{
			slog.String("path", path),
			slog.String("status", string(status)),
		}
		if duration > 0 {
			attrs = append(attrs, slog.Duration("duration", duration))
		}
		if message != "" {
			logKey := "message"
			if status == normalizer.StatusFailed {
				logKey = "error"
			}
			attrs = append(attrs, slog.String(logKey, message))
		}

		switch status {
		case normalizer.StatusSuccess, normalizer.StatusSkipped:
			logLevel = slog.LevelInfo
		case normalizer.StatusFailed:
			logLevel = slog.LevelError
			logMsg = "File processing failed"
		}
		h.logger.Log(context.Background(), logLevel, logMsg, attrs...)
		return nil
	}

	// Progress bar mode. Only terminal states advance the bar; the
	// processing state would double-count files.
	h.mu.Lock()
	defer h.mu.Unlock()

	isFinalState := status == normalizer.StatusSuccess ||
		status == normalizer.StatusFailed ||
		status == normalizer.StatusSkipped

	if isFinalState {
		_ = h.progressBar.Add(1)
	}

	// Failures surface as log lines regardless of display mode.
	if status == normalizer.StatusFailed {
		h.logger.Error("File processing failed", slog.String("path", path), slog.String("error", message))
	}

	return nil
}

// OnRunComplete sends the final report to the TUI or finalizes the progress
// bar. The report itself is rendered by the cli package after Normalize
// returns.
func (h *CLIHooks) OnRunComplete(report normalizer.Report) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(RunCompleteMsg{Report: report})
		return nil
	}

	h.mu.Lock()
	_ = h.progressBar.Close()
	h.mu.Unlock()
	if h.barActive {
		// Newline after the bar so the summary does not overlap it.
		_, _ = fmt.Fprintf(os.Stderr, "\n")
	}
	return nil
}
