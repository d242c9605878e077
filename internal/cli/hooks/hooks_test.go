package hooks

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer"
)

type MockTUIProgram struct {
	mock.Mock
}

func (m *MockTUIProgram) Send(msg tea.Msg) {
	m.Called(msg)
}

type MockProgressBar struct {
	mock.Mock
}

func (m *MockProgressBar) Add(num int) error {
	args := m.Called(num)
	return args.Error(0)
}

func (m *MockProgressBar) Describe(description string) error {
	args := m.Called(description)
	return args.Error(0)
}

func (m *MockProgressBar) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestCLIHooks_OnFileDiscovered(t *testing.T) {
	testPath := "docs/说明.txt"

	t.Run("TUI enabled", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		mockTUI.On("Send", mock.AnythingOfType("FileDiscoveredMsg")).Run(func(args mock.Arguments) {
			msg := args.Get(0).(FileDiscoveredMsg)
			assert.Equal(t, testPath, msg.Path)
		}).Once()

		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewCLIHooks(logger, true, false, mockTUI, nil)

		require.NoError(t, h.OnFileDiscovered(testPath))
		mockTUI.AssertExpectations(t)
		assert.Empty(t, logBuf.String())
	})

	t.Run("verbose enabled", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewCLIHooks(logger, false, true, mockTUI, nil)

		require.NoError(t, h.OnFileDiscovered(testPath))

		mockTUI.AssertNotCalled(t, "Send", mock.Anything)
		logOutput := logBuf.String()
		assert.Contains(t, logOutput, `"level":"DEBUG"`)
		assert.Contains(t, logOutput, `"msg":"File discovered"`)
		assert.Contains(t, logOutput, `"path":"`+testPath+`"`)
	})

	t.Run("neither TUI nor verbose", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewCLIHooks(logger, false, false, mockTUI, nil)

		require.NoError(t, h.OnFileDiscovered(testPath))

		mockTUI.AssertNotCalled(t, "Send", mock.Anything)
		assert.Empty(t, logBuf.String())
	})
}

func TestCLIHooks_OnFileStatusUpdate(t *testing.T) {
	testPath := "docs/说明.txt"
	testDuration := 50 * time.Millisecond

	t.Run("TUI enabled", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		mockTUI.On("Send", mock.MatchedBy(func(msg FileStatusUpdateMsg) bool {
			return msg.Path == testPath &&
				msg.Status == normalizer.StatusProcessing &&
				msg.Message == "Processing" &&
				msg.Duration == testDuration
		})).Once()

		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewCLIHooks(logger, true, false, mockTUI, nil)

		require.NoError(t, h.OnFileStatusUpdate(testPath, normalizer.StatusProcessing, "Processing", testDuration))
		mockTUI.AssertExpectations(t)
		assert.Empty(t, logBuf.String())
	})

	t.Run("verbose enabled", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewCLIHooks(logger, false, true, mockTUI, nil)

		testCases := []struct {
			status        normalizer.Status
			message       string
			expectedLevel string
			expectedMsg   string
			checkKey      string
		}{
			{normalizer.StatusProcessing, "Starting", "DEBUG", "File status updated", "message"},
			{normalizer.StatusSuccess, "Converted from Big5", "INFO", "File status updated", "message"},
			{normalizer.StatusSkipped, "already_normalized", "INFO", "File status updated", "message"},
			{normalizer.StatusFailed, "decode error", "ERROR", "File processing failed", "error"},
		}

		for _, tc := range testCases {
			logBuf.Reset()
			require.NoError(t, h.OnFileStatusUpdate(testPath, tc.status, tc.message, testDuration))
			logOutput := logBuf.String()

			durationRegex := regexp.QuoteMeta(fmt.Sprintf(`"duration":"%s"`, testDuration.String()))
			assert.Regexp(t, durationRegex, logOutput)

			assert.Contains(t, logOutput, `"level":"`+tc.expectedLevel+`"`)
			assert.Contains(t, logOutput, `"msg":"`+tc.expectedMsg+`"`)
			assert.Contains(t, logOutput, `"path":"`+testPath+`"`)
			assert.Contains(t, logOutput, `"status":"`+string(tc.status)+`"`)
			assert.Contains(t, logOutput, `"`+tc.checkKey+`":"`+tc.message+`"`)
		}
		mockTUI.AssertNotCalled(t, "Send", mock.Anything)
	})

	t.Run("progress bar mode", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		mockProgress := new(MockProgressBar)
		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelError}))
		h := NewCLIHooks(logger, false, false, mockTUI, mockProgress)

		// Terminal states advance the bar; the processing state does not.
		mockProgress.On("Add", 1).Return(nil).Times(3)

		require.NoError(t, h.OnFileStatusUpdate(testPath, normalizer.StatusProcessing, "Starting", 0))
		assert.Empty(t, logBuf.String())

		require.NoError(t, h.OnFileStatusUpdate(testPath, normalizer.StatusSuccess, "Converted from GB-18030", testDuration))
		assert.Empty(t, logBuf.String())

		require.NoError(t, h.OnFileStatusUpdate(testPath, normalizer.StatusSkipped, "already_normalized", 0))
		assert.Empty(t, logBuf.String())

		failMsg := "write failed"
		require.NoError(t, h.OnFileStatusUpdate(testPath, normalizer.StatusFailed, failMsg, testDuration))
		logOutput := logBuf.String()
		assert.Contains(t, logOutput, `"level":"ERROR"`)
		assert.Contains(t, logOutput, `"msg":"File processing failed"`)
		assert.Contains(t, logOutput, `"path":"`+testPath+`"`)
		assert.Contains(t, logOutput, `"error":"`+failMsg+`"`)

		mockTUI.AssertNotCalled(t, "Send", mock.Anything)
		mockProgress.AssertExpectations(t)
	})
}

func TestCLIHooks_OnRunComplete(t *testing.T) {
	finalReport := normalizer.Report{
		Summary: normalizer.ReportSummary{ConvertedCount: 10},
	}

	t.Run("TUI enabled", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		mockTUI.On("Send", mock.MatchedBy(func(msg RunCompleteMsg) bool {
			return msg.Report.Summary.ConvertedCount == finalReport.Summary.ConvertedCount
		})).Once()
		mockProgress := new(MockProgressBar)

		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewCLIHooks(logger, true, false, mockTUI, mockProgress)

		require.NoError(t, h.OnRunComplete(finalReport))
		mockTUI.AssertExpectations(t)
		mockProgress.AssertNotCalled(t, "Close")
		assert.Empty(t, logBuf.String())
	})

	t.Run("progress bar mode", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		mockProgress := new(MockProgressBar)
		mockProgress.On("Close").Return(nil).Once()

		// Swallow the trailing newline the hook writes after the bar.
		oldStderr := os.Stderr
		r, w, pipeErr := os.Pipe()
		require.NoError(t, pipeErr)
		os.Stderr = w

		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelInfo}))
		h := NewCLIHooks(logger, false, false, mockTUI, mockProgress)

		err := h.OnRunComplete(finalReport)

		w.Close()
		_, _ = io.ReadAll(r)
		os.Stderr = oldStderr

		require.NoError(t, err)
		mockTUI.AssertNotCalled(t, "Send", mock.Anything)
		mockProgress.AssertExpectations(t)
		assert.Empty(t, logBuf.String())
	})
}
