package ui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer"
)

// newViewModel builds a fully initialized model in a given display state.
func newViewModel(width, height int, phase string, items []listItem, summary Summary, fatalErr string, quitting bool) *Model {
	m := NewModel("test")
	m.width = width
	m.height = height
	m.phaseMessage = phase
	m.fatalError = fatalErr
	m.quitting = quitting
	m.initialized = true
	m.summary = summary
	if m.summary.StartTime.IsZero() {
		m.summary.StartTime = time.Now().Add(-10 * time.Second)
	}

	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = item
		m.itemMap[item.path] = i
	}
	m.fileItems = items

	listHeight := height - listHeightMargin
	if listHeight < 1 {
		listHeight = 1
	}
	m.list.SetSize(width, listHeight)
	m.list.SetItems(listItems)

	return &m
}

func TestView_Initializing(t *testing.T) {
	m := NewModel("test")
	assert.Equal(t, "Initializing...", m.View())
}

func TestView_Quitting(t *testing.T) {
	m := newViewModel(80, 25, "Complete", nil, Summary{}, "", true)
	assert.Equal(t, "Exiting...\n", m.View())
}

func TestView_BasicLayout(t *testing.T) {
	items := []listItem{
		{path: "docs/旧文.txt", status: normalizer.StatusSuccess, message: "Converted from Big5", duration: 50 * time.Millisecond},
		{path: "subdir/file2.txt", status: normalizer.StatusProcessing},
	}
	summary := Summary{
		TotalFilesScanned: 3, ConvertedCount: 1,
		StartTime: time.Now().Add(-15 * time.Second),
	}
	m := newViewModel(120, 12, "Processing...", items, summary, "", false)
	view := m.View()

	assert.Contains(t, view, "batchtxt vtest")
	assert.Contains(t, view, "Processing...")
	assert.Contains(t, view, m.spinner.View())
	assert.Contains(t, view, "docs/旧文.txt")
	assert.Contains(t, view, "subdir/file2.txt")
	assert.Contains(t, view, "Converted: 1")
	assert.Contains(t, view, "Skipped: 0")
	assert.Contains(t, view, "Renamed: 0")
	assert.Contains(t, view, "Failed: 0")
	assert.Contains(t, view, "Scanned: 3")
	assert.Contains(t, view, "Elapsed:")
	assert.Contains(t, view, "q: quit")

	assert.Contains(t, view, "[✓]")
	assert.Contains(t, view, "[…]")
	assert.Contains(t, view, "50ms")

	lines := strings.Split(strings.TrimSpace(view), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, lines[0], "batchtxt")
	assert.Contains(t, lines[len(lines)-1], "Converted:")
}

func TestView_FatalError(t *testing.T) {
	errMsg := "Fatal Error: write failed (a.txt)"
	summary := Summary{ErrorCount: 1, StartTime: time.Now().Add(-5 * time.Second)}
	m := newViewModel(120, 12, "Complete", nil, summary, errMsg, false)
	view := m.View()

	assert.Contains(t, view, errMsg)
	assert.Contains(t, view, "Complete")
	assert.NotContains(t, view, m.spinner.View(), "spinner should stop once the run is complete")
	assert.Contains(t, view, "q: quit")

	// The error renders between the list and the footer.
	errIdx := strings.Index(view, errMsg)
	footerIdx := strings.Index(view, "q: quit")
	require.GreaterOrEqual(t, errIdx, 0)
	require.GreaterOrEqual(t, footerIdx, 0)
	assert.Less(t, errIdx, footerIdx)
}

func TestView_Dimensions(t *testing.T) {
	width, height := 60, 20
	items := make([]listItem, 15)
	for i := range items {
		items[i] = listItem{path: fmt.Sprintf("file_%02d.txt", i), status: normalizer.StatusPending}
	}
	m := newViewModel(width, height, "Scanning...", items, Summary{TotalFilesScanned: 15}, "", false)

	assert.Equal(t, height-listHeightMargin, m.list.Height())
	assert.Equal(t, width, m.list.Width())

	view := m.View()
	assert.NotEmpty(t, view)
	assert.Contains(t, view, "file_00.txt")
}

func TestView_EmptyList(t *testing.T) {
	summary := Summary{StartTime: time.Now().Add(-2 * time.Second)}
	m := newViewModel(120, 10, "Scanning...", []listItem{}, summary, "", false)
	view := m.View()

	assert.Contains(t, view, "batchtxt vtest")
	assert.Contains(t, view, "Scanning...")
	assert.Contains(t, view, "Scanned: 0")
	assert.Contains(t, view, "q: quit")
	for _, item := range m.list.Items() {
		t.Fatalf("expected an empty list, found %v", item)
	}
}

func TestView_Counts(t *testing.T) {
	summary := Summary{
		TotalFilesScanned: 105, ConvertedCount: 82, SkippedCount: 15, RenamedCount: 3, ErrorCount: 8,
		StartTime: time.Now().Add(-30 * time.Second),
	}
	m := newViewModel(120, 10, "Complete", nil, summary, "", false)
	view := m.View()

	assert.Contains(t, view, "Converted: 82")
	assert.Contains(t, view, "Skipped: 15")
	assert.Contains(t, view, "Renamed: 3")
	assert.Contains(t, view, "Failed: 8")
	assert.Contains(t, view, "Scanned: 105")
	assert.Contains(t, view, "Elapsed:")
}
