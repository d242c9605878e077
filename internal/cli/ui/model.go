// Package ui implements the Bubble Tea terminal interface shown during
// interactive normalization runs: a scrolling file list with live statuses,
// a spinner, and a summary footer.
package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattchoo2/batchtxttochineseutf8/internal/cli/hooks"
	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer"
)

const listHeightMargin = 4 // Header, footer, padding

// Model represents the state of the TUI application. It holds the UI
// components (list, spinner), layout dimensions, the aggregated summary
// statistics, and the list of files being processed.
type Model struct {
	list    list.Model
	spinner spinner.Model
	width   int
	height  int
	// initialized tracks if the model has received initial dimensions.
	initialized bool
	appVersion  string
	// fileItems holds the internal data for each item displayed in the
	// list. Access MUST be protected by listLock.
	fileItems []listItem
	summary   Summary
	// phaseMessage displays the current overall stage (Scanning,
	// Processing, Complete).
	phaseMessage string
	// fatalError stores a descriptive message if the run was halted.
	fatalError string
	quitting   bool
	// processTime maps file paths to their processing start time, used for
	// calculating display durations.
	processTime map[string]time.Time
	// itemMap maps file paths to their index in fileItems for efficient
	// updates. Access MUST be protected by listLock.
	itemMap  map[string]int
	listLock sync.Mutex
	// debounceTimer coalesces list refreshes during rapid status bursts.
	debounceTimer *time.Timer
}

// listItem represents a single file in the TUI list.
type listItem struct {
	path     string
	status   normalizer.Status
	message  string
	duration time.Duration
}

// Summary holds the aggregated statistics displayed in the TUI footer.
type Summary struct {
	TotalFilesScanned int
	ConvertedCount    int
	SkippedCount      int
	RenamedCount      int
	ErrorCount        int
	StartTime         time.Time
}

// NewModel creates the initial model for the TUI.
func NewModel(appVersion string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorStatusProcessing)

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(ColorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		list:         l,
		spinner:      s,
		appVersion:   appVersion,
		summary:      Summary{StartTime: time.Now()},
		phaseMessage: "Initializing...",
		fileItems:    make([]listItem, 0, 1000),
		itemMap:      make(map[string]int),
		processTime:  make(map[string]time.Time),
	}
}

// Init initializes the TUI model and starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages (user input, hook events) and updates the
// model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var listCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - listHeightMargin
		if listHeight < 1 {
			listHeight = 1
		}
		m.list.SetSize(m.width, listHeight)
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		m.list, listCmd = m.list.Update(msg)

	case spinner.TickMsg:
		if m.quitting {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	case hooks.FileDiscoveredMsg:
		m.listLock.Lock()
		if _, exists := m.itemMap[msg.Path]; !exists {
			newItem := listItem{path: msg.Path, status: normalizer.StatusPending}
			m.fileItems = append(m.fileItems, newItem)
			m.itemMap[msg.Path] = len(m.fileItems) - 1
			m.summary.TotalFilesScanned++
			cmds = append(cmds, m.debounceListUpdate())
		}
		m.listLock.Unlock()
		if !m.quitting && (m.phaseMessage == "" || m.phaseMessage == "Initializing...") {
			m.phaseMessage = "Scanning..."
		}

	case hooks.FileStatusUpdateMsg:
		m.listLock.Lock()
		if idx, ok := m.itemMap[msg.Path]; ok && idx < len(m.fileItems) {
			currentItem := &m.fileItems[idx]

			if isFinalStatus(msg.Status) {
				// The hook carries the duration measured by the worker;
				// fall back to the TUI-side clock when it is absent.
				if msg.Duration > 0 {
					currentItem.duration = msg.Duration
				} else if startTime, found := m.processTime[msg.Path]; found {
					currentItem.duration = time.Since(startTime)
				}
				delete(m.processTime, msg.Path)
			} else if msg.Status == normalizer.StatusProcessing {
				m.processTime[msg.Path] = time.Now()
				currentItem.duration = 0
			}

			// Counts move only on transitions into (or out of) a final
			// state, so repeated updates cannot double-count a file.
			oldStatusIsFinal := isFinalStatus(currentItem.status)
			newStatusIsFinal := isFinalStatus(msg.Status)
			if newStatusIsFinal && !oldStatusIsFinal {
				m.incrementSummaryCount(msg.Status)
			} else if !newStatusIsFinal && oldStatusIsFinal {
				m.decrementSummaryCount(currentItem.status)
			}

			currentItem.status = msg.Status
			currentItem.message = msg.Message

			cmds = append(cmds, m.debounceListUpdate())
		} else {
			// Status update for a file the discovery message never
			// announced; add it so the update is not lost.
			newItem := listItem{path: msg.Path, status: msg.Status, message: msg.Message, duration: msg.Duration}
			m.fileItems = append(m.fileItems, newItem)
			m.itemMap[msg.Path] = len(m.fileItems) - 1
			m.summary.TotalFilesScanned++
			m.incrementSummaryCount(msg.Status)
			cmds = append(cmds, m.debounceListUpdate())
		}
		m.listLock.Unlock()

		if !m.quitting && m.phaseMessage != "Processing..." && msg.Status == normalizer.StatusProcessing {
			m.phaseMessage = "Processing..."
		}

	case hooks.RunCompleteMsg:
		m.phaseMessage = "Complete"
		m.summary.TotalFilesScanned = msg.Report.Summary.TotalFilesScanned
		m.summary.ConvertedCount = msg.Report.Summary.ConvertedCount
		m.summary.SkippedCount = msg.Report.Summary.AlreadyNormalizedCount + msg.Report.Summary.UnknownEncodingCount
		m.summary.RenamedCount = msg.Report.Summary.RenamedCount
		m.summary.ErrorCount = msg.Report.Summary.ErrorCount
		if msg.Report.Summary.FatalErrorOccurred {
			m.fatalError = "Run halted due to fatal error."
			for _, e := range msg.Report.Errors {
				if e.IsFatal {
					m.fatalError = fmt.Sprintf("Fatal Error: %s (%s)", e.Error, e.Path)
					break
				}
			}
		}

	case UpdateListMsg:
		m.listLock.Lock()
		items := make([]list.Item, len(m.fileItems))
		for i, item := range m.fileItems {
			items[i] = item
		}
		m.listLock.Unlock()
		cmds = append(cmds, m.list.SetItems(items))
	}

	if listCmd != nil {
		cmds = append(cmds, listCmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the current state of the TUI model.
func (m *Model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}
	if !m.initialized {
		return "Initializing..."
	}

	headerLeft := fmt.Sprintf("batchtxt v%s", m.appVersion)
	headerRight := m.phaseMessage
	if m.phaseMessage != "Complete" && m.phaseMessage != "Initializing..." {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	headerCenter := ""
	headerWidth := m.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerWidth > 0 {
		headerCenter = lipgloss.PlaceHorizontal(headerWidth, lipgloss.Center, " ")
	}
	header := HeaderStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, headerLeft, headerCenter, headerRight))

	elapsed := time.Since(m.summary.StartTime).Round(time.Millisecond)
	summaryText := fmt.Sprintf(
		"Converted: %d | Skipped: %d | Renamed: %d | Failed: %d | Scanned: %d | Elapsed: %s",
		m.summary.ConvertedCount,
		m.summary.SkippedCount,
		m.summary.RenamedCount,
		m.summary.ErrorCount,
		m.summary.TotalFilesScanned,
		elapsed,
	)
	footerLeft := summaryText
	footerRight := "q: quit"
	footerWidth := m.width - lipgloss.Width(footerLeft) - lipgloss.Width(footerRight)
	footerCenter := ""
	if footerWidth > 0 {
		footerCenter = lipgloss.PlaceHorizontal(footerWidth, lipgloss.Center, " ")
	}
	footer := FooterStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Bottom, footerLeft, footerCenter, footerRight))

	listView := m.list.View()

	errorView := ""
	if m.fatalError != "" {
		errorView = StatusStyleFailed.Render(m.fatalError) + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		listView,
		errorView,
		footer,
	)
}

// isFinalStatus checks if a status represents a terminal state for a file.
func isFinalStatus(status normalizer.Status) bool {
	return status == normalizer.StatusSuccess ||
		status == normalizer.StatusFailed ||
		status == normalizer.StatusSkipped
}

// incrementSummaryCount updates summary counts based on the new final
// status. MUST be called with listLock held.
func (m *Model) incrementSummaryCount(status normalizer.Status) {
	switch status {
	case normalizer.StatusSuccess:
		m.summary.ConvertedCount++
	case normalizer.StatusSkipped:
		m.summary.SkippedCount++
	case normalizer.StatusFailed:
		m.summary.ErrorCount++
	}
}

// decrementSummaryCount reverses count updates if a status changes away
// from final. MUST be called with listLock held.
func (m *Model) decrementSummaryCount(status normalizer.Status) {
	switch status {
	case normalizer.StatusSuccess:
		m.summary.ConvertedCount--
	case normalizer.StatusSkipped:
		m.summary.SkippedCount--
	case normalizer.StatusFailed:
		m.summary.ErrorCount--
	}
}

// FilterValue implements the list.Item interface.
func (i listItem) FilterValue() string { return i.path }

// Title implements the list.Item interface.
func (i listItem) Title() string { return i.path }

// Description implements the list.Item interface.
func (i listItem) Description() string {
	var statusStyle lipgloss.Style
	statusIcon := " "
	switch i.status {
	case normalizer.StatusSuccess:
		statusStyle = StatusStyleSuccess
		statusIcon = "✓"
	case normalizer.StatusFailed:
		statusStyle = StatusStyleFailed
		statusIcon = "✗"
	case normalizer.StatusSkipped:
		statusStyle = StatusStyleSkipped
		statusIcon = "S"
	case normalizer.StatusProcessing:
		statusStyle = StatusStyleProcessing
		statusIcon = "…"
	case normalizer.StatusPending:
		fallthrough
	default:
		statusStyle = StatusStylePending
		statusIcon = " "
	}

	statusStr := statusStyle.Render(fmt.Sprintf("[%s]", statusIcon))
	details := ""

	switch i.status {
	case normalizer.StatusFailed:
		details = i.message
	case normalizer.StatusSkipped:
		// Skip messages have the form "reason: details"; the reason alone
		// keeps the list readable.
		parts := strings.SplitN(i.message, ":", 2)
		if len(parts) > 0 {
			details = strings.TrimSpace(parts[0])
		} else {
			details = i.message
		}
	case normalizer.StatusSuccess:
		details = i.message
		if i.duration > 0 {
			details = fmt.Sprintf("%s (%s)", i.message, formatDuration(i.duration))
		}
	}
	return fmt.Sprintf("%s %s", statusStr, details)
}

// formatDuration formats a duration for list display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		if d == 0 {
			return ""
		}
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// UpdateListMsg signals that the list component should refresh its items.
type UpdateListMsg struct{}

const listUpdateDebounceDuration = 50 * time.Millisecond

// debounceListUpdate sends a message to trigger a list refresh after a short
// delay, so rapid status bursts do not thrash the renderer. MUST be called
// with listLock held.
func (m *Model) debounceListUpdate() tea.Cmd {
	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
	}
	m.debounceTimer = time.NewTimer(listUpdateDebounceDuration)
	return func() tea.Msg {
		<-m.debounceTimer.C
		return UpdateListMsg{}
	}
}

// Terminal colors for the status list and chrome.
const (
	ColorHeaderFg = lipgloss.Color("252")
	ColorHeaderBg = lipgloss.Color("62")

	ColorFooterFg = lipgloss.Color("252")
	ColorFooterBg = lipgloss.Color("56")

	ColorNormalFg     = lipgloss.Color("250")
	ColorNormalDescFg = lipgloss.Color("244")

	ColorSelectedFg     = lipgloss.Color("255")
	ColorSelectedBg     = lipgloss.Color("56")
	ColorSelectedDescFg = lipgloss.Color("248")

	ColorStatusSuccess    = lipgloss.Color("40")
	ColorStatusFailed     = lipgloss.Color("196")
	ColorStatusSkipped    = lipgloss.Color("214")
	ColorStatusPending    = lipgloss.Color("244")
	ColorStatusProcessing = lipgloss.Color("205")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorFooterFg).
			Background(ColorFooterBg).
			Padding(0, 1)

	StatusStyleSuccess    = lipgloss.NewStyle().Foreground(ColorStatusSuccess)
	StatusStyleFailed     = lipgloss.NewStyle().Foreground(ColorStatusFailed)
	StatusStyleSkipped    = lipgloss.NewStyle().Foreground(ColorStatusSkipped)
	StatusStylePending    = lipgloss.NewStyle().Foreground(ColorStatusPending)
	StatusStyleProcessing = lipgloss.NewStyle().Foreground(ColorStatusProcessing)
)
