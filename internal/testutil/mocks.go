// Package testutil provides mock implementations for the interfaces defined
// in the normalizer core library, plus filesystem helpers for test setup.
// The mocks isolate components under test; configure expectations using
// testify/mock methods (e.g. .On("Detect", ...).Return(...)).
package testutil

import (
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer"
	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer/encoding"
)

// MockDetector provides a mock implementation of the encoding.Detector
// interface. See encoding.Detector for the interface contract.
type MockDetector struct {
	mock.Mock
}

// Detect mocks the Detect method.
func (m *MockDetector) Detect(content []byte) encoding.Guess {
	args := m.Called(content)
	guess, _ := args.Get(0).(encoding.Guess)
	return guess
}

// Decode mocks the Decode method.
func (m *MockDetector) Decode(content []byte, charsetName string) (string, error) {
	args := m.Called(content, charsetName)
	text, _ := args.Get(0).(string)
	return text, args.Error(1)
}

// MockConverter provides a mock implementation of the script.Converter
// interface. See script.Converter for the interface contract.
type MockConverter struct {
	mock.Mock
}

// Convert mocks the Convert method.
func (m *MockConverter) Convert(text string) (string, error) {
	args := m.Called(text)
	out, _ := args.Get(0).(string)
	return out, args.Error(1)
}

// ConvertFilename mocks the ConvertFilename method.
func (m *MockConverter) ConvertFilename(name string) (string, error) {
	args := m.Called(name)
	out, _ := args.Get(0).(string)
	return out, args.Error(1)
}

// Name mocks the Name method.
func (m *MockConverter) Name() string {
	args := m.Called()
	name, _ := args.Get(0).(string)
	return name
}

// MockHooks provides a mock implementation of the normalizer.Hooks
// interface. If test logic adds state to this mock, the test itself MUST
// ensure thread-safety for concurrent hook invocations. For simple
// call-recording across worker goroutines prefer RecordingHooks.
type MockHooks struct {
	mock.Mock
}

// OnFileDiscovered mocks the OnFileDiscovered method.
func (m *MockHooks) OnFileDiscovered(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

// OnFileStatusUpdate mocks the OnFileStatusUpdate method.
func (m *MockHooks) OnFileStatusUpdate(path string, status normalizer.Status, message string, duration time.Duration) error {
	args := m.Called(path, status, message, duration)
	return args.Error(0)
}

// OnRunComplete mocks the OnRunComplete method.
func (m *MockHooks) OnRunComplete(report normalizer.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

// StatusUpdate is one recorded OnFileStatusUpdate invocation.
type StatusUpdate struct {
	Path     string
	Status   normalizer.Status
	Message  string
	Duration time.Duration
}

// RecordingHooks is a thread-safe normalizer.Hooks implementation that
// records every callback for later assertions. Unlike MockHooks it needs no
// expectations, which suits end-to-end engine tests where the exact call
// order across workers is nondeterministic.
type RecordingHooks struct {
	mu         sync.Mutex
	discovered []string
	updates    []StatusUpdate
	report     *normalizer.Report
}

// OnFileDiscovered implements normalizer.Hooks.
func (h *RecordingHooks) OnFileDiscovered(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.discovered = append(h.discovered, path)
	return nil
}

// OnFileStatusUpdate implements normalizer.Hooks.
func (h *RecordingHooks) OnFileStatusUpdate(path string, status normalizer.Status, message string, duration time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, StatusUpdate{Path: path, Status: status, Message: message, Duration: duration})
	return nil
}

// OnRunComplete implements normalizer.Hooks.
func (h *RecordingHooks) OnRunComplete(report normalizer.Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.report = &report
	return nil
}

// Discovered returns a copy of the recorded discovery paths.
func (h *RecordingHooks) Discovered() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.discovered))
	copy(out, h.discovered)
	return out
}

// Updates returns a copy of the recorded status updates.
func (h *RecordingHooks) Updates() []StatusUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]StatusUpdate, len(h.updates))
	copy(out, h.updates)
	return out
}

// StatusesFor returns the recorded status sequence for one path, in order.
func (h *RecordingHooks) StatusesFor(path string) []normalizer.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	var statuses []normalizer.Status
	for _, u := range h.updates {
		if u.Path == path {
			statuses = append(statuses, u.Status)
		}
	}
	return statuses
}

// FinalReport returns the report passed to OnRunComplete, or nil if the
// hook never fired.
func (h *RecordingHooks) FinalReport() *normalizer.Report {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.report
}
