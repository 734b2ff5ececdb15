package binding

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/internal/recorder"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/internal/streamer"
)

// Raised for calls the host made incorrectly: unknown functions,
// missing arguments or arguments of the wrong type.
type UsageError struct {
	Function string
	Message  string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Function, e.Message)
}

// A function exported to the host. Results are returned as the host sees them
// (booleans), errors are reserved for usage errors.
type Function func(args ...any) (any, error)

// The set of functions exposed to an embedding host.
//
// A Module wraps a recorder and a streamer constructed by the caller,
// and flattens their results to the booleans the host expects.
type Module struct {
	logger   *slog.Logger
	recorder *recorder.Recorder
	streamer *streamer.Streamer
	exports  map[string]Function
}

func NewModule(recorder *recorder.Recorder, streamer *streamer.Streamer, logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Module{
		logger:   logger,
		recorder: recorder,
		streamer: streamer,
	}
	m.exports = map[string]Function{
		"startRecording": m.startRecording,
		"stopRecording":  m.stopRecording,
		"isRecording":    m.isRecording,
		"startStreaming": m.startStreaming,
		"stopStreaming":  m.stopStreaming,
	}
	return m
}

// Names of all exported functions, sorted.
func (m *Module) Exports() []string {
	names := make([]string, 0, len(m.exports))
	for name := range m.exports {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Invoke an exported function by name.
func (m *Module) Call(name string, args ...any) (any, error) {
	f, ok := m.exports[name]
	if !ok {
		return nil, &UsageError{Function: name, Message: "no such function"}
	}
	return f(args...)
}

// startRecording(path string) -> bool
//
// False if a recording is already active or the file could not be written.
func (m *Module) startRecording(args ...any) (any, error) {
	if len(args) < 1 {
		return nil, &UsageError{Function: "startRecording", Message: "expected filename string"}
	}
	path, ok := args[0].(string)
	if !ok {
		return nil, &UsageError{Function: "startRecording", Message: "expected filename string"}
	}

	if err := m.recorder.Start(path); err != nil {
		m.logger.Debug("startRecording failed", "path", path, "err", err)
		return false, nil
	}
	return true, nil
}

// stopRecording() -> bool, always true.
func (m *Module) stopRecording(args ...any) (any, error) {
	m.recorder.Stop()
	return true, nil
}

func (m *Module) isRecording(args ...any) (any, error) {
	return m.recorder.IsRecording(), nil
}

// startStreaming(callback func([]byte)) -> bool
//
// False if already streaming or the pipeline could not be built.
func (m *Module) startStreaming(args ...any) (any, error) {
	if len(args) < 1 {
		return nil, &UsageError{Function: "startStreaming", Message: "expected callback function"}
	}
	callback, ok := args[0].(func([]byte))
	if !ok || callback == nil {
		return nil, &UsageError{Function: "startStreaming", Message: "expected callback function"}
	}

	if err := m.streamer.StartStreaming(callback); err != nil {
		if !errors.Is(err, streamer.ErrAlreadyStreaming) {
			m.logger.Error("could not start streaming", "err", err)
		}
		return false, nil
	}
	return true, nil
}

// stopStreaming() -> bool, false if nothing was streaming.
func (m *Module) stopStreaming(args ...any) (any, error) {
	return m.streamer.StopStreaming(), nil
}
