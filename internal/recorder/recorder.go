package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/wavheader"
	"github.com/google/uuid"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrEmptyPath        = errors.New("empty recording path")
)

type Options struct {
	// The header written at the start of every recording.
	Header wavheader.Header

	// Rewrite the RIFF and data size fields after the header is written,
	// producing a self-consistent (empty) WAV file instead of zero sizes.
	BackfillSizes bool
}

func DefaultOptions() Options {
	return Options{
		Header: wavheader.StubHeader(),
	}
}

// Summary of a finished recording session, as returned by Stop.
type RecordingInfo struct {
	ID        uuid.UUID
	Path      string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Size of the file at Path when the session stopped, 0 if it could not be read.
	FileSize int64
}

// A placeholder recorder. Starting a recording writes a WAV header to the
// target path and marks the recorder as recording; no audio is ever captured.
//
// The recorder is owned by whoever creates it. All methods are safe for
// concurrent use and complete synchronously.
type Recorder struct {
	logger  *slog.Logger
	options Options
	now     func() time.Time

	mu          sync.Mutex
	isRecording bool
	targetPath  string
	sessionID   uuid.UUID
	startTime   time.Time
}

func NewRecorder(options Options, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Recorder{
		logger:  logger,
		options: options,
		now:     time.Now,
	}
}

// Start a recording session writing to path.
//
// Fails with ErrAlreadyRecording, without touching the file system, if a session
// is active. Otherwise path is created or truncated and the header is written
// and the file closed before Start returns. If the file cannot be created or
// written, the error is returned and no session starts.
func (r *Recorder) Start(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRecording {
		r.logger.Warn("recording already in progress",
			"targetPath", r.targetPath,
			"requestedPath", path,
		)
		return ErrAlreadyRecording
	}
	if path == "" {
		return ErrEmptyPath
	}

	if err := r.writeHeader(path); err != nil {
		r.logger.Error("could not start recording",
			"path", path,
			"err", err,
		)
		return err
	}

	r.isRecording = true
	r.targetPath = path
	r.sessionID = uuid.New()
	r.startTime = r.now()

	r.logger.Info("recording started",
		"session uuid", r.sessionID,
		"path", path,
	)
	return nil
}

func (r *Recorder) writeHeader(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open recording file: %w", err)
	}

	_, err = r.options.Header.WriteTo(f)
	if err == nil && r.options.BackfillSizes {
		err = wavheader.UpdateSizes(f, 0)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("write recording header: %w", err)
	}
	return nil
}

// Stop the active session.
//
// Reports the finished session and true, or a zero RecordingInfo and false if
// nothing was recording. No file operations besides a stat of the recording occur.
func (r *Recorder) Stop() (RecordingInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRecording {
		r.logger.Debug("stop called with no recording in progress")
		return RecordingInfo{}, false
	}
	r.isRecording = false

	endTime := r.now()
	info := RecordingInfo{
		ID:        r.sessionID,
		Path:      r.targetPath,
		StartTime: r.startTime,
		EndTime:   endTime,
		Duration:  endTime.Sub(r.startTime),
	}
	if stat, err := os.Stat(r.targetPath); err == nil {
		info.FileSize = stat.Size()
	}

	r.logger.Info("recording stopped",
		"session uuid", info.ID,
		"path", info.Path,
		"duration", info.Duration,
		"fileSize", info.FileSize,
	)
	return info, true
}

func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isRecording
}

// The path of the latest successful Start, retained after Stop.
func (r *Recorder) TargetPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.targetPath
}

// A timestamped recording file name inside dir,
// e.g. recording_2025-01-02T15-04-05-000Z.wav
func DefaultRecordingPath(dir string, t time.Time) string {
	timestamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	timestamp = strings.NewReplacer(":", "-", ".", "-").Replace(timestamp)
	return filepath.Join(dir, "recording_"+timestamp+".wav")
}
