package streamer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/audiodevice/device"
	"github.com/google/uuid"
)

var (
	ErrAlreadyStreaming = errors.New("already streaming")
	ErrNilCallback      = errors.New("nil chunk callback")
)

type Options struct {
	// Length of audio in every emitted chunk
	ChunkDuration time.Duration

	// Pacing of the tone source, one frame per FrameDuration
	FrameDuration time.Duration

	ToneFrequency float64
	Amplitude     float32

	// Format of the generated tone, before conversion
	SourceProperties audiodevice.DeviceProperties

	// Format of the emitted chunks
	OutputProperties audiodevice.DeviceProperties

	// Directory for temporary chunk files, empty for the default temporary directory
	TempDir string
}

// Two second chunks of a quiet 440Hz tone, 44100Hz stereo.
func DefaultOptions() Options {
	return Options{
		ChunkDuration:    2 * time.Second,
		FrameDuration:    20 * time.Millisecond,
		ToneFrequency:    440,
		Amplitude:        0.1,
		SourceProperties: audiodevice.DeviceProperties{SampleRate: 44100, NumChannels: 1},
		OutputProperties: audiodevice.DeviceProperties{SampleRate: 44100, NumChannels: 2},
	}
}

// Delivers mock audio as a sequence of complete .WAV files.
//
// While streaming, a tone source is run through gain and format conversion
// into a chunk writer, and every finished chunk is passed to the callback
// given to StartStreaming. The callback runs on a single goroutine owned by
// the streamer and must not call StopStreaming.
type Streamer struct {
	logger  *slog.Logger
	uuid    uuid.UUID
	options Options

	mu          sync.Mutex
	isStreaming bool
	source      *device.ToneAudioSourceDevice
	done        chan struct{}
}

func NewStreamer(options Options) *Streamer {
	uuid := uuid.New()
	return &Streamer{
		logger: slog.Default().With(
			"streamer uuid", uuid,
		),
		uuid:    uuid,
		options: options,
	}
}

// Build the device pipeline and start emitting chunks to callback.
func (s *Streamer) StartStreaming(callback func(chunk []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStreaming {
		return ErrAlreadyStreaming
	}
	if callback == nil {
		return ErrNilCallback
	}

	source, err := device.NewToneAudioSourceDevice(
		s.options.SourceProperties,
		s.options.ToneFrequency,
		s.options.FrameDuration,
	)
	if err != nil {
		return err
	}
	gain := device.NewAudioAugmentationDevice(s.options.SourceProperties, s.options.Amplitude)
	conversion, err := device.NewAudioFormatConversionDevice(s.options.SourceProperties, s.options.OutputProperties)
	if err != nil {
		source.Close()
		return err
	}
	sink, err := device.NewWAVChunkAudioSinkDevice(s.options.OutputProperties, s.options.ChunkDuration, s.options.TempDir)
	if err != nil {
		source.Close()
		return err
	}

	gain.SetStream(source.GetStream())
	conversion.SetStream(gain.GetStream())
	sink.SetStream(conversion.GetStream())

	done := make(chan struct{})
	go func() {
		defer close(done)
		chunkCount := 0
		for chunk := range sink.Chunks() {
			chunkCount += 1
			s.logger.Debug("delivering chunk", "chunk", chunkCount, "bytes", len(chunk))
			callback(chunk)
		}
		s.logger.Debug("chunk stream closed", "chunks", chunkCount)
	}()

	source.Play(context.Background())

	s.isStreaming = true
	s.source = source
	s.done = done
	s.logger.Info("streaming started",
		"chunkDuration", s.options.ChunkDuration,
		"sampleRate", s.options.OutputProperties.SampleRate,
		"channels", s.options.OutputProperties.NumChannels,
	)
	return nil
}

// Stop streaming and wait for the pipeline to drain.
// Returns false if nothing was streaming. A partially filled chunk is discarded.
func (s *Streamer) StopStreaming() bool {
	s.mu.Lock()
	if !s.isStreaming {
		s.mu.Unlock()
		return false
	}
	source, done := s.source, s.done
	s.isStreaming = false
	s.source = nil
	s.done = nil
	s.mu.Unlock()

	// Closing the source cascades through every device down to the callback goroutine
	source.Close()
	<-done

	s.logger.Info("streaming stopped")
	return true
}

func (s *Streamer) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isStreaming
}
