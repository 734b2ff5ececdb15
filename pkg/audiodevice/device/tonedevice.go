package device

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/frame"
	"github.com/google/uuid"
)

var (
	errNonPositiveFrequency       = errors.New("tone frequency must be positive")
	errNonPositiveSamplesPerFrame = errors.New("non-positive samples per frame")
)

// An AudioSourceDevice producing a full scale sine wave, one frame per frameDuration.
//
// Stands in for a microphone where no capture backend exists.
// Every channel of a frame carries the same sample.
type ToneAudioSourceDevice struct {
	logger *slog.Logger
	uuid   uuid.UUID

	ctx           context.Context
	ctxCancelFunc context.CancelFunc

	properties     audiodevice.DeviceProperties
	frequency      float64
	frameDuration  time.Duration
	framesPerFrame int

	mu           sync.Mutex
	playing      bool
	shutdownOnce sync.Once
	sinkStream   chan frame.PCMFrame
}

// Create a new tone source with the given output format and frequency in Hz.
//
// Each frame holds frameDuration worth of audio for every channel.
// Nothing is produced until Play is called.
func NewToneAudioSourceDevice(
	properties audiodevice.DeviceProperties,
	frequency float64,
	frameDuration time.Duration,
) (*ToneAudioSourceDevice, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"tone source device uuid", uuid,
	)

	if frequency <= 0 {
		logger.Error("could not create tone source", "frequency", frequency)
		return nil, errNonPositiveFrequency
	}

	framesPerFrame := int(float64(properties.SampleRate) * frameDuration.Seconds())
	if framesPerFrame <= 0 || properties.NumChannels <= 0 {
		logger.Error(
			"non-positive samples per frame during creation of tone source",
			"sampleRate", properties.SampleRate,
			"channels", properties.NumChannels,
			"frameDuration", frameDuration,
		)
		return nil, errNonPositiveSamplesPerFrame
	}

	ctx, ctxCancelFunc := context.WithCancel(context.Background())
	return &ToneAudioSourceDevice{
		logger:         logger,
		uuid:           uuid,
		ctx:            ctx,
		ctxCancelFunc:  ctxCancelFunc,
		properties:     properties,
		frequency:      frequency,
		frameDuration:  frameDuration,
		framesPerFrame: framesPerFrame,
		sinkStream:     make(chan frame.PCMFrame),
	}, nil
}

// Start producing frames. Playback runs until ctx is canceled or Close is called,
// after which the stream is closed. Calling Play a second time does nothing.
func (d *ToneAudioSourceDevice) Play(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playing || d.ctx.Err() != nil {
		return
	}
	d.playing = true

	d.logger.Debug("playing tone", "frequency", d.frequency)
	go func() {
		defer d.closeStream()

		ticker := time.NewTicker(d.frameDuration)
		defer ticker.Stop()

		phase := 0.0
		phaseStep := 2 * math.Pi * d.frequency / float64(d.properties.SampleRate)
		for {
			pcmFrame := make(frame.PCMFrame, d.framesPerFrame*d.properties.NumChannels)
			for i := range d.framesPerFrame {
				sample := float32(math.Sin(phase))
				for c := range d.properties.NumChannels {
					pcmFrame[i*d.properties.NumChannels+c] = sample
				}
				phase += phaseStep
				if phase >= 2*math.Pi {
					phase -= 2 * math.Pi
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			case <-d.ctx.Done():
				return
			}

			select {
			case d.sinkStream <- pcmFrame:
			case <-ctx.Done():
				return
			case <-d.ctx.Done():
				return
			}
		}
	}()
}

func (d *ToneAudioSourceDevice) closeStream() {
	d.shutdownOnce.Do(func() {
		d.logger.Debug("closing stream")
		close(d.sinkStream)
	})
}

// Stop playback and close the stream.
// If Play is running, the stream is closed by the playback goroutine as it exits.
func (d *ToneAudioSourceDevice) Close() {
	d.logger.Debug("shutdown called")
	d.ctxCancelFunc()

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.playing {
		d.closeStream()
	}
}

func (d *ToneAudioSourceDevice) GetStream() <-chan frame.PCMFrame {
	return d.sinkStream
}

func (d *ToneAudioSourceDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.properties
}
