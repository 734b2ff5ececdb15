package device

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/frame"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	chunkBitDepth = 16

	// WAVE_FORMAT_PCM
	chunkAudioFormat = 1
)

var errNonPositiveSamplesPerChunk = errors.New("non-positive samples per chunk")

// --------------------------------------------------------------------------------
// WAVChunkAudioSinkDevice

// An AudioSinkDevice that cuts incoming audio into fixed duration chunks and
// encodes every chunk as a complete 16 bit PCM .WAV file.
//
// Each chunk is written to a temporary file, read back and removed, and its bytes
// are sent along the channel returned by Chunks. A trailing partial chunk is
// dropped when the source stream closes.
type WAVChunkAudioSinkDevice struct {
	logger *slog.Logger
	uuid   uuid.UUID

	properties      audiodevice.DeviceProperties
	samplesPerChunk int
	tempDir         string

	chunkCounter int
	sourceStream <-chan frame.PCMFrame
	chunkStream  chan []byte
}

// Create a new WAVChunkAudioSinkDevice emitting chunks of chunkDuration in the
// given format. Temporary chunk files are created in tempDir, or in the
// default temporary directory if tempDir is empty.
func NewWAVChunkAudioSinkDevice(
	properties audiodevice.DeviceProperties,
	chunkDuration time.Duration,
	tempDir string,
) (*WAVChunkAudioSinkDevice, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"wav chunk sink device uuid", uuid,
	)

	samplesPerChunk := properties.SamplesFor(chunkDuration.Seconds())
	if samplesPerChunk <= 0 {
		logger.Error(
			"non-positive samples per chunk during creation of wav chunk sink",
			"sampleRate", properties.SampleRate,
			"channels", properties.NumChannels,
			"chunkDuration", chunkDuration,
		)
		return nil, errNonPositiveSamplesPerChunk
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	logger.Debug(
		"created wav chunk sink",
		"sampleRate", properties.SampleRate,
		"channels", properties.NumChannels,
		"samplesPerChunk", samplesPerChunk,
		"tempDir", tempDir,
	)

	return &WAVChunkAudioSinkDevice{
		logger:          logger,
		uuid:            uuid,
		properties:      properties,
		samplesPerChunk: samplesPerChunk,
		tempDir:         tempDir,
		chunkStream:     make(chan []byte),
	}, nil
}

// Encoded .WAV chunks arrive on the returned channel.
// The channel is closed once the source stream closes.
func (d *WAVChunkAudioSinkDevice) Chunks() <-chan []byte {
	return d.chunkStream
}

// Set the source channel of this audio device, i.e. where data comes from.
//
// When this stream is closed, the chunk channel is closed in turn.
func (d *WAVChunkAudioSinkDevice) SetStream(sourceStream <-chan frame.PCMFrame) {
	d.sourceStream = sourceStream
	go func() {
		defer close(d.chunkStream)

		pending := make([]int, 0, d.samplesPerChunk)
		for pcmFrame := range sourceStream {
			for _, sample := range pcmFrame {
				pending = append(pending, toInt16Range(sample))
				if len(pending) < d.samplesPerChunk {
					continue
				}

				chunk, err := d.encodeChunk(pending)
				pending = pending[:0]
				if err != nil {
					d.logger.Error("error while encoding chunk", "err", err)
					continue
				}
				d.chunkStream <- chunk
			}
		}

		d.logger.Debug("source stream closed", "droppedSamples", len(pending))
	}()
}

func (d *WAVChunkAudioSinkDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.properties
}

// Encode samples as a .WAV file in the temp directory, then read it back and remove it.
func (d *WAVChunkAudioSinkDevice) encodeChunk(samples []int) ([]byte, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	chunkPath := filepath.Join(d.tempDir, fmt.Sprintf("temp_chunk_%d_%s.wav", d.chunkCounter, id))
	d.chunkCounter += 1

	f, err := os.Create(chunkPath)
	if err != nil {
		return nil, err
	}
	defer os.Remove(chunkPath)

	encoder := wav.NewEncoder(f, d.properties.SampleRate, chunkBitDepth, d.properties.NumChannels, chunkAudioFormat)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			SampleRate:  d.properties.SampleRate,
			NumChannels: d.properties.NumChannels,
		},
		Data:           samples,
		SourceBitDepth: chunkBitDepth,
	}
	writeErr := encoder.Write(buf)
	closeErr := encoder.Close()
	fileErr := f.Close()
	if err := errors.Join(writeErr, closeErr, fileErr); err != nil {
		return nil, err
	}

	d.logger.Debug("encoded chunk", "chunkPath", chunkPath, "samples", len(samples))
	return os.ReadFile(chunkPath)
}

func toInt16Range(sample float32) int {
	const maxInt16 = float32(math.MaxInt16)
	sample = max(-1.0, min(1.0, sample))
	// Round half up
	return int(math.Floor(float64(sample*maxInt16) + 0.5))
}
