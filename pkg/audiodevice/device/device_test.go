package device

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/frame"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/wavheader"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	mono44100   = audiodevice.DeviceProperties{SampleRate: 44100, NumChannels: 1}
	stereo44100 = audiodevice.DeviceProperties{SampleRate: 44100, NumChannels: 2}
)

// Feed frames into a fresh channel and close it.
func feed(frames ...frame.PCMFrame) <-chan frame.PCMFrame {
	c := make(chan frame.PCMFrame)
	go func() {
		defer close(c)
		for _, f := range frames {
			c <- f
		}
	}()
	return c
}

func collect(t *testing.T, c <-chan frame.PCMFrame) []frame.PCMFrame {
	t.Helper()
	var frames []frame.PCMFrame
	timeout := time.After(5 * time.Second)
	for {
		select {
		case f, ok := <-c:
			if !ok {
				return frames
			}
			frames = append(frames, f)
		case <-timeout:
			t.Fatal("timed out waiting for stream to close")
		}
	}
}

func TestToneSourceRejectsBadParameters(t *testing.T) {
	_, err := NewToneAudioSourceDevice(mono44100, 0, 20*time.Millisecond)
	require.ErrorIs(t, err, errNonPositiveFrequency)

	_, err = NewToneAudioSourceDevice(mono44100, 440, 0)
	require.ErrorIs(t, err, errNonPositiveSamplesPerFrame)

	_, err = NewToneAudioSourceDevice(audiodevice.DeviceProperties{SampleRate: 44100}, 440, time.Millisecond)
	require.ErrorIs(t, err, errNonPositiveSamplesPerFrame)
}

func TestToneSourceProducesFrames(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, err := NewToneAudioSourceDevice(stereo44100, 440, 10*time.Millisecond)
	require.NoError(t, err)
	d.Play(context.Background())

	f := <-d.GetStream()
	require.Len(t, f, 441*2)
	for i := 0; i < len(f); i += 2 {
		require.Equal(t, f[i], f[i+1])
		require.LessOrEqual(t, f[i], float32(1.0))
		require.GreaterOrEqual(t, f[i], float32(-1.0))
	}

	d.Close()
	collect(t, d.GetStream())
}

func TestToneSourceStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, err := NewToneAudioSourceDevice(mono44100, 440, 5*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	d.Play(ctx)
	<-d.GetStream()
	cancel()
	collect(t, d.GetStream())
}

func TestToneSourceCloseWithoutPlay(t *testing.T) {
	d, err := NewToneAudioSourceDevice(mono44100, 440, 5*time.Millisecond)
	require.NoError(t, err)

	d.Close()
	d.Close()
	require.Empty(t, collect(t, d.GetStream()))

	// Playing a closed device does nothing
	d.Play(context.Background())
}

func TestAugmentationAppliesGain(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewAudioAugmentationDevice(mono44100, 0.5)
	d.SetStream(feed(frame.PCMFrame{1.0, -0.5, 0.25}))

	frames := collect(t, d.GetStream())
	require.Len(t, frames, 1)
	require.Equal(t, frame.PCMFrame{0.5, -0.25, 0.125}, frames[0])
}

func TestAugmentationClampsNegativeGain(t *testing.T) {
	d := NewAudioAugmentationDevice(mono44100, -1)
	require.Equal(t, float32(0.0), d.Gain())

	d.SetGain(0.1)
	require.Equal(t, float32(0.1), d.Gain())
}

func TestFormatConversionMonoToStereo(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, err := NewAudioFormatConversionDevice(mono44100, stereo44100)
	require.NoError(t, err)
	require.Equal(t, stereo44100, d.GetDeviceProperties())
	require.Equal(t, mono44100, d.GetSourceDeviceProperties())

	d.SetStream(feed(frame.PCMFrame{0.1, 0.2, 0.3}))
	frames := collect(t, d.GetStream())
	require.Len(t, frames, 1)
	require.Equal(t, frame.PCMFrame{0.1, 0.1, 0.2, 0.2, 0.3, 0.3}, frames[0])
}

func TestFormatConversionStereoToMono(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, err := NewAudioFormatConversionDevice(stereo44100, mono44100)
	require.NoError(t, err)

	d.SetStream(feed(frame.PCMFrame{0.5, 0.25, -1.0, 1.0}))
	frames := collect(t, d.GetStream())
	require.Len(t, frames, 1)
	require.Equal(t, frame.PCMFrame{0.375, 0.0}, frames[0])
}

func TestFormatConversionResamples(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := audiodevice.DeviceProperties{SampleRate: 22050, NumChannels: 1}
	d, err := NewAudioFormatConversionDevice(source, stereo44100)
	require.NoError(t, err)

	input := make([]frame.PCMFrame, 10)
	for i := range input {
		input[i] = make(frame.PCMFrame, 2205)
	}
	d.SetStream(feed(input...))

	total := 0
	for _, f := range collect(t, d.GetStream()) {
		require.Zero(t, len(f)%2)
		total += len(f)
	}

	// 1s of 22050Hz mono becomes roughly 1s of 44100Hz stereo, minus resampler latency
	require.Greater(t, total, 44100)
	require.LessOrEqual(t, total, 10*2*(2*2205+16))
}

func TestFormatConversionRejectsSurround(t *testing.T) {
	_, err := NewAudioFormatConversionDevice(audiodevice.DeviceProperties{SampleRate: 48000, NumChannels: 6}, stereo44100)
	require.ErrorIs(t, err, errUnsupportedChannelCount)
}

func TestWAVChunkSinkEmitsDecodableChunks(t *testing.T) {
	defer goleak.VerifyNone(t)

	tempDir := t.TempDir()
	properties := audiodevice.DeviceProperties{SampleRate: 8000, NumChannels: 2}
	d, err := NewWAVChunkAudioSinkDevice(properties, 100*time.Millisecond, tempDir)
	require.NoError(t, err)

	// 1600 samples per chunk; 3500 samples yield two chunks and a dropped remainder
	frames := make([]frame.PCMFrame, 7)
	for i := range frames {
		frames[i] = make(frame.PCMFrame, 500)
		for j := range frames[i] {
			frames[i][j] = 0.5
		}
	}
	d.SetStream(feed(frames...))

	var chunks [][]byte
	for chunk := range d.Chunks() {
		chunks = append(chunks, chunk)
	}
	require.Len(t, chunks, 2)

	for _, chunk := range chunks {
		h, err := wavheader.Parse(chunk)
		require.NoError(t, err)
		require.Equal(t, uint16(2), h.NumChannels)
		require.Equal(t, uint32(8000), h.SampleRate)
		require.Equal(t, uint16(16), h.BitsPerSample)

		decoder := wav.NewDecoder(bytes.NewReader(chunk))
		require.True(t, decoder.IsValidFile())
		buf, err := decoder.FullPCMBuffer()
		require.NoError(t, err)
		require.Len(t, buf.Data, 1600)
		require.Equal(t, toInt16Range(0.5), buf.Data[0])
	}

	// Temporary chunk files are removed
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestWAVChunkSinkRejectsZeroDuration(t *testing.T) {
	_, err := NewWAVChunkAudioSinkDevice(stereo44100, 0, "")
	require.ErrorIs(t, err, errNonPositiveSamplesPerChunk)
}

func TestToInt16RangeClamps(t *testing.T) {
	require.Equal(t, 32767, toInt16Range(2.0))
	require.Equal(t, -32767, toInt16Range(-2.0))
	require.Equal(t, 0, toInt16Range(0))
}

func TestToInt16RangeRoundsHalfUp(t *testing.T) {
	require.Equal(t, 16384, toInt16Range(0.5))
	require.Equal(t, -16383, toInt16Range(-0.5))
	require.Equal(t, 3277, toInt16Range(0.1))
	require.Equal(t, -3277, toInt16Range(-0.1))
}
