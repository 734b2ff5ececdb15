package device

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/frame"
	"github.com/oov/audio/resampler"
)

const resampleQuality = 10

var errUnsupportedChannelCount = errors.New("only mono and stereo audio is supported")

// Middle-man processing device converting between channel counts and sample rates,
// e.g. a mono tone source feeding a stereo 44100Hz WAV writer.
//
// This device is both a sink and a source!
// GetStream returns the converted (outgoing) stream, SetStream takes the incoming one.
type AudioFormatConversionDevice struct {
	sourceChannel    <-chan frame.PCMFrame
	sourceProperties audiodevice.DeviceProperties

	sinkChannel    chan frame.PCMFrame
	sinkProperties audiodevice.DeviceProperties

	conversions []conversionFunction

	shutdownOnce sync.Once
}

// Create a conversion device from sourceProperties (audio entering the device)
// to sinkProperties (audio leaving it). Only mono and stereo are supported.
//
// Conversion only starts once SetStream is called.
func NewAudioFormatConversionDevice(
	sourceProperties audiodevice.DeviceProperties,
	sinkProperties audiodevice.DeviceProperties,
) (*AudioFormatConversionDevice, error) {
	for _, n := range []int{sourceProperties.NumChannels, sinkProperties.NumChannels} {
		if n != 1 && n != 2 {
			return nil, errUnsupportedChannelCount
		}
	}

	// Resample before widening to stereo so the resampler works on as few channels as possible
	conversions := make([]conversionFunction, 0)
	if sourceProperties.NumChannels == 2 && sinkProperties.NumChannels == 1 {
		slog.Debug("adding stereo to mono")
		conversions = append(conversions, stereoToMono)
	}
	if sourceProperties.SampleRate != sinkProperties.SampleRate {
		slog.Debug("adding resampler",
			"sourceSampleRate", sourceProperties.SampleRate,
			"sinkSampleRate", sinkProperties.SampleRate,
		)
		conversions = append(conversions, newResampleFunction(
			min(sourceProperties.NumChannels, sinkProperties.NumChannels),
			sourceProperties.SampleRate,
			sinkProperties.SampleRate,
		))
	}
	if sourceProperties.NumChannels == 1 && sinkProperties.NumChannels == 2 {
		slog.Debug("adding mono to stereo")
		conversions = append(conversions, monoToStereo)
	}

	return &AudioFormatConversionDevice{
		sourceProperties: sourceProperties,
		sinkProperties:   sinkProperties,
		sinkChannel:      make(chan frame.PCMFrame),
		conversions:      conversions,
	}, nil
}

// --------------------------------------------------------------------------------
// AudioSourceDevice Interface

func (d *AudioFormatConversionDevice) GetStream() <-chan frame.PCMFrame {
	return d.sinkChannel
}

func (d *AudioFormatConversionDevice) Close() {
	d.shutdownOnce.Do(func() {
		close(d.sinkChannel)
	})
}

// Properties of the audio *leaving* this device.
// See GetSourceDeviceProperties for the audio entering it.
func (d *AudioFormatConversionDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.sinkProperties
}

// --------------------------------------------------------------------------------
// AudioSinkDevice Interface

func (d *AudioFormatConversionDevice) SetStream(sourceChannel <-chan frame.PCMFrame) {
	d.sourceChannel = sourceChannel
	go func() {
		for pcmFrame := range d.sourceChannel {
			for _, f := range d.conversions {
				pcmFrame = f(pcmFrame)
			}
			if len(pcmFrame) == 0 {
				continue
			}
			d.sinkChannel <- pcmFrame
		}
		d.Close()
	}()
}

func (d *AudioFormatConversionDevice) GetSourceDeviceProperties() audiodevice.DeviceProperties {
	return d.sourceProperties
}

// --------------------------------------------------------------------------------

// Every conversionFunction returns freshly allocated memory, since the
// previous frame may still be in use downstream.
type conversionFunction func(sourceFrame frame.PCMFrame) frame.PCMFrame

func monoToStereo(sourceFrame frame.PCMFrame) frame.PCMFrame {
	out := make(frame.PCMFrame, 2*len(sourceFrame))
	for i, v := range sourceFrame {
		out[2*i] = v
		out[2*i+1] = v
	}
	return out
}

func stereoToMono(sourceFrame frame.PCMFrame) frame.PCMFrame {
	out := make(frame.PCMFrame, len(sourceFrame)/2)
	for i := range out {
		out[i] = (sourceFrame[2*i] + sourceFrame[2*i+1]) / 2
	}
	return out
}

func newResampleFunction(numChannels int, sourceSampleRate int, sinkSampleRate int) conversionFunction {
	r := resampler.New(numChannels, sourceSampleRate, sinkSampleRate, resampleQuality)

	// Upper bound on output samples per channel for a given input length
	outputLength := func(n int) int {
		return n*sinkSampleRate/sourceSampleRate + 16
	}

	if numChannels == 1 {
		return func(sourceFrame frame.PCMFrame) frame.PCMFrame {
			out := make(frame.PCMFrame, outputLength(len(sourceFrame)))
			_, written := r.ProcessFloat32(0, sourceFrame, out)
			return out[:written]
		}
	}

	return func(sourceFrame frame.PCMFrame) frame.PCMFrame {
		n := len(sourceFrame) / 2

		// sourceFrame is interleaved, the resampler works on planar data
		left := make(frame.PCMFrame, n)
		right := make(frame.PCMFrame, n)
		for i := range n {
			left[i] = sourceFrame[2*i]
			right[i] = sourceFrame[2*i+1]
		}

		leftOut := make(frame.PCMFrame, outputLength(n))
		rightOut := make(frame.PCMFrame, outputLength(n))
		_, written := r.ProcessFloat32(0, left, leftOut)
		r.ProcessFloat32(1, right, rightOut)

		out := make(frame.PCMFrame, 2*written)
		for i := range written {
			out[2*i] = leftOut[i]
			out[2*i+1] = rightOut[i]
		}
		return out
	}
}
