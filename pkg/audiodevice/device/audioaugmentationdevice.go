package device

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/frame"
)

// Middle-man processing device applying gain to every sample.
// This device is both a sink and a source!
type AudioAugmentationDevice struct {
	deviceProperties audiodevice.DeviceProperties

	// The stream that data *arrives on*
	sourceStream <-chan frame.PCMFrame

	// The stream that data *leaves on*
	sinkStream chan frame.PCMFrame

	// float32 bits of the current gain
	gain atomic.Uint32

	shutdownOnce sync.Once
}

// Create a new AudioAugmentationDevice with the given initial gain
// (0.0 for mute, 1.0 to pass audio unchanged).
//
// The device only starts processing once SetStream is called.
func NewAudioAugmentationDevice(deviceProperties audiodevice.DeviceProperties, gain float32) *AudioAugmentationDevice {
	d := &AudioAugmentationDevice{
		deviceProperties: deviceProperties,
		sinkStream:       make(chan frame.PCMFrame),
	}
	d.SetGain(gain)
	return d
}

// --------------------------------------------------------------------------------
// AudioSourceDevice Interface

func (d *AudioAugmentationDevice) GetStream() <-chan frame.PCMFrame {
	return d.sinkStream
}

// Close the outgoing stream. Only the processing goroutine calls this once
// SetStream has been called; closing the upstream source is the way to
// shut a running pipeline down.
func (d *AudioAugmentationDevice) Close() {
	d.shutdownOnce.Do(func() {
		close(d.sinkStream)
	})
}

// Incoming and outgoing frames share the same format.
func (d *AudioAugmentationDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.deviceProperties
}

// --------------------------------------------------------------------------------
// AudioSinkDevice Interface

func (d *AudioAugmentationDevice) SetStream(sourceStream <-chan frame.PCMFrame) {
	d.sourceStream = sourceStream
	go func() {
		for pcmFrame := range d.sourceStream {
			gain := d.Gain()
			for i := range pcmFrame {
				pcmFrame[i] *= gain
			}
			d.sinkStream <- pcmFrame
		}
		d.Close()
	}()
}

// --------------------------------------------------------------------------------

// Set the gain applied to later frames. Negative values are treated as 0.0.
func (d *AudioAugmentationDevice) SetGain(gain float32) {
	if gain < 0.0 {
		gain = 0.0
	}
	d.gain.Store(math.Float32bits(gain))
}

func (d *AudioAugmentationDevice) Gain() float32 {
	return math.Float32frombits(d.gain.Load())
}
