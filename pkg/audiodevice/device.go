package audiodevice

import "github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/frame"

type DeviceProperties struct {
	SampleRate  int
	NumChannels int
}

// Number of interleaved samples covering the given number of seconds.
func (p DeviceProperties) SamplesFor(seconds float64) int {
	return int(float64(p.SampleRate) * float64(p.NumChannels) * seconds)
}

// Interface for audio source devices, e.g. a tone generator standing in for a microphone.
//
// Source devices need only define some way to get data out of the device,
// which returns a channel (stream) of PCMFrames
type AudioSourceDevice interface {
	// Get the stream of this audio device.
	//
	// Raw audio data (as PCMFrames) will arrive on the returned channel.
	GetStream() <-chan frame.PCMFrame

	// Close the device and its stream.
	//
	// Once closed, this device will transmit no more information.
	Close()

	GetDeviceProperties() DeviceProperties
}

// Interface for audio sink devices, e.g. a WAV chunk writer.
//
// Sink devices need only define some way to consume data,
// taken as a channel (stream) of PCMFrames
type AudioSinkDevice interface {
	// Set the source stream of this audio device.
	//
	// When this stream is closed the device cleans itself up, so that closing
	// the first source of a pipeline cascades closures down to the last sink.
	SetStream(sourceStream <-chan frame.PCMFrame)

	GetDeviceProperties() DeviceProperties
}
