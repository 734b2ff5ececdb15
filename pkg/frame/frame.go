package frame

// A PCMFrame is a slice of interleaved samples in the range [-1.0, 1.0].
//
// For stereo audio, even indices hold the left channel and odd indices the right.
// The sample rate and channel count are carried by the device that produced the frame,
// see audiodevice.DeviceProperties.
type PCMFrame []float32
