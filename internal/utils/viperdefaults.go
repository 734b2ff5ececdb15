package utils

import (
	"time"

	"github.com/spf13/viper"
)

// Set the viper defaults for audiocapture.
// Stream defaults produce two second chunks of a quiet 440Hz tone, 44100Hz stereo.
func SetViperDefaults() {
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "")

	// Empty so recordings get a timestamped name inside recordingdir
	viper.SetDefault("recordingpath", "")
	viper.SetDefault("recordingdir", "./recordings")
	viper.SetDefault("wav.backfillsizes", false)

	viper.SetDefault("stream.chunkduration", 2*time.Second)
	viper.SetDefault("stream.frameduration", 20*time.Millisecond)
	viper.SetDefault("stream.tonefrequency", 440.0)
	viper.SetDefault("stream.amplitude", 0.1)
	viper.SetDefault("stream.sourcesamplerate", 44100)
	viper.SetDefault("stream.sourcechannels", 1)
	viper.SetDefault("stream.samplerate", 44100)
	viper.SetDefault("stream.channels", 2)
	viper.SetDefault("stream.tempdir", "")
}
