package config

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/internal/recorder"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/internal/streamer"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/internal/utils"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/pkg/audiodevice"
	"github.com/spf13/viper"
)

// Load defaults, then the config file at configFilePath if it exists.
// A missing config file is not an error, a malformed one is.
func LoadConfig(configFilePath string) error {
	utils.SetViperDefaults()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			slog.Info("no config file found", "configFilePath", configFilePath)
			return nil
		}
		slog.Error("error during config read", "err", err)
		return err
	}
	return nil
}

// Recorder options from the loaded configuration.
func RecorderOptions() recorder.Options {
	options := recorder.DefaultOptions()
	options.BackfillSizes = viper.GetBool("wav.backfillsizes")
	return options
}

// Streamer options from the loaded configuration.
func StreamerOptions() streamer.Options {
	return streamer.Options{
		ChunkDuration: viper.GetDuration("stream.chunkduration"),
		FrameDuration: viper.GetDuration("stream.frameduration"),
		ToneFrequency: viper.GetFloat64("stream.tonefrequency"),
		Amplitude:     float32(viper.GetFloat64("stream.amplitude")),
		SourceProperties: audiodevice.DeviceProperties{
			SampleRate:  viper.GetInt("stream.sourcesamplerate"),
			NumChannels: viper.GetInt("stream.sourcechannels"),
		},
		OutputProperties: audiodevice.DeviceProperties{
			SampleRate:  viper.GetInt("stream.samplerate"),
			NumChannels: viper.GetInt("stream.channels"),
		},
		TempDir: viper.GetString("stream.tempdir"),
	}
}
