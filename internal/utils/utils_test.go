package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestConfigureDefaultLoggerRejectsUnknownLevel(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	_, err := ConfigureDefaultLogger("verbose", "", slog.HandlerOptions{})
	require.ErrorIs(t, err, errUnexpectedLogLevel)
}

func TestConfigureDefaultLoggerWritesJSONFile(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	logFile := filepath.Join(t.TempDir(), "audiocapture.log")
	logFilePointer, err := ConfigureDefaultLogger("warn", logFile, slog.HandlerOptions{})
	require.NoError(t, err)
	require.NotNil(t, logFilePointer)

	slog.Info("filtered out")
	slog.Warn("kept", "path", "out.wav")
	require.NoError(t, logFilePointer.Close())

	b, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.NotContains(t, string(b), "filtered out")
	require.Contains(t, string(b), `"msg":"kept"`)
	require.Contains(t, string(b), `"path":"out.wav"`)
}

func TestConfigureDefaultLoggerNone(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	logFilePointer, err := ConfigureDefaultLogger("none", "", slog.HandlerOptions{})
	require.NoError(t, err)
	require.Nil(t, logFilePointer)
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		require.False(t, slog.Default().Enabled(t.Context(), level))
	}
}

func TestSetViperDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	SetViperDefaults()
	require.Equal(t, "info", viper.GetString("loglevel"))
	require.Empty(t, viper.GetString("recordingpath"))
	require.Equal(t, "./recordings", viper.GetString("recordingdir"))
	require.False(t, viper.GetBool("wav.backfillsizes"))
	require.Equal(t, 2*time.Second, viper.GetDuration("stream.chunkduration"))
	require.Equal(t, 44100, viper.GetInt("stream.samplerate"))
	require.Equal(t, 2, viper.GetInt("stream.channels"))
}
