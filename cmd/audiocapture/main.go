package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/cmd/config"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/internal/binding"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/internal/recorder"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/internal/streamer"
	"github.com/Honorable-Knights-of-the-Roundtable/audiocapture/internal/utils"
	"github.com/spf13/viper"
)

// Pick the recording path: the flag, then the configured path, then a timestamped file in recordingdir.
func recordingPath(output string) (string, error) {
	if output != "" {
		return output, nil
	}
	if path := viper.GetString("recordingpath"); path != "" {
		return path, nil
	}

	dir := viper.GetString("recordingdir")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return recorder.DefaultRecordingPath(dir, time.Now()), nil
}

// Returns a callback logging every chunk, and writing it to chunkDir if set.
func chunkCallback(chunkDir string) func([]byte) {
	chunkCount := 0
	return func(chunk []byte) {
		chunkCount += 1
		slog.Info("received chunk", "chunk", chunkCount, "bytes", len(chunk))
		if chunkDir == "" {
			return
		}

		chunkPath := filepath.Join(chunkDir, fmt.Sprintf("chunk_%04d.wav", chunkCount))
		if err := os.WriteFile(chunkPath, chunk, 0644); err != nil {
			slog.Error("error while writing chunk", "chunkPath", chunkPath, "err", err)
		}
	}
}

func main() {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	output := flag.String("output", "", "Recording file path. Overrides recordingpath from the config file.")
	duration := flag.Duration("duration", 0, "Stop after this long. Zero waits for an interrupt.")
	stream := flag.Bool("stream", false, "Also stream mock audio chunks while recording.")
	chunkDir := flag.String("chunkDir", "", "Directory to save streamed chunks into. Chunks are only logged if empty.")
	flag.Parse()

	if err := config.LoadConfig(*configFilePath); err != nil {
		panic(err)
	}
	logFilePointer, err := utils.ConfigureDefaultLogger(
		viper.GetString("loglevel"),
		viper.GetString("logfile"),
		slog.HandlerOptions{},
	)
	if err != nil {
		slog.Error("error while configuring default logger", "err", err)
		panic(err)
	}
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}

	// --------------------------------------------------------------------------------

	rec := recorder.NewRecorder(config.RecorderOptions(), slog.Default())
	module := binding.NewModule(
		rec,
		streamer.NewStreamer(config.StreamerOptions()),
		slog.Default(),
	)

	path, err := recordingPath(*output)
	if err != nil {
		slog.Error("could not determine recording path", "err", err)
		os.Exit(1)
	}

	started, err := module.Call("startRecording", path)
	if err != nil {
		slog.Error("error calling startRecording", "err", err)
		os.Exit(1)
	}
	if started != true {
		slog.Error("recording did not start", "path", path)
		os.Exit(1)
	}

	if *stream {
		if *chunkDir != "" {
			if err := os.MkdirAll(*chunkDir, 0755); err != nil {
				slog.Error("could not create chunk directory", "chunkDir", *chunkDir, "err", err)
				os.Exit(1)
			}
		}
		if started, err := module.Call("startStreaming", chunkCallback(*chunkDir)); err != nil || started != true {
			slog.Error("streaming did not start", "err", err)
		}
	}

	// --------------------------------------------------------------------------------

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}
	<-ctx.Done()

	if *stream {
		module.Call("stopStreaming")
	}
	module.Call("stopRecording")
	slog.Info("done", "path", rec.TargetPath())
}
