package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/loqalabs/loqa-transcribe/internal/config"
	"github.com/loqalabs/loqa-transcribe/internal/runtime"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		modelPath   string
		audioPath   string
		format      string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file (optional)")
	flag.StringVar(&modelPath, "model", "", "Model directory (overrides stt.model_path)")
	flag.StringVar(&audioPath, "audio", "", "WAV file to transcribe (overrides audio.path)")
	flag.StringVar(&format, "format", "", "Output format: json or text (overrides output.format)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(configPath, func(cfg *config.Config) {
		if modelPath != "" {
			cfg.STT.ModelPath = modelPath
		}
		if audioPath != "" {
			cfg.Audio.Path = audioPath
		}
		if format != "" {
			cfg.Output.Format = format
		}
	})
	if err != nil {
		newLogger("info").Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := newLogger(cfg.Telemetry.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := runtime.New(cfg, logger, os.Stdout, os.Stderr)
	if _, err := rt.Run(ctx); err != nil {
		logger.Error("transcription failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

// newLogger writes JSON logs to stderr; stdout carries only results.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
