package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-transcribe/internal/audio"
	"github.com/loqalabs/loqa-transcribe/internal/config"
	"github.com/loqalabs/loqa-transcribe/internal/stt"
	"github.com/loqalabs/loqa-transcribe/internal/transcribe"
)

const instrumentationName = "github.com/loqalabs/loqa-transcribe/runtime"

// Runtime wires one transcription run: engine setup, model, audio source,
// recognizer and driver. Every acquired resource is released on return.
type Runtime struct {
	cfg    config.Config
	logger *slog.Logger
	stdout io.Writer
	diag   io.Writer
}

// New returns a runtime printing results to stdout and diagnostics (traces,
// metric dumps) to diag.
func New(cfg config.Config, logger *slog.Logger, stdout, diag io.Writer) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
		stdout: stdout,
		diag:   diag,
	}
}

func (r *Runtime) Run(ctx context.Context) (stats transcribe.Stats, err error) {
	tel, err := setupTelemetry(ctx, r.cfg, r.logger, r.diag)
	if err != nil {
		return stats, fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() {
		if r.cfg.Telemetry.DumpMetrics {
			if dumpErr := tel.dumpMetrics(r.diag); dumpErr != nil {
				r.logger.Error("metrics dump error", slog.String("error", dumpErr.Error()))
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if shutdownErr := tel.shutdown(shutdownCtx); shutdownErr != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", shutdownErr.Error()))
		}
	}()

	teardown := stt.Setup(r.cfg.STT)
	defer teardown()

	model, err := stt.LoadModel(r.cfg.STT)
	if err != nil {
		return stats, err
	}
	defer closeQuietly(r.logger, "model", model.Close)
	r.logger.Info("model loaded", slog.String("mode", r.cfg.STT.Mode), slog.String("model_path", r.cfg.STT.ModelPath))

	source, err := audio.Open(r.cfg.Audio.Path)
	if err != nil {
		return stats, err
	}
	defer closeQuietly(r.logger, "audio source", source.Close)
	r.logger.Info("audio opened",
		slog.String("path", source.Path()),
		slog.Int("sample_rate", source.SampleRate()),
		slog.Int("channels", source.Channels()),
		slog.Int("bit_depth", source.BitDepth()),
		slog.Duration("duration", source.Duration()))

	recognizer, err := model.NewRecognizer(source.SampleRate())
	if err != nil {
		return stats, stt.NewRecognizerError("create", err)
	}
	defer closeQuietly(r.logger, "recognizer", recognizer.Close)

	printer, err := transcribe.NewPrinter(r.stdout, r.cfg.Output.Format)
	if err != nil {
		return stats, err
	}

	driver := transcribe.NewDriver(source, recognizer, printer, transcribe.Options{
		ChunkFrames: r.cfg.Audio.ChunkFrames,
		Logger:      r.logger,
		Tracer:      tel.tracerProvider.Tracer(instrumentationName),
		Meter:       tel.meterProvider.Meter(instrumentationName),
	})
	stats, err = driver.Run(ctx)
	if err != nil {
		return stats, err
	}
	r.logger.Info("transcription complete",
		slog.Int("chunks", stats.Chunks),
		slog.Int("finals", stats.Finals),
		slog.Int64("bytes", stats.Bytes))
	return stats, nil
}

func closeQuietly(logger *slog.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn("failed to release "+what, slog.String("error", err.Error()))
	}
}
