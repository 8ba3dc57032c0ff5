package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-transcribe/internal/stt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultChunkFrames is the number of frames read and fed per iteration.
const DefaultChunkFrames = 4000

const instrumentationName = "github.com/loqalabs/loqa-transcribe/transcribe"

// FrameReader yields raw PCM in chunks of whole frames. It returns io.EOF once
// exhausted and never returns an empty chunk with a nil error.
type FrameReader interface {
	ReadFrames(n int) ([]byte, error)
}

// Sink receives every result in order.
type Sink interface {
	Print(res stt.Result) error
}

type Options struct {
	ChunkFrames int
	Logger      *slog.Logger
	Tracer      trace.Tracer
	Meter       metric.Meter
}

// Stats summarizes one run.
type Stats struct {
	Chunks   int
	Bytes    int64
	Partials int
	Finals   int
}

// Driver feeds audio to a recognizer chunk by chunk and forwards every result.
// It is single use and not safe for concurrent calls.
type Driver struct {
	source      FrameReader
	recognizer  stt.Recognizer
	sink        Sink
	chunkFrames int
	log         *slog.Logger
	tracer      trace.Tracer

	chunkCounter  metric.Int64Counter
	byteCounter   metric.Int64Counter
	resultCounter metric.Int64Counter
	acceptLatency metric.Float64Histogram
}

func NewDriver(source FrameReader, recognizer stt.Recognizer, sink Sink, opts Options) *Driver {
	if opts.ChunkFrames <= 0 {
		opts.ChunkFrames = DefaultChunkFrames
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(instrumentationName)
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter(instrumentationName)
	}
	d := &Driver{
		source:      source,
		recognizer:  recognizer,
		sink:        sink,
		chunkFrames: opts.ChunkFrames,
		log:         opts.Logger.With(slog.String("component", "transcribe-driver")),
		tracer:      opts.Tracer,
	}
	if err := d.initMetrics(opts.Meter); err != nil {
		d.log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}
	return d
}

func (d *Driver) initMetrics(meter metric.Meter) error {
	var err error
	if d.chunkCounter, err = meter.Int64Counter("loqa.transcribe.chunks",
		metric.WithDescription("Audio chunks fed to the recognizer")); err != nil {
		return err
	}
	if d.byteCounter, err = meter.Int64Counter("loqa.transcribe.audio_bytes",
		metric.WithDescription("PCM bytes fed to the recognizer"), metric.WithUnit("By")); err != nil {
		return err
	}
	if d.resultCounter, err = meter.Int64Counter("loqa.transcribe.results",
		metric.WithDescription("Results printed, by kind")); err != nil {
		return err
	}
	if d.acceptLatency, err = meter.Float64Histogram("loqa.transcribe.accept_latency",
		metric.WithDescription("Time spent inside AcceptWaveform"), metric.WithUnit("ms")); err != nil {
		return err
	}
	return nil
}

// Run reads until the source is exhausted, printing a partial or final result
// per chunk, then prints the end-of-stream result. The first error stops the run.
func (d *Driver) Run(ctx context.Context) (stats Stats, err error) {
	ctx, span := d.tracer.Start(ctx, "transcribe.run",
		trace.WithAttributes(attribute.Int("chunk_frames", d.chunkFrames)))
	defer func() {
		span.SetAttributes(
			attribute.Int("chunks", stats.Chunks),
			attribute.Int64("bytes", stats.Bytes),
			attribute.Int("finals", stats.Finals),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		chunk, err := d.source.ReadFrames(d.chunkFrames)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read chunk %d: %w", stats.Chunks, err)
		}
		if len(chunk) == 0 {
			break
		}

		started := time.Now()
		boundary, err := d.recognizer.AcceptWaveform(ctx, chunk)
		d.record(ctx, d.acceptLatency, float64(time.Since(started).Microseconds())/1000)
		if err != nil {
			return stats, stt.NewRecognizerError("accept", err)
		}
		stats.Chunks++
		stats.Bytes += int64(len(chunk))
		d.add(ctx, d.chunkCounter, 1)
		d.add(ctx, d.byteCounter, int64(len(chunk)))

		var res stt.Result
		if boundary {
			res, err = d.recognizer.Result()
			stats.Finals++
			span.AddEvent("utterance.closed", trace.WithAttributes(attribute.Int("chunk", stats.Chunks)))
		} else {
			res, err = d.recognizer.PartialResult()
			stats.Partials++
		}
		if err != nil {
			return stats, stt.NewRecognizerError("result", err)
		}
		if err := d.emit(ctx, res); err != nil {
			return stats, err
		}
	}

	res, err := d.recognizer.FinalResult(ctx)
	if err != nil {
		return stats, stt.NewRecognizerError("final", err)
	}
	if err := d.emit(ctx, res); err != nil {
		return stats, err
	}
	d.log.Debug("transcription finished",
		slog.Int("chunks", stats.Chunks),
		slog.Int64("bytes", stats.Bytes),
		slog.Int("finals", stats.Finals),
		slog.Int("partials", stats.Partials))
	return stats, nil
}

func (d *Driver) emit(ctx context.Context, res stt.Result) error {
	if err := d.sink.Print(res); err != nil {
		return fmt.Errorf("print %s result: %w", res.Kind, err)
	}
	if d.resultCounter != nil {
		d.resultCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", res.Kind.String())))
	}
	return nil
}

func (d *Driver) add(ctx context.Context, counter metric.Int64Counter, n int64) {
	if counter != nil {
		counter.Add(ctx, n)
	}
}

func (d *Driver) record(ctx context.Context, hist metric.Float64Histogram, v float64) {
	if hist != nil {
		hist.Record(ctx, v)
	}
}
