package stt

import (
	"context"

	"github.com/loqalabs/loqa-transcribe/internal/protocol"
)

// Kind classifies a recognizer result.
type Kind int

const (
	KindPartial Kind = iota
	KindFinal
	KindEndOfStream
)

func (k Kind) String() string {
	switch k {
	case KindPartial:
		return "partial"
	case KindFinal:
		return "final"
	case KindEndOfStream:
		return "end_of_stream"
	default:
		return "unknown"
	}
}

// Result captures recognizer output. Raw holds the engine payload verbatim.
type Result struct {
	Kind         Kind
	Text         string
	Confidence   float64
	Words        []protocol.Word
	Alternatives []protocol.Alternative
	Raw          []byte
}

// Recognizer abstracts a stateful streaming STT engine bound to one model and
// one sample rate.
type Recognizer interface {
	// AcceptWaveform feeds PCM and reports whether an utterance boundary was reached.
	AcceptWaveform(ctx context.Context, pcm []byte) (bool, error)
	// Result returns the utterance closed by the last AcceptWaveform.
	Result() (Result, error)
	// PartialResult returns the hypothesis for the open utterance.
	PartialResult() (Result, error)
	// FinalResult flushes whatever is pending once input is exhausted.
	// Engines that do work here stop when ctx is cancelled.
	FinalResult(ctx context.Context) (Result, error)
	Close() error
}

// Model is a loaded model resource able to construct recognizers.
type Model interface {
	NewRecognizer(sampleRate int) (Recognizer, error)
	Close() error
}
