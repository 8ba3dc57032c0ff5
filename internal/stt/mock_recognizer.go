package stt

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/loqalabs/loqa-transcribe/internal/protocol"
)

type mockModel struct {
	path        string
	utteranceMS int
}

// NewMockModel returns a deterministic engine that closes an utterance after
// every utteranceMS of 16-bit mono audio. path must be an existing directory.
func NewMockModel(path string, utteranceMS int) (Model, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	if !info.IsDir() {
		return nil, &ModelLoadError{Path: path, Err: errors.New("model path is not a directory")}
	}
	if utteranceMS <= 0 {
		return nil, &ModelLoadError{Path: path, Err: fmt.Errorf("invalid utterance length %dms", utteranceMS)}
	}
	return &mockModel{path: path, utteranceMS: utteranceMS}, nil
}

func (m *mockModel) NewRecognizer(sampleRate int) (Recognizer, error) {
	if sampleRate <= 0 {
		return nil, NewRecognizerError("create", fmt.Errorf("invalid sample rate %d", sampleRate))
	}
	return &mockRecognizer{utteranceBytes: sampleRate * 2 * m.utteranceMS / 1000}, nil
}

func (m *mockModel) Close() error { return nil }

type mockRecognizer struct {
	utteranceBytes int
	pending        int
	closed         int
	utterances     int
}

func (m *mockRecognizer) AcceptWaveform(ctx context.Context, pcm []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.pending += len(pcm)
	if m.pending < m.utteranceBytes {
		return false, nil
	}
	m.closed = m.pending
	m.pending = 0
	m.utterances++
	return true, nil
}

func (m *mockRecognizer) Result() (Result, error) {
	return encodeResult(KindFinal, protocol.FinalPayload{
		Text: fmt.Sprintf("[final transcript %d length=%d]", m.utterances, m.closed),
	})
}

func (m *mockRecognizer) PartialResult() (Result, error) {
	text := ""
	if m.pending > 0 {
		text = fmt.Sprintf("[partial transcript length=%d]", m.pending)
	}
	return encodeResult(KindPartial, protocol.PartialPayload{Partial: text})
}

func (m *mockRecognizer) FinalResult(context.Context) (Result, error) {
	if m.pending == 0 {
		return encodeResult(KindEndOfStream, protocol.FinalPayload{})
	}
	m.utterances++
	text := fmt.Sprintf("[final transcript %d length=%d]", m.utterances, m.pending)
	m.pending = 0
	return encodeResult(KindEndOfStream, protocol.FinalPayload{Text: text})
}

func (m *mockRecognizer) Close() error { return nil }
