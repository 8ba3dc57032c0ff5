//go:build vosk

package stt

import (
	"context"
	"errors"
	"fmt"

	vosk "github.com/alphacep/vosk-api/go"
	"github.com/loqalabs/loqa-transcribe/internal/config"
)

func setupVosk(cfg config.STTConfig) func() {
	vosk.SetLogLevel(cfg.EngineLogLevel)
	return func() {}
}

type voskModel struct {
	model *vosk.VoskModel
	cfg   config.STTConfig
}

// NewVoskModel loads a Vosk model directory.
func NewVoskModel(cfg config.STTConfig) (Model, error) {
	model, err := vosk.NewModel(cfg.ModelPath)
	if err != nil {
		return nil, &ModelLoadError{Path: cfg.ModelPath, Err: err}
	}
	return &voskModel{model: model, cfg: cfg}, nil
}

func (m *voskModel) NewRecognizer(sampleRate int) (Recognizer, error) {
	var (
		rec *vosk.VoskRecognizer
		err error
	)
	if m.cfg.Grammar != "" {
		rec, err = vosk.NewRecognizerGrm(m.model, float64(sampleRate), m.cfg.Grammar)
	} else {
		rec, err = vosk.NewRecognizer(m.model, float64(sampleRate))
	}
	if err != nil {
		return nil, NewRecognizerError("create", err)
	}
	if m.cfg.Words {
		rec.SetWords(1)
	}
	if m.cfg.PartialWords {
		rec.SetPartialWords(1)
	}
	if m.cfg.MaxAlternatives > 0 {
		rec.SetMaxAlternatives(m.cfg.MaxAlternatives)
	}
	return &voskRecognizer{rec: rec}, nil
}

func (m *voskModel) Close() error {
	if m.model != nil {
		m.model.Free()
		m.model = nil
	}
	return nil
}

type voskRecognizer struct {
	rec *vosk.VoskRecognizer
}

func (r *voskRecognizer) AcceptWaveform(ctx context.Context, pcm []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	status := r.rec.AcceptWaveform(pcm)
	if status < 0 {
		return false, NewRecognizerError("accept", errors.New("vosk rejected waveform"))
	}
	return status == 1, nil
}

func (r *voskRecognizer) Result() (Result, error) {
	return parseVosk(KindFinal, r.rec.Result())
}

func (r *voskRecognizer) PartialResult() (Result, error) {
	return parseVosk(KindPartial, r.rec.PartialResult())
}

func (r *voskRecognizer) FinalResult(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, NewRecognizerError("final", err)
	}
	return parseVosk(KindEndOfStream, r.rec.FinalResult())
}

func (r *voskRecognizer) Close() error {
	if r.rec != nil {
		r.rec.Free()
		r.rec = nil
	}
	return nil
}

func parseVosk(kind Kind, payload string) (Result, error) {
	res, err := ParseResult(kind, []byte(payload))
	if err != nil {
		return Result{}, NewRecognizerError(kind.String(), fmt.Errorf("vosk payload: %w", err))
	}
	return res, nil
}
