//go:build !vosk

package stt

import (
	"fmt"

	"github.com/loqalabs/loqa-transcribe/internal/config"
)

// Default stub (no cgo) so the project builds without libvosk. Rebuild with
// -tags vosk to link the real engine.

func setupVosk(config.STTConfig) func() { return func() {} }

func NewVoskModel(cfg config.STTConfig) (Model, error) {
	return nil, &ModelLoadError{Path: cfg.ModelPath, Err: fmt.Errorf("vosk: %w (rebuild with -tags vosk)", ErrEngineUnavailable)}
}
