package stt

import (
	"fmt"

	"github.com/loqalabs/loqa-transcribe/internal/config"
)

// Setup applies process-wide engine settings. Call it once before loading a
// model and run the returned teardown when the process is done with the engine.
func Setup(cfg config.STTConfig) func() {
	if cfg.Mode == "vosk" {
		return setupVosk(cfg)
	}
	return func() {}
}

// LoadModel loads the model resource for the configured engine.
func LoadModel(cfg config.STTConfig) (Model, error) {
	switch cfg.Mode {
	case "vosk":
		return NewVoskModel(cfg)
	case "exec":
		return NewExecModel(cfg)
	case "mock":
		return NewMockModel(cfg.ModelPath, cfg.MockUtteranceMS)
	default:
		return nil, &ModelLoadError{Path: cfg.ModelPath, Err: fmt.Errorf("unknown stt mode %q", cfg.Mode)}
	}
}
