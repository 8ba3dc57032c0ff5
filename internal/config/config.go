package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	TraceStdout  bool   `yaml:"trace_stdout"`
	DumpMetrics  bool   `yaml:"dump_metrics"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	STT         STTConfig       `yaml:"stt"`
	Audio       AudioConfig     `yaml:"audio"`
	Output      OutputConfig    `yaml:"output"`
}

type STTConfig struct {
	Mode            string `yaml:"mode"` // vosk, exec, mock
	Command         string `yaml:"command"`
	ModelPath       string `yaml:"model_path"`
	Language        string `yaml:"language"`
	Words           bool   `yaml:"words"`
	PartialWords    bool   `yaml:"partial_words"`
	MaxAlternatives int    `yaml:"max_alternatives"`
	Grammar         string `yaml:"grammar"`
	EngineLogLevel  int    `yaml:"engine_log_level"`
	MockUtteranceMS int    `yaml:"mock_utterance_ms"`
	MaxUtteranceMS  int    `yaml:"max_utterance_ms"`
}

type AudioConfig struct {
	Path        string `yaml:"path"`
	ChunkFrames int    `yaml:"chunk_frames"`
}

// DefaultVoskModelPath is used when mode=vosk and no model path was given.
const DefaultVoskModelPath = "./models/vosk-model-small-ru-0.22"

type OutputConfig struct {
	Format string `yaml:"format"` // json, text
}

func Default() Config {
	return Config{
		RuntimeName: "loqa-transcribe",
		Environment: "development",
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		STT: STTConfig{
			Mode:            "vosk",
			EngineLogLevel:  0,
			MockUtteranceMS: 1000,
			MaxUtteranceMS:  30000,
		},
		Audio: AudioConfig{
			Path:        "test.wav",
			ChunkFrames: 4000,
		},
		Output: OutputConfig{
			Format: "json",
		},
	}
}

// Option adjusts a config after file and environment overrides, before
// validation. Command-line flags are applied this way.
type Option func(*Config)

func Load(path string, opts ...Option) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	for _, opt := range opts {
		opt(&cfg)
	}
	applyModeDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "LOQA_RUNTIME_NAME")
	overrideString(&cfg.Environment, "LOQA_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.Telemetry.LogLevel, "LOQA_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "LOQA_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "LOQA_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Telemetry.TraceStdout, "LOQA_TELEMETRY_TRACE_STDOUT")
	overrideBool(&cfg.Telemetry.DumpMetrics, "LOQA_TELEMETRY_DUMP_METRICS")
	overrideString(&cfg.STT.Mode, "LOQA_STT_MODE")
	overrideString(&cfg.STT.Command, "LOQA_STT_COMMAND")
	overrideString(&cfg.STT.ModelPath, "LOQA_STT_MODEL_PATH")
	overrideString(&cfg.STT.Language, "LOQA_STT_LANGUAGE")
	overrideBool(&cfg.STT.Words, "LOQA_STT_WORDS")
	overrideBool(&cfg.STT.PartialWords, "LOQA_STT_PARTIAL_WORDS")
	overrideInt(&cfg.STT.MaxAlternatives, "LOQA_STT_MAX_ALTERNATIVES")
	overrideString(&cfg.STT.Grammar, "LOQA_STT_GRAMMAR")
	overrideInt(&cfg.STT.EngineLogLevel, "LOQA_STT_ENGINE_LOG_LEVEL")
	overrideInt(&cfg.STT.MockUtteranceMS, "LOQA_STT_MOCK_UTTERANCE_MS")
	overrideInt(&cfg.STT.MaxUtteranceMS, "LOQA_STT_MAX_UTTERANCE_MS")
	overrideString(&cfg.Audio.Path, "LOQA_AUDIO_PATH")
	overrideInt(&cfg.Audio.ChunkFrames, "LOQA_AUDIO_CHUNK_FRAMES")
	overrideString(&cfg.Output.Format, "LOQA_OUTPUT_FORMAT")
}

// applyModeDefaults fills settings whose default depends on the engine. The
// Vosk model literal never leaks into exec mode, where --model is optional.
func applyModeDefaults(cfg *Config) {
	if cfg.STT.Mode == "vosk" && cfg.STT.ModelPath == "" {
		cfg.STT.ModelPath = DefaultVoskModelPath
	}
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

// Validate reports the first invalid setting.
func Validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	switch cfg.STT.Mode {
	case "vosk", "exec", "mock":
	default:
		return errors.New("stt.mode must be one of vosk|exec|mock")
	}
	if cfg.STT.Mode == "exec" && cfg.STT.Command == "" {
		return errors.New("stt.command must be set when mode=exec")
	}
	if cfg.STT.Mode != "exec" && cfg.STT.ModelPath == "" {
		return errors.New("stt.model_path must not be empty")
	}
	if cfg.STT.MaxAlternatives < 0 {
		return errors.New("stt.max_alternatives must be >= 0")
	}
	if cfg.STT.Mode == "exec" && cfg.STT.MaxUtteranceMS <= 0 {
		return errors.New("stt.max_utterance_ms must be positive when mode=exec")
	}
	if cfg.STT.Mode == "mock" && cfg.STT.MockUtteranceMS <= 0 {
		return errors.New("stt.mock_utterance_ms must be positive when mode=mock")
	}
	if cfg.Audio.Path == "" {
		return errors.New("audio.path must not be empty")
	}
	if cfg.Audio.ChunkFrames <= 0 {
		return errors.New("audio.chunk_frames must be positive")
	}
	switch cfg.Output.Format {
	case "json", "text":
	default:
		return errors.New("output.format must be one of json|text")
	}
	return nil
}
