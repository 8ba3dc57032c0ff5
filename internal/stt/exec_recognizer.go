package stt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/loqalabs/loqa-transcribe/internal/config"
	"github.com/loqalabs/loqa-transcribe/internal/protocol"
	"github.com/mattn/go-shellwords"
)

const execResultTimeout = 45 * time.Second

type execModel struct {
	cmd []string
	cfg config.STTConfig
}

type execResult struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Endpoint   bool            `json:"endpoint"`
	Words      []protocol.Word `json:"words"`
}

// NewExecModel prepares an engine that shells out to cfg.Command for every
// chunk. The command receives the open utterance as a 16-bit mono WAV file.
func NewExecModel(cfg config.STTConfig) (Model, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, &ModelLoadError{Path: cfg.ModelPath, Err: fmt.Errorf("parse stt command: %w", err)}
	}
	if len(args) == 0 {
		return nil, &ModelLoadError{Path: cfg.ModelPath, Err: errors.New("stt command is empty")}
	}
	if cfg.ModelPath != "" {
		if _, err := os.Stat(cfg.ModelPath); err != nil {
			return nil, &ModelLoadError{Path: cfg.ModelPath, Err: err}
		}
	}
	return &execModel{cmd: args, cfg: cfg}, nil
}

func (m *execModel) NewRecognizer(sampleRate int) (Recognizer, error) {
	if sampleRate <= 0 {
		return nil, NewRecognizerError("create", fmt.Errorf("invalid sample rate %d", sampleRate))
	}
	rec := &execRecognizer{model: m, sampleRate: sampleRate}
	if m.cfg.MaxUtteranceMS > 0 {
		rec.maxBytes = sampleRate * 2 * m.cfg.MaxUtteranceMS / 1000
	}
	return rec, nil
}

func (m *execModel) Close() error { return nil }

type execRecognizer struct {
	model      *execModel
	sampleRate int
	maxBytes   int
	buffer     []byte
	closed     execResult
	partial    execResult
}

// AcceptWaveform re-transcribes the open utterance. Once the utterance reaches
// max_utterance_ms it is closed with a full (non-partial) pass, whether or not
// the command reported an endpoint.
func (r *execRecognizer) AcceptWaveform(ctx context.Context, pcm []byte) (bool, error) {
	r.buffer = append(r.buffer, pcm...)
	capped := r.maxBytes > 0 && len(r.buffer) >= r.maxBytes
	resp, err := r.transcribe(ctx, r.buffer, capped)
	if err != nil {
		return false, NewRecognizerError("accept", err)
	}
	if resp.Endpoint || capped {
		r.closed = resp
		r.partial = execResult{}
		r.buffer = r.buffer[:0]
		return true, nil
	}
	r.partial = resp
	return false, nil
}

func (r *execRecognizer) Result() (Result, error) {
	return encodeResult(KindFinal, finalPayload(r.closed))
}

func (r *execRecognizer) PartialResult() (Result, error) {
	return encodeResult(KindPartial, protocol.PartialPayload{Partial: r.partial.Text})
}

func (r *execRecognizer) FinalResult(ctx context.Context) (Result, error) {
	if len(r.buffer) == 0 {
		return encodeResult(KindEndOfStream, protocol.FinalPayload{})
	}
	ctx, cancel := context.WithTimeout(ctx, execResultTimeout)
	defer cancel()

	resp, err := r.transcribe(ctx, r.buffer, true)
	if err != nil {
		return Result{}, NewRecognizerError("final", err)
	}
	r.buffer = r.buffer[:0]
	r.partial = execResult{}
	return encodeResult(KindEndOfStream, finalPayload(resp))
}

func (r *execRecognizer) Close() error {
	r.buffer = nil
	return nil
}

func finalPayload(res execResult) protocol.FinalPayload {
	return protocol.FinalPayload{Text: res.Text, Result: res.Words, Confidence: res.Confidence}
}

func (r *execRecognizer) transcribe(ctx context.Context, pcm []byte, final bool) (execResult, error) {
	if err := ctx.Err(); err != nil {
		return execResult{}, err
	}
	file, err := os.CreateTemp(os.TempDir(), "loqa_stt_*.wav")
	if err != nil {
		return execResult{}, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := writePCMToWav(file, pcm, r.sampleRate, 1); err != nil {
		return execResult{}, err
	}

	cfg := r.model.cfg
	base := r.model.cmd[0]
	cmdArgs := append([]string{}, r.model.cmd[1:]...)
	cmdArgs = append(cmdArgs, "--audio", file.Name())
	if cfg.ModelPath != "" {
		cmdArgs = append(cmdArgs, "--model", cfg.ModelPath)
	}
	if cfg.Language != "" {
		cmdArgs = append(cmdArgs, "--language", cfg.Language)
	}
	if !final {
		cmdArgs = append(cmdArgs, "--partial")
	}

	command := exec.CommandContext(ctx, base, cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return execResult{}, fmt.Errorf("stt command failed: %w: %s", err, stderr.String())
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return execResult{}, fmt.Errorf("decode stt response: %w", err)
	}
	return resp, nil
}

func writePCMToWav(w io.WriteSeeker, pcm []byte, sampleRate int, channels int) error {
	if len(pcm)%2 != 0 {
		return fmt.Errorf("pcm payload not aligned")
	}
	buffer := &audio.IntBuffer{Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate}}
	samples := make([]int, len(pcm)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buffer.Data = samples
	buffer.SourceBitDepth = 16

	enc := wav.NewEncoder(w, sampleRate, 16, channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
