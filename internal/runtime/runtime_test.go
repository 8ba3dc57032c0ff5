package runtime

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-transcribe/internal/audio"
	"github.com/loqalabs/loqa-transcribe/internal/config"
	"github.com/loqalabs/loqa-transcribe/internal/stt"
	"github.com/loqalabs/loqa-transcribe/internal/testutil"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mockConfig(t *testing.T, audioPath string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.STT.Mode = "mock"
	cfg.STT.ModelPath = t.TempDir()
	cfg.STT.MockUtteranceMS = 1000
	cfg.Audio.Path = audioPath
	return cfg
}

func TestRunMockEndToEnd(t *testing.T) {
	path := testutil.WriteWAV(t, testutil.Mono16k, testutil.PCM(testutil.Mono16k, 160000))
	cfg := mockConfig(t, path)

	var stdout, diag bytes.Buffer
	stats, err := New(cfg, newLogger(), &stdout, &diag).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(stdout.String(), "\n"), "\n")
	if len(lines) != 41 {
		t.Fatalf("expected 41 lines, got %d", len(lines))
	}
	// 1s utterances at 16 kHz mono are 32000 bytes: every fourth 8000-byte chunk closes one.
	if stats.Finals != 10 {
		t.Fatalf("expected 10 finals, got %d", stats.Finals)
	}
	if lines[3] != `{"text":"[final transcript 1 length=32000]"}` {
		t.Fatalf("unexpected fourth line %q", lines[3])
	}
	if lines[40] != `{"text":""}` {
		t.Fatalf("unexpected end-of-stream line %q", lines[40])
	}
}

func TestRunModelLoadFailureAbortsBeforeAudio(t *testing.T) {
	cfg := mockConfig(t, filepath.Join(t.TempDir(), "missing.wav"))
	cfg.STT.ModelPath = filepath.Join(t.TempDir(), "no-such-model")

	var stdout, diag bytes.Buffer
	_, err := New(cfg, newLogger(), &stdout, &diag).Run(context.Background())
	if !stt.IsModelLoadError(err) {
		t.Fatalf("expected ModelLoadError, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no output, got %q", stdout.String())
	}
}

func TestRunAudioOpenFailure(t *testing.T) {
	cfg := mockConfig(t, filepath.Join(t.TempDir(), "missing.wav"))

	var stdout, diag bytes.Buffer
	_, err := New(cfg, newLogger(), &stdout, &diag).Run(context.Background())
	var openErr *audio.OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected audio.OpenError, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no output, got %q", stdout.String())
	}
}

func TestRunDumpsMetrics(t *testing.T) {
	path := testutil.WriteWAV(t, testutil.Mono16k, testutil.PCM(testutil.Mono16k, 12000))
	cfg := mockConfig(t, path)
	cfg.Telemetry.DumpMetrics = true

	var stdout, diag bytes.Buffer
	if _, err := New(cfg, newLogger(), &stdout, &diag).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	dump := diag.String()
	if !strings.Contains(dump, "# TYPE loqa_transcribe_chunks_total counter") {
		t.Fatalf("expected chunk counter in metrics dump, got:\n%s", dump)
	}
	if strings.Contains(dump, `"loqa.`) {
		t.Fatalf("expected classic metric names, got:\n%s", dump)
	}
	if strings.Contains(stdout.String(), "loqa_transcribe") {
		t.Fatal("metrics leaked into result output")
	}
}

func TestRunExecConfiguredFromEnvironment(t *testing.T) {
	script := filepath.Join(t.TempDir(), "fake-stt.sh")
	body := `#!/bin/sh
case "$*" in
  *--model*) echo "unexpected model flag" >&2; exit 2 ;;
  *--partial*) echo '{"text":"hel"}' ;;
  *) echo '{"text":"hello"}' ;;
esac
`
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	audioPath := testutil.WriteWAV(t, testutil.Mono16k, testutil.PCM(testutil.Mono16k, 6000))
	t.Setenv("LOQA_STT_MODE", "exec")
	t.Setenv("LOQA_STT_COMMAND", script)
	t.Setenv("LOQA_AUDIO_PATH", audioPath)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	var stdout, diag bytes.Buffer
	stats, err := New(cfg, newLogger(), &stdout, &diag).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Chunks != 2 {
		t.Fatalf("expected 2 chunks, got %d", stats.Chunks)
	}
	want := "{\"partial\":\"hel\"}\n{\"partial\":\"hel\"}\n{\"text\":\"hello\"}\n"
	if stdout.String() != want {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}
