package audio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/loqalabs/loqa-transcribe/internal/testutil"
)

func TestOpenReportsFormat(t *testing.T) {
	spec := testutil.WAVSpec{SampleRate: 44100, Channels: 2, BitDepth: 16}
	path := testutil.WriteWAV(t, spec, testutil.PCM(spec, 44100))

	src, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })

	if src.SampleRate() != 44100 {
		t.Fatalf("expected 44100 Hz, got %d", src.SampleRate())
	}
	if src.Channels() != 2 || src.BitDepth() != 16 {
		t.Fatalf("unexpected layout: %d channels, %d bits", src.Channels(), src.BitDepth())
	}
	if src.FrameSize() != 4 {
		t.Fatalf("expected 4 byte frames, got %d", src.FrameSize())
	}
	if src.Frames() != 44100 {
		t.Fatalf("expected 44100 frames, got %d", src.Frames())
	}
	if src.Duration() != time.Second {
		t.Fatalf("expected 1s, got %s", src.Duration())
	}
}

func TestReadFramesChunksWithShortTail(t *testing.T) {
	spec := testutil.Mono16k
	pcm := testutil.PCM(spec, 10000)
	path := testutil.WriteWAV(t, spec, pcm)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })

	var sizes []int
	var joined []byte
	for {
		chunk, err := src.ReadFrames(4000)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("read frames: %v", err)
		}
		sizes = append(sizes, len(chunk))
		joined = append(joined, chunk...)
	}

	want := []int{8000, 8000, 4000}
	if len(sizes) != len(want) {
		t.Fatalf("expected %d chunks, got %v", len(want), sizes)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("chunk %d: expected %d bytes, got %d", i, want[i], sizes[i])
		}
	}
	if !bytes.Equal(joined, pcm) {
		t.Fatal("chunks do not reconstruct the pcm stream")
	}
	if src.Consumed() != int64(len(pcm)) {
		t.Fatalf("expected %d consumed bytes, got %d", len(pcm), src.Consumed())
	}
}

func TestReadFramesStopsAtDataChunk(t *testing.T) {
	spec := testutil.Mono16k
	spec.Trailer = []byte("INFOISFT\x06\x00\x00\x00loqa\x00\x00")
	pcm := testutil.PCM(spec, 100)
	path := testutil.WriteWAV(t, spec, pcm)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })

	chunk, err := src.ReadFrames(4000)
	if err != nil {
		t.Fatalf("read frames: %v", err)
	}
	if !bytes.Equal(chunk, pcm) {
		t.Fatalf("expected only pcm bytes, got %d bytes", len(chunk))
	}
	if _, err := src.ReadFrames(4000); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestEmptyDataChunk(t *testing.T) {
	path := testutil.WriteWAV(t, testutil.Mono16k, nil)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })

	if _, err := src.ReadFrames(4000); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF on empty data chunk, got %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.wav"))
	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected OpenError, got %v", err)
	}
}

func TestOpenRejectsNonPCM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "float.wav")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	// Format tag 3 is IEEE float.
	enc := wav.NewEncoder(file, 16000, 32, 1, 3)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           make([]int, 160),
		SourceBitDepth: 32,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close fixture: %v", err)
	}

	_, err = Open(path)
	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected OpenError for float wav, got %v", err)
	}
}

func TestReadFramesRejectsZeroCount(t *testing.T) {
	path := testutil.WriteWAV(t, testutil.Mono16k, testutil.PCM(testutil.Mono16k, 10))
	src, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })

	if _, err := src.ReadFrames(0); err == nil {
		t.Fatal("expected error for zero frame count")
	}
}
