package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// WAVSpec describes a fixture file written by WriteWAV.
type WAVSpec struct {
	SampleRate int
	Channels   int
	BitDepth   int
	// Trailer, when set, is appended after the data chunk as a LIST chunk.
	Trailer []byte
}

// Mono16k is 16 kHz, 16-bit, single-channel PCM.
var Mono16k = WAVSpec{SampleRate: 16000, Channels: 1, BitDepth: 16}

// PCM returns frames*frameSize bytes of a deterministic, non-repeating-per-chunk pattern.
func PCM(spec WAVSpec, frames int) []byte {
	size := frames * spec.Channels * spec.BitDepth / 8
	data := make([]byte, size)
	for i := range data {
		data[i] = byte((i*7 + i/251) % 256)
	}
	return data
}

// WriteWAV writes a canonical RIFF/WAVE file into a test temp dir and returns its path.
func WriteWAV(t testing.TB, spec WAVSpec, pcm []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	if err := os.WriteFile(path, EncodeWAV(spec, pcm), 0o644); err != nil {
		t.Fatalf("write wav fixture: %v", err)
	}
	return path
}

// EncodeWAV builds PCM file bytes. Written by hand so fixtures can carry empty
// data chunks and trailing LIST chunks.
func EncodeWAV(spec WAVSpec, pcm []byte) []byte {
	blockAlign := spec.Channels * spec.BitDepth / 8

	var body bytes.Buffer
	body.WriteString("WAVE")
	body.WriteString("fmt ")
	le(&body, uint32(16))
	le(&body, uint16(1))
	le(&body, uint16(spec.Channels))
	le(&body, uint32(spec.SampleRate))
	le(&body, uint32(spec.SampleRate*blockAlign))
	le(&body, uint16(blockAlign))
	le(&body, uint16(spec.BitDepth))
	body.WriteString("data")
	le(&body, uint32(len(pcm)))
	body.Write(pcm)
	if len(pcm)%2 == 1 {
		body.WriteByte(0)
	}
	if len(spec.Trailer) > 0 {
		body.WriteString("LIST")
		le(&body, uint32(len(spec.Trailer)))
		body.Write(spec.Trailer)
		if len(spec.Trailer)%2 == 1 {
			body.WriteByte(0)
		}
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	le(&out, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func le(buf *bytes.Buffer, v any) {
	_ = binary.Write(buf, binary.LittleEndian, v)
}
