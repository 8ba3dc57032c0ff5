package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// OpenError reports an audio file that could not be opened or is not a
// readable linear PCM WAV stream.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	if e == nil || e.Err == nil {
		return "open audio"
	}
	return fmt.Sprintf("open audio %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Source yields raw PCM frames from a WAV file in file order.
type Source struct {
	path       string
	closer     io.Closer
	pcm        io.Reader
	sampleRate int
	channels   int
	bitDepth   int
	dataSize   int64
	consumed   int64
}

// Open parses the WAV headers at path and positions the source at the first
// PCM frame.
func Open(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	src, err := newSource(path, file, file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return src, nil
}

func newSource(path string, r io.ReadSeeker, closer io.Closer) (*Source, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, &OpenError{Path: path, Err: fmt.Errorf("read wav header: %w", err)}
	}
	if dec.NumChans == 0 || dec.SampleRate == 0 {
		return nil, &OpenError{Path: path, Err: errors.New("missing or invalid fmt chunk")}
	}
	switch dec.WavAudioFormat {
	case formatPCM, formatExtensible:
	default:
		return nil, &OpenError{Path: path, Err: fmt.Errorf("unsupported wav format tag %d, need linear pcm", dec.WavAudioFormat)}
	}
	if dec.BitDepth == 0 || dec.BitDepth%8 != 0 {
		return nil, &OpenError{Path: path, Err: fmt.Errorf("unsupported bit depth %d", dec.BitDepth)}
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, &OpenError{Path: path, Err: fmt.Errorf("locate data chunk: %w", err)}
	}
	if dec.PCMChunk == nil {
		return nil, &OpenError{Path: path, Err: errors.New("data chunk not found")}
	}

	size := int64(dec.PCMChunk.Size)
	return &Source{
		path:       path,
		closer:     closer,
		pcm:        io.LimitReader(dec.PCMChunk, size),
		sampleRate: int(dec.SampleRate),
		channels:   int(dec.NumChans),
		bitDepth:   int(dec.BitDepth),
		dataSize:   size,
	}, nil
}

func (s *Source) Path() string    { return s.path }
func (s *Source) SampleRate() int { return s.sampleRate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) BitDepth() int   { return s.bitDepth }

// FrameSize is the number of bytes one frame occupies across all channels.
func (s *Source) FrameSize() int {
	return s.channels * s.bitDepth / 8
}

// DataSize is the PCM payload size declared by the data chunk.
func (s *Source) DataSize() int64 { return s.dataSize }

// Frames is the number of whole frames in the data chunk.
func (s *Source) Frames() int64 {
	return s.dataSize / int64(s.FrameSize())
}

func (s *Source) Duration() time.Duration {
	return time.Duration(s.Frames()) * time.Second / time.Duration(s.sampleRate)
}

// ReadFrames returns up to n frames of raw PCM. The last chunk may be short.
// Once the data chunk is exhausted it returns (nil, io.EOF).
func (s *Source) ReadFrames(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("read frames: invalid frame count %d", n)
	}
	buf := make([]byte, n*s.FrameSize())
	read, err := io.ReadFull(s.pcm, buf)
	s.consumed += int64(read)
	switch {
	case err == nil:
		return buf, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return buf[:read], nil
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("read pcm from %s: %w", s.path, err)
	}
}

// Consumed reports how many PCM bytes have been returned so far.
func (s *Source) Consumed() int64 { return s.consumed }

func (s *Source) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
