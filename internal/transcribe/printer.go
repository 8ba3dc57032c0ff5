package transcribe

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/loqalabs/loqa-transcribe/internal/stt"
)

// Printer writes one line per result.
type Printer struct {
	w      *bufio.Writer
	format string
}

// NewPrinter returns a printer for format "json" (engine payload, compacted)
// or "text" (hypothesis text only).
func NewPrinter(w io.Writer, format string) (*Printer, error) {
	switch format {
	case "json", "text":
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return &Printer{w: bufio.NewWriter(w), format: format}, nil
}

// Print writes res and flushes so each record is visible as soon as it exists.
func (p *Printer) Print(res stt.Result) error {
	line, err := p.render(res)
	if err != nil {
		return err
	}
	if _, err := p.w.Write(line); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if err := p.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return p.w.Flush()
}

func (p *Printer) render(res stt.Result) ([]byte, error) {
	if p.format == "text" {
		return []byte(res.Text), nil
	}
	if len(res.Raw) == 0 {
		return []byte("{}"), nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, res.Raw); err != nil {
		return nil, fmt.Errorf("compact %s payload: %w", res.Kind, err)
	}
	return compact.Bytes(), nil
}
