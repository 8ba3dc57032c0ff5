package stt

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/loqalabs/loqa-transcribe/internal/protocol"
)

type wirePayload struct {
	Text          *string                `json:"text"`
	Partial       *string                `json:"partial"`
	Result        []protocol.Word        `json:"result"`
	PartialResult []protocol.Word        `json:"partial_result"`
	Alternatives  []protocol.Alternative `json:"alternatives"`
	Confidence    float64                `json:"confidence"`
}

// ParseResult decodes an engine payload. The payload is kept as Raw.
func ParseResult(kind Kind, raw []byte) (Result, error) {
	var wire wirePayload
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Result{}, fmt.Errorf("decode %s result: %w", kind, err)
	}
	res := Result{
		Kind:         kind,
		Confidence:   wire.Confidence,
		Alternatives: wire.Alternatives,
		Raw:          append([]byte(nil), bytes.TrimSpace(raw)...),
	}
	switch {
	case kind == KindPartial && wire.Partial != nil:
		res.Text = *wire.Partial
		res.Words = wire.PartialResult
	case wire.Text != nil:
		res.Text = *wire.Text
		res.Words = wire.Result
	case len(wire.Alternatives) > 0:
		best := wire.Alternatives[0]
		res.Text = best.Text
		res.Confidence = best.Confidence
		res.Words = best.Result
	}
	return res, nil
}

// encodeResult marshals a payload into a Result of the given kind.
func encodeResult(kind Kind, payload any) (Result, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("encode %s result: %w", kind, err)
	}
	return ParseResult(kind, raw)
}
