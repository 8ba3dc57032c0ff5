package protocol

// Word is per-word timing in a final result.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf,omitempty"`
}

// Alternative is one n-best hypothesis.
type Alternative struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Result     []Word  `json:"result,omitempty"`
}

// FinalPayload is the record emitted when an utterance closes and at end of stream.
type FinalPayload struct {
	Text         string        `json:"text"`
	Result       []Word        `json:"result,omitempty"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
	Confidence   float64       `json:"confidence,omitempty"`
}

// PartialPayload is the in-progress hypothesis record.
type PartialPayload struct {
	Partial       string `json:"partial"`
	PartialResult []Word `json:"partial_result,omitempty"`
}
