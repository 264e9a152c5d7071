package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var errTrailingData = errors.New("trailing data after job payload")

// Job is one queued batch of documents. Documents is typed []any rather
// than a document slice so that non-object items survive decoding and can
// be dead-lettered individually instead of failing the whole batch.
type Job struct {
	ID         string `json:"job_id"`
	Source     string `json:"source,omitempty"`
	ReceivedAt string `json:"received_at,omitempty"`
	Documents  []any  `json:"documents"`
}

// DecodeJob parses a queued payload. Numbers decode as [json.Number] so
// integer and non-integer literals stay distinguishable downstream.
func DecodeJob(payload []byte) (*Job, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var job Job

	if err := dec.Decode(&job); err != nil {
		return nil, fmt.Errorf("decoding job payload: %w", err)
	}

	// Decode stops after one value; anything but whitespace behind it
	// means the payload as a whole was never valid JSON.
	var rest json.RawMessage
	if err := dec.Decode(&rest); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding job payload: %w", errTrailingData)
	}

	return &job, nil
}
