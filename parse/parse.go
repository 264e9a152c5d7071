package parse

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// RawLineKey wraps lines of unstructured text files into single-field
// documents so every input format yields a document list.
const RawLineKey = "_raw_line"

// File converts a file's contents into a document list, dispatching on the
// extension of name. JSON, YAML, CSV, TSV, and HTML get structural parsers.
// Unknown extensions sniff for JSON and otherwise fall back to line-wrapped
// text.
func File(name string, data []byte) ([]any, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".ndjson":
		return JSON(data)
	case ".yaml", ".yml":
		return YAML(data)
	case ".csv":
		return Separated(data, ',')
	case ".tsv":
		return Separated(data, '\t')
	case ".html", ".htm":
		return HTML(data)
	}

	if looksLikeJSON(data) {
		return JSON(data)
	}

	return Text(data), nil
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")

	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// JSON parses a JSON array, a single object, or newline-delimited JSON.
// Numbers decode as [json.Number] so integer literals stay distinguishable
// from reals.
func JSON(data []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var docs []any

	for dec.More() {
		var v any

		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("parsing json: %w", err)
		}

		if items, ok := v.([]any); ok {
			docs = append(docs, items...)

			continue
		}

		docs = append(docs, v)
	}

	return docs, nil
}

// YAML parses a YAML stream into a document list: every document in a
// multi-document stream is kept, sequences flatten into their items, and a
// single mapping becomes a one-document list.
func YAML(data []byte) ([]any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var docs []any

	for {
		var v any

		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, fmt.Errorf("parsing yaml: %w", err)
		}

		if v == nil {
			continue
		}

		if items, ok := v.([]any); ok {
			docs = append(docs, items...)

			continue
		}

		docs = append(docs, v)
	}

	return docs, nil
}

// CSV parses a header row plus comma-separated records into documents
// keyed by column name.
func CSV(data []byte) ([]any, error) {
	return Separated(data, ',')
}

// Separated parses a header row plus delimited records into documents
// keyed by column name. All values stay strings; the validator's type
// promotion handles numeric columns downstream.
func Separated(data []byte, delimiter rune) ([]any, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delimiter
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}

	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	docs := make([]any, 0, len(records)-1)

	for _, record := range records[1:] {
		doc := make(map[string]any, len(header))

		for i, field := range record {
			if i >= len(header) {
				break
			}

			doc[header[i]] = field
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

// Text wraps each non-empty line into a single-field document.
func Text(data []byte) []any {
	var docs []any

	for line := range strings.Lines(string(data)) {
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		docs = append(docs, map[string]any{RawLineKey: line})
	}

	return docs
}
