package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"go.jacobcolvin.com/chrysalis/schema"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input    any
		expected schema.TypeTag
	}{
		"nil": {
			input:    nil,
			expected: schema.TypeNull,
		},
		"true": {
			input:    true,
			expected: schema.TypeBoolean,
		},
		"false": {
			input:    false,
			expected: schema.TypeBoolean,
		},
		"integer literal": {
			input:    json.Number("42"),
			expected: schema.TypeInteger,
		},
		"negative integer literal": {
			input:    json.Number("-7"),
			expected: schema.TypeInteger,
		},
		"whole-valued float literal stays number": {
			input:    json.Number("3.0"),
			expected: schema.TypeNumber,
		},
		"fractional literal": {
			input:    json.Number("3.14"),
			expected: schema.TypeNumber,
		},
		"exponent literal": {
			input:    json.Number("1e3"),
			expected: schema.TypeNumber,
		},
		"native int": {
			input:    7,
			expected: schema.TypeInteger,
		},
		"native float": {
			input:    float64(3),
			expected: schema.TypeNumber,
		},
		"string": {
			input:    "hello",
			expected: schema.TypeString,
		},
		"numeric string is still a string": {
			input:    "42",
			expected: schema.TypeString,
		},
		"object": {
			input:    map[string]any{"a": 1},
			expected: schema.TypeObject,
		},
		"array": {
			input:    []any{1, 2},
			expected: schema.TypeArray,
		},
		"unknown": {
			input:    struct{}{},
			expected: schema.TypeUnknown,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, schema.Classify(tc.input))
		})
	}
}
