package schema

import (
	"encoding/json"
	"strings"
)

// TypeTag is the canonical type classification for a document value.
type TypeTag string

// Canonical type tags, ordered from most to least specific for display
// purposes. Comparison and storage always use lexicographic order.
const (
	TypeNull    TypeTag = "null"
	TypeBoolean TypeTag = "boolean"
	TypeInteger TypeTag = "integer"
	TypeNumber  TypeTag = "number"
	TypeString  TypeTag = "string"
	TypeObject  TypeTag = "object"
	TypeArray   TypeTag = "array"
	TypeUnknown TypeTag = "unknown"
)

// Document is one ingested record: string keys mapped to arbitrary JSON
// values. Numeric values decoded from JSON payloads arrive as [json.Number]
// so integers and non-integral numbers stay distinct.
type Document = map[string]any

// Classify returns the [TypeTag] for a document value.
//
// Booleans are never numeric. A [json.Number] written with a fraction or
// exponent (e.g. 3.0, 1e3) classifies as [TypeNumber] even when its value is
// mathematically whole; bare integer literals classify as [TypeInteger].
// Values outside the JSON data model classify as [TypeUnknown].
func Classify(v any) TypeTag {
	switch n := v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBoolean
	case json.Number:
		if strings.ContainsAny(n.String(), ".eE") {
			return TypeNumber
		}

		return TypeInteger
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	case float32, float64:
		return TypeNumber
	case string:
		return TypeString
	case map[string]any:
		return TypeObject
	case []any:
		return TypeArray
	}

	return TypeUnknown
}
