package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// TypeSet is a sorted, duplicate-free set of type tags. A set with a single
// tag marshals as a bare string, matching the JSON Schema "type" keyword;
// larger sets marshal as a sorted array so the canonical form is byte-stable.
type TypeSet []TypeTag

// NewTypeSet builds a sorted, deduplicated [TypeSet] from tags.
func NewTypeSet(tags ...TypeTag) TypeSet {
	set := slices.Clone(tags)
	slices.Sort(set)

	return slices.Compact(set)
}

// Contains reports whether the set includes tag.
func (ts TypeSet) Contains(tag TypeTag) bool {
	return slices.Contains(ts, tag)
}

// Add returns a set with tag included, preserving canonical order.
func (ts TypeSet) Add(tag TypeTag) TypeSet {
	if ts.Contains(tag) {
		return ts
	}

	return NewTypeSet(append(slices.Clone(ts), tag)...)
}

// MarshalJSON implements [json.Marshaler].
func (ts TypeSet) MarshalJSON() ([]byte, error) {
	if len(ts) == 1 {
		return json.Marshal(string(ts[0]))
	}

	return json.Marshal([]TypeTag(ts))
}

// UnmarshalJSON implements [json.Unmarshaler]. Both the single-string and
// array forms of the "type" keyword are accepted.
func (ts *TypeSet) UnmarshalJSON(data []byte) error {
	var single string

	if err := json.Unmarshal(data, &single); err == nil {
		*ts = TypeSet{TypeTag(single)}

		return nil
	}

	var many []TypeTag

	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("type set: %w", err)
	}

	*ts = NewTypeSet(many...)

	return nil
}

// Property describes one top-level field of a schema. An empty Types set
// means the field carries no type constraint and accepts any value.
type Property struct {
	Types TypeSet `json:"type,omitempty"`
}

// Equal reports structural equality with other.
func (p Property) Equal(other Property) bool {
	return slices.Equal(p.Types, other.Types)
}

// Schema is a structural description of a document shape. Properties are
// keyed by field name; encoding/json marshals map keys in sorted order, so
// the serialized form is canonical and byte-comparable.
type Schema struct {
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// PropertyNames returns the schema's field names in lexicographic order.
func (s *Schema) PropertyNames() []string {
	if s == nil || len(s.Properties) == 0 {
		return nil
	}

	names := make([]string, 0, len(s.Properties))

	for name := range s.Properties {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Canonical returns the canonical JSON encoding of the schema. Two schemas
// are structurally equal exactly when their canonical encodings are
// byte-equal.
func (s *Schema) Canonical() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("canonical encoding: %w", err)
	}

	return b, nil
}

// Equal reports whether a and b describe the same structure. Nil and empty
// schemas compare equal only to each other.
func Equal(a, b *Schema) bool {
	if a == nil || b == nil {
		return a == b
	}

	ab, err := a.Canonical()
	if err != nil {
		return false
	}

	bb, err := b.Canonical()
	if err != nil {
		return false
	}

	return bytes.Equal(ab, bb)
}
