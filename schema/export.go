package schema

import (
	"github.com/google/jsonschema-go/jsonschema"
)

const draft7URI = "http://json-schema.org/draft-07/schema#"

// Export converts a registered schema into a JSON Schema (Draft 7) document
// suitable for publishing to producers. Single-tag properties emit the
// string form of "type"; multi-tag properties emit the array form.
func Export(s *Schema, opts ...ExportOption) *jsonschema.Schema {
	out := &jsonschema.Schema{
		Schema: draft7URI,
		Type:   "object",
	}

	for _, opt := range opts {
		opt(out)
	}

	if s == nil {
		return out
	}

	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*jsonschema.Schema, len(s.Properties))
		out.PropertyOrder = s.PropertyNames()

		for _, name := range out.PropertyOrder {
			out.Properties[name] = exportProperty(s.Properties[name])
		}
	}

	if len(s.Required) > 0 {
		out.Required = append([]string(nil), s.Required...)
	}

	return out
}

// ExportOption customizes the exported root schema.
type ExportOption func(*jsonschema.Schema)

// WithTitle sets the exported schema title.
func WithTitle(title string) ExportOption {
	return func(s *jsonschema.Schema) {
		s.Title = title
	}
}

// WithDescription sets the exported schema description.
func WithDescription(desc string) ExportOption {
	return func(s *jsonschema.Schema) {
		s.Description = desc
	}
}

// WithID sets the exported schema $id.
func WithID(id string) ExportOption {
	return func(s *jsonschema.Schema) {
		s.ID = id
	}
}

func exportProperty(p Property) *jsonschema.Schema {
	switch len(p.Types) {
	case 0:
		return &jsonschema.Schema{}
	case 1:
		return &jsonschema.Schema{Type: string(p.Types[0])}
	}

	types := make([]string, len(p.Types))

	for i, tag := range p.Types {
		types[i] = string(tag)
	}

	return &jsonschema.Schema{Types: types}
}
