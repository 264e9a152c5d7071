// Package validate checks documents against a governing schema.
//
// A [Validator] is a pure function of the document, the schema, and its
// threshold configuration. [ModeStrict] additionally treats historically
// ubiquitous fields as required using the field stats stored with the
// governing schema record; [ModeLenient] requires only what the schema
// explicitly lists. Failures surface as machine-readable tokens suitable
// for dead-letter entries.
package validate
