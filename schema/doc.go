// Package schema infers structural schemas from samples of semi-structured
// documents whose shape is not known ahead of time.
//
// A [Document] is a plain key-value mapping as decoded from JSON with
// [encoding/json.Decoder.UseNumber], so integer and non-integral numeric
// literals remain distinguishable. [Classify] maps any value to a canonical
// [TypeTag]; [Infer] reduces a sample to a [Schema] plus per-field
// [FieldStats].
//
// # Canonical Form
//
// Schemas are compared by their serialized bytes rather than by recursive
// structural walks. Two design choices make that sound:
//
//  1. Properties live in a map, and encoding/json emits map keys in sorted
//     order.
//  2. [TypeSet] values are kept sorted and deduplicated, marshaling as a
//     bare string when the set has exactly one tag.
//
// [Equal] therefore reduces to comparing [Schema.Canonical] outputs, and any
// two samples differing only in key or document order infer byte-identical
// schemas.
//
// # Statistics
//
// For every observed field, [FieldStats] records how many sample documents
// contained the key, that count as a fraction of the sample size, and a
// count per observed type tag. The per-tag counts always sum to the presence
// count. [FieldStats.DominantShare] reports the share held by the most
// frequent tag, breaking ties lexicographically so downstream decisions are
// reproducible.
//
// [Export] converts an inferred schema to a JSON Schema (Draft 7) document
// for publication to producers.
package schema
