package schema_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/chrysalis/schema"
)

func docs(t *testing.T, raw string) []schema.Document {
	t.Helper()

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var out []schema.Document

	require.NoError(t, dec.Decode(&out))

	return out
}

func TestInfer(t *testing.T) {
	t.Parallel()

	t.Run("single type collapses to one tag", func(t *testing.T) {
		t.Parallel()

		sample := docs(t, `[{"id":1,"name":"a"},{"id":2,"name":"b"}]`)

		s, stats := schema.Infer(sample)

		require.Contains(t, s.Properties, "id")
		require.Contains(t, s.Properties, "name")
		assert.Equal(t, schema.NewTypeSet(schema.TypeInteger), s.Properties["id"].Types)
		assert.Equal(t, schema.NewTypeSet(schema.TypeString), s.Properties["name"].Types)

		assert.Equal(t, 2, stats["id"].Present)
		assert.InDelta(t, 1.0, stats["id"].PresentPct, 1e-9)
	})

	t.Run("mixed types union into a set", func(t *testing.T) {
		t.Parallel()

		sample := docs(t, `[{"v":1},{"v":"x"},{"v":null}]`)

		s, stats := schema.Infer(sample)

		assert.Equal(t,
			schema.NewTypeSet(schema.TypeInteger, schema.TypeNull, schema.TypeString),
			s.Properties["v"].Types)
		assert.Equal(t, 3, stats["v"].Present)
		assert.Equal(t, 1, stats["v"].TypeCounts[schema.TypeInteger])
		assert.Equal(t, 1, stats["v"].TypeCounts[schema.TypeString])
		assert.Equal(t, 1, stats["v"].TypeCounts[schema.TypeNull])
	})

	t.Run("nested containers keep their container tag", func(t *testing.T) {
		t.Parallel()

		sample := docs(t, `[{"meta":{"a":1}},{"meta":[1,2]}]`)

		s, _ := schema.Infer(sample)

		assert.Equal(t,
			schema.NewTypeSet(schema.TypeArray, schema.TypeObject),
			s.Properties["meta"].Types)
	})

	t.Run("partial presence", func(t *testing.T) {
		t.Parallel()

		sample := docs(t, `[{"a":1},{"a":2,"b":"x"},{"a":3},{"a":4}]`)

		_, stats := schema.Infer(sample)

		assert.Equal(t, 1, stats["b"].Present)
		assert.InDelta(t, 0.25, stats["b"].PresentPct, 1e-9)
	})

	t.Run("empty sample", func(t *testing.T) {
		t.Parallel()

		s, stats := schema.Infer(nil)

		assert.Nil(t, s.Properties)
		assert.Empty(t, stats)
	})

	t.Run("no required list and no meta keys emitted", func(t *testing.T) {
		t.Parallel()

		sample := docs(t, `[{"id":1}]`)

		s, _ := schema.Infer(sample)

		assert.Empty(t, s.Required)

		b, err := s.Canonical()
		require.NoError(t, err)
		assert.NotContains(t, string(b), "$schema")
	})
}

func TestInferCanonicalEquality(t *testing.T) {
	t.Parallel()

	// Samples differing only in key and document order must infer
	// byte-identical schemas.
	a := docs(t, `[{"id":1,"name":"a","tags":["x"]},{"name":"b","id":2}]`)
	b := docs(t, `[{"name":"b","id":2},{"tags":["x"],"name":"a","id":1}]`)

	sa, _ := schema.Infer(a)
	sb, _ := schema.Infer(b)

	ca, err := sa.Canonical()
	require.NoError(t, err)

	cb, err := sb.Canonical()
	require.NoError(t, err)

	assert.Equal(t, string(ca), string(cb))
	assert.True(t, schema.Equal(sa, sb))
}

func TestFieldStatsClosure(t *testing.T) {
	t.Parallel()

	sample := docs(t, `[
		{"a":1,"b":"x"},
		{"a":"two","b":null},
		{"a":3.5},
		{"b":true}
	]`)

	_, stats := schema.Infer(sample)

	for field, stat := range stats {
		sum := 0

		for _, n := range stat.TypeCounts {
			sum += n
		}

		assert.Equal(t, stat.Present, sum, "type counts for %q must sum to present", field)
		assert.GreaterOrEqual(t, stat.PresentPct, 0.0)
		assert.LessOrEqual(t, stat.PresentPct, 1.0)
	}
}

func TestDominantShare(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		stats    schema.FieldStats
		field    string
		expected float64
		ok       bool
	}{
		"clear majority": {
			stats: schema.FieldStats{
				"f": {Present: 4, TypeCounts: map[schema.TypeTag]int{
					schema.TypeString:  3,
					schema.TypeInteger: 1,
				}},
			},
			field:    "f",
			expected: 0.75,
			ok:       true,
		},
		"tie is deterministic": {
			stats: schema.FieldStats{
				"f": {Present: 2, TypeCounts: map[schema.TypeTag]int{
					schema.TypeString:  1,
					schema.TypeInteger: 1,
				}},
			},
			field:    "f",
			expected: 0.5,
			ok:       true,
		},
		"missing field": {
			stats: schema.FieldStats{},
			field: "f",
			ok:    false,
		},
		"no observations": {
			stats: schema.FieldStats{"f": {}},
			field: "f",
			ok:    false,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			share, ok := tc.stats.DominantShare(tc.field)

			assert.Equal(t, tc.ok, ok)

			if tc.ok {
				assert.InDelta(t, tc.expected, share, 1e-9)
			}
		})
	}
}
