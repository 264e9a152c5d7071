package validate_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"go.jacobcolvin.com/chrysalis/schema"
	"go.jacobcolvin.com/chrysalis/validate"
)

func personSchema() *schema.Schema {
	return &schema.Schema{
		Properties: map[string]schema.Property{
			"id":   {Types: schema.NewTypeSet(schema.TypeInteger)},
			"name": {Types: schema.NewTypeSet(schema.TypeString)},
			"tags": {Types: schema.NewTypeSet(schema.TypeArray)},
		},
	}
}

func TestValidatorStrictRequired(t *testing.T) {
	t.Parallel()

	stats := schema.FieldStats{
		"id":   {Present: 100, PresentPct: 1.0},
		"name": {Present: 95, PresentPct: 0.95},
		"tags": {Present: 10, PresentPct: 0.10},
	}

	tcs := map[string]struct {
		doc        schema.Document
		wantOK     bool
		wantReason string
	}{
		"all present": {
			doc:    schema.Document{"id": json.Number("1"), "name": "a"},
			wantOK: true,
		},
		"rare field optional": {
			doc:    schema.Document{"id": json.Number("1"), "name": "a"},
			wantOK: true,
		},
		"missing common field": {
			doc:        schema.Document{"id": json.Number("1")},
			wantOK:     false,
			wantReason: "missing_required:name",
		},
		"first missing field lexicographically": {
			doc:        schema.Document{"tags": []any{}},
			wantOK:     false,
			wantReason: "missing_required:id",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			v := validate.New(validate.ModeStrict)

			reason, ok := v.Validate(tc.doc, personSchema(), stats)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantReason, reason)
		})
	}
}

func TestValidatorLenientRequired(t *testing.T) {
	t.Parallel()

	stats := schema.FieldStats{
		"name": {Present: 100, PresentPct: 1.0},
	}

	s := personSchema()
	s.Required = []string{"id"}

	v := validate.New(validate.ModeLenient)

	// Historically ubiquitous fields are not required in lenient mode.
	reason, ok := v.Validate(schema.Document{"id": json.Number("1")}, s, stats)
	assert.True(t, ok)
	assert.Empty(t, reason)

	reason, ok = v.Validate(schema.Document{"name": "a"}, s, stats)
	assert.False(t, ok)
	assert.Equal(t, "missing_required:id", reason)
}

func TestValidatorTypeCompatibility(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		types      schema.TypeSet
		value      any
		promotions bool
		wantOK     bool
		wantReason string
	}{
		"exact match": {
			types:      schema.NewTypeSet(schema.TypeString),
			value:      "a",
			promotions: true,
			wantOK:     true,
		},
		"integer satisfies number": {
			types:      schema.NewTypeSet(schema.TypeNumber),
			value:      json.Number("3"),
			promotions: false,
			wantOK:     true,
		},
		"integral number satisfies integer": {
			types:      schema.NewTypeSet(schema.TypeInteger),
			value:      json.Number("3.0"),
			promotions: false,
			wantOK:     true,
		},
		"fractional number fails integer": {
			types:      schema.NewTypeSet(schema.TypeInteger),
			value:      json.Number("3.5"),
			promotions: true,
			wantOK:     false,
			wantReason: "type_mismatch:f:expected_integer",
		},
		"number promotes to string": {
			types:      schema.NewTypeSet(schema.TypeString),
			value:      json.Number("3.5"),
			promotions: true,
			wantOK:     true,
		},
		"number does not promote when disabled": {
			types:      schema.NewTypeSet(schema.TypeString),
			value:      json.Number("3.5"),
			promotions: false,
			wantOK:     false,
			wantReason: "type_mismatch:f:expected_string",
		},
		"numeric string promotes to number": {
			types:      schema.NewTypeSet(schema.TypeNumber),
			value:      "3.14",
			promotions: true,
			wantOK:     true,
		},
		"non-numeric string fails number": {
			types:      schema.NewTypeSet(schema.TypeNumber),
			value:      "pi",
			promotions: true,
			wantOK:     false,
			wantReason: "type_mismatch:f:expected_number",
		},
		"infinite string fails number": {
			types:      schema.NewTypeSet(schema.TypeNumber),
			value:      "Inf",
			promotions: true,
			wantOK:     false,
			wantReason: "type_mismatch:f:expected_number",
		},
		"boolean is never numeric": {
			types:      schema.NewTypeSet(schema.TypeInteger, schema.TypeNumber),
			value:      true,
			promotions: true,
			wantOK:     false,
			wantReason: "type_mismatch:f",
		},
		"unconstrained property accepts anything": {
			types:      nil,
			value:      []any{"x"},
			promotions: false,
			wantOK:     true,
		},
		"multi-tag set omits expected suffix": {
			types:      schema.NewTypeSet(schema.TypeString, schema.TypeArray),
			value:      true,
			promotions: true,
			wantOK:     false,
			wantReason: "type_mismatch:f",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := &schema.Schema{Properties: map[string]schema.Property{
				"f": {Types: tc.types},
			}}
			v := validate.New(validate.ModeLenient,
				validate.WithTypePromotions(tc.promotions))

			reason, ok := v.Validate(schema.Document{"f": tc.value}, s, nil)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantReason, reason)
		})
	}
}

func TestValidatorUnknownFieldsIgnored(t *testing.T) {
	t.Parallel()

	v := validate.New(validate.ModeStrict)

	doc := schema.Document{"id": json.Number("1"), "name": "a", "extra": true}

	reason, ok := v.Validate(doc, personSchema(), schema.FieldStats{})
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestValidatorPurity(t *testing.T) {
	t.Parallel()

	v := validate.New(validate.ModeStrict, validate.WithRequiredPct(0.5))

	doc := schema.Document{"id": "abc"}
	stats := schema.FieldStats{"id": {Present: 10, PresentPct: 1.0}}

	for range 20 {
		reason, ok := v.Validate(doc, personSchema(), stats)
		assert.False(t, ok)
		assert.Equal(t, "type_mismatch:id:expected_integer", reason)
	}

	assert.Equal(t, schema.Document{"id": "abc"}, doc, "input document must not be mutated")
}

func TestConfigNewValidator(t *testing.T) {
	t.Parallel()

	c := validate.NewConfig()
	c.Mode = "strict"
	c.RequiredPct = 0.90
	c.AllowTypePromotion = true

	v, err := c.NewValidator()
	assert.NoError(t, err)
	assert.NotNil(t, v)

	c.Mode = "paranoid"

	_, err = c.NewValidator()
	assert.ErrorIs(t, err, validate.ErrInvalidMode)
}
