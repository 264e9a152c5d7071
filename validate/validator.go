package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"

	"go.jacobcolvin.com/chrysalis/schema"
)

// Mode selects how the required-field set is derived.
type Mode string

const (
	// ModeStrict derives required fields from historical presence: any field
	// with present_pct at or above the required threshold in the governing
	// record's field stats is required, in addition to the schema's explicit
	// required list.
	ModeStrict Mode = "strict"

	// ModeLenient requires only the fields the schema explicitly lists.
	ModeLenient Mode = "lenient"
)

// Failure reason prefixes. Tokens are machine-readable and end up verbatim
// on dead-letter entries.
const (
	reasonMissingRequired = "missing_required"
	reasonTypeMismatch    = "type_mismatch"
)

// Validator checks documents against a governing schema. It is a pure
// function of its inputs and never consults the registry; callers pass the
// governing schema and, in strict mode, the field stats stored alongside it.
type Validator struct {
	mode           Mode
	requiredPct    float64
	typePromotions bool
}

// An Option configures a [Validator].
type Option func(*Validator)

// WithRequiredPct sets the historical-presence threshold above which strict
// mode treats a field as required. Defaults to 0.90.
func WithRequiredPct(pct float64) Option {
	return func(v *Validator) {
		v.requiredPct = pct
	}
}

// WithTypePromotions enables or disables lenient type coercion: numeric
// values satisfying string properties, and numeric strings satisfying
// number properties. Defaults to enabled.
func WithTypePromotions(enabled bool) Option {
	return func(v *Validator) {
		v.typePromotions = enabled
	}
}

// New creates a [Validator] for the given mode.
func New(mode Mode, opts ...Option) *Validator {
	v := &Validator{
		mode:           mode,
		requiredPct:    0.90,
		typePromotions: true,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Mode returns the validator's configured mode.
func (v *Validator) Mode() Mode {
	return v.mode
}

// Validate checks doc against the governing schema. It returns ok=true when
// the document passes, otherwise ok=false and the first failure token in
// deterministic order: missing required fields lexicographically, then type
// mismatches lexicographically.
//
// stats is consulted only in strict mode and may be nil in lenient mode.
func (v *Validator) Validate(doc schema.Document, governing *schema.Schema, stats schema.FieldStats) (string, bool) {
	if governing == nil {
		return "", true
	}

	for _, field := range v.requiredFields(governing, stats) {
		if _, ok := doc[field]; ok {
			continue
		}

		return reasonMissingRequired + ":" + field, false
	}

	for _, field := range governing.PropertyNames() {
		value, ok := doc[field]
		if !ok {
			continue
		}

		prop := governing.Properties[field]
		if compatible(schema.Classify(value), prop.Types, value, v.typePromotions) {
			continue
		}

		return mismatchToken(field, prop.Types), false
	}

	return "", true
}

// requiredFields returns the sorted required-field set for the active mode.
func (v *Validator) requiredFields(governing *schema.Schema, stats schema.FieldStats) []string {
	required := slices.Clone(governing.Required)

	if v.mode == ModeStrict {
		for field, stat := range stats {
			if stat.PresentPct >= v.requiredPct && !slices.Contains(required, field) {
				required = append(required, field)
			}
		}
	}

	slices.Sort(required)

	return required
}

// compatible reports whether a value of the classified tag satisfies the
// property's type set. The match is disjoint: exactly one rule decides.
func compatible(tag schema.TypeTag, types schema.TypeSet, value any, promotions bool) bool {
	// No type constraint accepts anything.
	if len(types) == 0 {
		return true
	}

	if types.Contains(tag) {
		return true
	}

	// Integers are numbers.
	if tag == schema.TypeInteger && types.Contains(schema.TypeNumber) {
		return true
	}

	// A mathematically integral number satisfies integer.
	if tag == schema.TypeNumber && types.Contains(schema.TypeInteger) && isIntegral(value) {
		return true
	}

	if !promotions {
		return false
	}

	if (tag == schema.TypeInteger || tag == schema.TypeNumber) && types.Contains(schema.TypeString) {
		return true
	}

	if tag == schema.TypeString && types.Contains(schema.TypeNumber) {
		s, ok := value.(string)

		return ok && parsesFinite(s)
	}

	return false
}

// mismatchToken builds the type_mismatch token, suffixed with the expected
// type when the property constrains to exactly one tag.
func mismatchToken(field string, types schema.TypeSet) string {
	if len(types) == 1 {
		return fmt.Sprintf("%s:%s:expected_%s", reasonTypeMismatch, field, types[0])
	}

	return reasonTypeMismatch + ":" + field
}

func isIntegral(value any) bool {
	var f float64

	switch n := value.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return false
		}

		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	default:
		return false
	}

	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
}

func parsesFinite(s string) bool {
	f, err := strconv.ParseFloat(s, 64)

	return err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
}
