package drift

import (
	"fmt"
	"slices"

	"go.jacobcolvin.com/chrysalis/schema"
)

// Promotion reason tokens. Field-specific reasons append ":<field>".
const (
	ReasonNoLatestSchema     = "no_latest_schema"
	ReasonRemovedCommonField = "removed_common_field"
	ReasonAddedCommonField   = "added_common_field"
	ReasonTypeShift          = "type_shift"
	ReasonNoMajorDrift       = "no_major_drift"
	ReasonSchemaUnchanged    = "schema_unchanged"
)

// Decision is a promotion verdict with the ordered reason tokens that
// produced it. Reasons is never empty.
type Decision struct {
	Promote bool     `json:"promote"`
	Reasons []string `json:"reasons"`
}

// Input carries everything a [Policy] may consult. Policies are pure
// functions of their input: identical inputs yield identical decisions.
type Input struct {
	Diff       Diff
	Candidate  *schema.Schema
	Stats      schema.FieldStats
	SampleSize int
	HasLatest  bool
}

// Policy decides whether a candidate schema supersedes the latest
// registered version.
type Policy interface {
	// Name identifies the policy in logs and configuration.
	Name() string
	// Decide evaluates the candidate. Exactly one policy runs per
	// deployment; policies are never composed.
	Decide(in Input) Decision
}

// Thresholds are the tunable drift-rule limits. Zero values are not
// meaningful; use [DefaultThresholds] as a base.
type Thresholds struct {
	// AddedMajorPct promotes when an added field appears in at least this
	// fraction of the sample.
	AddedMajorPct float64
	// RemovedMajorPrevPct promotes when a removed field was historically
	// present at or above this rate.
	RemovedMajorPrevPct float64
	// TypeShiftMajorPct promotes when a changed field's dominant new type
	// holds at least this share of the sample's observations.
	TypeShiftMajorPct float64
}

// DefaultThresholds returns the stock drift-rule limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AddedMajorPct:       0.10,
		RemovedMajorPrevPct: 0.20,
		TypeShiftMajorPct:   0.50,
	}
}

// RulePolicy promotes on the first firing drift rule, evaluated in a fixed
// order: removed-common-field, added-common-field, type-shift. Iteration
// over diff fields is lexicographic so the emitted reason is reproducible.
type RulePolicy struct {
	thresholds Thresholds
}

// NewRulePolicy creates a [RulePolicy] with the given thresholds.
func NewRulePolicy(t Thresholds) *RulePolicy {
	return &RulePolicy{thresholds: t}
}

// Name implements [Policy].
func (p *RulePolicy) Name() string { return "drift" }

// Decide implements [Policy].
func (p *RulePolicy) Decide(in Input) Decision {
	if !in.HasLatest {
		return Decision{Promote: true, Reasons: []string{ReasonNoLatestSchema}}
	}

	for _, name := range sortedKeys(in.Diff.Removed) {
		prev := in.Diff.Removed[name].PrevPresencePct
		if prev != nil && *prev >= p.thresholds.RemovedMajorPrevPct {
			return Decision{
				Promote: true,
				Reasons: []string{ReasonRemovedCommonField + ":" + name},
			}
		}
	}

	if in.SampleSize > 0 {
		minPresent := max(1, int(p.thresholds.AddedMajorPct*float64(in.SampleSize)))

		for _, name := range sortedKeys(in.Diff.Added) {
			added := in.Diff.Added[name]
			if added.PresentPct >= p.thresholds.AddedMajorPct || added.Present >= minPresent {
				return Decision{
					Promote: true,
					Reasons: []string{ReasonAddedCommonField + ":" + name},
				}
			}
		}
	}

	for _, name := range sortedKeys(in.Diff.Changed) {
		dom := in.Diff.Changed[name].NewDomPct
		if dom != nil && *dom >= p.thresholds.TypeShiftMajorPct {
			return Decision{
				Promote: true,
				Reasons: []string{ReasonTypeShift + ":" + name},
			}
		}
	}

	if in.Diff.Empty() {
		return Decision{Reasons: []string{ReasonSchemaUnchanged}}
	}

	return Decision{Reasons: []string{ReasonNoMajorDrift}}
}

// CoveragePolicy promotes when the candidate differs from the latest schema
// and the fraction of candidate properties present in at least PromotePct of
// the sample is itself at least PromotePct.
type CoveragePolicy struct {
	promotePct float64
}

// NewCoveragePolicy creates a [CoveragePolicy] with the given threshold.
func NewCoveragePolicy(promotePct float64) *CoveragePolicy {
	return &CoveragePolicy{promotePct: promotePct}
}

// Name implements [Policy].
func (p *CoveragePolicy) Name() string { return "coverage" }

// Decide implements [Policy].
func (p *CoveragePolicy) Decide(in Input) Decision {
	if !in.HasLatest {
		return Decision{Promote: true, Reasons: []string{ReasonNoLatestSchema}}
	}

	if in.Diff.Empty() {
		return Decision{Reasons: []string{ReasonSchemaUnchanged}}
	}

	names := in.Candidate.PropertyNames()
	if len(names) == 0 {
		return Decision{Reasons: []string{ReasonNoMajorDrift}}
	}

	covered := 0

	for _, name := range names {
		if in.Stats[name].PresentPct >= p.promotePct {
			covered++
		}
	}

	coverage := float64(covered) / float64(len(names))
	token := fmt.Sprintf("%.2f", coverage)

	if coverage >= p.promotePct {
		return Decision{Promote: true, Reasons: []string{"coverage:" + token}}
	}

	return Decision{Reasons: []string{"low_coverage:" + token}}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))

	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
