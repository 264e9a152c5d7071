package drift

import (
	"go.jacobcolvin.com/chrysalis/schema"
)

// AddedField describes a property present in the candidate but not in the
// previously registered schema, with its presence in the current sample.
type AddedField struct {
	Present    int     `json:"present"`
	PresentPct float64 `json:"present_pct"`
}

// RemovedField describes a property that disappeared from the candidate.
// PrevPresencePct is the field's historical presence from the latest
// registered record, when that record carried statistics for it.
type RemovedField struct {
	PrevPresencePct *float64 `json:"prev_presence_pct,omitempty"`
}

// ChangedField describes a property whose definition changed between the
// registered schema and the candidate. NewDomPct is the share of the current
// sample's observations held by the field's dominant type, absent when the
// sample carries no type observations for the field.
type ChangedField struct {
	Old       schema.Property `json:"old"`
	New       schema.Property `json:"new"`
	NewDomPct *float64        `json:"new_dom_pct,omitempty"`
}

// Diff is the field-level difference between the latest registered schema
// and a candidate, keyed by field name.
type Diff struct {
	Added   map[string]AddedField   `json:"added"`
	Removed map[string]RemovedField `json:"removed"`
	Changed map[string]ChangedField `json:"changed"`
}

// Empty reports whether the diff records no structural difference.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compute diffs the candidate schema against the previously registered one.
//
// stats holds the candidate sample's field statistics; prevStats holds the
// statistics stored on the latest registered record and supplies the
// historical presence of removed fields. When old is nil or has no
// properties, every candidate property is reported as added.
func Compute(old, candidate *schema.Schema, stats schema.FieldStats, prevStats schema.FieldStats) Diff {
	diff := Diff{
		Added:   map[string]AddedField{},
		Removed: map[string]RemovedField{},
		Changed: map[string]ChangedField{},
	}

	var newProps map[string]schema.Property

	if candidate != nil {
		newProps = candidate.Properties
	}

	if old == nil || len(old.Properties) == 0 {
		for name := range newProps {
			diff.Added[name] = addedField(name, stats)
		}

		return diff
	}

	for name, newProp := range newProps {
		oldProp, ok := old.Properties[name]
		if !ok {
			diff.Added[name] = addedField(name, stats)

			continue
		}

		if !oldProp.Equal(newProp) {
			changed := ChangedField{Old: oldProp, New: newProp}

			if share, ok := stats.DominantShare(name); ok {
				changed.NewDomPct = &share
			}

			diff.Changed[name] = changed
		}
	}

	for name := range old.Properties {
		if _, ok := newProps[name]; ok {
			continue
		}

		removed := RemovedField{}

		if stat, ok := prevStats[name]; ok {
			pct := stat.PresentPct
			removed.PrevPresencePct = &pct
		}

		diff.Removed[name] = removed
	}

	return diff
}

func addedField(name string, stats schema.FieldStats) AddedField {
	stat := stats[name]

	return AddedField{
		Present:    stat.Present,
		PresentPct: stat.PresentPct,
	}
}
