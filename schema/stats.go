package schema

import "slices"

// FieldStat accumulates per-field observations over one sample.
// TypeCounts values always sum to Present.
type FieldStat struct {
	Present    int             `json:"present"`
	PresentPct float64         `json:"present_pct"`
	TypeCounts map[TypeTag]int `json:"type_counts"`
}

// FieldStats maps top-level field names to their sample statistics.
type FieldStats map[string]FieldStat

// DominantShare returns the share of observations held by the field's most
// frequent type tag. Ties break lexicographically on the tag name so the
// result is deterministic. ok is false when the field has no type
// observations.
func (fs FieldStats) DominantShare(field string) (share float64, ok bool) {
	stat, found := fs[field]
	if !found || len(stat.TypeCounts) == 0 {
		return 0, false
	}

	tags := make([]TypeTag, 0, len(stat.TypeCounts))

	for tag := range stat.TypeCounts {
		tags = append(tags, tag)
	}

	slices.Sort(tags)

	total := 0
	best := 0

	for _, tag := range tags {
		n := stat.TypeCounts[tag]
		total += n

		if n > best {
			best = n
		}
	}

	if total == 0 {
		return 0, false
	}

	return float64(best) / float64(total), true
}
