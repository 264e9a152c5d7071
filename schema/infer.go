package schema

// Infer reduces a document sample to a structural schema and per-field
// statistics.
//
// Property definitions are union-merged across the sample: the type of each
// property is the set of tags observed for that key, collapsed to a single
// tag when only one was seen. Presence counts and per-tag counts accumulate
// into [FieldStats], with percentages relative to the sample size. Nested
// objects and arrays contribute their container tag only; their internals
// are not descended into.
//
// The returned schema carries no required list and no meta-keys. Its
// canonical encoding depends only on the set of observed keys and types,
// never on document or key order.
func Infer(docs []Document) (*Schema, FieldStats) {
	s := &Schema{}
	stats := FieldStats{}

	if len(docs) == 0 {
		return s, stats
	}

	s.Properties = make(map[string]Property)
	sampleSize := len(docs)

	for _, doc := range docs {
		for key, value := range doc {
			tag := Classify(value)

			stat, ok := stats[key]
			if !ok {
				stat = FieldStat{TypeCounts: make(map[TypeTag]int)}
			}

			stat.Present++
			stat.TypeCounts[tag]++
			stats[key] = stat

			prop := s.Properties[key]
			prop.Types = prop.Types.Add(tag)
			s.Properties[key] = prop
		}
	}

	for key, stat := range stats {
		stat.PresentPct = float64(stat.Present) / float64(sampleSize)
		stats[key] = stat
	}

	if len(s.Properties) == 0 {
		s.Properties = nil
	}

	return s, stats
}
