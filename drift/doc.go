// Package drift classifies structural differences between an inferred
// candidate schema and the latest registered schema, and decides whether
// the candidate should be promoted to a new version.
//
// [Compute] produces a [Diff] of added, removed, and changed fields with
// presence and type metadata drawn from the current sample's statistics and
// the latest record's historical statistics.
//
// Two promotion policies are provided. [RulePolicy] evaluates threshold
// rules in a fixed order and short-circuits on the first that fires:
//
//  1. A removed field historically present at or above
//     [Thresholds.RemovedMajorPrevPct].
//  2. An added field appearing in at least [Thresholds.AddedMajorPct] of
//     the sample (by fraction or by count).
//  3. A changed field whose dominant new type holds at least
//     [Thresholds.TypeShiftMajorPct] of the sample's observations.
//
// [CoveragePolicy] instead promotes any differing candidate whose property
// coverage meets the configured fraction. A deployment selects exactly one
// policy; they are never composed. Both policies are pure functions, iterate
// the diff lexicographically, always return at least one reason token, and
// unconditionally promote the first non-empty sample when no schema has been
// registered yet.
package drift
