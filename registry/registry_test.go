package registry_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/chrysalis/drift"
	"go.jacobcolvin.com/chrysalis/registry"
	"go.jacobcolvin.com/chrysalis/schema"
	"go.jacobcolvin.com/chrysalis/storage"
)

func testSchema(tag schema.TypeTag) *schema.Schema {
	return &schema.Schema{Properties: map[string]schema.Property{
		"id": {Types: schema.NewTypeSet(tag)},
	}}
}

func openSQLite(t *testing.T) *registry.SQLite {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "chrysalis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	reg, err := registry.NewSQLite(db)
	require.NoError(t, err)

	return reg
}

// Both implementations must satisfy the same contract.
func registries(t *testing.T) map[string]registry.Registry {
	t.Helper()

	return map[string]registry.Registry{
		"sqlite": openSQLite(t),
		"memory": registry.NewMemory(),
	}
}

func TestRegistryEmpty(t *testing.T) {
	t.Parallel()

	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := reg.Latest(t.Context())
			require.ErrorIs(t, err, registry.ErrNotFound)

			_, err = reg.Get(t.Context(), 1)
			require.ErrorIs(t, err, registry.ErrNotFound)
		})
	}
}

func TestRegistryVersionMonotonicity(t *testing.T) {
	t.Parallel()

	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			const n = 5

			for i := range n {
				rec, err := reg.CreateVersion(t.Context(), registry.NewVersion{
					Schema:      testSchema(schema.TypeInteger),
					SourceJobID: "job",
				})
				require.NoError(t, err)
				assert.Equal(t, i+1, rec.Version)
			}

			records, err := reg.List(t.Context(), 0)
			require.NoError(t, err)
			require.Len(t, records, n)

			// Descending, gapless, no duplicates.
			for i, rec := range records {
				assert.Equal(t, n-i, rec.Version)
			}

			latest, err := reg.Latest(t.Context())
			require.NoError(t, err)
			assert.Equal(t, n, latest.Version)
		})
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	t.Parallel()

	reg := openSQLite(t)

	pct := 0.9
	in := registry.NewVersion{
		Schema: testSchema(schema.TypeInteger),
		Diff: drift.Diff{
			Added: map[string]drift.AddedField{
				"id": {Present: 5, PresentPct: 1.0},
			},
			Removed: map[string]drift.RemovedField{
				"legacy": {PrevPresencePct: &pct},
			},
			Changed: map[string]drift.ChangedField{},
		},
		SourceJobID: "job-42",
		SampleDocs: []schema.Document{
			{"id": "1"}, {"id": "2"}, {"id": "3"},
			{"id": "4"}, {"id": "5"}, {"id": "6"}, {"id": "7"},
		},
		FieldStats: schema.FieldStats{
			"id": {Present: 5, PresentPct: 1.0, TypeCounts: map[schema.TypeTag]int{
				schema.TypeInteger: 5,
			}},
		},
	}

	created, err := reg.CreateVersion(t.Context(), in)
	require.NoError(t, err)

	got, err := reg.Get(t.Context(), created.Version)
	require.NoError(t, err)

	assert.True(t, schema.Equal(in.Schema, got.Schema))
	assert.Equal(t, "job-42", got.SourceJobID)
	assert.Len(t, got.SampleDocs, 5, "sample docs are capped at five")
	assert.Equal(t, 5, got.FieldStats["id"].Present)
	require.NotNil(t, got.Diff.Removed["legacy"].PrevPresencePct)
	assert.InDelta(t, 0.9, *got.Diff.Removed["legacy"].PrevPresencePct, 1e-9)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.PendingPromotion)
}

func TestRegistryConcurrentVersionAllocation(t *testing.T) {
	t.Parallel()

	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			// Small enough that the losing writer's retries stay within
			// the allocation retry budget.
			const writers = 4

			var wg sync.WaitGroup

			errs := make([]error, writers)

			for i := range writers {
				wg.Add(1)

				go func() {
					defer wg.Done()

					_, errs[i] = reg.CreateVersion(t.Context(), registry.NewVersion{
						Schema:      testSchema(schema.TypeInteger),
						SourceJobID: "race",
					})
				}()
			}

			wg.Wait()

			for _, err := range errs {
				require.NoError(t, err)
			}

			records, err := reg.List(t.Context(), 0)
			require.NoError(t, err)
			require.Len(t, records, writers)

			seen := make(map[int]bool, writers)

			for _, rec := range records {
				assert.False(t, seen[rec.Version], "duplicate version %d", rec.Version)
				seen[rec.Version] = true
				assert.GreaterOrEqual(t, rec.Version, 1)
				assert.LessOrEqual(t, rec.Version, writers)
			}
		})
	}
}

func TestRegistryApprove(t *testing.T) {
	t.Parallel()

	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			created, err := reg.CreateVersion(t.Context(), registry.NewVersion{
				Schema:      testSchema(schema.TypeInteger),
				SourceJobID: "job",
			})
			require.NoError(t, err)

			at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

			approved, err := reg.Approve(t.Context(), created.Version, at)
			require.NoError(t, err)
			assert.True(t, approved.PendingPromotion)
			require.NotNil(t, approved.PromotedAt)
			assert.Equal(t, at, *approved.PromotedAt)

			_, err = reg.Approve(t.Context(), 999, at)
			require.ErrorIs(t, err, registry.ErrNotFound)
		})
	}
}

func TestRegistryList(t *testing.T) {
	t.Parallel()

	reg := registry.NewMemory()

	for range 4 {
		_, err := reg.CreateVersion(t.Context(), registry.NewVersion{
			Schema: testSchema(schema.TypeString),
		})
		require.NoError(t, err)
	}

	records, err := reg.List(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 4, records[0].Version)
	assert.Equal(t, 3, records[1].Version)
}
