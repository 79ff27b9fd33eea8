package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwatch/shelfwatch/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedBrand(t *testing.T, s *SQLiteStore, id string) {
	t.Helper()
	require.NoError(t, s.UpsertBrands(context.Background(), []model.Brand{
		{ID: id, Name: id, Website: "https://" + id + ".example.com", Enabled: true},
	}))
}

func persistedLoc(brandID, key, name, state string, active bool) model.PersistedLocation {
	now := time.Now().UTC().Truncate(time.Second)
	return model.PersistedLocation{
		BrandID:     brandID,
		LocationKey: key,
		Name:        name,
		City:        "Austin",
		State:       state,
		Zip:         "78701",
		FirstSeenAt: now,
		LastSeenAt:  now,
		IsActive:    active,
	}
}

func TestSQLiteBrandRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	brands := []model.Brand{
		{ID: "acme", Name: "Acme Foods", Website: "https://acme.example.com", LocatorURL: "https://acme.example.com/stores", Category: "snacks", Enabled: true},
		{ID: "globex", Name: "Globex", Website: "https://globex.example.com", Enabled: false},
	}
	require.NoError(t, s.UpsertBrands(ctx, brands))

	got, err := s.GetBrand(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Foods", got.Name)
	assert.Equal(t, "https://acme.example.com/stores", got.LocatorURL)
	assert.False(t, got.CreatedAt.IsZero())

	all, err := s.ListBrands(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	enabled, err := s.ListBrands(ctx, true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "acme", enabled[0].ID)

	_, err = s.GetBrand(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBrandNotFound)
}

func TestSQLiteUpsertBrandsIsIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	seedBrand(t, s, "acme")
	require.NoError(t, s.UpsertBrands(ctx, []model.Brand{
		{ID: "acme", Name: "Acme Renamed", Website: "https://acme.example.com", Enabled: true},
	}))

	got, err := s.GetBrand(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Renamed", got.Name)

	all, err := s.ListBrands(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteSetLocatorURL(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedBrand(t, s, "acme")

	require.NoError(t, s.SetLocatorURL(ctx, "acme", "https://acme.example.com/find-a-store"))
	got, err := s.GetBrand(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example.com/find-a-store", got.LocatorURL)

	err = s.SetLocatorURL(ctx, "missing", "https://x.example.com")
	assert.Error(t, err)
}

func TestSQLiteUpsertLocationsPreservesFirstSeen(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedBrand(t, s, "acme")

	first := persistedLoc("acme", "key1", "Store A", "TX", true)
	require.NoError(t, s.UpsertLocations(ctx, []model.PersistedLocation{first}))

	later := first
	later.Name = "Store A Renamed"
	later.FirstSeenAt = first.FirstSeenAt.Add(24 * time.Hour)
	later.LastSeenAt = first.LastSeenAt.Add(24 * time.Hour)
	require.NoError(t, s.UpsertLocations(ctx, []model.PersistedLocation{later}))

	locs, err := s.ListLocations(ctx, LocationFilter{BrandID: "acme"})
	require.NoError(t, err)
	require.Len(t, locs, 1)

	assert.Equal(t, "Store A Renamed", locs[0].Name)
	assert.True(t, locs[0].FirstSeenAt.Equal(first.FirstSeenAt), "first_seen_at must not advance")
	assert.True(t, locs[0].LastSeenAt.Equal(later.LastSeenAt))
}

func TestSQLiteDeactivateMissing(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedBrand(t, s, "acme")
	seedBrand(t, s, "globex")

	require.NoError(t, s.UpsertLocations(ctx, []model.PersistedLocation{
		persistedLoc("acme", "a1", "Store A", "TX", true),
		persistedLoc("acme", "a2", "Store B", "TX", true),
		persistedLoc("globex", "g1", "Store G", "CA", true),
	}))

	n, err := s.DeactivateMissing(ctx, "acme", []string{"a1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	states, err := s.LocationStates(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a1": true, "a2": false}, states)

	// Other brands stay untouched.
	gStates, err := s.LocationStates(ctx, "globex")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"g1": true}, gStates)

	// Re-running the same diff is a no-op.
	n, err = s.DeactivateMissing(ctx, "acme", []string{"a1"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteListLocationsFilters(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedBrand(t, s, "acme")

	old := persistedLoc("acme", "a1", "Old Store", "TX", true)
	old.FirstSeenAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := persistedLoc("acme", "a2", "New Store", "CA", true)
	recent.FirstSeenAt = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	inactive := persistedLoc("acme", "a3", "Gone Store", "TX", false)

	require.NoError(t, s.UpsertLocations(ctx, []model.PersistedLocation{old, recent, inactive}))

	active, err := s.ListLocations(ctx, LocationFilter{BrandID: "acme", ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	tx, err := s.ListLocations(ctx, LocationFilter{State: "TX", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, tx, 1)
	assert.Equal(t, "Old Store", tx[0].Name)

	cutoff := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	newly, err := s.ListLocations(ctx, LocationFilter{FirstSeenAfter: &cutoff})
	require.NoError(t, err)
	require.Len(t, newly, 1)
	assert.Equal(t, "New Store", newly[0].Name)

	limited, err := s.ListLocations(ctx, LocationFilter{BrandID: "acme", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteScanRunLog(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC)
	completed := started.Add(42 * time.Second)

	require.NoError(t, s.RecordScanRun(ctx, model.ScanRun{
		BrandID:     "acme",
		Status:      model.ScanSucceeded,
		Strategy:    "stockist",
		Locations:   120,
		Added:       3,
		Removed:     1,
		Reactivated: 2,
		StartedAt:   started,
		CompletedAt: &completed,
	}))
	require.NoError(t, s.RecordScanRun(ctx, model.ScanRun{
		BrandID:   "globex",
		Status:    model.ScanNoLocator,
		Reason:    "no strategy matched",
		StartedAt: started.Add(time.Minute),
	}))

	runs, err := s.ListScanRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "globex", runs[0].BrandID, "most recent first")
	assert.NotEmpty(t, runs[0].ID)

	failed, err := s.ListScanRuns(ctx, RunFilter{Status: model.ScanNoLocator})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "no strategy matched", failed[0].Reason)

	acme, err := s.ListScanRuns(ctx, RunFilter{BrandID: "acme"})
	require.NoError(t, err)
	require.Len(t, acme, 1)
	require.NotNil(t, acme[0].CompletedAt)
	assert.Equal(t, 120, acme[0].Locations)
	assert.Equal(t, 2, acme[0].Reactivated)
}

func TestSQLiteAggregates(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	seedBrand(t, s, "acme")
	seedBrand(t, s, "globex")

	require.NoError(t, s.UpsertLocations(ctx, []model.PersistedLocation{
		persistedLoc("acme", "a1", "S1", "TX", true),
		persistedLoc("acme", "a2", "S2", "TX", true),
		persistedLoc("acme", "a3", "S3", "CA", true),
		persistedLoc("acme", "a4", "S4", "CA", false),
		persistedLoc("globex", "g1", "S5", "CA", true),
	}))

	byBrand, err := s.ActiveCountByBrand(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.BrandAggregate{
		{BrandID: "acme", ActiveCount: 3},
		{BrandID: "globex", ActiveCount: 1},
	}, byBrand)

	byState, err := s.ActiveCountByState(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, []model.StateAggregate{
		{State: "CA", ActiveCount: 1},
		{State: "TX", ActiveCount: 2},
	}, byState)

	allStates, err := s.ActiveCountByState(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []model.StateAggregate{
		{State: "CA", ActiveCount: 2},
		{State: "TX", ActiveCount: 2},
	}, allStates)
}
