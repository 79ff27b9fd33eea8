package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwatch/shelfwatch/internal/model"
	"github.com/shelfwatch/shelfwatch/internal/store"
)

func seededServer(t *testing.T) *Server {
	t.Helper()

	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	require.NoError(t, st.UpsertBrands(ctx, []model.Brand{
		{ID: "acme", Name: "Acme Foods", Website: "https://acme.example.com", Enabled: true},
		{ID: "globex", Name: "Globex", Website: "https://globex.example.com", Enabled: false},
	}))

	seen := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.UpsertLocations(ctx, []model.PersistedLocation{
		{
			BrandID: "acme", LocationKey: "k1", Name: "Downtown Market",
			City: "Austin", State: "TX", Strategy: "stockist",
			FirstSeenAt: seen, LastSeenAt: seen, IsActive: true,
		},
		{
			BrandID: "acme", LocationKey: "k2", Name: "Harbor Grocer",
			City: "Seattle", State: "WA", Strategy: "stockist",
			FirstSeenAt: seen.AddDate(0, 0, 20), LastSeenAt: seen.AddDate(0, 0, 20), IsActive: true,
		},
		{
			BrandID: "acme", LocationKey: "k3", Name: "Closed Corner",
			City: "Austin", State: "TX", Strategy: "stockist",
			FirstSeenAt: seen, LastSeenAt: seen, IsActive: false,
		},
	}))

	require.NoError(t, st.RecordScanRun(ctx, model.ScanRun{
		ID: "run-1", BrandID: "acme", Status: model.ScanSucceeded,
		Strategy: "stockist", Locations: 2, Added: 2,
		StartedAt: seen,
	}))

	return NewServer(st)
}

func doGet(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeList[T any](t *testing.T, rec *httptest.ResponseRecorder) []T {
	t.Helper()
	var out []T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	rec := doGet(t, seededServer(t), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListBrands(t *testing.T) {
	srv := seededServer(t)

	rec := doGet(t, srv, "/api/brands")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList[model.Brand](t, rec), 2)

	rec = doGet(t, srv, "/api/brands?enabled=true")
	require.Equal(t, http.StatusOK, rec.Code)
	brands := decodeList[model.Brand](t, rec)
	require.Len(t, brands, 1)
	assert.Equal(t, "acme", brands[0].ID)
}

func TestGetBrand(t *testing.T) {
	srv := seededServer(t)

	rec := doGet(t, srv, "/api/brands/acme")
	require.Equal(t, http.StatusOK, rec.Code)

	var brand model.Brand
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &brand))
	assert.Equal(t, "Acme Foods", brand.Name)

	rec = doGet(t, srv, "/api/brands/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListLocations(t *testing.T) {
	srv := seededServer(t)

	// Active only by default.
	rec := doGet(t, srv, "/api/brands/acme/locations")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList[model.PersistedLocation](t, rec), 2)

	// Inactive rows included on request.
	rec = doGet(t, srv, "/api/brands/acme/locations?active=false")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList[model.PersistedLocation](t, rec), 3)

	// State filter is case-insensitive.
	rec = doGet(t, srv, "/api/brands/acme/locations?state=tx")
	require.Equal(t, http.StatusOK, rec.Code)
	locs := decodeList[model.PersistedLocation](t, rec)
	require.Len(t, locs, 1)
	assert.Equal(t, "Downtown Market", locs[0].Name)

	// Since filters on first_seen_at.
	rec = doGet(t, srv, "/api/brands/acme/locations?since=2026-08-10T00:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	locs = decodeList[model.PersistedLocation](t, rec)
	require.Len(t, locs, 1)
	assert.Equal(t, "Harbor Grocer", locs[0].Name)

	rec = doGet(t, srv, "/api/brands/acme/locations?since=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRuns(t *testing.T) {
	rec := doGet(t, seededServer(t), "/api/runs?brand=acme")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decodeList[model.ScanRun](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, model.ScanSucceeded, runs[0].Status)
}

func TestAggregates(t *testing.T) {
	srv := seededServer(t)

	rec := doGet(t, srv, "/api/aggregates/brands")
	require.Equal(t, http.StatusOK, rec.Code)
	brands := decodeList[model.BrandAggregate](t, rec)
	require.Len(t, brands, 1)
	assert.Equal(t, model.BrandAggregate{BrandID: "acme", ActiveCount: 2}, brands[0])

	rec = doGet(t, srv, "/api/aggregates/states?brand=acme")
	require.Equal(t, http.StatusOK, rec.Code)
	states := decodeList[model.StateAggregate](t, rec)
	assert.Equal(t, []model.StateAggregate{
		{State: "TX", ActiveCount: 1},
		{State: "WA", ActiveCount: 1},
	}, states)
}

func TestPageLimitClamp(t *testing.T) {
	assert.Equal(t, maxPageSize, pageLimit(""))
	assert.Equal(t, maxPageSize, pageLimit("9000"))
	assert.Equal(t, 25, pageLimit("25"))
	assert.Equal(t, maxPageSize, pageLimit("-3"))
}
