// Package store persists brands, their location territory, and the scan
// run log. Two backends exist: Postgres for shared deployments and
// SQLite for single-operator use.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/shelfwatch/shelfwatch/internal/model"
)

// ErrBrandNotFound is returned by brand lookups for unknown IDs.
var ErrBrandNotFound = eris.New("brand not found")

// LocationFilter specifies criteria for listing locations.
type LocationFilter struct {
	BrandID        string     `json:"brand_id,omitempty"`
	State          string     `json:"state,omitempty"`
	ActiveOnly     bool       `json:"active_only,omitempty"`
	FirstSeenAfter *time.Time `json:"first_seen_after,omitempty"`
	Limit          int        `json:"limit,omitempty"`
	Offset         int        `json:"offset,omitempty"`
}

// RunFilter specifies criteria for listing scan runs.
type RunFilter struct {
	BrandID string           `json:"brand_id,omitempty"`
	Status  model.ScanStatus `json:"status,omitempty"`
	Limit   int              `json:"limit,omitempty"`
	Offset  int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for the scan engine. It
// embeds the territory tracker's surface, so either backend can be
// handed to the tracker directly.
type Store interface {
	// Brands
	UpsertBrands(ctx context.Context, brands []model.Brand) error
	GetBrand(ctx context.Context, id string) (*model.Brand, error)
	ListBrands(ctx context.Context, enabledOnly bool) ([]model.Brand, error)
	SetLocatorURL(ctx context.Context, brandID, locatorURL string) error

	// Territory
	LocationStates(ctx context.Context, brandID string) (map[string]bool, error)
	UpsertLocations(ctx context.Context, locs []model.PersistedLocation) error
	DeactivateMissing(ctx context.Context, brandID string, keys []string) (int64, error)
	ListLocations(ctx context.Context, filter LocationFilter) ([]model.PersistedLocation, error)

	// Scan log
	RecordScanRun(ctx context.Context, run model.ScanRun) error
	ListScanRuns(ctx context.Context, filter RunFilter) ([]model.ScanRun, error)

	// Read models
	ActiveCountByBrand(ctx context.Context) ([]model.BrandAggregate, error)
	ActiveCountByState(ctx context.Context, brandID string) ([]model.StateAggregate, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
