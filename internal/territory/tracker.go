package territory

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shelfwatch/shelfwatch/internal/model"
)

// Store is the persistence surface the tracker needs. The concrete
// implementations live in internal/store.
type Store interface {
	// LocationStates returns every known location key for the brand
	// mapped to its current is_active flag.
	LocationStates(ctx context.Context, brandID string) (map[string]bool, error)

	// UpsertLocations inserts or refreshes the given rows: new keys get
	// first_seen_at = last_seen_at = now, existing keys keep their
	// original first_seen_at, update descriptive fields and last_seen_at,
	// and come back active.
	UpsertLocations(ctx context.Context, locs []model.PersistedLocation) error

	// DeactivateMissing marks active rows for the brand whose key is not
	// in keys as inactive, returning how many flipped.
	DeactivateMissing(ctx context.Context, brandID string, keys []string) (int64, error)
}

// Changes summarizes one snapshot application.
type Changes struct {
	Added       int
	Removed     int
	Reactivated int
}

// Tracker applies scan snapshots against stored territory.
type Tracker struct {
	store Store
	now   func() time.Time
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// Apply reconciles a trusted, deduplicated snapshot with the stored
// territory for one brand. Every location in the snapshot is upserted
// and active rows absent from it are deactivated, so applying the same
// snapshot twice is a no-op. Apply must only run on gate-passing
// snapshots: deactivation trusts the snapshot to be the brand's whole
// footprint.
func (t *Tracker) Apply(ctx context.Context, brandID string, locs []model.RawLocation) (Changes, error) {
	prior, err := t.store.LocationStates(ctx, brandID)
	if err != nil {
		return Changes{}, eris.Wrap(err, "territory: load prior state")
	}

	now := t.now().UTC()
	var changes Changes

	// Duplicate keys inside one snapshot (same store reported twice with
	// no coordinates to dedupe on) collapse to the first record.
	seen := make(map[string]bool, len(locs))
	rows := make([]model.PersistedLocation, 0, len(locs))
	keys := make([]string, 0, len(locs))
	for _, loc := range locs {
		key := Key(brandID, loc)
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)

		active, known := prior[key]
		switch {
		case !known:
			changes.Added++
		case !active:
			changes.Reactivated++
		}

		rows = append(rows, model.PersistedLocation{
			BrandID:     brandID,
			LocationKey: key,
			Name:        loc.Name,
			Address:     loc.Address,
			City:        loc.City,
			State:       loc.State,
			Zip:         loc.Zip,
			Country:     loc.Country,
			Latitude:    loc.Latitude,
			Longitude:   loc.Longitude,
			Phone:       loc.Phone,
			ExternalID:  loc.ExternalID,
			Strategy:    loc.Strategy,
			FirstSeenAt: now,
			LastSeenAt:  now,
			IsActive:    true,
		})
	}

	if err := t.store.UpsertLocations(ctx, rows); err != nil {
		return Changes{}, eris.Wrap(err, "territory: upsert snapshot")
	}

	removed, err := t.store.DeactivateMissing(ctx, brandID, keys)
	if err != nil {
		// The upsert landed but deactivation did not: stale rows stay
		// active until the next successful scan. Report the error so the
		// run is recorded as failed.
		return Changes{}, eris.Wrap(err, "territory: deactivate missing")
	}
	changes.Removed = int(removed)

	if changes.Added > 0 || changes.Removed > 0 || changes.Reactivated > 0 {
		zap.L().Info("territory changed",
			zap.String("brand_id", brandID),
			zap.Int("added", changes.Added),
			zap.Int("removed", changes.Removed),
			zap.Int("reactivated", changes.Reactivated),
		)
	}
	return changes, nil
}
