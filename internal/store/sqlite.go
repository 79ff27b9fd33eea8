package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/shelfwatch/shelfwatch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS brands (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	website     TEXT NOT NULL,
	locator_url TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	enabled     INTEGER NOT NULL DEFAULT 1,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS locations (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	location_key  TEXT NOT NULL UNIQUE,
	brand_id      TEXT NOT NULL REFERENCES brands(id),
	name          TEXT NOT NULL,
	address       TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL DEFAULT '',
	state         TEXT NOT NULL DEFAULT '',
	zip           TEXT NOT NULL DEFAULT '',
	country       TEXT NOT NULL DEFAULT '',
	latitude      REAL,
	longitude     REAL,
	phone         TEXT NOT NULL DEFAULT '',
	external_id   TEXT NOT NULL DEFAULT '',
	strategy      TEXT NOT NULL DEFAULT '',
	first_seen_at DATETIME NOT NULL,
	last_seen_at  DATETIME NOT NULL,
	is_active     INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_locations_brand ON locations(brand_id);
CREATE INDEX IF NOT EXISTS idx_locations_brand_active ON locations(brand_id, is_active);
CREATE INDEX IF NOT EXISTS idx_locations_first_seen ON locations(first_seen_at);

CREATE TABLE IF NOT EXISTS scan_runs (
	id           TEXT PRIMARY KEY,
	brand_id     TEXT NOT NULL,
	status       TEXT NOT NULL,
	reason       TEXT NOT NULL DEFAULT '',
	strategy     TEXT NOT NULL DEFAULT '',
	locations    INTEGER NOT NULL DEFAULT 0,
	added        INTEGER NOT NULL DEFAULT 0,
	removed      INTEGER NOT NULL DEFAULT 0,
	reactivated  INTEGER NOT NULL DEFAULT 0,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_scan_runs_brand ON scan_runs(brand_id, started_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsertLocation = `
INSERT INTO locations (location_key, brand_id, name, address, city, state, zip, country,
	latitude, longitude, phone, external_id, strategy, first_seen_at, last_seen_at, is_active)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(location_key) DO UPDATE SET
	brand_id = excluded.brand_id,
	name = excluded.name,
	address = excluded.address,
	city = excluded.city,
	state = excluded.state,
	zip = excluded.zip,
	country = excluded.country,
	latitude = excluded.latitude,
	longitude = excluded.longitude,
	phone = excluded.phone,
	external_id = excluded.external_id,
	strategy = excluded.strategy,
	last_seen_at = excluded.last_seen_at,
	is_active = excluded.is_active`

func (s *SQLiteStore) UpsertLocations(ctx context.Context, locs []model.PersistedLocation) error {
	if len(locs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertLocation)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	for _, loc := range locs {
		if _, err := stmt.ExecContext(ctx,
			loc.LocationKey, loc.BrandID, loc.Name, loc.Address, loc.City,
			loc.State, loc.Zip, loc.Country, loc.Latitude, loc.Longitude,
			loc.Phone, loc.ExternalID, loc.Strategy,
			loc.FirstSeenAt, loc.LastSeenAt, loc.IsActive,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert location %s", loc.LocationKey)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit upsert tx")
}

func (s *SQLiteStore) LocationStates(ctx context.Context, brandID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT location_key, is_active FROM locations WHERE brand_id = ?`, brandID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: location states %s", brandID)
	}
	defer rows.Close()

	states := make(map[string]bool)
	for rows.Next() {
		var key string
		var active bool
		if err := rows.Scan(&key, &active); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan location state")
		}
		states[key] = active
	}
	return states, eris.Wrap(rows.Err(), "sqlite: location states")
}

// DeactivateMissing diffs in Go rather than with a NOT IN list: snapshots
// can exceed SQLite's bound-parameter limit.
func (s *SQLiteStore) DeactivateMissing(ctx context.Context, brandID string, keys []string) (int64, error) {
	states, err := s.LocationStates(ctx, brandID)
	if err != nil {
		return 0, err
	}
	keep := make(map[string]bool, len(keys))
	for _, k := range keys {
		keep[k] = true
	}

	var missing []string
	for key, active := range states {
		if active && !keep[key] {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin deactivate tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `UPDATE locations SET is_active = 0 WHERE location_key = ?`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare deactivate")
	}
	defer stmt.Close()

	for _, key := range missing {
		if _, err := stmt.ExecContext(ctx, key); err != nil {
			return 0, eris.Wrapf(err, "sqlite: deactivate %s", key)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit deactivate tx")
	}
	return int64(len(missing)), nil
}

func (s *SQLiteStore) ListLocations(ctx context.Context, filter LocationFilter) ([]model.PersistedLocation, error) {
	query := `SELECT id, location_key, brand_id, name, address, city, state, zip, country,
		latitude, longitude, phone, external_id, strategy, first_seen_at, last_seen_at, is_active
		FROM locations WHERE 1=1`
	var args []any

	if filter.BrandID != "" {
		query += ` AND brand_id = ?`
		args = append(args, filter.BrandID)
	}
	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, filter.State)
	}
	if filter.ActiveOnly {
		query += ` AND is_active = 1`
	}
	if filter.FirstSeenAfter != nil {
		query += ` AND first_seen_at >= ?`
		args = append(args, *filter.FirstSeenAfter)
	}
	query += ` ORDER BY brand_id, state, city, name`
	if filter.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + strconv.Itoa(filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list locations")
	}
	defer rows.Close()

	var locs []model.PersistedLocation
	for rows.Next() {
		var l model.PersistedLocation
		if err := rows.Scan(
			&l.ID, &l.LocationKey, &l.BrandID, &l.Name, &l.Address, &l.City,
			&l.State, &l.Zip, &l.Country, &l.Latitude, &l.Longitude,
			&l.Phone, &l.ExternalID, &l.Strategy,
			&l.FirstSeenAt, &l.LastSeenAt, &l.IsActive,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan location")
		}
		locs = append(locs, l)
	}
	return locs, eris.Wrap(rows.Err(), "sqlite: list locations")
}

func (s *SQLiteStore) UpsertBrands(ctx context.Context, brands []model.Brand) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin brands tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO brands (id, name, website, locator_url, category, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			website = excluded.website,
			locator_url = excluded.locator_url,
			category = excluded.category,
			enabled = excluded.enabled`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare brand upsert")
	}
	defer stmt.Close()

	for _, b := range brands {
		created := b.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, b.ID, b.Name, b.Website, b.LocatorURL, b.Category, b.Enabled, created); err != nil {
			return eris.Wrapf(err, "sqlite: upsert brand %s", b.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit brands tx")
}

func (s *SQLiteStore) GetBrand(ctx context.Context, id string) (*model.Brand, error) {
	var b model.Brand
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, website, locator_url, category, enabled, created_at FROM brands WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.Website, &b.LocatorURL, &b.Category, &b.Enabled, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrBrandNotFound, "%s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get brand %s", id)
	}
	return &b, nil
}

func (s *SQLiteStore) ListBrands(ctx context.Context, enabledOnly bool) ([]model.Brand, error) {
	query := `SELECT id, name, website, locator_url, category, enabled, created_at FROM brands`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list brands")
	}
	defer rows.Close()

	var brands []model.Brand
	for rows.Next() {
		var b model.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.Website, &b.LocatorURL, &b.Category, &b.Enabled, &b.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan brand")
		}
		brands = append(brands, b)
	}
	return brands, eris.Wrap(rows.Err(), "sqlite: list brands")
}

func (s *SQLiteStore) SetLocatorURL(ctx context.Context, brandID, locatorURL string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE brands SET locator_url = ? WHERE id = ?`, locatorURL, brandID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set locator url %s", brandID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrBrandNotFound, "%s", brandID)
	}
	return nil
}

func (s *SQLiteStore) RecordScanRun(ctx context.Context, run model.ScanRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_runs (id, brand_id, status, reason, strategy, locations, added, removed, reactivated, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.BrandID, string(run.Status), run.Reason, run.Strategy,
		run.Locations, run.Added, run.Removed, run.Reactivated, run.StartedAt, run.CompletedAt,
	)
	return eris.Wrap(err, "sqlite: insert scan run")
}

func (s *SQLiteStore) ListScanRuns(ctx context.Context, filter RunFilter) ([]model.ScanRun, error) {
	query := `SELECT id, brand_id, status, reason, strategy, locations, added, removed, reactivated, started_at, completed_at FROM scan_runs WHERE 1=1`
	var args []any

	if filter.BrandID != "" {
		query += ` AND brand_id = ?`
		args = append(args, filter.BrandID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + strconv.Itoa(filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scan runs")
	}
	defer rows.Close()

	var runs []model.ScanRun
	for rows.Next() {
		var r model.ScanRun
		if err := rows.Scan(
			&r.ID, &r.BrandID, &r.Status, &r.Reason, &r.Strategy,
			&r.Locations, &r.Added, &r.Removed, &r.Reactivated, &r.StartedAt, &r.CompletedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run row")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list scan runs")
}

func (s *SQLiteStore) ActiveCountByBrand(ctx context.Context) ([]model.BrandAggregate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT brand_id, count(*) FROM locations WHERE is_active = 1 GROUP BY brand_id ORDER BY brand_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: active count by brand")
	}
	defer rows.Close()

	var aggs []model.BrandAggregate
	for rows.Next() {
		var a model.BrandAggregate
		if err := rows.Scan(&a.BrandID, &a.ActiveCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan brand aggregate")
		}
		aggs = append(aggs, a)
	}
	return aggs, eris.Wrap(rows.Err(), "sqlite: active count by brand")
}

func (s *SQLiteStore) ActiveCountByState(ctx context.Context, brandID string) ([]model.StateAggregate, error) {
	query := `SELECT state, count(*) FROM locations WHERE is_active = 1`
	var args []any
	if brandID != "" {
		query += ` AND brand_id = ?`
		args = append(args, brandID)
	}
	query += ` GROUP BY state ORDER BY state`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: active count by state")
	}
	defer rows.Close()

	var aggs []model.StateAggregate
	for rows.Next() {
		var a model.StateAggregate
		if err := rows.Scan(&a.State, &a.ActiveCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan state aggregate")
		}
		aggs = append(aggs, a)
	}
	return aggs, eris.Wrap(rows.Err(), "sqlite: active count by state")
}
