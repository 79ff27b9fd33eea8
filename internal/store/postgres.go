package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/shelfwatch/shelfwatch/internal/db"
	"github.com/shelfwatch/shelfwatch/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot-path store operations.
var preparedStatements = map[string]string{
	"location_states":    `SELECT location_key, is_active FROM locations WHERE brand_id = $1`,
	"deactivate_missing": `UPDATE locations SET is_active = FALSE, updated_at = now() WHERE brand_id = $1 AND is_active AND location_key <> ALL($2)`,
	"insert_scan_run":    `INSERT INTO scan_runs (id, brand_id, status, reason, strategy, locations, added, removed, started_at, completed_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
	"get_brand":          `SELECT id, name, website, locator_url, category, enabled, created_at FROM brands WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., the retailer feed importer).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS brands (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	website     TEXT NOT NULL,
	locator_url TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	enabled     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS locations (
	id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	location_key  TEXT NOT NULL UNIQUE,
	brand_id      TEXT NOT NULL REFERENCES brands(id),
	name          TEXT NOT NULL,
	address       TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL DEFAULT '',
	state         TEXT NOT NULL DEFAULT '',
	zip           TEXT NOT NULL DEFAULT '',
	country       TEXT NOT NULL DEFAULT '',
	latitude      DOUBLE PRECISION,
	longitude     DOUBLE PRECISION,
	phone         TEXT NOT NULL DEFAULT '',
	external_id   TEXT NOT NULL DEFAULT '',
	strategy      TEXT NOT NULL DEFAULT '',
	first_seen_at TIMESTAMPTZ NOT NULL,
	last_seen_at  TIMESTAMPTZ NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_locations_brand ON locations(brand_id);
CREATE INDEX IF NOT EXISTS idx_locations_brand_active ON locations(brand_id, is_active);
CREATE INDEX IF NOT EXISTS idx_locations_state ON locations(state) WHERE is_active;
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
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_scan_runs_brand ON scan_runs(brand_id, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_scan_runs_status ON scan_runs(status);

CREATE TABLE IF NOT EXISTS feed_locations (
	id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	retailer    TEXT NOT NULL,
	store_id    TEXT NOT NULL,
	name        TEXT NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL DEFAULT '',
	zip         TEXT NOT NULL DEFAULT '',
	latitude    DOUBLE PRECISION,
	longitude   DOUBLE PRECISION,
	imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_feed_locations_retailer ON feed_locations(retailer);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// locationColumns matches the locations table minus the generated id
// and updated_at; the order must agree with locationRow.
var locationColumns = []string{
	"location_key", "brand_id", "name", "address", "city", "state", "zip",
	"country", "latitude", "longitude", "phone", "external_id", "strategy",
	"first_seen_at", "last_seen_at", "is_active",
}

// locationUpdateCols excludes first_seen_at: the original sighting date
// survives every refresh.
var locationUpdateCols = []string{
	"brand_id", "name", "address", "city", "state", "zip", "country",
	"latitude", "longitude", "phone", "external_id", "strategy",
	"last_seen_at", "is_active",
}

func locationRow(loc model.PersistedLocation) []any {
	return []any{
		loc.LocationKey, loc.BrandID, loc.Name, loc.Address, loc.City,
		loc.State, loc.Zip, loc.Country, loc.Latitude, loc.Longitude,
		loc.Phone, loc.ExternalID, loc.Strategy,
		loc.FirstSeenAt, loc.LastSeenAt, loc.IsActive,
	}
}

func (s *PostgresStore) UpsertLocations(ctx context.Context, locs []model.PersistedLocation) error {
	rows := make([][]any, len(locs))
	for i, loc := range locs {
		rows[i] = locationRow(loc)
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "locations",
		Columns:      locationColumns,
		ConflictKeys: []string{"location_key"},
		UpdateCols:   locationUpdateCols,
	}, rows)
	return eris.Wrap(err, "postgres: upsert locations")
}

func (s *PostgresStore) LocationStates(ctx context.Context, brandID string) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT location_key, is_active FROM locations WHERE brand_id = $1`,
		brandID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: location states %s", brandID)
	}
	defer rows.Close()

	states := make(map[string]bool)
	for rows.Next() {
		var key string
		var active bool
		if err := rows.Scan(&key, &active); err != nil {
			return nil, eris.Wrap(err, "postgres: scan location state")
		}
		states[key] = active
	}
	return states, eris.Wrap(rows.Err(), "postgres: location states")
}

func (s *PostgresStore) DeactivateMissing(ctx context.Context, brandID string, keys []string) (int64, error) {
	if keys == nil {
		keys = []string{}
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE locations SET is_active = FALSE, updated_at = now() WHERE brand_id = $1 AND is_active AND location_key <> ALL($2)`,
		brandID, keys,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: deactivate missing %s", brandID)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListLocations(ctx context.Context, filter LocationFilter) ([]model.PersistedLocation, error) {
	query := `SELECT id, location_key, brand_id, name, address, city, state, zip, country,
		latitude, longitude, phone, external_id, strategy, first_seen_at, last_seen_at, is_active
		FROM locations WHERE 1=1`
	var args []any

	if filter.BrandID != "" {
		args = append(args, filter.BrandID)
		query += ` AND brand_id = $` + strconv.Itoa(len(args))
	}
	if filter.State != "" {
		args = append(args, filter.State)
		query += ` AND state = $` + strconv.Itoa(len(args))
	}
	if filter.ActiveOnly {
		query += ` AND is_active`
	}
	if filter.FirstSeenAfter != nil {
		args = append(args, *filter.FirstSeenAfter)
		query += ` AND first_seen_at >= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY brand_id, state, city, name`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list locations")
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
			return nil, eris.Wrap(err, "postgres: scan location")
		}
		locs = append(locs, l)
	}
	return locs, eris.Wrap(rows.Err(), "postgres: list locations")
}

func (s *PostgresStore) UpsertBrands(ctx context.Context, brands []model.Brand) error {
	rows := make([][]any, len(brands))
	for i, b := range brands {
		created := b.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		rows[i] = []any{b.ID, b.Name, b.Website, b.LocatorURL, b.Category, b.Enabled, created}
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "brands",
		Columns:      []string{"id", "name", "website", "locator_url", "category", "enabled", "created_at"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"name", "website", "locator_url", "category", "enabled"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert brands")
}

func (s *PostgresStore) GetBrand(ctx context.Context, id string) (*model.Brand, error) {
	var b model.Brand
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, website, locator_url, category, enabled, created_at FROM brands WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.Name, &b.Website, &b.LocatorURL, &b.Category, &b.Enabled, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrBrandNotFound, "%s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get brand %s", id)
	}
	return &b, nil
}

func (s *PostgresStore) ListBrands(ctx context.Context, enabledOnly bool) ([]model.Brand, error) {
	query := `SELECT id, name, website, locator_url, category, enabled, created_at FROM brands`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list brands")
	}
	defer rows.Close()

	var brands []model.Brand
	for rows.Next() {
		var b model.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.Website, &b.LocatorURL, &b.Category, &b.Enabled, &b.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan brand")
		}
		brands = append(brands, b)
	}
	return brands, eris.Wrap(rows.Err(), "postgres: list brands")
}

func (s *PostgresStore) SetLocatorURL(ctx context.Context, brandID, locatorURL string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE brands SET locator_url = $1 WHERE id = $2`,
		locatorURL, brandID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set locator url %s", brandID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrBrandNotFound, "%s", brandID)
	}
	return nil
}

func (s *PostgresStore) RecordScanRun(ctx context.Context, run model.ScanRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scan_runs (id, brand_id, status, reason, strategy, locations, added, removed, reactivated, started_at, completed_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		run.ID, run.BrandID, string(run.Status), run.Reason, run.Strategy,
		run.Locations, run.Added, run.Removed, run.Reactivated, run.StartedAt, run.CompletedAt,
	)
	return eris.Wrap(err, "postgres: insert scan run")
}

func (s *PostgresStore) ListScanRuns(ctx context.Context, filter RunFilter) ([]model.ScanRun, error) {
	query := `SELECT id, brand_id, status, reason, strategy, locations, added, removed, reactivated, started_at, completed_at FROM scan_runs WHERE 1=1`
	var args []any

	if filter.BrandID != "" {
		args = append(args, filter.BrandID)
		query += ` AND brand_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY started_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scan runs")
	}
	defer rows.Close()

	var runs []model.ScanRun
	for rows.Next() {
		var r model.ScanRun
		if err := rows.Scan(
			&r.ID, &r.BrandID, &r.Status, &r.Reason, &r.Strategy,
			&r.Locations, &r.Added, &r.Removed, &r.Reactivated, &r.StartedAt, &r.CompletedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run row")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list scan runs")
}

func (s *PostgresStore) ActiveCountByBrand(ctx context.Context) ([]model.BrandAggregate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT brand_id, count(*) FROM locations WHERE is_active GROUP BY brand_id ORDER BY brand_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: active count by brand")
	}
	defer rows.Close()

	var aggs []model.BrandAggregate
	for rows.Next() {
		var a model.BrandAggregate
		if err := rows.Scan(&a.BrandID, &a.ActiveCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan brand aggregate")
		}
		aggs = append(aggs, a)
	}
	return aggs, eris.Wrap(rows.Err(), "postgres: active count by brand")
}

func (s *PostgresStore) ActiveCountByState(ctx context.Context, brandID string) ([]model.StateAggregate, error) {
	query := `SELECT state, count(*) FROM locations WHERE is_active`
	var args []any
	if brandID != "" {
		args = append(args, brandID)
		query += ` AND brand_id = $1`
	}
	query += ` GROUP BY state ORDER BY state`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: active count by state")
	}
	defer rows.Close()

	var aggs []model.StateAggregate
	for rows.Next() {
		var a model.StateAggregate
		if err := rows.Scan(&a.State, &a.ActiveCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan state aggregate")
		}
		aggs = append(aggs, a)
	}
	return aggs, eris.Wrap(rows.Err(), "postgres: active count by state")
}
