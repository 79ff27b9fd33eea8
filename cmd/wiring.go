package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/shelfwatch/shelfwatch/internal/engine"
	"github.com/shelfwatch/shelfwatch/internal/fetcher"
	"github.com/shelfwatch/shelfwatch/internal/geo"
	"github.com/shelfwatch/shelfwatch/internal/locator"
	"github.com/shelfwatch/shelfwatch/internal/store"
	"github.com/shelfwatch/shelfwatch/internal/trust"
)

// openStore builds the configured store backend. Callers own Close.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// openPostgres is for subsystems that need the raw pgx pool, not just
// the Store interface.
func openPostgres(ctx context.Context) (*store.PostgresStore, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	if cfg.Store.Driver != "postgres" {
		return nil, eris.Errorf("this command requires the postgres driver, store.driver is %q", cfg.Store.Driver)
	}
	return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

func newFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
	})
}

// buildEngine wires the fetcher, the strategy cascade, and the trust
// gate into a scan engine over the given store. A region shapefile, if
// configured, replaces the contiguous-US sweep grid with one clipped to
// the territory boundary.
func buildEngine(st store.Store) (*engine.Engine, error) {
	env := locator.DefaultEnv(newFetcher(), cfg.Scan.GridStepDegrees)
	env.Pause = locator.PauseBetween(
		time.Duration(cfg.Scan.SweepDelayMinMS)*time.Millisecond,
		time.Duration(cfg.Scan.SweepDelayMaxMS)*time.Millisecond,
	)

	if path := cfg.Scan.RegionShapefile; path != "" {
		bounds, err := geo.BoundsFromShapefile(path, cfg.Scan.GridStepDegrees)
		if err != nil {
			return nil, err
		}
		polys, err := geo.RegionPolygons(path)
		if err != nil {
			return nil, err
		}
		env.Grid = geo.FilterToRegion(geo.GenerateGrid(bounds), polys)
	}

	return engine.New(st, locator.NewCascade(env), engine.Options{
		Gate: trust.Gate{
			MinLocations:  cfg.Trust.MinLocations,
			MinStateRatio: cfg.Trust.MinStateRatio,
		},
		MaxConcurrent: cfg.Scan.MaxConcurrentBrands,
	}), nil
}
