// Package engine orchestrates batch scans: resolve each brand's locator
// page, run the extraction cascade, deduplicate sweep results, gate them,
// and reconcile the territory, one brand never failing the batch.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shelfwatch/shelfwatch/internal/dedupe"
	"github.com/shelfwatch/shelfwatch/internal/locator"
	"github.com/shelfwatch/shelfwatch/internal/model"
	"github.com/shelfwatch/shelfwatch/internal/store"
	"github.com/shelfwatch/shelfwatch/internal/territory"
	"github.com/shelfwatch/shelfwatch/internal/trust"
)

// discoveryPaths are probed in order, appended to the brand website,
// when no locator URL is on file.
var discoveryPaths = []string{
	"/store-locator",
	"/find-a-store",
	"/where-to-buy",
	"/stores",
	"/locations",
}

// scanner runs the strategy cascade against one page URL.
type scanner interface {
	Run(ctx context.Context, pageURL string) (*locator.Result, error)
}

// Engine drives scans end to end.
type Engine struct {
	store         store.Store
	cascade       scanner
	tracker       *territory.Tracker
	gate          trust.Gate
	maxConcurrent int
	now           func() time.Time
}

// Options configures an Engine.
type Options struct {
	Gate          trust.Gate
	MaxConcurrent int
}

func New(st store.Store, cascade *locator.Cascade, opts Options) *Engine {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 5
	}
	return &Engine{
		store:         st,
		cascade:       cascade,
		tracker:       territory.NewTracker(st),
		gate:          opts.Gate,
		maxConcurrent: opts.MaxConcurrent,
		now:           time.Now,
	}
}

// ScanBrand scans one brand and returns its outcome. The outcome status
// is always set; errors are folded into it rather than returned, so the
// batch caller treats every brand uniformly.
func (e *Engine) ScanBrand(ctx context.Context, brand model.Brand) model.ScanOutcome {
	start := e.now()
	outcome := model.ScanOutcome{BrandID: brand.ID}
	logger := zap.L().With(zap.String("brand_id", brand.ID))

	res, pageURL, err := e.resolve(ctx, brand)
	switch {
	case err == nil:
	case errors.Is(err, locator.ErrNoStrategyMatched):
		outcome.Status = model.ScanNoLocator
		outcome.Reason = "no strategy matched"
		outcome.Elapsed = e.now().Sub(start)
		logger.Info("no locator found", zap.String("website", brand.Website))
		return outcome
	default:
		outcome.Status = model.ScanFailed
		outcome.Reason = "fetch failed"
		outcome.Elapsed = e.now().Sub(start)
		logger.Warn("scan failed", zap.Error(err))
		return outcome
	}

	// A discovered locator URL is remembered for the next run.
	if brand.LocatorURL == "" && pageURL != "" {
		if err := e.store.SetLocatorURL(ctx, brand.ID, pageURL); err != nil {
			logger.Warn("failed to persist discovered locator url", zap.Error(err))
		} else {
			logger.Info("locator url discovered", zap.String("locator_url", pageURL))
		}
	}

	outcome.Strategy = string(res.Strategy)
	locs := res.Locations
	if res.Strategy.Sweep() {
		locs = dedupe.ByCoordinate(locs)
	}
	outcome.Locations = len(locs)

	decision := e.gate.Evaluate(res.Strategy, locs)
	if !decision.Passed {
		outcome.Status = model.ScanFailed
		outcome.Reason = "trust gate: " + decision.Reason
		outcome.Elapsed = e.now().Sub(start)
		logger.Warn("trust gate rejected results",
			zap.String("strategy", string(res.Strategy)),
			zap.Int("locations", len(locs)),
			zap.String("reason", decision.Reason),
		)
		return outcome
	}

	changes, err := e.tracker.Apply(ctx, brand.ID, locs)
	if err != nil {
		outcome.Status = model.ScanFailed
		outcome.Reason = "persist failed"
		outcome.Elapsed = e.now().Sub(start)
		logger.Error("territory update failed", zap.Error(err))
		return outcome
	}

	outcome.Status = model.ScanSucceeded
	outcome.Added = changes.Added
	outcome.Removed = changes.Removed
	outcome.Reactivated = changes.Reactivated
	outcome.Elapsed = e.now().Sub(start)
	return outcome
}

// resolve finds a page the cascade matches: the configured locator URL
// if set, otherwise the website root and the usual locator paths in
// order. Returns the winning result and the page it came from.
func (e *Engine) resolve(ctx context.Context, brand model.Brand) (*locator.Result, string, error) {
	var candidates []string
	if brand.LocatorURL != "" {
		candidates = []string{brand.LocatorURL}
	} else {
		base := strings.TrimRight(brand.Website, "/")
		candidates = append(candidates, base)
		for _, p := range discoveryPaths {
			candidates = append(candidates, base+p)
		}
	}

	var lastErr error
	matched := false
	for _, u := range candidates {
		res, err := e.cascade.Run(ctx, u)
		if err == nil {
			return res, u, nil
		}
		if errors.Is(err, locator.ErrNoStrategyMatched) {
			matched = true
			continue
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		// Probe candidates that 404 are expected; keep going.
		lastErr = err
	}

	if matched || lastErr == nil {
		return nil, "", locator.ErrNoStrategyMatched
	}
	return nil, "", lastErr
}

// ScanAll fans the roster out across a bounded worker group. A brand
// failing in any way yields a failed outcome, never a batch abort. Each
// outcome is recorded in the scan run log before the batch returns;
// outcomes come back in roster order.
func (e *Engine) ScanAll(ctx context.Context, brands []model.Brand) []model.ScanOutcome {
	outcomes := make([]model.ScanOutcome, len(brands))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)

	var mu sync.Mutex
	for i, brand := range brands {
		g.Go(func() error {
			outcome := e.ScanBrand(gCtx, brand)

			completed := e.now().UTC()
			started := completed.Add(-outcome.Elapsed)
			run := model.ScanRun{
				BrandID:     outcome.BrandID,
				Status:      outcome.Status,
				Reason:      outcome.Reason,
				Strategy:    outcome.Strategy,
				Locations:   outcome.Locations,
				Added:       outcome.Added,
				Removed:     outcome.Removed,
				Reactivated: outcome.Reactivated,
				StartedAt:   started,
				CompletedAt: &completed,
			}
			if err := e.store.RecordScanRun(gCtx, run); err != nil {
				zap.L().Warn("failed to record scan run",
					zap.String("brand_id", outcome.BrandID),
					zap.Error(err),
				)
			}

			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
