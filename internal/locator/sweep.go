package locator

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/shelfwatch/shelfwatch/internal/dedupe"
	"github.com/shelfwatch/shelfwatch/internal/geo"
	"github.com/shelfwatch/shelfwatch/internal/model"
)

// Sweep pacing bounds. The randomized inter-call delay is what keeps
// multi-point sweeps under upstream rate-limit radar; parallelizing calls
// within one sweep would defeat it, so points run strictly sequentially.
const (
	sweepDelayMin = 350 * time.Millisecond
	sweepDelayMax = 750 * time.Millisecond
)

func randFloat() float64 { return rand.Float64() }

// pause returns the env's injected pause or the default randomized delay.
func (e *Env) pause() func(ctx context.Context) error {
	if e.Pause != nil {
		return e.Pause
	}
	return defaultPause(sweepDelayMin, sweepDelayMax)
}

// sweep queries each point in order, pacing between calls, accumulating
// results. resultCap > 0 models a provider that stops returning new
// stores after accumulating that many deduplicated results; the sweep
// short-circuits once the provider reports the cap is reached. Point
// ordering therefore decides which regions get covered.
//
// Per-point failures are logged and skipped: one dead grid cell should
// not lose the rest of the country.
func (e *Env) sweep(
	ctx context.Context,
	strategy Strategy,
	points []geo.GridPoint,
	resultCap int,
	queryPoint func(ctx context.Context, pt geo.GridPoint) ([]model.RawLocation, error),
) ([]model.RawLocation, error) {
	log := zap.L().With(zap.String("strategy", string(strategy)))
	pause := e.pause()

	// The provider's cap counts distinct stores, not raw rows; adjacent
	// points returning the same store must not spend it.
	seen := make(map[string]bool)
	distinct := 0

	var all []model.RawLocation
	for i, pt := range points {
		if i > 0 {
			if err := pause(ctx); err != nil {
				return all, err
			}
		}

		locs, err := queryPoint(ctx, pt)
		if err != nil {
			log.Debug("sweep point failed",
				zap.Float64("lat", pt.Lat),
				zap.Float64("lng", pt.Lng),
				zap.Error(err),
			)
			continue
		}
		all = append(all, locs...)

		for _, loc := range locs {
			if !loc.HasCoordinates() {
				distinct++
				continue
			}
			fp := dedupe.Fingerprint(*loc.Latitude, *loc.Longitude)
			if !seen[fp] {
				seen[fp] = true
				distinct++
			}
		}

		if resultCap > 0 && distinct >= resultCap {
			log.Debug("sweep reached provider result cap",
				zap.Int("cap", resultCap),
				zap.Int("points_queried", i+1),
				zap.Int("points_total", len(points)),
			)
			break
		}
	}
	return all, nil
}

// strategicGridPoints flattens the strategic list for sweeping.
func strategicGridPoints(points []geo.StrategicPoint) []geo.GridPoint {
	out := make([]geo.GridPoint, len(points))
	for i, p := range points {
		out[i] = p.GridPoint
	}
	return out
}
