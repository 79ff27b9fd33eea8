package locator

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/fetcher"
	"github.com/shelfwatch/shelfwatch/internal/geo"
	"github.com/shelfwatch/shelfwatch/internal/model"
)

// Extractor is the detection-plus-retrieval logic for one widget format.
type Extractor interface {
	// Name returns the strategy identifier.
	Name() Strategy

	// Detect inspects a fetched page and returns the provider-native
	// identifier (account tag, map id, site origin, or the page itself
	// encoded as needed) when the format's signal is present.
	Detect(page *PageContext) (string, bool)

	// Retrieve fetches the location dataset for a detected identifier.
	// The detected page is passed for static-parse strategies.
	Retrieve(ctx context.Context, ident string, page *PageContext) ([]model.RawLocation, error)
}

// subPageProber is implemented by extractors whose widget commonly lives
// on a linked sub-page rather than the landing page itself.
type subPageProber interface {
	ProbesSubPages() bool
}

// Env carries the shared dependencies extractors need. One Env (and its
// fetcher's connection pool) serves every brand in a run.
type Env struct {
	Fetcher   fetcher.Fetcher
	Grid      []geo.GridPoint
	Strategic []geo.StrategicPoint

	// Pause is called between sweep points; nil selects the default
	// randomized 350-750ms delay. Tests inject a no-op.
	Pause func(ctx context.Context) error
}

// DefaultEnv builds an Env with the contiguous-US grid and the strategic
// point list.
func DefaultEnv(f fetcher.Fetcher, gridStep float64) *Env {
	cfg := geo.ContiguousUS
	if gridStep > 0 {
		cfg.StepDegrees = gridStep
	}
	return &Env{
		Fetcher:   f,
		Grid:      geo.GenerateGrid(cfg),
		Strategic: geo.StrategicPoints(),
	}
}

// newExtractor constructs the extractor for a strategy. The switch is
// exhaustive over the closed strategy set: adding a fourteenth format
// means adding a constant, a case here, and a CascadeOrder slot.
func newExtractor(s Strategy, env *Env) Extractor {
	switch s {
	case StrategyStockist:
		return &stockistExtractor{env: env}
	case StrategyStoreRocket:
		return &storeRocketExtractor{env: env}
	case StrategyStorepoint:
		return &storepointExtractor{env: env}
	case StrategyStoremapper:
		return &storemapperExtractor{env: env}
	case StrategyCloseby:
		return &closebyExtractor{env: env}
	case StrategyDestini:
		return &destiniExtractor{env: env}
	case StrategyMetaLocator:
		return &metaLocatorExtractor{env: env}
	case StrategyPriceSpider:
		return &priceSpiderExtractor{env: env}
	case StrategyWPStoreLocator:
		return &wpStoreLocatorExtractor{env: env}
	case StrategyLocally:
		return &locallyExtractor{env: env}
	case StrategyJSONLD:
		return &jsonLDExtractor{}
	case StrategyEmbeddedJSON:
		return &embeddedJSONExtractor{}
	case StrategyMicrodata:
		return &microdataExtractor{}
	default:
		panic("locator: unhandled strategy " + string(s))
	}
}

// asString coerces a decoded JSON value to a trimmed string.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// asFloat coerces a decoded JSON value to a float pointer. Providers are
// split between numeric and string coordinates.
func asFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// firstString returns the first non-empty coerced string among keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := asString(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// firstFloat returns the first present coerced float among keys.
func firstFloat(m map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		if f := asFloat(m[k]); f != nil {
			return f
		}
	}
	return nil
}

// splitAddress best-effort parses "street, city, ST 78701" style single
// strings some providers return. Unparsed remainders stay in the street
// field; we never guess.
func splitAddress(full string) (street, city, state, zip string) {
	parts := strings.Split(full, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch len(parts) {
	case 0:
		return "", "", "", ""
	case 1:
		return parts[0], "", "", ""
	case 2:
		return parts[0], parts[1], "", ""
	}

	street = strings.Join(parts[:len(parts)-2], ", ")
	city = parts[len(parts)-2]

	last := parts[len(parts)-1]
	fields := strings.Fields(last)
	if len(fields) >= 1 {
		state = fields[0]
	}
	if len(fields) >= 2 {
		zip = fields[1]
	}
	return street, city, state, zip
}

// PauseBetween builds a pause function with a custom delay window, for
// callers that tune sweep pacing from config.
func PauseBetween(minDelay, maxDelay time.Duration) func(ctx context.Context) error {
	return defaultPause(minDelay, maxDelay)
}

// defaultPause sleeps a randomized interval between sweep calls so paced
// sweeps don't trip upstream rate limiting.
func defaultPause(minDelay, maxDelay time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		d := minDelay
		if maxDelay > minDelay {
			d += time.Duration(int64(float64(maxDelay-minDelay) * randFloat()))
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
}
