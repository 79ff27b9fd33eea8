// Package locator detects which third-party store-locator widget a brand's
// "where to buy" page embeds and extracts its locations. Each supported
// widget format is a Strategy; the Cascade tries them in a fixed priority
// order and adopts the first non-empty result.
package locator

import "github.com/rotisserie/eris"

// Strategy identifies one store-locator widget format.
type Strategy string

const (
	StrategyStockist       Strategy = "stockist"
	StrategyStoreRocket    Strategy = "storerocket"
	StrategyStorepoint     Strategy = "storepoint"
	StrategyStoremapper    Strategy = "storemapper"
	StrategyCloseby        Strategy = "closeby"
	StrategyDestini        Strategy = "destini"
	StrategyMetaLocator    Strategy = "metalocator"
	StrategyPriceSpider    Strategy = "pricespider"
	StrategyWPStoreLocator Strategy = "wpstorelocator"
	StrategyLocally        Strategy = "locally"
	StrategyJSONLD         Strategy = "jsonld"
	StrategyEmbeddedJSON   Strategy = "embeddedjson"
	StrategyMicrodata      Strategy = "microdata"
)

// CascadeOrder is the fixed attempt order: dedicated provider APIs first
// (most specific signals, highest confidence), paced sweeps next, generic
// static-parse fallbacks last. Reordering changes which strategy wins a
// page and is a functional change, guarded by tests.
var CascadeOrder = []Strategy{
	StrategyStockist,
	StrategyStoreRocket,
	StrategyStorepoint,
	StrategyStoremapper,
	StrategyCloseby,
	StrategyDestini,
	StrategyMetaLocator,
	StrategyPriceSpider,
	StrategyWPStoreLocator,
	StrategyLocally,
	StrategyJSONLD,
	StrategyEmbeddedJSON,
	StrategyMicrodata,
}

// HighConfidence reports whether the strategy is backed by a dedicated,
// queryable provider API. Low-confidence strategies (static parses with no
// provider guarantee) face extra trust-gate thresholds before persistence.
func (s Strategy) HighConfidence() bool {
	switch s {
	case StrategyJSONLD, StrategyEmbeddedJSON, StrategyMicrodata:
		return false
	default:
		return true
	}
}

// Sweep reports whether the strategy accumulates results across many
// paced query points. Adjacent sweep points see the same store twice, so
// sweep results need coordinate dedupe; a single-call provider returns
// each store once, and collapsing coincident coordinates there would
// merge distinct stores in the same shopping center.
func (s Strategy) Sweep() bool {
	switch s {
	case StrategyPriceSpider, StrategyWPStoreLocator, StrategyLocally:
		return true
	default:
		return false
	}
}

// ParseStrategy validates a strategy name from config or storage.
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range CascadeOrder {
		if string(s) == name {
			return s, nil
		}
	}
	return "", eris.Errorf("locator: unknown strategy %q", name)
}
