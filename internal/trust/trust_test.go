package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shelfwatch/shelfwatch/internal/locator"
	"github.com/shelfwatch/shelfwatch/internal/model"
)

var gate = Gate{MinLocations: 5, MinStateRatio: 0.6}

func withStates(states ...string) []model.RawLocation {
	locs := make([]model.RawLocation, len(states))
	for i, s := range states {
		locs[i] = model.RawLocation{Name: "store", State: s}
	}
	return locs
}

func TestEmptyAlwaysFails(t *testing.T) {
	for _, s := range locator.CascadeOrder {
		d := gate.Evaluate(s, nil)
		assert.False(t, d.Passed, "strategy %s", s)
		assert.Equal(t, "empty", d.Reason, "strategy %s", s)
	}
}

func TestHighConfidencePassesOnAnyNonEmptySet(t *testing.T) {
	// A single provider-API result is enough: the provider vouches for
	// the data being location data.
	d := gate.Evaluate(locator.StrategyStockist, withStates("zz"))
	assert.True(t, d.Passed)
	assert.Equal(t, "ok", d.Reason)
}

func TestStaticStrategyNeedsMinimumCount(t *testing.T) {
	d := gate.Evaluate(locator.StrategyJSONLD, withStates("TX", "TX", "CA", "NY"))
	assert.False(t, d.Passed)
	assert.Equal(t, "too_few", d.Reason)
}

func TestStaticStrategyNeedsStateRatio(t *testing.T) {
	// 2 of 5 recognized: below the 0.6 floor.
	d := gate.Evaluate(locator.StrategyEmbeddedJSON,
		withStates("TX", "CA", "Bavaria", "Ontario", ""))
	assert.False(t, d.Passed)
	assert.Equal(t, "low_state_ratio", d.Reason)
}

func TestStaticStrategyPassesAtThresholds(t *testing.T) {
	// Exactly 5 locations, exactly 3/5 recognized.
	d := gate.Evaluate(locator.StrategyMicrodata,
		withStates("TX", "ca", " ny ", "Ontario", ""))
	assert.True(t, d.Passed)
	assert.Equal(t, "ok", d.Reason)
}

func TestValidState(t *testing.T) {
	assert.True(t, ValidState("TX"))
	assert.True(t, ValidState("tx"))
	assert.True(t, ValidState(" dc "))
	assert.True(t, ValidState("PR"))
	assert.False(t, ValidState("Texas"))
	assert.False(t, ValidState("ZZ"))
	assert.False(t, ValidState(""))
}
