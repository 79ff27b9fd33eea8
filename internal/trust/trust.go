// Package trust gates extraction results before they reach persistence.
// The ratchet only moves one way on bad data: a scan that fails the gate
// leaves the stored territory untouched, because deactivating a brand's
// footprint over a misparse is far more expensive than serving one
// stale snapshot.
package trust

import (
	"strings"

	"github.com/shelfwatch/shelfwatch/internal/locator"
	"github.com/shelfwatch/shelfwatch/internal/model"
)

// usStates covers the 50 states plus DC and the inhabited territories.
var usStates = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true,
	"CO": true, "CT": true, "DE": true, "FL": true, "GA": true,
	"HI": true, "ID": true, "IL": true, "IN": true, "IA": true,
	"KS": true, "KY": true, "LA": true, "ME": true, "MD": true,
	"MA": true, "MI": true, "MN": true, "MS": true, "MO": true,
	"MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true,
	"OK": true, "OR": true, "PA": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true,
	"VA": true, "WA": true, "WV": true, "WI": true, "WY": true,
	"DC": true, "PR": true, "VI": true, "GU": true, "AS": true,
	"MP": true,
}

// ValidState reports whether s is a recognized two-letter US state or
// territory code, case-insensitively.
func ValidState(s string) bool {
	return usStates[strings.ToUpper(strings.TrimSpace(s))]
}

// Gate holds the thresholds applied to low-confidence strategies.
type Gate struct {
	MinLocations  int
	MinStateRatio float64
}

// Evaluate decides whether a brand's extracted result set is plausible
// enough to persist. An empty set always fails, whatever the strategy:
// a widget that answered with zero stores is indistinguishable from a
// broken extractor, and persisting it would deactivate the brand's
// entire territory.
//
// High-confidence strategies pass on any non-empty set. Static parses
// additionally need enough locations and a believable share of
// recognized state codes, since page markup carries no provider
// guarantee of being location data at all.
func (g Gate) Evaluate(strategy locator.Strategy, locs []model.RawLocation) model.TrustDecision {
	if len(locs) == 0 {
		return model.TrustDecision{Passed: false, Reason: "empty"}
	}
	if strategy.HighConfidence() {
		return model.TrustDecision{Passed: true, Reason: "ok"}
	}

	if len(locs) < g.MinLocations {
		return model.TrustDecision{Passed: false, Reason: "too_few"}
	}

	valid := 0
	for _, loc := range locs {
		if ValidState(loc.State) {
			valid++
		}
	}
	if float64(valid)/float64(len(locs)) < g.MinStateRatio {
		return model.TrustDecision{Passed: false, Reason: "low_state_ratio"}
	}

	return model.TrustDecision{Passed: true, Reason: "ok"}
}
