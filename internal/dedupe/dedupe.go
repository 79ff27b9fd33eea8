// Package dedupe collapses sweep results that saw the same store from
// multiple query points.
package dedupe

import (
	"fmt"

	"github.com/shelfwatch/shelfwatch/internal/model"
)

// Fingerprint renders a coordinate pair at 4-decimal precision, about
// 11 meters of latitude. Two stores closer than that are treated as one
// physical location; a fifth decimal would let GPS jitter in provider
// data split a single store into several.
func Fingerprint(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}

// ByCoordinate removes later duplicates of the same coordinate
// fingerprint, preserving input order. The first occurrence wins, so a
// higher-priority strategy's record survives a cross-strategy merge.
// Records without coordinates cannot be compared this way and are all
// kept; address-level dedupe happens downstream via the location key.
func ByCoordinate(locs []model.RawLocation) []model.RawLocation {
	seen := make(map[string]bool, len(locs))
	out := locs[:0:0]
	for _, loc := range locs {
		if !loc.HasCoordinates() {
			out = append(out, loc)
			continue
		}
		fp := Fingerprint(*loc.Latitude, *loc.Longitude)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, loc)
	}
	return out
}
