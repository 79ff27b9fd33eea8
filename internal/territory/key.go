// Package territory tracks each brand's retail footprint over time:
// which stores carry it, which appeared, and which dropped off.
package territory

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"

	"github.com/shelfwatch/shelfwatch/internal/model"
)

var foldCaser = cases.Fold()

// normalize folds case and collapses whitespace so cosmetic provider
// differences ("Main St" vs "MAIN  ST") don't register as churn.
func normalize(s string) string {
	return foldCaser.String(strings.Join(strings.Fields(s), " "))
}

// Key derives the stable identity of one store carrying one brand. It
// deliberately excludes coordinates and street address: providers jitter
// those between scans, while name+city+state+zip stays put. Changing the
// key derivation orphans every stored location, so it is effectively
// frozen.
func Key(brandID string, loc model.RawLocation) string {
	parts := []string{
		normalize(brandID),
		normalize(loc.Name),
		normalize(loc.City),
		normalize(loc.State),
		normalize(loc.Zip),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
