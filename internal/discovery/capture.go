// Package discovery classifies captured store-locator network traffic
// into provider families. It is an offline aid for onboarding brands
// whose locator the scan cascade does not yet recognize: a developer
// records the XHR calls a locator page makes, and discovery maps each
// call to a strategy plus the endpoint worth probing.
package discovery

import (
	"encoding/json"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shelfwatch/shelfwatch/internal/locator"
)

// CapturedCall is one recorded request from a locator page, as exported
// from browser devtools. Body holds a truncated response snippet.
type CapturedCall struct {
	BrandID string `json:"brand_id"`
	Method  string `json:"method"`
	URL     string `json:"url"`
	Status  int    `json:"status"`
	Body    string `json:"body,omitempty"`
}

// Suggestion is the classification result for one captured call.
type Suggestion struct {
	Call       CapturedCall
	Strategy   locator.Strategy
	Endpoint   string
	Confidence float64
	Source     string // "host_rule" or "advisor"
}

// LoadCaptures reads a capture file: JSON lines, one CapturedCall per
// line. Blank lines are skipped, malformed lines fail the load.
func LoadCaptures(path string) ([]CapturedCall, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: read capture file")
	}

	var calls []CapturedCall
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var call CapturedCall
		if err := json.Unmarshal([]byte(line), &call); err != nil {
			return nil, eris.Wrapf(err, "discovery: capture line %d", i+1)
		}
		if call.URL == "" {
			return nil, eris.Errorf("discovery: capture line %d: missing url", i+1)
		}
		calls = append(calls, call)
	}
	if len(calls) == 0 {
		return nil, eris.New("discovery: capture file has no calls")
	}
	return calls, nil
}

// hostRules maps API host substrings to provider families. Checked
// before the advisor so calls to known providers never cost a token.
var hostRules = map[string]locator.Strategy{
	"stockist.co":         locator.StrategyStockist,
	"storerocket.io":      locator.StrategyStoreRocket,
	"storepoint.co":       locator.StrategyStorepoint,
	"storemapper.co":      locator.StrategyStoremapper,
	"closeby.co":          locator.StrategyCloseby,
	"destinilocators.com": locator.StrategyDestini,
	"metalocator.com":     locator.StrategyMetaLocator,
	"pricespider.com":     locator.StrategyPriceSpider,
	"locally.com":         locator.StrategyLocally,
}

// classifyByHost matches a captured call against the known provider
// hosts. WordPress locators have no dedicated host, so admin-ajax calls
// carrying a store_search action are matched by path and query instead.
func classifyByHost(call CapturedCall) (*Suggestion, bool) {
	u, err := url.Parse(call.URL)
	if err != nil {
		return nil, false
	}
	host := strings.ToLower(u.Hostname())

	for frag, strat := range hostRules {
		if host == frag || strings.HasSuffix(host, "."+frag) {
			return &Suggestion{
				Call:       call,
				Strategy:   strat,
				Endpoint:   call.URL,
				Confidence: 1.0,
				Source:     "host_rule",
			}, true
		}
	}

	if strings.HasSuffix(u.Path, "/admin-ajax.php") &&
		strings.Contains(strings.ToLower(call.URL+call.Body), "store_search") {
		return &Suggestion{
			Call:       call,
			Strategy:   locator.StrategyWPStoreLocator,
			Endpoint:   call.URL,
			Confidence: 1.0,
			Source:     "host_rule",
		}, true
	}

	return nil, false
}

// Classify runs the deterministic host pass over all calls and splits
// out the remainder for the advisor.
func Classify(calls []CapturedCall) (matched []Suggestion, unmatched []CapturedCall) {
	for _, call := range calls {
		if s, ok := classifyByHost(call); ok {
			matched = append(matched, *s)
			continue
		}
		unmatched = append(unmatched, call)
	}
	zap.L().Info("classified captures by host",
		zap.Int("matched", len(matched)),
		zap.Int("unmatched", len(unmatched)))
	return matched, unmatched
}
