package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwatch/shelfwatch/internal/locator"
)

func writeCaptures(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "captures.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func TestLoadCaptures(t *testing.T) {
	path := writeCaptures(t, `
{"brand_id":"acme","method":"GET","url":"https://stockist.co/api/v1/u123/widget.js","status":200}

{"brand_id":"acme","method":"POST","url":"https://example.com/api/stores","status":200,"body":"[{\"name\":\"Store 1\"}]"}
`)

	calls, err := LoadCaptures(path)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "acme", calls[0].BrandID)
	assert.Equal(t, "https://stockist.co/api/v1/u123/widget.js", calls[0].URL)
	assert.Equal(t, `[{"name":"Store 1"}]`, calls[1].Body)
}

func TestLoadCaptures_MalformedLine(t *testing.T) {
	path := writeCaptures(t, `{"brand_id":"acme","url":"https://stockist.co/x"}
not json`)

	_, err := LoadCaptures(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadCaptures_MissingURL(t *testing.T) {
	path := writeCaptures(t, `{"brand_id":"acme","method":"GET"}`)

	_, err := LoadCaptures(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing url")
}

func TestLoadCaptures_Empty(t *testing.T) {
	path := writeCaptures(t, "\n\n")

	_, err := LoadCaptures(path)
	require.Error(t, err)
}

func TestClassifyByHost(t *testing.T) {
	tests := []struct {
		name string
		call CapturedCall
		want locator.Strategy
	}{
		{
			name: "stockist api host",
			call: CapturedCall{URL: "https://stockist.co/api/v1/u7/locations/search"},
			want: locator.StrategyStockist,
		},
		{
			name: "stockist subdomain",
			call: CapturedCall{URL: "https://api.stockist.co/v1/u7/locations"},
			want: locator.StrategyStockist,
		},
		{
			name: "storerocket",
			call: CapturedCall{URL: "https://storerocket.io/api/user/abc/locations"},
			want: locator.StrategyStoreRocket,
		},
		{
			name: "destini",
			call: CapturedCall{URL: "https://lets.destinilocators.com/acme/site/locate.php"},
			want: locator.StrategyDestini,
		},
		{
			name: "wordpress admin-ajax by action",
			call: CapturedCall{
				URL:  "https://example.com/wp-admin/admin-ajax.php",
				Body: "action=store_search&lat=40.0",
			},
			want: locator.StrategyWPStoreLocator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := classifyByHost(tt.call)
			require.True(t, ok)
			assert.Equal(t, tt.want, s.Strategy)
			assert.Equal(t, 1.0, s.Confidence)
			assert.Equal(t, "host_rule", s.Source)
		})
	}
}

func TestClassifyByHost_NoMatch(t *testing.T) {
	_, ok := classifyByHost(CapturedCall{URL: "https://example.com/api/stores"})
	assert.False(t, ok)

	// Host fragment in the path does not count.
	_, ok = classifyByHost(CapturedCall{URL: "https://example.com/stockist.co/fake"})
	assert.False(t, ok)
}

func TestClassify_SplitsMatchedAndUnmatched(t *testing.T) {
	calls := []CapturedCall{
		{BrandID: "acme", URL: "https://stockist.co/api/v1/u7/locations/search"},
		{BrandID: "acme", URL: "https://example.com/api/stores"},
		{BrandID: "globex", URL: "https://storepoint.co/api/v1/15f2/locations"},
	}

	matched, unmatched := Classify(calls)
	require.Len(t, matched, 2)
	require.Len(t, unmatched, 1)
	assert.Equal(t, locator.StrategyStockist, matched[0].Strategy)
	assert.Equal(t, locator.StrategyStorepoint, matched[1].Strategy)
	assert.Equal(t, "https://example.com/api/stores", unmatched[0].URL)
}
