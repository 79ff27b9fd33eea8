package locator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwatch/shelfwatch/internal/fetcher"
)

// fakeFetcher serves canned pages and JSON payloads keyed by URL.
type fakeFetcher struct {
	pages map[string]string
	json  map[string]string

	fetched   []string
	jsonCalls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*fetcher.Page, error) {
	f.fetched = append(f.fetched, url)
	body, ok := f.pages[url]
	if !ok {
		return nil, eris.Errorf("fake: no page for %s", url)
	}
	return &fetcher.Page{URL: url, Body: body, StatusCode: 200}, nil
}

func (f *fakeFetcher) GetJSON(_ context.Context, url string, out any) error {
	f.jsonCalls = append(f.jsonCalls, url)
	raw, ok := f.json[url]
	if !ok {
		return eris.Errorf("fake: no json for %s", url)
	}
	return json.Unmarshal([]byte(raw), out)
}

func (f *fakeFetcher) PostJSON(_ context.Context, url string, _ any, out any) error {
	f.jsonCalls = append(f.jsonCalls, url)
	raw, ok := f.json[url]
	if !ok {
		return eris.Errorf("fake: no json for %s", url)
	}
	return json.Unmarshal([]byte(raw), out)
}

func newTestCascade(f *fakeFetcher) *Cascade {
	return NewCascade(&Env{Fetcher: f, Pause: noPause})
}

func TestCascadeWinsWithProviderAPI(t *testing.T) {
	ff := &fakeFetcher{
		pages: map[string]string{
			"https://acme.example.com/stores": `<div data-stockist-widget-tag="u4321"></div>`,
		},
		json: map[string]string{
			"https://stockist.co/api/v1/u4321/locations/all": `[
				{"name": "Acme North", "city": "Denver", "state": "CO", "latitude": 39.7, "longitude": -104.9},
				{"name": "Acme South", "city": "Pueblo", "state": "CO"}
			]`,
		},
	}

	res, err := newTestCascade(ff).Run(context.Background(), "https://acme.example.com/stores")
	require.NoError(t, err)

	assert.Equal(t, StrategyStockist, res.Strategy)
	assert.Equal(t, "u4321", res.Identifier)
	require.Len(t, res.Locations, 2)
	assert.Equal(t, "Acme North", res.Locations[0].Name)
}

func TestCascadeProviderBeatsStaticMarkup(t *testing.T) {
	// A page carrying both a widget and schema.org markup resolves to
	// the widget: its API returns the full dataset, the markup only the
	// handful of stores rendered server-side.
	body := `<div data-storemapper-id="909"></div>
<script type="application/ld+json">{"@type": "Store", "name": "Only One Store"}</script>`

	ff := &fakeFetcher{
		pages: map[string]string{"https://acme.example.com/stores": body},
		json: map[string]string{
			"https://www.storemapper.co/api/users/909/stores.js": `{"stores": [
				{"name": "A"}, {"name": "B"}, {"name": "C"}
			]}`,
		},
	}

	res, err := newTestCascade(ff).Run(context.Background(), "https://acme.example.com/stores")
	require.NoError(t, err)

	assert.Equal(t, StrategyStoremapper, res.Strategy)
	assert.Len(t, res.Locations, 3)
}

func TestCascadeFailsOpenToNextStrategy(t *testing.T) {
	// Storemapper detects but its API call fails; the cascade moves on
	// and the JSON-LD fallback salvages the page.
	body := `<div data-storemapper-id="909"></div>
<script type="application/ld+json">{"@type": "Store", "name": "Fallback Store", "address": {"addressRegion": "OR"}}</script>`

	ff := &fakeFetcher{
		pages: map[string]string{"https://acme.example.com/stores": body},
		// No storemapper payload registered: GetJSON errors.
	}

	res, err := newTestCascade(ff).Run(context.Background(), "https://acme.example.com/stores")
	require.NoError(t, err)

	assert.Equal(t, StrategyJSONLD, res.Strategy)
	require.Len(t, res.Locations, 1)
	assert.Equal(t, "Fallback Store", res.Locations[0].Name)
}

func TestCascadeSkipsEmptyResults(t *testing.T) {
	body := `<div data-storemapper-id="909"></div>
<script>var stores = [{"name": "Inline Store", "state": "WA"}];</script>`

	ff := &fakeFetcher{
		pages: map[string]string{"https://acme.example.com/stores": body},
		json: map[string]string{
			"https://www.storemapper.co/api/users/909/stores.js": `{"stores": []}`,
		},
	}

	res, err := newTestCascade(ff).Run(context.Background(), "https://acme.example.com/stores")
	require.NoError(t, err)

	assert.Equal(t, StrategyEmbeddedJSON, res.Strategy)
	require.Len(t, res.Locations, 1)
	assert.Equal(t, "Inline Store", res.Locations[0].Name)
}

func TestCascadeNoStrategyMatched(t *testing.T) {
	ff := &fakeFetcher{
		pages: map[string]string{
			"https://acme.example.com": `<html><body>Welcome to Acme.</body></html>`,
		},
	}

	_, err := newTestCascade(ff).Run(context.Background(), "https://acme.example.com")
	assert.ErrorIs(t, err, ErrNoStrategyMatched)
}

func TestCascadePageFetchErrorPropagates(t *testing.T) {
	ff := &fakeFetcher{pages: map[string]string{}}

	_, err := newTestCascade(ff).Run(context.Background(), "https://down.example.com/stores")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoStrategyMatched)
}

func TestCascadeProbesSubPagesForStockist(t *testing.T) {
	// Landing page has no widget, just a link to the real locator page;
	// stockist probes linked sub-pages before giving up.
	landing := `<html><body><a href="/find-a-store">Find a store</a></body></html>`
	sub := `<div data-stockist-widget-tag="u7788"></div>`

	ff := &fakeFetcher{
		pages: map[string]string{
			"https://acme.example.com":              landing,
			"https://acme.example.com/find-a-store": sub,
		},
		json: map[string]string{
			"https://stockist.co/api/v1/u7788/locations/all": `[{"name": "Hidden Store", "state": "VT"}]`,
		},
	}

	res, err := newTestCascade(ff).Run(context.Background(), "https://acme.example.com")
	require.NoError(t, err)

	assert.Equal(t, StrategyStockist, res.Strategy)
	assert.Equal(t, "u7788", res.Identifier)
	assert.Contains(t, ff.fetched, "https://acme.example.com/find-a-store")
}

func TestCascadeFetchesSubPagesOnce(t *testing.T) {
	// Both probing extractors reach the sub-page list; it is fetched once.
	landing := `<a href="/where-to-buy">Where to buy</a>`

	ff := &fakeFetcher{
		pages: map[string]string{
			"https://acme.example.com":              landing,
			"https://acme.example.com/where-to-buy": `<p>coming soon</p>`,
		},
	}

	_, err := newTestCascade(ff).Run(context.Background(), "https://acme.example.com")
	assert.ErrorIs(t, err, ErrNoStrategyMatched)

	subFetches := 0
	for _, u := range ff.fetched {
		if u == "https://acme.example.com/where-to-buy" {
			subFetches++
		}
	}
	assert.Equal(t, 1, subFetches)
}
