package locator

import (
	"context"
	"fmt"
	"regexp"

	"github.com/shelfwatch/shelfwatch/internal/geo"
	"github.com/shelfwatch/shelfwatch/internal/model"
)

// Multi-point sweep extractors: the provider API accepts a location plus
// radius (or a location feeding a capped accumulator), so one call never
// yields the full dataset. Points are queried strictly in order with a
// randomized pacing delay between calls.

var (
	priceSpiderAcctRe = regexp.MustCompile(`cdn\.pricespider\.com[^"']*["']|ps-account=["']?(\d{3,10})`)
	priceSpiderCfgRe  = regexp.MustCompile(`psConfig\s*[.=][^;]*account["':=\s]+["']?(\d{3,10})`)
	locallyCompanyRe  = regexp.MustCompile(`locally\.com[^"']*[?&]company_id=(\d+)|data-company-id=["'](\d+)["']`)
)

// --- pricespider (radius-limited, grid sweep) ---

type priceSpiderExtractor struct {
	env *Env
}

func (x *priceSpiderExtractor) Name() Strategy { return StrategyPriceSpider }

func (x *priceSpiderExtractor) Detect(page *PageContext) (string, bool) {
	if !page.Contains("pricespider.com") {
		return "", false
	}
	if m := priceSpiderCfgRe.FindStringSubmatch(page.Page.Body); m != nil {
		return m[1], true
	}
	if m := priceSpiderAcctRe.FindStringSubmatch(page.Page.Body); m != nil && m[1] != "" {
		return m[1], true
	}
	return "", false
}

func (x *priceSpiderExtractor) Retrieve(ctx context.Context, account string, _ *PageContext) ([]model.RawLocation, error) {
	return x.env.sweep(ctx, StrategyPriceSpider, x.env.Grid, 0, func(ctx context.Context, pt geo.GridPoint) ([]model.RawLocation, error) {
		var resp struct {
			Stores []map[string]any `json:"stores"`
		}
		payload := map[string]any{
			"account": account,
			"lat":     pt.Lat,
			"lng":     pt.Lng,
			"radius":  100,
		}
		if err := x.env.Fetcher.PostJSON(ctx, "https://locate.pricespider.com/v2/stores", payload, &resp); err != nil {
			return nil, err
		}

		locs := make([]model.RawLocation, 0, len(resp.Stores))
		for _, m := range resp.Stores {
			locs = append(locs, model.RawLocation{
				Name:       firstString(m, "name", "retailer"),
				Address:    firstString(m, "address", "address1"),
				City:       firstString(m, "city"),
				State:      firstString(m, "state"),
				Zip:        firstString(m, "zip", "postalCode"),
				Country:    firstString(m, "country"),
				Latitude:   firstFloat(m, "lat", "latitude"),
				Longitude:  firstFloat(m, "lng", "longitude"),
				Phone:      firstString(m, "phone"),
				ExternalID: firstString(m, "id", "storeId"),
				Strategy:   string(StrategyPriceSpider),
				RawSource:  marshalRaw(m),
			})
		}
		return locs, nil
	})
}

// --- wp-store-locator (radius-limited, grid sweep against the brand's own site) ---

type wpStoreLocatorExtractor struct {
	env *Env
}

func (x *wpStoreLocatorExtractor) Name() Strategy { return StrategyWPStoreLocator }

func (x *wpStoreLocatorExtractor) Detect(page *PageContext) (string, bool) {
	if page.Contains("wp-content/plugins/wp-store-locator") || page.Contains("wpsl-gmap") {
		if origin := page.Origin(); origin != "" {
			return origin, true
		}
	}
	return "", false
}

func (x *wpStoreLocatorExtractor) Retrieve(ctx context.Context, origin string, _ *PageContext) ([]model.RawLocation, error) {
	return x.env.sweep(ctx, StrategyWPStoreLocator, x.env.Grid, 0, func(ctx context.Context, pt geo.GridPoint) ([]model.RawLocation, error) {
		url := fmt.Sprintf(
			"%s/wp-admin/admin-ajax.php?action=store_search&lat=%f&lng=%f&max_results=100&search_radius=100",
			origin, pt.Lat, pt.Lng,
		)

		var raw []map[string]any
		if err := x.env.Fetcher.GetJSON(ctx, url, &raw); err != nil {
			return nil, err
		}

		locs := make([]model.RawLocation, 0, len(raw))
		for _, m := range raw {
			locs = append(locs, model.RawLocation{
				Name:       firstString(m, "store", "name"),
				Address:    firstString(m, "address"),
				City:       firstString(m, "city"),
				State:      firstString(m, "state"),
				Zip:        firstString(m, "zip"),
				Country:    firstString(m, "country"),
				Latitude:   firstFloat(m, "lat"),
				Longitude:  firstFloat(m, "lng"),
				Phone:      firstString(m, "phone"),
				ExternalID: firstString(m, "id"),
				Strategy:   string(StrategyWPStoreLocator),
				RawSource:  marshalRaw(m),
			})
		}
		return locs, nil
	})
}

// --- locally (result-capped, strategic point sweep) ---

// locallyResultCap is the provider-side accumulator limit: once a search
// session has gathered this many deduplicated stores, further points
// return nothing new. The strategic point ordering exists to spend the
// cap across every macro-region (see geo.RegionWindow).
const locallyResultCap = 500

type locallyExtractor struct {
	env *Env
}

func (x *locallyExtractor) Name() Strategy { return StrategyLocally }

func (x *locallyExtractor) Detect(page *PageContext) (string, bool) {
	if m := locallyCompanyRe.FindStringSubmatch(page.Page.Body); m != nil {
		if m[1] != "" {
			return m[1], true
		}
		if m[2] != "" {
			return m[2], true
		}
	}
	return "", false
}

func (x *locallyExtractor) Retrieve(ctx context.Context, companyID string, _ *PageContext) ([]model.RawLocation, error) {
	points := strategicGridPoints(x.env.Strategic)

	return x.env.sweep(ctx, StrategyLocally, points, locallyResultCap, func(ctx context.Context, pt geo.GridPoint) ([]model.RawLocation, error) {
		url := fmt.Sprintf(
			"https://www.locally.com/stores/conjure_data?company_id=%s&lat=%f&lng=%f",
			companyID, pt.Lat, pt.Lng,
		)

		var resp struct {
			Markers []map[string]any `json:"markers"`
		}
		if err := x.env.Fetcher.GetJSON(ctx, url, &resp); err != nil {
			return nil, err
		}

		locs := make([]model.RawLocation, 0, len(resp.Markers))
		for _, m := range resp.Markers {
			locs = append(locs, model.RawLocation{
				Name:       firstString(m, "name", "company_name"),
				Address:    firstString(m, "address", "street"),
				City:       firstString(m, "city"),
				State:      firstString(m, "state"),
				Zip:        firstString(m, "zip", "postal_code"),
				Country:    firstString(m, "country"),
				Latitude:   firstFloat(m, "lat", "latitude"),
				Longitude:  firstFloat(m, "lng", "longitude"),
				Phone:      firstString(m, "phone"),
				ExternalID: firstString(m, "id"),
				Strategy:   string(StrategyLocally),
				RawSource:  marshalRaw(m),
			})
		}
		return locs, nil
	})
}
