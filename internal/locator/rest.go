package locator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/shelfwatch/shelfwatch/internal/model"
)

// Single-call REST extractors: detect an embedded account identifier,
// call one provider endpoint, receive the full dataset.

var (
	stockistTagRe     = regexp.MustCompile(`stockist[^"']*["'/](u\d{3,8})\b`)
	stockistWidgetRe  = regexp.MustCompile(`data-stockist-widget-tag=["'](u\d{3,8})["']`)
	storeRocketAcctRe = regexp.MustCompile(`account["':\s]+["']([A-Za-z0-9]{4,24})["']`)
	storepointRe      = regexp.MustCompile(`storepoint\.co/api/v1/js/([0-9a-f]{10,20})\.js`)
	storemapperRe     = regexp.MustCompile(`data-storemapper-id=["'](\d+)["']`)
	closebyRe         = regexp.MustCompile(`closeby\.co/embed/([0-9a-f]{6,32})`)
	destiniClientRe   = regexp.MustCompile(`(?:destini\.co|lets\.shop)[^"']*[?&]client=([A-Za-z0-9_-]+)`)
	destiniAttrRe     = regexp.MustCompile(`data-destini-client=["']([A-Za-z0-9_-]+)["']`)
	metaLocatorRe     = regexp.MustCompile(`metalocator\.com[^"']*Itemid[,=](\d+)`)
)

// --- stockist ---

type stockistExtractor struct {
	env *Env
}

func (x *stockistExtractor) Name() Strategy       { return StrategyStockist }
func (x *stockistExtractor) ProbesSubPages() bool { return true }

func (x *stockistExtractor) Detect(page *PageContext) (string, bool) {
	if m := stockistWidgetRe.FindStringSubmatch(page.Page.Body); m != nil {
		return m[1], true
	}
	if m := stockistTagRe.FindStringSubmatch(page.Page.Body); m != nil {
		return m[1], true
	}
	return "", false
}

func (x *stockistExtractor) Retrieve(ctx context.Context, tag string, _ *PageContext) ([]model.RawLocation, error) {
	url := fmt.Sprintf("https://stockist.co/api/v1/%s/locations/all", tag)

	var raw []map[string]any
	if err := x.env.Fetcher.GetJSON(ctx, url, &raw); err != nil {
		return nil, eris.Wrap(err, "stockist: fetch locations")
	}

	locs := make([]model.RawLocation, 0, len(raw))
	for _, m := range raw {
		locs = append(locs, model.RawLocation{
			Name:       firstString(m, "name"),
			Address:    firstString(m, "address_line_1"),
			City:       firstString(m, "city"),
			State:      firstString(m, "state"),
			Zip:        firstString(m, "postal_code"),
			Country:    firstString(m, "country"),
			Latitude:   firstFloat(m, "latitude"),
			Longitude:  firstFloat(m, "longitude"),
			Phone:      firstString(m, "phone"),
			ExternalID: firstString(m, "id"),
			Strategy:   string(StrategyStockist),
			RawSource:  marshalRaw(m),
		})
	}
	return locs, nil
}

// --- storerocket ---

type storeRocketExtractor struct {
	env *Env
}

func (x *storeRocketExtractor) Name() Strategy { return StrategyStoreRocket }

func (x *storeRocketExtractor) Detect(page *PageContext) (string, bool) {
	if !page.Contains("storerocket.io") && !page.Contains("StoreRocket.init") {
		return "", false
	}
	if m := storeRocketAcctRe.FindStringSubmatch(page.Page.Body); m != nil {
		return m[1], true
	}
	return "", false
}

func (x *storeRocketExtractor) Retrieve(ctx context.Context, account string, _ *PageContext) ([]model.RawLocation, error) {
	url := fmt.Sprintf("https://storerocket.io/api/user/%s/locations", account)

	var resp struct {
		Results struct {
			Locations []map[string]any `json:"locations"`
		} `json:"results"`
	}
	if err := x.env.Fetcher.GetJSON(ctx, url, &resp); err != nil {
		return nil, eris.Wrap(err, "storerocket: fetch locations")
	}

	locs := make([]model.RawLocation, 0, len(resp.Results.Locations))
	for _, m := range resp.Results.Locations {
		locs = append(locs, model.RawLocation{
			Name:       firstString(m, "name"),
			Address:    firstString(m, "address_line_1", "address"),
			City:       firstString(m, "city"),
			State:      firstString(m, "state"),
			Zip:        firstString(m, "postcode", "zip"),
			Country:    firstString(m, "country"),
			Latitude:   firstFloat(m, "lat"),
			Longitude:  firstFloat(m, "lng"),
			Phone:      firstString(m, "phone"),
			ExternalID: firstString(m, "id"),
			Strategy:   string(StrategyStoreRocket),
			RawSource:  marshalRaw(m),
		})
	}
	return locs, nil
}

// --- storepoint ---

type storepointExtractor struct {
	env *Env
}

func (x *storepointExtractor) Name() Strategy { return StrategyStorepoint }

func (x *storepointExtractor) Detect(page *PageContext) (string, bool) {
	if m := storepointRe.FindStringSubmatch(page.Page.Body); m != nil {
		return m[1], true
	}
	return "", false
}

func (x *storepointExtractor) Retrieve(ctx context.Context, mapID string, _ *PageContext) ([]model.RawLocation, error) {
	url := fmt.Sprintf("https://api.storepoint.co/v1/%s/locations?rq", mapID)

	var resp struct {
		Success bool `json:"success"`
		Results struct {
			Locations []map[string]any `json:"locations"`
		} `json:"results"`
	}
	if err := x.env.Fetcher.GetJSON(ctx, url, &resp); err != nil {
		return nil, eris.Wrap(err, "storepoint: fetch locations")
	}
	if !resp.Success {
		return nil, eris.New("storepoint: api reported failure")
	}

	locs := make([]model.RawLocation, 0, len(resp.Results.Locations))
	for _, m := range resp.Results.Locations {
		// Storepoint returns one combined street address string.
		street, city, state, zip := splitAddress(firstString(m, "streetaddress", "address"))
		locs = append(locs, model.RawLocation{
			Name:       firstString(m, "name"),
			Address:    street,
			City:       city,
			State:      state,
			Zip:        zip,
			Latitude:   firstFloat(m, "loc_lat", "lat"),
			Longitude:  firstFloat(m, "loc_long", "lng"),
			Phone:      firstString(m, "phone"),
			ExternalID: firstString(m, "id"),
			Strategy:   string(StrategyStorepoint),
			RawSource:  marshalRaw(m),
		})
	}
	return locs, nil
}

// --- storemapper ---

type storemapperExtractor struct {
	env *Env
}

func (x *storemapperExtractor) Name() Strategy { return StrategyStoremapper }

func (x *storemapperExtractor) Detect(page *PageContext) (string, bool) {
	if m := storemapperRe.FindStringSubmatch(page.Page.Body); m != nil {
		return m[1], true
	}
	return "", false
}

func (x *storemapperExtractor) Retrieve(ctx context.Context, userID string, _ *PageContext) ([]model.RawLocation, error) {
	url := fmt.Sprintf("https://www.storemapper.co/api/users/%s/stores.js", userID)

	var resp struct {
		Stores []map[string]any `json:"stores"`
	}
	if err := x.env.Fetcher.GetJSON(ctx, url, &resp); err != nil {
		return nil, eris.Wrap(err, "storemapper: fetch stores")
	}

	locs := make([]model.RawLocation, 0, len(resp.Stores))
	for _, m := range resp.Stores {
		street, city, state, zip := splitAddress(firstString(m, "address"))
		locs = append(locs, model.RawLocation{
			Name:       firstString(m, "name"),
			Address:    street,
			City:       city,
			State:      state,
			Zip:        zip,
			Latitude:   firstFloat(m, "latitude"),
			Longitude:  firstFloat(m, "longitude"),
			Phone:      firstString(m, "phone"),
			ExternalID: firstString(m, "id"),
			Strategy:   string(StrategyStoremapper),
			RawSource:  marshalRaw(m),
		})
	}
	return locs, nil
}

// --- closeby ---

type closebyExtractor struct {
	env *Env
}

func (x *closebyExtractor) Name() Strategy { return StrategyCloseby }

func (x *closebyExtractor) Detect(page *PageContext) (string, bool) {
	if m := closebyRe.FindStringSubmatch(page.Page.Body); m != nil {
		return m[1], true
	}
	return "", false
}

func (x *closebyExtractor) Retrieve(ctx context.Context, account string, _ *PageContext) ([]model.RawLocation, error) {
	url := fmt.Sprintf("https://www.closeby.co/embed/%s/locations", account)

	var resp struct {
		Locations []map[string]any `json:"locations"`
	}
	if err := x.env.Fetcher.GetJSON(ctx, url, &resp); err != nil {
		return nil, eris.Wrap(err, "closeby: fetch locations")
	}

	locs := make([]model.RawLocation, 0, len(resp.Locations))
	for _, m := range resp.Locations {
		street, city, state, zip := splitAddress(firstString(m, "address_full", "address"))
		locs = append(locs, model.RawLocation{
			Name:       firstString(m, "title", "name"),
			Address:    street,
			City:       city,
			State:      state,
			Zip:        zip,
			Latitude:   firstFloat(m, "latitude"),
			Longitude:  firstFloat(m, "longitude"),
			Phone:      firstString(m, "phone_number", "phone"),
			ExternalID: firstString(m, "id"),
			Strategy:   string(StrategyCloseby),
			RawSource:  marshalRaw(m),
		})
	}
	return locs, nil
}

// --- destini ---

type destiniExtractor struct {
	env *Env
}

func (x *destiniExtractor) Name() Strategy       { return StrategyDestini }
func (x *destiniExtractor) ProbesSubPages() bool { return true }

func (x *destiniExtractor) Detect(page *PageContext) (string, bool) {
	if m := destiniAttrRe.FindStringSubmatch(page.Page.Body); m != nil {
		return m[1], true
	}
	if m := destiniClientRe.FindStringSubmatch(page.Page.Body); m != nil {
		return m[1], true
	}
	return "", false
}

func (x *destiniExtractor) Retrieve(ctx context.Context, client string, _ *PageContext) ([]model.RawLocation, error) {
	url := fmt.Sprintf("https://destini.co/api/v2/clients/%s/stores", client)

	var resp struct {
		Stores []map[string]any `json:"stores"`
	}
	if err := x.env.Fetcher.GetJSON(ctx, url, &resp); err != nil {
		return nil, eris.Wrap(err, "destini: fetch stores")
	}

	locs := make([]model.RawLocation, 0, len(resp.Stores))
	for _, m := range resp.Stores {
		locs = append(locs, model.RawLocation{
			Name:       firstString(m, "name", "retailer"),
			Address:    firstString(m, "address", "address1"),
			City:       firstString(m, "city"),
			State:      firstString(m, "state"),
			Zip:        firstString(m, "zip", "postal_code"),
			Country:    firstString(m, "country"),
			Latitude:   firstFloat(m, "lat", "latitude"),
			Longitude:  firstFloat(m, "lng", "longitude"),
			Phone:      firstString(m, "phone"),
			ExternalID: firstString(m, "id", "store_id"),
			Strategy:   string(StrategyDestini),
			RawSource:  marshalRaw(m),
		})
	}
	return locs, nil
}

// --- metalocator ---

type metaLocatorExtractor struct {
	env *Env
}

func (x *metaLocatorExtractor) Name() Strategy { return StrategyMetaLocator }

func (x *metaLocatorExtractor) Detect(page *PageContext) (string, bool) {
	if m := metaLocatorRe.FindStringSubmatch(page.Page.Body); m != nil {
		return m[1], true
	}
	return "", false
}

func (x *metaLocatorExtractor) Retrieve(ctx context.Context, itemID string, _ *PageContext) ([]model.RawLocation, error) {
	url := fmt.Sprintf("https://admin.metalocator.com/webapi/api/matchedlocations/itemid/%s", itemID)

	var raw []map[string]any
	if err := x.env.Fetcher.GetJSON(ctx, url, &raw); err != nil {
		return nil, eris.Wrap(err, "metalocator: fetch locations")
	}

	locs := make([]model.RawLocation, 0, len(raw))
	for _, m := range raw {
		locs = append(locs, model.RawLocation{
			Name:       firstString(m, "name"),
			Address:    firstString(m, "address", "address1"),
			City:       firstString(m, "city"),
			State:      firstString(m, "state"),
			Zip:        firstString(m, "postalcode", "zip"),
			Country:    firstString(m, "country"),
			Latitude:   firstFloat(m, "lat"),
			Longitude:  firstFloat(m, "lng"),
			Phone:      firstString(m, "phone"),
			ExternalID: firstString(m, "id"),
			Strategy:   string(StrategyMetaLocator),
			RawSource:  marshalRaw(m),
		})
	}
	return locs, nil
}

// marshalRaw retains the provider-native payload for future enrichment.
func marshalRaw(m map[string]any) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}
