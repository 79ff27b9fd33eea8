package locator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/shelfwatch/shelfwatch/internal/model"
)

// Static-parse extractors: no network call beyond the original page
// fetch. These are the generic fallbacks at the bottom of the cascade;
// the trust gate holds them to a higher bar before persistence.

// retailTypes are the schema.org types treated as a physical store.
var retailTypes = map[string]bool{
	"Store":                   true,
	"LocalBusiness":           true,
	"GroceryStore":            true,
	"ConvenienceStore":        true,
	"LiquorStore":             true,
	"SportingGoodsStore":      true,
	"HealthAndBeautyBusiness": true,
	"Pharmacy":                true,
}

func isRetailType(v any) bool {
	switch t := v.(type) {
	case string:
		return retailTypes[t] || strings.HasSuffix(t, "Store")
	case []any:
		for _, e := range t {
			if isRetailType(e) {
				return true
			}
		}
	}
	return false
}

// --- jsonld ---

type jsonLDExtractor struct{}

func (x *jsonLDExtractor) Name() Strategy { return StrategyJSONLD }

func (x *jsonLDExtractor) Detect(page *PageContext) (string, bool) {
	if page.Doc() == nil {
		return "", false
	}
	found := false
	page.Doc().Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(sel.Text()), &v); err != nil {
			return true
		}
		if len(collectRetailNodes(v)) > 0 {
			found = true
			return false
		}
		return true
	})
	if !found {
		return "", false
	}
	return "jsonld", true
}

func (x *jsonLDExtractor) Retrieve(_ context.Context, _ string, page *PageContext) ([]model.RawLocation, error) {
	if page.Doc() == nil {
		return nil, eris.New("jsonld: page did not parse")
	}

	var locs []model.RawLocation
	page.Doc().Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(sel.Text()), &v); err != nil {
			return
		}
		for _, node := range collectRetailNodes(v) {
			if loc, ok := jsonLDLocation(node); ok {
				locs = append(locs, loc)
			}
		}
	})
	return locs, nil
}

// collectRetailNodes walks a decoded JSON-LD value (object, array, or
// @graph wrapper) and gathers retail-typed nodes.
func collectRetailNodes(v any) []map[string]any {
	var nodes []map[string]any
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			nodes = append(nodes, collectRetailNodes(e)...)
		}
	case map[string]any:
		if graph, ok := t["@graph"]; ok {
			nodes = append(nodes, collectRetailNodes(graph)...)
		}
		if isRetailType(t["@type"]) {
			nodes = append(nodes, t)
		}
	}
	return nodes
}

func jsonLDLocation(node map[string]any) (model.RawLocation, bool) {
	loc := model.RawLocation{
		Name:     firstString(node, "name"),
		Phone:    firstString(node, "telephone"),
		Strategy: string(StrategyJSONLD),
		RawSource: marshalRaw(node),
	}
	if loc.Name == "" {
		return model.RawLocation{}, false
	}

	if addr, ok := node["address"].(map[string]any); ok {
		loc.Address = firstString(addr, "streetAddress")
		loc.City = firstString(addr, "addressLocality")
		loc.State = firstString(addr, "addressRegion")
		loc.Zip = firstString(addr, "postalCode")
		loc.Country = firstString(addr, "addressCountry")
	}
	if g, ok := node["geo"].(map[string]any); ok {
		loc.Latitude = firstFloat(g, "latitude")
		loc.Longitude = firstFloat(g, "longitude")
	}
	return loc, true
}

// --- embeddedjson ---

// embeddedArrayNames are the variable/property names checked for an
// inline location array. Payloads nest braces, so spans are found with a
// balanced-delimiter scan rather than regex.
var embeddedArrayNames = []string{"locations", "stores", "storeList", "mapLocations", "retailers"}

type embeddedJSONExtractor struct{}

func (x *embeddedJSONExtractor) Name() Strategy { return StrategyEmbeddedJSON }

func (x *embeddedJSONExtractor) Detect(page *PageContext) (string, bool) {
	literal, ok := findArrayLiteral(page.Page.Body, embeddedArrayNames)
	if !ok {
		return "", false
	}
	// Cheap sanity check before committing: the array must decode and
	// hold objects, not numbers or strings.
	var arr []map[string]any
	if err := json.Unmarshal([]byte(literal), &arr); err != nil || len(arr) == 0 {
		return "", false
	}
	return "embedded", true
}

func (x *embeddedJSONExtractor) Retrieve(_ context.Context, _ string, page *PageContext) ([]model.RawLocation, error) {
	literal, ok := findArrayLiteral(page.Page.Body, embeddedArrayNames)
	if !ok {
		return nil, eris.New("embeddedjson: no array literal found")
	}

	var arr []map[string]any
	if err := json.Unmarshal([]byte(literal), &arr); err != nil {
		return nil, eris.Wrap(err, "embeddedjson: decode array")
	}

	var locs []model.RawLocation
	for _, m := range arr {
		name := firstString(m, "name", "title", "store", "store_name")
		if name == "" {
			continue
		}
		locs = append(locs, model.RawLocation{
			Name:       name,
			Address:    firstString(m, "address", "address1", "street", "streetAddress"),
			City:       firstString(m, "city", "town", "locality"),
			State:      firstString(m, "state", "province", "region"),
			Zip:        firstString(m, "zip", "zipcode", "postcode", "postal_code"),
			Country:    firstString(m, "country"),
			Latitude:   firstFloat(m, "lat", "latitude"),
			Longitude:  firstFloat(m, "lng", "lon", "long", "longitude"),
			Phone:      firstString(m, "phone", "telephone"),
			ExternalID: firstString(m, "id", "store_id"),
			Strategy:   string(StrategyEmbeddedJSON),
			RawSource:  marshalRaw(m),
		})
	}
	return locs, nil
}

// --- microdata ---

type microdataExtractor struct{}

func (x *microdataExtractor) Name() Strategy { return StrategyMicrodata }

func (x *microdataExtractor) Detect(page *PageContext) (string, bool) {
	if page.Doc() == nil {
		return "", false
	}
	if microdataNodes(page.Doc()).Length() == 0 {
		return "", false
	}
	return "microdata", true
}

func (x *microdataExtractor) Retrieve(_ context.Context, _ string, page *PageContext) ([]model.RawLocation, error) {
	if page.Doc() == nil {
		return nil, eris.New("microdata: page did not parse")
	}

	var locs []model.RawLocation
	microdataNodes(page.Doc()).Each(func(_ int, sel *goquery.Selection) {
		name := itemprop(sel, "name")
		if name == "" {
			return
		}
		locs = append(locs, model.RawLocation{
			Name:      name,
			Address:   itemprop(sel, "streetAddress"),
			City:      itemprop(sel, "addressLocality"),
			State:     itemprop(sel, "addressRegion"),
			Zip:       itemprop(sel, "postalCode"),
			Country:   itemprop(sel, "addressCountry"),
			Latitude:  parseCoord(itemprop(sel, "latitude")),
			Longitude: parseCoord(itemprop(sel, "longitude")),
			Phone:     itemprop(sel, "telephone"),
			Strategy:  string(StrategyMicrodata),
		})
	})
	return locs, nil
}

// microdataNodes selects itemscope elements whose itemtype is a retail
// schema.org type.
func microdataNodes(doc *goquery.Document) *goquery.Selection {
	return doc.Find("[itemscope][itemtype]").FilterFunction(func(_ int, sel *goquery.Selection) bool {
		itemtype, _ := sel.Attr("itemtype")
		short := itemtype[strings.LastIndex(itemtype, "/")+1:]
		return isRetailType(short)
	})
}

// itemprop reads an itemprop value, preferring the content attribute
// (meta tags) over element text.
func itemprop(scope *goquery.Selection, prop string) string {
	sel := scope.Find(`[itemprop="` + prop + `"]`).First()
	if sel.Length() == 0 {
		return ""
	}
	if content, ok := sel.Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(sel.Text())
}

func parseCoord(s string) *float64 {
	if s == "" {
		return nil
	}
	return asFloat(s)
}
