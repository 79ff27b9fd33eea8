package locator

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shelfwatch/shelfwatch/internal/fetcher"
)

// PageContext pairs a fetched page with its parsed document so the
// thirteen detectors share one parse.
type PageContext struct {
	Page *fetcher.Page
	doc  *goquery.Document
}

// NewPageContext parses the page body. A parse failure leaves doc nil;
// detectors that need the DOM then fall back to string matching.
func NewPageContext(page *fetcher.Page) *PageContext {
	ctx := &PageContext{Page: page}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err == nil {
		ctx.doc = doc
	}
	return ctx
}

// Doc returns the parsed document, or nil if parsing failed.
func (p *PageContext) Doc() *goquery.Document { return p.doc }

// Contains reports whether the raw body contains the marker.
func (p *PageContext) Contains(marker string) bool {
	return strings.Contains(p.Page.Body, marker)
}

// Origin returns the scheme://host of the page URL, used by extractors
// that call site-local endpoints (e.g., WordPress admin-ajax).
func (p *PageContext) Origin() string {
	u, err := url.Parse(p.Page.URL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// subPageKeywords mark anchor hrefs worth probing when the landing page
// itself carries no widget. Some brands put the widget one click deeper.
var subPageKeywords = []string{
	"store-locator", "storelocator", "find-a-store", "find-us",
	"where-to-buy", "wheretobuy", "stockists", "locations",
}

// SubPageLinks returns same-host candidate URLs linked from the page, in
// document order, deduplicated, capped at limit.
func (p *PageContext) SubPageLinks(limit int) []string {
	if p.doc == nil {
		return nil
	}
	base, err := url.Parse(p.Page.URL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	p.doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		lower := strings.ToLower(href)

		matched := false
		for _, kw := range subPageKeywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		if abs.Host != base.Host {
			return true
		}
		abs.Fragment = ""
		s := abs.String()
		if s == p.Page.URL || seen[s] {
			return true
		}
		seen[s] = true
		links = append(links, s)
		return len(links) < limit
	})
	return links
}
