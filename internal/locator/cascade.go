package locator

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/shelfwatch/shelfwatch/internal/model"
)

// ErrNoStrategyMatched is returned when every extractor declined the
// page or came back empty. Callers record the brand as no_locator
// rather than failed.
var ErrNoStrategyMatched = errors.New("locator: no strategy matched")

// maxSubPages caps how many linked candidate pages are fetched when a
// sub-page-probing extractor finds nothing on the landing page.
const maxSubPages = 3

// Result is a successful cascade outcome: the winning strategy, the
// provider identifier it detected, and the raw locations it retrieved.
type Result struct {
	Strategy   Strategy
	Identifier string
	Locations  []model.RawLocation
}

// Cascade runs the extractors against a locator page in fixed priority
// order and returns the first non-empty result. Provider-specific
// strategies outrank generic static parsing, so a page carrying both a
// widget and schema.org markup resolves to the widget's full dataset.
type Cascade struct {
	env        *Env
	extractors []Extractor
}

func NewCascade(env *Env) *Cascade {
	c := &Cascade{env: env}
	for _, s := range CascadeOrder {
		c.extractors = append(c.extractors, newExtractor(s, env))
	}
	return c
}

// Run fetches the locator page and walks the cascade. An extractor that
// detects but then fails to retrieve is logged and skipped; the cascade
// only errors when the page itself cannot be fetched.
func (c *Cascade) Run(ctx context.Context, pageURL string) (*Result, error) {
	page, err := c.env.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	main := NewPageContext(page)

	logger := zap.L().With(zap.String("url", pageURL))

	// Sub-pages are fetched at most once, on first demand, and shared by
	// every probing extractor that reaches them.
	var subPages []*PageContext
	subPagesLoaded := false
	loadSubPages := func() []*PageContext {
		if subPagesLoaded {
			return subPages
		}
		subPagesLoaded = true
		for _, link := range main.SubPageLinks(maxSubPages) {
			sub, err := c.env.Fetcher.Fetch(ctx, link)
			if err != nil {
				logger.Debug("sub-page fetch failed",
					zap.String("sub_url", link), zap.Error(err))
				continue
			}
			subPages = append(subPages, NewPageContext(sub))
		}
		return subPages
	}

	for _, ex := range c.extractors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pages := []*PageContext{main}
		if p, ok := ex.(subPageProber); ok && p.ProbesSubPages() {
			pages = append(pages, loadSubPages()...)
		}

		for _, pg := range pages {
			ident, ok := ex.Detect(pg)
			if !ok {
				continue
			}

			locs, err := ex.Retrieve(ctx, ident, pg)
			if err != nil {
				logger.Warn("extractor failed, trying next strategy",
					zap.String("strategy", string(ex.Name())),
					zap.String("identifier", ident),
					zap.Error(err))
				continue
			}
			if len(locs) == 0 {
				logger.Debug("extractor returned no locations",
					zap.String("strategy", string(ex.Name())),
					zap.String("identifier", ident))
				continue
			}

			logger.Info("strategy matched",
				zap.String("strategy", string(ex.Name())),
				zap.String("identifier", ident),
				zap.Int("locations", len(locs)))
			return &Result{Strategy: ex.Name(), Identifier: ident, Locations: locs}, nil
		}
	}

	return nil, ErrNoStrategyMatched
}
