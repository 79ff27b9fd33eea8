// Package fetcher is the sole HTTP egress point for locator scraping.
// One fetcher (and its connection pool) is shared across all strategies
// and brands in a run.
package fetcher

import (
	"context"
	"fmt"
)

// Page is a fetched HTML document.
type Page struct {
	URL        string // final URL after redirects
	Body       string
	StatusCode int
}

// Fetcher downloads pages and provider API payloads.
type Fetcher interface {
	// Fetch downloads a page and returns its body. Non-2xx statuses and
	// empty bodies are errors (see FetchError).
	Fetch(ctx context.Context, url string) (*Page, error)

	// GetJSON fetches a URL and decodes the JSON response into out.
	GetJSON(ctx context.Context, url string, out any) error

	// PostJSON posts a JSON payload and decodes the JSON response into out.
	PostJSON(ctx context.Context, url string, payload any, out any) error
}

// ErrorKind classifies a fetch failure.
type ErrorKind int

const (
	// KindNetwork covers dial, DNS, TLS, and timeout failures.
	KindNetwork ErrorKind = iota + 1
	// KindStatus covers non-2xx responses that survived retries.
	KindStatus
	// KindEmptyBody covers 2xx responses with no usable body.
	KindEmptyBody
)

// FetchError is the typed error returned by Fetch. Callers decide whether
// a failure aborts the brand or falls through to the next strategy.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	case KindEmptyBody:
		return fmt.Sprintf("fetch %s: empty body", e.URL)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }
