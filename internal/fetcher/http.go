package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shelfwatch/shelfwatch/internal/resilience"
)

// userAgents is rotated per request to reduce trivial upstream blocking.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// maxBodyBytes caps response reads; locator payloads are rarely over 2 MB.
const maxBodyBytes = 8 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	Timeout    time.Duration
	MaxRetries int
}

// HTTPFetcher implements Fetcher using net/http with user-agent rotation,
// per-host rate limiting, and retry with backoff on transient failures.
type HTTPFetcher struct {
	client  *http.Client
	opts    HTTPOptions
	uaIndex atomic.Uint64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// nextUserAgent returns the next user agent in rotation.
func (f *HTTPFetcher) nextUserAgent() string {
	n := f.uaIndex.Add(1)
	return userAgents[n%uint64(len(userAgents))]
}

// limiterFor returns the per-host limiter, creating one on first use.
// Provider hosts are shared across concurrent brand scans, so pacing is
// scoped to the host, not the brand.
func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(5, 5)
		f.limiters[host] = lim
	}
	return lim
}

// do runs one request with rate limiting and retry on transient failures.
func (f *HTTPFetcher) do(ctx context.Context, method, rawURL string, body []byte, contentType string) ([]byte, int, error) {
	lim := f.limiterFor(rawURL)

	policy := resilience.DefaultPolicy()
	policy.Attempts = f.opts.MaxRetries
	policy.OnRetry = resilience.LogRetries("fetcher", method+" "+rawURL)

	type response struct {
		body   []byte
		status int
	}

	resp, err := resilience.Do(ctx, policy, func(ctx context.Context) (response, error) {
		if err := lim.Wait(ctx); err != nil {
			return response{}, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
		if err != nil {
			return response{}, eris.Wrap(err, "fetcher: create request")
		}
		req.Header.Set("User-Agent", f.nextUserAgent())
		req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		res, err := f.client.Do(req)
		if err != nil {
			return response{}, &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
		}
		defer res.Body.Close() //nolint:errcheck

		data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
		if err != nil {
			return response{}, &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
		}

		if resilience.RetryableStatus(res.StatusCode) {
			ferr := &FetchError{Kind: KindStatus, URL: rawURL, StatusCode: res.StatusCode}
			return response{}, resilience.MarkTransient(ferr, res.StatusCode)
		}

		return response{body: data, status: res.StatusCode}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return resp.body, resp.status, nil
}

// Fetch downloads a page. Network failures, non-2xx statuses, and empty
// bodies return a *FetchError distinguishing the three.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	body, status, err := f.do(ctx, http.MethodGet, rawURL, nil, "")
	if err != nil {
		return nil, err
	}

	if status < 200 || status > 299 {
		zap.L().Debug("fetcher: non-2xx response",
			zap.String("url", rawURL),
			zap.Int("status", status),
		)
		return nil, &FetchError{Kind: KindStatus, URL: rawURL, StatusCode: status}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &FetchError{Kind: KindEmptyBody, URL: rawURL, StatusCode: status}
	}

	return &Page{URL: rawURL, Body: string(body), StatusCode: status}, nil
}

// GetJSON fetches a URL and decodes the JSON response into out.
func (f *HTTPFetcher) GetJSON(ctx context.Context, rawURL string, out any) error {
	page, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(page.Body), out); err != nil {
		return eris.Wrapf(err, "fetcher: decode json from %s", rawURL)
	}
	return nil
}

// PostJSON posts a JSON payload and decodes the JSON response into out.
func (f *HTTPFetcher) PostJSON(ctx context.Context, rawURL string, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "fetcher: encode json payload")
	}

	body, status, err := f.do(ctx, http.MethodPost, rawURL, data, "application/json")
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return &FetchError{Kind: KindStatus, URL: rawURL, StatusCode: status}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &FetchError{Kind: KindEmptyBody, URL: rawURL, StatusCode: status}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "fetcher: decode json from %s", rawURL)
	}
	return nil
}
