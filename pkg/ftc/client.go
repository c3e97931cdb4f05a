// Package ftc is a client for the Find that Charity organisation API: hash
// lookups, name autocomplete and property proposals.
package ftc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/findthatcharity/orgid-cli/internal/model"
	"github.com/findthatcharity/orgid-cli/internal/resilience"
)

// Client defines the remote organisation lookups.
type Client interface {
	// Lookup returns the records whose organisation id hashes to fingerprint,
	// carrying only the requested properties.
	Lookup(ctx context.Context, fingerprint string, properties []string) ([]model.Record, error)
	// Autocomplete suggests organisations matching q.
	Autocomplete(ctx context.Context, q, orgtype string) ([]Suggestion, error)
	// ProposeProperties lists the properties the service can add to a row.
	ProposeProperties(ctx context.Context) ([]Property, error)
}

// Paths holds the endpoint paths relative to the base URL.
type Paths struct {
	Lookup          string
	Autocomplete    string
	Propose         string
	FallbackPropose string
}

// DefaultPaths are the endpoints of the public service.
var DefaultPaths = Paths{
	Lookup:          "/hash",
	Autocomplete:    "/autocomplete",
	Propose:         "/reconcile/propose_properties",
	FallbackPropose: "/propose_properties",
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets the service root, e.g. http://localhost:5000.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithPaths overrides endpoint paths. Empty fields keep their defaults.
func WithPaths(p Paths) Option {
	return func(c *httpClient) {
		if p.Lookup != "" {
			c.paths.Lookup = p.Lookup
		}
		if p.Autocomplete != "" {
			c.paths.Autocomplete = p.Autocomplete
		}
		if p.Propose != "" {
			c.paths.Propose = p.Propose
		}
		if p.FallbackPropose != "" {
			c.paths.FallbackPropose = p.FallbackPropose
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.timeout = d
	}
}

// WithRateLimit caps requests per second. Zero or less means unlimited.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithRetry sets the retry policy for lookups.
func WithRetry(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

type httpClient struct {
	baseURL   string
	paths     Paths
	http      *http.Client
	timeout   time.Duration
	limiter   *rate.Limiter
	userAgent string
	retry     resilience.Policy
}

// NewClient creates a client for the public service unless WithBaseURL says otherwise.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://findthatcharity.uk",
		paths:   DefaultPaths,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout:   30 * time.Second,
		userAgent: "orgid-cli/1.0",
		retry:     resilience.SingleAttempt(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getJSON issues a GET for path with query and decodes the body into out.
// Non-2xx responses come back as *resilience.StatusError.
func (c *httpClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "ftc: rate limit wait")
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "ftc: create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "ftc: GET %s", path)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return &resilience.StatusError{StatusCode: resp.StatusCode, URL: reqURL}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return eris.Wrapf(err, "ftc: decode %s", path)
	}
	return nil
}
