// Package fetcher downloads input spreadsheets given by URL instead of path.
package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/findthatcharity/orgid-cli/internal/resilience"
	"github.com/findthatcharity/orgid-cli/internal/tabular"
)

// DefaultMaxBytes caps a downloaded file.
const DefaultMaxBytes = 50 << 20

// Options configures the HTTP fetcher.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64
	Retry     resilience.Policy
}

// HTTPFetcher downloads files with retry on transient failures.
type HTTPFetcher struct {
	client *http.Client
	opts   Options
}

// New creates an HTTPFetcher. Zero options get defaults.
func New(opts Options) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "orgid-cli/1.0"
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = resilience.LookupPolicy(3)
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// IsRemote reports whether input names an http or https URL.
func IsRemote(input string) bool {
	u, err := url.Parse(input)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Filename returns the last path element of rawURL, or "download.csv" when
// the URL has no usable name.
func Filename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download.csv"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "download.csv"
	}
	return name
}

// Download fetches rawURL and returns its body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) ([]byte, error) {
	data, err := resilience.Call(ctx, f.opts.Retry, func(ctx context.Context) ([]byte, error) {
		return f.get(ctx, rawURL)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: download %s", rawURL)
	}
	zap.L().Debug("fetcher: downloaded", zap.String("url", rawURL), zap.Int("bytes", len(data)))
	return data, nil
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.StatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}
	if int64(len(data)) > f.opts.MaxBytes {
		return nil, eris.Errorf("file larger than %d bytes", f.opts.MaxBytes)
	}
	return data, nil
}

// ReadTable downloads and parses a CSV or XLSX file. The returned name is the
// URL's file name, used for format detection and the output name.
func (f *HTTPFetcher) ReadTable(ctx context.Context, rawURL string, opts tabular.ReadOptions) (*tabular.Table, string, error) {
	data, err := f.Download(ctx, rawURL)
	if err != nil {
		return nil, "", err
	}
	name := Filename(rawURL)
	if tabular.FormatFor(name) == tabular.FormatCSV && !strings.Contains(name, ".") {
		name += ".csv"
	}
	t, err := tabular.Read(bytes.NewReader(data), name, opts)
	if err != nil {
		return nil, "", err
	}
	return t, name, nil
}
