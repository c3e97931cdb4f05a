// Package enrich looks up organisation fingerprints in bulk and merges the
// returned fields back into the uploaded table.
package enrich

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/findthatcharity/orgid-cli/internal/model"
	"github.com/findthatcharity/orgid-cli/internal/orgid"
)

// DefaultConcurrency bounds in-flight lookups when none is configured.
const DefaultConcurrency = 8

// Lookuper fetches the records for one fingerprint. ftc.Client satisfies it.
type Lookuper interface {
	Lookup(ctx context.Context, fingerprint string, properties []string) ([]model.Record, error)
}

// ProgressFunc receives the number of successful lookups so far and the total.
type ProgressFunc func(done, total int)

// FetchStats counts the outcome of a FetchAll call.
type FetchStats struct {
	Requested int `json:"requested"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Records   int `json:"records"`
}

// Fetcher fans fingerprint lookups out with bounded concurrency.
type Fetcher struct {
	lookup      Lookuper
	concurrency int
	progress    ProgressFunc
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithConcurrency sets the maximum number of lookups in flight.
func WithConcurrency(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithProgress registers a callback fired after every successful lookup.
// Calls are serialized and done only increases.
func WithProgress(fn ProgressFunc) FetcherOption {
	return func(f *Fetcher) {
		f.progress = fn
	}
}

// NewFetcher returns a Fetcher backed by l.
func NewFetcher(l Lookuper, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{lookup: l, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll looks up every fingerprint and merges the records into one map
// keyed by normalized organisation id. Failed lookups are logged and left
// out; FetchAll itself never fails and returns once every lookup has settled.
func (f *Fetcher) FetchAll(ctx context.Context, fingerprints []string, properties []string) (model.MergeMap, FetchStats) {
	total := len(fingerprints)
	stats := FetchStats{Requested: total}
	merged := make(model.MergeMap)
	if total == 0 {
		return merged, stats
	}

	var (
		mu     sync.Mutex
		done   atomic.Int64
		failed atomic.Int64
	)

	var g errgroup.Group
	g.SetLimit(f.concurrency)

	for _, fp := range fingerprints {
		g.Go(func() error {
			recs, err := f.lookup.Lookup(ctx, fp, properties)
			if err != nil {
				failed.Add(1)
				zap.L().Error("enrich: lookup failed",
					zap.String("fingerprint", fp),
					zap.Error(err),
				)
				return nil
			}

			part := make(model.MergeMap, len(recs))
			for _, r := range recs {
				part[orgid.Normalize(r.ID)] = r.Fields
			}

			mu.Lock()
			merged.Merge(part)
			n := done.Add(1)
			if f.progress != nil {
				f.progress(int(n), total)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	stats.Succeeded = int(done.Load())
	stats.Failed = int(failed.Load())
	stats.Records = len(merged)

	zap.L().Debug("enrich: fetch complete",
		zap.Int("requested", stats.Requested),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("records", stats.Records),
	)
	return merged, stats
}
