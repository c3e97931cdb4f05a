package enrich

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/findthatcharity/orgid-cli/internal/model"
	"github.com/findthatcharity/orgid-cli/internal/store"
)

// CachedLookuper serves lookups from the store's cache before asking next.
// Cache failures are logged and never fail the lookup.
type CachedLookuper struct {
	next  Lookuper
	store store.Store
	ttl   time.Duration
}

// NewCachedLookuper wraps next with st's lookup cache.
func NewCachedLookuper(next Lookuper, st store.Store, ttl time.Duration) *CachedLookuper {
	return &CachedLookuper{next: next, store: st, ttl: ttl}
}

// CacheKey identifies a lookup by fingerprint and property set. Property
// order does not matter.
func CacheKey(fingerprint string, properties []string) string {
	props := slices.Clone(properties)
	slices.Sort(props)
	props = slices.Compact(props)
	return fingerprint + "|" + strings.Join(props, ",")
}

func (c *CachedLookuper) Lookup(ctx context.Context, fingerprint string, properties []string) ([]model.Record, error) {
	key := CacheKey(fingerprint, properties)

	recs, ok, err := c.store.GetCachedLookup(ctx, key)
	switch {
	case err != nil:
		zap.L().Warn("enrich: cache read failed", zap.String("key", key), zap.Error(err))
	case ok:
		return recs, nil
	}

	recs, err = c.next.Lookup(ctx, fingerprint, properties)
	if err != nil {
		return nil, err
	}

	if err := c.store.SetCachedLookup(ctx, key, recs, c.ttl); err != nil {
		zap.L().Warn("enrich: cache write failed", zap.String("key", key), zap.Error(err))
	}
	return recs, nil
}
