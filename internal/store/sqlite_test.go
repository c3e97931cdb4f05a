package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findthatcharity/orgid-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestSQLite_LookupCacheRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	recs := []model.Record{{ID: "AB123", Fields: map[string]string{"lat": "51.5", "long": "-0.14"}}}
	require.NoError(t, s.SetCachedLookup(ctx, "4679|lat,long", recs, time.Hour))

	got, ok, err := s.GetCachedLookup(ctx, "4679|lat,long")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, recs, got)
}

func TestSQLite_LookupCacheMiss(t *testing.T) {
	s := newTestSQLite(t)

	got, ok, err := s.GetCachedLookup(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSQLite_LookupCacheEmptyResultIsAHit(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SetCachedLookup(ctx, "ffff|", nil, time.Hour))

	got, ok, err := s.GetCachedLookup(ctx, "ffff|")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestSQLite_LookupCacheOverwrite(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SetCachedLookup(ctx, "k", []model.Record{{ID: "A"}}, time.Hour))
	require.NoError(t, s.SetCachedLookup(ctx, "k", []model.Record{{ID: "B"}}, time.Hour))

	got, ok, err := s.GetCachedLookup(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].ID)
}

func TestSQLite_LookupCacheExpiry(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	require.NoError(t, s.SetCachedLookup(ctx, "old", []model.Record{{ID: "A"}}, time.Minute))
	require.NoError(t, s.SetCachedLookup(ctx, "fresh", []model.Record{{ID: "B"}}, 2*time.Hour))

	s.now = func() time.Time { return base.Add(time.Hour) }

	_, ok, err := s.GetCachedLookup(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.DeleteExpiredLookups(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err = s.GetCachedLookup(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "grants.csv", "OrgID", []string{"lat", "long"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	stats := model.RunStats{Rows: 10, Fingerprints: 4, Succeeded: 3, Failed: 1, Records: 5, MatchedRows: 7}
	require.NoError(t, s.CompleteRun(ctx, run.ID, stats))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "grants.csv", got.Filename)
	assert.Equal(t, "OrgID", got.Column)
	assert.Equal(t, []string{"lat", "long"}, got.Fields)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, stats, got.Stats)
	assert.Empty(t, got.Error)
}

func TestSQLite_FailRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "bad.csv", "", nil)
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, run.ID, "no column"))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "no column", got.Error)
	assert.Empty(t, got.Fields)
}

func TestSQLite_RunNotFound(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.CompleteRun(ctx, "missing", model.RunStats{}), ErrNotFound)
	assert.ErrorIs(t, s.FailRun(ctx, "missing", "x"), ErrNotFound)
}

func TestSQLite_ListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i, name := range []string{"a.csv", "b.csv", "a.csv"} {
		s.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		r, err := s.CreateRun(ctx, name, "OrgID", nil)
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	require.NoError(t, s.CompleteRun(ctx, ids[0], model.RunStats{Rows: 1}))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	byName, err := s.ListRuns(ctx, RunFilter{Filename: "a.csv"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	running, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusRunning})
	require.NoError(t, err)
	assert.Len(t, running, 2)

	page, err := s.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}
