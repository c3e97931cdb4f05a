// Package store persists the lookup cache and the history of enrichment runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/findthatcharity/orgid-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   model.RunStatus `json:"status,omitempty"`
	Filename string          `json:"filename,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

// Store defines persistence for the enrichment pipeline.
type Store interface {
	// Lookup cache. A miss returns (nil, false, nil).
	GetCachedLookup(ctx context.Context, key string) ([]model.Record, bool, error)
	SetCachedLookup(ctx context.Context, key string, records []model.Record, ttl time.Duration) error
	DeleteExpiredLookups(ctx context.Context) (int, error)

	// Runs
	CreateRun(ctx context.Context, filename, column string, fields []string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, stats model.RunStats) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(f RunFilter) int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}
