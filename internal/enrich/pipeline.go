package enrich

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/findthatcharity/orgid-cli/internal/config"
	"github.com/findthatcharity/orgid-cli/internal/fields"
	"github.com/findthatcharity/orgid-cli/internal/model"
	"github.com/findthatcharity/orgid-cli/internal/orgid"
	"github.com/findthatcharity/orgid-cli/internal/store"
	"github.com/findthatcharity/orgid-cli/internal/tabular"
)

var (
	// ErrNoColumn means no organisation id column was chosen.
	ErrNoColumn = errors.New("enrich: no organisation id column selected")
	// ErrUnknownColumn means the chosen column is not in the header.
	ErrUnknownColumn = errors.New("enrich: column not in header")
)

// Request is one enrichment of one table.
type Request struct {
	Table    *tabular.Table
	Filename string
	Column   string
	Fields   []string
	Progress ProgressFunc
}

// Result is the rebuilt table and what it took to make it.
type Result struct {
	RunID    string
	Table    *tabular.Table
	Filename string
	Fields   []string
	Stats    model.RunStats
	Rebuild  RebuildStats
	Duration time.Duration
}

// Pipeline validates a request, fetches every fingerprint and rebuilds the table.
type Pipeline struct {
	cfg       config.EnrichConfig
	lookup    Lookuper
	store     store.Store
	catalogue *fields.Catalogue
}

// New creates a Pipeline. st may be nil to skip run history; cat may be nil
// for the built-in field catalogue.
func New(cfg config.EnrichConfig, l Lookuper, st store.Store, cat *fields.Catalogue) *Pipeline {
	if cat == nil {
		cat = fields.DefaultCatalogue()
	}
	return &Pipeline{cfg: cfg, lookup: l, store: st, catalogue: cat}
}

// Validate checks that column names a header field of t.
func Validate(t *tabular.Table, column string) error {
	if column == "" {
		return ErrNoColumn
	}
	if t == nil || !t.HasField(column) {
		return eris.Wrapf(ErrUnknownColumn, "column %q", column)
	}
	return nil
}

// Run executes the request.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Table == nil {
		return nil, eris.New("enrich: no table loaded")
	}
	if err := Validate(req.Table, req.Column); err != nil {
		return nil, err
	}

	start := time.Now()
	expanded := p.catalogue.Expand(req.Fields)
	log := zap.L().With(
		zap.String("file", req.Filename),
		zap.String("column", req.Column),
		zap.Strings("fields", expanded),
	)
	log.Info("enrich: starting", zap.Int("rows", len(req.Table.Rows)))

	var runID string
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, req.Filename, req.Column, expanded)
		if err != nil {
			log.Warn("enrich: failed to record run", zap.Error(err))
		} else {
			runID = run.ID
		}
	}

	fps := orgid.Fingerprints(req.Table.Column(req.Column), p.cfg.HashLength)

	fetcher := NewFetcher(p.lookup,
		WithConcurrency(p.cfg.Concurrency),
		WithProgress(req.Progress),
	)
	merged, fs := fetcher.FetchAll(ctx, fps, expanded)

	if err := ctx.Err(); err != nil {
		p.fail(runID, err)
		return nil, eris.Wrap(err, "enrich: cancelled")
	}

	out, rs := Rebuild(req.Table, merged, req.Column, expanded)

	res := &Result{
		RunID:    runID,
		Table:    out,
		Filename: tabular.OutputFilename(req.Filename, p.suffix()),
		Fields:   expanded,
		Rebuild:  rs,
		Stats: model.RunStats{
			Rows:         rs.Rows,
			Fingerprints: len(fps),
			Succeeded:    fs.Succeeded,
			Failed:       fs.Failed,
			Records:      fs.Records,
			MatchedRows:  rs.MatchedRows,
		},
		Duration: time.Since(start),
	}

	if runID != "" {
		if err := p.store.CompleteRun(ctx, runID, res.Stats); err != nil {
			log.Warn("enrich: failed to complete run", zap.Error(err))
		}
	}

	log.Info("enrich: complete",
		zap.Int("fingerprints", res.Stats.Fingerprints),
		zap.Int("failed", res.Stats.Failed),
		zap.Int("matched_rows", res.Stats.MatchedRows),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) suffix() string {
	if p.cfg.OutputSuffix == "" {
		return "-geo"
	}
	return p.cfg.OutputSuffix
}

func (p *Pipeline) fail(runID string, cause error) {
	if runID == "" {
		return
	}
	// The request context is already done here.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.store.FailRun(ctx, runID, cause.Error()); err != nil {
		zap.L().Warn("enrich: failed to mark run failed", zap.String("run_id", runID), zap.Error(err))
	}
}
