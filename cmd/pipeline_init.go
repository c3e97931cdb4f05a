package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/findthatcharity/orgid-cli/internal/enrich"
	"github.com/findthatcharity/orgid-cli/internal/fields"
	"github.com/findthatcharity/orgid-cli/internal/resilience"
	"github.com/findthatcharity/orgid-cli/internal/store"
	"github.com/findthatcharity/orgid-cli/pkg/ftc"
)

// pipelineEnv holds the store, API client, field catalogue and pipeline
// needed by the enrich and serve commands.
type pipelineEnv struct {
	Store     store.Store // may be nil
	Client    ftc.Client
	Catalogue *fields.Catalogue
	Pipeline  *enrich.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// newClient builds the lookup service client from config.
func newClient() ftc.Client {
	return ftc.NewClient(
		ftc.WithBaseURL(cfg.API.BaseURL),
		ftc.WithPaths(ftc.Paths{
			Lookup:          cfg.API.LookupPath,
			Autocomplete:    cfg.API.AutocompletePath,
			Propose:         cfg.API.ProposePath,
			FallbackPropose: cfg.API.FallbackProposePath,
		}),
		ftc.WithTimeout(time.Duration(cfg.API.TimeoutSecs)*time.Second),
		ftc.WithRateLimit(cfg.API.RequestsPerSecond),
		ftc.WithUserAgent(cfg.API.UserAgent),
		ftc.WithRetry(resilience.LookupPolicy(cfg.Enrich.MaxAttempts)),
	)
}

// loadCatalogue returns the configured field catalogue, or the built-in one.
func loadCatalogue() (*fields.Catalogue, error) {
	if cfg.Fields.CataloguePath == "" {
		return fields.DefaultCatalogue(), nil
	}
	return fields.LoadCatalogue(cfg.Fields.CataloguePath)
}

// initPipeline validates config for mode, opens the store and builds the
// Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	cat, err := loadCatalogue()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st != nil {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}

	client := newClient()

	var lookup enrich.Lookuper = client
	if st != nil && cfg.Cache.TTLHours > 0 {
		lookup = enrich.NewCachedLookuper(client, st, time.Duration(cfg.Cache.TTLHours)*time.Hour)
	}

	zap.L().Debug("pipeline initialized",
		zap.String("base_url", cfg.API.BaseURL),
		zap.String("store", cfg.Store.Driver),
		zap.Int("concurrency", cfg.Enrich.Concurrency),
	)

	return &pipelineEnv{
		Store:     st,
		Client:    client,
		Catalogue: cat,
		Pipeline:  enrich.New(cfg.Enrich, lookup, st, cat),
	}, nil
}
