package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/urbanclimate-lab/lczmap/internal/pipeline"
	"github.com/urbanclimate-lab/lczmap/internal/raster"
	"github.com/urbanclimate-lab/lczmap/internal/resilience"
	"github.com/urbanclimate-lab/lczmap/internal/store"
	"github.com/urbanclimate-lab/lczmap/pkg/geocode"
)

// pipelineEnv holds the initialized store, clients, and pipeline needed by
// the analyze/fetch/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Geocoder geocode.Client
	Source   *raster.Source
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the run-history database and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initGeocoder builds the Nominatim client from configuration.
func initGeocoder() geocode.Client {
	return geocode.New(
		geocode.WithBaseURL(cfg.Geocode.BaseURL),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithRateLimit(cfg.Geocode.RateRPS),
		geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Geocode.TimeoutSecs) * time.Second}),
		geocode.WithRetryPolicy(geocodePolicy()),
	)
}

// initSource builds the remote raster source from configuration.
func initSource() *raster.Source {
	policy := resilience.DefaultPolicy()
	if cfg.Source.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Source.MaxAttempts
	}
	policy.OnRetry = resilience.LogRetries("raster", "range read")

	src := raster.NewSource(cfg.Source.URL, policy)
	if cfg.Source.TimeoutSecs > 0 {
		src.Client = &http.Client{Timeout: time.Duration(cfg.Source.TimeoutSecs) * time.Second}
	}
	return src
}

func geocodePolicy() resilience.Policy {
	policy := resilience.DefaultPolicy()
	if cfg.Geocode.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Geocode.MaxAttempts
	}
	policy.OnRetry = resilience.LogRetries("geocode", "search")
	return policy
}

// initPipeline sets up the store, geocoder, raster source, and pipeline.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	geocoder := initGeocoder()
	source := initSource()

	p := pipeline.New(geocoder, source,
		pipeline.WithStore(st),
		pipeline.WithWorkers(cfg.Aggregate.Workers),
	)

	return &pipelineEnv{
		Store:    st,
		Geocoder: geocoder,
		Source:   source,
		Pipeline: p,
	}, nil
}
