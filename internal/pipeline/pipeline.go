// Package pipeline orchestrates a full analysis: boundary resolution, raster
// acquisition, aggregation, vectorization, statistics and artifact export.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanclimate-lab/lczmap/internal/raster"
	"github.com/urbanclimate-lab/lczmap/internal/stats"
	"github.com/urbanclimate-lab/lczmap/internal/store"
	"github.com/urbanclimate-lab/lczmap/internal/validate"
	"github.com/urbanclimate-lab/lczmap/internal/vector"
	"github.com/urbanclimate-lab/lczmap/pkg/geocode"
)

// Request describes one analysis to run.
type Request struct {
	Boundary BoundarySource
	// Factor is the aggregation block size; 1 keeps native resolution.
	Factor int
	// OutputDir receives the requested artifacts.
	OutputDir string

	SaveClip        bool
	SaveGlobal      bool
	ExportGeoJSON   bool
	ExportShapefile bool
	ExportXLSX      bool
	ExportChart     bool
}

// Result is the outcome of a completed analysis.
type Result struct {
	RunID       string                `json:"run_id,omitempty"`
	Place       string                `json:"place"`
	DisplayName string                `json:"display_name"`
	Polygons    []vector.ClassPolygon `json:"polygons"`
	Records     []stats.Record        `json:"records"`
	Summary     stats.Summary         `json:"summary"`
	Report      validate.Report       `json:"report"`
	Artifacts   []string              `json:"artifacts,omitempty"`
	Elapsed     time.Duration         `json:"elapsed"`
}

// Pipeline wires the stages together. The store is optional; without one,
// runs are not recorded and boundaries are not cached.
type Pipeline struct {
	geocoder    geocode.Client
	source      *raster.Source
	store       store.Store
	workers     int
	boundaryTTL time.Duration
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithStore attaches run persistence and boundary caching.
func WithStore(s store.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithWorkers sets the aggregation parallelism.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithBoundaryTTL overrides how long cached boundaries stay valid.
func WithBoundaryTTL(ttl time.Duration) Option {
	return func(p *Pipeline) { p.boundaryTTL = ttl }
}

// New builds a pipeline from its two mandatory stages.
func New(geocoder geocode.Client, source *raster.Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		geocoder:    geocoder,
		source:      source,
		boundaryTTL: defaultBoundaryTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the full analysis. Failures are recorded against the run when
// a store is attached, then returned unchanged.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("boundary", req.Boundary.Label()))

	if req.Factor < 1 {
		return nil, eris.Errorf("pipeline: aggregation factor %d, want >= 1", req.Factor)
	}

	var runID string
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, req.Boundary.Label(), req.Factor)
		if err != nil {
			return nil, err
		}
		runID = run.ID
	}

	res, err := p.run(ctx, req, log)
	if p.store != nil && runID != "" {
		if err != nil {
			if ferr := p.store.FailRun(ctx, runID, err); ferr != nil {
				log.Warn("could not record run failure", zap.Error(ferr))
			}
		} else {
			res.RunID = runID
			if cerr := p.store.CompleteRun(ctx, runID, res.DisplayName, &store.RunResult{
				Summary:   res.Summary,
				Records:   res.Records,
				Report:    res.Report,
				Artifacts: res.Artifacts,
			}); cerr != nil {
				log.Warn("could not record run result", zap.Error(cerr))
			}
		}
	}
	if err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	log.Info("analysis complete",
		zap.String("display_name", res.DisplayName),
		zap.Int("classes", res.Summary.ClassCount),
		zap.Int("polygons", res.Summary.PolygonCount),
		zap.Float64("total_km2", res.Summary.GrandTotalKm2),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// Fetch resolves the boundary and saves the clipped raster without running
// the vector stages. It returns the artifact paths.
func (p *Pipeline) Fetch(ctx context.Context, req Request) ([]string, error) {
	boundary, displayName, err := p.resolveBoundary(ctx, req.Boundary)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "pipeline: create output dir")
	}
	if _, err := p.source.Fetch(ctx, boundary, raster.FetchOptions{
		SaveClip:   true,
		SaveGlobal: req.SaveGlobal,
		OutputDir:  req.OutputDir,
	}); err != nil {
		return nil, err
	}

	artifacts := []string{filepath.Join(req.OutputDir, raster.ClipFileName)}
	if req.SaveGlobal {
		artifacts = append(artifacts, filepath.Join(req.OutputDir, raster.GlobalFileName))
	}
	zap.L().Info("raster fetched",
		zap.String("boundary", req.Boundary.Label()),
		zap.String("display_name", displayName),
		zap.Strings("artifacts", artifacts),
	)
	return artifacts, nil
}

func (p *Pipeline) run(ctx context.Context, req Request, log *zap.Logger) (*Result, error) {
	boundary, displayName, err := p.resolveBoundary(ctx, req.Boundary)
	if err != nil {
		return nil, err
	}
	log.Debug("boundary resolved", zap.String("display_name", displayName))

	grid, err := p.source.Fetch(ctx, boundary, raster.FetchOptions{
		SaveClip:   req.SaveClip,
		SaveGlobal: req.SaveGlobal,
		OutputDir:  req.OutputDir,
	})
	if err != nil {
		return nil, err
	}

	if req.Factor > 1 {
		grid, err = raster.Aggregate(ctx, grid, req.Factor, p.workers)
		if err != nil {
			return nil, err
		}
		log.Debug("raster aggregated",
			zap.Int("factor", req.Factor),
			zap.Int("width", grid.Width),
			zap.Int("height", grid.Height),
		)
	}

	features, err := vector.Vectorize(ctx, grid)
	if err != nil {
		return nil, err
	}
	polys, err := vector.Dissolve(features)
	if err != nil {
		return nil, err
	}

	report := validate.Check(polys)
	records, err := stats.Compute(polys)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Place:       req.Boundary.Label(),
		DisplayName: displayName,
		Polygons:    polys,
		Records:     records,
		Summary:     stats.Summarize(records),
		Report:      report,
	}

	artifacts, err := p.export(req, res)
	if err != nil {
		return nil, err
	}
	res.Artifacts = artifacts
	if req.SaveClip {
		res.Artifacts = append(res.Artifacts, filepath.Join(req.OutputDir, raster.ClipFileName))
	}
	if req.SaveGlobal {
		res.Artifacts = append(res.Artifacts, filepath.Join(req.OutputDir, raster.GlobalFileName))
	}
	return res, nil
}

// export writes the requested artifacts and returns their paths.
func (p *Pipeline) export(req Request, res *Result) ([]string, error) {
	if !req.ExportGeoJSON && !req.ExportShapefile && !req.ExportXLSX && !req.ExportChart {
		return nil, nil
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "pipeline: create output dir")
	}

	var artifacts []string
	if req.ExportGeoJSON {
		path := filepath.Join(req.OutputDir, vector.GeoJSONFileName)
		if err := vector.WriteGeoJSON(path, res.Polygons); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, path)
	}
	if req.ExportShapefile {
		path := filepath.Join(req.OutputDir, vector.ShapefileBaseName)
		if err := vector.WriteShapefile(path, res.Polygons); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, path)
	}
	if req.ExportXLSX {
		path := filepath.Join(req.OutputDir, stats.XLSXFileName)
		if err := stats.WriteXLSX(path, res.Records); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, path)
	}
	if req.ExportChart {
		path := filepath.Join(req.OutputDir, stats.ChartFileName)
		if err := stats.SaveCharts(path, res.DisplayName, res.Records); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, path)
	}
	return artifacts, nil
}
