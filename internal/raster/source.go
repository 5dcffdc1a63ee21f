package raster

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urbanclimate-lab/lczmap/internal/errs"
	"github.com/urbanclimate-lab/lczmap/internal/resilience"
)

// Source fetches clipped windows of the remote global classified raster.
type Source struct {
	URL    string
	Client *http.Client
	Retry  resilience.Policy
}

// FetchOptions controls optional acquisition side effects.
type FetchOptions struct {
	SaveClip   bool
	SaveGlobal bool
	OutputDir  string
}

// Clip artifact filenames inside the output directory.
const (
	ClipFileName   = "lcz_map.tif"
	GlobalFileName = "lcz_global_map.tif"
)

// NewSource returns a Source for the given raster URL.
func NewSource(url string, policy resilience.Policy) *Source {
	return &Source{
		URL:    url,
		Client: &http.Client{Timeout: 60 * time.Second},
		Retry:  policy,
	}
}

// Fetch clips the remote raster to the boundary (already reprojected to the
// raster's CRS) with all-touched inclusion and returns the in-memory grid.
// A clip that contains no valid pixel fails with *errs.DataProcessingError:
// the area lies outside source coverage or the boundary resolution was wrong.
func (s *Source) Fetch(ctx context.Context, boundary geom.T, opts FetchOptions) (*Grid, error) {
	log := zap.L().With(zap.String("component", "raster.source"), zap.String("url", s.URL))

	rr, err := NewRangeReader(ctx, s.Client, s.URL, s.Retry)
	if err != nil {
		return nil, err
	}

	tif, err := OpenTIFF(rr)
	if err != nil {
		return nil, errs.NewDataError("open source raster", err)
	}

	w, h := tif.Size()
	log.Debug("opened source raster",
		zap.Int("width", w),
		zap.Int("height", h),
		zap.String("crs", tif.CRS()),
	)

	col0, row0, winW, winH, err := WindowFor(boundary, tif.Transform(), w, h)
	if err != nil {
		return nil, errs.NewDataError("compute clip window", err)
	}

	grid, err := tif.ReadWindow(col0, row0, winW, winH)
	if err != nil {
		if errs.CategoryOf(err) != "" {
			return nil, err
		}
		return nil, errs.NewDataError("read clip window", err)
	}

	kept, err := MaskAllTouched(grid, boundary)
	if err != nil {
		return nil, errs.NewDataError("mask boundary", err)
	}
	if grid.CountValid() == 0 {
		return nil, errs.NewDataError("clip result",
			eris.New("clipped area contains no classified pixels; the area may lie outside source coverage or the boundary resolution was wrong"))
	}

	log.Info("clipped raster",
		zap.Int("window_width", winW),
		zap.Int("window_height", winH),
		zap.Int("cells_kept", kept),
		zap.Int("valid_pixels", grid.CountValid()),
	)

	if err := s.saveArtifacts(ctx, grid, opts); err != nil {
		return nil, err
	}
	return grid, nil
}

func (s *Source) saveArtifacts(ctx context.Context, grid *Grid, opts FetchOptions) error {
	if !opts.SaveClip && !opts.SaveGlobal {
		return nil
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return eris.Wrap(err, "raster: create output dir")
	}

	if opts.SaveClip {
		path := filepath.Join(opts.OutputDir, ClipFileName)
		if err := SaveTIFF(path, grid); err != nil {
			return err
		}
		zap.L().Info("saved clipped raster", zap.String("path", path))
	}
	if opts.SaveGlobal {
		if _, err := DownloadTo(ctx, s.Client, s.URL, filepath.Join(opts.OutputDir, GlobalFileName)); err != nil {
			return err
		}
	}
	return nil
}
