package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/urbanclimate-lab/lczmap/internal/vector"
)

// BoundarySource designates where the analysis boundary comes from. The set
// of implementations is closed: a place name to geocode, an in-memory
// polygon, or a GeoJSON file on disk.
type BoundarySource interface {
	boundarySource()
	// Label is the human-readable identity used in logs and run records.
	Label() string
}

// PlaceName resolves the boundary through the geocoder.
type PlaceName struct {
	Name string
}

func (PlaceName) boundarySource() {}

func (p PlaceName) Label() string { return p.Name }

// BoundaryPolygon supplies the boundary directly.
type BoundaryPolygon struct {
	Geom geom.T
	CRS  string
}

func (BoundaryPolygon) boundarySource() {}

func (BoundaryPolygon) Label() string { return "custom boundary" }

// BoundaryFile reads the boundary from a GeoJSON file.
type BoundaryFile struct {
	Path string
}

func (BoundaryFile) boundarySource() {}

func (b BoundaryFile) Label() string { return b.Path }

// resolveBoundary turns any boundary source into a geographic geometry plus
// the display name to attach to the run.
func (p *Pipeline) resolveBoundary(ctx context.Context, src BoundarySource) (geom.T, string, error) {
	switch s := src.(type) {
	case PlaceName:
		return p.resolvePlace(ctx, s.Name)
	case BoundaryPolygon:
		g, err := vector.ToGeographic(s.Geom, s.CRS)
		if err != nil {
			return nil, "", err
		}
		return g, s.Label(), nil
	case BoundaryFile:
		g, err := vector.ReadBoundaryGeoJSON(s.Path)
		if err != nil {
			return nil, "", err
		}
		return g, s.Path, nil
	default:
		return nil, "", eris.Errorf("pipeline: unknown boundary source %T", src)
	}
}

// resolvePlace geocodes a place name, using the boundary cache when a store
// is attached.
func (p *Pipeline) resolvePlace(ctx context.Context, place string) (geom.T, string, error) {
	if p.store != nil {
		cached, displayName, err := p.store.GetCachedBoundary(ctx, place)
		if err != nil {
			zap.L().Warn("boundary cache read failed", zap.String("place", place), zap.Error(err))
		} else if cached != nil {
			var g geom.T
			if err := geomjson.Unmarshal(cached, &g); err == nil {
				zap.L().Debug("boundary cache hit", zap.String("place", place))
				return g, displayName, nil
			}
			zap.L().Warn("boundary cache entry unreadable", zap.String("place", place))
		}
	}

	b, err := p.geocoder.Boundary(ctx, place)
	if err != nil {
		return nil, "", err
	}
	g, err := vector.ToGeographic(b.Geom, b.CRS)
	if err != nil {
		return nil, "", err
	}

	if p.store != nil {
		if data, err := marshalBoundary(g); err == nil {
			if err := p.store.SetCachedBoundary(ctx, place, b.DisplayName, data, p.boundaryTTL); err != nil {
				zap.L().Warn("boundary cache write failed", zap.String("place", place), zap.Error(err))
			}
		}
	}
	return g, b.DisplayName, nil
}

func marshalBoundary(g geom.T) ([]byte, error) {
	data, err := geomjson.Marshal(g)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: marshal boundary")
	}
	return data, nil
}

// defaultBoundaryTTL keeps cached boundaries for a month; administrative
// borders change rarely.
const defaultBoundaryTTL = 30 * 24 * time.Hour
