package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/urbanclimate-lab/lczmap/internal/errs"
	"github.com/urbanclimate-lab/lczmap/internal/resilience"
)

// nominatimResult is one entry of the Nominatim search response.
type nominatimResult struct {
	DisplayName string          `json:"display_name"`
	Class       string          `json:"class"`
	Type        string          `json:"type"`
	GeoJSON     json.RawMessage `json:"geojson"`
}

// Boundary resolves a place name, trying progressively relaxed query
// formulations. Each formulation is retried on transient failures before
// moving to the next one.
func (g *geocoder) Boundary(ctx context.Context, place string) (*Boundary, error) {
	formulations := Reformulate(place)
	log := zap.L().With(zap.String("component", "geocode"), zap.String("place", place))

	var lastErr error
	for attempt, query := range formulations {
		b, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*Boundary, error) {
			return g.search(ctx, query)
		})
		if err == nil {
			if attempt > 0 {
				log.Info("place resolved after reformulation",
					zap.String("query", query),
					zap.String("matched", b.DisplayName),
				)
			}
			return b, nil
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "geocode: boundary")
		}
		log.Debug("formulation failed", zap.String("query", query), zap.Error(err))
		lastErr = err
	}

	return nil, errs.NewGeocodeError(place, len(formulations), lastErr)
}

// search performs a single Nominatim query and returns the top polygon match.
func (g *geocoder) search(ctx context.Context, query string) (*Boundary, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"q":               {query},
		"format":          {"jsonv2"},
		"polygon_geojson": {"1"},
		"limit":           {"1"},
	}
	reqURL := g.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "geocode: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "geocode: read body"), 0)
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	if len(results) == 0 {
		return nil, eris.Errorf("geocode: no match for %q", query)
	}

	top := results[0]
	if len(top.GeoJSON) == 0 {
		return nil, eris.Errorf("geocode: match %q carries no geometry", top.DisplayName)
	}

	var gm geom.T
	if err := geomjson.Unmarshal(top.GeoJSON, &gm); err != nil {
		return nil, eris.Wrap(err, "geocode: decode geometry")
	}
	switch gm.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
	default:
		return nil, eris.Errorf("geocode: match %q has no areal boundary (class=%s type=%s)",
			top.DisplayName, top.Class, top.Type)
	}

	return &Boundary{
		DisplayName: top.DisplayName,
		Geom:        gm,
		CRS:         "EPSG:4326",
	}, nil
}
