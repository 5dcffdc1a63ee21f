package vector

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"
)

// GeoJSONFileName is the vector artifact written next to the raster clips.
const GeoJSONFileName = "map_lcz.geojson"

// ToFeatureCollection renders the dissolved layer as a GeoJSON feature
// collection, one feature per class, attributes carried as properties.
func ToFeatureCollection(polys []ClassPolygon) *geomjson.FeatureCollection {
	fc := &geomjson.FeatureCollection{}
	for _, cp := range polys {
		fc.Features = append(fc.Features, &geomjson.Feature{
			ID:       cp.Symbol,
			Geometry: cp.Geometry,
			Properties: map[string]interface{}{
				"code":                     cp.Code,
				"symbol":                   cp.Symbol,
				"description":              cp.Description,
				"thermal_effect":           cp.ThermalEffect,
				"heat_island_contribution": cp.HeatIslandContribution,
				"recommended_intervention": cp.RecommendedIntervention,
				"color":                    cp.Color,
				"area_km2":                 cp.AreaKm2,
				"polygon_count":            cp.PolygonCount,
			},
		})
	}
	return fc
}

// WriteGeoJSON writes the dissolved layer to path as a feature collection.
func WriteGeoJSON(path string, polys []ClassPolygon) error {
	fc := ToFeatureCollection(polys)
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "vector: marshal geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "vector: write geojson")
	}
	return nil
}

// ReadGeoJSON reads a previously written layer back into ClassPolygon values,
// so statistics, validation and charts can run on an existing dataset.
func ReadGeoJSON(path string) ([]ClassPolygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "vector: read geojson")
	}

	var fc geomjson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "vector: parse geojson")
	}

	polys := make([]ClassPolygon, 0, len(fc.Features))
	for i, f := range fc.Features {
		var mp *geom.MultiPolygon
		switch g := f.Geometry.(type) {
		case *geom.MultiPolygon:
			mp = g
		case *geom.Polygon:
			mp = geom.NewMultiPolygon(g.Layout())
			if err := mp.Push(g); err != nil {
				return nil, eris.Wrapf(err, "vector: feature %d", i)
			}
		default:
			return nil, eris.Errorf("vector: feature %d has non-polygonal geometry", i)
		}

		cp := ClassPolygon{
			Code:                    int(propFloat(f.Properties, "code")),
			Symbol:                  propString(f.Properties, "symbol"),
			Description:             propString(f.Properties, "description"),
			ThermalEffect:           propString(f.Properties, "thermal_effect"),
			HeatIslandContribution:  propString(f.Properties, "heat_island_contribution"),
			RecommendedIntervention: propString(f.Properties, "recommended_intervention"),
			Color:                   propString(f.Properties, "color"),
			AreaKm2:                 propFloat(f.Properties, "area_km2"),
			PolygonCount:            int(propFloat(f.Properties, "polygon_count")),
			Geometry:                mp,
		}
		polys = append(polys, cp)
	}
	return polys, nil
}

func propString(props map[string]interface{}, key string) string {
	s, _ := props[key].(string)
	return s
}

func propFloat(props map[string]interface{}, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	case int:
		return float64(v)
	}
	return 0
}

// ReadBoundaryGeoJSON parses a user-supplied boundary file. The first areal
// geometry wins: a bare geometry, a feature, or the first polygonal feature
// of a collection.
func ReadBoundaryGeoJSON(path string) (geom.T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "vector: read boundary file")
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, eris.Wrap(err, "vector: parse boundary file")
	}

	switch probe.Type {
	case "FeatureCollection":
		var fc geomjson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, eris.Wrap(err, "vector: parse feature collection")
		}
		for _, f := range fc.Features {
			if isAreal(f.Geometry) {
				return f.Geometry, nil
			}
		}
		return nil, eris.New("vector: boundary file has no polygon feature")
	case "Feature":
		var f geomjson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrap(err, "vector: parse feature")
		}
		if !isAreal(f.Geometry) {
			return nil, eris.New("vector: boundary feature is not a polygon")
		}
		return f.Geometry, nil
	default:
		var g geom.T
		if err := geomjson.Unmarshal(data, &g); err != nil {
			return nil, eris.Wrap(err, "vector: parse geometry")
		}
		if !isAreal(g) {
			return nil, eris.New("vector: boundary geometry is not a polygon")
		}
		return g, nil
	}
}

func isAreal(g geom.T) bool {
	switch g.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
		return true
	}
	return false
}
