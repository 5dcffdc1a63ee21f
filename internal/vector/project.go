// Package vector converts clipped class rasters into dissolved, attributed
// polygon layers and serializes them to GeoJSON and shapefile.
package vector

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// authalicRadius is the radius (meters) of the sphere with the same surface
// area as the WGS84 ellipsoid. Using it keeps sinusoidal areas true.
const authalicRadius = 6371007.181

// webMercatorRadius is the sphere radius of EPSG:3857.
const webMercatorRadius = 6378137.0

// sinusoidal projects geographic coordinates (degrees) onto the world
// sinusoidal plane (meters). The projection is equal-area, which is what
// makes planar ring areas meaningful.
func sinusoidal(lon, lat float64) (x, y float64) {
	latRad := lat * math.Pi / 180
	lonRad := lon * math.Pi / 180
	return authalicRadius * lonRad * math.Cos(latRad), authalicRadius * latRad
}

// ringAreaSinusoidal returns the absolute planar area in m² of a geographic
// ring after sinusoidal projection, using the shoelace formula.
func ringAreaSinusoidal(ring *geom.LinearRing) float64 {
	coords := ring.Coords()
	n := len(coords)
	if n < 4 {
		return 0
	}
	var sum float64
	px, py := sinusoidal(coords[0].X(), coords[0].Y())
	for i := 1; i < n; i++ {
		cx, cy := sinusoidal(coords[i].X(), coords[i].Y())
		sum += px*cy - cx*py
		px, py = cx, cy
	}
	return math.Abs(sum) / 2
}

// PolygonAreaKm2 returns the equal-area surface of a geographic polygon in
// km², with hole rings subtracted.
func PolygonAreaKm2(p *geom.Polygon) float64 {
	var area float64
	for i := 0; i < p.NumLinearRings(); i++ {
		ringArea := ringAreaSinusoidal(p.LinearRing(i))
		if i == 0 {
			area += ringArea
		} else {
			area -= ringArea
		}
	}
	return area / 1e6
}

// MultiPolygonAreaKm2 sums PolygonAreaKm2 over all members.
func MultiPolygonAreaKm2(mp *geom.MultiPolygon) float64 {
	var area float64
	for i := 0; i < mp.NumPolygons(); i++ {
		area += PolygonAreaKm2(mp.Polygon(i))
	}
	return area
}

// ToGeographic reprojects a boundary geometry into EPSG:4326. EPSG:3857 is
// the only other CRS accepted; boundaries from Nominatim arrive as 4326 and
// user-supplied GeoJSON occasionally carries web-mercator coordinates.
func ToGeographic(g geom.T, crs string) (geom.T, error) {
	switch crs {
	case "", "EPSG:4326", "OGC:CRS84", "WGS84":
		return g, nil
	case "EPSG:3857":
		return transformCoords(g, mercatorToGeographic)
	default:
		return nil, eris.Errorf("vector: unsupported boundary CRS %q", crs)
	}
}

func mercatorToGeographic(x, y float64) (float64, float64) {
	lon := x / webMercatorRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/webMercatorRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

// transformCoords applies fn to every vertex of a Polygon or MultiPolygon.
func transformCoords(g geom.T, fn func(x, y float64) (float64, float64)) (geom.T, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		return transformPolygon(t, fn), nil
	case *geom.MultiPolygon:
		out := geom.NewMultiPolygon(geom.XY)
		for i := 0; i < t.NumPolygons(); i++ {
			if err := out.Push(transformPolygon(t.Polygon(i), fn)); err != nil {
				return nil, eris.Wrap(err, "vector: rebuild multipolygon")
			}
		}
		return out, nil
	default:
		return nil, eris.Errorf("vector: cannot transform geometry type %T", g)
	}
}

func transformPolygon(p *geom.Polygon, fn func(x, y float64) (float64, float64)) *geom.Polygon {
	coords := make([][]geom.Coord, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := p.LinearRing(i).Coords()
		out := make([]geom.Coord, len(ring))
		for j, c := range ring {
			x, y := fn(c.X(), c.Y())
			out[j] = geom.Coord{x, y}
		}
		coords[i] = out
	}
	return geom.NewPolygon(geom.XY).MustSetCoords(coords)
}
