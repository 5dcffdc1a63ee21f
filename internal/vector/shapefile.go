package vector

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ShapefileBaseName is the stem of the shapefile artifact (go-shp writes the
// .shp, .shx and .dbf siblings itself).
const ShapefileBaseName = "map_lcz.shp"

// WriteShapefile exports the dissolved layer as an ESRI shapefile, one record
// per class polygon. Hole rings are written in reverse vertex order as the
// format requires.
func WriteShapefile(path string, polys []ClassPolygon) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrap(err, "vector: create shapefile")
	}
	defer w.Close()

	w.SetFields([]shp.Field{
		shp.StringField("SYMBOL", 16),
		shp.NumberField("CODE", 4),
		shp.FloatField("AREA_KM2", 19, 6),
		shp.NumberField("NPOLY", 9),
		shp.StringField("DESC", 128),
	})

	for row, cp := range polys {
		shape := multiPolygonToShape(cp.Geometry)
		w.Write(shape)
		if err := w.WriteAttribute(row, 0, cp.Symbol); err != nil {
			return eris.Wrapf(err, "vector: write attribute row %d", row)
		}
		if err := w.WriteAttribute(row, 1, cp.Code); err != nil {
			return eris.Wrapf(err, "vector: write attribute row %d", row)
		}
		if err := w.WriteAttribute(row, 2, cp.AreaKm2); err != nil {
			return eris.Wrapf(err, "vector: write attribute row %d", row)
		}
		if err := w.WriteAttribute(row, 3, cp.PolygonCount); err != nil {
			return eris.Wrapf(err, "vector: write attribute row %d", row)
		}
		if err := w.WriteAttribute(row, 4, cp.Description); err != nil {
			return eris.Wrapf(err, "vector: write attribute row %d", row)
		}
	}
	return nil
}

// multiPolygonToShape flattens a multipolygon into one shapefile polygon
// record. Shell rings are emitted clockwise, holes counter-clockwise.
func multiPolygonToShape(mp *geom.MultiPolygon) *shp.Polygon {
	var points []shp.Point
	var parts []int32

	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		for r := 0; r < p.NumLinearRings(); r++ {
			coords := p.LinearRing(r).Coords()
			ring := make([]shp.Point, len(coords))
			for j, c := range coords {
				ring[j] = shp.Point{X: c.X(), Y: c.Y()}
			}
			if shouldReverse(coords, r == 0) {
				for a, b := 0, len(ring)-1; a < b; a, b = a+1, b-1 {
					ring[a], ring[b] = ring[b], ring[a]
				}
			}
			parts = append(parts, int32(len(points)))
			points = append(points, ring...)
		}
	}

	poly := shp.Polygon{
		Box:       boundsOf(points),
		NumParts:  int32(len(parts)),
		NumPoints: int32(len(points)),
		Parts:     parts,
		Points:    points,
	}
	return &poly
}

// shouldReverse reports whether a ring's vertex order must flip to satisfy
// the shapefile convention (shells clockwise, holes counter-clockwise).
func shouldReverse(coords []geom.Coord, shell bool) bool {
	var sum float64
	for i := 0; i < len(coords)-1; i++ {
		sum += (coords[i+1].X() - coords[i].X()) * (coords[i+1].Y() + coords[i].Y())
	}
	clockwise := sum > 0
	return clockwise != shell
}

func boundsOf(points []shp.Point) shp.Box {
	if len(points) == 0 {
		return shp.Box{}
	}
	b := shp.Box{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points[1:] {
		if p.X < b.MinX {
			b.MinX = p.X
		}
		if p.Y < b.MinY {
			b.MinY = p.Y
		}
		if p.X > b.MaxX {
			b.MaxX = p.X
		}
		if p.Y > b.MaxY {
			b.MaxY = p.Y
		}
	}
	return b
}
