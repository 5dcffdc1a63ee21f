package raster

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// polygonRings flattens a Polygon or MultiPolygon into its linear rings.
func polygonRings(g geom.T) ([][]geom.Coord, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		rings := make([][]geom.Coord, 0, t.NumLinearRings())
		for i := 0; i < t.NumLinearRings(); i++ {
			rings = append(rings, t.LinearRing(i).Coords())
		}
		return rings, nil
	case *geom.MultiPolygon:
		var rings [][]geom.Coord
		for i := 0; i < t.NumPolygons(); i++ {
			p := t.Polygon(i)
			for j := 0; j < p.NumLinearRings(); j++ {
				rings = append(rings, p.LinearRing(j).Coords())
			}
		}
		return rings, nil
	default:
		return nil, eris.Errorf("raster: unsupported boundary geometry %T", g)
	}
}

// WindowFor computes the pixel window (col0, row0, width, height) covering
// the boundary's bounding box under the given transform, clamped to the
// raster extent.
func WindowFor(boundary geom.T, transform Affine, rasterW, rasterH int) (col0, row0, w, h int, err error) {
	b := boundary.Bounds()

	c1, r1, err := transform.Invert(b.Min(0), b.Min(1))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	c2, r2, err := transform.Invert(b.Max(0), b.Max(1))
	if err != nil {
		return 0, 0, 0, 0, err
	}

	minC := int(math.Floor(math.Min(c1, c2)))
	maxC := int(math.Ceil(math.Max(c1, c2)))
	minR := int(math.Floor(math.Min(r1, r2)))
	maxR := int(math.Ceil(math.Max(r1, r2)))

	if minC < 0 {
		minC = 0
	}
	if minR < 0 {
		minR = 0
	}
	if maxC > rasterW {
		maxC = rasterW
	}
	if maxR > rasterH {
		maxR = rasterH
	}
	if maxC <= minC || maxR <= minR {
		return 0, 0, 0, 0, eris.New("raster: boundary does not intersect raster extent")
	}
	return minC, minR, maxC - minC, maxR - minR, nil
}

// MaskAllTouched sets every pixel of g that is outside the boundary to the
// nodata sentinel, using all-touched inclusion: a pixel is kept if its cell
// is crossed by a boundary edge or its center falls inside the polygon.
// Returns the number of pixels kept (nodata source pixels count as kept cells
// but retain their nodata value).
func MaskAllTouched(g *Grid, boundary geom.T) (int, error) {
	rings, err := polygonRings(boundary)
	if err != nil {
		return 0, err
	}

	inside := make([]bool, g.Width*g.Height)

	// Pixel-center containment by even-odd ray casting, one scanline at a
	// time so each ring edge list is walked once per row.
	for row := 0; row < g.Height; row++ {
		_, y := g.Transform.Apply(0, float64(row)+0.5)
		var xs []float64
		for _, ring := range rings {
			for i := 0; i < len(ring)-1; i++ {
				y1, y2 := ring[i][1], ring[i+1][1]
				if (y1 > y) == (y2 > y) {
					continue
				}
				t := (y - y1) / (y2 - y1)
				xs = append(xs, ring[i][0]+t*(ring[i+1][0]-ring[i][0]))
			}
		}
		if len(xs) == 0 {
			continue
		}
		for col := 0; col < g.Width; col++ {
			x, _ := g.Transform.Apply(float64(col)+0.5, float64(row)+0.5)
			crossings := 0
			for _, cx := range xs {
				if cx > x {
					crossings++
				}
			}
			if crossings%2 == 1 {
				inside[row*g.Width+col] = true
			}
		}
	}

	// All-touched: additionally keep every cell a boundary edge passes
	// through.
	for _, ring := range rings {
		for i := 0; i < len(ring)-1; i++ {
			if err := g.markSegment(inside, ring[i], ring[i+1]); err != nil {
				return 0, err
			}
		}
	}

	kept := 0
	for i, in := range inside {
		if in {
			kept++
		} else {
			g.Data[i] = g.NoData
		}
	}
	return kept, nil
}

// markSegment marks all cells the geo-space segment a-b passes through. The
// segment is sampled at quarter-pixel resolution in pixel space, which covers
// every crossed cell except degenerate corner grazes.
func (g *Grid) markSegment(mask []bool, a, b geom.Coord) error {
	c0, r0, err := g.Transform.Invert(a[0], a[1])
	if err != nil {
		return err
	}
	c1, r1, err := g.Transform.Invert(b[0], b[1])
	if err != nil {
		return err
	}

	steps := int(math.Ceil(math.Max(math.Abs(c1-c0), math.Abs(r1-r0))*4)) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		col := int(math.Floor(c0 + t*(c1-c0)))
		row := int(math.Floor(r0 + t*(r1-r0)))
		if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
			continue
		}
		mask[row*g.Width+col] = true
	}
	return nil
}
