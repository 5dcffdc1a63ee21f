package vector

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/urbanclimate-lab/lczmap/internal/raster"
)

// Feature is one connected same-class raster region as a polygon in the
// grid's CRS.
type Feature struct {
	Code     uint8
	Geometry *geom.Polygon
}

// Vectorize extracts every 4-connected region of same-class pixels from the
// grid as a polygon with holes. Nodata pixels produce no geometry. Features
// come back ordered by class code, then by region discovery order (row-major
// scan), so the output is deterministic for a given grid.
func Vectorize(ctx context.Context, g *raster.Grid) ([]Feature, error) {
	if g.Width <= 0 || g.Height <= 0 {
		return nil, eris.New("vector: empty grid")
	}

	labels := make([]int32, g.Width*g.Height)
	var features []Feature

	next := int32(0)
	queue := make([]int, 0, 256)
	for row := 0; row < g.Height; row++ {
		if row%64 == 0 && ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "vector: vectorize")
		}
		for col := 0; col < g.Width; col++ {
			idx := row*g.Width + col
			v := g.Data[idx]
			if v == g.NoData || labels[idx] != 0 {
				continue
			}
			next++
			cells := floodFill(g, labels, next, idx, queue)
			poly, err := regionPolygon(g, labels, next, cells)
			if err != nil {
				return nil, err
			}
			features = append(features, Feature{Code: v, Geometry: poly})
		}
	}

	sort.SliceStable(features, func(i, j int) bool {
		return features[i].Code < features[j].Code
	})
	return features, nil
}

// floodFill labels the 4-connected region containing start and returns its
// cell indices.
func floodFill(g *raster.Grid, labels []int32, label int32, start int, queue []int) []int {
	v := g.Data[start]
	labels[start] = label
	queue = append(queue[:0], start)
	cells := []int{start}

	for len(queue) > 0 {
		idx := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		row, col := idx/g.Width, idx%g.Width

		for _, d := range [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}} {
			nr, nc := row+d[0], col+d[1]
			if nr < 0 || nr >= g.Height || nc < 0 || nc >= g.Width {
				continue
			}
			nidx := nr*g.Width + nc
			if labels[nidx] != 0 || g.Data[nidx] != v {
				continue
			}
			labels[nidx] = label
			queue = append(queue, nidx)
			cells = append(cells, nidx)
		}
	}
	return cells
}

// vertex is a lattice corner between pixels; (0,0) is the top-left corner of
// pixel (0,0).
type vertex struct {
	col, row int
}

// regionPolygon walks the boundary of a labeled region and assembles the
// resulting rings into a polygon. The largest ring is the shell, every other
// ring is a hole.
func regionPolygon(g *raster.Grid, labels []int32, label int32, cells []int) (*geom.Polygon, error) {
	// Directed boundary edges, clockwise around the region in pixel space.
	edges := make(map[vertex][]vertex)
	addEdge := func(from, to vertex) {
		edges[from] = append(edges[from], to)
	}
	inRegion := func(row, col int) bool {
		if row < 0 || row >= g.Height || col < 0 || col >= g.Width {
			return false
		}
		return labels[row*g.Width+col] == label
	}

	for _, idx := range cells {
		row, col := idx/g.Width, idx%g.Width
		if !inRegion(row-1, col) {
			addEdge(vertex{col, row}, vertex{col + 1, row})
		}
		if !inRegion(row, col+1) {
			addEdge(vertex{col + 1, row}, vertex{col + 1, row + 1})
		}
		if !inRegion(row+1, col) {
			addEdge(vertex{col + 1, row + 1}, vertex{col, row + 1})
		}
		if !inRegion(row, col-1) {
			addEdge(vertex{col, row + 1}, vertex{col, row})
		}
	}

	rings := stitchRings(edges)
	if len(rings) == 0 {
		return nil, eris.New("vector: region produced no boundary")
	}

	// The shell encloses every hole, so it has the largest magnitude.
	shell := 0
	shellArea := 0.0
	areas := make([]float64, len(rings))
	for i, ring := range rings {
		areas[i] = pixelRingArea(ring)
		if areas[i] > shellArea {
			shellArea = areas[i]
			shell = i
		}
	}

	coords := make([][]geom.Coord, 0, len(rings))
	coords = append(coords, ringToGeo(g.Transform, rings[shell]))
	for i, ring := range rings {
		if i != shell {
			coords = append(coords, ringToGeo(g.Transform, ring))
		}
	}
	return geom.NewPolygon(geom.XY).MustSetCoords(coords), nil
}

// stitchRings decomposes the directed edge set into closed rings. A lattice
// vertex can carry two outgoing edges when region cells touch diagonally; the
// sharpest right turn relative to the incoming direction is taken so rings
// stay simple.
func stitchRings(edges map[vertex][]vertex) [][]vertex {
	starts := make([]vertex, 0, len(edges))
	for v := range edges {
		starts = append(starts, v)
	}
	sort.Slice(starts, func(i, j int) bool {
		if starts[i].row != starts[j].row {
			return starts[i].row < starts[j].row
		}
		return starts[i].col < starts[j].col
	})

	var rings [][]vertex
	for _, start := range starts {
		for len(edges[start]) > 0 {
			ring := []vertex{start}
			cur := takeEdge(edges, start, vertex{})
			prev := start
			for cur != start {
				ring = append(ring, cur)
				next := takeEdge(edges, cur, prev)
				prev, cur = cur, next
			}
			ring = append(ring, start)
			rings = append(rings, ring)
		}
	}
	return rings
}

// takeEdge removes and returns one outgoing edge at v. With multiple choices
// the edge turning hardest to the right of the incoming direction wins.
func takeEdge(edges map[vertex][]vertex, v, prev vertex) vertex {
	outs := edges[v]
	pick := 0
	if len(outs) > 1 && (prev != vertex{}) {
		inDir := [2]int{v.col - prev.col, v.row - prev.row}
		best := -3
		for i, out := range outs {
			outDir := [2]int{out.col - v.col, out.row - v.row}
			// Cross product sign: positive = right turn in y-down coords.
			cross := inDir[0]*outDir[1] - inDir[1]*outDir[0]
			if cross > best {
				best = cross
				pick = i
			}
		}
	}
	chosen := outs[pick]
	outs[pick] = outs[len(outs)-1]
	edges[v] = outs[:len(outs)-1]
	return chosen
}

// pixelRingArea is the absolute shoelace area of a ring in pixel units.
func pixelRingArea(ring []vertex) float64 {
	var sum int
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i].col*ring[i+1].row - ring[i+1].col*ring[i].row
	}
	if sum < 0 {
		sum = -sum
	}
	return float64(sum) / 2
}

func ringToGeo(t raster.Affine, ring []vertex) []geom.Coord {
	out := make([]geom.Coord, len(ring))
	for i, v := range ring {
		x, y := t.Apply(float64(v.col), float64(v.row))
		out[i] = geom.Coord{x, y}
	}
	return out
}
