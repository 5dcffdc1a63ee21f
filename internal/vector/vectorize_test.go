package vector

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/urbanclimate-lab/lczmap/internal/lcz"
	"github.com/urbanclimate-lab/lczmap/internal/raster"
)

// pixelTransform maps pixel coordinates straight to geographic coordinates,
// which keeps test geometry readable.
var pixelTransform = raster.Affine{PixelWidth: 1, PixelHeight: 1}

func newTestGrid(t *testing.T, rows [][]uint8) *raster.Grid {
	t.Helper()
	require.NotEmpty(t, rows)
	g := raster.NewGrid(len(rows[0]), len(rows), pixelTransform, "EPSG:4326", lcz.NoData)
	for r, row := range rows {
		require.Len(t, row, g.Width)
		for c, v := range row {
			g.Set(r, c, v)
		}
	}
	return g
}

func TestVectorize_UniformGrid(t *testing.T) {
	g := newTestGrid(t, [][]uint8{
		{5, 5, 5},
		{5, 5, 5},
		{5, 5, 5},
	})

	feats, err := Vectorize(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, feats, 1)
	assert.Equal(t, uint8(5), feats[0].Code)

	poly := feats[0].Geometry
	require.Equal(t, 1, poly.NumLinearRings())
	assert.InDelta(t, 9.0, pixelPolygonArea(poly), 1e-9)
}

func TestVectorize_TwoRegionsSortedByCode(t *testing.T) {
	g := newTestGrid(t, [][]uint8{
		{11, 11, 2, 2},
		{11, 11, 2, 2},
	})

	feats, err := Vectorize(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, feats, 2)
	assert.Equal(t, uint8(2), feats[0].Code)
	assert.Equal(t, uint8(11), feats[1].Code)
}

func TestVectorize_DiagonalPixelsAreSeparateRegions(t *testing.T) {
	n := lcz.NoData
	g := newTestGrid(t, [][]uint8{
		{7, n},
		{n, 7},
	})

	feats, err := Vectorize(context.Background(), g)
	require.NoError(t, err)
	assert.Len(t, feats, 2, "4-connectivity must not join diagonal neighbors")
}

func TestVectorize_RegionWithHole(t *testing.T) {
	g := newTestGrid(t, [][]uint8{
		{1, 1, 1},
		{1, 2, 1},
		{1, 1, 1},
	})

	feats, err := Vectorize(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, feats, 2)

	ring := feats[0]
	assert.Equal(t, uint8(1), ring.Code)
	require.Equal(t, 2, ring.Geometry.NumLinearRings(), "ring region needs shell plus hole")
	assert.InDelta(t, 8.0, pixelPolygonArea(ring.Geometry), 1e-9)

	center := feats[1]
	assert.Equal(t, uint8(2), center.Code)
	assert.InDelta(t, 1.0, pixelPolygonArea(center.Geometry), 1e-9)
}

func TestVectorize_NodataProducesNoGeometry(t *testing.T) {
	n := lcz.NoData
	g := newTestGrid(t, [][]uint8{
		{n, n},
		{n, 3},
	})

	feats, err := Vectorize(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, feats, 1)
	assert.InDelta(t, 1.0, pixelPolygonArea(feats[0].Geometry), 1e-9)
}

func TestVectorize_AllNodata(t *testing.T) {
	n := lcz.NoData
	g := newTestGrid(t, [][]uint8{{n, n}, {n, n}})

	feats, err := Vectorize(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, feats)
}

func TestVectorize_Deterministic(t *testing.T) {
	g := newTestGrid(t, [][]uint8{
		{1, 1, 2, 3},
		{1, 4, 2, 3},
		{5, 4, 4, 3},
	})

	first, err := Vectorize(context.Background(), g)
	require.NoError(t, err)
	second, err := Vectorize(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestVectorize_AreaConservation(t *testing.T) {
	// Irregular layout: total polygon area must equal the valid pixel count.
	n := lcz.NoData
	g := newTestGrid(t, [][]uint8{
		{1, 1, n, 2, 2},
		{1, 3, 3, 2, n},
		{n, 3, 3, 3, 6},
	})

	feats, err := Vectorize(context.Background(), g)
	require.NoError(t, err)

	var total float64
	for _, f := range feats {
		total += pixelPolygonArea(f.Geometry)
	}
	assert.InDelta(t, float64(g.CountValid()), total, 1e-9)
}

func TestVectorize_CancelledContext(t *testing.T) {
	g := newTestGrid(t, [][]uint8{{1}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Vectorize(ctx, g)
	assert.Error(t, err)
}

// pixelPolygonArea computes planar shoelace area directly on the coordinates,
// which under pixelTransform equals the pixel count. Hole rings subtract.
func pixelPolygonArea(p *geom.Polygon) float64 {
	var total float64
	for i := 0; i < p.NumLinearRings(); i++ {
		coords := p.LinearRing(i).Coords()
		var sum float64
		for j := 0; j < len(coords)-1; j++ {
			sum += coords[j].X()*coords[j+1].Y() - coords[j+1].X()*coords[j].Y()
		}
		area := math.Abs(sum) / 2
		if i == 0 {
			total += area
		} else {
			total -= area
		}
	}
	return total
}
