package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/urbanclimate-lab/lczmap/internal/lcz"
)

// northUp is a 10x10 pixel lattice from (0,0) down to (10,-10) in geo space.
var northUp = Affine{OriginX: 0, OriginY: 0, PixelWidth: 1, PixelHeight: -1}

func polygon(t *testing.T, coords ...geom.Coord) *geom.Polygon {
	t.Helper()
	ring := append(coords, coords[0])
	p := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})
	require.NotNil(t, p)
	return p
}

func TestWindowFor(t *testing.T) {
	b := polygon(t, geom.Coord{2.2, -2.2}, geom.Coord{5.8, -2.2}, geom.Coord{5.8, -6.8}, geom.Coord{2.2, -6.8})

	col0, row0, w, h, err := WindowFor(b, northUp, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, col0)
	assert.Equal(t, 2, row0)
	assert.Equal(t, 4, w)
	assert.Equal(t, 5, h)
}

func TestWindowFor_ClampsToExtent(t *testing.T) {
	b := polygon(t, geom.Coord{-5, 3}, geom.Coord{4, 3}, geom.Coord{4, -4}, geom.Coord{-5, -4})

	col0, row0, w, h, err := WindowFor(b, northUp, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, col0)
	assert.Equal(t, 0, row0)
	assert.Equal(t, 4, w)
	assert.Equal(t, 4, h)
}

func TestWindowFor_NoIntersection(t *testing.T) {
	b := polygon(t, geom.Coord{50, -50}, geom.Coord{60, -50}, geom.Coord{60, -60}, geom.Coord{50, -60})

	_, _, _, _, err := WindowFor(b, northUp, 10, 10)
	assert.Error(t, err)
}

func TestMaskAllTouched_CenterContainment(t *testing.T) {
	g := NewGrid(4, 4, northUp, "EPSG:4326", lcz.NoData)
	for i := range g.Data {
		g.Data[i] = 5
	}

	// Covers pixels (1,1) and (2,1) centers plus edge-touched neighbors.
	b := polygon(t, geom.Coord{1, -1}, geom.Coord{2, -1}, geom.Coord{2, -3}, geom.Coord{1, -3})

	kept, err := MaskAllTouched(g, b)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, kept, 2)

	assert.Equal(t, uint8(5), g.At(1, 1))
	assert.Equal(t, uint8(5), g.At(2, 1))
	assert.Equal(t, lcz.NoData, g.At(0, 3), "far corner is outside")
	assert.Equal(t, lcz.NoData, g.At(3, 3))
}

func TestMaskAllTouched_KeepsEdgeCrossedCells(t *testing.T) {
	g := NewGrid(4, 4, northUp, "EPSG:4326", lcz.NoData)
	for i := range g.Data {
		g.Data[i] = 3
	}

	// A sliver thinner than a pixel, crossing cells without covering any
	// center: all-touched inclusion must still keep the crossed cells.
	b := polygon(t,
		geom.Coord{0.1, -0.05}, geom.Coord{3.9, -0.05},
		geom.Coord{3.9, -0.15}, geom.Coord{0.1, -0.15},
	)

	kept, err := MaskAllTouched(g, b)
	require.NoError(t, err)
	assert.Equal(t, 4, kept, "every cell of the top row is touched")
	for col := 0; col < 4; col++ {
		assert.Equal(t, uint8(3), g.At(0, col))
	}
	for col := 0; col < 4; col++ {
		assert.Equal(t, lcz.NoData, g.At(1, col))
	}
}

func TestMaskAllTouched_MultiPolygon(t *testing.T) {
	g := NewGrid(4, 4, northUp, "EPSG:4326", lcz.NoData)
	for i := range g.Data {
		g.Data[i] = 7
	}

	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(polygon(t, geom.Coord{0, 0}, geom.Coord{1, 0}, geom.Coord{1, -1}, geom.Coord{0, -1})))
	require.NoError(t, mp.Push(polygon(t, geom.Coord{3, -3}, geom.Coord{4, -3}, geom.Coord{4, -4}, geom.Coord{3, -4})))

	_, err := MaskAllTouched(g, mp)
	require.NoError(t, err)
	assert.Equal(t, uint8(7), g.At(0, 0))
	assert.Equal(t, uint8(7), g.At(3, 3))
	assert.Equal(t, lcz.NoData, g.At(1, 2))
}

func TestMaskAllTouched_RejectsNonAreal(t *testing.T) {
	g := NewGrid(2, 2, northUp, "EPSG:4326", lcz.NoData)
	_, err := MaskAllTouched(g, geom.NewPointFlat(geom.XY, []float64{1, -1}))
	assert.Error(t, err)
}
