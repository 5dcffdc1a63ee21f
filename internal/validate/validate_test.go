package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/urbanclimate-lab/lczmap/internal/vector"
)

func unitSquareMulti(t *testing.T) *geom.MultiPolygon {
	t.Helper()
	mp := geom.NewMultiPolygon(geom.XY)
	p := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0},
	}})
	require.NoError(t, mp.Push(p))
	return mp
}

func TestCheck_ValidLayer(t *testing.T) {
	polys := []vector.ClassPolygon{
		{Code: 1, Symbol: "LCZ 1", AreaKm2: 10, PolygonCount: 1, Geometry: unitSquareMulti(t)},
		{Code: 11, Symbol: "LCZ A", AreaKm2: 5, PolygonCount: 1, Geometry: unitSquareMulti(t)},
	}

	r := Check(polys)
	assert.True(t, r.IsValid)
	assert.Empty(t, r.Errors)
	assert.Empty(t, r.Warnings)
	require.Len(t, r.Info, 2)
	assert.Contains(t, r.Info[0], "2 classes")
	assert.Contains(t, r.Info[1], "15.000")
}

func TestCheck_EmptyDataset(t *testing.T) {
	assert.NotPanics(t, func() {
		r := Check(nil)
		assert.False(t, r.IsValid)
		require.NotEmpty(t, r.Errors)
		assert.Contains(t, r.Errors[0], "empty")
	})
}

func TestCheck_MissingSymbolAndGeometry(t *testing.T) {
	polys := []vector.ClassPolygon{
		{Code: 3, Symbol: "", AreaKm2: 1, Geometry: unitSquareMulti(t)},
		{Code: 4, Symbol: "LCZ 4", AreaKm2: 1, Geometry: nil},
	}

	r := Check(polys)
	assert.False(t, r.IsValid)
	assert.Len(t, r.Errors, 2)
}

func TestCheck_UnknownSymbolWarns(t *testing.T) {
	polys := []vector.ClassPolygon{
		{Code: 99, Symbol: "Class 99", AreaKm2: 1, Geometry: unitSquareMulti(t)},
	}

	r := Check(polys)
	assert.True(t, r.IsValid, "unknown symbols degrade quality, they do not invalidate")
	require.NotEmpty(t, r.Warnings)
	assert.Contains(t, r.Warnings[0], "Class 99")
}

func TestCheck_DegenerateRingWarns(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	open := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{0, 0}, {1, 0}, {1, 1}, {0, 1},
	}})
	require.NoError(t, mp.Push(open))

	r := Check([]vector.ClassPolygon{
		{Code: 6, Symbol: "LCZ 6", AreaKm2: 1, Geometry: mp},
	})
	assert.True(t, r.IsValid)
	require.NotEmpty(t, r.Warnings)
	assert.Contains(t, r.Warnings[0], "degenerate")
}

func TestCheck_SelfIntersectingRingWarns(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	bowtie := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0},
	}})
	require.NoError(t, mp.Push(bowtie))

	r := Check([]vector.ClassPolygon{
		{Code: 8, Symbol: "LCZ 8", AreaKm2: 1, Geometry: mp},
	})
	assert.True(t, r.IsValid)
	require.NotEmpty(t, r.Warnings)
	assert.Contains(t, r.Warnings[0], "degenerate")
	assert.Contains(t, r.Warnings[0], "self-intersecting")
}

func TestRingSelfIntersects(t *testing.T) {
	square := []geom.Coord{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	assert.False(t, ringSelfIntersects(square))

	bowtie := []geom.Coord{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}}
	assert.True(t, ringSelfIntersects(bowtie))

	// Sharing a vertex is not a crossing.
	notch := []geom.Coord{{0, 0}, {2, 0}, {2, 2}, {1, 1}, {0, 2}, {0, 0}}
	assert.False(t, ringSelfIntersects(notch))
}

func TestCheck_DuplicateClassWarns(t *testing.T) {
	polys := []vector.ClassPolygon{
		{Code: 2, Symbol: "LCZ 2", AreaKm2: 1, Geometry: unitSquareMulti(t)},
		{Code: 2, Symbol: "LCZ 2", AreaKm2: 2, Geometry: unitSquareMulti(t)},
	}

	r := Check(polys)
	assert.True(t, r.IsValid)
	require.NotEmpty(t, r.Warnings)
	assert.Contains(t, r.Warnings[0], "code 2")
}

func TestCheck_DuplicateWarningsSortedByCode(t *testing.T) {
	polys := []vector.ClassPolygon{
		{Code: 14, Symbol: "LCZ D", AreaKm2: 1, Geometry: unitSquareMulti(t)},
		{Code: 3, Symbol: "LCZ 3", AreaKm2: 1, Geometry: unitSquareMulti(t)},
		{Code: 14, Symbol: "LCZ D", AreaKm2: 2, Geometry: unitSquareMulti(t)},
		{Code: 3, Symbol: "LCZ 3", AreaKm2: 2, Geometry: unitSquareMulti(t)},
	}

	for i := 0; i < 5; i++ {
		r := Check(polys)
		require.Len(t, r.Warnings, 2)
		assert.Contains(t, r.Warnings[0], "code 3")
		assert.Contains(t, r.Warnings[1], "code 14")
	}
}

func TestCheck_NegativeAreaIsError(t *testing.T) {
	r := Check([]vector.ClassPolygon{
		{Code: 5, Symbol: "LCZ 5", AreaKm2: -3, Geometry: unitSquareMulti(t)},
	})
	assert.False(t, r.IsValid)
}
