package pipeline

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/urbanclimate-lab/lczmap/internal/errs"
	"github.com/urbanclimate-lab/lczmap/internal/lcz"
	"github.com/urbanclimate-lab/lczmap/internal/raster"
	"github.com/urbanclimate-lab/lczmap/internal/resilience"
	"github.com/urbanclimate-lab/lczmap/internal/store"
	"github.com/urbanclimate-lab/lczmap/pkg/geocode"
)

// fakeGeocoder returns a canned boundary or error.
type fakeGeocoder struct {
	boundary *geocode.Boundary
	err      error
	calls    int
}

func (f *fakeGeocoder) Boundary(_ context.Context, _ string) (*geocode.Boundary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.boundary, nil
}

// testTransform puts a 10x10 grid on a 0.001° lattice south of (0, 0).
var testTransform = raster.Affine{
	OriginX:     0,
	OriginY:     0,
	PixelWidth:  0.001,
	PixelHeight: -0.001,
}

// serveGrid exposes a grid as a GeoTIFF over an httptest server that honors
// range requests, the way the real raster host does.
func serveGrid(t *testing.T, g *raster.Grid) *raster.Source {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, raster.WriteTIFF(&buf, g))
	data := buf.Bytes()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "lcz.tif", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(srv.Close)

	src := raster.NewSource(srv.URL, resilience.Policy{MaxAttempts: 2, InitialBackoff: 1})
	src.Client = srv.Client()
	return src
}

func fullExtentBoundary() *geocode.Boundary {
	return &geocode.Boundary{
		DisplayName: "Testville",
		CRS:         "EPSG:4326",
		Geom: geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
			{0, -0.01}, {0.01, -0.01}, {0.01, 0}, {0, 0}, {0, -0.01},
		}}),
	}
}

func uniformGrid(code uint8) *raster.Grid {
	g := raster.NewGrid(10, 10, testTransform, "EPSG:4326", lcz.NoData)
	for i := range g.Data {
		g.Data[i] = code
	}
	return g
}

func TestRun_UniformCity(t *testing.T) {
	src := serveGrid(t, uniformGrid(5))
	p := New(&fakeGeocoder{boundary: fullExtentBoundary()}, src)

	res, err := p.Run(context.Background(), Request{
		Boundary: PlaceName{Name: "Testville"},
		Factor:   2,
	})
	require.NoError(t, err)

	assert.Equal(t, "Testville", res.Place)
	assert.Equal(t, "Testville", res.DisplayName)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "LCZ 5", res.Records[0].Symbol)
	assert.Equal(t, 1, res.Records[0].PolygonCount)
	assert.InDelta(t, 100.0, res.Records[0].PercentageOfTotal, 0.001)
	assert.True(t, res.Report.IsValid)
	assert.Equal(t, "LCZ 5", res.Summary.Dominant)
}

func TestRun_TwoClassSplit(t *testing.T) {
	g := raster.NewGrid(10, 10, testTransform, "EPSG:4326", lcz.NoData)
	for row := 0; row < 10; row++ {
		code := uint8(1)
		if row >= 5 {
			code = 11
		}
		for col := 0; col < 10; col++ {
			g.Set(row, col, code)
		}
	}
	src := serveGrid(t, g)
	p := New(&fakeGeocoder{boundary: fullExtentBoundary()}, src)

	res, err := p.Run(context.Background(), Request{
		Boundary: PlaceName{Name: "Testville"},
		Factor:   1,
	})
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	for _, r := range res.Records {
		assert.InDelta(t, 50.0, r.PercentageOfTotal, 0.2)
	}
	var pct float64
	for _, r := range res.Records {
		pct += r.PercentageOfTotal
	}
	assert.InDelta(t, 100.0, pct, 0.1)
}

func TestRun_GeocodeFailureRecorded(t *testing.T) {
	src := serveGrid(t, uniformGrid(5))
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	gcErr := errs.NewGeocodeError("asdfqwerty", 3, eris.New("no match"))
	p := New(&fakeGeocoder{err: gcErr}, src, WithStore(st))

	_, err = p.Run(context.Background(), Request{
		Boundary: PlaceName{Name: "asdfqwerty"},
		Factor:   1,
	})
	require.Error(t, err)
	var ge *errs.GeocodeError
	require.ErrorAs(t, err, &ge)
	assert.NotEmpty(t, ge.Suggestions)

	runs, err := st.ListRuns(context.Background(), store.RunFilter{Status: store.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0].Error, "asdfqwerty")
}

func TestRun_PersistsAndCachesBoundary(t *testing.T) {
	src := serveGrid(t, uniformGrid(3))
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	gc := &fakeGeocoder{boundary: fullExtentBoundary()}
	p := New(gc, src, WithStore(st))

	req := Request{Boundary: PlaceName{Name: "Testville"}, Factor: 1}
	first, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, first.RunID)

	second, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, gc.calls, "second run must hit the boundary cache")
	assert.NotEqual(t, first.RunID, second.RunID)

	run, err := st.GetRun(context.Background(), first.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusComplete, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, "LCZ 3", run.Result.Summary.Dominant)
}

func TestRun_Exports(t *testing.T) {
	src := serveGrid(t, uniformGrid(6))
	outDir := t.TempDir()
	p := New(&fakeGeocoder{boundary: fullExtentBoundary()}, src)

	res, err := p.Run(context.Background(), Request{
		Boundary:        PlaceName{Name: "Testville"},
		Factor:          1,
		OutputDir:       outDir,
		ExportGeoJSON:   true,
		ExportXLSX:      true,
		ExportChart:     true,
		ExportShapefile: true,
		SaveClip:        true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Artifacts)

	for _, name := range []string{"map_lcz.geojson", "lcz_stats.xlsx", "lcz_composition.html", "map_lcz.shp", "lcz_map.tif"} {
		_, statErr := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, statErr, "expected artifact %s", name)
	}
}

func TestRun_InvalidFactor(t *testing.T) {
	src := serveGrid(t, uniformGrid(5))
	p := New(&fakeGeocoder{boundary: fullExtentBoundary()}, src)

	_, err := p.Run(context.Background(), Request{Boundary: PlaceName{Name: "x"}, Factor: 0})
	assert.Error(t, err)
}

func TestRun_BoundaryFile(t *testing.T) {
	src := serveGrid(t, uniformGrid(8))
	path := filepath.Join(t.TempDir(), "boundary.geojson")
	payload := `{"type":"Polygon","coordinates":[[[0,-0.01],[0.01,-0.01],[0.01,0],[0,0],[0,-0.01]]]}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	p := New(&fakeGeocoder{}, src)
	res, err := p.Run(context.Background(), Request{
		Boundary: BoundaryFile{Path: path},
		Factor:   1,
	})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "LCZ 8", res.Records[0].Symbol)
}

func TestRun_BoundaryOutsideCoverage(t *testing.T) {
	src := serveGrid(t, uniformGrid(5))
	far := &geocode.Boundary{
		DisplayName: "Elsewhere",
		CRS:         "EPSG:4326",
		Geom: geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
			{50, 50}, {51, 50}, {51, 51}, {50, 51}, {50, 50},
		}}),
	}
	p := New(&fakeGeocoder{boundary: far}, src)

	_, err := p.Run(context.Background(), Request{Boundary: PlaceName{Name: "Elsewhere"}, Factor: 1})
	require.Error(t, err)
	assert.Equal(t, errs.CategoryData, errs.CategoryOf(err))
}
