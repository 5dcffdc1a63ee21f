package raster

import (
	"context"
	"runtime"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// Aggregate downsamples a classified grid by an integer factor using
// per-block majority voting. Each non-overlapping factor x factor block maps
// to the most frequent non-nodata value in it; ties break toward the lowest
// class code, and an all-nodata block stays nodata. Grid dimensions are
// truncated to exact multiples of factor; remainder pixels are dropped.
//
// Block rows are processed in parallel, but the per-block rule is a pure
// function of block contents, so the output is identical for any worker
// count.
func Aggregate(ctx context.Context, g *Grid, factor, workers int) (*Grid, error) {
	if factor < 1 {
		return nil, eris.Errorf("raster: aggregation factor must be >= 1, got %d", factor)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outW := g.Width / factor
	outH := g.Height / factor
	if outW == 0 || outH == 0 {
		return nil, eris.Errorf("raster: grid %dx%d too small for factor %d", g.Width, g.Height, factor)
	}

	out := NewGrid(outW, outH, g.Transform.Scale(factor), g.CRS, g.NoData)

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for br := 0; br < outH; br++ {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for bc := 0; bc < outW; bc++ {
				out.Set(br, bc, blockMajority(g, br*factor, bc*factor, factor))
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, eris.Wrap(err, "raster: aggregate")
	}
	return out, nil
}

// blockMajority returns the majority non-nodata value of the factor x factor
// block anchored at (row0, col0), breaking ties toward the lowest value.
func blockMajority(g *Grid, row0, col0, factor int) uint8 {
	var counts [256]int
	for r := row0; r < row0+factor; r++ {
		base := r * g.Width
		for c := col0; c < col0+factor; c++ {
			counts[g.Data[base+c]]++
		}
	}

	best := int(g.NoData)
	bestCount := 0
	for v := 0; v < 256; v++ {
		if uint8(v) == g.NoData {
			continue
		}
		// Strict > keeps the lowest value on ties.
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	if bestCount == 0 {
		return g.NoData
	}
	return uint8(best)
}
