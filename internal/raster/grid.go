// Package raster implements the classified-raster half of the LCZ pipeline:
// windowed GeoTIFF access over HTTP range reads, boundary masking, and
// majority-vote aggregation.
package raster

import (
	"github.com/rotisserie/eris"

	"github.com/urbanclimate-lab/lczmap/internal/lcz"
)

// Affine maps pixel coordinates to geographic coordinates:
//
//	x = OriginX + col*PixelWidth + row*RotX
//	y = OriginY + col*RotY + row*PixelHeight
//
// PixelHeight is negative for north-up rasters.
type Affine struct {
	OriginX     float64 `json:"origin_x"`
	OriginY     float64 `json:"origin_y"`
	PixelWidth  float64 `json:"pixel_width"`
	PixelHeight float64 `json:"pixel_height"`
	RotX        float64 `json:"rot_x"`
	RotY        float64 `json:"rot_y"`
}

// Apply maps fractional pixel coordinates to geographic coordinates.
func (a Affine) Apply(col, row float64) (x, y float64) {
	x = a.OriginX + col*a.PixelWidth + row*a.RotX
	y = a.OriginY + col*a.RotY + row*a.PixelHeight
	return x, y
}

// Invert maps geographic coordinates back to fractional pixel coordinates.
// Only axis-aligned transforms (zero rotation terms) are supported.
func (a Affine) Invert(x, y float64) (col, row float64, err error) {
	if a.RotX != 0 || a.RotY != 0 {
		return 0, 0, eris.New("raster: rotated transforms are not supported")
	}
	if a.PixelWidth == 0 || a.PixelHeight == 0 {
		return 0, 0, eris.New("raster: degenerate transform")
	}
	return (x - a.OriginX) / a.PixelWidth, (y - a.OriginY) / a.PixelHeight, nil
}

// Scale returns the transform of a grid downsampled by factor: pixel size
// multiplied, origin unchanged.
func (a Affine) Scale(factor int) Affine {
	f := float64(factor)
	return Affine{
		OriginX:     a.OriginX,
		OriginY:     a.OriginY,
		PixelWidth:  a.PixelWidth * f,
		PixelHeight: a.PixelHeight * f,
		RotX:        a.RotX * f,
		RotY:        a.RotY * f,
	}
}

// Translate returns the transform of the window starting at (col0, row0).
func (a Affine) Translate(col0, row0 int) Affine {
	x, y := a.Apply(float64(col0), float64(row0))
	out := a
	out.OriginX = x
	out.OriginY = y
	return out
}

// Grid is an in-memory classified raster: a row-major pixel grid of class
// codes (or the nodata sentinel), its affine transform, and its CRS. A Grid
// is exclusively owned by the stage that produced it.
type Grid struct {
	Data      []uint8
	Width     int
	Height    int
	Transform Affine
	CRS       string
	NoData    uint8
}

// NewGrid allocates a grid of the given shape filled with the nodata value.
func NewGrid(width, height int, transform Affine, crs string, nodata uint8) *Grid {
	data := make([]uint8, width*height)
	if nodata != 0 {
		for i := range data {
			data[i] = nodata
		}
	}
	return &Grid{
		Data:      data,
		Width:     width,
		Height:    height,
		Transform: transform,
		CRS:       crs,
		NoData:    nodata,
	}
}

// At returns the value at (row, col). Callers are responsible for bounds.
func (g *Grid) At(row, col int) uint8 {
	return g.Data[row*g.Width+col]
}

// Set writes the value at (row, col).
func (g *Grid) Set(row, col int, v uint8) {
	g.Data[row*g.Width+col] = v
}

// CountValid returns the number of pixels that are not the nodata sentinel.
func (g *Grid) CountValid() int {
	n := 0
	for _, v := range g.Data {
		if v != g.NoData {
			n++
		}
	}
	return n
}

// ValidateNoData rejects grids whose nodata sentinel collides with a real
// class code.
func ValidateNoData(nodata uint8) error {
	if _, ok := lcz.Lookup(int(nodata)); ok {
		return eris.Errorf("raster: nodata value %d collides with class code", nodata)
	}
	return nil
}
