package raster

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// WriteTIFF serializes a grid as an uncompressed single-strip GeoTIFF with
// its transform, CRS and nodata embedded, so the artifact opens in standard
// GIS tooling.
func WriteTIFF(w io.Writer, g *Grid) error {
	if g.Width == 0 || g.Height == 0 {
		return eris.New("geotiff: refusing to write empty grid")
	}
	if g.Transform.RotX != 0 || g.Transform.RotY != 0 {
		return eris.New("geotiff: rotated transforms cannot be written")
	}

	type tag struct {
		id    uint16
		typ   uint16
		count uint32
		value uint32 // inline value or offset into the external section
	}

	const (
		typASCII  = 2
		typShort  = 3
		typLong   = 4
		typDouble = 12
	)

	epsg := uint32(0)
	if code, ok := strings.CutPrefix(g.CRS, "EPSG:"); ok {
		if v, err := strconv.Atoi(code); err == nil {
			epsg = uint32(v)
		}
	}

	// Layout: header (8) | pixel data | IFD | external values.
	dataOffset := uint32(8)
	dataLen := uint32(g.Width * g.Height)
	ifdOffset := dataOffset + dataLen
	if ifdOffset%2 == 1 {
		ifdOffset++
	}

	// External payloads, in write order after the IFD.
	pixelScale := []float64{g.Transform.PixelWidth, -g.Transform.PixelHeight, 0}
	tiepoint := []float64{0, 0, 0, g.Transform.OriginX, g.Transform.OriginY, 0}
	geoKeys := []uint16{
		1, 1, 0, 3, // version, revision, minor, key count
		1024, 0, 1, 2, // GTModelType: geographic
		1025, 0, 1, 1, // GTRasterType: PixelIsArea
		2048, 0, 1, uint16(epsg), // GeographicType
	}
	nodataASCII := append([]byte(strconv.Itoa(int(g.NoData))), 0)

	tags := []tag{
		{tagImageWidth, typLong, 1, uint32(g.Width)},
		{tagImageLength, typLong, 1, uint32(g.Height)},
		{tagBitsPerSample, typShort, 1, 8},
		{tagCompression, typShort, 1, compressionNone},
		{262, typShort, 1, 1}, // PhotometricInterpretation: BlackIsZero
		{tagStripOffsets, typLong, 1, dataOffset},
		{tagSamplesPerPixel, typShort, 1, 1},
		{tagRowsPerStrip, typLong, 1, uint32(g.Height)},
		{tagStripByteCounts, typLong, 1, dataLen},
		{tagPlanarConfig, typShort, 1, 1},
		{tagSampleFormat, typShort, 1, 1},
		{tagModelPixelScale, typDouble, uint32(len(pixelScale)), 0},
		{tagModelTiepoint, typDouble, uint32(len(tiepoint)), 0},
		{tagGeoKeyDirectory, typShort, uint32(len(geoKeys)), 0},
		{tagGDALNoData, typASCII, uint32(len(nodataASCII)), 0},
	}

	// Resolve external offsets. 12 bytes per entry plus count and next-IFD
	// pointer.
	ifdLen := uint32(2 + len(tags)*12 + 4)
	ext := ifdOffset + ifdLen
	for i := range tags {
		size := uint32(typeSize(tags[i].typ)) * tags[i].count
		if size > 4 {
			tags[i].value = ext
			ext += size
			if ext%2 == 1 {
				ext++
			}
		}
	}

	le := binary.LittleEndian
	buf := make([]byte, ext)
	buf[0], buf[1] = 'I', 'I'
	le.PutUint16(buf[2:4], 42)
	le.PutUint32(buf[4:8], ifdOffset)
	copy(buf[dataOffset:], g.Data)

	// IFD entries must be sorted by tag; the slice above is constructed in
	// ascending order.
	p := ifdOffset
	le.PutUint16(buf[p:], uint16(len(tags)))
	p += 2
	for _, tg := range tags {
		le.PutUint16(buf[p:], tg.id)
		le.PutUint16(buf[p+2:], tg.typ)
		le.PutUint32(buf[p+4:], tg.count)
		switch {
		case tg.typ == typShort && tg.count == 1:
			le.PutUint16(buf[p+8:], uint16(tg.value))
		default:
			le.PutUint32(buf[p+8:], tg.value)
		}
		p += 12
	}
	le.PutUint32(buf[p:], 0) // no next IFD

	writeDoubles := func(off uint32, vals []float64) {
		for i, v := range vals {
			le.PutUint64(buf[off+uint32(i*8):], math.Float64bits(v))
		}
	}
	for _, tg := range tags {
		switch tg.id {
		case tagModelPixelScale:
			writeDoubles(tg.value, pixelScale)
		case tagModelTiepoint:
			writeDoubles(tg.value, tiepoint)
		case tagGeoKeyDirectory:
			for i, v := range geoKeys {
				le.PutUint16(buf[tg.value+uint32(i*2):], v)
			}
		case tagGDALNoData:
			copy(buf[tg.value:], nodataASCII)
		}
	}

	if _, err := w.Write(buf); err != nil {
		return eris.Wrap(err, "geotiff: write")
	}
	return nil
}

// SaveTIFF writes a grid to a GeoTIFF file at path.
func SaveTIFF(path string, g *Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "geotiff: create %s", path)
	}
	if err := WriteTIFF(f, g); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "geotiff: close %s", path)
}
