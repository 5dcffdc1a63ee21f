package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/urbanclimate-lab/lczmap/internal/lcz"
)

// TIFF tag IDs used by classified GeoTIFF rasters.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGDALNoData      = 42113
)

// TIFF compression schemes supported for reading.
const (
	compressionNone       = 1
	compressionDeflate    = 8
	compressionOldDeflate = 32946
)

// GeoKey IDs for CRS extraction.
const (
	geoKeyGeographicType = 2048
	geoKeyProjectedCS    = 3072
)

type ifdEntry struct {
	typ    uint16
	count  uint32
	inline [4]byte
	offset uint32
}

// TIFFReader provides windowed access to a single-band 8-bit classified
// GeoTIFF over any io.ReaderAt, so remote rasters can be read through HTTP
// range requests without a full download.
type TIFFReader struct {
	r     io.ReaderAt
	order binary.ByteOrder

	width, height int
	compression   uint16
	predictor     uint16

	tileWidth, tileHeight int
	tileOffsets           []uint64
	tileCounts            []uint64

	rowsPerStrip int
	stripOffsets []uint64
	stripCounts  []uint64

	transform Affine
	crs       string
	nodata    uint8
}

// OpenTIFF parses the TIFF structure and geo-referencing tags. Only classic
// (non-Big) TIFF with one 8-bit unsigned band is supported; that is the
// layout of classified LCZ rasters.
func OpenTIFF(r io.ReaderAt) (*TIFFReader, error) {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, eris.Wrap(err, "geotiff: read header")
	}

	var order binary.ByteOrder
	switch {
	case hdr[0] == 'I' && hdr[1] == 'I':
		order = binary.LittleEndian
	case hdr[0] == 'M' && hdr[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, eris.New("geotiff: not a TIFF file")
	}
	if magic := order.Uint16(hdr[2:4]); magic != 42 {
		if magic == 43 {
			return nil, eris.New("geotiff: BigTIFF is not supported")
		}
		return nil, eris.Errorf("geotiff: bad magic %d", magic)
	}

	t := &TIFFReader{r: r, order: order, nodata: lcz.NoData, compression: compressionNone, predictor: 1}

	entries, err := t.readIFD(order.Uint32(hdr[4:8]))
	if err != nil {
		return nil, err
	}
	if err := t.applyEntries(entries); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TIFFReader) readIFD(offset uint32) (map[uint16]ifdEntry, error) {
	var cntBuf [2]byte
	if _, err := t.r.ReadAt(cntBuf[:], int64(offset)); err != nil {
		return nil, eris.Wrap(err, "geotiff: read IFD count")
	}
	n := int(t.order.Uint16(cntBuf[:]))

	buf := make([]byte, n*12)
	if _, err := t.r.ReadAt(buf, int64(offset)+2); err != nil {
		return nil, eris.Wrap(err, "geotiff: read IFD entries")
	}

	entries := make(map[uint16]ifdEntry, n)
	for i := 0; i < n; i++ {
		e := buf[i*12 : (i+1)*12]
		tag := t.order.Uint16(e[0:2])
		entry := ifdEntry{
			typ:    t.order.Uint16(e[2:4]),
			count:  t.order.Uint32(e[4:8]),
			offset: t.order.Uint32(e[8:12]),
		}
		copy(entry.inline[:], e[8:12])
		entries[tag] = entry
	}
	return entries, nil
}

func typeSize(typ uint16) int {
	switch typ {
	case 1, 2, 6, 7: // BYTE, ASCII, SBYTE, UNDEFINED
		return 1
	case 3, 8: // SHORT, SSHORT
		return 2
	case 4, 9, 11: // LONG, SLONG, FLOAT
		return 4
	case 5, 10, 12: // RATIONAL, SRATIONAL, DOUBLE
		return 8
	default:
		return 0
	}
}

// valueBytes returns the raw payload of an entry, reading past the IFD when
// the value does not fit inline.
func (t *TIFFReader) valueBytes(e ifdEntry) ([]byte, error) {
	size := typeSize(e.typ) * int(e.count)
	if size == 0 {
		return nil, eris.Errorf("geotiff: unsupported field type %d", e.typ)
	}
	if size <= 4 {
		return e.inline[:size], nil
	}
	buf := make([]byte, size)
	if _, err := t.r.ReadAt(buf, int64(e.offset)); err != nil {
		return nil, eris.Wrap(err, "geotiff: read field value")
	}
	return buf, nil
}

func (t *TIFFReader) readUints(e ifdEntry) ([]uint64, error) {
	raw, err := t.valueBytes(e)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, e.count)
	for i := range out {
		switch e.typ {
		case 3:
			out[i] = uint64(t.order.Uint16(raw[i*2:]))
		case 4:
			out[i] = uint64(t.order.Uint32(raw[i*4:]))
		default:
			return nil, eris.Errorf("geotiff: expected integer field, got type %d", e.typ)
		}
	}
	return out, nil
}

func (t *TIFFReader) readDoubles(e ifdEntry) ([]float64, error) {
	if e.typ != 12 {
		return nil, eris.Errorf("geotiff: expected DOUBLE field, got type %d", e.typ)
	}
	raw, err := t.valueBytes(e)
	if err != nil {
		return nil, err
	}
	out := make([]float64, e.count)
	for i := range out {
		out[i] = math.Float64frombits(t.order.Uint64(raw[i*8:]))
	}
	return out, nil
}

func (t *TIFFReader) readASCII(e ifdEntry) (string, error) {
	raw, err := t.valueBytes(e)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(raw), "\x00"), nil
}

func (t *TIFFReader) firstUint(entries map[uint16]ifdEntry, tag uint16) (uint64, bool, error) {
	e, ok := entries[tag]
	if !ok {
		return 0, false, nil
	}
	vals, err := t.readUints(e)
	if err != nil || len(vals) == 0 {
		return 0, false, err
	}
	return vals[0], true, nil
}

func (t *TIFFReader) applyEntries(entries map[uint16]ifdEntry) error {
	w, ok, err := t.firstUint(entries, tagImageWidth)
	if err != nil || !ok {
		return eris.Wrap(err, "geotiff: missing ImageWidth")
	}
	h, ok, err := t.firstUint(entries, tagImageLength)
	if err != nil || !ok {
		return eris.Wrap(err, "geotiff: missing ImageLength")
	}
	t.width, t.height = int(w), int(h)

	if bits, ok, err := t.firstUint(entries, tagBitsPerSample); err != nil {
		return err
	} else if ok && bits != 8 {
		return eris.Errorf("geotiff: only 8-bit samples supported, got %d", bits)
	}
	if spp, ok, err := t.firstUint(entries, tagSamplesPerPixel); err != nil {
		return err
	} else if ok && spp != 1 {
		return eris.Errorf("geotiff: only single-band rasters supported, got %d bands", spp)
	}
	if sf, ok, err := t.firstUint(entries, tagSampleFormat); err != nil {
		return err
	} else if ok && sf != 1 {
		return eris.Errorf("geotiff: only unsigned samples supported, got format %d", sf)
	}
	if pc, ok, err := t.firstUint(entries, tagPlanarConfig); err != nil {
		return err
	} else if ok && pc != 1 {
		return eris.Errorf("geotiff: planar configuration %d not supported", pc)
	}

	if comp, ok, err := t.firstUint(entries, tagCompression); err != nil {
		return err
	} else if ok {
		t.compression = uint16(comp)
	}
	switch t.compression {
	case compressionNone, compressionDeflate, compressionOldDeflate:
	default:
		return eris.Errorf("geotiff: compression scheme %d not supported", t.compression)
	}
	if pred, ok, err := t.firstUint(entries, tagPredictor); err != nil {
		return err
	} else if ok {
		t.predictor = uint16(pred)
		if t.predictor != 1 && t.predictor != 2 {
			return eris.Errorf("geotiff: predictor %d not supported", t.predictor)
		}
	}

	if err := t.applyLayout(entries); err != nil {
		return err
	}
	if err := t.applyGeoTags(entries); err != nil {
		return err
	}
	return nil
}

func (t *TIFFReader) applyLayout(entries map[uint16]ifdEntry) error {
	if e, ok := entries[tagTileOffsets]; ok {
		offsets, err := t.readUints(e)
		if err != nil {
			return err
		}
		counts, err := t.readUints(entries[tagTileByteCounts])
		if err != nil {
			return err
		}
		tw, _, err := t.firstUint(entries, tagTileWidth)
		if err != nil {
			return err
		}
		th, _, err := t.firstUint(entries, tagTileLength)
		if err != nil {
			return err
		}
		if tw == 0 || th == 0 {
			return eris.New("geotiff: tiled raster missing tile dimensions")
		}
		t.tileWidth, t.tileHeight = int(tw), int(th)
		t.tileOffsets, t.tileCounts = offsets, counts
		return nil
	}

	e, ok := entries[tagStripOffsets]
	if !ok {
		return eris.New("geotiff: raster has neither tiles nor strips")
	}
	offsets, err := t.readUints(e)
	if err != nil {
		return err
	}
	counts, err := t.readUints(entries[tagStripByteCounts])
	if err != nil {
		return err
	}
	rps := uint64(t.height)
	if v, ok, err := t.firstUint(entries, tagRowsPerStrip); err != nil {
		return err
	} else if ok {
		rps = v
	}
	t.rowsPerStrip = int(rps)
	t.stripOffsets, t.stripCounts = offsets, counts
	return nil
}

func (t *TIFFReader) applyGeoTags(entries map[uint16]ifdEntry) error {
	scaleE, hasScale := entries[tagModelPixelScale]
	tieE, hasTie := entries[tagModelTiepoint]
	if !hasScale || !hasTie {
		return eris.New("geotiff: missing geo-referencing tags")
	}
	scale, err := t.readDoubles(scaleE)
	if err != nil || len(scale) < 2 {
		return eris.Wrap(err, "geotiff: read ModelPixelScale")
	}
	tie, err := t.readDoubles(tieE)
	if err != nil || len(tie) < 6 {
		return eris.Wrap(err, "geotiff: read ModelTiepoint")
	}

	// Tiepoint maps raster point (i, j) to model point (x, y).
	t.transform = Affine{
		OriginX:     tie[3] - tie[0]*scale[0],
		OriginY:     tie[4] + tie[1]*scale[1],
		PixelWidth:  scale[0],
		PixelHeight: -scale[1],
	}

	if e, ok := entries[tagGeoKeyDirectory]; ok {
		keys, err := t.readUints(e)
		if err != nil {
			return err
		}
		// Key entries are quads of shorts after the 4-short header:
		// keyID, tagLocation, count, value.
		for i := 4; i+3 < len(keys); i += 4 {
			keyID, loc, val := keys[i], keys[i+1], keys[i+3]
			if loc != 0 {
				continue
			}
			if keyID == geoKeyGeographicType || keyID == geoKeyProjectedCS {
				t.crs = fmt.Sprintf("EPSG:%d", val)
			}
		}
	}

	if e, ok := entries[tagGDALNoData]; ok {
		s, err := t.readASCII(e)
		if err == nil {
			if v, perr := strconv.Atoi(strings.TrimSpace(s)); perr == nil && v >= 0 && v <= 255 {
				t.nodata = uint8(v)
			}
		}
	}
	return nil
}

// Size returns the raster dimensions in pixels.
func (t *TIFFReader) Size() (width, height int) { return t.width, t.height }

// Transform returns the raster's affine transform.
func (t *TIFFReader) Transform() Affine { return t.transform }

// CRS returns the raster CRS as an EPSG identifier, or "" when undeclared.
func (t *TIFFReader) CRS() string { return t.crs }

// NoData returns the raster's declared nodata value.
func (t *TIFFReader) NoData() uint8 { return t.nodata }

// ReadWindow reads the pixel window (col0, row0, w, h) into a new Grid,
// touching only the tiles or strips the window intersects.
func (t *TIFFReader) ReadWindow(col0, row0, w, h int) (*Grid, error) {
	if col0 < 0 || row0 < 0 || w <= 0 || h <= 0 || col0+w > t.width || row0+h > t.height {
		return nil, eris.Errorf("geotiff: window %d,%d %dx%d outside raster %dx%d",
			col0, row0, w, h, t.width, t.height)
	}

	out := NewGrid(w, h, t.transform.Translate(col0, row0), t.crs, lcz.NoData)

	if t.tileWidth > 0 {
		if err := t.readTiled(out, col0, row0, w, h); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := t.readStripped(out, col0, row0, w, h); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *TIFFReader) readTiled(out *Grid, col0, row0, w, h int) error {
	tilesAcross := (t.width + t.tileWidth - 1) / t.tileWidth

	tMin := row0 / t.tileHeight
	tMax := (row0 + h - 1) / t.tileHeight
	cMin := col0 / t.tileWidth
	cMax := (col0 + w - 1) / t.tileWidth

	for tr := tMin; tr <= tMax; tr++ {
		for tc := cMin; tc <= cMax; tc++ {
			idx := tr*tilesAcross + tc
			if idx >= len(t.tileOffsets) {
				return eris.Errorf("geotiff: tile index %d out of range", idx)
			}
			data, err := t.readChunk(t.tileOffsets[idx], t.tileCounts[idx], t.tileWidth, t.tileHeight)
			if err != nil {
				return err
			}
			t.copyTile(out, data, tc*t.tileWidth, tr*t.tileHeight, col0, row0, w, h)
		}
	}
	return nil
}

func (t *TIFFReader) copyTile(out *Grid, tile []byte, tileX, tileY, col0, row0, w, h int) {
	for ty := 0; ty < t.tileHeight; ty++ {
		row := tileY + ty - row0
		if row < 0 || row >= h {
			continue
		}
		srcStart := ty * t.tileWidth
		for tx := 0; tx < t.tileWidth; tx++ {
			col := tileX + tx - col0
			if col < 0 || col >= w {
				continue
			}
			if tileX+tx >= t.width || tileY+ty >= t.height {
				continue // padding beyond the raster edge
			}
			out.Data[row*w+col] = tile[srcStart+tx]
		}
	}
}

func (t *TIFFReader) readStripped(out *Grid, col0, row0, w, h int) error {
	sMin := row0 / t.rowsPerStrip
	sMax := (row0 + h - 1) / t.rowsPerStrip

	for s := sMin; s <= sMax; s++ {
		if s >= len(t.stripOffsets) {
			return eris.Errorf("geotiff: strip index %d out of range", s)
		}
		stripTop := s * t.rowsPerStrip
		stripRows := t.rowsPerStrip
		if stripTop+stripRows > t.height {
			stripRows = t.height - stripTop
		}
		data, err := t.readChunk(t.stripOffsets[s], t.stripCounts[s], t.width, stripRows)
		if err != nil {
			return err
		}
		for sy := 0; sy < stripRows; sy++ {
			row := stripTop + sy - row0
			if row < 0 || row >= h {
				continue
			}
			copy(out.Data[row*w:row*w+w], data[sy*t.width+col0:sy*t.width+col0+w])
		}
	}
	return nil
}

// readChunk fetches and decodes one tile or strip.
func (t *TIFFReader) readChunk(offset, count uint64, chunkW, chunkH int) ([]byte, error) {
	raw := make([]byte, count)
	if _, err := t.r.ReadAt(raw, int64(offset)); err != nil {
		return nil, eris.Wrap(err, "geotiff: read chunk")
	}

	var data []byte
	switch t.compression {
	case compressionNone:
		data = raw
	case compressionDeflate, compressionOldDeflate:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, eris.Wrap(err, "geotiff: open deflate chunk")
		}
		data, err = io.ReadAll(zr)
		_ = zr.Close()
		if err != nil {
			return nil, eris.Wrap(err, "geotiff: decompress chunk")
		}
	}

	if len(data) < chunkW*chunkH {
		return nil, eris.Errorf("geotiff: chunk truncated: %d bytes for %dx%d", len(data), chunkW, chunkH)
	}

	if t.predictor == 2 {
		for y := 0; y < chunkH; y++ {
			rowStart := y * chunkW
			for x := 1; x < chunkW; x++ {
				data[rowStart+x] += data[rowStart+x-1]
			}
		}
	}
	return data, nil
}
