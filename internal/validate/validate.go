// Package validate checks a dissolved class layer for structural problems.
// Findings are returned as a report, never as an error or panic: a broken
// dataset is a result to present, not a failure of the program.
package validate

import (
	"fmt"
	"sort"

	"github.com/twpayne/go-geom"

	"github.com/urbanclimate-lab/lczmap/internal/lcz"
	"github.com/urbanclimate-lab/lczmap/internal/vector"
)

// Report is the outcome of a dataset validation. Errors make the dataset
// unusable; warnings flag degraded quality; info carries neutral facts.
type Report struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Info     []string `json:"info"`
}

// Check validates the dissolved layer. It tolerates nil slices, nil
// geometries and unknown codes without panicking.
func Check(polys []vector.ClassPolygon) Report {
	var r Report

	if len(polys) == 0 {
		r.Errors = append(r.Errors, "dataset is empty: no class polygons")
		return r
	}

	known := make(map[string]struct{}, 17)
	for _, s := range lcz.Symbols() {
		known[s] = struct{}{}
	}

	var totalArea float64
	var polygonCount, brokenRings int
	var unknownSymbols []string
	seen := make(map[int]int, len(polys))

	for i, cp := range polys {
		seen[cp.Code]++

		if cp.Symbol == "" {
			r.Errors = append(r.Errors, fmt.Sprintf("entry %d (code %d) has no symbol", i, cp.Code))
		} else if _, ok := known[cp.Symbol]; !ok {
			unknownSymbols = append(unknownSymbols, cp.Symbol)
		}

		if cp.Geometry == nil || cp.Geometry.NumPolygons() == 0 {
			r.Errors = append(r.Errors, fmt.Sprintf("entry %d (%s) has no geometry", i, cp.Symbol))
			continue
		}

		polygonCount += cp.Geometry.NumPolygons()
		totalArea += cp.AreaKm2
		brokenRings += countBrokenRings(cp.Geometry)

		if cp.AreaKm2 < 0 {
			r.Errors = append(r.Errors, fmt.Sprintf("entry %d (%s) has negative area", i, cp.Symbol))
		}
	}

	codes := make([]int, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		if n := seen[code]; n > 1 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("class code %d appears in %d entries; expected one after dissolve", code, n))
		}
	}
	if len(unknownSymbols) > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d entries carry symbols outside the LCZ taxonomy: %v", len(unknownSymbols), unknownSymbols))
	}
	if brokenRings > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d rings are degenerate (self-intersecting, unclosed or fewer than 4 vertices)", brokenRings))
	}

	r.Info = append(r.Info,
		fmt.Sprintf("%d classes, %d polygons", len(polys), polygonCount),
		fmt.Sprintf("total classified area %.3f km²", totalArea),
	)

	r.IsValid = len(r.Errors) == 0
	return r
}

// countBrokenRings counts rings that are not closed, have too few vertices to
// bound an area, or cross themselves.
func countBrokenRings(mp *geom.MultiPolygon) int {
	broken := 0
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		for j := 0; j < p.NumLinearRings(); j++ {
			coords := p.LinearRing(j).Coords()
			if len(coords) < 4 {
				broken++
				continue
			}
			first, last := coords[0], coords[len(coords)-1]
			if first.X() != last.X() || first.Y() != last.Y() {
				broken++
				continue
			}
			if ringSelfIntersects(coords) {
				broken++
			}
		}
	}
	return broken
}

// ringSelfIntersects reports whether any two non-adjacent edges of a closed
// ring properly cross. Rings here are small, so the pairwise test is fine.
func ringSelfIntersects(coords []geom.Coord) bool {
	n := len(coords) - 1 // the closing vertex repeats the first
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // first and last edges share the closing vertex
			}
			if segmentsCross(coords[i], coords[i+1], coords[j], coords[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsCross(a, b, c, d geom.Coord) bool {
	return sign(orient(a, b, c))*sign(orient(a, b, d)) < 0 &&
		sign(orient(c, d, a))*sign(orient(c, d, b)) < 0
}

func orient(a, b, c geom.Coord) float64 {
	return (b.X()-a.X())*(c.Y()-a.Y()) - (b.Y()-a.Y())*(c.X()-a.X())
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
