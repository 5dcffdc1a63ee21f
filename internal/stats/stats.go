// Package stats computes the areal composition of a dissolved class layer:
// per-class totals and distribution moments, shares of the analyzed surface,
// and the chart/export renderings of those numbers.
package stats

import (
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/urbanclimate-lab/lczmap/internal/vector"
)

// Record is the areal summary of one class.
type Record struct {
	Code              int     `json:"code"`
	Symbol            string  `json:"symbol"`
	Description       string  `json:"description"`
	Color             string  `json:"color"`
	TotalAreaKm2      float64 `json:"total_area_km2"`
	PercentageOfTotal float64 `json:"percentage_of_total"`
	PolygonCount      int     `json:"polygon_count"`
	MeanAreaKm2       float64 `json:"mean_area_km2"`
	StdAreaKm2        float64 `json:"std_area_km2"`
	MinAreaKm2        float64 `json:"min_area_km2"`
	MaxAreaKm2        float64 `json:"max_area_km2"`
}

// Summary condenses a full analysis for listings and persistence.
type Summary struct {
	GrandTotalKm2 float64 `json:"grand_total_km2"`
	ClassCount    int     `json:"class_count"`
	PolygonCount  int     `json:"polygon_count"`
	Dominant      string  `json:"dominant"`
	DominantShare float64 `json:"dominant_share"`
}

// Compute derives per-class records from the dissolved layer, ordered by
// total area descending; equal totals keep ascending code order so the
// result is stable. Computing twice over the same layer gives identical
// output. A layer whose grand total is zero is rejected: percentages would
// be undefined.
func Compute(polys []vector.ClassPolygon) ([]Record, error) {
	if len(polys) == 0 {
		return nil, eris.New("stats: no class polygons")
	}

	var grandTotal float64
	for _, cp := range polys {
		grandTotal += cp.AreaKm2
	}
	if grandTotal <= 0 {
		return nil, eris.New("stats: zero total area, nothing to summarize")
	}

	records := make([]Record, 0, len(polys))
	for _, cp := range polys {
		areas := memberAreas(cp)
		r := Record{
			Code:              cp.Code,
			Symbol:            cp.Symbol,
			Description:       cp.Description,
			Color:             cp.Color,
			TotalAreaKm2:      cp.AreaKm2,
			PercentageOfTotal: cp.AreaKm2 / grandTotal * 100,
			PolygonCount:      cp.PolygonCount,
		}
		if len(areas) > 0 {
			r.MeanAreaKm2 = stat.Mean(areas, nil)
			r.MinAreaKm2 = floats.Min(areas)
			r.MaxAreaKm2 = floats.Max(areas)
			if len(areas) > 1 {
				r.StdAreaKm2 = stat.StdDev(areas, nil)
			}
		}
		records = append(records, r)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].TotalAreaKm2 != records[j].TotalAreaKm2 {
			return records[i].TotalAreaKm2 > records[j].TotalAreaKm2
		}
		return records[i].Code < records[j].Code
	})
	return records, nil
}

// Summarize reduces the records to headline numbers. Records must be the
// output of Compute, so the first entry is the dominant class.
func Summarize(records []Record) Summary {
	s := Summary{ClassCount: len(records)}
	for _, r := range records {
		s.GrandTotalKm2 += r.TotalAreaKm2
		s.PolygonCount += r.PolygonCount
	}
	if len(records) > 0 {
		s.Dominant = records[0].Symbol
		s.DominantShare = records[0].PercentageOfTotal
	}
	return s
}

// memberAreas returns the equal-area surface of each member polygon of a
// dissolved class.
func memberAreas(cp vector.ClassPolygon) []float64 {
	mp := cp.Geometry
	if mp == nil {
		return nil
	}
	areas := make([]float64, 0, mp.NumPolygons())
	for i := 0; i < mp.NumPolygons(); i++ {
		areas = append(areas, vector.PolygonAreaKm2(mp.Polygon(i)))
	}
	return areas
}

// PlotData is the chart-ready projection of the records: parallel slices in
// record order.
type PlotData struct {
	Labels      []string  `json:"labels"`
	Areas       []float64 `json:"areas"`
	Percentages []float64 `json:"percentages"`
	Counts      []int     `json:"counts"`
	Colors      []string  `json:"colors"`
}

// ToPlotData flattens records for rendering.
func ToPlotData(records []Record) PlotData {
	pd := PlotData{
		Labels:      make([]string, len(records)),
		Areas:       make([]float64, len(records)),
		Percentages: make([]float64, len(records)),
		Counts:      make([]int, len(records)),
		Colors:      make([]string, len(records)),
	}
	for i, r := range records {
		pd.Labels[i] = r.Symbol
		pd.Areas[i] = r.TotalAreaKm2
		pd.Percentages[i] = r.PercentageOfTotal
		pd.Counts[i] = r.PolygonCount
		pd.Colors[i] = r.Color
	}
	return pd
}
