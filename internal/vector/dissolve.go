package vector

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/urbanclimate-lab/lczmap/internal/lcz"
)

// ClassPolygon is a dissolved, attributed class layer: every region of one
// class merged into a single multipolygon, joined with the catalog entry and
// its equal-area surface.
type ClassPolygon struct {
	Code                    int                `json:"code"`
	Symbol                  string             `json:"symbol"`
	Description             string             `json:"description"`
	ThermalEffect           string             `json:"thermal_effect"`
	HeatIslandContribution  string             `json:"heat_island_contribution"`
	RecommendedIntervention string             `json:"recommended_intervention"`
	Color                   string             `json:"color"`
	AreaKm2                 float64            `json:"area_km2"`
	PolygonCount            int                `json:"polygon_count"`
	Geometry                *geom.MultiPolygon `json:"-"`
}

// Dissolve merges same-class features into one ClassPolygon per class code,
// sorted ascending by code. Area is computed on the equal-area plane; codes
// missing from the catalog are kept with "Unknown" descriptive fields so no
// classified surface silently disappears.
func Dissolve(features []Feature) ([]ClassPolygon, error) {
	if len(features) == 0 {
		return nil, eris.New("vector: no features to dissolve")
	}

	byCode := make(map[uint8]*geom.MultiPolygon)
	counts := make(map[uint8]int)
	for _, f := range features {
		mp, ok := byCode[f.Code]
		if !ok {
			mp = geom.NewMultiPolygon(geom.XY)
			byCode[f.Code] = mp
		}
		if err := mp.Push(f.Geometry); err != nil {
			return nil, eris.Wrapf(err, "vector: dissolve class %d", f.Code)
		}
		counts[f.Code]++
	}

	codes := make([]uint8, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	out := make([]ClassPolygon, 0, len(codes))
	for _, code := range codes {
		mp := byCode[code]
		cp := ClassPolygon{
			Code:         int(code),
			AreaKm2:      MultiPolygonAreaKm2(mp),
			PolygonCount: counts[code],
			Geometry:     mp,
			Color:        lcz.Color(int(code)),
		}
		if def, ok := lcz.Lookup(int(code)); ok {
			cp.Symbol = def.Symbol
			cp.Description = def.Description
			cp.ThermalEffect = def.ThermalEffect
			cp.HeatIslandContribution = def.HeatIslandContribution
			cp.RecommendedIntervention = def.RecommendedIntervention
		} else {
			cp.Symbol = fmt.Sprintf("Class %d", code)
			cp.Description = "Unknown"
			cp.ThermalEffect = "Unknown"
			cp.HeatIslandContribution = "Unknown"
			cp.RecommendedIntervention = "Unknown"
		}
		out = append(out, cp)
	}
	return out, nil
}
