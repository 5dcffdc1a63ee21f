// Package lcz holds the Local Climate Zone reference catalog: the 17 classes
// of the Stewart & Oke taxonomy with their descriptive attributes and the
// fixed rendering palette. The catalog is immutable and safe for concurrent
// reads.
package lcz

// NoData is the sentinel grid value meaning "no valid classification". It is
// outside the 1-17 class code range by construction.
const NoData uint8 = 255

// ClassDefinition describes one Local Climate Zone class.
type ClassDefinition struct {
	Code                    int    `json:"code"`
	Symbol                  string `json:"symbol"`
	Description             string `json:"description"`
	ThermalEffect           string `json:"thermal_effect"`
	HeatIslandContribution  string `json:"heat_island_contribution"`
	RecommendedIntervention string `json:"recommended_intervention"`
}

var catalog = [17]ClassDefinition{
	{1, "LCZ 1", "Compact high-rise: dense clusters of tall buildings",
		"Strongest urban heat retention, intense nocturnal warming.",
		"Very strong contribution to the urban heat island.",
		"Create ventilation corridors, vertical greenery, cool roofs."},
	{2, "LCZ 2", "Compact midrise: dense mid-height buildings",
		"High heat absorption, little ventilation.",
		"Strong contribution to the urban heat island.",
		"Expand green areas, promote green roofs, reinforce ventilation."},
	{3, "LCZ 3", "Compact low-rise: dense low buildings",
		"Elevated warming, less intense than high-rise.",
		"Strong contribution, below LCZ 1-2.",
		"Maintain ventilation corridors and street trees."},
	{4, "LCZ 4", "Open high-rise: spaced tall towers",
		"Warming reduced by ventilation, strong daytime heat.",
		"Moderate contribution thanks to ventilation.",
		"Integrate green areas between towers, favor cross ventilation."},
	{5, "LCZ 5", "Open midrise: spaced mid-height buildings",
		"Moderate warming, reasonable ventilation.",
		"Moderate contribution.",
		"Preserve ventilation and plant street trees."},
	{6, "LCZ 6", "Open low-rise: spaced low houses",
		"Light warming, relatively low thermal effect.",
		"Low contribution.",
		"Expand urban vegetation and reduce sealed surfaces."},
	{7, "LCZ 7", "Lightweight low-rise: light or informal construction",
		"Lightweight materials heat quickly during the day.",
		"Variable contribution, usually moderate.",
		"Improve urban infrastructure and increase vegetation."},
	{8, "LCZ 8", "Large low-rise: warehouses, malls, industry halls",
		"Extensive surfaces accumulate heat and radiate at night.",
		"Can form local industrial and commercial heat islands.",
		"Apply cool roofing, reduce impervious paving."},
	{9, "LCZ 9", "Sparsely built: scattered buildings",
		"Low to moderate warming depending on density.",
		"Low contribution, can accumulate heat locally.",
		"Avoid over-densification, introduce tree cover."},
	{10, "LCZ 10", "Heavy industry: heavy industrial areas",
		"High warming from impervious industrial surfaces.",
		"High contribution, especially at night.",
		"Control emissions and increase perimeter tree cover."},
	{11, "LCZ A", "Dense trees: dense urban forest",
		"Significant cooling through shading and evapotranspiration.",
		"Significant heat island mitigation.",
		"Preserve and expand urban parks."},
	{12, "LCZ B", "Scattered trees: dispersed trees",
		"Moderate temperature reduction, ventilation matters.",
		"Moderate mitigation.",
		"Increase tree density and connect green corridors."},
	{13, "LCZ C", "Bush, scrub: shrub vegetation",
		"Small cooling effect, limited evapotranspiration.",
		"Light mitigation.",
		"Revegetate and control irregular occupation."},
	{14, "LCZ D", "Low plants: lawns, fields",
		"Softens daytime temperatures, little nocturnal effect.",
		"Light to moderate mitigation.",
		"Expand permeable areas and lawns."},
	{15, "LCZ E", "Bare rock or paved: exposed rock or pavement",
		"Can intensify local surface heat islands.",
		"Increases local warming.",
		"Replace with cool pavements, introduce tree cover."},
	{16, "LCZ F", "Bare soil or sand",
		"Moderate contribution from bare surfaces.",
		"Low contribution.",
		"Revegetate exposed areas or stabilize soils."},
	{17, "LCZ G", "Water: rivers, lakes, oceans",
		"Mitigates the heat island, can cool microclimates.",
		"Mitigates, can cool surroundings.",
		"Protect and integrate water bodies into the urban fabric."},
}

// Lookup returns the definition for a class code, or ok=false when the code
// is outside 1-17. Callers are expected to fall back to an "Unknown" label
// rather than fail the pipeline.
func Lookup(code int) (ClassDefinition, bool) {
	if code < 1 || code > 17 {
		return ClassDefinition{}, false
	}
	return catalog[code-1], true
}

// All returns the full catalog ordered by class code.
func All() []ClassDefinition {
	defs := make([]ClassDefinition, len(catalog))
	copy(defs, catalog[:])
	return defs
}

// Symbols returns the 17 recognized class symbols ordered by class code.
func Symbols() []string {
	syms := make([]string, len(catalog))
	for i, d := range catalog {
		syms[i] = d.Symbol
	}
	return syms
}
