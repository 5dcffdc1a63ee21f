package lcz

// standardColors is the conventional LCZ rendering palette, one color per
// class code 1-17. It is a constant of the taxonomy, not derived data, so
// every render of the same dataset gets the same visual identity.
var standardColors = [17]string{
	"#910613", "#D9081C", "#FF0A22", "#C54F1E", "#FF6628", "#FF985E",
	"#FDED3F", "#BBBBBB", "#FFCBAB", "#565656", "#006A18", "#00A926",
	"#628432", "#B5DA7F", "#000000", "#FCF7B1", "#656BFA",
}

// colorblindColors is an alternate colorblind-safe palette.
var colorblindColors = [17]string{
	"#E16A86", "#D8755E", "#C98027", "#B48C00", "#989600", "#739F00",
	"#36A631", "#00AA63", "#00AD89", "#00ACAA", "#00A7C5", "#009EDA",
	"#6290E5", "#9E7FE5", "#C36FDA", "#D965C6", "#E264A9",
}

// unknownColor is used for codes outside the recognized 1-17 range.
const unknownColor = "#808080"

// Color returns the standard palette color for a class code. Codes outside
// 1-17 map to a neutral gray.
func Color(code int) string {
	if code < 1 || code > 17 {
		return unknownColor
	}
	return standardColors[code-1]
}

// ColorInclusive returns the colorblind-safe palette color for a class code.
func ColorInclusive(code int) string {
	if code < 1 || code > 17 {
		return unknownColor
	}
	return colorblindColors[code-1]
}

// Colors returns the standard palette ordered by class code.
func Colors() []string {
	out := make([]string, len(standardColors))
	copy(out, standardColors[:])
	return out
}
