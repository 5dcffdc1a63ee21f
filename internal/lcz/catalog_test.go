package lcz

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Complete(t *testing.T) {
	all := All()
	require.Len(t, all, 17)

	for i, def := range all {
		assert.Equal(t, i+1, def.Code)
		assert.NotEmpty(t, def.Symbol)
		assert.NotEmpty(t, def.Description)
		assert.NotEmpty(t, def.ThermalEffect)
		assert.NotEmpty(t, def.HeatIslandContribution)
		assert.NotEmpty(t, def.RecommendedIntervention)
	}
}

func TestCatalog_SymbolConvention(t *testing.T) {
	// Built classes 1-10 carry numeric symbols, natural classes 11-17 the
	// letters A-G.
	for code := 1; code <= 10; code++ {
		def, ok := Lookup(code)
		require.True(t, ok)
		assert.Equal(t, "LCZ "+strconv.Itoa(code), def.Symbol)
	}
	letters := []string{"A", "B", "C", "D", "E", "F", "G"}
	for i, letter := range letters {
		def, ok := Lookup(11 + i)
		require.True(t, ok)
		assert.Equal(t, "LCZ "+letter, def.Symbol)
	}
}

func TestLookup_OutOfRange(t *testing.T) {
	for _, code := range []int{0, -1, 18, int(NoData)} {
		_, ok := Lookup(code)
		assert.False(t, ok, "code %d", code)
	}
}

func TestSymbols_Unique(t *testing.T) {
	syms := Symbols()
	require.Len(t, syms, 17)
	seen := make(map[string]bool)
	for _, s := range syms {
		assert.False(t, seen[s], "duplicate symbol %s", s)
		seen[s] = true
	}
}

func TestNoDataOutsideClassRange(t *testing.T) {
	_, ok := Lookup(int(NoData))
	assert.False(t, ok)
}

func TestColor(t *testing.T) {
	assert.Equal(t, "#910613", Color(1))
	assert.Equal(t, "#656BFA", Color(17), "LCZ G (water) is blue")
	assert.Equal(t, "#808080", Color(0))
	assert.Equal(t, "#808080", Color(255))

	for code := 1; code <= 17; code++ {
		assert.True(t, strings.HasPrefix(Color(code), "#"))
		assert.True(t, strings.HasPrefix(ColorInclusive(code), "#"))
	}
}

func TestColors_Ordered(t *testing.T) {
	colors := Colors()
	require.Len(t, colors, 17)
	for code := 1; code <= 17; code++ {
		assert.Equal(t, Color(code), colors[code-1])
	}
}
