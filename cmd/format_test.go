package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/urbanclimate-lab/lczmap/internal/lcz"
	"github.com/urbanclimate-lab/lczmap/internal/stats"
	"github.com/urbanclimate-lab/lczmap/internal/validate"
)

func TestFormatRecords(t *testing.T) {
	records := []stats.Record{
		{Symbol: "LCZ 5", Description: "Open midrise: spaced mid-height buildings", TotalAreaKm2: 71.5, PercentageOfTotal: 55.0, PolygonCount: 12, MeanAreaKm2: 5.958},
		{Symbol: "LCZ A", Description: "Dense trees: closed forest canopy", TotalAreaKm2: 58.5, PercentageOfTotal: 45.0, PolygonCount: 3, MeanAreaKm2: 19.5},
	}
	summary := stats.Summary{GrandTotalKm2: 130.0, ClassCount: 2, PolygonCount: 15, Dominant: "LCZ 5", DominantShare: 55.0}

	var buf bytes.Buffer
	formatRecords(&buf, "Testville", records, summary)

	out := buf.String()
	assert.Contains(t, out, "Testville")
	assert.Contains(t, out, "LCZ 5")
	assert.Contains(t, out, "71.500")
	assert.Contains(t, out, "55.00%")
	assert.Contains(t, out, "Dominant: LCZ 5 (55.0%)")
}

func TestFormatReport(t *testing.T) {
	var buf bytes.Buffer
	formatReport(&buf, validate.Report{
		IsValid:  false,
		Errors:   []string{"entry 0: missing symbol"},
		Warnings: []string{"entry 1: unknown symbol"},
		Info:     []string{"2 classes, 5 polygons"},
	})

	out := buf.String()
	assert.Contains(t, out, "Validation: FAILED")
	assert.Contains(t, out, "error: entry 0: missing symbol")
	assert.Contains(t, out, "warning: entry 1: unknown symbol")
	assert.Contains(t, out, "2 classes, 5 polygons")
}

func TestFormatReport_Valid(t *testing.T) {
	var buf bytes.Buffer
	formatReport(&buf, validate.Report{IsValid: true})
	assert.Contains(t, buf.String(), "Validation: OK")
}

func TestFormatClasses(t *testing.T) {
	var buf bytes.Buffer
	formatClasses(&buf, lcz.All())

	out := buf.String()
	assert.Contains(t, out, "LCZ 1")
	assert.Contains(t, out, "LCZ G")
	assert.Contains(t, out, "#910613")
}
