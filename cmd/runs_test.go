package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/urbanclimate-lab/lczmap/internal/store"
)

func TestComputeRunStats(t *testing.T) {
	now := time.Now()
	runs := []store.Run{
		{Status: store.RunStatusComplete, CreatedAt: now, UpdatedAt: now.Add(10 * time.Second)},
		{Status: store.RunStatusComplete, CreatedAt: now, UpdatedAt: now.Add(20 * time.Second)},
		{Status: store.RunStatusFailed, CreatedAt: now, UpdatedAt: now.Add(time.Second)},
		{Status: store.RunStatusRunning, CreatedAt: now, UpdatedAt: now},
	}

	s := computeRunStats(runs)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Running)
	assert.InDelta(t, 15.0, s.AvgDurSecs, 0.001)
}

func TestComputeRunStats_Empty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.AvgDurSecs)
}

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	runs := []store.Run{
		{
			ID:          "0c9a7e1e-5df2-47a8-9f0a-1f53f1f0be6d",
			Place:       "rio de janeiro",
			DisplayName: "Rio de Janeiro, Região Sudeste, Brasil",
			Factor:      10,
			Status:      store.RunStatusComplete,
			CreatedAt:   now,
			UpdatedAt:   now.Add(42 * time.Second),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "0c9a7e1e")
	assert.NotContains(t, out, "0c9a7e1e-5df2") // truncated
	assert.Contains(t, out, "Rio de Janeiro")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "2026-03-14 09:30")
	assert.Contains(t, out, "42s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("123456789abc"))
	assert.Equal(t, "short", truncateID("short"))
}
