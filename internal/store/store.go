// Package store persists analysis runs and caches resolved boundaries.
package store

import (
	"context"
	"time"

	"github.com/urbanclimate-lab/lczmap/internal/stats"
	"github.com/urbanclimate-lab/lczmap/internal/validate"
)

// RunStatus tracks the lifecycle of an analysis run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded analysis of a place.
type Run struct {
	ID          string     `json:"id"`
	Place       string     `json:"place"`
	DisplayName string     `json:"display_name,omitempty"`
	Factor      int        `json:"factor"`
	Status      RunStatus  `json:"status"`
	Result      *RunResult `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RunResult is the persisted outcome of a completed run.
type RunResult struct {
	Summary   stats.Summary   `json:"summary"`
	Records   []stats.Record  `json:"records"`
	Report    validate.Report `json:"report"`
	Artifacts []string        `json:"artifacts,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Place  string    `json:"place,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for the analysis pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, place string, factor int) (*Run, error)
	CompleteRun(ctx context.Context, runID, displayName string, result *RunResult) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Boundary cache: resolved place boundaries as GeoJSON, so repeated
	// analyses of the same place skip the geocoder.
	GetCachedBoundary(ctx context.Context, place string) ([]byte, string, error)
	SetCachedBoundary(ctx context.Context, place, displayName string, geojson []byte, ttl time.Duration) error
	DeleteExpiredBoundaries(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
