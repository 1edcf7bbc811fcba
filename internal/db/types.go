package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/podcast-agent/internal/types"
)

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)

// Grounding row kinds
const (
	GroundingQuery  = "query"
	GroundingSource = "source"
)

// Run represents a podcast run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Topic       string     `json:"topic"`
	PartCount   int        `json:"part_count"`
	UseSearch   bool       `json:"use_search"`
	Status      string     `json:"status"`
	SessionDir  *string    `json:"session_dir,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StageRow is one row of run_stages
type StageRow struct {
	Stage      string
	Status     string
	DurationMS int64
	ErrorKind  *string
	Message    *string
}

// GroundingRow is one row of grounding_sources
type GroundingRow struct {
	Position int
	Kind     string
	Value    string
	Title    *string
}

// RunStatus summarizes a result into a single run status.
// A run with no successful stage is failed; any failure or skip otherwise makes it partial.
func RunStatus(result *types.PipelineResult) string {
	succeeded, other := 0, 0
	for _, o := range result.Stages {
		switch o.Status {
		case types.StatusSucceeded:
			succeeded++
		case types.StatusFailed, types.StatusSkipped:
			other++
		}
	}
	switch {
	case succeeded == 0:
		return RunStatusFailed
	case other > 0:
		return RunStatusPartial
	default:
		return RunStatusSucceeded
	}
}

// stageRows flattens stage outcomes and their errors
func stageRows(result *types.PipelineResult) []StageRow {
	rows := make([]StageRow, 0, len(result.Stages))
	for _, o := range result.Stages {
		row := StageRow{
			Stage:      string(o.Stage),
			Status:     string(o.Status),
			DurationMS: o.Duration.Milliseconds(),
		}
		if e, ok := result.ErrorFor(o.Stage); ok {
			kind := string(e.Kind)
			msg := e.Message
			row.ErrorKind = &kind
			row.Message = &msg
		} else if o.Reason != "" {
			reason := o.Reason
			row.Message = &reason
		}
		rows = append(rows, row)
	}
	return rows
}

// groundingRows flattens queries and sources, each keeping its own order
func groundingRows(g *types.GroundingMetadata) []GroundingRow {
	if g == nil {
		return nil
	}
	rows := make([]GroundingRow, 0, len(g.SearchQueries)+len(g.Sources))
	for i, q := range g.SearchQueries {
		rows = append(rows, GroundingRow{Position: i, Kind: GroundingQuery, Value: q})
	}
	for i, s := range g.Sources {
		row := GroundingRow{Position: i, Kind: GroundingSource, Value: s.URI}
		if s.Title != "" {
			title := s.Title
			row.Title = &title
		}
		rows = append(rows, row)
	}
	return rows
}
