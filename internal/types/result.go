package types

import (
	"strings"
	"time"
)

// MediaKind distinguishes image and video artifacts
type MediaKind string

// Media kinds
const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaArtifact is an in-memory binary payload produced by a stage.
// Bytes are never serialized; callers persist them however they like.
type MediaArtifact struct {
	Kind     MediaKind `json:"kind"`
	Bytes    []byte    `json:"-"`
	MIMEType string    `json:"mime_type"`
	Size     int       `json:"size_bytes"`
}

// NewMediaArtifact builds an artifact and records its size
func NewMediaArtifact(kind MediaKind, data []byte, mimeType string) *MediaArtifact {
	return &MediaArtifact{Kind: kind, Bytes: data, MIMEType: mimeType, Size: len(data)}
}

// ScriptSegment is one ordered chunk of a generated script
type ScriptSegment struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Source is a single cited web source
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// GroundingMetadata ties generated text to the searches and sources behind it
type GroundingMetadata struct {
	SearchQueries []string `json:"search_queries"`
	Sources       []Source `json:"sources"`
}

// Script is the parsed output of the script stage
type Script struct {
	Segments  []ScriptSegment    `json:"segments"`
	Grounding *GroundingMetadata `json:"grounding,omitempty"`
	Strategy  string             `json:"strategy,omitempty"`
	Warnings  []Warning          `json:"warnings,omitempty"`
}

// FullText joins the segments back into one script for downstream stages
func (s *Script) FullText() string {
	return JoinSegments(s.Segments, "\n\n")
}

// JoinSegments concatenates segment texts with sep
func JoinSegments(segments []ScriptSegment, sep string) string {
	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		texts = append(texts, seg.Text)
	}
	return strings.Join(texts, sep)
}

// StageStatus is the final state of one stage within a run
type StageStatus string

// Stage statuses
const (
	StatusSucceeded    StageStatus = "succeeded"
	StatusFailed       StageStatus = "failed"
	StatusSkipped      StageStatus = "skipped"
	StatusNotRequested StageStatus = "not_requested"
)

// StageOutcome records how a stage ended
type StageOutcome struct {
	Stage    StageName     `json:"stage"`
	Status   StageStatus   `json:"status"`
	Duration time.Duration `json:"duration_ns"`
	Reason   string        `json:"reason,omitempty"`
}

// StageError is a failure recorded against a stage
type StageError struct {
	Stage   StageName `json:"stage"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Warning is a non-fatal condition recorded against a stage
type Warning struct {
	Stage   StageName `json:"stage"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// PipelineResult aggregates every artifact and failure of one run.
// A partially filled result is a valid output.
type PipelineResult struct {
	RunID      string             `json:"run_id"`
	Topic      string             `json:"topic"`
	PartCount  int                `json:"part_count"`
	UseSearch  bool               `json:"use_search"`
	Image      *MediaArtifact     `json:"image,omitempty"`
	Script     []ScriptSegment    `json:"script,omitempty"`
	Grounding  *GroundingMetadata `json:"grounding,omitempty"`
	Video      *MediaArtifact     `json:"video,omitempty"`
	Errors     []StageError       `json:"errors"`
	Warnings   []Warning          `json:"warnings"`
	Stages     []StageOutcome     `json:"stages"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// Outcome returns the recorded outcome for a stage, if any
func (r *PipelineResult) Outcome(stage StageName) (StageOutcome, bool) {
	for _, o := range r.Stages {
		if o.Stage == stage {
			return o, true
		}
	}
	return StageOutcome{}, false
}

// Succeeded reports whether every requested stage succeeded
func (r *PipelineResult) Succeeded() bool {
	for _, o := range r.Stages {
		if o.Status == StatusFailed || o.Status == StatusSkipped {
			return false
		}
	}
	return true
}

// ErrorFor returns the first error recorded for a stage
func (r *PipelineResult) ErrorFor(stage StageName) (StageError, bool) {
	for _, e := range r.Errors {
		if e.Stage == stage {
			return e, true
		}
	}
	return StageError{}, false
}
