// Package segment splits one generated script into a fixed number of ordered parts.
package segment

import (
	"fmt"
	"strings"

	"github.com/jonathan/podcast-agent/internal/types"
)

// StrategyWhole is reported when no boundary strategy applied
const StrategyWhole = "whole_text"

// Strategy detects part boundaries in raw model output.
// Split returns the uncleaned pieces in text order, or nil when the
// strategy does not recognize the text.
type Strategy interface {
	Name() string
	Split(text string) []string
}

// DefaultStrategies returns the boundary strategies in priority order
func DefaultStrategies() []Strategy {
	return []Strategy{Markers{}, Separators{}, Paragraphs{}}
}

// Partition is the result of segmenting one script
type Partition struct {
	Segments []types.ScriptSegment
	// Strategy names the boundary strategy that produced Segments
	Strategy string
	// Warning is set when the number of parts did not match the request
	Warning *types.Warning
}

// Segmenter applies boundary strategies in order and enforces the part count.
// It holds no mutable state and is safe for concurrent use.
type Segmenter struct {
	strategies []Strategy
}

// New creates a segmenter. With no strategies it uses DefaultStrategies.
func New(strategies ...Strategy) *Segmenter {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Segmenter{strategies: strategies}
}

// Segment splits raw into at most expected cleaned segments.
// Fewer parts than expected are returned as found; extra parts are merged into the last one.
// Both cases attach an IncompletePartition warning.
func (s *Segmenter) Segment(raw string, expected int) Partition {
	if expected < 1 {
		expected = 1
	}

	pieces, strategy := s.split(raw)
	segments := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if cleaned := Clean(piece); cleaned != "" {
			segments = append(segments, cleaned)
		}
	}

	var warning *types.Warning
	found := len(segments)
	switch {
	case found > expected:
		merged := strings.Join(segments[expected-1:], "\n")
		segments = append(segments[:expected-1], merged)
		warning = incomplete(fmt.Sprintf("found %d parts, expected %d; merged parts %d-%d into part %d",
			found, expected, expected, found, expected))
	case found < expected:
		warning = incomplete(fmt.Sprintf("found %d parts, expected %d", found, expected))
	}

	out := make([]types.ScriptSegment, len(segments))
	for i, text := range segments {
		out[i] = types.ScriptSegment{Index: i, Text: text}
	}
	return Partition{Segments: out, Strategy: strategy, Warning: warning}
}

// split returns the pieces of the first strategy whose pieces survive cleaning
func (s *Segmenter) split(raw string) ([]string, string) {
	for _, strategy := range s.strategies {
		pieces := strategy.Split(raw)
		if countNonEmpty(pieces) == 0 {
			continue
		}
		return pieces, strategy.Name()
	}
	return []string{raw}, StrategyWhole
}

func countNonEmpty(pieces []string) int {
	n := 0
	for _, p := range pieces {
		if Clean(p) != "" {
			n++
		}
	}
	return n
}

func incomplete(msg string) *types.Warning {
	return &types.Warning{Stage: types.StageScript, Kind: types.KindIncompletePartition, Message: msg}
}
