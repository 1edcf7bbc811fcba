package extract

import (
	"strings"

	"github.com/jonathan/podcast-agent/internal/llm"
	"github.com/jonathan/podcast-agent/internal/types"
)

// Shape names a known response layout
type Shape string

// Known text shapes, in the order they are tried
const (
	// ShapeFlatText is {"text": "..."}
	ShapeFlatText Shape = "flat_text"
	// ShapeCandidates is {"candidates": [{"content": {"parts": [{"text": "..."}]}}]}
	ShapeCandidates Shape = "candidates"
	// ShapeFlatParts is {"parts": [{"text": "..."}]}
	ShapeFlatParts Shape = "flat_parts"
)

type textStrategy struct {
	shape   Shape
	extract func(doc any) (string, bool)
}

// textStrategies is a closed set; the order is part of the contract because a
// document may satisfy several shapes with different content.
var textStrategies = []textStrategy{
	{shape: ShapeFlatText, extract: flatText},
	{shape: ShapeCandidates, extract: candidateText},
	{shape: ShapeFlatParts, extract: flatPartsText},
}

// Text returns the trimmed text of a response, trying each known shape in order.
func Text(resp *llm.Response) (string, error) {
	text, _, err := TextWithShape(resp)
	return text, err
}

// TextWithShape is Text that also reports which shape matched
func TextWithShape(resp *llm.Response) (string, Shape, error) {
	if resp == nil {
		return "", "", &types.Error{Kind: types.KindUnparsable, Message: "empty response"}
	}

	for _, strategy := range textStrategies {
		text, ok := strategy.extract(resp.Body)
		if !ok {
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return trimmed, strategy.shape, nil
		}
	}

	return "", "", &types.Error{
		Kind:    types.KindUnparsable,
		Message: "no known response shape yielded text",
		Raw:     resp.Raw,
	}
}

func flatText(doc any) (string, bool) {
	raw, ok := lookup(doc, "text")
	if !ok {
		return "", false
	}
	return str(raw)
}

func candidateText(doc any) (string, bool) {
	candidates, ok := lookup(doc, "candidates")
	if !ok {
		return "", false
	}
	candidate, ok := first(candidates)
	if !ok {
		return "", false
	}
	parts, ok := walk(candidate, k("content"), k("parts"))
	if !ok {
		return "", false
	}
	return joinParts(parts)
}

func flatPartsText(doc any) (string, bool) {
	parts, ok := lookup(doc, "parts")
	if !ok {
		return "", false
	}
	return joinParts(parts)
}

// joinParts concatenates the text of every part that has one
func joinParts(v any) (string, bool) {
	parts, ok := list(v)
	if !ok {
		return "", false
	}
	var sb strings.Builder
	found := false
	for _, part := range parts {
		raw, ok := lookup(part, "text")
		if !ok {
			continue
		}
		if text, ok := str(raw); ok {
			sb.WriteString(text)
			found = true
		}
	}
	return sb.String(), found
}
