package extract

import (
	"strings"

	"github.com/jonathan/podcast-agent/internal/llm"
	"github.com/jonathan/podcast-agent/internal/types"
)

var groundingKeys = []string{"groundingMetadata", "grounding_metadata"}

// Grounding collects search queries and cited sources from a response.
// It returns nil when the response carries no grounding block, which is the
// common case whenever search was not used.
func Grounding(resp *llm.Response) *types.GroundingMetadata {
	if resp == nil {
		return nil
	}
	block, ok := groundingBlock(resp.Body)
	if !ok {
		return nil
	}

	queries := collectQueries(block)
	sources := collectSources(block)
	if len(queries) == 0 && len(sources) == 0 {
		return nil
	}
	return &types.GroundingMetadata{SearchQueries: queries, Sources: sources}
}

func groundingBlock(doc any) (any, bool) {
	if candidates, ok := lookup(doc, "candidates"); ok {
		if candidate, ok := first(candidates); ok {
			if block, ok := lookup(candidate, groundingKeys...); ok {
				return block, true
			}
		}
	}
	return lookup(doc, groundingKeys...)
}

// collectQueries keeps the order the service reported
func collectQueries(block any) []string {
	out := []string{}
	raw, ok := lookup(block, "webSearchQueries", "web_search_queries")
	if !ok {
		return out
	}
	items, _ := list(raw)
	for _, item := range items {
		if q, ok := str(item); ok && strings.TrimSpace(q) != "" {
			out = append(out, strings.TrimSpace(q))
		}
	}
	return out
}

// collectSources dedupes by URI, keeping first-seen order
func collectSources(block any) []types.Source {
	out := []types.Source{}
	raw, ok := lookup(block, "groundingChunks", "grounding_chunks")
	if !ok {
		return out
	}
	items, _ := list(raw)
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		web, ok := lookup(item, "web", "retrievedContext", "retrieved_context")
		if !ok {
			continue
		}
		uri := lookupString(web, "uri")
		if uri == "" || seen[uri] {
			continue
		}
		seen[uri] = true
		out = append(out, types.Source{URI: uri, Title: lookupString(web, "title")})
	}
	return out
}
