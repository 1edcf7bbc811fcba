package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jonathan/podcast-agent/internal/types"
)

// SDKTextModel implements TextModel with the generative-ai-go SDK.
// It does not support the search tool.
type SDKTextModel struct {
	client *genai.Client
}

var _ TextModel = (*SDKTextModel)(nil)

// NewSDKTextModel creates a new Gemini SDK client. An empty key yields a model
// whose calls fail with AuthError.
func NewSDKTextModel(ctx context.Context, apiKey string) (*SDKTextModel, error) {
	if apiKey == "" {
		return &SDKTextModel{}, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &SDKTextModel{client: client}, nil
}

// GenerateText generates a completion and re-shapes it into the candidates document
func (m *SDKTextModel) GenerateText(ctx context.Context, req TextRequest) (*Response, error) {
	if m.client == nil {
		return nil, missingKeyError()
	}
	if req.UseSearch {
		return nil, types.NewError(types.KindInvalidRequest, "search grounding requires the rest backend", nil)
	}

	model := m.client.GenerativeModel(req.Model)
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxOutputTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, Classify(err)
	}

	return NewResponse(sdkDocument(resp)), nil
}

// Close releases resources held by the client
func (m *SDKTextModel) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// sdkDocument converts the typed SDK response into the generic candidates shape
func sdkDocument(resp *genai.GenerateContentResponse) map[string]any {
	candidates := []any{}
	if resp == nil {
		return map[string]any{"candidates": candidates}
	}

	for _, candidate := range resp.Candidates {
		if candidate == nil {
			continue
		}
		parts := []any{}
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					parts = append(parts, map[string]any{"text": string(text)})
				}
			}
		}
		candidates = append(candidates, map[string]any{
			"content":      map[string]any{"parts": parts},
			"finishReason": candidate.FinishReason.String(),
		})
	}

	return map[string]any{"candidates": candidates}
}
