package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/podcast-agent/internal/types"
)

// Response is an opaque, shape-varying model response.
// Only the extract package looks inside Body.
type Response struct {
	Raw  []byte
	Body any
}

// DecodeResponse parses a raw JSON body into a Response
func DecodeResponse(raw []byte) (*Response, error) {
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &types.Error{
			Kind:    types.KindUnparsable,
			Message: "response body is not JSON",
			Cause:   err,
			Raw:     raw,
		}
	}
	return &Response{Raw: raw, Body: body}, nil
}

// NewResponse wraps an already-decoded document, keeping a raw copy for diagnostics
func NewResponse(body any) *Response {
	raw, _ := json.Marshal(body)
	return &Response{Raw: raw, Body: body}
}

// TextRequest asks the text model for one completion
type TextRequest struct {
	Model           string
	Prompt          string
	Temperature     float32
	MaxOutputTokens int
	UseSearch       bool
}

// ImageRequest asks the image model for still images
type ImageRequest struct {
	Model       string
	Prompt      string
	Count       int
	AspectRatio string
}

// VideoRequest submits a long-running video generation job
type VideoRequest struct {
	Model       string
	Prompt      string
	Image       *types.MediaArtifact
	AspectRatio string
}

// TextModel generates text with an optional search tool attached
type TextModel interface {
	GenerateText(ctx context.Context, req TextRequest) (*Response, error)
}

// ImageModel generates still images in a single request/response call
type ImageModel interface {
	GenerateImages(ctx context.Context, req ImageRequest) (*Response, error)
}

// VideoModel drives the submit/poll protocol of the video service
type VideoModel interface {
	// SubmitVideo starts a job and returns the service's acknowledgement
	SubmitVideo(ctx context.Context, req VideoRequest) (*Response, error)
	// GetOperation queries the job identified by handle
	GetOperation(ctx context.Context, handle string) (*Response, error)
	// Download fetches the finished media and its MIME type
	Download(ctx context.Context, uri string) ([]byte, string, error)
}

// NewTextModel creates the text model for the configured backend
func NewTextModel(ctx context.Context, config *Config, apiKey string) (TextModel, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Backend {
	case BackendSDK:
		return NewSDKTextModel(ctx, apiKey)
	case BackendREST, "":
		return NewRESTClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported text backend %q", config.Backend)
	}
}
