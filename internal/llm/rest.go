package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"

	"github.com/jonathan/podcast-agent/internal/types"
)

// RESTClient implements TextModel, ImageModel and VideoModel against the
// Generative Language REST API.
type RESTClient struct {
	httpClient *http.Client
	endpoint   string
	hasKey     bool
}

var (
	_ TextModel  = (*RESTClient)(nil)
	_ ImageModel = (*RESTClient)(nil)
	_ VideoModel = (*RESTClient)(nil)
)

// NewRESTClient creates a client authenticated with apiKey. An empty key does not
// fail here; every call then reports an AuthError so the first stage surfaces it.
func NewRESTClient(ctx context.Context, config *Config, apiKey string, opts ...option.ClientOption) (*RESTClient, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if apiKey == "" {
		return &RESTClient{httpClient: http.DefaultClient, endpoint: config.endpoint()}, nil
	}

	opts = append([]option.ClientOption{
		option.WithAPIKey(apiKey),
		option.WithUserAgent("podcast-agent"),
	}, opts...)
	hc, _, err := htransport.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP transport: %w", err)
	}

	return &RESTClient{httpClient: hc, endpoint: config.endpoint(), hasKey: true}, nil
}

// newRESTClientWithHTTP wires a preconfigured http.Client, used by tests
func newRESTClientWithHTTP(config *Config, hc *http.Client) *RESTClient {
	return &RESTClient{httpClient: hc, endpoint: config.endpoint(), hasKey: true}
}

type restPart struct {
	Text string `json:"text,omitempty"`
}

type restContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []restPart `json:"parts"`
}

type restGenerationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type restTool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type generateContentRequest struct {
	Contents         []restContent         `json:"contents"`
	GenerationConfig *restGenerationConfig `json:"generationConfig,omitempty"`
	Tools            []restTool            `json:"tools,omitempty"`
}

type restImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MIMEType           string `json:"mimeType"`
}

type predictInstance struct {
	Prompt string     `json:"prompt"`
	Image  *restImage `json:"image,omitempty"`
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters map[string]any    `json:"parameters,omitempty"`
}

// GenerateText calls models/{model}:generateContent
func (c *RESTClient) GenerateText(ctx context.Context, req TextRequest) (*Response, error) {
	body := generateContentRequest{
		Contents: []restContent{{Role: "user", Parts: []restPart{{Text: req.Prompt}}}},
	}
	if req.Temperature > 0 || req.MaxOutputTokens > 0 {
		gc := &restGenerationConfig{MaxOutputTokens: req.MaxOutputTokens}
		if req.Temperature > 0 {
			temp := req.Temperature
			gc.Temperature = &temp
		}
		body.GenerationConfig = gc
	}
	if req.UseSearch {
		body.Tools = []restTool{{GoogleSearch: &struct{}{}}}
	}
	return c.post(ctx, c.modelURL(req.Model, "generateContent"), body)
}

// GenerateImages calls models/{model}:predict
func (c *RESTClient) GenerateImages(ctx context.Context, req ImageRequest) (*Response, error) {
	count := req.Count
	if count <= 0 {
		count = 1
	}
	params := map[string]any{
		"sampleCount":      count,
		"includeRaiReason": true,
	}
	if req.AspectRatio != "" {
		params["aspectRatio"] = req.AspectRatio
	}
	body := predictRequest{
		Instances:  []predictInstance{{Prompt: req.Prompt}},
		Parameters: params,
	}
	return c.post(ctx, c.modelURL(req.Model, "predict"), body)
}

// SubmitVideo calls models/{model}:predictLongRunning
func (c *RESTClient) SubmitVideo(ctx context.Context, req VideoRequest) (*Response, error) {
	instance := predictInstance{Prompt: req.Prompt}
	if req.Image != nil && len(req.Image.Bytes) > 0 {
		instance.Image = &restImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.Image.Bytes),
			MIMEType:           req.Image.MIMEType,
		}
	}
	body := predictRequest{Instances: []predictInstance{instance}}
	if req.AspectRatio != "" {
		body.Parameters = map[string]any{"aspectRatio": req.AspectRatio}
	}
	return c.post(ctx, c.modelURL(req.Model, "predictLongRunning"), body)
}

// GetOperation fetches the long-running operation named handle
func (c *RESTClient) GetOperation(ctx context.Context, handle string) (*Response, error) {
	if strings.TrimSpace(handle) == "" {
		return nil, types.NewError(types.KindInvalidRequest, "empty operation handle", nil)
	}
	raw, _, err := c.get(ctx, c.endpoint+"/"+strings.TrimPrefix(handle, "/"))
	if err != nil {
		return nil, err
	}
	return DecodeResponse(raw)
}

// Download fetches generated media. Relative URIs resolve against the API endpoint.
func (c *RESTClient) Download(ctx context.Context, uri string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.endpoint + "/" + strings.TrimPrefix(uri, "/")
	}
	return c.get(ctx, target)
}

func (c *RESTClient) modelURL(model, method string) string {
	model = strings.TrimPrefix(model, "models/")
	return fmt.Sprintf("%s/models/%s:%s", c.endpoint, url.PathEscape(model), method)
}

func (c *RESTClient) post(ctx context.Context, target string, payload any) (*Response, error) {
	if !c.hasKey {
		return nil, missingKeyError()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, _, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return DecodeResponse(raw)
}

func (c *RESTClient) get(ctx context.Context, target string) ([]byte, string, error) {
	if !c.hasKey {
		return nil, "", missingKeyError()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

func (c *RESTClient) do(req *http.Request) ([]byte, string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", Classify(err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		classified := Classify(err)
		var typed *types.Error
		var gerr *googleapi.Error
		if errors.As(classified, &typed) && errors.As(err, &gerr) && gerr.Body != "" {
			typed.Raw = []byte(gerr.Body)
		}
		return nil, "", classified
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", Classify(err)
	}
	return raw, resp.Header.Get("Content-Type"), nil
}
