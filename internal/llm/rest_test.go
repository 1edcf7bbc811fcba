package llm

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jonathan/podcast-agent/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*RESTClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &Config{BaseURL: srv.URL, APIVersion: "v1beta"}
	return newRESTClientWithHTTP(cfg, srv.Client()), srv
}

func TestGenerateText_RequestShape(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &gotBody))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`))
	})

	resp, err := client.GenerateText(context.Background(), TextRequest{
		Model:       "gemini-2.0-flash",
		Prompt:      "write",
		Temperature: 0.7,
		UseSearch:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Contains(t, gotBody, "tools")
	assert.Contains(t, gotBody, "generationConfig")
	assert.NotEmpty(t, resp.Raw)
	assert.IsType(t, map[string]any{}, resp.Body)
}

func TestGenerateText_NoSearchOmitsTools(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.GenerateText(context.Background(), TextRequest{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	assert.NotContains(t, gotBody, "tools")
	assert.NotContains(t, gotBody, "generationConfig")
}

func TestSubmitVideo_EncodesSeedImage(t *testing.T) {
	var gotBody predictRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/veo:predictLongRunning", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &gotBody))
		_, _ = w.Write([]byte(`{"name":"models/veo/operations/op-1"}`))
	})

	_, err := client.SubmitVideo(context.Background(), VideoRequest{
		Model:  "models/veo",
		Prompt: "studio",
		Image:  types.NewMediaArtifact(types.MediaImage, []byte("png"), "image/png"),
	})
	require.NoError(t, err)

	require.Len(t, gotBody.Instances, 1)
	require.NotNil(t, gotBody.Instances[0].Image)
	assert.Equal(t, "cG5n", gotBody.Instances[0].Image.BytesBase64Encoded)
	assert.Equal(t, "image/png", gotBody.Instances[0].Image.MIMEType)
}

func TestGetOperationAndDownload(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1beta/models/veo/operations/op-1":
			_, _ = w.Write([]byte(`{"name":"models/veo/operations/op-1","done":false}`))
		case "/v1beta/files/abc:download":
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = w.Write([]byte("mp4-bytes"))
		default:
			http.NotFound(w, r)
		}
	})

	resp, err := client.GetOperation(context.Background(), "models/veo/operations/op-1")
	require.NoError(t, err)
	assert.Equal(t, false, resp.Body.(map[string]any)["done"])

	data, mime, err := client.Download(context.Background(), srv.URL+"/v1beta/files/abc:download")
	require.NoError(t, err)
	assert.Equal(t, "mp4-bytes", string(data))
	assert.Equal(t, "video/mp4", mime)

	data, _, err = client.Download(context.Background(), "files/abc:download")
	require.NoError(t, err)
	assert.Equal(t, "mp4-bytes", string(data))
}

func TestRESTClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   types.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"code":401,"message":"no"}}`, types.KindAuth},
		{"forbidden", http.StatusForbidden, `{"error":{"code":403,"message":"denied"}}`, types.KindAuth},
		{"bad key", http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key."}}`, types.KindAuth},
		{"bad request", http.StatusBadRequest, `{"error":{"code":400,"message":"prompt blocked"}}`, types.KindGenerationFailed},
		{"server error", http.StatusInternalServerError, `{"error":{"code":500,"message":"internal"}}`, types.KindGenerationFailed},
		{"gateway timeout", http.StatusGatewayTimeout, `{"error":{"code":504,"message":"slow"}}`, types.KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GenerateImages(context.Background(), ImageRequest{Model: "imagen", Prompt: "p"})
			require.Error(t, err)
			assert.Equal(t, tt.want, types.KindOf(err))

			var typed *types.Error
			require.True(t, errors.As(err, &typed))
			assert.NotEmpty(t, typed.Raw)
		})
	}
}

func TestRESTClient_NonJSONBodyIsUnparsable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	})

	_, err := client.GenerateText(context.Background(), TextRequest{Model: "m", Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, types.KindUnparsable, types.KindOf(err))
}

func TestRESTClient_ConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	cfg := &Config{BaseURL: srv.URL}
	client := newRESTClientWithHTTP(cfg, srv.Client())
	srv.Close()

	_, err := client.GenerateText(context.Background(), TextRequest{Model: "m", Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, types.KindTransient, types.KindOf(err))
}

func TestRESTClient_MissingKey(t *testing.T) {
	client, err := NewRESTClient(context.Background(), DefaultConfig(), "")
	require.NoError(t, err)

	_, err = client.GenerateImages(context.Background(), ImageRequest{Model: "imagen", Prompt: "p"})
	assert.True(t, errors.Is(err, types.ErrAuth))

	_, _, err = client.Download(context.Background(), "https://example.com/x")
	assert.True(t, errors.Is(err, types.ErrAuth))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.ErrorKind
	}{
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), types.KindTimeout},
		{"canceled", context.Canceled, types.KindCanceled},
		{"googleapi 401", &googleapi.Error{Code: 401}, types.KindAuth},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "who"), types.KindAuth},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), types.KindTransient},
		{"grpc internal", status.Error(codes.Internal, "boom"), types.KindGenerationFailed},
		{"unexpected eof", io.ErrUnexpectedEOF, types.KindTransient},
		{"dial refused", &url.Error{Op: "Post", URL: "https://x", Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}}, types.KindTransient},
		{"dns", &url.Error{Op: "Get", URL: "https://x", Err: &net.DNSError{Name: "x", Err: "no such host"}}, types.KindTransient},
		{"reset", &url.Error{Op: "Get", URL: "https://x", Err: syscall.ECONNRESET}, types.KindTransient},
		{"tls certificate", &url.Error{Op: "Get", URL: "https://x", Err: &tls.CertificateVerificationError{Err: errors.New("x509: unknown authority")}}, types.KindGenerationFailed},
		{"bad scheme", &url.Error{Op: "Get", URL: "ftp://x", Err: errors.New(`unsupported protocol scheme "ftp"`)}, types.KindGenerationFailed},
		{"client timeout", &url.Error{Op: "Get", URL: "https://x", Err: &net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded}}, types.KindTimeout},
		{"plain", errors.New("boom"), types.KindGenerationFailed},
		{"typed passthrough", types.NewError(types.KindUnparsable, "x", nil), types.KindUnparsable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, types.KindOf(Classify(tt.err)))
		})
	}
	assert.NoError(t, Classify(nil))
}

func TestSDKDocument(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Part 1: hi"), genai.Text(" there")}}},
		},
	}

	doc := sdkDocument(resp)
	candidates := doc["candidates"].([]any)
	require.Len(t, candidates, 1)
	parts := candidates[0].(map[string]any)["content"].(map[string]any)["parts"].([]any)
	assert.Len(t, parts, 2)
	assert.Equal(t, "Part 1: hi", parts[0].(map[string]any)["text"])
}

func TestSDKTextModel_MissingKeyAndSearch(t *testing.T) {
	m, err := NewSDKTextModel(context.Background(), "")
	require.NoError(t, err)

	_, err = m.GenerateText(context.Background(), TextRequest{Model: "m", Prompt: "p"})
	assert.True(t, errors.Is(err, types.ErrAuth))
	assert.NoError(t, m.Close())
}

func TestNewTextModel_Backends(t *testing.T) {
	tm, err := NewTextModel(context.Background(), &Config{Backend: BackendSDK}, "")
	require.NoError(t, err)
	assert.IsType(t, &SDKTextModel{}, tm)

	tm, err = NewTextModel(context.Background(), nil, "")
	require.NoError(t, err)
	assert.IsType(t, &RESTClient{}, tm)

	_, err = NewTextModel(context.Background(), &Config{Backend: "carrier-pigeon"}, "")
	assert.Error(t, err)
}
