package stages

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/podcast-agent/internal/types"
)

const imageOK = `{"predictions": [{"bytesBase64Encoded": "cG5n", "mimeType": "image/png"}]}`

func TestImageStage_GenerateImage(t *testing.T) {
	client := &fakeImage{script: script{results: []result{{resp: jsonResp(t, imageOK)}}}}
	stage := NewImageStage(client, ImageConfig{Model: "imagen-test"}, quiet)

	img, err := stage.GenerateImage(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), img.Bytes)
	assert.Equal(t, types.MediaImage, img.Kind)

	require.Len(t, client.requests, 1)
	assert.Equal(t, "imagen-test", client.requests[0].Model)
	assert.Equal(t, 1, client.requests[0].Count)
	assert.Contains(t, client.requests[0].Prompt, "podcast studio")
}

func TestImageStage_CustomPrompt(t *testing.T) {
	client := &fakeImage{script: script{results: []result{{resp: jsonResp(t, imageOK)}}}}
	stage := NewImageStage(client, ImageConfig{}, quiet)

	_, err := stage.GenerateImage(context.Background(), "a lighthouse")
	require.NoError(t, err)
	assert.Equal(t, "a lighthouse", client.requests[0].Prompt)
	assert.Equal(t, "imagen-3.0-generate-002", client.requests[0].Model)
}

func TestImageStage_Errors(t *testing.T) {
	tests := []struct {
		name      string
		results   []result
		wantKind  types.ErrorKind
		wantCalls int
	}{
		{
			name:      "auth",
			results:   []result{{err: &types.Error{Kind: types.KindAuth, Message: "credentials rejected"}}},
			wantKind:  types.KindAuth,
			wantCalls: 1,
		},
		{
			name:      "filtered",
			results:   []result{{resp: jsonResp(t, `{"predictions": [{"raiFilteredReason": "blocked"}]}`)}},
			wantKind:  types.KindGenerationFailed,
			wantCalls: 1,
		},
		{
			name:      "transient then ok",
			results:   []result{{err: transientErr()}, {resp: jsonResp(t, imageOK)}},
			wantCalls: 2,
		},
		{
			name:      "transient twice",
			results:   []result{{err: transientErr()}, {err: transientErr()}},
			wantKind:  types.KindTransient,
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeImage{script: script{results: tt.results}}
			_, err := NewImageStage(client, ImageConfig{}, quiet).GenerateImage(context.Background(), "")

			assert.Equal(t, tt.wantCalls, client.calls)
			if tt.wantKind == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, types.KindOf(err))

			var typed *types.Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, types.StageImage, typed.Stage)
		})
	}
}

func TestImageStage_RequestTimeout(t *testing.T) {
	client := &fakeImage{block: true}
	stage := NewImageStage(client, ImageConfig{RequestTimeout: 10 * time.Millisecond}, quiet)

	_, err := stage.GenerateImage(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrTimeout)
}

func TestImageStage_NoClient(t *testing.T) {
	_, err := NewImageStage(nil, ImageConfig{}, quiet).GenerateImage(context.Background(), "")
	assert.Equal(t, types.KindInvalidRequest, types.KindOf(err))
}
