package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/podcast-agent/internal/types"
)

func TestImage(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantMIME string
		wantKind types.ErrorKind
	}{
		{
			name:     "predictions",
			raw:      `{"predictions": [{"bytesBase64Encoded": "cG5n", "mimeType": "image/jpeg"}]}`,
			wantMIME: "image/jpeg",
		},
		{
			name:     "generated images default mime",
			raw:      `{"generatedImages": [{"image": {"imageBytes": "cG5n"}}]}`,
			wantMIME: "image/png",
		},
		{
			name:     "filtered",
			raw:      `{"predictions": [{"raiFilteredReason": "unsafe content"}]}`,
			wantKind: types.KindGenerationFailed,
		},
		{
			name:     "bad base64",
			raw:      `{"predictions": [{"bytesBase64Encoded": "***"}]}`,
			wantKind: types.KindUnparsable,
		},
		{
			name:     "empty",
			raw:      `{"predictions": []}`,
			wantKind: types.KindUnparsable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Image(decode(t, tt.raw))
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, types.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []byte("png"), img.Bytes)
			assert.Equal(t, tt.wantMIME, img.MIMEType)
			assert.Equal(t, types.MediaImage, img.Kind)
			assert.Equal(t, 3, img.Size)
		})
	}
}

func TestOperation(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantHandle string
		wantStatus types.JobStatus
		wantReason string
		wantErr    bool
	}{
		{
			name:       "ack with name only",
			raw:        `{"name": "models/veo/operations/abc"}`,
			wantHandle: "models/veo/operations/abc",
			wantStatus: types.JobPending,
		},
		{
			name:       "not done",
			raw:        `{"name": "op1", "done": false}`,
			wantHandle: "op1",
			wantStatus: types.JobRunning,
		},
		{
			name:       "not done queued",
			raw:        `{"name": "op1", "done": false, "metadata": {"state": "QUEUED"}}`,
			wantHandle: "op1",
			wantStatus: types.JobPending,
		},
		{
			name:       "done ok",
			raw:        `{"name": "op1", "done": true, "response": {}}`,
			wantHandle: "op1",
			wantStatus: types.JobSucceeded,
		},
		{
			name:       "done with error",
			raw:        `{"name": "op1", "done": true, "error": {"code": 3, "message": "prompt rejected"}}`,
			wantHandle: "op1",
			wantStatus: types.JobFailed,
			wantReason: "prompt rejected",
		},
		{
			name:       "explicit state",
			raw:        `{"job_id": "j1", "state": "JOB_STATE_RUNNING"}`,
			wantHandle: "j1",
			wantStatus: types.JobRunning,
		},
		{
			name:       "explicit failure",
			raw:        `{"id": "j1", "status": "failed", "failure_reason": "quota"}`,
			wantHandle: "j1",
			wantStatus: types.JobFailed,
			wantReason: "quota",
		},
		{
			name:    "done not boolean",
			raw:     `{"name": "op1", "done": "yes"}`,
			wantErr: true,
		},
		{
			name:    "nothing recognizable",
			raw:     `{"foo": "bar"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := Operation(decode(t, tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrUnparsable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHandle, state.Handle)
			assert.Equal(t, tt.wantStatus, state.Status)
			assert.Equal(t, tt.wantReason, state.Reason)
		})
	}
}

func TestVideo(t *testing.T) {
	t.Run("generated samples uri", func(t *testing.T) {
		out, err := Video(decode(t, `{"done": true, "response": {"generateVideoResponse": {"generatedSamples": [{"video": {"uri": "https://files.example/v.mp4"}}]}}}`))
		require.NoError(t, err)
		assert.Equal(t, "https://files.example/v.mp4", out.URI)
		assert.Equal(t, "video/mp4", out.MIMEType)
	})

	t.Run("generated videos inline bytes", func(t *testing.T) {
		out, err := Video(decode(t, `{"response": {"generatedVideos": [{"video": {"videoBytes": "bXA0", "mimeType": "video/webm"}}]}}`))
		require.NoError(t, err)
		assert.Equal(t, []byte("mp4"), out.Bytes)
		assert.Equal(t, "video/webm", out.MIMEType)
	})

	t.Run("filtered", func(t *testing.T) {
		_, err := Video(decode(t, `{"response": {"generateVideoResponse": {"raiMediaFilteredReasons": ["celebrity likeness"]}}}`))
		require.Error(t, err)
		assert.Equal(t, types.KindGenerationFailed, types.KindOf(err))
		assert.Contains(t, err.Error(), "celebrity likeness")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Video(decode(t, `{"done": true, "response": {}}`))
		assert.ErrorIs(t, err, types.ErrUnparsable)
	})
}
