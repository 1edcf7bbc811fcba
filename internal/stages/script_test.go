package stages

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/podcast-agent/internal/segment"
	"github.com/jonathan/podcast-agent/internal/types"
)

func textResponse(t *testing.T, text string, grounding string) result {
	t.Helper()
	body, err := json.Marshal(text)
	require.NoError(t, err)
	candidate := `{"content": {"parts": [{"text": ` + string(body) + `}]}}`
	if grounding != "" {
		candidate = `{"content": {"parts": [{"text": ` + string(body) + `}]}, "groundingMetadata": ` + grounding + `}`
	}
	return result{resp: jsonResp(t, `{"candidates": [`+candidate+`]}`)}
}

func request(t *testing.T, opts ...types.RequestOption) types.GenerationRequest {
	t.Helper()
	req, err := types.NewGenerationRequest("ocean tides", opts...)
	require.NoError(t, err)
	return req
}

func TestScriptStage_ThreeParts(t *testing.T) {
	client := &fakeText{script: script{results: []result{
		textResponse(t, "Part 1: **Hello** listeners.\nPart 2: - Tides rise.\nPart 3: Bye.", ""),
	}}}
	stage := NewScriptStage(client, ScriptConfig{}, nil, quiet)

	got, err := stage.GenerateScript(context.Background(), request(t))
	require.NoError(t, err)

	assert.Equal(t, []types.ScriptSegment{
		{Index: 0, Text: "Hello listeners."},
		{Index: 1, Text: "Tides rise."},
		{Index: 2, Text: "Bye."},
	}, got.Segments)
	assert.Nil(t, got.Grounding)
	assert.Empty(t, got.Warnings)
	assert.Equal(t, "labelled_markers", got.Strategy)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, DefaultTemperature, req.Temperature)
	assert.False(t, req.UseSearch)
	assert.Contains(t, req.Prompt, "exactly 3 distinct parts")
	assert.Contains(t, req.Prompt, "ocean tides")
}

func TestScriptStage_SearchAndGrounding(t *testing.T) {
	client := &fakeText{script: script{results: []result{
		textResponse(t, "Part 1: a\nPart 2: b", `{
			"webSearchQueries": ["tides today"],
			"groundingChunks": [{"web": {"uri": "https://noaa.example", "title": "NOAA"}}]
		}`),
	}}}
	stage := NewScriptStage(client, ScriptConfig{Model: "gemini-test"}, nil, quiet)

	got, err := stage.GenerateScript(context.Background(), request(t, types.WithPartCount(2), types.WithSearch(true)))
	require.NoError(t, err)

	assert.True(t, client.requests[0].UseSearch)
	assert.Equal(t, "gemini-test", client.requests[0].Model)
	require.NotNil(t, got.Grounding)
	assert.Equal(t, []string{"tides today"}, got.Grounding.SearchQueries)
	assert.Equal(t, []types.Source{{URI: "https://noaa.example", Title: "NOAA"}}, got.Grounding.Sources)
}

func TestScriptStage_CountMismatchIsWarning(t *testing.T) {
	client := &fakeText{script: script{results: []result{textResponse(t, "Part 1: only\nPart 2: two", "")}}}
	got, err := NewScriptStage(client, ScriptConfig{}, segment.New(), quiet).GenerateScript(context.Background(), request(t))
	require.NoError(t, err)

	assert.Len(t, got.Segments, 2)
	require.Len(t, got.Warnings, 1)
	assert.Equal(t, types.KindIncompletePartition, got.Warnings[0].Kind)
}

func TestScriptStage_Unparsable(t *testing.T) {
	client := &fakeText{script: script{results: []result{{resp: jsonResp(t, `{"candidates": [{"finishReason": "SAFETY"}]}`)}}}}
	_, err := NewScriptStage(client, ScriptConfig{}, nil, quiet).GenerateScript(context.Background(), request(t))

	require.Error(t, err)
	assert.Equal(t, types.KindUnparsable, types.KindOf(err))
	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, types.StageScript, typed.Stage)
	assert.NotEmpty(t, typed.Raw)
}

func TestScriptStage_TransportError(t *testing.T) {
	client := &fakeText{script: script{results: []result{{err: &types.Error{Kind: types.KindAuth, Message: "credentials rejected"}}}}}
	_, err := NewScriptStage(client, ScriptConfig{}, nil, quiet).GenerateScript(context.Background(), request(t))

	assert.ErrorIs(t, err, types.ErrAuth)
	assert.Equal(t, 1, client.calls)
}
