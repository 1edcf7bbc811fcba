package db

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/podcast-agent/internal/types"
)

func TestRunStatus(t *testing.T) {
	outcome := func(s types.StageName, st types.StageStatus) types.StageOutcome {
		return types.StageOutcome{Stage: s, Status: st}
	}
	tests := []struct {
		name   string
		stages []types.StageOutcome
		want   string
	}{
		{
			name: "all succeeded",
			stages: []types.StageOutcome{
				outcome(types.StageImage, types.StatusSucceeded),
				outcome(types.StageScript, types.StatusSucceeded),
			},
			want: RunStatusSucceeded,
		},
		{
			name: "video skipped after script failure",
			stages: []types.StageOutcome{
				outcome(types.StageImage, types.StatusSucceeded),
				outcome(types.StageScript, types.StatusFailed),
				outcome(types.StageVideo, types.StatusSkipped),
			},
			want: RunStatusPartial,
		},
		{
			name: "nothing succeeded",
			stages: []types.StageOutcome{
				outcome(types.StageImage, types.StatusFailed),
				outcome(types.StageScript, types.StatusFailed),
			},
			want: RunStatusFailed,
		},
		{
			name: "not requested stages are ignored",
			stages: []types.StageOutcome{
				outcome(types.StageImage, types.StatusNotRequested),
				outcome(types.StageScript, types.StatusSucceeded),
			},
			want: RunStatusSucceeded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RunStatus(&types.PipelineResult{Stages: tt.stages}))
		})
	}
}

func TestStageRows(t *testing.T) {
	result := &types.PipelineResult{
		Stages: []types.StageOutcome{
			{Stage: types.StageImage, Status: types.StatusFailed, Duration: 2500 * time.Millisecond},
			{Stage: types.StageScript, Status: types.StatusSucceeded, Duration: time.Second},
			{Stage: types.StageVideo, Status: types.StatusSkipped, Reason: "script stage failed"},
		},
		Errors: []types.StageError{
			{Stage: types.StageImage, Kind: types.KindAuth, Message: "bad key"},
		},
	}

	rows := stageRows(result)
	require.Len(t, rows, 3)

	assert.Equal(t, "image", rows[0].Stage)
	assert.Equal(t, int64(2500), rows[0].DurationMS)
	require.NotNil(t, rows[0].ErrorKind)
	assert.Equal(t, "AuthError", *rows[0].ErrorKind)
	assert.Equal(t, "bad key", *rows[0].Message)

	assert.Nil(t, rows[1].ErrorKind)
	assert.Nil(t, rows[1].Message)

	assert.Nil(t, rows[2].ErrorKind)
	require.NotNil(t, rows[2].Message)
	assert.Equal(t, "script stage failed", *rows[2].Message)
}

func TestGroundingRows(t *testing.T) {
	assert.Nil(t, groundingRows(nil))

	rows := groundingRows(&types.GroundingMetadata{
		SearchQueries: []string{"q1", "q2"},
		Sources: []types.Source{
			{URI: "https://a.example", Title: "A"},
			{URI: "https://b.example"},
		},
	})
	require.Len(t, rows, 4)
	assert.Equal(t, GroundingRow{Position: 1, Kind: GroundingQuery, Value: "q2"}, rows[1])
	assert.Equal(t, GroundingSource, rows[2].Kind)
	require.NotNil(t, rows[2].Title)
	assert.Equal(t, "A", *rows[2].Title)
	assert.Equal(t, 1, rows[3].Position)
	assert.Nil(t, rows[3].Title)
}

func TestSchemaSQL(t *testing.T) {
	for _, table := range []string{"podcast_runs", "run_stages", "run_warnings", "script_segments", "grounding_sources"} {
		assert.True(t, strings.Contains(schemaSQL, "CREATE TABLE IF NOT EXISTS "+table), table)
	}
}
