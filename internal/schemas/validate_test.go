package schemas

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validManifest() map[string]any {
	return map[string]any{
		"run_id":     "3f1c9a4e-0000-4000-8000-000000000000",
		"topic":      "tide pools",
		"part_count": 3,
		"use_search": true,
		"files": map[string]any{
			"image":        "podcast_image.png",
			"script":       "podcast_script.txt",
			"script_parts": []string{"podcast_script_part_1.txt"},
		},
		"stages": []any{
			map[string]any{"stage": "image", "status": "succeeded", "duration_ms": 1200},
			map[string]any{"stage": "video", "status": "skipped", "reason": "script stage failed"},
		},
		"errors": []any{
			map[string]any{"stage": "script", "kind": "UnparsableResponse", "message": "no text"},
		},
		"warnings": []any{},
		"grounding": map[string]any{
			"search_queries": []string{"tide pools"},
			"sources":        []any{map[string]any{"uri": "https://example.org", "title": "Example"}},
		},
		"started_at":  "2026-01-02T03:04:05Z",
		"finished_at": "2026-01-02T03:05:05Z",
	}
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestValidateManifest_Valid(t *testing.T) {
	assert.NoError(t, ValidateManifest(encode(t, validManifest())))
}

func TestValidateManifest_NullGrounding(t *testing.T) {
	m := validManifest()
	m["grounding"] = nil
	assert.NoError(t, ValidateManifest(encode(t, m)))
}

func TestValidateManifest_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{
			name:   "missing run id",
			mutate: func(m map[string]any) { delete(m, "run_id") },
			field:  "(root)",
		},
		{
			name:   "part count out of range",
			mutate: func(m map[string]any) { m["part_count"] = 0 },
			field:  "part_count",
		},
		{
			name: "unknown stage status",
			mutate: func(m map[string]any) {
				m["stages"] = []any{map[string]any{"stage": "image", "status": "exploded"}}
			},
			field: "stages.0.status",
		},
		{
			name: "unknown file key",
			mutate: func(m map[string]any) {
				m["files"] = map[string]any{"audio": "x.mp3"}
			},
			field: "files",
		},
		{
			name: "error without kind",
			mutate: func(m map[string]any) {
				m["errors"] = []any{map[string]any{"stage": "video", "message": "boom"}}
			},
			field: "errors.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validManifest()
			tt.mutate(m)
			err := ValidateManifest(encode(t, m))
			require.Error(t, err)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.NotEmpty(t, validationErr.Errors)

			matched := false
			for _, fe := range validationErr.Errors {
				if strings.HasPrefix(fe.Field, tt.field) {
					matched = true
				}
			}
			assert.True(t, matched, "no error at %s in %v", tt.field, validationErr.Errors)
			assert.Contains(t, err.Error(), "validation failed with")
		})
	}
}

func TestValidateManifest_NotJSON(t *testing.T) {
	err := ValidateManifest([]byte("{not json"))
	require.Error(t, err)
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestValidateManifestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, encode(t, validManifest()), 0o644))

	assert.NoError(t, ValidateManifestFile(path))

	err := ValidateManifestFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read manifest")
}

func TestManifestSchema_IsCopy(t *testing.T) {
	a := ManifestSchema()
	require.NotEmpty(t, a)
	a[0] = 'x'
	assert.NotEqual(t, a[0], ManifestSchema()[0])
}

func TestSchemaLoadError(t *testing.T) {
	cause := os.ErrNotExist
	err := &SchemaLoadError{Path: "a.json", Message: "missing", Cause: cause}
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "a.json")

	plain := &SchemaLoadError{Path: "b.json", Message: "bad"}
	assert.Equal(t, "failed to load schema b.json: bad", plain.Error())
}
