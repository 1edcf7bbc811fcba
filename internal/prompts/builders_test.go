package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptPrompt_Structure(t *testing.T) {
	tests := []struct {
		name     string
		parts    int
		contains []string
		excludes []string
	}{
		{
			name:     "single part",
			parts:    1,
			contains: []string{"exactly 1 distinct parts", "a single complete segment"},
			excludes: []string{"introduction.", "conclusion."},
		},
		{
			name:     "two parts",
			parts:    2,
			contains: []string{"Part 1: introduction", "Part 2: conclusion"},
			excludes: []string{"main content"},
		},
		{
			name:     "five parts",
			parts:    5,
			contains: []string{"Part 1: introduction", "Part 2: main content", "Part 4: main content", "Part 5: conclusion"},
			excludes: []string{"Part 6"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := ScriptPrompt("  ocean tides ", tt.parts, false)
			require.NoError(t, err)
			assert.Contains(t, prompt, "about 'ocean tides'")
			for _, want := range tt.contains {
				assert.Contains(t, prompt, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, prompt, unwanted)
			}
			assert.NotContains(t, prompt, "{{.")
			assert.NotContains(t, prompt, "web search")
		})
	}
}

func TestScriptPrompt_Search(t *testing.T) {
	prompt, err := ScriptPrompt("AI news", 3, true)
	require.NoError(t, err)
	assert.Contains(t, prompt, "web search")
}

func TestImagePrompt(t *testing.T) {
	prompt, err := ImagePrompt("")
	require.NoError(t, err)
	assert.Contains(t, prompt, "podcast studio")

	prompt, err = ImagePrompt("  a lighthouse at dusk ")
	require.NoError(t, err)
	assert.Equal(t, "a lighthouse at dusk", prompt)
}

func TestVideoPrompt(t *testing.T) {
	prompt, err := VideoPrompt("Host A: hi\nHost B: hello")
	require.NoError(t, err)
	assert.Contains(t, prompt, "following content: Host A: hi\nHost B: hello.")
}
