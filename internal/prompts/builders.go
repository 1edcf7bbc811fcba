package prompts

import (
	"strconv"
	"strings"
)

// ScriptPrompt builds the script-generation prompt for a topic split into parts.
// One part is a single complete segment; two parts are introduction and conclusion;
// anything longer puts parts-2 main content parts between them.
func ScriptPrompt(topic string, parts int, useSearch bool) (string, error) {
	template, err := Get("script.json", "podcast-script")
	if err != nil {
		return "", err
	}
	structure, err := scriptStructure(parts)
	if err != nil {
		return "", err
	}

	searchNote := ""
	if useSearch {
		if searchNote, err = Get("script.json", "search-note"); err != nil {
			return "", err
		}
	}

	return Format(template, map[string]string{
		"Topic":      strings.TrimSpace(topic),
		"PartCount":  strconv.Itoa(parts),
		"Structure":  structure,
		"SearchNote": searchNote,
	}), nil
}

func scriptStructure(parts int) (string, error) {
	if parts <= 1 {
		return Get("script.json", "structure-single")
	}

	intro, err := Get("script.json", "structure-intro")
	if err != nil {
		return "", err
	}
	body, err := Get("script.json", "structure-main")
	if err != nil {
		return "", err
	}
	conclusion, err := Get("script.json", "structure-conclusion")
	if err != nil {
		return "", err
	}

	lines := []string{intro}
	for i := 2; i < parts; i++ {
		lines = append(lines, Format(body, map[string]string{"Index": strconv.Itoa(i)}))
	}
	lines = append(lines, Format(conclusion, map[string]string{"Index": strconv.Itoa(parts)}))
	return strings.Join(lines, "\n"), nil
}

// ImagePrompt returns custom when set, otherwise the default studio prompt
func ImagePrompt(custom string) (string, error) {
	if trimmed := strings.TrimSpace(custom); trimmed != "" {
		return trimmed, nil
	}
	return Get("image.json", "default-image")
}

// VideoPrompt wraps the script text in the studio scene description
func VideoPrompt(script string) (string, error) {
	template, err := Get("video.json", "video-from-script")
	if err != nil {
		return "", err
	}
	return Format(template, map[string]string{"Script": strings.TrimSpace(script)}), nil
}
