package segment

import (
	"regexp"
	"strings"
)

var (
	// "Part 1:", "## Segment 2", "**Section three** -", "Part 4" alone on a line
	markerPattern = regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?(?:\*\*|__)?[ \t]*(?:part|segment|section)[ \t]+(?:\d+|one|two|three|four|five|six|seven|eight|nine|ten)[ \t]*(?:\*\*|__)?[ \t]*(?:[:.)\-–—]|$)`)

	separatorPattern = regexp.MustCompile(`(?im)^[ \t]*(?:-{3,}|\*{3,}|_{3,}|={3,}|-{2,}[ \t]*part[ \t]*-{2,})[ \t]*$`)

	paragraphPattern = regexp.MustCompile(`\n[ \t]*\n`)

	chatterPattern = regexp.MustCompile(`(?i)^(?:here(?:'s| is| are)|sure|certainly|okay|ok)\b`)
)

// Markers splits on labelled part markers such as "Part 1:".
// It applies as soon as one marker is present.
type Markers struct{}

// Name implements Strategy
func (Markers) Name() string { return "labelled_markers" }

// Split implements Strategy
func (Markers) Split(text string) []string {
	locs := markerPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	pieces := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		// the closing emphasis of "**Part 1: Title**" is left for Clean
		pieces = append(pieces, text[loc[1]:end])
	}

	if preamble := strings.TrimSpace(text[:locs[0][0]]); preamble != "" && !isChatter(preamble) {
		pieces[0] = preamble + "\n" + pieces[0]
	}
	return pieces
}

// isChatter reports whether a preamble is a one-line lead-in like "Here is your script:"
func isChatter(preamble string) bool {
	if strings.Contains(preamble, "\n") {
		return false
	}
	return chatterPattern.MatchString(preamble) || strings.HasSuffix(preamble, ":")
}

// Separators splits on horizontal-rule style separator lines ("---", "***", "---PART---").
type Separators struct{}

// Name implements Strategy
func (Separators) Name() string { return "separators" }

// Split implements Strategy
func (Separators) Split(text string) []string {
	if !separatorPattern.MatchString(text) {
		return nil
	}
	pieces := separatorPattern.Split(text, -1)
	if countNonEmpty(pieces) < 2 {
		return nil
	}
	return pieces
}

// Paragraphs splits on blank lines. It needs at least two blocks.
type Paragraphs struct{}

// Name implements Strategy
func (Paragraphs) Name() string { return "paragraphs" }

// Split implements Strategy
func (Paragraphs) Split(text string) []string {
	pieces := paragraphPattern.Split(strings.TrimSpace(text), -1)
	if countNonEmpty(pieces) < 2 {
		return nil
	}
	return pieces
}
