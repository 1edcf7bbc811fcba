package segment

import (
	"regexp"
	"strings"
)

var (
	headingPrefix  = regexp.MustCompile(`^#{1,6}[ \t]*`)
	bulletPrefix   = regexp.MustCompile(`^(?:[-*+•][ \t]+|\d{1,3}[.)][ \t]+)`)
	fenceLine      = regexp.MustCompile("^```[A-Za-z0-9_-]*$")
	emphasisMarker = strings.NewReplacer("**", "", "__", "")
)

// Clean normalizes one segment: markdown heading, bullet and emphasis markers are
// removed, whitespace runs collapse to one space and blank lines are dropped so
// paragraphs are separated by a single newline.
func Clean(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if fenceLine.MatchString(line) {
			continue
		}
		line = stripPrefixes(line)
		line = emphasisMarker.Replace(line)
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// stripPrefixes removes stacked prefixes such as "## - "
func stripPrefixes(line string) string {
	for {
		next := headingPrefix.ReplaceAllString(line, "")
		next = bulletPrefix.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == line {
			return line
		}
		line = next
	}
}
