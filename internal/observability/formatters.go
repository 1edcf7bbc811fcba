// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/jonathan/podcast-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out   io.Writer
	title func(a ...any) string
	ok    func(a ...any) string
	info  func(a ...any) string
	warn  func(a ...any) string
	err   func(a ...any) string
	dim   func(a ...any) string
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out:   out,
		title: color.New(color.FgHiCyan, color.Bold).SprintFunc(),
		ok:    color.New(color.FgGreen, color.Bold).SprintFunc(),
		info:  color.New(color.FgCyan).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		err:   color.New(color.FgRed, color.Bold).SprintFunc(),
		dim:   color.New(color.FgHiBlack).SprintFunc(),
	}
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		line = truncate(line, boxWidth-4)
		pad := boxWidth - 4 - len([]rune(line))
		fmt.Fprintf(p.out, "│ %s%s │\n", line, strings.Repeat(" ", pad))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// statusLabel renders a stage status with its colour
func (p *Printer) statusLabel(status types.StageStatus) string {
	label := fmt.Sprintf("%-13s", status)
	switch status {
	case types.StatusSucceeded:
		return p.ok(label)
	case types.StatusFailed:
		return p.err(label)
	case types.StatusSkipped:
		return p.warn(label)
	default:
		return p.dim(label)
	}
}

// PrintEvent prints a single progress line
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintEvent(step, category, message string) {
	var tag string
	switch category {
	case "finished":
		tag = p.ok("[OK]")
	case "failed":
		tag = p.err("[FAIL]")
	case "skipped":
		tag = p.warn("[SKIP]")
	case "poll":
		tag = p.dim("[POLL]")
	default:
		tag = p.info("[INFO]")
	}
	fmt.Fprintf(p.out, "%s %s %s\n", tag, p.dim(step), message)
}

// PrintResult outputs a summary of a finished run: stage outcomes, artifacts, errors and warnings.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintResult(result *types.PipelineResult) {
	if result == nil {
		return
	}

	fmt.Fprintf(p.out, "\n%s %s\n", p.title("Podcast:"), result.Topic)
	fmt.Fprintf(p.out, "%s\n", p.dim("run "+result.RunID))

	for _, o := range result.Stages {
		line := fmt.Sprintf("  %-7s %s", o.Stage, p.statusLabel(o.Status))
		if o.Status == types.StatusSucceeded || o.Status == types.StatusFailed {
			line += " " + o.Duration.Round(time.Millisecond).String()
		}
		if size := artifactSize(result, o.Stage); size != "" && o.Status == types.StatusSucceeded {
			line += " " + p.dim("("+size+")")
		}
		if o.Reason != "" && o.Status != types.StatusFailed {
			line += " " + p.dim(o.Reason)
		}
		fmt.Fprintln(p.out, line)
	}

	for _, e := range result.Errors {
		fmt.Fprintf(p.out, "%s %s: %s %s\n", p.err("[ERROR]"), e.Stage, e.Message, p.dim("("+string(e.Kind)+")"))
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(p.out, "%s %s: %s\n", p.warn("[WARN]"), w.Stage, w.Message)
	}

	elapsed := result.FinishedAt.Sub(result.StartedAt).Round(time.Second)
	if result.Succeeded() {
		fmt.Fprintf(p.out, "%s finished in %s\n", p.ok("[OK]"), elapsed)
	} else {
		fmt.Fprintf(p.out, "%s finished with errors in %s\n", p.warn("[WARN]"), elapsed)
	}
}

func artifactSize(result *types.PipelineResult, stage types.StageName) string {
	var a *types.MediaArtifact
	switch stage {
	case types.StageImage:
		a = result.Image
	case types.StageVideo:
		a = result.Video
	case types.StageScript:
		if len(result.Script) > 0 {
			return fmt.Sprintf("%d parts", len(result.Script))
		}
		return ""
	}
	if a == nil {
		return ""
	}
	return humanize.Bytes(uint64(a.Size))
}

// PrintScript outputs the script parts, each truncated to a preview.
func (p *Printer) PrintScript(segments []types.ScriptSegment) {
	if len(segments) == 0 {
		return
	}

	var sb strings.Builder
	for i, seg := range segments {
		sb.WriteString(fmt.Sprintf("Part %d\n", i+1))
		lines := strings.Split(seg.Text, "\n")
		count := min(len(lines), maxItemsToShow)
		for _, line := range lines[:count] {
			sb.WriteString("  " + line + "\n")
		}
		if len(lines) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more lines\n", len(lines)-maxItemsToShow))
		}
		if i < len(segments)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("PODCAST SCRIPT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintGrounding outputs the search queries and sources behind a search-backed script.
func (p *Printer) PrintGrounding(g *types.GroundingMetadata) {
	if g == nil || (len(g.SearchQueries) == 0 && len(g.Sources) == 0) {
		return
	}

	var sb strings.Builder
	if len(g.SearchQueries) > 0 {
		sb.WriteString("Search queries:\n")
		for _, q := range g.SearchQueries {
			sb.WriteString(fmt.Sprintf("  • %s\n", q))
		}
		sb.WriteString("\n")
	}

	if len(g.Sources) > 0 {
		sb.WriteString(fmt.Sprintf("Sources (%d):\n", len(g.Sources)))
		count := min(len(g.Sources), maxItemsToShow)
		for i := 0; i < count; i++ {
			src := g.Sources[i]
			label := src.Title
			if label == "" {
				label = src.URI
			}
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, label))
			if src.Title != "" {
				sb.WriteString(fmt.Sprintf("     %s\n", src.URI))
			}
		}
		if len(g.Sources) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(g.Sources)-maxItemsToShow))
		}
	}

	p.printBox("GROUNDING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSession reports where a run's files were written.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintSession(dir string, files []string) {
	fmt.Fprintf(p.out, "%s Files saved in %s\n", p.ok("[OK]"), dir)
	for _, f := range files {
		fmt.Fprintf(p.out, "  %s\n", p.dim(f))
	}
}

// PrintNotice prints a one-line informational message
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintNotice(format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", p.info("[INFO]"), fmt.Sprintf(format, args...))
}

// PrintWarning prints a one-line warning
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintWarning(format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", p.warn("[WARN]"), fmt.Sprintf(format, args...))
}
