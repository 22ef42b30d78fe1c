package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/pokedex/internal/pokedex"
	"github.com/dgnsrekt/pokedex/internal/tts"
)

// planTextWidth bounds the narration column of a dry run.
const planTextWidth = 48

// summaryMarkdown describes a finished run.
func summaryMarkdown(s tts.Summary, elapsed time.Duration, dir string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Narration finished\n\n")
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Rows | %d |\n", s.Total)
	fmt.Fprintf(&b, "| Written | %d (%s) |\n", s.Written, humanize.Bytes(uint64(max(0, s.AudioBytes)))) //nolint:gosec
	if s.Cached > 0 {
		fmt.Fprintf(&b, "| From cache | %d |\n", s.Cached)
	}
	if s.Skipped > 0 {
		fmt.Fprintf(&b, "| Skipped | %d |\n", s.Skipped)
	}
	fmt.Fprintf(&b, "| Failed | %d |\n", s.Failed)
	fmt.Fprintf(&b, "| Time | %s |\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "| Output | `%s` |\n", dir)

	if len(s.Failures) > 0 {
		fmt.Fprintf(&b, "\n## Failures\n\n| Row | Name | Error |\n|---|---|---|\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", f.Row, cell(f.Name), cell(f.Err.Error()))
		}
	}
	return b.String()
}

// planMarkdown lists what a run would produce without calling an engine.
func planMarkdown(records []pokedex.Record, ext, suffix string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %d rows\n\n| File | Narration |\n|---|---|\n", len(records))
	for i, name := range pokedex.Filenames(records, ext) {
		text := truncate.StringWithTail(pokedex.Narration(records[i], suffix), planTextWidth, "…")
		fmt.Fprintf(&b, "| %s | %s |\n", cell(name), cell(text))
	}
	return b.String()
}

// cell makes s safe inside a markdown table.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// render prints markdown, styled for terminals and plain otherwise.
func render(w io.Writer, md string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithStandardStyle(styles.AutoStyle),
		glamour.WithWordWrap(terminalWidth()),
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}

	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("unable to render markdown: %w", err)
	}
	if _, err := fmt.Fprint(w, out); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}
	return nil
}
