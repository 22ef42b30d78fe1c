package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/pokedex/internal/vision"
)

const (
	ellipsis = "…"
	barWidth = 20
)

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#89F0CB"}
	amber     = lipgloss.AdaptiveColor{Light: "#B07D00", Dark: "#FFD866"}
	red       = lipgloss.AdaptiveColor{Light: "#C4272D", Dark: "#FF6B6B"}
	faint     = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6A6A6A"}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#E5262C")).
			Padding(0, 1).
			Bold(true)

	confidentStyle = lipgloss.NewStyle().Foreground(mintGreen).Bold(true)
	uncertainStyle = lipgloss.NewStyle().Foreground(amber)
	errorStyle     = lipgloss.NewStyle().Foreground(red)
	helpStyle      = lipgloss.NewStyle().Foreground(faint)
	barStyle       = lipgloss.NewStyle().Foreground(mintGreen)
)

// resultLine renders the headline for a result.
func resultLine(r vision.Result, threshold float32) string {
	if r.Confident(threshold) {
		return confidentStyle.Render(r.Format(threshold))
	}
	return uncertainStyle.Render(r.Format(threshold))
}

// rankTable renders predictions with their labels padded to a common
// display width, so wide Hangul labels line up with ASCII ones.
func rankTable(preds []vision.Prediction) []string {
	width := 0
	for _, p := range preds {
		width = max(width, runewidth.StringWidth(p.Label))
	}

	lines := make([]string, 0, len(preds))
	for i, p := range preds {
		bar := strings.Repeat("█", barLength(p.Score))
		lines = append(lines, fmt.Sprintf("%d. %s %5.1f%% %s",
			i+1, runewidth.FillRight(p.Label, width), p.Score*100, barStyle.Render(bar)))
	}
	return lines
}

// barLength scales a score to at most barWidth cells. Logits outside [0,1]
// and NaN are clamped.
func barLength(score float32) int {
	f := float64(score)
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	return min(int(f*barWidth+0.5), barWidth)
}

// fit cuts s to the terminal width. Zero width leaves it untouched.
func fit(s string, width int) string {
	if width <= 0 {
		return s
	}
	return truncate.StringWithTail(s, uint(width), ellipsis) //nolint:gosec
}
