package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/clipperhouse/uax29/words"
)

// Output colours.
var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6C7086")
	colorSuccess = lipgloss.Color("#A6E3A1")
	colorError   = lipgloss.Color("#F38BA8")
	colorTag     = lipgloss.Color("#06B6D4")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	tagStyle     = lipgloss.NewStyle().Foreground(colorTag)
	snippetStyle = lipgloss.NewStyle().PaddingLeft(6)
)

// snippetWords is how many words of a chunk the result list shows.
const snippetWords = 40

// snippet returns the first n words of text on one line, cut at a word
// boundary.
func snippet(text string, n int) string {
	var (
		b     strings.Builder
		count int
		space bool
	)
	for _, seg := range words.SegmentAll([]byte(text)) {
		if strings.TrimSpace(string(seg)) == "" {
			space = b.Len() > 0
			continue
		}
		if count == n {
			b.WriteString(" …")
			return b.String()
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.Write(seg)
		count++
	}
	return b.String()
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = tagStyle.Render("#" + strings.ReplaceAll(t, " ", "-"))
	}
	return strings.Join(parts, " ")
}
