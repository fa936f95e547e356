package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// sparkLevels are eighth-block glyphs from empty to full
var sparkLevels = []rune(" ▁▂▃▄▅▆▇█")

// RenderLED renders a single LED in color when lit, muted otherwise
func RenderLED(on bool, onSym, offSym rune, onColor, offColor lipgloss.Color) string {
	if on {
		return lipgloss.NewStyle().Foreground(onColor).Render(string(onSym))
	}
	return lipgloss.NewStyle().Foreground(offColor).Render(string(offSym))
}

// RenderCells joins pre-rendered cells, each padded to width
func RenderCells(cells []string, width int) string {
	var out strings.Builder
	for i, c := range cells {
		if i > 0 {
			out.WriteString(" ")
		}
		pad := width - lipgloss.Width(c)
		if pad > 0 {
			out.WriteString(strings.Repeat(" ", pad))
		}
		out.WriteString(c)
	}
	return out.String()
}

// Spark returns the block glyph for value on a 0..max scale
func Spark(value, max int) rune {
	if max <= 0 || value <= 0 {
		return sparkLevels[0]
	}
	if value >= max {
		return sparkLevels[len(sparkLevels)-1]
	}
	return sparkLevels[1+value*(len(sparkLevels)-2)/max]
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderKeyLine formats key bindings on one line: "k:desc  k:desc"
func RenderKeyLine(keys []KeyBinding) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.Key + ":" + k.Desc
	}
	return strings.Join(parts, "  ")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
