// Package theme stores the color theme preference and turns it into
// terminal styles.
package theme

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/lipgloss"
)

// Name is a theme preference.
type Name string

const (
	Light    Name = "light"
	Dark     Name = "dark"
	Midnight Name = "midnight"
	System   Name = "system"
)

// Cycle is the order Toggle walks through. System is not part of it.
var Cycle = []Name{Light, Dark, Midnight}

// Parse accepts any theme including System.
func Parse(s string) (Name, error) {
	n := Name(s)
	if n == System || slices.Contains(Cycle, n) {
		return n, nil
	}
	return "", fmt.Errorf("unknown theme %q (want light, dark, midnight or system)", s)
}

// Detector reports whether the terminal background is dark.
type Detector func() bool

// TerminalDetector queries the terminal through lipgloss.
func TerminalDetector() bool {
	return lipgloss.HasDarkBackground()
}

// Resolve maps System to Light or Dark using detect. Other names pass through.
func Resolve(n Name, detect Detector) Name {
	if n != System {
		return n
	}
	if detect != nil && detect() {
		return Dark
	}
	return Light
}

// Next returns the theme after resolved in Cycle.
func Next(resolved Name) Name {
	i := slices.Index(Cycle, resolved)
	return Cycle[(i+1)%len(Cycle)]
}

// Palette holds the colors of a resolved theme.
type Palette struct {
	Name    Name
	Text    string
	Muted   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Border  string
}

var palettes = map[Name]Palette{
	Light: {
		Name:    Light,
		Text:    "#1f2328",
		Muted:   "#656d76",
		Accent:  "#0969da",
		Success: "#1a7f37",
		Warning: "#9a6700",
		Danger:  "#cf222e",
		Border:  "#d0d7de",
	},
	Dark: {
		Name:    Dark,
		Text:    "#e6edf3",
		Muted:   "#8d96a0",
		Accent:  "#4493f8",
		Success: "#3fb950",
		Warning: "#d29922",
		Danger:  "#f85149",
		Border:  "#30363d",
	},
	Midnight: {
		Name:    Midnight,
		Text:    "#c9d1f5",
		Muted:   "#7a82b0",
		Accent:  "#a78bfa",
		Success: "#5eead4",
		Warning: "#fbbf24",
		Danger:  "#fb7185",
		Border:  "#2a2f55",
	},
}

// PaletteFor returns the palette of a resolved theme. System resolves as Light.
func PaletteFor(resolved Name) Palette {
	if p, ok := palettes[resolved]; ok {
		return p
	}
	return palettes[Light]
}

// Styles are the lipgloss styles CLI output is rendered with.
type Styles struct {
	Title   lipgloss.Style
	Text    lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style
	Box     lipgloss.Style
}

// Styles builds the styles for p.
func (p Palette) Styles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Accent)).
			Bold(true),
		Text: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Text)),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Muted)),
		Accent: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Accent)),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Success)).
			Bold(true),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Warning)),
		Danger: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Danger)).
			Bold(true),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.Border)).
			Padding(0, 1),
	}
}
