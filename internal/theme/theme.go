// Package theme holds the terminal client's colors and shared styles.
// Styles are package variables rebuilt by Apply.
package theme

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/timetrack/internal/model"
)

// Palette is a named set of colors the shared styles are built from.
type Palette struct {
	Accent  lipgloss.TerminalColor
	Running lipgloss.TerminalColor
	Pending lipgloss.TerminalColor
	Danger  lipgloss.TerminalColor
	Muted   lipgloss.TerminalColor
	Text    lipgloss.TerminalColor
	Subtle  lipgloss.TerminalColor
	Border  lipgloss.TerminalColor
}

// Palettes are the selectable values of display.theme.
var Palettes = map[string]Palette{
	"default": {
		Accent:  lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"},
		Running: lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"},
		Pending: lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"},
		Danger:  lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"},
		Muted:   lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"},
		Text:    lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"},
		Subtle:  lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"},
		Border:  lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"},
	},
	"mono": {
		Accent:  lipgloss.NoColor{},
		Running: lipgloss.NoColor{},
		Pending: lipgloss.NoColor{},
		Danger:  lipgloss.NoColor{},
		Muted:   lipgloss.NoColor{},
		Text:    lipgloss.NoColor{},
		Subtle:  lipgloss.NoColor{},
		Border:  lipgloss.NoColor{},
	},
}

// Colors of the active palette.
var (
	ColorBlue   lipgloss.TerminalColor
	ColorGreen  lipgloss.TerminalColor
	ColorYellow lipgloss.TerminalColor
	ColorRed    lipgloss.TerminalColor
	ColorGray   lipgloss.TerminalColor
	ColorWhite  lipgloss.TerminalColor
	ColorSubtle lipgloss.TerminalColor
	ColorBorder lipgloss.TerminalColor
)

// Shared styles, rebuilt from the active palette.
var (
	// HeaderStyle renders the application title bar.
	HeaderStyle lipgloss.Style
	// StatusBarStyle renders the bottom status bar.
	StatusBarStyle lipgloss.Style
	// PanelStyle wraps boxed content such as the summary and help.
	PanelStyle        lipgloss.Style
	ListItemStyle     lipgloss.Style
	SelectedItemStyle lipgloss.Style
	HelpStyle         lipgloss.Style
	// DimmedStyle renders completed tasks and secondary text.
	DimmedStyle lipgloss.Style
	// TimerStyle renders a running timer's clock.
	TimerStyle lipgloss.Style
	// PendingTimerStyle renders a timer the server has not confirmed yet.
	PendingTimerStyle lipgloss.Style
	ErrorStyle        lipgloss.Style
	StatLabelStyle    lipgloss.Style
	StatValueStyle    lipgloss.Style
)

func init() {
	use(Palettes["default"])
}

// Apply switches every shared style to the named palette. An empty name
// selects "default".
func Apply(name string) error {
	if name == "" {
		name = "default"
	}
	p, ok := Palettes[name]
	if !ok {
		return fmt.Errorf("unknown theme %q (available: %v)", name, Names())
	}
	use(p)
	return nil
}

// Names returns the palette names in sorted order.
func Names() []string {
	names := make([]string, 0, len(Palettes))
	for n := range Palettes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func use(p Palette) {
	ColorBlue, ColorGreen, ColorYellow, ColorRed = p.Accent, p.Running, p.Pending, p.Danger
	ColorGray, ColorWhite, ColorSubtle, ColorBorder = p.Muted, p.Text, p.Subtle, p.Border

	HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorWhite).
		Background(ColorBlue).
		Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(ColorWhite).
		Background(ColorSubtle).
		Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	ListItemStyle = lipgloss.NewStyle().PaddingLeft(2)
	SelectedItemStyle = lipgloss.NewStyle().
		PaddingLeft(1).
		Bold(true).
		Foreground(ColorBlue).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(ColorBlue)

	HelpStyle = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)
	DimmedStyle = lipgloss.NewStyle().Foreground(ColorGray)
	TimerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorGreen)
	PendingTimerStyle = lipgloss.NewStyle().Foreground(ColorYellow)
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)

	StatLabelStyle = lipgloss.NewStyle().Foreground(ColorGray).Width(18)
	StatValueStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWhite)
}

// StatusStyle returns a color-coded style for the given task status.
func StatusStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch status {
	case model.TaskStatusPending:
		return base.Foreground(ColorBlue)
	case model.TaskStatusInProgress:
		return base.Foreground(ColorYellow)
	case model.TaskStatusCompleted:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// StatusLabel returns a short, fixed-width label for a task status.
func StatusLabel(status string) string {
	switch status {
	case model.TaskStatusPending:
		return "TODO"
	case model.TaskStatusInProgress:
		return "DOING"
	case model.TaskStatusCompleted:
		return "DONE"
	default:
		return "?"
	}
}
