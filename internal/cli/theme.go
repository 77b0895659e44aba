package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/zapponejosh/ganzhi-api/internal/calendar"
)

// Theme holds the lipgloss styles used by pretty output.
type Theme struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Faint    lipgloss.Style
	Pass     lipgloss.Style
	Fail     lipgloss.Style
	Card     lipgloss.Style
	Elements map[calendar.Element]lipgloss.Style
}

// DefaultTheme colours pillars by element on a 256-colour terminal.
func DefaultTheme() Theme {
	return Theme{
		Title: lipgloss.NewStyle().Bold(true),
		Label: lipgloss.NewStyle().Faint(true).Width(8),
		Faint: lipgloss.NewStyle().Faint(true),
		Pass:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Fail:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		Card: lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")),
		Elements: map[calendar.Element]lipgloss.Style{
			calendar.Wood:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
			calendar.Fire:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
			calendar.Earth: lipgloss.NewStyle().Foreground(lipgloss.Color("178")).Bold(true),
			calendar.Metal: lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Bold(true),
			calendar.Water: lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true),
		},
	}
}

// Pillar renders a pillar in the colour of its stem's element.
func (t Theme) Pillar(g calendar.GanZhi) string {
	style, ok := t.Elements[g.Stem.Element()]
	if !ok {
		return g.String()
	}
	return style.Render(g.String())
}
