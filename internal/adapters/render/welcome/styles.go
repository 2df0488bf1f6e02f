package welcome

import "github.com/charmbracelet/lipgloss"

const (
	deepBlue    = lipgloss.Color("#050D1A")
	darkestBlue = lipgloss.Color("#03050D")
	accentBlue  = lipgloss.Color("#1A4DCC")
	glowBlue    = lipgloss.Color("#3366FF")
	white       = lipgloss.Color("#FFFFFF")
	muted       = lipgloss.Color("#8E8E93")
	alertRed    = lipgloss.Color("#E5484D")
)

type styles struct {
	frame        lipgloss.Style
	logo         lipgloss.Style
	title        lipgloss.Style
	subtitle     lipgloss.Style
	button       lipgloss.Style
	buttonActive lipgloss.Style
	buttonFailed lipgloss.Style
	session      lipgloss.Style
	failure      lipgloss.Style
	featureIcon  lipgloss.Style
	featureText  lipgloss.Style
	section      lipgloss.Style
	record       lipgloss.Style
	selected     lipgloss.Style
	empty        lipgloss.Style
	notice       lipgloss.Style
	help         lipgloss.Style
}

func newStyles() styles {
	button := lipgloss.NewStyle().
		Bold(true).
		Foreground(white).
		Background(accentBlue).
		Padding(0, 3).
		Align(lipgloss.Center)

	return styles{
		frame:        lipgloss.NewStyle().Background(deepBlue).BorderStyle(lipgloss.RoundedBorder()).BorderForeground(darkestBlue).Padding(1, 2),
		logo:         lipgloss.NewStyle().Bold(true).Foreground(glowBlue),
		title:        lipgloss.NewStyle().Bold(true).Foreground(white),
		subtitle:     lipgloss.NewStyle().Foreground(muted).Align(lipgloss.Center),
		button:       button,
		buttonActive: button.Background(glowBlue),
		buttonFailed: button.Background(alertRed),
		session:      lipgloss.NewStyle().Foreground(muted),
		failure:      lipgloss.NewStyle().Foreground(alertRed),
		featureIcon:  lipgloss.NewStyle().Bold(true).Foreground(glowBlue).Width(3),
		featureText:  lipgloss.NewStyle().Foreground(white),
		section:      lipgloss.NewStyle().MarginTop(1),
		record:       lipgloss.NewStyle().Foreground(white),
		selected:     lipgloss.NewStyle().Bold(true).Foreground(glowBlue),
		empty:        lipgloss.NewStyle().Faint(true),
		notice:       lipgloss.NewStyle().Italic(true).Foreground(glowBlue),
		help:         lipgloss.NewStyle().Foreground(muted),
	}
}
