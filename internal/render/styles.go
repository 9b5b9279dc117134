package render

import "github.com/charmbracelet/lipgloss"

var (
	Primary = lipgloss.Color("#1E88E5")
	Success = lipgloss.Color("#4CAF50")
	Warning = lipgloss.Color("#FFB74D")
	Error   = lipgloss.Color("#F44336")
	Muted   = lipgloss.Color("#90A4AE")
	Text    = lipgloss.AdaptiveColor{Light: "#212121", Dark: "#E0E0E0"}
)

type styles struct {
	title    lipgloss.Style
	section  lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	muted    lipgloss.Style
	good     lipgloss.Style
	warn     lipgloss.Style
	bad      lipgloss.Style
	verdict  lipgloss.Style
	panel    lipgloss.Style
	listItem lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title: r.NewStyle().
			Foreground(Primary).
			Bold(true),
		section: r.NewStyle().
			Foreground(Primary).
			Bold(true).
			MarginTop(1),
		label: r.NewStyle().
			Foreground(Muted).
			Width(24),
		value: r.NewStyle().
			Foreground(Text),
		muted: r.NewStyle().
			Foreground(Muted).
			Italic(true),
		good: r.NewStyle().
			Foreground(Success).
			Bold(true),
		warn: r.NewStyle().
			Foreground(Warning).
			Bold(true),
		bad: r.NewStyle().
			Foreground(Error).
			Bold(true),
		verdict: r.NewStyle().
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()),
		panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Muted).
			Padding(0, 1),
		listItem: r.NewStyle().
			PaddingLeft(2),
	}
}
