package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/result"
)

// Theme defines the colors of the terminal view.
type Theme struct {
	Name string

	Background  string
	Surface     string
	SelectionBg string
	Border      string

	Text    string
	Muted   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// StatusColors maps ticket visibility to a badge color.
	StatusColors map[model.TicketStatus]string
}

// Styles are the lipgloss styles built from a Theme.
type Styles struct {
	Header    lipgloss.Style
	Footer    lipgloss.Style
	Logo      lipgloss.Style
	Text      lipgloss.Style
	MutedText lipgloss.Style
	Accent    lipgloss.Style
	Selected  lipgloss.Style
	Banner    lipgloss.Style
	Online    lipgloss.Style
	Offline   lipgloss.Style
	Panel     lipgloss.Style

	statusColors map[model.TicketStatus]string
	background   string
	muted        string
}

// Styles returns lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),
		Logo: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),
		Text:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		Accent:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.Text)),
		Banner: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Background)).
			Background(lipgloss.Color(t.Danger)).
			Bold(true).
			Padding(0, 1),
		Online:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)),
		Offline: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)).Bold(true),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(0, 1),

		statusColors: t.StatusColors,
		background:   t.Background,
		muted:        t.Muted,
	}
}

// StatusStyle returns the badge style for a ticket status.
func (s Styles) StatusStyle(status model.TicketStatus) lipgloss.Style {
	color := s.statusColors[status]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// ErrorStyle colors the error banner by kind. Input errors are shown muted.
func (s Styles) ErrorStyle(kind result.ErrorKind) lipgloss.Style {
	if kind == result.KindValidation {
		return s.Banner.Background(lipgloss.Color(s.muted))
	}
	return s.Banner
}

var themes = map[string]Theme{
	"Nightfox": nightfoxTheme(),
	"Kanagawa": kanagawaTheme(),
}

var themeOrder = []string{"Nightfox", "Kanagawa"}

// GetTheme returns a theme by name, defaulting to Nightfox.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return nightfoxTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

func nightfoxTheme() Theme {
	// Nightfox palette: https://github.com/EdenEast/nightfox.nvim
	return Theme{
		Name:        "Nightfox",
		Background:  "#131a24", // bg0
		Surface:     "#192330", // bg1
		SelectionBg: "#2b3b51", // sel0
		Border:      "#39506d", // bg4
		Text:        "#cdcecf", // fg1
		Muted:       "#738091", // comment
		Accent:      "#719cd6", // blue
		Success:     "#81b29a", // green
		Warning:     "#dbc074", // yellow
		Danger:      "#c94f6d", // red
		Info:        "#63cdcf", // cyan
		StatusColors: map[model.TicketStatus]string{
			model.StatusPublic:  "#81b29a",
			model.StatusPrivate: "#9d79d6", // magenta
		},
	}
}

func kanagawaTheme() Theme {
	// Kanagawa palette: https://github.com/rebelot/kanagawa.nvim
	return Theme{
		Name:        "Kanagawa",
		Background:  "#16161D", // sumiInk0
		Surface:     "#1F1F28", // sumiInk3
		SelectionBg: "#2D4F67", // waveBlue1
		Border:      "#54546D", // sumiInk6
		Text:        "#DCD7BA", // fujiWhite
		Muted:       "#C8C093", // oldWhite
		Accent:      "#7E9CD8", // crystalBlue
		Success:     "#98BB6C", // springGreen
		Warning:     "#E6C384", // carpYellow
		Danger:      "#E46876", // waveRed
		Info:        "#7FB4CA", // springBlue
		StatusColors: map[model.TicketStatus]string{
			model.StatusPublic:  "#98BB6C",
			model.StatusPrivate: "#957FB8", // oniViolet
		},
	}
}
