package chat

import "github.com/charmbracelet/lipgloss"

// theme groups reusable styles for chat UI regions.
type theme struct {
	header      lipgloss.Style
	headerMeta  lipgloss.Style
	divider     lipgloss.Style
	bootLine    lipgloss.Style
	bootDone    lipgloss.Style
	userBox     lipgloss.Style
	userTitle   lipgloss.Style
	botBox      lipgloss.Style
	botTitle    lipgloss.Style
	safetyBox   lipgloss.Style
	safetyTitle lipgloss.Style
	suggestion  lipgloss.Style
	status      lipgloss.Style
	statusBusy  lipgloss.Style
	hint        lipgloss.Style
	inputLabel  lipgloss.Style
	input       lipgloss.Style
	viewport    lipgloss.Style
}

// defaultTheme defines the calm terminal palette used by the care chat.
func defaultTheme() theme {
	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("25")),
		headerMeta: lipgloss.NewStyle().
			Foreground(lipgloss.Color("110")),
		divider: lipgloss.NewStyle().
			Foreground(lipgloss.Color("24")),
		bootLine: lipgloss.NewStyle().
			Foreground(lipgloss.Color("109")),
		bootDone: lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")).
			Bold(true),
		userBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("67")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
		userTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("67")).
			Padding(0, 1),
		botBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("37")).
			Background(lipgloss.Color("234")).
			Padding(0, 1),
		botTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("37")).
			Padding(0, 1),
		safetyBox: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("203")).
			Background(lipgloss.Color("52")).
			Foreground(lipgloss.Color("224")).
			Padding(0, 1),
		safetyTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("160")).
			Padding(0, 1),
		suggestion: lipgloss.NewStyle().
			Foreground(lipgloss.Color("117")),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Bold(true),
		statusBusy: lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")).
			Bold(true),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		inputLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("153")),
		input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("24")).
			Background(lipgloss.Color("236")).
			Padding(0, 1),
		viewport: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("24")).
			Background(lipgloss.Color("233")).
			Padding(0, 1),
	}
}
