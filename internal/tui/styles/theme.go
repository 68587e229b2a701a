package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/raainshe/animedash/internal/animeapi"
)

// Color palette
var (
	Primary   = lipgloss.Color("#00D4AA")
	Secondary = lipgloss.Color("#7C3AED")
	Accent    = lipgloss.Color("#F59E0B")

	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#FCD34D")
	Error   = lipgloss.Color("#EF4444")
	Info    = lipgloss.Color("#3B82F6")

	// Job status colors
	Pending     = lipgloss.Color("#6B7280")
	Fetching    = lipgloss.Color("#F59E0B")
	Downloading = lipgloss.Color("#3B82F6")
	Merging     = lipgloss.Color("#7C3AED")
	Completed   = lipgloss.Color("#10B981")

	Background = lipgloss.Color("#0F172A")
	Surface    = lipgloss.Color("#1E293B")
	Border     = lipgloss.Color("#334155")
	Text       = lipgloss.Color("#F1F5F9")
	TextMuted  = lipgloss.Color("#94A3B8")
)

// Layout styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Background(Surface).
			Padding(0, 2).
			Bold(true)

	SidebarStyle = lipgloss.NewStyle().
			Background(Surface).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(1, 2).
			Width(20)

	ContentStyle = lipgloss.NewStyle().
			Padding(1, 2)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Background(Surface).
			Padding(0, 1)

	SectionTitleStyle = lipgloss.NewStyle().
				Foreground(Primary).
				Bold(true)

	NavItemStyle = lipgloss.NewStyle().
			Foreground(Text).
			Padding(0, 1)

	NavItemSelectedStyle = lipgloss.NewStyle().
				Foreground(Background).
				Background(Primary).
				Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1)

	StatValueStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(TextMuted)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Italic(true)
)

// StatusColor returns the badge color of a job status
func StatusColor(status animeapi.JobStatus) lipgloss.Color {
	switch status {
	case animeapi.StatusInitializing:
		return Pending
	case animeapi.StatusFetchingInfo, animeapi.StatusFetchingEpisodes:
		return Fetching
	case animeapi.StatusDownloading:
		return Downloading
	case animeapi.StatusMerging:
		return Merging
	case animeapi.StatusCompleted:
		return Completed
	case animeapi.StatusFailed:
		return Error
	default:
		return Text
	}
}

// StatusStyle returns a bold style in the color of a job status
func StatusStyle(status animeapi.JobStatus) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(StatusColor(status)).Bold(true)
}
