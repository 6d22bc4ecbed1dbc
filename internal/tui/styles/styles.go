// ABOUTME: Shared lipgloss styles for consistent TUI appearance
// ABOUTME: Palette, panels, banners, and chat bubble styles used by every screen

package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary   = lipgloss.Color("#0EA5E9") // Sky
	Secondary = lipgloss.Color("#10B981") // Green
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Danger    = lipgloss.Color("#EF4444") // Red
	Muted     = lipgloss.Color("#6B7280") // Gray
	Text      = lipgloss.Color("#F9FAFB")
	Surface   = lipgloss.Color("#374151")
	// BannerText is dark text for light backgrounds
	BannerText = lipgloss.Color("#111827")

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(Muted)

	Label = lipgloss.NewStyle().
		Foreground(Muted).
		Width(10)

	StatusOK = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	StatusWarning = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	StatusCritical = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Muted).
		Padding(0, 2)

	// OfflineBanner is shown across the top while working from cached data
	OfflineBanner = lipgloss.NewStyle().
			Foreground(BannerText).
			Background(Warning).
			Bold(true).
			Padding(0, 1)

	Error = lipgloss.NewStyle().
		Foreground(Danger)

	Help = lipgloss.NewStyle().
		Foreground(Muted).
		MarginTop(1)

	Key = lipgloss.NewStyle().
		Foreground(Primary)

	// Chat
	SelfName    = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	AgentName   = lipgloss.NewStyle().Foreground(Secondary).Bold(true)
	PendingText = lipgloss.NewStyle().Foreground(Muted).Italic(true)
	Timestamp   = lipgloss.NewStyle().Foreground(Muted)
)

// SubscriptionStatus styles a subscription status word
func SubscriptionStatus(status string) string {
	switch status {
	case "active":
		return StatusOK.Render(status)
	case "pending", "cancelled":
		return StatusWarning.Render(status)
	default:
		return StatusCritical.Render(status)
	}
}
