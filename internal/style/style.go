package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/steveyegge/mechanic/internal/decision"
	"github.com/steveyegge/mechanic/internal/knowledge"
)

func init() {
	// Honor NO_COLOR and dumb terminals for piped output.
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}

// Color palette
var (
	colorCritical = lipgloss.Color("196") // bright red
	colorHigh     = lipgloss.Color("203") // red
	colorMedium   = lipgloss.Color("214") // orange
	colorLow      = lipgloss.Color("76")  // green
	colorAccent   = lipgloss.Color("39")  // blue
	colorMuted    = lipgloss.Color("242") // gray
)

var (
	criticalStyle = lipgloss.NewStyle().Foreground(colorCritical).Bold(true)
	highStyle     = lipgloss.NewStyle().Foreground(colorHigh).Bold(true)
	mediumStyle   = lipgloss.NewStyle().Foreground(colorMedium)
	lowStyle      = lipgloss.NewStyle().Foreground(colorLow)

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle   = lipgloss.NewStyle().Foreground(colorCritical)
	successStyle = lipgloss.NewStyle().Foreground(colorLow)
	accentStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
)

// Title renders a section heading.
func Title(s string) string { return titleStyle.Render(s) }

// Muted renders de-emphasized supporting text.
func Muted(s string) string { return mutedStyle.Render(s) }

// Error renders an error message.
func Error(s string) string { return errorStyle.Render(s) }

// Success renders a confirmation message.
func Success(s string) string { return successStyle.Render(s) }

// Accent renders an identifier or key value.
func Accent(s string) string { return accentStyle.Render(s) }

// Severity renders a severity label in its palette color.
func Severity(s knowledge.Severity) string {
	switch s {
	case knowledge.SeverityCritical:
		return criticalStyle.Render(string(s))
	case knowledge.SeverityHigh:
		return highStyle.Render(string(s))
	case knowledge.SeverityMedium:
		return mediumStyle.Render(string(s))
	default:
		return lowStyle.Render(string(s))
	}
}

// Disposition renders a decision disposition with an indicator glyph.
func Disposition(d decision.Disposition) string {
	switch d {
	case decision.AutoExecute:
		return successStyle.Render("● " + string(d))
	case decision.Suggest:
		return mediumStyle.Render("● " + string(d))
	default:
		return criticalStyle.Render("● " + string(d))
	}
}

// AgentState renders a supervisor agent state in its palette color.
func AgentState(state string) string {
	switch state {
	case "running":
		return successStyle.Render(state)
	case "halted":
		return criticalStyle.Render(state)
	case "failing", "restarting":
		return mediumStyle.Render(state)
	default:
		return mutedStyle.Render(state)
	}
}
