// Package styles define shared color and style constants used by CLI output.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/2ykwang/mac-maintain-go/internal/types"
)

// Colors shared by all CLI output.
var (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorSecondary = lipgloss.Color("#06B6D4")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorDanger    = lipgloss.Color("#EF4444")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorText      = lipgloss.Color("#F9FAFB")
	ColorBorder    = lipgloss.Color("#374151")
)

// Common lipgloss styles.
var (
	TextStyle    = lipgloss.NewStyle().Foreground(ColorText)
	TitleStyle   = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	SectionStyle = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	DangerStyle  = lipgloss.NewStyle().Foreground(ColorDanger)
	SizeStyle    = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	DividerStyle = lipgloss.NewStyle().Foreground(ColorBorder)
)

// Divider renders a horizontal line of the given width.
func Divider(width int) string {
	return DividerStyle.Render(strings.Repeat("─", width))
}

// SafetyDot renders the colored bullet shown next to a category.
func SafetyDot(level types.SafetyLevel) string {
	switch level {
	case types.SafetyLevelSafe:
		return SuccessStyle.Render("●")
	case types.SafetyLevelModerate:
		return WarningStyle.Render("●")
	case types.SafetyLevelRisky:
		return DangerStyle.Render("●")
	default:
		return MutedStyle.Render("●")
	}
}

func ConfidenceLabel(c types.Confidence) string {
	switch c {
	case types.ConfidenceHigh:
		return SuccessStyle.Render(c.String())
	case types.ConfidenceMedium:
		return WarningStyle.Render(c.String())
	default:
		return MutedStyle.Render(c.String())
	}
}
