// Package ui renders terminal output for the muc commands.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	ColorSuccess = lipgloss.AdaptiveColor{Light: "2", Dark: "2"} // Green
	ColorError   = lipgloss.AdaptiveColor{Light: "1", Dark: "1"} // Red
	ColorPrimary = lipgloss.AdaptiveColor{Light: "5", Dark: "5"} // Magenta
	ColorInfo    = lipgloss.AdaptiveColor{Light: "6", Dark: "6"} // Cyan
	ColorMuted   = lipgloss.AdaptiveColor{Light: "8", Dark: "8"} // Gray
	ColorWarning = lipgloss.AdaptiveColor{Light: "3", Dark: "3"} // Yellow

	StyleSuccess lipgloss.Style
	StyleError   lipgloss.Style
	StylePrimary lipgloss.Style
	StyleInfo    lipgloss.Style
	StyleMuted   lipgloss.Style
	StyleWarning lipgloss.Style
	StyleBold    lipgloss.Style

	StyleTitle       lipgloss.Style
	StyleTableHeader lipgloss.Style
	StyleTableCell   lipgloss.Style

	IconSuccess = "✔"
	IconError   = "✘"
	IconInfo    = "ℹ"
	IconWarning = "⚠"
)

func init() {
	SetPlain(false)
}

// SetPlain switches every style off, for --no-color and piped output.
func SetPlain(plain bool) {
	if plain {
		for _, s := range []*lipgloss.Style{
			&StyleSuccess, &StyleError, &StylePrimary, &StyleInfo, &StyleMuted,
			&StyleWarning, &StyleBold, &StyleTitle, &StyleTableHeader, &StyleTableCell,
		} {
			*s = lipgloss.NewStyle()
		}
		return
	}

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleError = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StylePrimary = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleInfo = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleBold = lipgloss.NewStyle().Bold(true)

	StyleTitle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Underline(true)
	StyleTableHeader = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleTableCell = lipgloss.NewStyle()
}

func FormatSuccess(msg string) string {
	return StyleSuccess.Render(IconSuccess + " " + msg)
}

func FormatError(msg string) string {
	return StyleError.Render(IconError + " " + msg)
}

func FormatInfo(msg string) string {
	return StyleInfo.Render(IconInfo + " " + msg)
}

func FormatWarning(msg string) string {
	return StyleWarning.Render(IconWarning + " " + msg)
}

func FormatTitle(title string) string {
	return StyleTitle.Render(title)
}

func FormatMuted(text string) string {
	return StyleMuted.Render(text)
}

func FormatBold(text string) string {
	return StyleBold.Render(text)
}

// FormatStatus colours a result status.
func FormatStatus(status string) string {
	switch status {
	case "used":
		return StyleSuccess.Render(status)
	case "unused":
		return StyleWarning.Render(status)
	case "skipped":
		return StyleMuted.Render(status)
	case "deleted", "trashed":
		return StyleError.Render(status)
	}
	return status
}
