package controller

import "github.com/charmbracelet/lipgloss"

// palette renders status text. The zero value renders text unchanged.
type palette struct {
	enabled bool
	banner  lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	warning lipgloss.Style
}

func newPalette(enabled bool) palette {
	if !enabled {
		return palette{}
	}

	return palette{
		enabled: true,
		banner:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		failure: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		muted:   lipgloss.NewStyle().Faint(true),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

func (p palette) render(style lipgloss.Style, text string) string {
	if !p.enabled {
		return text
	}

	return style.Render(text)
}

func (p palette) Banner(text string) string  { return p.render(p.banner, text) }
func (p palette) Success(text string) string { return p.render(p.success, text) }
func (p palette) Failure(text string) string { return p.render(p.failure, text) }
func (p palette) Muted(text string) string   { return p.render(p.muted, text) }
func (p palette) Warning(text string) string { return p.render(p.warning, text) }
