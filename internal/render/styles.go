package render

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette colors, taken from the broadcast overlay the scorebar mimics.
const (
	colorText     = "#ffffff"
	colorMuted    = "#aaaaaa"
	colorAccent   = "#4fc3f7"
	colorTarget   = "#ffa726"
	colorWicket   = "#ff8a80"
	colorBoundary = "#66bb6a"
)

// Styles holds the lipgloss styles used by the scorebar.
type Styles struct {
	Team       lipgloss.Style
	Score      lipgloss.Style
	Overs      lipgloss.Style
	Target     lipgloss.Style
	Batsman    lipgloss.Style
	Striker    lipgloss.Style
	StrikeRate lipgloss.Style
	InfoLabel  lipgloss.Style
	InfoValue  lipgloss.Style
	Bowler     lipgloss.Style
	Muted      lipgloss.Style
	Ball       lipgloss.Style
	Boundary   lipgloss.Style
	Wicket     lipgloss.Style
	Divider    lipgloss.Style
	Bar        lipgloss.Style
}

// NewStyles builds the scorebar styles for r. A nil renderer uses the
// lipgloss default.
func NewStyles(r *lipgloss.Renderer) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	fg := func(c string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(c))
	}
	return Styles{
		Team:       fg(colorText).Bold(true),
		Score:      fg(colorText).Bold(true),
		Overs:      fg(colorMuted),
		Target:     fg(colorTarget).Bold(true),
		Batsman:    fg(colorText),
		Striker:    fg(colorAccent).Bold(true),
		StrikeRate: fg(colorAccent),
		InfoLabel:  fg(colorMuted),
		InfoValue:  fg(colorText).Bold(true),
		Bowler:     fg(colorText),
		Muted:      fg(colorMuted),
		Ball:       fg(colorText),
		Boundary:   fg(colorBoundary).Bold(true),
		Wicket:     fg(colorWicket).Bold(true),
		Divider:    fg(colorMuted),
		Bar:        r.NewStyle().Padding(0, 1),
	}
}

// PlainStyles renders without any styling, for logs and pipes.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Team: plain, Score: plain, Overs: plain, Target: plain,
		Batsman: plain, Striker: plain, StrikeRate: plain,
		InfoLabel: plain, InfoValue: plain, Bowler: plain, Muted: plain,
		Ball: plain, Boundary: plain, Wicket: plain, Divider: plain, Bar: plain,
	}
}
