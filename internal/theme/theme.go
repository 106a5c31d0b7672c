package theme

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
)

// Styles is the set of text styles used by command output. Styles carry no
// padding or borders so that piped output is byte-for-byte plain text.
type Styles struct {
	// Header is used for the first line of a report.
	Header lipgloss.Style

	// Section is used for group headings such as "FLAGGED (2):".
	Section lipgloss.Style

	// Muted is used for secondary details (dates, ids, hints).
	Muted lipgloss.Style

	Good lipgloss.Style
	Bad  lipgloss.Style
	Warn lipgloss.Style
}

// New returns styles bound to w. Color is only emitted when w is a terminal.
func New(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Header:  r.NewStyle().Bold(true).Foreground(ColorBlue),
		Section: r.NewStyle().Bold(true).Foreground(ColorMagenta),
		Muted:   r.NewStyle().Foreground(ColorGray),
		Good:    r.NewStyle().Foreground(ColorGreen),
		Bad:     r.NewStyle().Bold(true).Foreground(ColorRed),
		Warn:    r.NewStyle().Foreground(ColorYellow),
	}
}

// Verdict returns a color-coded style for an authentication result such as
// PASS, FAIL or NONE.
func (s Styles) Verdict(result string) lipgloss.Style {
	switch strings.ToUpper(result) {
	case "PASS":
		return s.Good
	case "FAIL", "PERMERROR", "TEMPERROR":
		return s.Bad
	case "SOFTFAIL", "NEUTRAL":
		return s.Warn
	default:
		return s.Muted
	}
}
