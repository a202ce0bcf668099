package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Sunrise    = lipgloss.Color("#F59E0B")
	SlateDark  = lipgloss.Color("#1F2937")
	SlateLight = lipgloss.Color("#374151")
	DimGray    = lipgloss.Color("#6B7280")
	LightGray  = lipgloss.Color("#9CA3AF")
	White      = lipgloss.Color("#F9FAFB")
	Green      = lipgloss.Color("#10B981")
	Red        = lipgloss.Color("#EF4444")
	Pink       = lipgloss.Color("#EC4899")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(Sunrise)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)
)

// Tab styles
var (
	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(SlateDark).
			Background(Sunrise).
			Bold(true).
			Padding(0, 1)

	TabStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Padding(0, 1)
)

// Row styles
var (
	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(White).
				Background(SlateLight)

	RowStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	MatchHighlightStyle = lipgloss.NewStyle().
				Foreground(Sunrise).
				Bold(true)
)

// Badges
var (
	OwnedBadge   = lipgloss.NewStyle().Foreground(Green).Render("owned")
	InCartBadge  = lipgloss.NewStyle().Foreground(Sunrise).Render("in cart")
	FreeBadge    = lipgloss.NewStyle().Foreground(Green).Render("free")
	LikedHeart   = lipgloss.NewStyle().Foreground(Pink).Render("♥")
	UnlikedHeart = lipgloss.NewStyle().Foreground(DimGray).Render("♡")
	PendingHeart = lipgloss.NewStyle().Foreground(Pink).Faint(true).Render("♥")
)

// Panel styles
var (
	PlayerBarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(DimGray).
			Padding(0, 1)

	StatusStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Padding(0, 1)

	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Sunrise).
			Padding(1, 2)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Sunrise)

	FilterPromptStyle = lipgloss.NewStyle().
				Foreground(Sunrise).
				Bold(true)
)

// Progress bar styles
var (
	ProgressFullStyle = lipgloss.NewStyle().
				Foreground(Sunrise)

	ProgressCapStyle = lipgloss.NewStyle().
				Foreground(Red)

	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(DimGray)
)

// Truncate shortens s to width display cells with an ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if width <= 1 {
		return string(runes[:width])
	}
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// Pad right-pads s with spaces to width display cells
func Pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// RenderProgressBar renders fraction (0..1) of width cells. capAt, when in
// (0,1), marks where a preview stops.
func RenderProgressBar(fraction, capAt float64, width int) string {
	if width < 3 {
		return ""
	}
	fraction = min(max(fraction, 0), 1)
	filled := int(float64(width) * fraction)
	capCell := -1
	if capAt > 0 && capAt < 1 {
		capCell = int(float64(width) * capAt)
	}

	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == capCell:
			b.WriteString(ProgressCapStyle.Render("┃"))
		case i < filled:
			b.WriteString(ProgressFullStyle.Render("█"))
		default:
			b.WriteString(ProgressEmptyStyle.Render("░"))
		}
	}
	return b.String()
}

// Highlight renders text with the given byte offsets emphasized
func Highlight(text string, matched []int, base lipgloss.Style) string {
	if len(matched) == 0 {
		return base.Render(text)
	}
	set := make(map[int]bool, len(matched))
	for _, i := range matched {
		set[i] = true
	}
	hl := MatchHighlightStyle.Inherit(base)

	var b strings.Builder
	for i, r := range text {
		if set[i] {
			b.WriteString(hl.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}
	return b.String()
}
