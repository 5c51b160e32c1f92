package display

import (
	_ "embed"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

//go:embed banner.txt
var bannerRaw string

// compactBanner replaces the art on terminals too narrow for it.
const compactBanner = "Recipe Voice"

// RenderBanner returns the startup banner centred in width columns, with
// hint on its own line underneath. When the art does not fit, a one-line
// title is used instead.
func RenderBanner(width int, hint string) string {
	lines := strings.Split(strings.TrimRight(bannerRaw, "\n"), "\n")
	if artWidth(lines) > width {
		lines = []string{compactBanner}
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(centre(l, width))
		b.WriteByte('\n')
	}
	if hint != "" {
		b.WriteByte('\n')
		b.WriteString(centre(hint, width))
		b.WriteByte('\n')
	}
	return b.String()
}

func artWidth(lines []string) int {
	w := 0
	for _, l := range lines {
		w = max(w, lipgloss.Width(l))
	}
	return w
}

// centre pads s on the left so it sits in the middle of width columns.
func centre(s string, width int) string {
	pad := (width - lipgloss.Width(s)) / 2
	if pad <= 0 {
		return BannerStyle.Render(s)
	}
	return strings.Repeat(" ", pad) + BannerStyle.Render(s)
}

// TermWidth returns the current terminal column count, or 80 when stdout
// is not a terminal.
func TermWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}
