package display

import (
	"strings"
	"testing"
)

func TestRenderBannerWide(t *testing.T) {
	out := RenderBanner(120, "Press Enter to talk")

	if !strings.Contains(out, "say what you feel like eating") {
		t.Errorf("art missing:\n%s", out)
	}
	if strings.Contains(out, compactBanner) {
		t.Error("compact title used on a wide terminal")
	}
	last := strings.Split(strings.TrimRight(out, "\n"), "\n")
	hint := last[len(last)-1]
	if !strings.HasPrefix(hint, "    ") || !strings.Contains(hint, "Press Enter to talk") {
		t.Errorf("hint line = %q", hint)
	}
}

func TestRenderBannerNarrow(t *testing.T) {
	out := RenderBanner(20, "")

	if !strings.Contains(out, compactBanner) {
		t.Errorf("expected compact title, got:\n%s", out)
	}
	if strings.Contains(out, "|_|") {
		t.Error("art rendered on a narrow terminal")
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("expected a single line, got %q", out)
	}
}
