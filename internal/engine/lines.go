package engine

import "fmt"

// Lines the controller speaks on its own. Clarifying questions come from
// the extraction service verbatim.

func LineNothingToRepeat() string {
	return "I haven't said anything yet."
}

// LineRecipesFound is the announcement after a search with results.
func LineRecipesFound(n int) string {
	return fmt.Sprintf("I found %d recipes for you. Here they are.", n)
}

// LineCaptureUnsupported is spoken once when no speech engine can run.
func LineCaptureUnsupported() string {
	return "Voice input isn't available here. You can type your request instead."
}

// Prefetchable returns the fixed lines worth warming in the TTS cache.
func Prefetchable() []string {
	out := []string{LineNothingToRepeat(), LineCaptureUnsupported()}
	for n := 1; n <= 3; n++ {
		out = append(out, LineRecipesFound(n))
	}
	return out
}
