// lines.go centralises the fixed lines the app speaks around the
// conversation. Keep lines short and direct; the TTS engine handles
// inflection.

package speech

import "fmt"

// ── Greeting / Global ────────────────────────────────────────────

func LineWelcome() string {
	return "Hi. Tell me what you feel like eating."
}

func LineBye() string {
	return "Bye. Enjoy your meal."
}

func LineReset() string {
	return "Starting over. What are you in the mood for?"
}

func LineHelp() string {
	return "Press Enter or type listen, then say what you'd like. Type stop to cancel, reset to start over, repeat to hear me again, or quit to leave."
}

func LineUnknown(input string) string {
	return fmt.Sprintf("Didn't catch that: %s.", input)
}

// Prefetchable returns the fixed lines worth warming in the TTS cache at
// startup.
func Prefetchable() []string {
	return []string{LineWelcome(), LineBye(), LineReset(), LineHelp()}
}
