package domain

// IntentType classifies what the user typed at the prompt.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentToggle             // empty Enter: start or stop listening
	IntentListen
	IntentStop
	IntentReset // forget the current search and start over
	IntentRepeat
	IntentHelp
	IntentQuit
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	switch i {
	case IntentToggle:
		return "toggle"
	case IntentListen:
		return "listen"
	case IntentStop:
		return "stop"
	case IntentReset:
		return "reset"
	case IntentRepeat:
		return "repeat"
	case IntentHelp:
		return "help"
	case IntentQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Intent represents a parsed user action.
type Intent struct {
	Type    IntentType
	Payload string // the raw input for unknown intents
}
