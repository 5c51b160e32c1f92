package domain

import "time"

// Phase is where the conversation is. Errors are not a phase: they ride
// alongside any phase in State.Err.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseListening
	PhaseClarifying
	PhasePresenting
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseListening:
		return "listening"
	case PhaseClarifying:
		return "clarifying"
	case PhasePresenting:
		return "presenting"
	default:
		return "unknown"
	}
}

// State is everything the conversation knows, in one place. It is owned by
// the conversation controller; everyone else gets copies.
type State struct {
	SessionID string
	Phase     Phase

	// Listening is true only while a capture session is open.
	Listening bool
	// Busy is true from the start of a turn until it settles.
	Busy bool

	Transcript     string
	Context        *Context
	Question       string // open clarifying question, "" when none
	Clarifications int
	// MaxClarifications is the cap the controller enforces; zero means
	// the default budget.
	MaxClarifications int
	Recipes        []Recipe
	Searched       bool // at least one retrieval has completed

	Err             string // user-visible error text, "" when none
	CaptureDisabled bool   // recognition is unsupported on this system

	UpdatedAt time.Time
}

// ClarificationCap returns the clarification cap in effect.
func (s State) ClarificationCap() int {
	if s.MaxClarifications > 0 {
		return s.MaxClarifications
	}
	return MaxClarifications
}

// Copy returns a deep copy safe to hand to readers.
func (s State) Copy() State {
	out := s
	out.Context = s.Context.Clone()
	if s.Recipes != nil {
		out.Recipes = make([]Recipe, len(s.Recipes))
		copy(out.Recipes, s.Recipes)
	}
	return out
}

// CaptureEventKind identifies a speech capture session event.
type CaptureEventKind int

const (
	CaptureStarted CaptureEventKind = iota
	CaptureResult
	CaptureError
	CaptureEnded
)

// String returns a human-readable event kind.
func (k CaptureEventKind) String() string {
	switch k {
	case CaptureStarted:
		return "started"
	case CaptureResult:
		return "result"
	case CaptureError:
		return "error"
	case CaptureEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Capture error reasons.
const (
	ReasonNoSpeech    = "no-speech"
	ReasonAborted     = "aborted"
	ReasonTimeout     = "timeout"
	ReasonUnsupported = "not-supported"
	ReasonAudio       = "audio-capture"
)

// CaptureEvent is one event of a capture session.
type CaptureEvent struct {
	Kind   CaptureEventKind
	Text   string // recognised text, for CaptureResult
	Reason string // platform reason, for CaptureError
	Err    error  // underlying error, for CaptureError
}
