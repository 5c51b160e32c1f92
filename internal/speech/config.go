package speech

import "time"

// Default voice for TTS. The assistant speaks one locale only.
// Full list: https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
const (
	DefaultVoice  = "en-US-AvaNeural"
	DefaultLocale = "en-US"
)

// DefaultLanguage is the recognition language passed to transcribers.
const DefaultLanguage = "en"

// Audio format returned by Azure and expected by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Audio parameters matching the default output format.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Priority levels for speech requests. Higher value = speaks first.
type Priority int

const (
	PriorityLow    Priority = iota // hints, idle chatter
	PriorityNormal                 // questions, announcements
	PriorityHigh                   // errors
)

// SpeechRequest is a queued item waiting to be spoken.
type SpeechRequest struct {
	Text     string
	Priority Priority
	QueuedAt time.Time
}
