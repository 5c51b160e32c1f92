// Package speech turns the user's voice into text and the assistant's
// replies into audio. Capture sessions run through Capture over one of
// several Recognizer engines; output runs through the Mouth.
package speech

import (
	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Compile-time interface check.
var _ domain.SpeechOutput = (*NoOp)(nil)

// NoOp is the speech output used when voice is disabled or no TTS
// credentials are configured.
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a silent speech output.
func NewNoOp(log *logger.Logger) *NoOp {
	return &NoOp{log: log}
}

// Speak logs what would have been said.
func (n *NoOp) Speak(text string) {
	n.log.Debug("speech no-op: would say %q", text)
}
