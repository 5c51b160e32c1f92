package speech

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*SpeakingNotifier)(nil)

// prioritySpeaker is implemented by outputs that can jump the queue.
type prioritySpeaker interface {
	Say(text string, priority Priority)
}

// SpeakingNotifier prints through a text notifier and also speaks the
// message.
type SpeakingNotifier struct {
	text domain.Notifier
	out  domain.SpeechOutput
	log  *logger.Logger
}

// NewSpeakingNotifier creates a notifier that both prints and speaks.
func NewSpeakingNotifier(text domain.Notifier, out domain.SpeechOutput, log *logger.Logger) *SpeakingNotifier {
	return &SpeakingNotifier{text: text, out: out, log: log}
}

// Notify prints the message and queues it for speech.
func (n *SpeakingNotifier) Notify(ctx context.Context, message string) error {
	if err := n.text.Notify(ctx, message); err != nil {
		return err
	}
	n.out.Speak(cleanForSpeech(message))
	return nil
}

// NotifyUrgent prints the message and speaks it ahead of anything queued
// when the output supports priorities.
func (n *SpeakingNotifier) NotifyUrgent(ctx context.Context, message string) error {
	if err := n.text.NotifyUrgent(ctx, message); err != nil {
		return err
	}
	if ps, ok := n.out.(prioritySpeaker); ok {
		ps.Say(cleanForSpeech(message), PriorityHigh)
		return nil
	}
	n.out.Speak(cleanForSpeech(message))
	return nil
}

var (
	bracketPrefix = regexp.MustCompile(`^\[[A-Za-z]+\]\s*`)
	ansiCodes     = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	bulletMarks   = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+\.)\s+`)
)

// cleanForSpeech strips terminal formatting that shouldn't be read out.
func cleanForSpeech(msg string) string {
	cleaned := ansiCodes.ReplaceAllString(msg, "")
	cleaned = bracketPrefix.ReplaceAllString(cleaned, "")
	cleaned = bulletMarks.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
