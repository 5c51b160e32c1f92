// Package conversation parses prompt commands and prints notifications.
package conversation

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentParser = (*KeywordParser)(nil)

// KeywordParser matches prompt input to commands using keywords. Anything
// that isn't a command comes back as IntentUnknown with the text as
// payload, so it can be used as a typed request.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

type patternRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
}

// NewKeywordParser creates a keyword-based command parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(listen|l|talk|speak|mic)$`), domain.IntentListen},
		{regexp.MustCompile(`(?i)^(stop|cancel|s|nevermind|never mind)$`), domain.IntentStop},
		{regexp.MustCompile(`(?i)^(reset|new|clear|start over|new search)$`), domain.IntentReset},
		{regexp.MustCompile(`(?i)^(repeat|again|what\??|r|say that again|come again)$`), domain.IntentRepeat},
		{regexp.MustCompile(`(?i)^(quit|exit|q|bye)$`), domain.IntentQuit},
		{regexp.MustCompile(`(?i)^(help|h|\?)$`), domain.IntentHelp},
	}
	return p
}

// Parse converts prompt input into an intent. A bare Enter toggles
// listening.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Intent, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentToggle}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	for _, rule := range p.patterns {
		if rule.regex.MatchString(trimmed) {
			p.log.Debug("matched intent: %s", rule.intent)
			return &domain.Intent{Type: rule.intent}, nil
		}
	}

	return &domain.Intent{Type: domain.IntentUnknown, Payload: trimmed}, nil
}
