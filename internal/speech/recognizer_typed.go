package speech

import (
	"context"
	"fmt"
	"sync"
)

// Compile-time interface checks.
var (
	_ Recognizer = (*TypedRecognizer)(nil)
	_ Recognizer = Unsupported{}
)

// TypedRecognizer takes the utterance from the keyboard instead of a
// microphone. While a session is open, the next submitted line is the
// transcript.
type TypedRecognizer struct {
	mu      sync.Mutex
	waiting bool
	lines   chan string
}

// NewTypedRecognizer creates a keyboard-fed recognizer.
func NewTypedRecognizer() *TypedRecognizer {
	return &TypedRecognizer{lines: make(chan string, 1)}
}

func (t *TypedRecognizer) Name() string { return "typed" }

func (t *TypedRecognizer) Available() error { return nil }

// Waiting reports whether a session is waiting for a line.
func (t *TypedRecognizer) Waiting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waiting
}

// Feed hands a line to the open session. It returns false when no
// session is waiting, in which case the line is left to the caller.
func (t *TypedRecognizer) Feed(line string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.waiting {
		return false
	}
	select {
	case t.lines <- line:
		t.waiting = false
		return true
	default:
		return false
	}
}

// Recognize waits for the next fed line.
func (t *TypedRecognizer) Recognize(ctx context.Context) (string, error) {
	t.mu.Lock()
	select {
	case <-t.lines: // drop anything left from an abandoned session
	default:
	}
	t.waiting = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.waiting = false
		t.mu.Unlock()
	}()

	select {
	case line := <-t.lines:
		return line, nil
	case <-ctx.Done():
		return "", context.Cause(ctx)
	}
}

// Unsupported is the recognizer used when no speech engine can run. Every
// session fails before it starts.
type Unsupported struct {
	Reason string
}

func (u Unsupported) Name() string { return "unsupported" }

func (u Unsupported) Available() error {
	if u.Reason == "" {
		return fmt.Errorf("speech recognition is not available")
	}
	return fmt.Errorf("speech recognition is not available: %s", u.Reason)
}

func (u Unsupported) Recognize(context.Context) (string, error) {
	return "", u.Available()
}
