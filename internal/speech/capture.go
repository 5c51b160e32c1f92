package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Compile-time interface check.
var _ domain.SpeechCapture = (*Capture)(nil)

// Recognizer is one speech-to-text engine. Recognize blocks until one
// utterance has been heard, ctx is done, or the engine fails.
type Recognizer interface {
	Name() string
	// Available returns nil when the engine can run on this system.
	Available() error
	Recognize(ctx context.Context) (string, error)
}

// RecognizeError carries the engine's own reason string alongside the
// underlying error.
type RecognizeError struct {
	Reason string
	Err    error
}

func (e *RecognizeError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *RecognizeError) Unwrap() error { return e.Err }

// CaptureOption configures the Capture adapter.
type CaptureOption func(*Capture)

// WithSessionTimeout bounds each capture session. Zero means no limit.
func WithSessionTimeout(d time.Duration) CaptureOption {
	return func(c *Capture) { c.timeout = d }
}

// WithOnSessionStart registers a hook run before each session begins
// recording (e.g. silencing the Mouth so the mic doesn't hear it).
func WithOnSessionStart(fn func()) CaptureOption {
	return func(c *Capture) { c.onStart = fn }
}

// Capture is the long-lived speech capture adapter. It wraps a Recognizer
// in single-shot sessions: one session at a time, each with its own event
// channel that carries started, exactly one result or error, then ended,
// and is then closed.
type Capture struct {
	rec     Recognizer
	log     *logger.Logger
	timeout time.Duration
	onStart func()

	mu     sync.Mutex
	cancel context.CancelCauseFunc // non-nil while a session is open
	seq    int
}

// NewCapture creates the capture adapter for the given engine.
func NewCapture(rec Recognizer, log *logger.Logger, opts ...CaptureOption) *Capture {
	c := &Capture{
		rec:     rec,
		log:     log,
		timeout: 20 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Engine returns the recognizer's name.
func (c *Capture) Engine() string { return c.rec.Name() }

// Active reports whether a session is open.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Listen opens a capture session. It fails fast with domain.ErrUnsupported
// when the engine cannot run, and with domain.ErrCaptureActive when a
// session is already open.
func (c *Capture) Listen(ctx context.Context) (<-chan domain.CaptureEvent, error) {
	if err := c.rec.Available(); err != nil {
		c.log.Warn("capture: %s unavailable: %v", c.rec.Name(), err)
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrUnsupported, c.rec.Name(), err)
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return nil, domain.ErrCaptureActive
	}
	sctx, cancel := context.WithCancelCause(ctx)
	c.cancel = cancel
	c.seq++
	id := c.seq
	c.mu.Unlock()

	// Room for every event of the session, so it never blocks on a slow
	// reader.
	events := make(chan domain.CaptureEvent, 3)
	go c.run(sctx, id, events)
	return events, nil
}

// Stop cancels the open session, if any. The session still ends normally,
// with an "aborted" error event.
func (c *Capture) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel(domain.ErrCaptureAborted)
		c.log.Debug("capture: stop requested")
	}
}

// run drives one session from start to close.
func (c *Capture) run(ctx context.Context, id int, events chan<- domain.CaptureEvent) {
	defer close(events)

	if c.onStart != nil {
		c.onStart()
	}

	rctx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.log.Info("capture: session %d started (engine=%s, timeout=%s)", id, c.rec.Name(), c.timeout)
	events <- domain.CaptureEvent{Kind: domain.CaptureStarted}

	start := time.Now()
	text, err := c.rec.Recognize(rctx)
	text = strings.TrimSpace(text)

	outcome := c.outcome(rctx, text, err)

	// Release the session before announcing the end, so a reader that
	// reacts to CaptureEnded can open the next one straight away.
	c.mu.Lock()
	c.cancel = nil
	c.mu.Unlock()

	if outcome.Kind == domain.CaptureResult {
		c.log.Info("capture: session %d heard %q in %s", id, outcome.Text, time.Since(start).Round(time.Millisecond))
	} else {
		c.log.Warn("capture: session %d failed: %s (%v)", id, outcome.Reason, outcome.Err)
	}

	events <- outcome
	events <- domain.CaptureEvent{Kind: domain.CaptureEnded}
}

// outcome maps what the recognizer returned to the single result or
// error event of the session.
func (c *Capture) outcome(ctx context.Context, text string, err error) domain.CaptureEvent {
	if err == nil && text != "" {
		return domain.CaptureEvent{Kind: domain.CaptureResult, Text: text}
	}

	fail := func(reason string, cause error) domain.CaptureEvent {
		return domain.CaptureEvent{Kind: domain.CaptureError, Reason: reason, Err: cause}
	}

	switch {
	case errors.Is(context.Cause(ctx), domain.ErrCaptureAborted):
		return fail(domain.ReasonAborted, domain.ErrCaptureAborted)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fail(domain.ReasonTimeout, fmt.Errorf("capture: %w", domain.ErrTimeout))
	case ctx.Err() != nil:
		return fail(domain.ReasonAborted, ctx.Err())
	case err == nil:
		return fail(domain.ReasonNoSpeech, domain.ErrNoSpeech)
	case errors.Is(err, domain.ErrUnsupported):
		return fail(domain.ReasonUnsupported, err)
	}

	var rerr *RecognizeError
	if errors.As(err, &rerr) {
		return fail(rerr.Reason, fmt.Errorf("%w: %w", domain.ErrRecognition, err))
	}
	return fail(err.Error(), fmt.Errorf("%w: %w", domain.ErrRecognition, err))
}
