// Package engine implements the conversation state machine: capture an
// utterance, turn it into search context, ask clarifying questions while
// the context is incomplete, then fetch and announce recipes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Option configures the controller.
type Option func(*Controller)

// WithObserver registers a callback that receives a copy of the state
// after every change. Observers must not call back into the controller's
// mutating methods.
func WithObserver(fn func(domain.State)) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, fn)
	}
}

// WithMaxClarifications overrides the clarification cap.
func WithMaxClarifications(n int) Option {
	return func(c *Controller) { c.maxClarifications = n }
}

// WithSessionID fixes the conversation ID instead of generating one.
func WithSessionID(id string) Option {
	return func(c *Controller) { c.state.SessionID = id }
}

// Controller owns the conversation State. Every change goes through one
// of its transition methods, under its mutex. It depends only on
// interfaces and is fully testable with mocks.
type Controller struct {
	capture   domain.SpeechCapture
	out       domain.SpeechOutput
	extractor domain.ContextExtractor
	retriever domain.RecipeRetriever
	log       *logger.Logger

	maxClarifications int
	observers         []func(domain.State)

	pubMu sync.Mutex // serializes observer delivery in update order

	mu         sync.Mutex
	state      domain.State
	turning    bool
	gen        int // bumped by Reset; stale turns drop their results
	cancelTurn context.CancelFunc
	session    chan struct{} // closed once the open capture session has ended
	lastSpoken string
}

// sessionDrainTimeout bounds how long Reset waits for a cancelled capture
// session to close.
const sessionDrainTimeout = 5 * time.Second

// New creates a conversation controller.
func New(capture domain.SpeechCapture, out domain.SpeechOutput, extractor domain.ContextExtractor, retriever domain.RecipeRetriever, log *logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		capture:           capture,
		out:               out,
		extractor:         extractor,
		retriever:         retriever,
		log:               log,
		maxClarifications: domain.MaxClarifications,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.state.SessionID == "" {
		c.state.SessionID = uuid.New().String()
	}
	c.state.MaxClarifications = c.maxClarifications
	c.state.UpdatedAt = time.Now()
	return c
}

// SessionID returns the conversation ID.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.SessionID
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Copy()
}

// ── Turns ────────────────────────────────────────────────────────

// Turn runs one conversational turn: listen for an utterance, extract
// context from it, then either ask a clarifying question or fetch
// recipes. It returns once the turn has settled.
//
// A turn started while clarifying answers the open question and carries
// the context forward. A turn started from Idle or Presenting is a new
// query.
func (c *Controller) Turn(ctx context.Context) error {
	c.mu.Lock()
	disabled := c.state.CaptureDisabled
	c.mu.Unlock()
	if disabled {
		return fmt.Errorf("%w: speech capture is disabled", domain.ErrUnsupported)
	}

	t, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer c.end(t)

	release := c.trackSession()
	events, err := c.capture.Listen(t.ctx)
	if err != nil {
		release()
		return c.listenFailed(t, err)
	}

	c.update(t, func(s *domain.State) {
		s.Phase = domain.PhaseListening
		s.Listening = true
	})
	c.log.Info("engine: listening (from %s)", t.from)

	text, outcome := awaitUtterance(events)
	release()

	// Cleared on every exit path of the session.
	c.update(t, func(s *domain.State) { s.Listening = false })

	if outcome != nil {
		c.log.Warn("engine: capture failed: %s", outcome.Reason)
		c.update(t, func(s *domain.State) {
			s.Phase = t.from
			s.Err = "Speech recognition error: " + outcome.Reason
		})
		if outcome.Err != nil {
			return outcome.Err
		}
		return domain.ErrRecognition
	}

	return c.process(t, text)
}

// Submit runs a turn with typed text in place of a capture session.
func (c *Controller) Submit(ctx context.Context, text string) error {
	t, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer c.end(t)
	return c.process(t, text)
}

// Toggle stops the capture session when one is open; otherwise it starts
// a new turn in the background.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	listening, turning, disabled := c.state.Listening, c.turning, c.state.CaptureDisabled
	c.mu.Unlock()

	switch {
	case listening:
		c.Stop()
		return nil
	case disabled:
		return domain.ErrUnsupported
	case turning:
		return domain.ErrTurnInProgress
	}

	go func() {
		if err := c.Turn(ctx); err != nil {
			c.log.Debug("engine: turn ended with error: %v", err)
		}
	}()
	return nil
}

// Stop cancels the open capture session, if any. The turn ends with an
// "aborted" recognition error and the phase reverts.
func (c *Controller) Stop() {
	c.capture.Stop()
}

// Reset clears the conversation and returns to Idle. A turn still in
// flight is cancelled or, past capture, has its results discarded.
func (c *Controller) Reset() {
	c.capture.Stop()

	// The cancelled session still holds the capture until it closes. Wait
	// for that so a turn started right after Reset can listen.
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session != nil {
		select {
		case <-session:
		case <-time.After(sessionDrainTimeout):
			c.log.Warn("engine: capture session still open after reset")
		}
	}

	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	c.gen++
	c.turning = false
	if c.cancelTurn != nil {
		c.cancelTurn()
		c.cancelTurn = nil
	}
	id, disabled := c.state.SessionID, c.state.CaptureDisabled
	c.state = domain.State{
		SessionID:         id,
		Phase:             domain.PhaseIdle,
		MaxClarifications: c.maxClarifications,
		CaptureDisabled:   disabled,
		UpdatedAt:         time.Now(),
	}
	snap := c.state.Copy()
	c.mu.Unlock()

	c.log.Info("engine: conversation reset")
	c.publish(snap)
}

// Repeat speaks the last line again.
func (c *Controller) Repeat() {
	c.mu.Lock()
	last := c.lastSpoken
	c.mu.Unlock()

	if last == "" {
		c.out.Speak(LineNothingToRepeat())
		return
	}
	c.out.Speak(last)
}

// ── Turn internals ───────────────────────────────────────────────

// turn is the bookkeeping for one in-flight turn.
type turn struct {
	ctx    context.Context
	cancel context.CancelFunc
	gen    int
	from   domain.Phase
}

// begin claims the turn slot and clears the previous error.
func (c *Controller) begin(ctx context.Context) (turn, error) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	switch {
	case c.state.Listening:
		c.mu.Unlock()
		return turn{}, domain.ErrCaptureActive
	case c.turning:
		c.mu.Unlock()
		return turn{}, domain.ErrTurnInProgress
	}
	c.turning = true
	tctx, cancel := context.WithCancel(ctx)
	t := turn{ctx: tctx, cancel: cancel, gen: c.gen, from: c.state.Phase}
	c.cancelTurn = cancel
	c.state.Busy = true
	c.state.Err = ""
	c.state.UpdatedAt = time.Now()
	snap := c.state.Copy()
	c.mu.Unlock()

	c.publish(snap)
	return t, nil
}

// end releases the turn slot.
func (c *Controller) end(t turn) {
	c.update(t, func(s *domain.State) { s.Busy = false })
	c.mu.Lock()
	if c.gen == t.gen {
		c.turning = false
		c.cancelTurn = nil
	}
	c.mu.Unlock()
	t.cancel()
}

// trackSession marks a capture session as open. The returned func marks
// it closed and is safe to call more than once.
func (c *Controller) trackSession() func() {
	done := make(chan struct{})
	c.mu.Lock()
	c.session = done
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			c.mu.Lock()
			if c.session == done {
				c.session = nil
			}
			c.mu.Unlock()
		})
	}
}

// listenFailed handles a session that could not even start.
func (c *Controller) listenFailed(t turn, err error) error {
	if !errors.Is(err, domain.ErrUnsupported) {
		c.update(t, func(s *domain.State) { s.Err = "Speech recognition error: " + err.Error() })
		return err
	}

	first := false
	c.update(t, func(s *domain.State) {
		if !s.CaptureDisabled {
			first = true
			s.CaptureDisabled = true
			s.Err = "Speech recognition error: " + domain.ReasonUnsupported
		}
	})
	if first {
		c.log.Warn("engine: speech capture disabled: %v", err)
		c.say(LineCaptureUnsupported())
	}
	return err
}

// process routes a transcript through extraction, then clarifies or
// retrieves.
func (c *Controller) process(t turn, text string) error {
	var previous *domain.Context
	count := 0

	c.mu.Lock()
	if t.from == domain.PhaseClarifying {
		previous = c.state.Context.Clone()
		count = c.state.Clarifications
	}
	c.mu.Unlock()

	c.update(t, func(s *domain.State) { s.Transcript = text })
	c.log.Info("engine: heard %q (clarifications=%d)", text, count)

	rc, err := c.extractor.ExtractContext(t.ctx, text, previous, count)
	if err == nil && rc == nil {
		err = fmt.Errorf("%w: empty response", domain.ErrExtraction)
	}
	if err != nil {
		c.log.Error("engine: extraction failed: %v", err)
		c.update(t, func(s *domain.State) {
			s.Phase = t.from
			s.Err = fmt.Sprintf("Error understanding your request: %v", err)
		})
		return err
	}

	if q, ok := rc.FirstQuestion(); ok && count < c.maxClarifications {
		applied := c.update(t, func(s *domain.State) {
			s.Context = rc.Clone()
			s.Phase = domain.PhaseClarifying
			s.Question = q
			s.Clarifications = count + 1
		})
		if applied {
			c.log.Info("engine: clarifying (%d of %d): %q", count+1, c.maxClarifications, q)
			c.say(q)
		}
		return nil
	}

	if _, ok := rc.FirstQuestion(); ok {
		c.log.Info("engine: clarification cap reached, searching anyway")
	}

	c.update(t, func(s *domain.State) {
		s.Context = rc.Clone()
		s.Question = ""
		s.Clarifications = count
	})
	c.retrieve(t, rc)
	return nil
}

// retrieve fetches recipes for rc. Failures end up in the state as an
// empty list plus an error; nothing is returned.
func (c *Controller) retrieve(t turn, rc *domain.Context) {
	recipes, err := c.retriever.GetRecipes(t.ctx, rc)
	if err != nil {
		c.log.Error("engine: retrieval failed: %v", err)
		c.update(t, func(s *domain.State) {
			s.Phase = domain.PhasePresenting
			s.Recipes = []domain.Recipe{}
			s.Searched = true
			s.Err = fmt.Sprintf("Error fetching recipes: %v", err)
		})
		return
	}
	if recipes == nil {
		recipes = []domain.Recipe{}
	}

	applied := c.update(t, func(s *domain.State) {
		s.Phase = domain.PhasePresenting
		s.Recipes = recipes
		s.Searched = true
	})
	c.log.Info("engine: presenting %d recipes", len(recipes))
	if applied && len(recipes) > 0 {
		c.say(LineRecipesFound(len(recipes)))
	}
}

// ── State plumbing ───────────────────────────────────────────────

// update applies fn to the state unless a Reset happened since the turn
// began. It reports whether fn was applied.
func (c *Controller) update(t turn, fn func(*domain.State)) bool {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	if c.gen != t.gen {
		c.mu.Unlock()
		return false
	}
	fn(&c.state)
	c.state.UpdatedAt = time.Now()
	snap := c.state.Copy()
	c.mu.Unlock()

	c.publish(snap)
	return true
}

// publish hands a state copy to every observer. Callers hold pubMu.
func (c *Controller) publish(s domain.State) {
	for _, fn := range c.observers {
		fn(s)
	}
}

// say speaks text and remembers it for Repeat.
func (c *Controller) say(text string) {
	c.mu.Lock()
	c.lastSpoken = text
	c.mu.Unlock()
	c.out.Speak(text)
}

// awaitUtterance reads a session channel to its close. It returns the
// transcript, or the error event when the session failed.
func awaitUtterance(events <-chan domain.CaptureEvent) (string, *domain.CaptureEvent) {
	var text string
	var failure *domain.CaptureEvent
	got := false

	for ev := range events {
		switch ev.Kind {
		case domain.CaptureResult:
			if !got {
				text, got = ev.Text, true
			}
		case domain.CaptureError:
			if !got {
				e := ev
				failure, got = &e, true
			}
		}
	}

	if !got {
		return "", &domain.CaptureEvent{Kind: domain.CaptureError, Reason: domain.ReasonNoSpeech, Err: domain.ErrNoSpeech}
	}
	return text, failure
}
