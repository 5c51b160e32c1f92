package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Compile-time interface check.
var _ Recognizer = (*WhisperRecognizer)(nil)

// annotation matches whisper's environmental tags like "(keyboard
// clicking)", "[laughter]" or "[BLANK_AUDIO]".
var annotation = regexp.MustCompile(`[\(\[][a-zA-Z][a-zA-Z_\s]*[\)\]]`)

// timestampPrefix matches "[00:00:00.000 --> 00:00:05.000]".
var timestampPrefix = regexp.MustCompile(`^\[[0-9:.\s\->]+\]\s*`)

// hallucinations are whole transcriptions whisper produces from silence.
var hallucinations = map[string]bool{
	"...":                     true,
	"you":                     true,
	"thank you.":              true,
	"thanks for watching!":    true,
	"thank you for watching.": true,
	"bye.":                    true,
	"bye!":                    true,
	"the end.":                true,
}

// WhisperOption configures the WhisperRecognizer.
type WhisperOption func(*WhisperRecognizer)

// WithChunkLength sets how long each recorded chunk lasts.
func WithChunkLength(d time.Duration) WhisperOption {
	return func(w *WhisperRecognizer) { w.chunk = d }
}

// WithTempDir sets the directory for temporary WAV files.
func WithTempDir(dir string) WhisperOption {
	return func(w *WhisperRecognizer) { w.tempDir = dir }
}

// WithQuietWhile makes the recognizer hold off recording while busy
// reports true (e.g. the Mouth is still talking).
func WithQuietWhile(busy func() bool) WhisperOption {
	return func(w *WhisperRecognizer) { w.busy = busy }
}

// WhisperRecognizer records the microphone in short chunks through a
// local whisper.cpp build and joins them into one utterance. The
// utterance ends once the speaker goes quiet.
type WhisperRecognizer struct {
	bin     string
	model   string
	tempDir string
	chunk   time.Duration
	busy    func() bool
	log     *logger.Logger

	// record is swapped out in tests.
	record func(ctx context.Context, d time.Duration) (string, error)
}

// NewWhisperRecognizer creates a recognizer for the whisper-cli binary
// at bin using the GGML model at model.
func NewWhisperRecognizer(bin, model string, log *logger.Logger, opts ...WhisperOption) *WhisperRecognizer {
	w := &WhisperRecognizer{
		bin:     bin,
		model:   model,
		tempDir: ".recipevoice-stt",
		chunk:   2 * time.Second,
		log:     log,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.record = w.recordChunk
	return w
}

func (w *WhisperRecognizer) Name() string { return "whisper" }

// Available checks the binary and model are both present.
func (w *WhisperRecognizer) Available() error {
	if _, err := exec.LookPath(w.bin); err != nil {
		return fmt.Errorf("whisper binary %q not found: %w", w.bin, err)
	}
	if _, err := os.Stat(w.model); err != nil {
		return fmt.Errorf("whisper model %q: %w", w.model, err)
	}
	return nil
}

// Recognize records until the speaker pauses after talking, or until ctx
// is done. A session that times out mid-sentence keeps what was heard.
func (w *WhisperRecognizer) Recognize(ctx context.Context) (string, error) {
	// Before the user starts talking, allow more silence. Once they've
	// started, a shorter gap means they're done.
	const graceEmpty = 4
	const postSpeechEmpty = 2

	w.waitQuiet(ctx)

	var parts []string
	empty := 0
	for {
		if err := ctx.Err(); err != nil {
			if len(parts) > 0 && errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return "", context.Cause(ctx)
		}

		raw, err := w.record(ctx, w.chunk)
		if err != nil {
			return "", &RecognizeError{Reason: "audio-capture", Err: err}
		}

		text := cleanTranscription(raw)
		if text == "" {
			empty++
			limit := graceEmpty
			if len(parts) > 0 {
				limit = postSpeechEmpty
			}
			if empty >= limit {
				w.log.Debug("whisper: silence after %d chunks (heard_speech=%v)", empty, len(parts) > 0)
				break
			}
			continue
		}

		empty = 0
		w.log.Debug("whisper: chunk %q", text)
		parts = append(parts, text)
	}

	return strings.Join(parts, " "), nil
}

// waitQuiet blocks while the busy hook reports true.
func (w *WhisperRecognizer) waitQuiet(ctx context.Context) {
	if w.busy == nil {
		return
	}
	for w.busy() {
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return
		}
	}
}

// recordChunk does one recording cycle of duration d and returns the
// raw transcription.
func (w *WhisperRecognizer) recordChunk(ctx context.Context, d time.Duration) (string, error) {
	var result string
	var wg sync.WaitGroup
	wg.Add(1)

	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := w.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(w.bin, w.model, w.tempDir, "wav", callback, verbose)
	if err != nil {
		return "", fmt.Errorf("transcriber init: %w", err)
	}
	if err := t.Start(); err != nil {
		return "", fmt.Errorf("recording start: %w", err)
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}

	t.Stop()
	wg.Wait()
	return result, nil
}

// cleanTranscription flattens newlines and strips whisper artifacts:
// timestamps, bracketed annotations and the phrases it hallucinates
// from silence.
func cleanTranscription(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = timestampPrefix.ReplaceAllString(s, "")
	s = annotation.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	if hallucinations[strings.ToLower(s)] {
		return ""
	}
	return s
}
