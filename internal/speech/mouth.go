package speech

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Compile-time interface check.
var _ domain.SpeechOutput = (*Mouth)(nil)

// Synthesizer turns text into playable WAV audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Voice() string
}

// AudioSink plays WAV audio. Stop cuts off whatever is playing.
type AudioSink interface {
	Play(wav []byte) error
	Stop()
}

// MouthOption configures the Mouth.
type MouthOption func(*Mouth)

// WithChunkSize sets the approximate max character count per TTS chunk.
// Longer text is split at sentence boundaries and synthesized in
// parallel. Zero disables splitting.
func WithChunkSize(n int) MouthOption {
	return func(m *Mouth) { m.chunkSize = n }
}

// WithCacheDir sets the directory for persistent audio caching. Empty
// keeps the cache in memory only.
func WithCacheDir(dir string) MouthOption {
	return func(m *Mouth) { m.cacheDir = dir }
}

// WithDiskWrite controls whether new cache entries are written to disk.
// Existing on-disk entries are read either way.
func WithDiskWrite(enabled bool) MouthOption {
	return func(m *Mouth) { m.diskWrite = enabled }
}

// Mouth serializes all speech output through one pipeline:
// queue -> chunk -> synthesize (parallel) -> play (sequential).
// Only one thing speaks at a time and higher priority goes first.
type Mouth struct {
	tts    Synthesizer
	player AudioSink
	log    *logger.Logger
	cache  *AudioCache

	chunkSize int
	cacheDir  string
	diskWrite bool

	mu          sync.Mutex
	queue       []SpeechRequest
	notify      chan struct{}
	speaking    bool
	interrupted bool // checked between chunks
	last        string
}

// NewMouth creates a speech dispatcher.
func NewMouth(tts Synthesizer, player AudioSink, log *logger.Logger, opts ...MouthOption) *Mouth {
	m := &Mouth{
		tts:       tts,
		player:    player,
		log:       log,
		notify:    make(chan struct{}, 1),
		chunkSize: 200,
		diskWrite: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cache = NewAudioCache(tts.Voice(), m.cacheDir, m.diskWrite, log)
	return m
}

// Speak queues text at normal priority.
func (m *Mouth) Speak(text string) {
	m.Say(text, PriorityNormal)
}

// Say queues text at the given priority. Non-blocking. Anything at
// PriorityNormal or above drops queued PriorityLow items.
func (m *Mouth) Say(text string, priority Priority) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	m.mu.Lock()
	if priority >= PriorityNormal {
		kept := m.queue[:0]
		for _, item := range m.queue {
			if item.Priority > PriorityLow {
				kept = append(kept, item)
			}
		}
		m.queue = kept
	}
	m.queue = append(m.queue, SpeechRequest{Text: text, Priority: priority, QueuedAt: time.Now()})
	n := len(m.queue)
	m.mu.Unlock()

	m.log.Debug("mouth: queued (priority=%d, queue_len=%d): %s", priority, n, truncate(text, 60))

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// IsSpeaking reports whether audio is being synthesized or played.
func (m *Mouth) IsSpeaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

// QueueLen returns the number of pending requests.
func (m *Mouth) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Busy reports whether anything is playing or waiting to play.
func (m *Mouth) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking || len(m.queue) > 0
}

// LastSpoken returns the most recent text that finished its turn in the
// pipeline.
func (m *Mouth) LastSpoken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Interrupt clears the queue and cuts off the current playback.
func (m *Mouth) Interrupt() {
	m.mu.Lock()
	m.queue = m.queue[:0]
	m.interrupted = true
	m.mu.Unlock()

	m.player.Stop()
	m.log.Debug("mouth: interrupted")
}

// Cache returns the audio cache.
func (m *Mouth) Cache() *AudioCache { return m.cache }

// Start runs the speech loop until ctx is cancelled. Non-blocking.
func (m *Mouth) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				m.log.Info("mouth stopped")
				return
			case <-m.notify:
				m.drain(ctx)
			}
		}
	}()
	m.log.Info("mouth started")
}

// drain speaks everything queued, highest priority first.
func (m *Mouth) drain(ctx context.Context) {
	for ctx.Err() == nil {
		m.mu.Lock()
		item, ok := m.dequeueLocked()
		m.interrupted = false
		m.speaking = ok
		m.mu.Unlock()
		if !ok {
			return
		}

		m.speak(ctx, item)

		m.mu.Lock()
		m.speaking = false
		m.last = item.Text
		m.mu.Unlock()
	}
}

// dequeueLocked pops the oldest of the highest priority items.
func (m *Mouth) dequeueLocked() (SpeechRequest, bool) {
	if len(m.queue) == 0 {
		return SpeechRequest{}, false
	}
	best := 0
	for i, item := range m.queue {
		if item.Priority > m.queue[best].Priority {
			best = i
		}
	}
	item := m.queue[best]
	m.queue = append(m.queue[:best], m.queue[best+1:]...)
	return item, true
}

// speak synthesizes every chunk of req in parallel and plays them in
// order.
func (m *Mouth) speak(ctx context.Context, req SpeechRequest) {
	m.log.Debug("mouth: speaking (priority=%d, waited=%s): %s",
		req.Priority, time.Since(req.QueuedAt).Round(time.Millisecond), truncate(req.Text, 60))

	chunks := m.splitChunks(req.Text)
	audio := make([][]byte, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			data, err := m.synthesize(ctx, text)
			if err != nil {
				m.log.Error("mouth: chunk %d synthesis failed: %v", i, err)
				return
			}
			audio[i] = data
		}(i, chunk)
	}
	wg.Wait()

	for i, data := range audio {
		if data == nil {
			continue
		}
		m.mu.Lock()
		abort := m.interrupted
		m.mu.Unlock()
		if abort || ctx.Err() != nil {
			return
		}
		if err := m.player.Play(data); err != nil {
			m.log.Error("mouth: chunk %d playback failed: %v", i, err)
		}
	}
}

// synthesize goes through the cache.
func (m *Mouth) synthesize(ctx context.Context, text string) ([]byte, error) {
	if audio, ok := m.cache.Get(text); ok {
		return audio, nil
	}
	audio, err := m.tts.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	m.cache.Put(text, audio)
	return audio, nil
}

// Prefetch synthesizes texts in the background so they play instantly
// when spoken later.
func (m *Mouth) Prefetch(ctx context.Context, texts ...string) {
	for _, text := range texts {
		for _, chunk := range m.splitChunks(strings.TrimSpace(text)) {
			if chunk == "" || m.cache.Has(chunk) {
				continue
			}
			go func(t string) {
				if _, err := m.synthesize(ctx, t); err != nil {
					m.log.Debug("prefetch: %v", err)
				}
			}(chunk)
		}
	}
}

// splitChunks groups sentences into chunks of about chunkSize chars.
func (m *Mouth) splitChunks(text string) []string {
	if m.chunkSize <= 0 || len(text) <= m.chunkSize {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}
	for _, s := range splitSentences(text) {
		if cur.Len() > 0 && cur.Len()+len(s) > m.chunkSize {
			flush()
		}
		cur.WriteString(s)
	}
	flush()
	return chunks
}

// splitSentences splits at . ! ? keeping the punctuation and trailing
// space with the sentence.
func splitSentences(text string) []string {
	var out []string
	var cur strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		cur.WriteRune(runes[i])
		if r := runes[i]; r == '.' || r == '!' || r == '?' {
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
				cur.WriteRune(runes[i])
			}
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
