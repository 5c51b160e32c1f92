package speech

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

func TestCleanTranscription(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  vegan curry\n please ", "vegan curry please"},
		{"[BLANK_AUDIO]", ""},
		{"(keyboard clicking) something spicy", "something spicy"},
		{"[00:00:00.000 --> 00:00:02.000]  thai food", "thai food"},
		{"Thank you.", ""},
		{"you", ""},
		{"thank you, something creamy", "thank you, something creamy"},
		{"[laughter] [Music]", ""},
	}
	for _, tt := range tests {
		if got := cleanTranscription(tt.in); got != tt.want {
			t.Errorf("cleanTranscription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// scriptedRecorder replays chunk transcriptions in order, then silence.
func scriptedRecorder(chunks ...string) func(context.Context, time.Duration) (string, error) {
	i := 0
	return func(ctx context.Context, d time.Duration) (string, error) {
		if i >= len(chunks) {
			return "", nil
		}
		i++
		return chunks[i-1], nil
	}
}

func newTestWhisper(record func(context.Context, time.Duration) (string, error)) *WhisperRecognizer {
	w := NewWhisperRecognizer("whisper-cli", "model.bin", logger.New(logger.LevelOff, nil))
	w.record = record
	return w
}

func TestWhisperJoinsChunksUntilSilence(t *testing.T) {
	w := newTestWhisper(scriptedRecorder("", "find me", "[BLANK_AUDIO]", "healthy dinners", "", "", "ignored"))

	text, err := w.Recognize(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "find me healthy dinners" {
		t.Fatalf("text = %q", text)
	}
}

func TestWhisperSilenceOnly(t *testing.T) {
	w := newTestWhisper(scriptedRecorder())
	text, err := w.Recognize(context.Background())
	if err != nil || text != "" {
		t.Fatalf("expected empty result, got %q, %v", text, err)
	}
}

func TestWhisperRecordFailure(t *testing.T) {
	w := newTestWhisper(func(context.Context, time.Duration) (string, error) {
		return "", errors.New("arecord: no device")
	})
	_, err := w.Recognize(context.Background())
	var rerr *RecognizeError
	if !errors.As(err, &rerr) || rerr.Reason != "audio-capture" {
		t.Fatalf("expected audio-capture error, got %v", err)
	}
}

func TestWhisperAbort(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(domain.ErrCaptureAborted)

	w := newTestWhisper(scriptedRecorder("hello"))
	if _, err := w.Recognize(ctx); !errors.Is(err, domain.ErrCaptureAborted) {
		t.Fatalf("expected abort, got %v", err)
	}
}

func TestWhisperUnavailable(t *testing.T) {
	w := NewWhisperRecognizer("definitely-not-a-whisper-binary", "missing.bin", logger.New(logger.LevelOff, nil))
	if err := w.Available(); err == nil {
		t.Fatal("expected unavailable")
	}
}

func TestTypedRecognizer(t *testing.T) {
	tr := NewTypedRecognizer()
	if tr.Feed("too early") {
		t.Fatal("Feed should fail with no session waiting")
	}

	c := newTestCapture(tr)
	ch, err := c.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !tr.Waiting() {
		if time.Now().After(deadline) {
			t.Fatal("recognizer never started waiting")
		}
		time.Sleep(time.Millisecond)
	}
	if !tr.Feed("something creamy") {
		t.Fatal("Feed should succeed while waiting")
	}

	if ev := outcomeOf(t, collect(t, ch)); ev.Text != "something creamy" {
		t.Fatalf("unexpected outcome: %+v", ev)
	}
	if tr.Waiting() {
		t.Error("should stop waiting once the session ends")
	}
}

// fakeMic returns canned audio.
type fakeMic struct {
	wav []byte
	err error
}

func (m fakeMic) Available() error                       { return nil }
func (m fakeMic) Record(context.Context) ([]byte, error) { return m.wav, m.err }

func TestCloudRecognizer(t *testing.T) {
	var gotAuth, gotModel, gotLang string
	var gotAudio []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("bad multipart body: %v", err)
			return
		}
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language")
		f, _, err := r.FormFile("file")
		if err == nil {
			gotAudio, _ = io.ReadAll(f)
		}
		io.WriteString(w, `{"text":" Something spicy and Thai. "}`)
	}))
	defer srv.Close()

	log := logger.New(logger.LevelOff, nil)
	wav := encodeWAV([]int16{1, 2, 3, 4}, 16000)
	tr := NewTranscriber("sk-test", log, WithTranscribeURL(srv.URL))
	rec := NewCloudRecognizer(fakeMic{wav: wav}, tr, log)

	if err := rec.Available(); err != nil {
		t.Fatalf("Available: %v", err)
	}
	text, err := rec.Recognize(context.Background())
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if text != "Something spicy and Thai." {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer sk-test" || gotModel != "whisper-1" || gotLang != "en" {
		t.Errorf("request: auth=%q model=%q lang=%q", gotAuth, gotModel, gotLang)
	}
	if len(gotAudio) != len(wav) {
		t.Errorf("uploaded %d bytes, want %d", len(gotAudio), len(wav))
	}
}

func TestCloudRecognizerFailures(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)

	t.Run("no key", func(t *testing.T) {
		rec := NewCloudRecognizer(fakeMic{}, NewTranscriber("", log), log)
		if err := rec.Available(); err == nil {
			t.Fatal("expected unavailable without a key")
		}
	})

	t.Run("api error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		rec := NewCloudRecognizer(fakeMic{wav: encodeWAV([]int16{9}, 16000)}, NewTranscriber("k", log, WithTranscribeURL(srv.URL)), log)
		_, err := rec.Recognize(context.Background())
		var rerr *RecognizeError
		if !errors.As(err, &rerr) || rerr.Reason != "service-not-allowed" {
			t.Fatalf("expected service-not-allowed, got %v", err)
		}
		if !strings.Contains(err.Error(), "401") {
			t.Errorf("error should carry status: %v", err)
		}
	})

	t.Run("empty recording", func(t *testing.T) {
		rec := NewCloudRecognizer(fakeMic{wav: encodeWAV(nil, 16000)}, NewTranscriber("k", log), log)
		text, err := rec.Recognize(context.Background())
		if err != nil || text != "" {
			t.Fatalf("expected silence, got %q, %v", text, err)
		}
	})

	t.Run("mic failure", func(t *testing.T) {
		rec := NewCloudRecognizer(fakeMic{err: errors.New("device gone")}, NewTranscriber("k", log), log)
		_, err := rec.Recognize(context.Background())
		var rerr *RecognizeError
		if !errors.As(err, &rerr) || rerr.Reason != "audio-capture" {
			t.Fatalf("expected audio-capture, got %v", err)
		}
	})
}

func TestWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768}
	wav := encodeWAV(samples, 24000)
	if len(wav) != wavHeaderSize+len(samples)*2 {
		t.Fatalf("wav length = %d", len(wav))
	}

	pcm, err := extractPCM(wav)
	if err != nil {
		t.Fatalf("extractPCM: %v", err)
	}
	if len(pcm) != len(samples)*2 {
		t.Fatalf("pcm length = %d", len(pcm))
	}

	if _, err := extractPCM([]byte("not a wav file at all, definitely not one, nope")); err == nil {
		t.Error("expected error for non-WAV data")
	}
}

func TestIsSilent(t *testing.T) {
	if !isSilent([]int16{0, 10, -10}, 500) {
		t.Error("quiet frame should be silent")
	}
	if isSilent([]int16{0, 900}, 500) {
		t.Error("loud frame should not be silent")
	}
}
