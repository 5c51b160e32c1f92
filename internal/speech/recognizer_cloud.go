package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Compile-time interface check.
var _ Recognizer = (*CloudRecognizer)(nil)

// DefaultTranscribeURL is OpenAI's transcription endpoint.
const DefaultTranscribeURL = "https://api.openai.com/v1/audio/transcriptions"

// Microphone records one utterance as a WAV file.
type Microphone interface {
	Available() error
	Record(ctx context.Context) ([]byte, error)
}

// ── Transcriber ──────────────────────────────────────────────────

// TranscriberOption configures the Transcriber.
type TranscriberOption func(*Transcriber)

// WithTranscribeURL overrides the transcription endpoint.
func WithTranscribeURL(url string) TranscriberOption {
	return func(t *Transcriber) { t.url = url }
}

// WithTranscribeModel sets the model name sent with each request.
func WithTranscribeModel(model string) TranscriberOption {
	return func(t *Transcriber) { t.model = model }
}

// WithLanguage sets the recognition language hint.
func WithLanguage(lang string) TranscriberOption {
	return func(t *Transcriber) { t.language = lang }
}

// Transcriber sends recorded audio to a hosted speech-to-text API.
type Transcriber struct {
	apiKey   string
	url      string
	model    string
	language string
	http     *http.Client
	log      *logger.Logger
}

// NewTranscriber creates a transcription client.
func NewTranscriber(apiKey string, log *logger.Logger, opts ...TranscriberOption) *Transcriber {
	t := &Transcriber{
		apiKey:   apiKey,
		url:      DefaultTranscribeURL,
		model:    "whisper-1",
		language: DefaultLanguage,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe uploads a WAV file and returns the recognized text.
func (t *Transcriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return "", fmt.Errorf("transcribe: form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("transcribe: write audio: %w", err)
	}
	if err := writer.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("transcribe: model field: %w", err)
	}
	if err := writer.WriteField("language", t.language); err != nil {
		return "", fmt.Errorf("transcribe: language field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("transcribe: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, body)
	if err != nil {
		return "", fmt.Errorf("transcribe: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	t.log.Debug("transcribe: POST %s (%d bytes of audio)", t.url, len(wav))

	resp, err := t.http.Do(req)
	if err != nil {
		return "", &RecognizeError{Reason: "network", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &RecognizeError{
			Reason: "service-not-allowed",
			Err:    fmt.Errorf("transcription API error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		}
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("transcribe: decode response: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}

// ── Recognizer ───────────────────────────────────────────────────

// CloudRecognizer records with a Microphone and transcribes through a
// hosted API.
type CloudRecognizer struct {
	mic Microphone
	tr  *Transcriber
	key string
	log *logger.Logger
}

// NewCloudRecognizer pairs a microphone with a transcription client.
func NewCloudRecognizer(mic Microphone, tr *Transcriber, log *logger.Logger) *CloudRecognizer {
	return &CloudRecognizer{mic: mic, tr: tr, key: tr.apiKey, log: log}
}

func (c *CloudRecognizer) Name() string { return "cloud" }

// Available requires both a working microphone and an API key.
func (c *CloudRecognizer) Available() error {
	if c.key == "" {
		return fmt.Errorf("no transcription API key configured")
	}
	return c.mic.Available()
}

// Recognize records one utterance and transcribes it.
func (c *CloudRecognizer) Recognize(ctx context.Context) (string, error) {
	wav, err := c.mic.Record(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", context.Cause(ctx)
		}
		return "", &RecognizeError{Reason: "audio-capture", Err: err}
	}
	if len(wav) <= wavHeaderSize {
		return "", nil
	}

	text, err := c.tr.Transcribe(ctx, wav)
	if err != nil {
		if ctx.Err() != nil {
			return "", context.Cause(ctx)
		}
		return "", err
	}
	return cleanTranscription(text), nil
}

// ── WAV encoding ─────────────────────────────────────────────────

const wavHeaderSize = 44

// encodeWAV wraps mono 16-bit samples in a RIFF header.
func encodeWAV(samples []int16, sampleRate int) []byte {
	var buf bytes.Buffer
	dataSize := len(samples) * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

// isSilent reports whether every sample is within threshold of zero.
func isSilent(samples []int16, threshold int16) bool {
	for _, s := range samples {
		if s > threshold || s < -threshold {
			return false
		}
	}
	return true
}
