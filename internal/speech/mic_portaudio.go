//go:build portaudio

package speech

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// PortAudioMic records from the default input device until the speaker
// pauses.
type PortAudioMic struct {
	sampleRate int
	log        *logger.Logger

	once    sync.Once
	initErr error
}

// NewMicrophone opens nothing until the first recording.
func NewMicrophone(sampleRate int, log *logger.Logger) Microphone {
	return &PortAudioMic{sampleRate: sampleRate, log: log}
}

func (m *PortAudioMic) Available() error {
	m.once.Do(func() {
		if err := portaudio.Initialize(); err != nil {
			m.initErr = fmt.Errorf("initializing portaudio: %w", err)
		}
	})
	return m.initErr
}

// Record captures one utterance. Silence before the first sound is
// waited out; a second of silence after it ends the recording.
func (m *PortAudioMic) Record(ctx context.Context) ([]byte, error) {
	if err := m.Available(); err != nil {
		return nil, err
	}

	const framesPerBuffer = 1024
	const threshold = int16(500)
	frame := make([]int16, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, frame)
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("starting stream: %w", err)
	}
	defer stream.Stop()

	start := time.Now()
	samples := make([]int16, 0, m.sampleRate*5)
	heard := false
	silent := 0
	maxSilent := m.sampleRate
	maxSamples := m.sampleRate * 15

	for ctx.Err() == nil {
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("reading from stream: %w", err)
		}

		if isSilent(frame, threshold) {
			silent += len(frame)
		} else {
			heard = true
			silent = 0
		}
		if heard {
			samples = append(samples, frame...)
		}

		if heard && silent > maxSilent {
			break
		}
		if len(samples) > maxSamples {
			break
		}
	}

	if !heard {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	m.log.Debug("mic: recorded %d samples in %s", len(samples), time.Since(start).Round(time.Millisecond))
	return encodeWAV(samples, m.sampleRate), nil
}
