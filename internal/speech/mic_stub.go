//go:build !portaudio

package speech

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// stubMic stands in when the binary was built without portaudio.
type stubMic struct{}

// NewMicrophone returns a microphone that is never available.
func NewMicrophone(sampleRate int, log *logger.Logger) Microphone {
	return stubMic{}
}

func (stubMic) Available() error {
	return fmt.Errorf("microphone not available: rebuild with -tags portaudio")
}

func (stubMic) Record(context.Context) ([]byte, error) {
	return nil, fmt.Errorf("microphone not available")
}
