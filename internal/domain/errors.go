package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound       = errors.New("not found")
	ErrNotImplemented = errors.New("not implemented")

	// Capture.
	ErrUnsupported    = errors.New("speech recognition not supported")
	ErrRecognition    = errors.New("speech recognition failed")
	ErrNoSpeech       = errors.New("no speech detected")
	ErrCaptureActive  = errors.New("capture session already active")
	ErrCaptureAborted = errors.New("capture aborted")
	ErrTimeout        = errors.New("timed out")

	// Backend.
	ErrExtraction       = errors.New("context extraction failed")
	ErrRetrieval        = errors.New("recipe retrieval failed")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidNutrition = errors.New("invalid nutrition data")

	// Conversation.
	ErrTurnInProgress = errors.New("a turn is already in progress")
)
