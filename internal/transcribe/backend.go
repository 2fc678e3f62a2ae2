package transcribe

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnrecognized means the audio was processed but no speech came out
	// of it.
	ErrUnrecognized = errors.New("no speech recognized")

	// ErrServiceUnavailable means the backend could not be reached or
	// refused to serve the request.
	ErrServiceUnavailable = errors.New("transcription service unavailable")

	// ErrBackendNotReady means the backend exists but has not finished
	// initializing, e.g. the local model is still loading.
	ErrBackendNotReady = errors.New("transcription backend not ready")

	ErrUnsupportedBackend = errors.New("unsupported transcription backend")
)

// Segment is a timed span of recognized speech relative to the start of the
// transcribed audio. Backends that only return plain text produce none.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type Request struct {
	AudioPath string
	Language  string
}

type Result struct {
	Text     string
	Segments []Segment
}

// HasSegments reports whether the backend produced native timing data.
func (r Result) HasSegments() bool {
	return len(r.Segments) > 0
}

// Backend turns recorded audio into text.
type Backend interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (Result, error)
}
