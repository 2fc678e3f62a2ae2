package whisper

import (
	"context"
	"time"
)

// Segment is a single timed span of recognized speech, with offsets relative
// to the start of the transcribed audio.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type TranscriptionRequest struct {
	AudioPath string
	ModelPath string
	Language  string
}

// Result carries the full transcript plus the engine's native segments.
// Segments may be empty when the engine produced no timing information.
type Result struct {
	Text     string
	Segments []Segment
}

type Engine interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (Result, error)
}
