package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fmueller/voxnote/internal/whisper"
)

// LocalBackend runs the bundled whisper engine. The engine and model are
// prepared lazily by the loader, so early requests can see ErrBackendNotReady.
type LocalBackend struct {
	Loader *whisper.Loader
	Logger *zap.Logger

	// WaitForModel blocks requests until the loader finishes instead of
	// reporting ErrBackendNotReady. Set when no other backend can take over.
	WaitForModel bool
}

func NewLocalBackend(loader *whisper.Loader, logger *zap.Logger) *LocalBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalBackend{Loader: loader, Logger: logger}
}

func (l *LocalBackend) Name() string {
	return "local"
}

func (l *LocalBackend) Transcribe(ctx context.Context, req Request) (Result, error) {
	if l.WaitForModel {
		if _, _, err := l.Loader.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}
	}

	engine, modelPath, err := l.Loader.Engine()
	if err != nil {
		if errors.Is(err, whisper.ErrNotReady) {
			return Result{}, ErrBackendNotReady
		}
		return Result{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	out, err := engine.Transcribe(ctx, whisper.TranscriptionRequest{
		AudioPath: req.AudioPath,
		ModelPath: modelPath,
		Language:  req.Language,
	})
	if err != nil {
		return Result{}, fmt.Errorf("local transcription: %w", err)
	}

	if strings.TrimSpace(out.Text) == "" {
		return Result{}, ErrUnrecognized
	}

	segments := make([]Segment, 0, len(out.Segments))
	for _, s := range out.Segments {
		segments = append(segments, Segment{Start: s.Start, End: s.End, Text: s.Text})
	}

	return Result{Text: strings.TrimSpace(out.Text), Segments: segments}, nil
}
