package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fmueller/voxnote/internal/media"
	"github.com/fmueller/voxnote/internal/tempfile"
	"github.com/fmueller/voxnote/internal/timestamp"
	"github.com/fmueller/voxnote/internal/transcribe"
)

const sectionRule = "=================================================="

const failedPrefix = "[transcription failed"

// failureBody renders a failed section's placeholder so the reader can tell
// conditions that were already retried from ones that will not retry at all.
func failureBody(err error) string {
	switch {
	case errors.Is(err, transcribe.ErrBackendNotReady):
		return failedPrefix + ": recognition backend not ready; will not be retried automatically]"
	case errors.Is(err, transcribe.ErrUnsupportedBackend):
		return failedPrefix + ": unsupported recognition backend; will not be retried automatically]"
	case errors.Is(err, transcribe.ErrUnrecognized):
		return failedPrefix + ": no recognizable speech]"
	case errors.Is(err, transcribe.ErrServiceUnavailable):
		return failedPrefix + ": recognition service unavailable after retries]"
	default:
		return fmt.Sprintf("%s: %v]", failedPrefix, err)
	}
}

// Transcriber is the slice of the dispatcher the pipeline needs.
type Transcriber interface {
	Dispatch(ctx context.Context, req transcribe.Request) (transcribe.Outcome, error)
}

// Section is the outcome for one queued file.
type Section struct {
	Entry    Entry
	Offset   time.Duration
	Duration time.Duration
	Text     string
	Err      error

	// DurationUnknown is set when probing failed; the file then contributes
	// nothing to the running offset and later start times may lag.
	DurationUnknown bool
}

// Pipeline transcribes a queue of files sequentially, carrying a running
// time offset so timestamps continue across file boundaries. A file that
// fails still advances the offset by its duration.
type Pipeline struct {
	Transcriber Transcriber
	Language    string
	Timestamps  bool
	Registry    *tempfile.Registry
	Logger      *zap.Logger

	// OnProgress is called before each file is processed.
	OnProgress func(index, total int, name string)

	// Injectable for tests.
	convert func(ctx context.Context, path, tmpDir string) (string, bool, error)
	probe   func(ctx context.Context, path string) (time.Duration, error)
}

func NewPipeline(transcriber Transcriber, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	converter := media.NewConverter(logger)
	return &Pipeline{
		Transcriber: transcriber,
		Logger:      logger,
		convert:     converter.ToWAV,
		probe:       media.ProbeDuration,
	}
}

// Run processes every queued file in order and returns the sections plus the
// assembled transcript.
func (p *Pipeline) Run(ctx context.Context, queue *Queue) ([]Section, string, error) {
	entries := queue.Entries()
	if len(entries) == 0 {
		return nil, "", fmt.Errorf("batch queue is empty")
	}

	tmpDir := os.TempDir()
	sections := make([]Section, 0, len(entries))
	var offset time.Duration

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return sections, renderSections(sections, p.Timestamps), err
		}

		if p.OnProgress != nil {
			p.OnProgress(i, len(entries), entry.Name)
		}

		section := p.processEntry(ctx, entry, offset, tmpDir)
		sections = append(sections, section)
		offset += section.Duration
	}

	return sections, renderSections(sections, p.Timestamps), nil
}

func (p *Pipeline) processEntry(ctx context.Context, entry Entry, offset time.Duration, tmpDir string) Section {
	section := Section{Entry: entry, Offset: offset}

	wavPath, created, err := p.convert(ctx, entry.Path, tmpDir)
	if err != nil {
		p.Logger.Warn("failed to prepare audio file", zap.String("file", entry.Path), zap.Error(err))
		section.Err = fmt.Errorf("audio could not be decoded: %w", err)
		section.DurationUnknown = true
		return section
	}
	if created && p.Registry != nil {
		p.Registry.Track(wavPath)
	}

	if duration, err := p.probe(ctx, wavPath); err != nil {
		p.Logger.Warn("failed to probe audio duration", zap.String("file", entry.Path), zap.Error(err))
		section.DurationUnknown = true
	} else {
		section.Duration = duration
	}

	outcome, err := p.Transcriber.Dispatch(ctx, transcribe.Request{AudioPath: wavPath, Language: p.Language})
	if err != nil {
		p.Logger.Warn("transcription failed", zap.String("file", entry.Path), zap.Error(err))
		section.Err = err
		return section
	}

	if p.Timestamps {
		section.Text = timestamp.Annotate(outcome.Result, offset)
	} else {
		section.Text = outcome.Text
	}
	return section
}

func renderSections(sections []Section, withTimestamps bool) string {
	parts := make([]string, 0, len(sections))
	for _, section := range sections {
		title := fmt.Sprintf("File %d: %s", section.Entry.Order, section.Entry.Name)
		if withTimestamps {
			title += fmt.Sprintf(" (start time: %s)", timestamp.Format(section.Offset))
		}
		if section.DurationUnknown {
			title += " (duration unknown)"
		}

		body := section.Text
		if section.Err != nil {
			body = failureBody(section.Err)
		}

		parts = append(parts, fmt.Sprintf("\n%s\n%s\n%s\n%s", sectionRule, title, sectionRule, body))
	}
	return strings.Join(parts, "\n")
}
