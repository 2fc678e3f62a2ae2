package audio

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNoSegments  = errors.New("no segments to merge")
	ErrMergeFailed = errors.New("no readable audio in any segment")
)

// DefaultSegmentGap is the silence inserted between consecutive segments so
// that recognition does not trip over hard waveform boundaries.
const DefaultSegmentGap = 200 * time.Millisecond

// Merged describes the single continuous recording produced from a list of
// captured segment files.
type Merged struct {
	Path          string
	Duration      time.Duration
	SegmentCount  int
	Dropped       int
	UsedFirstOnly bool
}

type Merger struct {
	Gap    time.Duration
	Logger *zap.Logger
}

func NewMerger(logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{Gap: DefaultSegmentGap, Logger: logger}
}

// Merge concatenates the segment WAV files, in the order given, into a single
// recording at outPath. Unreadable segments are skipped rather than failing
// the merge; only a fully unreadable input fails. If writing the combined
// recording fails, the result degrades to the first readable segment.
func (m *Merger) Merge(paths []string, outPath string) (Merged, error) {
	switch len(paths) {
	case 0:
		return Merged{}, ErrNoSegments
	case 1:
		w, err := DecodeWAV(paths[0])
		if err != nil {
			return Merged{}, fmt.Errorf("%w: %v", ErrMergeFailed, err)
		}
		return Merged{Path: paths[0], Duration: w.Duration(), SegmentCount: 1}, nil
	}

	var (
		combined  Waveform
		firstPath string
		firstDur  time.Duration
		kept      int
		dropped   int
	)

	for i, path := range paths {
		segment, err := DecodeWAV(path)
		if err != nil {
			dropped++
			m.Logger.Warn("skipping unreadable segment",
				zap.Int("segment", i), zap.String("path", path), zap.Error(err))
			continue
		}

		// Prefix the gap onto the segment first so a segment dropped for a
		// format mismatch leaves no stray padding behind.
		piece := segment
		if kept > 0 && m.Gap > 0 {
			gap := Silence(m.Gap, combined.SampleRate, combined.Channels)
			if piece, err = Concat(gap, segment); err != nil {
				dropped++
				m.Logger.Warn("skipping segment with mismatched format",
					zap.Int("segment", i), zap.String("path", path), zap.Error(err))
				continue
			}
		}

		merged, err := Concat(combined, piece)
		if err != nil {
			dropped++
			m.Logger.Warn("skipping segment with mismatched format",
				zap.Int("segment", i), zap.String("path", path), zap.Error(err))
			continue
		}
		combined = merged

		if kept == 0 {
			firstPath = path
			firstDur = segment.Duration()
		}
		kept++
	}

	if kept == 0 || combined.Empty() {
		return Merged{}, ErrMergeFailed
	}

	if err := WriteWAV(outPath, combined); err != nil {
		// The individual chunks still exist on disk; fall back to the first
		// one rather than losing the whole recording.
		m.Logger.Warn("writing combined recording failed; falling back to first segment",
			zap.String("out", outPath), zap.Error(err))
		return Merged{
			Path:          firstPath,
			Duration:      firstDur,
			SegmentCount:  kept,
			Dropped:       dropped,
			UsedFirstOnly: true,
		}, nil
	}

	m.Logger.Info("merged recording segments",
		zap.Int("segments", kept), zap.Int("dropped", dropped),
		zap.Duration("duration", combined.Duration()), zap.String("path", outPath))

	return Merged{
		Path:         outPath,
		Duration:     combined.Duration(),
		SegmentCount: kept,
		Dropped:      dropped,
	}, nil
}
