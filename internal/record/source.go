package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fmueller/voxnote/internal/audio"
	"github.com/fmueller/voxnote/internal/tempfile"
)

var (
	// ErrNoSpeech means a capture window completed but contained nothing
	// above the silence gate. In continuous mode this is the expected idle
	// case, never a session-ending condition.
	ErrNoSpeech = errors.New("no speech detected in capture window")

	ErrDeviceUnavailable = errors.New("no recording device available")
)

// Chunk is one bounded capture from the live source, already on disk.
type Chunk struct {
	Path     string
	Duration time.Duration
}

// ChunkSource produces bounded waveform chunks for the capture loop.
type ChunkSource interface {
	Capture(ctx context.Context) (Chunk, error)
	Close() error
}

const (
	DefaultChunkWindow     = 5 * time.Second
	DefaultSilenceDBFS     = -65.0
	defaultChunkSampleRate = 16000
	defaultChunkChannels   = 1
)

type MicSourceConfig struct {
	Backend     Backend
	Dir         string
	Window      time.Duration
	SilenceDBFS float64
	SampleRate  int
	Channels    int
	Input       string
	Format      string
	Registry    *tempfile.Registry
	Logger      *zap.Logger
}

type micSource struct {
	cfg MicSourceConfig
}

// NewMicSource wraps a recording backend as a ChunkSource. Each capture
// records one window-length WAV into the session directory and gates it on
// the silence threshold; a silent window is discarded and reported as
// ErrNoSpeech.
func NewMicSource(cfg MicSourceConfig) (ChunkSource, error) {
	if cfg.Backend == nil {
		return nil, ErrDeviceUnavailable
	}
	if !cfg.Backend.Available() {
		return nil, fmt.Errorf("%w: backend %s not on PATH", ErrDeviceUnavailable, cfg.Backend.Name())
	}
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultChunkWindow
	}
	if cfg.SilenceDBFS == 0 {
		cfg.SilenceDBFS = DefaultSilenceDBFS
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultChunkSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = defaultChunkChannels
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory %s: %w", cfg.Dir, err)
	}

	return &micSource{cfg: cfg}, nil
}

func (s *micSource) Capture(ctx context.Context) (Chunk, error) {
	path := filepath.Join(s.cfg.Dir, fmt.Sprintf("segment-%s.wav", uuid.NewString()))
	if s.cfg.Registry != nil {
		s.cfg.Registry.Track(path)
	}

	err := s.cfg.Backend.Record(ctx, Config{
		OutputPath: path,
		Duration:   s.cfg.Window,
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
		Input:      s.cfg.Input,
		Format:     s.cfg.Format,
		Logger:     s.cfg.Logger,
	})
	if err != nil {
		s.discard(path)
		if ctx.Err() != nil {
			return Chunk{}, ctx.Err()
		}
		return Chunk{}, fmt.Errorf("capture chunk with backend %s: %w", s.cfg.Backend.Name(), err)
	}

	waveform, err := audio.DecodeWAV(path)
	if err != nil {
		s.discard(path)
		return Chunk{}, fmt.Errorf("decode captured chunk: %w", err)
	}

	if silent, metrics := audio.IsSilent(waveform, s.cfg.SilenceDBFS); silent {
		s.cfg.Logger.Debug("capture window was silent",
			zap.Float64("rms_dbfs", metrics.RMSdBFS),
			zap.Float64("peak_dbfs", metrics.PeakdBFS))
		s.discard(path)
		return Chunk{}, ErrNoSpeech
	}

	return Chunk{Path: path, Duration: waveform.Duration()}, nil
}

func (s *micSource) Close() error {
	return nil
}

func (s *micSource) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.cfg.Logger.Debug("failed to remove discarded chunk", zap.String("path", path), zap.Error(err))
		return
	}
	if s.cfg.Registry != nil {
		s.cfg.Registry.Untrack(path)
	}
}
