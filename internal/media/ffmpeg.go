// Package media wraps ffmpeg and ffprobe as the codec collaborator: anything
// that is not already a canonical WAV goes through here before recognition.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fmueller/voxnote/internal/audio"
)

var (
	ErrDecodeFailed      = errors.New("audio decode failed")
	ErrFFmpegUnavailable = errors.New("ffmpeg is not available on PATH")
)

const (
	canonicalSampleRate = 16000
	canonicalChannels   = 1
)

type Converter struct {
	Logger *zap.Logger
}

func NewConverter(logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{Logger: logger}
}

// ToWAV returns a path to a canonical 16kHz mono WAV for the input file. A
// file that already decodes as WAV is passed through untouched; everything
// else is converted into tmpDir. The second return value reports whether a
// new file was created that the caller should track for cleanup.
func (c *Converter) ToWAV(ctx context.Context, path, tmpDir string) (string, bool, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		if _, err := audio.DecodeWAV(path); err == nil {
			return path, false, nil
		}
		// Fall through: some .wav files carry codecs the native decoder
		// does not handle.
	}

	if !commandAvailable("ffmpeg") {
		return "", false, ErrFFmpegUnavailable
	}

	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	out := filepath.Join(tmpDir, fmt.Sprintf("voxnote-%s.wav", uuid.NewString()))

	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-i", path,
		"-ac", strconv.Itoa(canonicalChannels),
		"-ar", strconv.Itoa(canonicalSampleRate),
		"-c:a", "pcm_s16le",
		out,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.Logger.Debug("converting audio", zap.String("input", path), zap.String("output", out))
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", false, fmt.Errorf("%w: %s: %s", ErrDecodeFailed, err, detail)
		}
		return "", false, fmt.Errorf("%w: %s", ErrDecodeFailed, err)
	}

	return out, true, nil
}

// ProbeDuration reports the duration of an audio file, preferring ffprobe and
// falling back to the native WAV decoder.
func ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	if commandAvailable("ffprobe") {
		if d, err := ffprobeDuration(ctx, path); err == nil {
			return d, nil
		}
	}

	w, err := audio.DecodeWAV(path)
	if err != nil {
		return 0, fmt.Errorf("probe duration of %s: %w", path, err)
	}
	return w.Duration(), nil
}

func ffprobeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
