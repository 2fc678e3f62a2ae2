package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fmueller/voxnote/internal/audio"
	"github.com/fmueller/voxnote/internal/record"
)

func fakeCaptureResult(t *testing.T) []record.Segment {
	t.Helper()
	return []record.Segment{
		{Index: 1, Path: filepath.Join(t.TempDir(), "chunk-1.wav"), Duration: 2 * time.Second},
		{Index: 2, Path: filepath.Join(t.TempDir(), "chunk-2.wav"), Duration: 3 * time.Second},
	}
}

func TestRecordCommandPrintsMergedPath(t *testing.T) {
	t.Parallel()

	mergedPath := filepath.Join(t.TempDir(), "merged.wav")
	require.NoError(t, os.WriteFile(mergedPath, []byte("RIFF"), 0o644))
	out := new(bytes.Buffer)

	app := &appState{
		captureFn: func(context.Context) ([]record.Segment, error) {
			return fakeCaptureResult(t), nil
		},
		mergeFn: func(paths []string, outPath string) (audio.Merged, error) {
			require.Len(t, paths, 2)
			return audio.Merged{Path: mergedPath, Duration: 5 * time.Second}, nil
		},
	}

	cmd := newRecordCmd(app)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(nil)

	err := cmd.Execute()
	require.NoError(t, err)
	require.Equal(t, mergedPath+"\n", out.String())
}

func TestRecordCommandMovesRecordingToOutputPath(t *testing.T) {
	t.Parallel()

	mergedPath := filepath.Join(t.TempDir(), "merged.wav")
	require.NoError(t, os.WriteFile(mergedPath, []byte("RIFF"), 0o644))
	target := filepath.Join(t.TempDir(), "notes", "session.wav")
	out := new(bytes.Buffer)

	app := &appState{
		captureFn: func(context.Context) ([]record.Segment, error) {
			return fakeCaptureResult(t), nil
		},
		mergeFn: func([]string, string) (audio.Merged, error) {
			return audio.Merged{Path: mergedPath, Duration: 5 * time.Second}, nil
		},
	}

	cmd := newRecordCmd(app)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--output", target})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Equal(t, target+"\n", out.String())
	require.FileExists(t, target)
	require.NoFileExists(t, mergedPath)
}

func TestRecordCommandFailsWithoutCapturedSpeech(t *testing.T) {
	t.Parallel()

	app := &appState{
		captureFn: func(context.Context) ([]record.Segment, error) {
			return nil, nil
		},
	}

	cmd := newRecordCmd(app)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(nil)

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "no speech was captured")
}

func TestRecordCommandPropagatesCaptureError(t *testing.T) {
	t.Parallel()

	captureErr := errors.New("microphone unavailable")
	app := &appState{
		captureFn: func(context.Context) ([]record.Segment, error) {
			return nil, captureErr
		},
	}

	cmd := newRecordCmd(app)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(nil)

	err := cmd.Execute()
	require.ErrorIs(t, err, captureErr)
}
