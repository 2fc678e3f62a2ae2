package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fmueller/voxnote/internal/transcribe"
)

func TestBatchCommandTranscribesFilesInOrder(t *testing.T) {
	t.Parallel()

	first := writeWAVFixture(t)
	second := writeWAVFixture(t)
	out := new(bytes.Buffer)

	var seen []string
	app := &appState{
		noProgress: true,
		timestamps: true,
		dispatchFn: func(_ context.Context, req transcribe.Request) (transcribe.Outcome, error) {
			seen = append(seen, req.AudioPath)
			return transcribe.Outcome{Result: transcribe.Result{Text: "spoken text"}}, nil
		},
	}

	cmd := newBatchCmd(app)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{first, second})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Equal(t, []string{first, second}, seen)

	rendered := out.String()
	require.Contains(t, rendered, "File 1: fixture.wav (start time: [00:00])")
	// The first fixture is one second long, so the second file starts at 1s.
	require.Contains(t, rendered, "File 2: fixture.wav (start time: [00:01])")
	require.Contains(t, rendered, "spoken text")
}

func TestBatchCommandFailedFileYieldsPlaceholderAndError(t *testing.T) {
	t.Parallel()

	first := writeWAVFixture(t)
	second := writeWAVFixture(t)
	out := new(bytes.Buffer)

	calls := 0
	app := &appState{
		noProgress: true,
		dispatchFn: func(_ context.Context, _ transcribe.Request) (transcribe.Outcome, error) {
			calls++
			if calls == 1 {
				return transcribe.Outcome{}, transcribe.ErrServiceUnavailable
			}
			return transcribe.Outcome{Result: transcribe.Result{Text: "ok"}}, nil
		},
	}

	cmd := newBatchCmd(app)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{first, second})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 of 2 files failed")
	require.Contains(t, out.String(), "[transcription failed: recognition service unavailable after retries]")
	require.Contains(t, out.String(), "ok")
}

func TestBatchCommandRequiresArguments(t *testing.T) {
	t.Parallel()

	cmd := newBatchCmd(&appState{})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
}
