package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fmueller/voxnote/internal/transcribe"
)

func TestTranscribeCommandPrintsTimestampedTranscript(t *testing.T) {
	t.Parallel()

	fixture := writeWAVFixture(t)
	out := new(bytes.Buffer)

	app := &appState{
		timestamps: true,
		dispatchFn: func(_ context.Context, req transcribe.Request) (transcribe.Outcome, error) {
			require.Equal(t, fixture, req.AudioPath)
			return transcribe.Outcome{
				Result: transcribe.Result{
					Text:     "hello world",
					Segments: []transcribe.Segment{{Start: 0, End: time.Second, Text: "hello world"}},
				},
				Backend: "local",
			}, nil
		},
	}

	cmd := newTranscribeCmd(app)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{fixture})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Equal(t, "[00:00] hello world\n", out.String())
}

func TestTranscribeCommandPlainTextWithoutTimestamps(t *testing.T) {
	t.Parallel()

	fixture := writeWAVFixture(t)
	out := new(bytes.Buffer)

	app := &appState{
		dispatchFn: func(_ context.Context, _ transcribe.Request) (transcribe.Outcome, error) {
			return transcribe.Outcome{Result: transcribe.Result{Text: "plain"}}, nil
		},
	}

	cmd := newTranscribeCmd(app)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--timestamps=false", fixture})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Equal(t, "plain\n", out.String())
}

func TestTranscribeCommandBlankTokenOnUnrecognizedSpeech(t *testing.T) {
	t.Parallel()

	fixture := writeWAVFixture(t)
	out := new(bytes.Buffer)

	app := &appState{
		dispatchFn: func(_ context.Context, _ transcribe.Request) (transcribe.Outcome, error) {
			return transcribe.Outcome{}, transcribe.ErrUnrecognized
		},
	}

	cmd := newTranscribeCmd(app)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{fixture})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Equal(t, blankAudioToken+"\n", out.String())
}

func TestTranscribeCommandMissingFile(t *testing.T) {
	t.Parallel()

	app := &appState{
		dispatchFn: func(_ context.Context, _ transcribe.Request) (transcribe.Outcome, error) {
			t.Fatal("dispatch must not be called for a missing file")
			return transcribe.Outcome{}, nil
		},
	}

	cmd := newTranscribeCmd(app)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"/nonexistent/audio.wav"})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "audio file not found")
}
