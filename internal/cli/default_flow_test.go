package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fmueller/voxnote/internal/audio"
	"github.com/fmueller/voxnote/internal/record"
	"github.com/fmueller/voxnote/internal/transcribe"
)

func TestRunDefaultFlowSuccess(t *testing.T) {
	t.Parallel()

	var order []string
	out := new(bytes.Buffer)

	app := &appState{
		out:        out,
		timestamps: true,
		captureFn: func(_ context.Context) ([]record.Segment, error) {
			order = append(order, "capture")
			return []record.Segment{
				{Path: "/tmp/seg-0.wav", Duration: 2 * time.Second, Index: 0},
				{Path: "/tmp/seg-1.wav", Duration: time.Second, Index: 1},
			}, nil
		},
		mergeFn: func(paths []string, outPath string) (audio.Merged, error) {
			order = append(order, "merge")
			require.Equal(t, []string{"/tmp/seg-0.wav", "/tmp/seg-1.wav"}, paths)
			return audio.Merged{Path: outPath, Duration: 3200 * time.Millisecond, SegmentCount: 2}, nil
		},
		dispatchFn: func(_ context.Context, req transcribe.Request) (transcribe.Outcome, error) {
			order = append(order, "transcribe")
			return transcribe.Outcome{
				Result: transcribe.Result{
					Text: "hello world",
					Segments: []transcribe.Segment{
						{Start: 0, End: 2 * time.Second, Text: "hello"},
						{Start: 2 * time.Second, End: 3 * time.Second, Text: "world"},
					},
				},
				Backend: "local",
			}, nil
		},
	}

	err := app.runDefault(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"capture", "merge", "transcribe"}, order)
	require.Equal(t, "[00:00] hello\n[00:02] world\n", out.String())
}

func TestRunDefaultWithoutTimestampsPrintsPlainText(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	app := &appState{
		out: out,
		captureFn: func(_ context.Context) ([]record.Segment, error) {
			return []record.Segment{{Path: "/tmp/seg-0.wav", Duration: time.Second}}, nil
		},
		mergeFn: func(paths []string, outPath string) (audio.Merged, error) {
			return audio.Merged{Path: outPath, SegmentCount: 1}, nil
		},
		dispatchFn: func(_ context.Context, _ transcribe.Request) (transcribe.Outcome, error) {
			return transcribe.Outcome{Result: transcribe.Result{Text: "plain text"}}, nil
		},
	}

	err := app.runDefault(context.Background())
	require.NoError(t, err)
	require.Equal(t, "plain text\n", out.String())
}

func TestRunDefaultNoSegmentsPrintsBlankToken(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	app := &appState{
		out: out,
		captureFn: func(_ context.Context) ([]record.Segment, error) {
			return nil, nil
		},
	}

	err := app.runDefault(context.Background())
	require.NoError(t, err)
	require.Equal(t, blankAudioToken+"\n", out.String())
}

func TestRunDefaultUnrecognizedSpeechIsNotAnError(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	app := &appState{
		out: out,
		captureFn: func(_ context.Context) ([]record.Segment, error) {
			return []record.Segment{{Path: "/tmp/seg-0.wav", Duration: time.Second}}, nil
		},
		mergeFn: func(paths []string, outPath string) (audio.Merged, error) {
			return audio.Merged{Path: outPath, SegmentCount: 1}, nil
		},
		dispatchFn: func(_ context.Context, _ transcribe.Request) (transcribe.Outcome, error) {
			return transcribe.Outcome{}, transcribe.ErrUnrecognized
		},
	}

	err := app.runDefault(context.Background())
	require.NoError(t, err)
	require.Equal(t, blankAudioToken+"\n", out.String())
}

func TestRunDefaultSummarizesWhenRequested(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	app := &appState{
		out:       out,
		summarize: true,
		captureFn: func(_ context.Context) ([]record.Segment, error) {
			return []record.Segment{{Path: "/tmp/seg-0.wav", Duration: time.Second}}, nil
		},
		mergeFn: func(paths []string, outPath string) (audio.Merged, error) {
			return audio.Merged{Path: outPath, SegmentCount: 1}, nil
		},
		dispatchFn: func(_ context.Context, _ transcribe.Request) (transcribe.Outcome, error) {
			return transcribe.Outcome{Result: transcribe.Result{Text: "long transcript"}}, nil
		},
		summarizeFn: func(_ context.Context, transcript string) (string, error) {
			require.Equal(t, "long transcript", transcript)
			return "short summary", nil
		},
	}

	err := app.runDefault(context.Background())
	require.NoError(t, err)
	require.Contains(t, out.String(), "long transcript")
	require.Contains(t, out.String(), "--- Summary ---")
	require.Contains(t, out.String(), "short summary")
}

func TestRunDefaultSummaryFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	app := &appState{
		out:       out,
		summarize: true,
		captureFn: func(_ context.Context) ([]record.Segment, error) {
			return []record.Segment{{Path: "/tmp/seg-0.wav", Duration: time.Second}}, nil
		},
		mergeFn: func(paths []string, outPath string) (audio.Merged, error) {
			return audio.Merged{Path: outPath, SegmentCount: 1}, nil
		},
		dispatchFn: func(_ context.Context, _ transcribe.Request) (transcribe.Outcome, error) {
			return transcribe.Outcome{Result: transcribe.Result{Text: "transcript"}}, nil
		},
		summarizeFn: func(_ context.Context, _ string) (string, error) {
			return "", context.DeadlineExceeded
		},
	}

	err := app.runDefault(context.Background())
	require.NoError(t, err)
	require.Contains(t, out.String(), "transcript")
	require.NotContains(t, out.String(), "--- Summary ---")
}

func TestRunDefaultMergeFailurePropagates(t *testing.T) {
	t.Parallel()

	app := &appState{
		out: new(bytes.Buffer),
		captureFn: func(_ context.Context) ([]record.Segment, error) {
			return []record.Segment{{Path: "/tmp/seg-0.wav"}}, nil
		},
		mergeFn: func(paths []string, outPath string) (audio.Merged, error) {
			return audio.Merged{}, audio.ErrMergeFailed
		},
	}

	err := app.runDefault(context.Background())
	require.ErrorIs(t, err, audio.ErrMergeFailed)
}
