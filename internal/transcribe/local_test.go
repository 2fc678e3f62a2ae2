package transcribe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fmueller/voxnote/internal/whisper"
)

type fakeEngine struct {
	result whisper.Result
	err    error
	got    whisper.TranscriptionRequest
}

func (f *fakeEngine) Transcribe(ctx context.Context, req whisper.TranscriptionRequest) (whisper.Result, error) {
	f.got = req
	return f.result, f.err
}

func readyLoader(t *testing.T, engine whisper.Engine, modelPath string) *whisper.Loader {
	t.Helper()

	loader := whisper.NewLoader(func(ctx context.Context) (whisper.Engine, string, error) {
		return engine, modelPath, nil
	}, nil)
	loader.Start(context.Background())
	_, _, err := loader.Wait(context.Background())
	require.NoError(t, err)
	return loader
}

func TestLocalBackendReturnsNativeSegments(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: whisper.Result{
		Text: "hello world",
		Segments: []whisper.Segment{
			{Start: 0, End: 2 * time.Second, Text: "hello"},
			{Start: 2 * time.Second, End: 4 * time.Second, Text: "world"},
		},
	}}
	backend := NewLocalBackend(readyLoader(t, engine, "/models/ggml-small.bin"), nil)

	result, err := backend.Transcribe(context.Background(), Request{AudioPath: "a.wav", Language: "en"})
	require.NoError(t, err)
	require.Equal(t, "hello world", result.Text)
	require.True(t, result.HasSegments())
	require.Equal(t, 2*time.Second, result.Segments[1].Start)
	require.Equal(t, "/models/ggml-small.bin", engine.got.ModelPath)
	require.Equal(t, "en", engine.got.Language)
}

func TestLocalBackendNotReadyWhileModelLoads(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	loader := whisper.NewLoader(func(ctx context.Context) (whisper.Engine, string, error) {
		<-release
		return &fakeEngine{}, "m", nil
	}, nil)
	loader.Start(context.Background())
	defer close(release)

	backend := NewLocalBackend(loader, nil)
	_, err := backend.Transcribe(context.Background(), Request{AudioPath: "a.wav"})
	require.ErrorIs(t, err, ErrBackendNotReady)
}

func TestLocalBackendWaitForModelBlocksUntilReady(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	engine := &fakeEngine{result: whisper.Result{Text: "late hello"}}
	loader := whisper.NewLoader(func(ctx context.Context) (whisper.Engine, string, error) {
		<-release
		return engine, "m", nil
	}, nil)
	loader.Start(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	backend := NewLocalBackend(loader, nil)
	backend.WaitForModel = true
	result, err := backend.Transcribe(context.Background(), Request{AudioPath: "a.wav"})
	require.NoError(t, err)
	require.Equal(t, "late hello", result.Text)
}

func TestLocalBackendEmptyTranscriptIsUnrecognized(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: whisper.Result{Text: "  "}}
	backend := NewLocalBackend(readyLoader(t, engine, "m"), nil)

	_, err := backend.Transcribe(context.Background(), Request{AudioPath: "a.wav"})
	require.ErrorIs(t, err, ErrUnrecognized)
}
