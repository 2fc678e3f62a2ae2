package whisper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type nopEngine struct{}

func (nopEngine) Transcribe(context.Context, TranscriptionRequest) (Result, error) {
	return Result{}, nil
}

func TestLoaderReportsNotReadyBeforePreparationCompletes(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	loader := NewLoader(func(ctx context.Context) (Engine, string, error) {
		<-release
		return nopEngine{}, "/models/ggml-small.bin", nil
	}, nil)

	loader.Start(context.Background())
	require.False(t, loader.Ready())

	_, _, err := loader.Engine()
	require.ErrorIs(t, err, ErrNotReady)

	close(release)
	engine, modelPath, err := loader.Wait(context.Background())
	require.NoError(t, err)
	require.NotNil(t, engine)
	require.Equal(t, "/models/ggml-small.bin", modelPath)
	require.True(t, loader.Ready())
}

func TestLoaderSurfacesPreparationError(t *testing.T) {
	t.Parallel()

	prepErr := errors.New("model download failed")
	loader := NewLoader(func(ctx context.Context) (Engine, string, error) {
		return nil, "", prepErr
	}, nil)

	loader.Start(context.Background())
	_, _, err := loader.Wait(context.Background())
	require.ErrorIs(t, err, prepErr)
	require.True(t, loader.Ready())
}

func TestLoaderStartIsIdempotent(t *testing.T) {
	t.Parallel()

	calls := 0
	loader := NewLoader(func(ctx context.Context) (Engine, string, error) {
		calls++
		return nopEngine{}, "m", nil
	}, nil)

	loader.Start(context.Background())
	loader.Start(context.Background())

	_, _, err := loader.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestLoaderWaitHonorsContext(t *testing.T) {
	t.Parallel()

	loader := NewLoader(func(ctx context.Context) (Engine, string, error) {
		time.Sleep(10 * time.Second)
		return nopEngine{}, "", nil
	}, nil)

	loader.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := loader.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoaderWaitWithoutStart(t *testing.T) {
	t.Parallel()

	loader := NewLoader(func(ctx context.Context) (Engine, string, error) {
		return nopEngine{}, "", nil
	}, nil)

	_, _, err := loader.Wait(context.Background())
	require.Error(t, err)
}
