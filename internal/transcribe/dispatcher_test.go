package transcribe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	name   string
	result Result
	err    error
	calls  int
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Transcribe(ctx context.Context, req Request) (Result, error) {
	s.calls++
	return s.result, s.err
}

func TestDispatchUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	primary := &stubBackend{name: "local", result: Result{Text: "hello", Segments: []Segment{{Text: "hello"}}}}
	fallback := &stubBackend{name: "cloud"}
	dispatcher := NewDispatcher(primary, fallback, nil)

	outcome, err := dispatcher.Dispatch(context.Background(), Request{AudioPath: "a.wav"})
	require.NoError(t, err)
	require.Equal(t, "hello", outcome.Text)
	require.Equal(t, "local", outcome.Backend)
	require.False(t, outcome.FellBack)
	require.Zero(t, fallback.calls)
}

func TestDispatchFallsBackWhenPrimaryNotReady(t *testing.T) {
	t.Parallel()

	primary := &stubBackend{name: "local", err: ErrBackendNotReady}
	fallback := &stubBackend{name: "cloud", result: Result{Text: "from the cloud"}}
	dispatcher := NewDispatcher(primary, fallback, nil)

	outcome, err := dispatcher.Dispatch(context.Background(), Request{AudioPath: "a.wav"})
	require.NoError(t, err)
	require.Equal(t, "from the cloud", outcome.Text)
	require.Equal(t, "cloud", outcome.Backend)
	require.True(t, outcome.FellBack)
	require.False(t, outcome.HasSegments())
}

func TestDispatchDoesNotFallBackOnUnrecognizedSpeech(t *testing.T) {
	t.Parallel()

	primary := &stubBackend{name: "local", err: ErrUnrecognized}
	fallback := &stubBackend{name: "cloud", result: Result{Text: "should not be used"}}
	dispatcher := NewDispatcher(primary, fallback, nil)

	_, err := dispatcher.Dispatch(context.Background(), Request{AudioPath: "a.wav"})
	require.ErrorIs(t, err, ErrUnrecognized)
	require.Zero(t, fallback.calls)
}

func TestDispatchReportsBothErrorsWhenFallbackFailsToo(t *testing.T) {
	t.Parallel()

	primary := &stubBackend{name: "local", err: ErrServiceUnavailable}
	fallback := &stubBackend{name: "cloud", err: errors.New("quota exceeded")}
	dispatcher := NewDispatcher(primary, fallback, nil)

	outcome, err := dispatcher.Dispatch(context.Background(), Request{AudioPath: "a.wav"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrServiceUnavailable)
	require.Contains(t, err.Error(), "quota exceeded")
	require.True(t, outcome.FellBack)
}

func TestDispatchWithoutFallbackReturnsPrimaryError(t *testing.T) {
	t.Parallel()

	primary := &stubBackend{name: "cloud", err: ErrServiceUnavailable}
	dispatcher := NewDispatcher(primary, nil, nil)

	_, err := dispatcher.Dispatch(context.Background(), Request{AudioPath: "a.wav"})
	require.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestDispatchWithoutAnyBackend(t *testing.T) {
	t.Parallel()

	dispatcher := NewDispatcher(nil, nil, nil)
	_, err := dispatcher.Dispatch(context.Background(), Request{})
	require.Error(t, err)
}
