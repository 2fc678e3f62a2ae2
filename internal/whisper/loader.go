package whisper

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrNotReady is returned when a transcription is requested before the
// background engine preparation has finished.
var ErrNotReady = errors.New("whisper engine is still loading")

// PrepareFunc resolves the engine binary and model file. It may block on
// disk IO or a model download.
type PrepareFunc func(ctx context.Context) (Engine, string, error)

// Loader prepares the local engine in the background so recording can start
// immediately. Engine reports ErrNotReady until preparation completes.
type Loader struct {
	prepare PrepareFunc
	logger  *zap.Logger

	mu        sync.Mutex
	started   bool
	done      chan struct{}
	engine    Engine
	modelPath string
	err       error
}

func NewLoader(prepare PrepareFunc, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		prepare: prepare,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start kicks off preparation once. Subsequent calls are no-ops.
func (l *Loader) Start(ctx context.Context) {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	go func() {
		engine, modelPath, err := l.prepare(ctx)

		l.mu.Lock()
		l.engine = engine
		l.modelPath = modelPath
		l.err = err
		l.mu.Unlock()
		close(l.done)

		if err != nil {
			l.logger.Warn("whisper engine preparation failed", zap.Error(err))
			return
		}
		l.logger.Debug("whisper engine ready", zap.String("model", modelPath))
	}()
}

// Ready reports whether preparation has finished, successfully or not.
func (l *Loader) Ready() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Engine returns the prepared engine and model path. If preparation is still
// running it returns ErrNotReady; if it failed, the preparation error.
func (l *Loader) Engine() (Engine, string, error) {
	if !l.Ready() {
		return nil, "", ErrNotReady
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, "", l.err
	}
	return l.engine, l.modelPath, nil
}

// Wait blocks until preparation finishes or the context is cancelled, then
// returns the preparation outcome.
func (l *Loader) Wait(ctx context.Context) (Engine, string, error) {
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()
	if !started {
		return nil, "", errors.New("loader was never started")
	}

	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case <-l.done:
	}
	return l.Engine()
}
