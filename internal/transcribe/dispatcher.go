package transcribe

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Outcome is the result of a dispatch plus which backend produced it.
type Outcome struct {
	Result
	Backend  string
	FellBack bool
}

// Dispatcher routes requests to a primary backend and optionally falls back
// to a secondary one when the primary cannot serve: not ready, unreachable,
// or failing outright. An explicit "nothing was said" outcome is final and
// never triggers the fallback.
type Dispatcher struct {
	Primary  Backend
	Fallback Backend
	Logger   *zap.Logger
}

func NewDispatcher(primary, fallback Backend, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{Primary: primary, Fallback: fallback, Logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Outcome, error) {
	if d.Primary == nil {
		return Outcome{}, errors.New("no transcription backend configured")
	}

	result, err := d.Primary.Transcribe(ctx, req)
	if err == nil {
		return Outcome{Result: result, Backend: d.Primary.Name()}, nil
	}

	if errors.Is(err, ErrUnrecognized) || ctx.Err() != nil || d.Fallback == nil {
		return Outcome{Backend: d.Primary.Name()}, err
	}

	d.Logger.Warn("primary transcription backend failed, falling back",
		zap.String("primary", d.Primary.Name()),
		zap.String("fallback", d.Fallback.Name()),
		zap.Error(err))

	fallbackResult, fallbackErr := d.Fallback.Transcribe(ctx, req)
	if fallbackErr != nil {
		return Outcome{Backend: d.Fallback.Name(), FellBack: true},
			fmt.Errorf("fallback %s after %s failed: %w", d.Fallback.Name(), d.Primary.Name(), errors.Join(err, fallbackErr))
	}

	return Outcome{Result: fallbackResult, Backend: d.Fallback.Name(), FellBack: true}, nil
}
