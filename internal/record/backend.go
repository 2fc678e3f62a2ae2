package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

var ErrNoBackendAvailable = errors.New("no recording backend available")

// Config describes one bounded capture into a WAV file.
type Config struct {
	OutputPath string
	Duration   time.Duration
	SampleRate int
	Channels   int
	Input      string
	Format     string
	Logger     *zap.Logger
}

type Backend interface {
	Name() string
	Available() bool
	Record(ctx context.Context, cfg Config) error
	ListDevices(ctx context.Context) (string, error)
}

func SelectBackend(backends []Backend, preferred string) (Backend, error) {
	if len(backends) == 0 {
		return nil, errors.New("no backends configured")
	}

	if preferred != "" && preferred != "auto" {
		for _, backend := range backends {
			if backend.Name() == preferred {
				if !backend.Available() {
					return nil, fmt.Errorf("requested backend %q is not available", preferred)
				}
				return backend, nil
			}
		}
		return nil, fmt.Errorf("unknown backend %q", preferred)
	}

	for _, backend := range backends {
		if backend.Available() {
			return backend, nil
		}
	}

	return nil, ErrNoBackendAvailable
}

func DefaultBackends(goos string) []Backend {
	switch goos {
	case "linux":
		return []Backend{newPipeWireBackend(), newALSABackend(), newFFMPEGLinuxBackend()}
	case "darwin":
		return []Backend{newFFMPEGMacOSBackend()}
	default:
		return nil
	}
}

func NewBackend(preferred string) (Backend, error) {
	backends := DefaultBackends(runtime.GOOS)
	if len(backends) == 0 {
		return nil, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
	return SelectBackend(backends, preferred)
}

// runTimedCommand starts the capture process and stops it with SIGINT once
// the duration elapses. Recorders exit nonzero after an interrupt; that is
// not treated as a failure.
func runTimedCommand(ctx context.Context, cmd *exec.Cmd, duration time.Duration, logger *zap.Logger) error {
	if duration <= 0 {
		return cmd.Run()
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(duration)
	defer timer.Stop()

	for {
		select {
		case err := <-done:
			return err
		case <-timer.C:
			stopSignalSent := cmd.Process.Signal(os.Interrupt) == nil
			err := <-done
			if err == nil {
				return nil
			}

			if stopSignalSent {
				logger.Debug("capture process exited after timed stop signal", zap.Error(err))
				return nil
			}

			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
					logger.Debug("capture process stopped by signal", zap.String("signal", status.Signal().String()))
					return nil
				}
			}

			return err
		case <-ctx.Done():
			_ = cmd.Process.Signal(os.Interrupt)
			<-done
			return ctx.Err()
		}
	}
}

func defaultSampleRate(rate int) int {
	if rate <= 0 {
		return 16000
	}
	return rate
}

func defaultChannels(channels int) int {
	if channels <= 0 {
		return 1
	}
	return channels
}

func filepathDir(path string) string {
	return filepath.Dir(path)
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func commandOutput(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed != "" {
			return "", fmt.Errorf("%s %s failed: %w (%s)", name, strings.Join(args, " "), err, trimmed)
		}
		return "", fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return trimmed, nil
}
