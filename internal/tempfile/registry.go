// Package tempfile tracks intermediate audio files created during a session
// so that they are reliably removed on stop or reset.
package tempfile

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	cleanupRetryInterval = 500 * time.Millisecond
	cleanupMaxRetries    = 2
)

type Registry struct {
	mu     sync.Mutex
	paths  []string
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// Track registers a file for later cleanup. Tracking the same path twice is
// harmless.
func (r *Registry) Track(path string) {
	if path == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.paths {
		if existing == path {
			return
		}
	}
	r.paths = append(r.paths, path)
}

// Untrack removes a path from the registry without deleting the file, for
// artifacts whose ownership passes to the caller (e.g. the merged recording).
func (r *Registry) Untrack(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.paths {
		if existing == path {
			r.paths = append(r.paths[:i], r.paths[i+1:]...)
			return
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

// CleanupAll removes every tracked file, retrying briefly on transient
// permission failures. Files that still cannot be removed stay tracked and
// the last error is returned.
func (r *Registry) CleanupAll() error {
	r.mu.Lock()
	pending := make([]string, len(r.paths))
	copy(pending, r.paths)
	r.mu.Unlock()

	var remaining []string
	var lastErr error
	for _, path := range pending {
		if err := removeWithRetry(path); err != nil {
			r.logger.Warn("failed to remove temp file", zap.String("path", path), zap.Error(err))
			remaining = append(remaining, path)
			lastErr = err
			continue
		}
		r.logger.Debug("removed temp file", zap.String("path", path))
	}

	r.mu.Lock()
	r.paths = remaining
	r.mu.Unlock()

	return lastErr
}

func removeWithRetry(path string) error {
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(cleanupRetryInterval), cleanupMaxRetries)
	return backoff.Retry(func() error {
		err := os.Remove(path)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if errors.Is(err, os.ErrPermission) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}
