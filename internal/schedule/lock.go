package schedule

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

// ErrLocked is returned when another transform invocation holds the lock file.
var ErrLocked = errors.New("another transform invocation is running")

// WithLock runs fn while holding an exclusive lock on path. It does not wait for the lock.
func WithLock(path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create lock directory for %s: %w", path, err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return fmt.Errorf("%w (lock file %s)", ErrLocked, path)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warnf("Failed to release lock %s: %v", path, err)
		}
	}()
	return fn()
}
