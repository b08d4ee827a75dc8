// Package runlock guards an output directory against concurrent analysis
// runs. A marker file records the owning process ID; a marker whose owner is
// no longer alive is treated as stale and reclaimed.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/gwdetchar/hveto/internal/logger"
)

// MarkerFilename marks that an analysis is running in the output directory.
const MarkerFilename = "hveto-run-marker.lock"

// markerPermissions is the file mode of the marker file.
const markerPermissions = 0o600

// ErrAlreadyLocked is returned when another live process holds the lock.
var ErrAlreadyLocked = errors.New("output directory is locked by a running analysis")

// Lock represents an acquired run lock.
type Lock struct {
	// path is the marker file location.
	path string
}

// Acquire takes the run lock for the provided output directory.
// A marker left behind by a dead process is removed and reacquired.
func Acquire(ctx context.Context, dir string) (*Lock, error) {
	path := filepath.Join(dir, MarkerFilename)

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if ownerAlive(ctx, strings.TrimSpace(string(contents))) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyLocked, path)
		}

		logger.Infof(ctx, "Removing stale run marker %s", path)

		if err = os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale marker: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// No marker, continue.
	default:
		return nil, fmt.Errorf("read run marker: %w", err)
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_EXCL, markerPermissions)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyLocked, path)
		}

		return nil, fmt.Errorf("create run marker: %w", err)
	}

	_, err = fmt.Fprintf(f, "%d\n", os.Getpid())
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(path)

		return nil, fmt.Errorf("write run marker: %w", err)
	}

	return &Lock{path: path}, nil
}

// Release removes the marker file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove run marker: %w", err)
	}

	return nil
}

// ownerAlive reports whether the process recorded in the marker still runs.
// Unparseable contents count as alive so a corrupt marker is never reclaimed
// silently.
func ownerAlive(ctx context.Context, contents string) bool {
	pid, err := strconv.Atoi(contents)
	if err != nil {
		logger.Warnf(ctx, "Run marker holds no process ID (%q), refusing to reclaim", contents)

		return true
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		logger.Warnf(ctx, "Unable to inspect process %d: %v", pid, err)

		return true
	}

	return process != nil
}
