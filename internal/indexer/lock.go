package indexer

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked means another ingestion run holds the lock.
var ErrLocked = errors.New("another signalhub run is in progress")

// RunLock keeps ingestion runs from overlapping on one data dir.
type RunLock struct {
	path string
	lock *flock.Flock
}

// AcquireRunLock takes the lock without waiting.
func AcquireRunLock(path string) (*RunLock, error) {
	l := &RunLock{path: path, lock: flock.New(path)}
	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, path)
	}
	return l, nil
}

func (l *RunLock) Release() error {
	return l.lock.Unlock()
}
