// internal/history/lock.go
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"docvc/internal/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	lockPollInterval = 50 * time.Millisecond
	// Locks older than this are assumed to belong to a dead process.
	lockStaleAfter = 10 * time.Minute
)

type lockInfo struct {
	Owner      string    `json:"owner"`
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Lock is an advisory exclusive lock over the commit log, held for the
// duration of a read-modify-write sequence. It is a plain lock file created
// with O_EXCL; the contents identify the holder for diagnostics only.
type Lock struct {
	path   string
	owner  string
	logger *zap.Logger
	held   bool
}

func NewLock(path string, logger *zap.Logger) *Lock {
	return &Lock{
		path:   path,
		owner:  uuid.New().String(),
		logger: logger,
	}
}

// Acquire takes the lock, polling until timeout. Contention past the
// deadline fails with a busy error rather than blocking indefinitely.
func (l *Lock) Acquire(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		ok, err := l.tryAcquire()
		if err != nil {
			return fmt.Errorf("acquiring repository lock: %w", err)
		}
		if ok {
			l.held = true
			return nil
		}

		l.breakIfStale()

		if time.Now().After(deadline) {
			return errors.Busy("lock")
		}
		time.Sleep(lockPollInterval)
	}
}

func (l *Lock) tryAcquire() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	info := lockInfo{
		Owner:      l.owner,
		PID:        os.Getpid(),
		AcquiredAt: time.Now().UTC(),
	}
	if err := json.NewEncoder(f).Encode(info); err != nil {
		os.Remove(l.path)
		return false, fmt.Errorf("writing lock info: %w", err)
	}

	return true, nil
}

// breakIfStale removes a lock file left behind by a crashed process.
func (l *Lock) breakIfStale() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return
	}

	var info lockInfo
	if err := json.Unmarshal(data, &info); err == nil {
		if time.Since(info.AcquiredAt) < lockStaleAfter {
			return
		}
	} else {
		// An unparseable file may be a live contender between creating
		// the lock and writing the holder info. Age it by mtime.
		fi, statErr := os.Stat(l.path)
		if statErr != nil || time.Since(fi.ModTime()) < lockStaleAfter {
			return
		}
	}

	l.logger.Warn("breaking stale repository lock",
		zap.String("path", l.path),
		zap.String("owner", info.Owner),
		zap.Int("pid", info.PID))
	os.Remove(l.path)
}

// Release drops the lock. Safe to call when not held.
func (l *Lock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("releasing repository lock: %w", err)
	}
	return nil
}
