package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"docvc/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLock(t *testing.T) {
	t.Run("AcquireAndRelease", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "commits.json.lock")
		lock := NewLock(path, zap.NewNop())

		require.NoError(t, lock.Acquire(time.Second))
		_, err := os.Stat(path)
		require.NoError(t, err)

		require.NoError(t, lock.Release())
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("ReleaseWithoutAcquireIsNoop", func(t *testing.T) {
		lock := NewLock(filepath.Join(t.TempDir(), "lock"), zap.NewNop())
		assert.NoError(t, lock.Release())
	})

	t.Run("ContentionTimesOutBusy", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lock")
		first := NewLock(path, zap.NewNop())
		require.NoError(t, first.Acquire(time.Second))
		defer first.Release()

		second := NewLock(path, zap.NewNop())
		start := time.Now()
		err := second.Acquire(200 * time.Millisecond)
		assert.True(t, errors.IsKind(err, errors.KindBusy))
		assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	})

	t.Run("AcquireSucceedsAfterRelease", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lock")
		first := NewLock(path, zap.NewNop())
		require.NoError(t, first.Acquire(time.Second))
		require.NoError(t, first.Release())

		second := NewLock(path, zap.NewNop())
		assert.NoError(t, second.Acquire(time.Second))
		second.Release()
	})

	t.Run("StaleLockIsBroken", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lock")

		stale := lockInfo{
			Owner:      "dead-process",
			PID:        999999,
			AcquiredAt: time.Now().UTC().Add(-time.Hour),
		}
		data, err := json.Marshal(stale)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0644))

		lock := NewLock(path, zap.NewNop())
		assert.NoError(t, lock.Acquire(2*time.Second))
		lock.Release()
	})

	t.Run("FreshUnparseableLockStaysHeld", func(t *testing.T) {
		// A contender that created the file but has not yet written the
		// holder info still owns the lock.
		path := filepath.Join(t.TempDir(), "lock")
		require.NoError(t, os.WriteFile(path, nil, 0644))

		lock := NewLock(path, zap.NewNop())
		err := lock.Acquire(200 * time.Millisecond)
		assert.True(t, errors.IsKind(err, errors.KindBusy))

		_, err = os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("OldUnparseableLockIsBroken", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lock")
		require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
		old := time.Now().Add(-time.Hour)
		require.NoError(t, os.Chtimes(path, old, old))

		lock := NewLock(path, zap.NewNop())
		assert.NoError(t, lock.Acquire(2*time.Second))
		lock.Release()
	})

	t.Run("LockFileRecordsHolder", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lock")
		lock := NewLock(path, zap.NewNop())
		require.NoError(t, lock.Acquire(time.Second))
		defer lock.Release()

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var info lockInfo
		require.NoError(t, json.Unmarshal(data, &info))
		assert.NotEmpty(t, info.Owner)
		assert.Equal(t, os.Getpid(), info.PID)
		assert.False(t, info.AcquiredAt.IsZero())
	})
}
