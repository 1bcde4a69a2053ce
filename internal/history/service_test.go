package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docvc/internal/errors"
	"docvc/internal/hash"
	"docvc/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *Store, *snapshot.Store, string) {
	t.Helper()
	dir := t.TempDir()
	snaps, err := snapshot.New(snapshot.Options{Root: filepath.Join(dir, "versions")}, zap.NewNop())
	require.NoError(t, err)

	store := NewStore(dir, snaps, zap.NewNop())
	detector := NewDetector(hash.NormalizeNone, snaps, zap.NewNop())
	lock := NewLock(filepath.Join(dir, "commits.json.lock"), zap.NewNop())
	svc := NewService(store, snaps, detector, lock, time.Second, zap.NewNop())

	return svc, store, snaps, dir
}

func TestCommit(t *testing.T) {
	svc, store, snaps, _ := newTestService(t)

	t.Run("FirstCommitAlwaysSucceeds", func(t *testing.T) {
		c, err := svc.Commit([]byte(""), "draft.md", "empty start", false)
		require.NoError(t, err)
		assert.Equal(t, "v001", c.ID)
		assert.Equal(t, "draft.md", c.Filename)
		assert.Equal(t, hash.Sum(nil), c.Hash)

		ts, err := time.Parse(TimestampFormat, c.Timestamp)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
	})

	t.Run("SnapshotMatchesContent", func(t *testing.T) {
		content := []byte("chapter one\n")
		c, err := svc.Commit(content, "draft.md", "first chapter", false)
		require.NoError(t, err)

		stored, err := snaps.Read(c.ID, c.Filename)
		require.NoError(t, err)
		assert.Equal(t, content, stored)
	})

	t.Run("UnchangedRefusedWithoutForce", func(t *testing.T) {
		content := []byte("same\n")
		_, err := svc.Commit(content, "draft.md", "", false)
		require.NoError(t, err)

		_, err = svc.Commit(content, "draft.md", "again", false)
		assert.True(t, errors.IsKind(err, errors.KindUnchanged))
	})

	t.Run("ForceCommitsUnchangedContent", func(t *testing.T) {
		latest, ok, err := store.Latest()
		require.NoError(t, err)
		require.True(t, ok)

		content := []byte("same\n")
		c, err := svc.Commit(content, "draft.md", "forced", true)
		require.NoError(t, err)
		assert.NotEqual(t, latest.ID, c.ID)
		assert.Equal(t, latest.Hash, c.Hash)
	})

	t.Run("MessageLengthCapped", func(t *testing.T) {
		long := strings.Repeat("x", MaxMessageLen+1)
		_, err := svc.Commit([]byte("new content"), "draft.md", long, false)
		assert.True(t, errors.IsKind(err, errors.KindValidation))
	})

	t.Run("FilenameRequired", func(t *testing.T) {
		_, err := svc.Commit([]byte("x"), "", "", false)
		assert.True(t, errors.IsKind(err, errors.KindValidation))
	})
}

func TestCommitIDsNeverReused(t *testing.T) {
	svc, _, snaps, dir := newTestService(t)

	for i, text := range []string{"one", "two", "three"} {
		c, err := svc.Commit([]byte(text), "doc.md", "", false)
		require.NoError(t, err)
		assert.Equal(t, FormatID(i+1), c.ID)
	}

	// Delete v002's snapshot and corrupt the record; recovery sees v001
	// and v003 and the next commit continues past the maximum.
	require.NoError(t, snaps.Remove("v002", "doc.md"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, RecordName), []byte("oops"), 0644))

	c, err := svc.Commit([]byte("four"), "doc.md", "", false)
	require.NoError(t, err)
	assert.Equal(t, "v004", c.ID)
}

func TestCommitRollsBackSnapshotOnAppendFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	// The record lives in its own directory so it can be made read-only
	// without touching the versions directory or the lock.
	recordDir := t.TempDir()
	snaps, err := snapshot.New(snapshot.Options{Root: filepath.Join(t.TempDir(), "versions")}, zap.NewNop())
	require.NoError(t, err)
	store := NewStore(recordDir, snaps, zap.NewNop())
	detector := NewDetector(hash.NormalizeNone, snaps, zap.NewNop())
	lock := NewLock(filepath.Join(t.TempDir(), "lock"), zap.NewNop())
	svc := NewService(store, snaps, detector, lock, time.Second, zap.NewNop())

	_, err = svc.Commit([]byte("one"), "doc.md", "", false)
	require.NoError(t, err)

	// Persisting the appended record fails; the snapshot write succeeded.
	require.NoError(t, os.Chmod(recordDir, 0555))
	t.Cleanup(func() { os.Chmod(recordDir, 0755) })

	_, err = svc.Commit([]byte("two"), "doc.md", "", false)
	require.Error(t, err)

	// The orphaned snapshot was removed, so the failed commit is not
	// mistaken for a deliberate one.
	_, err = snaps.Read("v002", "doc.md")
	assert.ErrorIs(t, err, snapshot.ErrSnapshotNotFound)

	// Prior state is intact.
	latest, ok, loadErr := store.Latest()
	require.NoError(t, loadErr)
	require.True(t, ok)
	assert.Equal(t, "v001", latest.ID)
}

func TestCommitFailsWhenRepositoryBusy(t *testing.T) {
	svc, _, _, dir := newTestService(t)

	// Another process holds the lock.
	other := NewLock(filepath.Join(dir, "commits.json.lock"), zap.NewNop())
	require.NoError(t, other.Acquire(time.Second))
	defer other.Release()

	start := time.Now()
	_, err := svc.Commit([]byte("blocked"), "doc.md", "", false)
	assert.True(t, errors.IsKind(err, errors.KindBusy))
	assert.Less(t, time.Since(start), 10*time.Second)
}
