package history

import (
	"testing"

	"docvc/internal/hash"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDetector(t *testing.T) {
	_, snaps, _ := newTestStore(t)

	t.Run("NoPriorCommitAlwaysChanged", func(t *testing.T) {
		d := NewDetector(hash.NormalizeNone, snaps, zap.NewNop())
		assert.True(t, d.HasChanged([]byte("anything"), nil))
		assert.True(t, d.HasChanged(nil, nil))
	})

	t.Run("ExactByteComparison", func(t *testing.T) {
		d := NewDetector(hash.NormalizeNone, snaps, zap.NewNop())
		content := []byte("stable content\n")
		latest := &Commit{ID: "v001", Filename: "doc.md", Hash: hash.Sum(content)}

		assert.False(t, d.HasChanged(content, latest))
		assert.True(t, d.HasChanged([]byte("stable content \n"), latest))
	})

	t.Run("WhitespacePolicyIgnoresWhitespaceOnlyEdits", func(t *testing.T) {
		d := NewDetector(hash.NormalizeWhitespace, snaps, zap.NewNop())

		previous := []byte("hello world\n")
		_, err := snaps.Write("v007", "doc.md", previous)
		require.NoError(t, err)
		latest := &Commit{ID: "v007", Filename: "doc.md", Hash: hash.Sum(previous)}

		assert.False(t, d.HasChanged([]byte("hello  world  \n"), latest))
		assert.True(t, d.HasChanged([]byte("hello there\n"), latest))
	})

	t.Run("WhitespacePolicyMissingSnapshotAssumesChanged", func(t *testing.T) {
		d := NewDetector(hash.NormalizeWhitespace, snaps, zap.NewNop())
		latest := &Commit{ID: "v099", Filename: "doc.md", Hash: hash.Sum([]byte("x"))}
		assert.True(t, d.HasChanged([]byte("x"), latest))
	})
}
