package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		content := []byte("the quick brown fox")
		assert.Equal(t, Sum(content), Sum(content))
	})

	t.Run("DistinctInputs", func(t *testing.T) {
		assert.NotEqual(t, Sum([]byte("a")), Sum([]byte("b")))
		// Whitespace-only differences are visible in the raw sum.
		assert.NotEqual(t, Sum([]byte("a b")), Sum([]byte("a  b")))
	})

	t.Run("EmptyContent", func(t *testing.T) {
		assert.Len(t, Sum(nil), 64)
		assert.Equal(t, Sum(nil), Sum([]byte{}))
	})
}

func TestNormalize(t *testing.T) {
	t.Run("NoneIsIdentity", func(t *testing.T) {
		content := []byte("a  b\t\nc \n")
		assert.Equal(t, content, Normalize(content, NormalizeNone))
	})

	t.Run("WhitespaceCollapses", func(t *testing.T) {
		a := Normalize([]byte("a  b\nc\t\td  \n"), NormalizeWhitespace)
		b := Normalize([]byte("a b\nc d\n"), NormalizeWhitespace)
		assert.Equal(t, b, a)
	})

	t.Run("WhitespacePreservesWords", func(t *testing.T) {
		a := SumNormalized([]byte("hello world"), NormalizeWhitespace)
		b := SumNormalized([]byte("hello  world"), NormalizeWhitespace)
		c := SumNormalized([]byte("hello word"), NormalizeWhitespace)
		assert.Equal(t, a, b)
		assert.NotEqual(t, a, c)
	})
}

func TestParseNormalization(t *testing.T) {
	p, err := ParseNormalization("none")
	require.NoError(t, err)
	assert.Equal(t, NormalizeNone, p)

	p, err = ParseNormalization("")
	require.NoError(t, err)
	assert.Equal(t, NormalizeNone, p)

	p, err = ParseNormalization("whitespace")
	require.NoError(t, err)
	assert.Equal(t, NormalizeWhitespace, p)

	_, err = ParseNormalization("bogus")
	assert.Error(t, err)
}
