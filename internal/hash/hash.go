package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sum returns the hex-encoded sha256 of content. Raw bytes, no
// normalization: whitespace-only edits produce a different sum.
func Sum(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// Normalization transforms bytes before comparison. Hashing itself always
// operates on what it is given; callers opt in to a policy explicitly.
type Normalization int

const (
	// NormalizeNone compares exact bytes.
	NormalizeNone Normalization = iota
	// NormalizeWhitespace trims trailing whitespace per line and collapses
	// runs of spaces and tabs, so whitespace-only edits compare equal.
	NormalizeWhitespace
)

func ParseNormalization(s string) (Normalization, error) {
	switch s {
	case "", "none":
		return NormalizeNone, nil
	case "whitespace":
		return NormalizeWhitespace, nil
	}
	return NormalizeNone, fmt.Errorf("unknown normalization %q", s)
}

func (n Normalization) String() string {
	if n == NormalizeWhitespace {
		return "whitespace"
	}
	return "none"
}

// Normalize applies the policy to content. NormalizeNone returns content
// unmodified.
func Normalize(content []byte, policy Normalization) []byte {
	if policy == NormalizeNone {
		return content
	}

	lines := bytes.Split(content, []byte{'\n'})
	out := make([][]byte, len(lines))
	for i, line := range lines {
		out[i] = collapseWhitespace(bytes.TrimRight(line, " \t\r"))
	}
	return bytes.Join(out, []byte{'\n'})
}

// SumNormalized hashes content after applying the policy.
func SumNormalized(content []byte, policy Normalization) string {
	return Sum(Normalize(content, policy))
}

func collapseWhitespace(line []byte) []byte {
	var out []byte
	inRun := false
	for _, b := range line {
		if b == ' ' || b == '\t' {
			if !inRun {
				out = append(out, ' ')
			}
			inRun = true
			continue
		}
		inRun = false
		out = append(out, b)
	}
	return out
}
