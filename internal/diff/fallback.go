// internal/diff/fallback.go
package diff

import (
	"fmt"
	"strings"
)

// FallbackEngine is the pure in-process backend: an LCS line diff with a
// unified-style rendering. It depends on nothing outside the process, so
// the same two inputs always render the same diff.
type FallbackEngine struct {
	contextLines int
}

func NewFallbackEngine(contextLines int) *FallbackEngine {
	if contextLines < 0 {
		contextLines = 0
	}
	return &FallbackEngine{contextLines: contextLines}
}

func (e *FallbackEngine) Name() string { return "builtin" }

func (e *FallbackEngine) Available() bool { return true }

func (e *FallbackEngine) Diff(oldText, newText string) (string, error) {
	if oldText == newText {
		return "", nil
	}
	ops := diffOps(splitLines(oldText), splitLines(newText))
	return e.render(ops), nil
}

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

type op struct {
	kind opKind
	text string
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// diffOps produces one op per line via longest-common-subsequence
// backtracking.
func diffOps(oldLines, newLines []string) []op {
	m, n := len(oldLines), len(newLines)

	lcs := make([][]int, m+1)
	for i := range lcs {
		lcs[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if oldLines[i-1] == newLines[j-1] {
				lcs[i][j] = lcs[i-1][j-1] + 1
			} else if lcs[i-1][j] >= lcs[i][j-1] {
				lcs[i][j] = lcs[i-1][j]
			} else {
				lcs[i][j] = lcs[i][j-1]
			}
		}
	}

	// Backtrack from the end, then reverse.
	var rev []op
	i, j := m, n
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && oldLines[i-1] == newLines[j-1]:
			rev = append(rev, op{opEqual, oldLines[i-1]})
			i--
			j--
		case j > 0 && (i == 0 || lcs[i][j-1] >= lcs[i-1][j]):
			rev = append(rev, op{opInsert, newLines[j-1]})
			j--
		default:
			rev = append(rev, op{opDelete, oldLines[i-1]})
			i--
		}
	}

	ops := make([]op, len(rev))
	for k := range rev {
		ops[k] = rev[len(rev)-1-k]
	}
	return ops
}

// render groups ops into hunks with surrounding context and prints them in
// unified format. Hunks separated by at most 2*context equal lines merge.
func (e *FallbackEngine) render(ops []op) string {
	// Line number each op starts at, 1-based.
	oldPos := make([]int, len(ops))
	newPos := make([]int, len(ops))
	o, n := 1, 1
	for i, p := range ops {
		oldPos[i], newPos[i] = o, n
		switch p.kind {
		case opEqual:
			o++
			n++
		case opDelete:
			o++
		case opInsert:
			n++
		}
	}

	ctx := e.contextLines
	var buf strings.Builder

	i := 0
	for i < len(ops) {
		if ops[i].kind == opEqual {
			i++
			continue
		}

		// Hunk start: up to ctx equal lines before the first change.
		start := i
		for start > 0 && i-start < ctx && ops[start-1].kind == opEqual {
			start--
		}

		// Walk forward across changes, absorbing equal runs short enough
		// to merge adjacent hunks.
		lastChange := i
		j := i
		for j < len(ops) {
			if ops[j].kind != opEqual {
				lastChange = j
				j++
				continue
			}
			k := j
			for k < len(ops) && ops[k].kind == opEqual {
				k++
			}
			if k == len(ops) || k-j > 2*ctx {
				break
			}
			j = k
		}

		end := lastChange + 1 + ctx
		if end > len(ops) {
			end = len(ops)
		}

		oldCount, newCount := 0, 0
		for k := start; k < end; k++ {
			switch ops[k].kind {
			case opEqual:
				oldCount++
				newCount++
			case opDelete:
				oldCount++
			case opInsert:
				newCount++
			}
		}

		oldStart, newStart := oldPos[start], newPos[start]
		if oldCount == 0 {
			oldStart--
		}
		if newCount == 0 {
			newStart--
		}

		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
		for k := start; k < end; k++ {
			switch ops[k].kind {
			case opEqual:
				buf.WriteByte(' ')
			case opDelete:
				buf.WriteByte('-')
			case opInsert:
				buf.WriteByte('+')
			}
			buf.WriteString(ops[k].text)
			buf.WriteByte('\n')
		}

		i = end
	}

	return buf.String()
}

// Stat summarizes a rendered diff.
type Stat struct {
	Additions int
	Deletions int
}

// Statistics counts added and removed lines in a unified rendering.
func Statistics(rendered string) Stat {
	var st Stat
	for _, line := range strings.Split(rendered, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			st.Additions++
		case strings.HasPrefix(line, "-"):
			st.Deletions++
		}
	}
	return st
}
