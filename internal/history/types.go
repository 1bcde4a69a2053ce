// Package history implements the linear commit log for a single working
// document: durable persistence, change detection, version resolution and
// the commit transaction.
package history

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"docvc/internal/snapshot"
)

// TimestampFormat is the wire format for commit timestamps (UTC).
const TimestampFormat = time.RFC3339

// MaxMessageLen caps commit messages, in bytes.
const MaxMessageLen = 512

// Commit is an immutable record of one document snapshot. Never mutated
// after it is appended to a History.
type Commit struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Filename  string `json:"filename"`
	Hash      string `json:"hash"`
}

// SnapshotName returns the file name of this commit's snapshot.
func (c *Commit) SnapshotName() string {
	return snapshot.Name(c.ID, c.Filename)
}

// History is the persisted commit sequence. Insertion order matches ID
// order; CurrentVersion always names the last commit, or is empty when
// there are none.
type History struct {
	Commits        []Commit `json:"commits"`
	CurrentVersion string   `json:"current_version,omitempty"`
}

func (h *History) Latest() (*Commit, bool) {
	if len(h.Commits) == 0 {
		return nil, false
	}
	return &h.Commits[len(h.Commits)-1], true
}

func (h *History) ByID(id string) (*Commit, bool) {
	for i := range h.Commits {
		if h.Commits[i].ID == id {
			return &h.Commits[i], true
		}
	}
	return nil, false
}

func (h *History) IDs() []string {
	ids := make([]string, len(h.Commits))
	for i := range h.Commits {
		ids[i] = h.Commits[i].ID
	}
	return ids
}

var idPattern = regexp.MustCompile(`^v(\d+)$`)

// NextID returns the first unused ID continuing after the numeric maximum
// of ids. Max-based rather than count-based, so manually deleted versions
// are never reissued.
func NextID(ids []string) string {
	max := 0
	for _, id := range ids {
		m := idPattern.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return FormatID(max + 1)
}

func FormatID(seq int) string {
	return fmt.Sprintf("v%03d", seq)
}
