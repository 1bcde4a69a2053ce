// internal/history/resolve.go
package history

import (
	"docvc/internal/errors"
)

// SpecLatest is the version specifier naming the most recent commit.
const SpecLatest = "latest"

// Target is one side of a diff request: either a commit or the live
// working file.
type Target struct {
	Commit *Commit
	Live   bool
}

func LiveFile() Target {
	return Target{Live: true}
}

func commitTarget(c *Commit) Target {
	return Target{Commit: c}
}

// Resolver maps version specifiers to commits. Read-only; it never
// mutates the store and is safe to call repeatedly.
type Resolver struct {
	store *Store
}

func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve maps a single specifier to a commit. Empty and "latest" both
// mean the most recent commit.
func (r *Resolver) Resolve(spec string) (*Commit, error) {
	hist, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	return resolveIn(hist, spec)
}

func resolveIn(hist *History, spec string) (*Commit, error) {
	if spec == "" || spec == SpecLatest {
		latest, ok := hist.Latest()
		if !ok {
			return nil, errors.NoCommits("resolve")
		}
		return latest, nil
	}

	c, ok := hist.ByID(spec)
	if !ok {
		return nil, errors.VersionNotFound("resolve", spec)
	}
	return c, nil
}

// ResolvePair maps a pair of optional specifiers to the two sides of a
// diff, in order:
//
//	both empty    -> the two most recent commits
//	one given     -> that commit against the live file
//	both given    -> those two commits, in the order given
func (r *Resolver) ResolvePair(specA, specB string) (Target, Target, error) {
	hist, err := r.store.Load()
	if err != nil {
		return Target{}, Target{}, err
	}

	switch {
	case specA == "" && specB == "":
		if len(hist.Commits) < 2 {
			return Target{}, Target{}, &errors.Error{
				Kind:    errors.KindNoCommits,
				Op:      "resolve",
				Message: "need at least two commits to compare",
			}
		}
		older := &hist.Commits[len(hist.Commits)-2]
		newer := &hist.Commits[len(hist.Commits)-1]
		return commitTarget(older), commitTarget(newer), nil

	case specB == "":
		c, err := resolveIn(hist, specA)
		if err != nil {
			return Target{}, Target{}, err
		}
		return commitTarget(c), LiveFile(), nil

	case specA == "":
		c, err := resolveIn(hist, specB)
		if err != nil {
			return Target{}, Target{}, err
		}
		return commitTarget(c), LiveFile(), nil

	default:
		a, err := resolveIn(hist, specA)
		if err != nil {
			return Target{}, Target{}, err
		}
		b, err := resolveIn(hist, specB)
		if err != nil {
			return Target{}, Target{}, err
		}
		return commitTarget(a), commitTarget(b), nil
	}
}
