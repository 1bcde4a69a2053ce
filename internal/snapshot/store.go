// internal/snapshot/store.go
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// snapshotName matches {id}_{filename}, e.g. v003_draft.md.
var snapshotName = regexp.MustCompile(`^(v(\d+))_(.+)$`)

// Entry describes one snapshot file found in the versions directory.
type Entry struct {
	ID       string
	Seq      int
	Filename string
	Name     string
}

// Store keeps one immutable file per commit in the versions directory,
// named {id}_{filename}, with a small LRU cache in front of reads.
type Store struct {
	root   string
	cache  *lru.Cache[string, []byte]
	logger *zap.Logger
}

type Options struct {
	Root      string
	CacheSize int
}

func New(opts Options, logger *zap.Logger) (*Store, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("versions directory is required")
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = 64
	}

	cache, err := lru.New[string, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot cache: %w", err)
	}

	return &Store{
		root:   opts.Root,
		cache:  cache,
		logger: logger,
	}, nil
}

// Root returns the versions directory path.
func (s *Store) Root() string {
	return s.root
}

// EnsureDir creates the versions directory if it does not exist.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("creating versions directory: %w", err)
	}
	return nil
}

func Name(id, filename string) string {
	return id + "_" + filename
}

// Path returns where the snapshot for (id, filename) lives.
func (s *Store) Path(id, filename string) string {
	return filepath.Join(s.root, Name(id, filename))
}

// Write stores a byte-for-byte copy of content for the given commit.
// Snapshots are written once and never mutated.
func (s *Store) Write(id, filename string, content []byte) (string, error) {
	if err := s.EnsureDir(); err != nil {
		return "", err
	}

	path := s.Path(id, filename)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("writing snapshot %s: %w", Name(id, filename), err)
	}

	s.cache.Add(Name(id, filename), content)
	return path, nil
}

// Read returns the snapshot bytes for (id, filename).
func (s *Store) Read(id, filename string) ([]byte, error) {
	name := Name(id, filename)
	if content, ok := s.cache.Get(name); ok {
		return content, nil
	}

	content, err := os.ReadFile(s.Path(id, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("reading snapshot %s: %w", name, err)
	}

	s.cache.Add(name, content)
	return content, nil
}

// Remove deletes a snapshot file. Used only to roll back a failed commit.
func (s *Store) Remove(id, filename string) error {
	s.cache.Remove(Name(id, filename))
	if err := os.Remove(s.Path(id, filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing snapshot %s: %w", Name(id, filename), err)
	}
	return nil
}

// Scan lists snapshot files matching the naming convention, ordered by
// their embedded sequence number. Used to rebuild a lost commit log.
func (s *Store) Scan() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning versions directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		m := snapshotName.FindStringSubmatch(de.Name())
		if m == nil {
			if s.logger != nil {
				s.logger.Debug("skipping unrecognized file in versions directory",
					zap.String("name", de.Name()))
			}
			continue
		}
		seq, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			ID:       m[1],
			Seq:      seq,
			Filename: m[3],
			Name:     de.Name(),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	return entries, nil
}
