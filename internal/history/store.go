// internal/history/store.go
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"docvc/internal/errors"
	"docvc/internal/hash"
	"docvc/internal/snapshot"

	"go.uber.org/zap"
)

// RecordName is the commit log file inside the repository directory.
const RecordName = "commits.json"

// Store persists the commit log as a single JSON record. Every mutation
// rewrites the whole record through a temp file and an atomic rename, so
// readers never observe a torn log. A missing or unparseable record is
// rebuilt from the snapshot files instead of failing.
type Store struct {
	path      string
	snapshots *snapshot.Store
	logger    *zap.Logger

	mu        sync.RWMutex
	recovered bool
}

func NewStore(dir string, snapshots *snapshot.Store, logger *zap.Logger) *Store {
	return &Store{
		path:      filepath.Join(dir, RecordName),
		snapshots: snapshots,
		logger:    logger,
	}
}

// Path returns the location of the persisted record.
func (s *Store) Path() string {
	return s.path
}

// Recovered reports whether the last Load had to rebuild the record from
// snapshot files.
func (s *Store) Recovered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recovered
}

// Load reads the commit log from disk. Corruption is not fatal: the log is
// rebuilt from the versions directory and persisted before returning.
func (s *Store) Load() (*History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*History, error) {
	s.recovered = false

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s.recover("commit log missing", nil)
		}
		return nil, fmt.Errorf("reading commit log: %w", err)
	}

	if len(data) == 0 {
		return s.recover("commit log empty", nil)
	}

	var hist History
	if err := json.Unmarshal(data, &hist); err != nil {
		return s.recover("commit log unparseable", err)
	}

	// The pointer is derived state; repair it silently if it drifted.
	if latest, ok := hist.Latest(); ok {
		hist.CurrentVersion = latest.ID
	} else {
		hist.CurrentVersion = ""
	}

	return &hist, nil
}

// recover rebuilds a best-effort history by scanning the versions
// directory, recomputing hashes from snapshot bytes, and persisting the
// result. Messages are lost; IDs and content survive.
func (s *Store) recover(reason string, cause error) (*History, error) {
	s.logger.Warn("rebuilding commit log from snapshots",
		zap.String("path", s.path),
		zap.String("reason", reason),
		zap.Error(cause))

	entries, err := s.snapshots.Scan()
	if err != nil {
		return nil, errors.Corrupted("load", fmt.Errorf("scanning snapshots: %w", err))
	}

	hist := &History{}
	for _, entry := range entries {
		content, err := s.snapshots.Read(entry.ID, entry.Filename)
		if err != nil {
			s.logger.Warn("skipping unreadable snapshot during recovery",
				zap.String("snapshot", entry.Name),
				zap.Error(err))
			continue
		}
		// Original timestamps and messages are gone; the snapshot mtime
		// is the closest surviving record of when the commit happened.
		var timestamp string
		if info, err := os.Stat(s.snapshots.Path(entry.ID, entry.Filename)); err == nil {
			timestamp = info.ModTime().UTC().Format(TimestampFormat)
		}

		hist.Commits = append(hist.Commits, Commit{
			ID:        entry.ID,
			Timestamp: timestamp,
			Message:   "",
			Filename:  entry.Filename,
			Hash:      hash.Sum(content),
		})
	}
	if latest, ok := hist.Latest(); ok {
		hist.CurrentVersion = latest.ID
	}

	if err := s.persist(hist); err != nil {
		return nil, err
	}

	s.recovered = true
	s.logger.Warn("commit log rebuilt",
		zap.Int("commits", len(hist.Commits)),
		zap.String("current_version", hist.CurrentVersion))

	return hist, nil
}

// Append adds a commit to the log and persists the full record. The commit
// must already carry its allocated ID; callers serialize append through the
// repository lock.
func (s *Store) Append(c Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist, err := s.load()
	if err != nil {
		return err
	}

	if _, exists := hist.ByID(c.ID); exists {
		return fmt.Errorf("commit %s already exists", c.ID)
	}

	hist.Commits = append(hist.Commits, c)
	hist.CurrentVersion = c.ID

	return s.persist(hist)
}

// Latest returns the most recent commit, if any.
func (s *Store) Latest() (*Commit, bool, error) {
	hist, err := s.Load()
	if err != nil {
		return nil, false, err
	}
	c, ok := hist.Latest()
	return c, ok, nil
}

// ByID looks up a commit by its exact ID.
func (s *Store) ByID(id string) (*Commit, bool, error) {
	hist, err := s.Load()
	if err != nil {
		return nil, false, err
	}
	c, ok := hist.ByID(id)
	return c, ok, nil
}

// IDs returns all commit IDs in order.
func (s *Store) IDs() ([]string, error) {
	hist, err := s.Load()
	if err != nil {
		return nil, err
	}
	return hist.IDs(), nil
}

// NextID allocates the ID the next commit will use.
func (s *Store) NextID() (string, error) {
	ids, err := s.IDs()
	if err != nil {
		return "", err
	}
	return NextID(ids), nil
}

// persist writes the full record to a temp file in the same directory and
// renames it over the old record. A crash between the two steps leaves the
// previous record intact.
func (s *Store) persist(hist *History) error {
	data, err := json.MarshalIndent(hist, "", "  ")
	if err != nil {
		return errors.StorageWrite("persist", fmt.Errorf("marshaling commit log: %w", err))
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".commits-*.json")
	if err != nil {
		return errors.StorageWrite("persist", fmt.Errorf("creating temp record: %w", err))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.StorageWrite("persist", fmt.Errorf("writing temp record: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.StorageWrite("persist", fmt.Errorf("syncing temp record: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.StorageWrite("persist", fmt.Errorf("closing temp record: %w", err))
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.StorageWrite("persist", fmt.Errorf("replacing commit log: %w", err))
	}

	return nil
}
