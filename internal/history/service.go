// internal/history/service.go
package history

import (
	"fmt"
	"time"

	"docvc/internal/errors"
	"docvc/internal/hash"
	"docvc/internal/snapshot"

	"go.uber.org/zap"
)

// Service runs the commit transaction: detect change, snapshot the file,
// append to the log, persist. Everything happens under the repository lock
// and rolls back on failure.
type Service struct {
	store       *Store
	snapshots   *snapshot.Store
	detector    *Detector
	lock        *Lock
	lockTimeout time.Duration
	logger      *zap.Logger
}

func NewService(store *Store, snapshots *snapshot.Store, detector *Detector, lock *Lock, lockTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		snapshots:   snapshots,
		detector:    detector,
		lock:        lock,
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

// Commit records a new version of the document. When the content is
// unchanged since the last commit the transaction refuses unless force is
// set; that refusal is recoverable, not a failure of the repository.
func (s *Service) Commit(content []byte, filename, message string, force bool) (*Commit, error) {
	if filename == "" {
		return nil, errors.Validation("filename is required")
	}
	if len(message) > MaxMessageLen {
		return nil, errors.Validation(fmt.Sprintf("message exceeds %d bytes", MaxMessageLen))
	}

	if err := s.lock.Acquire(s.lockTimeout); err != nil {
		return nil, err
	}
	defer s.lock.Release()

	if err := s.snapshots.EnsureDir(); err != nil {
		return nil, errors.StorageWrite("commit", err)
	}

	hist, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	latest, _ := hist.Latest()
	if !s.detector.HasChanged(content, latest) {
		if !force {
			return nil, errors.Unchanged(filename)
		}
		s.logger.Info("committing unchanged content under force",
			zap.String("filename", filename))
	}

	id := NextID(hist.IDs())

	if _, err := s.snapshots.Write(id, filename, content); err != nil {
		return nil, errors.StorageWrite("commit", err)
	}

	commit := Commit{
		ID:        id,
		Timestamp: time.Now().UTC().Format(TimestampFormat),
		Message:   message,
		Filename:  filename,
		Hash:      hash.Sum(content),
	}

	if err := s.store.Append(commit); err != nil {
		// Remove the snapshot so a half-committed version is never
		// mistaken for a deliberate one.
		if rmErr := s.snapshots.Remove(id, filename); rmErr != nil {
			s.logger.Error("rollback failed, snapshot left behind",
				zap.String("version", id),
				zap.Error(rmErr))
		}
		return nil, fmt.Errorf("appending commit %s: %w", id, err)
	}

	s.logger.Info("committed",
		zap.String("version", commit.ID),
		zap.String("filename", commit.Filename),
		zap.String("hash", commit.Hash[:12]))

	return &commit, nil
}
