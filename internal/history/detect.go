// internal/history/detect.go
package history

import (
	"docvc/internal/hash"
	"docvc/internal/snapshot"

	"go.uber.org/zap"
)

// Detector decides whether the working document changed since the last
// commit. The result is advisory; the commit transaction decides what to
// do with it.
type Detector struct {
	policy    hash.Normalization
	snapshots *snapshot.Store
	logger    *zap.Logger
}

func NewDetector(policy hash.Normalization, snapshots *snapshot.Store, logger *zap.Logger) *Detector {
	return &Detector{
		policy:    policy,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Policy returns the active normalization policy.
func (d *Detector) Policy() hash.Normalization {
	return d.policy
}

// HasChanged reports whether current differs from the latest commit. With
// no prior commit it always reports changed. Comparison is exact-byte
// unless a normalization policy was selected explicitly.
func (d *Detector) HasChanged(current []byte, latest *Commit) bool {
	if latest == nil {
		return true
	}

	if d.policy == hash.NormalizeNone {
		return hash.Sum(current) != latest.Hash
	}

	// Commits store raw-byte hashes, so a normalized comparison has to
	// recompute both sides from the snapshot content.
	previous, err := d.snapshots.Read(latest.ID, latest.Filename)
	if err != nil {
		d.logger.Warn("cannot read latest snapshot for normalized comparison, assuming changed",
			zap.String("version", latest.ID),
			zap.Error(err))
		return true
	}

	return hash.SumNormalized(current, d.policy) != hash.SumNormalized(previous, d.policy)
}
