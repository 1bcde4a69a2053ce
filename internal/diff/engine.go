// Package diff provides pluggable text comparison: an external-tool
// backend with a deterministic in-process fallback, selected at runtime by
// availability. Both backends render the empty string for identical
// inputs, which callers rely on as the "documents are identical" signal.
package diff

import (
	"docvc/internal/errors"
	"docvc/internal/hash"

	"go.uber.org/zap"
)

// Engine is one comparison backend.
type Engine interface {
	// Name identifies the backend in diagnostics and cache keys.
	Name() string
	// Available is a cheap probe; it must not invoke the backend.
	Available() bool
	// Diff renders the difference between two texts. Identical inputs
	// render as "".
	Diff(oldText, newText string) (string, error)
}

// Result carries a rendered diff plus which backend produced it.
type Result struct {
	Rendered  string
	ServedBy  string
	FromCache bool
}

// Selector tries the external backend first and falls back to the
// in-process engine when it is unavailable or fails at call time. ServedBy
// records the choice for diagnostics; correctness never depends on it.
type Selector struct {
	external Engine
	fallback Engine

	// forceFallback skips the external backend entirely. Passed in by the
	// caller, never read from the environment here.
	forceFallback bool

	cache  *Cache
	logger *zap.Logger
}

type SelectorOptions struct {
	ForceFallback bool
	Cache         *Cache
}

func NewSelector(external, fallback Engine, opts SelectorOptions, logger *zap.Logger) *Selector {
	return &Selector{
		external:      external,
		fallback:      fallback,
		forceFallback: opts.ForceFallback,
		cache:         opts.Cache,
		logger:        logger,
	}
}

// pick returns the backend to try first.
func (s *Selector) pick() Engine {
	if s.forceFallback {
		return s.fallback
	}
	if s.external != nil && s.external.Available() {
		return s.external
	}
	return s.fallback
}

// Diff compares two texts with the selected backend, consulting the cache
// keyed by content fingerprints when one is attached.
func (s *Selector) Diff(oldText, newText string) (*Result, error) {
	oldHash := hash.Sum([]byte(oldText))
	newHash := hash.Sum([]byte(newText))

	engine := s.pick()

	if rendered, ok := s.cacheGet(oldHash, newHash, engine.Name()); ok {
		return &Result{Rendered: rendered, ServedBy: engine.Name(), FromCache: true}, nil
	}

	rendered, err := engine.Diff(oldText, newText)
	if err != nil && engine != s.fallback && errors.IsKind(err, errors.KindToolUnavailable) {
		// The availability probe was stale or the tool died mid-call.
		s.logger.Warn("external diff backend failed, using fallback",
			zap.String("backend", engine.Name()),
			zap.Error(err))

		engine = s.fallback
		if cached, ok := s.cacheGet(oldHash, newHash, engine.Name()); ok {
			return &Result{Rendered: cached, ServedBy: engine.Name(), FromCache: true}, nil
		}
		rendered, err = engine.Diff(oldText, newText)
	}
	if err != nil {
		return nil, err
	}

	s.cachePut(oldHash, newHash, engine.Name(), rendered)

	return &Result{Rendered: rendered, ServedBy: engine.Name()}, nil
}

func (s *Selector) cacheGet(oldHash, newHash, backend string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	return s.cache.Get(oldHash, newHash, backend)
}

func (s *Selector) cachePut(oldHash, newHash, backend, rendered string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(oldHash, newHash, backend, rendered); err != nil {
		s.logger.Debug("diff cache write failed", zap.Error(err))
	}
}
