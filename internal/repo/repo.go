// internal/repo/repo.go
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docvc/internal/config"
	"docvc/internal/diff"
	"docvc/internal/history"
	"docvc/internal/logging"
	"docvc/internal/snapshot"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const (
	// DirName is the repository directory created next to the document.
	DirName    = ".docvc"
	ConfigName = "config.json"
	lockName   = "commits.json.lock"
	cacheDir   = "cache"
)

var ErrNotFound = errors.New("repository not found (run init first)")

// Repository is the explicit handle tying every component together. It is
// passed to whoever needs it; there is no ambient global state.
type Repository struct {
	Root   string
	Dir    string
	Config *config.Config

	DB        *badger.DB
	Snapshots *snapshot.Store
	Commits   *history.Store
	Detector  *history.Detector
	Resolver  *history.Resolver
	Service   *history.Service
	Differ    *diff.Selector
	DiffCache *diff.Cache

	Logger *zap.Logger
}

// Initialize creates the repository directory next to the document and
// writes the initial config.
func Initialize(root, document string) error {
	dir := filepath.Join(root, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating repository directory: %w", err)
	}

	cfg := config.Default()
	cfg.Document = document

	for _, sub := range []string{cfg.VersionsDir, cfg.ExportsDir, cacheDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", sub, err)
		}
	}

	// Seed an empty commit log so a fresh repository is never mistaken
	// for a corrupted one.
	recordPath := filepath.Join(dir, history.RecordName)
	if _, err := os.Stat(recordPath); os.IsNotExist(err) {
		if err := os.WriteFile(recordPath, []byte("{\n  \"commits\": []\n}\n"), 0644); err != nil {
			return fmt.Errorf("writing initial commit log: %w", err)
		}
	}

	configPath := filepath.Join(dir, ConfigName)
	if _, err := os.Stat(configPath); err == nil {
		return nil // already initialized, keep existing config
	}
	return config.Save(configPath, cfg)
}

// FindRoot walks upward from startDir looking for the repository
// directory.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, DirName)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", ErrNotFound
}

// Options adjusts how a repository is opened.
type Options struct {
	// ForceFallbackDiff overrides the config to skip the external diff
	// tool. Plumbed in by the caller, never read from the environment.
	ForceFallbackDiff bool
}

// Open locates and wires up a repository starting from startDir. A nil
// logger gets built from the configured log level.
func Open(startDir string, opts Options, logger *zap.Logger) (*Repository, error) {
	root, err := FindRoot(startDir)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(root, DirName)

	cfg, err := config.Load(filepath.Join(dir, ConfigName))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if logger == nil {
		base, err := logging.NewLogger(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("building logger: %w", err)
		}
		logger = base.Logger
	}

	snapshots, err := snapshot.New(snapshot.Options{
		Root: filepath.Join(dir, cfg.VersionsDir),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing snapshot store: %w", err)
	}

	policy, err := cfg.NormalizationPolicy()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Badger takes an exclusive directory lock, so a second process (a
	// diff while watch runs, say) cannot open the cache. The cache is an
	// optimization; such a process runs without it.
	var db *badger.DB
	var diffCache *diff.Cache
	badgerOpts := badger.DefaultOptions(filepath.Join(dir, cacheDir))
	badgerOpts.Logger = nil // Disable logging noise
	db, err = badger.Open(badgerOpts)
	if err != nil {
		logger.Warn("diff cache unavailable, continuing without it", zap.Error(err))
		db = nil
	} else {
		diffCache, err = diff.NewCache(db, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing diff cache: %w", err)
		}
	}

	commits := history.NewStore(dir, snapshots, logger)
	detector := history.NewDetector(policy, snapshots, logger)
	lock := history.NewLock(filepath.Join(dir, lockName), logger)
	lockTimeout := time.Duration(cfg.LockTimeoutSeconds) * time.Second
	service := history.NewService(commits, snapshots, detector, lock, lockTimeout, logger)

	selector := diff.NewSelector(
		diff.NewExternalEngine(cfg.DiffTool, logger),
		diff.NewFallbackEngine(3),
		diff.SelectorOptions{
			ForceFallback: cfg.ForceFallbackDiff || opts.ForceFallbackDiff,
			Cache:         diffCache,
		},
		logger,
	)

	return &Repository{
		Root:      root,
		Dir:       dir,
		Config:    cfg,
		DB:        db,
		Snapshots: snapshots,
		Commits:   commits,
		Detector:  detector,
		Resolver:  history.NewResolver(commits),
		Service:   service,
		Differ:    selector,
		DiffCache: diffCache,
		Logger:    logger,
	}, nil
}

// DocumentPath returns the absolute path of the working document.
func (r *Repository) DocumentPath() string {
	return filepath.Join(r.Root, r.Config.Document)
}

// ReadDocument reads the live working document.
func (r *Repository) ReadDocument() ([]byte, error) {
	content, err := os.ReadFile(r.DocumentPath())
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", r.Config.Document, err)
	}
	return content, nil
}

// TargetContent materializes one side of a diff request: snapshot bytes
// for a commit, the working file for the live sentinel.
func (r *Repository) TargetContent(t history.Target) ([]byte, string, error) {
	if t.Live {
		content, err := r.ReadDocument()
		return content, r.Config.Document + " (working copy)", err
	}

	content, err := r.Snapshots.Read(t.Commit.ID, t.Commit.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("reading snapshot for %s: %w", t.Commit.ID, err)
	}
	return content, t.Commit.ID, nil
}

// DiffPair resolves two version specifiers and renders their diff.
func (r *Repository) DiffPair(specA, specB string) (*diff.Result, string, string, error) {
	left, right, err := r.Resolver.ResolvePair(specA, specB)
	if err != nil {
		return nil, "", "", err
	}

	leftContent, leftLabel, err := r.TargetContent(left)
	if err != nil {
		return nil, "", "", err
	}
	rightContent, rightLabel, err := r.TargetContent(right)
	if err != nil {
		return nil, "", "", err
	}

	result, err := r.Differ.Diff(string(leftContent), string(rightContent))
	if err != nil {
		return nil, "", "", err
	}
	return result, leftLabel, rightLabel, nil
}

// Close releases the cache and database handles.
func (r *Repository) Close() error {
	var errs []error

	if r.DiffCache != nil {
		r.DiffCache.Close()
	}
	if r.DB != nil {
		if err := r.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing cache database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("closing repository: %v", errs)
	}
	return nil
}
