package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/templit/internal/errors"
	"github.com/conneroisu/templit/internal/logging"
)

// Cloner is the injected clone/fetch capability. Implementations are opaque
// to the cache; failures propagate to callers with repository context and are
// not retried here.
type Cloner interface {
	Clone(ctx context.Context, repoURL, branch, destDir string) error
}

// defaultBranches never contribute a suffix to the repo hash.
var defaultBranches = map[string]bool{
	"":       true,
	"main":   true,
	"master": true,
}

// stagingPrefix marks in-progress population directories. Staging directories
// are invisible to the sweep until the final rename lands.
const stagingPrefix = ".staging-"

// PopulateOptions configures cache population.
type PopulateOptions struct {
	// TTLHours is the entry's time-to-live; zero means DefaultTTLHours.
	TTLHours float64
}

// Manager owns a cache root directory and the lifecycle of every entry in it.
type Manager struct {
	cacheDir      string
	defaultBranch string
	cloner        Cloner
	logger        logging.Logger
	now           func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock substitutes the time source, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithDefaultBranch overrides the branch recorded for entries cloned without
// an explicit branch.
func WithDefaultBranch(branch string) Option {
	return func(m *Manager) { m.defaultBranch = branch }
}

// NewManager creates a cache manager rooted at cacheDir. The cloner performs
// all network fetches; the logger receives cache_hit/cache_miss/... events.
func NewManager(cacheDir string, cloner Cloner, logger logging.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	m := &Manager{
		cacheDir:      cacheDir,
		defaultBranch: "main",
		cloner:        cloner,
		logger:        logger.WithComponent("cache"),
		now:           time.Now,
		locks:         make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CacheDir returns the cache root.
func (m *Manager) CacheDir() string {
	return m.cacheDir
}

// DefaultBranch returns the branch recorded when none is requested.
func (m *Manager) DefaultBranch() string {
	return m.defaultBranch
}

// ResolveRepoDirectory derives the deterministic cache key and entry
// directory for a repository reference. Default branches (main/master/absent)
// never add a hash suffix.
func (m *Manager) ResolveRepoDirectory(repoURL, branch string) (repoHash, repoDir string) {
	normalized := NormalizeRepoURL(repoURL)
	protocol := ProtocolFromURL(normalized)
	name := RepoNameFromURL(normalized)

	if !defaultBranches[branch] {
		name += "-" + sanitizeName(branch)
	}

	repoHash = protocol + "/" + name
	repoDir = filepath.Join(m.cacheDir, protocol, name)
	return repoHash, repoDir
}

// GenerateRepoHash returns the deterministic cache key for (repoURL, branch).
func (m *Manager) GenerateRepoHash(repoURL, branch string) string {
	hash, _ := m.ResolveRepoDirectory(repoURL, branch)
	return hash
}

// IsExpired reports whether metadata is stale. Missing metadata or a missing
// lastUpdated timestamp counts as expired. The boundary is inclusive: an
// entry whose age exactly equals the TTL is expired.
func (m *Manager) IsExpired(meta *Metadata, ttlOverride ...float64) bool {
	if meta == nil || meta.LastUpdated.IsZero() {
		return true
	}

	ttl := meta.TTLHours
	if len(ttlOverride) > 0 {
		ttl = ttlOverride[0]
	}
	if ttl <= 0 {
		ttl = DefaultTTLHours
	}

	age := m.now().Sub(meta.LastUpdated)
	return age >= time.Duration(ttl*float64(time.Hour))
}

// DetectCacheCorruption reports whether the entry for repoHash is unusable:
// directory absent, sidecar absent, or metadata failing the shape check.
func (m *Manager) DetectCacheCorruption(repoHash string) bool {
	repoDir := m.hashDir(repoHash)

	info, err := os.Stat(repoDir)
	if err != nil || !info.IsDir() {
		return true
	}

	meta, err := readMetadataFile(filepath.Join(repoDir, MetadataFileName))
	if err != nil || meta == nil {
		return true
	}

	return !meta.shapeValid()
}

// GetCacheMetadata reads the metadata sidecar for repoHash. A missing file
// returns (nil, nil); only genuine read failures return an error.
func (m *Manager) GetCacheMetadata(repoHash string) (*Metadata, error) {
	return readMetadataFile(filepath.Join(m.hashDir(repoHash), MetadataFileName))
}

// UpdateCacheMetadata overwrites the metadata sidecar for repoHash.
func (m *Manager) UpdateCacheMetadata(repoHash string, meta *Metadata) error {
	dir := m.hashDir(repoHash)
	if err := writeMetadataFile(dir, meta); err != nil {
		return errors.NewCacheError("metadata_write_failed",
			"failed to write cache metadata for "+repoHash, err)
	}
	return nil
}

// GetCachedRepo returns the entry directory for (repoURL, branch) when it is
// present, unexpired, and uncorrupted. All three miss conditions return
// ok=false without error.
func (m *Manager) GetCachedRepo(repoURL, branch string) (string, bool) {
	repoHash, repoDir := m.ResolveRepoDirectory(repoURL, branch)

	if m.DetectCacheCorruption(repoHash) {
		return "", false
	}

	meta, err := m.GetCacheMetadata(repoHash)
	if err != nil || meta == nil {
		return "", false
	}
	if m.IsExpired(meta) {
		return "", false
	}

	return repoDir, true
}

// PopulateCache clones or copies the source into the entry directory and
// writes fresh metadata. Population builds the entry in a staging directory
// and renames it into place, so concurrent readers observe the entry as
// either fully absent or fully complete. Upstream clone failures propagate
// with repository context.
func (m *Manager) PopulateCache(ctx context.Context, repoURL, branch string, opts PopulateOptions) (string, error) {
	repoHash, repoDir := m.ResolveRepoDirectory(repoURL, branch)

	unlock := m.lockHash(repoHash)
	defer unlock()

	normalized := NormalizeRepoURL(repoURL)
	protocol := ProtocolFromURL(normalized)

	if err := m.ensureDir(filepath.Dir(repoDir)); err != nil {
		return "", err
	}

	staging, err := os.MkdirTemp(filepath.Dir(repoDir), stagingPrefix)
	if err != nil {
		return "", errors.NewCacheError("staging_create_failed",
			"failed to create staging directory for "+repoHash, err)
	}
	defer os.RemoveAll(staging)

	if protocol == "local" {
		if err := copyTree(expandHome(normalized), staging); err != nil {
			return "", errors.NewUpstreamFetchError(repoURL, branch, err)
		}
	} else {
		if err := m.cloner.Clone(ctx, normalized, branch, staging); err != nil {
			return "", errors.NewUpstreamFetchError(repoURL, branch, err)
		}
	}

	ttl := opts.TTLHours
	if ttl <= 0 {
		ttl = DefaultTTLHours
	}
	meta := &Metadata{
		RepoURL:     normalized,
		BranchName:  m.branchName(branch),
		LastUpdated: m.now().UTC(),
		TTLHours:    ttl,
	}
	if err := writeMetadataFile(staging, meta); err != nil {
		return "", errors.NewCacheError("metadata_write_failed",
			"failed to write cache metadata for "+repoHash, err)
	}

	// Last writer wins: drop any previous entry, then land the staged one.
	if err := os.RemoveAll(repoDir); err != nil {
		return "", errors.NewCacheError("entry_replace_failed",
			"failed to remove previous cache entry "+repoHash, err)
	}
	if err := os.Rename(staging, repoDir); err != nil {
		return "", errors.NewCacheError("entry_commit_failed",
			"failed to commit cache entry "+repoHash, err)
	}

	m.logger.LogOperation("cache_populate", map[string]interface{}{
		"repoUrl":  repoURL,
		"branch":   meta.BranchName,
		"repoHash": repoHash,
		"ttlHours": ttl,
	})

	return repoDir, nil
}

// EnsureRepositoryCached returns the entry directory, populating it first on
// a miss. Hits and misses are both logged as operations.
func (m *Manager) EnsureRepositoryCached(ctx context.Context, repoURL, branch string, opts PopulateOptions) (string, error) {
	repoHash, _ := m.ResolveRepoDirectory(repoURL, branch)

	if repoDir, ok := m.GetCachedRepo(repoURL, branch); ok {
		m.logger.LogOperation("cache_hit", map[string]interface{}{
			"repoUrl":  repoURL,
			"branch":   m.branchName(branch),
			"repoHash": repoHash,
		})
		return repoDir, nil
	}

	m.logger.LogOperation("cache_miss", map[string]interface{}{
		"repoUrl":  repoURL,
		"branch":   m.branchName(branch),
		"repoHash": repoHash,
	})

	return m.PopulateCache(ctx, repoURL, branch, opts)
}

// RefreshCache re-populates an existing slot, preserving its current TTL and
// advancing lastUpdated.
func (m *Manager) RefreshCache(ctx context.Context, repoURL, branch string) (string, error) {
	repoHash, _ := m.ResolveRepoDirectory(repoURL, branch)

	ttl := float64(DefaultTTLHours)
	if meta, err := m.GetCacheMetadata(repoHash); err == nil && meta != nil && meta.TTLHours > 0 {
		ttl = meta.TTLHours
	}

	repoDir, err := m.PopulateCache(ctx, repoURL, branch, PopulateOptions{TTLHours: ttl})
	if err != nil {
		return "", err
	}

	m.logger.LogOperation("cache_refresh", map[string]interface{}{
		"repoUrl":  repoURL,
		"branch":   m.branchName(branch),
		"repoHash": repoHash,
		"ttlHours": ttl,
	})

	return repoDir, nil
}

// ClearExpiredEntries sweeps the cache, removing every entry that is expired
// or corrupt (including metadata-less orphan directories). A failure removing
// one entry does not abort the sweep of the others. Returns the removed
// count. Staging directories are skipped; atomic-rename population keeps
// in-progress entries invisible here.
func (m *Manager) ClearExpiredEntries() (int, error) {
	protocols, err := os.ReadDir(m.cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.NewCacheError("sweep_failed", "failed to read cache root", err)
	}

	removed := 0
	failed := 0
	for _, protocol := range protocols {
		if !protocol.IsDir() || strings.HasPrefix(protocol.Name(), ".") {
			continue
		}

		entries, err := os.ReadDir(filepath.Join(m.cacheDir, protocol.Name()))
		if err != nil {
			failed++
			m.logger.Warn(context.Background(), err, "failed to read cache protocol directory",
				"protocol", protocol.Name())
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}

			repoHash := protocol.Name() + "/" + entry.Name()
			meta, metaErr := m.GetCacheMetadata(repoHash)
			stale := m.DetectCacheCorruption(repoHash) || metaErr != nil || m.IsExpired(meta)
			if !stale {
				continue
			}

			entryDir := filepath.Join(m.cacheDir, protocol.Name(), entry.Name())
			if err := os.RemoveAll(entryDir); err != nil {
				failed++
				m.logger.Warn(context.Background(), err, "failed to remove cache entry",
					"repoHash", repoHash)
				continue
			}

			removed++
			m.logger.LogOperation("cache_evict", map[string]interface{}{
				"repoHash": repoHash,
			})
		}
	}

	if failed > 0 {
		m.logger.Warn(context.Background(), nil, "cache sweep completed with failures",
			"removed", removed, "failed", failed)
	}

	return removed, nil
}

// EnsureCacheDirectory creates the cache root if needed. Idempotent.
func (m *Manager) EnsureCacheDirectory() error {
	return m.ensureDir(m.cacheDir)
}

// EnsureRepoDirectory creates the entry directory for repoHash if needed.
// Idempotent.
func (m *Manager) EnsureRepoDirectory(repoHash string) error {
	return m.ensureDir(m.hashDir(repoHash))
}

func (m *Manager) ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewCacheError("mkdir_failed", "failed to create directory "+dir, err)
	}
	return nil
}

func (m *Manager) hashDir(repoHash string) string {
	return filepath.Join(m.cacheDir, filepath.FromSlash(repoHash))
}

func (m *Manager) branchName(branch string) string {
	if branch == "" {
		return m.defaultBranch
	}
	return branch
}

// lockHash serializes population per repo hash. Different hashes proceed in
// parallel.
func (m *Manager) lockHash(repoHash string) func() {
	m.mu.Lock()
	lock, ok := m.locks[repoHash]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[repoHash] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
