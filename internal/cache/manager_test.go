package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	templiterrors "github.com/conneroisu/templit/internal/errors"
	"github.com/conneroisu/templit/internal/logging"
)

// fakeCloner writes a marker file into the destination and counts calls.
type fakeCloner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *fakeCloner) Clone(ctx context.Context, repoURL, branch, destDir string) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return os.WriteFile(filepath.Join(destDir, "README.md"), []byte("# "+repoURL+" "+branch), 0o644)
}

func (c *fakeCloner) cloneCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// opRecorder captures LogOperation events.
type opRecorder struct {
	logging.NopLogger
	mu  sync.Mutex
	ops []string
}

func (r *opRecorder) LogOperation(name string, payload map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, name)
}

func (r *opRecorder) operations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

func (r *opRecorder) With(fields ...interface{}) logging.Logger     { return r }
func (r *opRecorder) WithComponent(component string) logging.Logger { return r }

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestManager(t *testing.T) (*Manager, *fakeCloner, *opRecorder, *fakeClock) {
	t.Helper()
	cloner := &fakeCloner{}
	recorder := &opRecorder{}
	clock := newFakeClock()
	m := NewManager(t.TempDir(), cloner, recorder, WithClock(clock.Now))
	return m, cloner, recorder, clock
}

func TestGenerateRepoHash(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	tests := []struct {
		name   string
		url    string
		branch string
		want   string
	}{
		{"shorthand default branch", "user/repo", "", "https/user-repo"},
		{"main branch no suffix", "user/repo", "main", "https/user-repo"},
		{"master branch no suffix", "user/repo", "master", "https/user-repo"},
		{"feature branch suffixed", "user/repo", "develop", "https/user-repo-develop"},
		{"branch name sanitized", "user/repo", "feature/x", "https/user-repo-feature-x"},
		{"full url", "https://github.com/user/repo.git", "", "https/user-repo"},
		{"local path", "/opt/templates/api", "", "local/api"},
		{"scp remote", "git@github.com:user/repo.git", "", "git/user-repo"},
		{"scp remote other owner", "git@github.com:other/repo.git", "", "git/other-repo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.GenerateRepoHash(tt.url, tt.branch))
		})
	}
}

func TestGenerateRepoHashDeterministic(t *testing.T) {
	m, _, _, clock := newTestManager(t)

	first := m.GenerateRepoHash("user/repo", "develop")
	clock.Advance(1000 * time.Hour)
	second := m.GenerateRepoHash("user/repo", "develop")

	assert.Equal(t, first, second, "repo hash must be time-independent")
}

func TestIsExpiredBoundary(t *testing.T) {
	m, _, _, clock := newTestManager(t)

	meta := &Metadata{
		RepoURL:     "https://github.com/user/repo.git",
		BranchName:  "main",
		LastUpdated: clock.Now(),
		TTLHours:    1,
	}

	assert.False(t, m.IsExpired(meta), "fresh entry must not be expired")

	clock.Advance(time.Hour - time.Second)
	assert.False(t, m.IsExpired(meta), "entry just under the TTL must not be expired")

	clock.Advance(time.Second)
	assert.True(t, m.IsExpired(meta), "age exactly equal to the TTL counts as expired")

	assert.True(t, m.IsExpired(nil), "missing metadata counts as expired")
	assert.True(t, m.IsExpired(&Metadata{RepoURL: "x", BranchName: "main", TTLHours: 1}),
		"missing lastUpdated counts as expired")
}

func TestIsExpiredTTLOverride(t *testing.T) {
	m, _, _, clock := newTestManager(t)

	meta := &Metadata{
		RepoURL:     "https://github.com/user/repo.git",
		BranchName:  "main",
		LastUpdated: clock.Now(),
		TTLHours:    48,
	}

	clock.Advance(2 * time.Hour)
	assert.False(t, m.IsExpired(meta), "48h TTL not yet reached")
	assert.True(t, m.IsExpired(meta, 1), "1h override makes the entry stale")
}

func TestPopulateCacheWritesCompleteEntry(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	dir, err := m.PopulateCache(context.Background(), "user/repo", "", PopulateOptions{})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "README.md"))

	meta, err := m.GetCacheMetadata("https/user-repo")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "https://github.com/user/repo.git", meta.RepoURL)
	assert.Equal(t, "main", meta.BranchName)
	assert.Equal(t, float64(DefaultTTLHours), meta.TTLHours)
	assert.False(t, meta.LastUpdated.IsZero())

	// No staging residue may survive population.
	entries, err := os.ReadDir(filepath.Join(m.CacheDir(), "https"))
	require.NoError(t, err)
	for _, entry := range entries {
		assert.Equal(t, "user-repo", entry.Name(), "unexpected entry in cache")
	}
}

func TestPopulateCachePropagatesCloneFailure(t *testing.T) {
	m, cloner, _, _ := newTestManager(t)
	cloner.err = errors.New("connection refused")

	_, err := m.PopulateCache(context.Background(), "user/repo", "develop", PopulateOptions{})
	require.Error(t, err)
	assert.True(t, templiterrors.IsUpstreamFetchError(err))
	assert.Contains(t, err.Error(), "connection refused")

	// A failed population must leave no partial entry behind.
	_, ok := m.GetCachedRepo("user/repo", "develop")
	assert.False(t, ok)
	entries, _ := os.ReadDir(filepath.Join(m.CacheDir(), "https"))
	assert.Empty(t, entries)
}

func TestPopulateCacheLocalCopy(t *testing.T) {
	m, cloner, _, _ := newTestManager(t)

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "template.json"), []byte(`{"id":"demo"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "file.txt"), []byte("x"), 0o644))

	dir, err := m.PopulateCache(context.Background(), src, "", PopulateOptions{})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "template.json"))
	assert.FileExists(t, filepath.Join(dir, "nested", "file.txt"))
	assert.Equal(t, 0, cloner.cloneCount(), "local sources must not invoke the cloner")
}

func TestGetCachedRepoMissConditions(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	ctx := context.Background()

	// Absent entry.
	_, ok := m.GetCachedRepo("user/repo", "")
	assert.False(t, ok)

	// Expired entry.
	_, err := m.PopulateCache(ctx, "user/repo", "", PopulateOptions{TTLHours: 1})
	require.NoError(t, err)
	clock.Advance(48 * time.Hour)
	_, ok = m.GetCachedRepo("user/repo", "")
	assert.False(t, ok, "expired entry must miss without error")

	// Corrupt metadata.
	_, err = m.PopulateCache(ctx, "user/other", "", PopulateOptions{})
	require.NoError(t, err)
	metaPath := filepath.Join(m.CacheDir(), "https", "user-other", MetadataFileName)
	require.NoError(t, os.WriteFile(metaPath, []byte("{not json"), 0o644))
	_, ok = m.GetCachedRepo("user/other", "")
	assert.False(t, ok, "corrupt entry must miss without error")
}

func TestEnsureRepositoryCachedHitAndMiss(t *testing.T) {
	m, cloner, recorder, _ := newTestManager(t)
	ctx := context.Background()

	first, err := m.EnsureRepositoryCached(ctx, "user/repo", "", PopulateOptions{})
	require.NoError(t, err)

	second, err := m.EnsureRepositoryCached(ctx, "user/repo", "", PopulateOptions{})
	require.NoError(t, err)

	assert.Equal(t, first, second, "both calls must return the identical path")
	assert.Equal(t, 1, cloner.cloneCount(), "second call must not clone again")

	ops := recorder.operations()
	assert.Equal(t, []string{"cache_miss", "cache_populate", "cache_hit"}, ops)
}

func TestEnsureRepositoryCachedConcurrentSameHash(t *testing.T) {
	m, cloner, _, _ := newTestManager(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dir, err := m.EnsureRepositoryCached(ctx, "user/repo", "", PopulateOptions{})
			if err != nil {
				t.Errorf("concurrent ensure failed: %v", err)
				return
			}
			results[i] = dir
		}(i)
	}
	wg.Wait()

	for _, dir := range results[1:] {
		assert.Equal(t, results[0], dir)
	}
	// Racing misses may each populate, but serialization guarantees a
	// complete, uncorrupted final entry.
	assert.GreaterOrEqual(t, cloner.cloneCount(), 1)
	dir, ok := m.GetCachedRepo("user/repo", "")
	require.True(t, ok)
	assert.FileExists(t, filepath.Join(dir, "README.md"))
	assert.False(t, m.DetectCacheCorruption("https/user-repo"))
}

func TestRefreshCachePreservesTTLAndAdvancesTimestamp(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	ctx := context.Background()

	_, err := m.PopulateCache(ctx, "user/repo", "", PopulateOptions{TTLHours: 72})
	require.NoError(t, err)

	before, err := m.GetCacheMetadata("https/user-repo")
	require.NoError(t, err)

	clock.Advance(3 * time.Hour)
	_, err = m.RefreshCache(ctx, "user/repo", "")
	require.NoError(t, err)

	after, err := m.GetCacheMetadata("https/user-repo")
	require.NoError(t, err)
	assert.Equal(t, float64(72), after.TTLHours, "refresh must preserve the prior TTL")
	assert.True(t, after.LastUpdated.After(before.LastUpdated), "refresh must advance lastUpdated")
}

func TestClearExpiredEntries(t *testing.T) {
	m, _, _, clock := newTestManager(t)
	ctx := context.Background()

	// Fresh entry with a long TTL survives the sweep.
	_, err := m.PopulateCache(ctx, "user/fresh", "", PopulateOptions{TTLHours: 100})
	require.NoError(t, err)

	// Entry that will be 48h old with a 1h TTL.
	_, err = m.PopulateCache(ctx, "user/stale", "", PopulateOptions{TTLHours: 1})
	require.NoError(t, err)

	// Orphan directory without metadata.
	orphan := filepath.Join(m.CacheDir(), "https", "user-orphan")
	require.NoError(t, os.MkdirAll(orphan, 0o755))

	// In-progress staging directory must be left alone.
	staging := filepath.Join(m.CacheDir(), "https", ".staging-12345")
	require.NoError(t, os.MkdirAll(staging, 0o755))

	clock.Advance(48 * time.Hour)

	removed, err := m.ClearExpiredEntries()
	require.NoError(t, err)
	assert.Equal(t, 2, removed, "exactly the stale entry and the orphan are removed")

	_, ok := m.GetCachedRepo("user/fresh", "")
	assert.True(t, ok, "fresh entry must survive")
	assert.NoDirExists(t, orphan)
	assert.DirExists(t, staging, "staging directories are invisible to the sweep")

	// Idempotent: a second run removes nothing.
	removed, err = m.ClearExpiredEntries()
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestClearExpiredEntriesMissingRoot(t *testing.T) {
	cloner := &fakeCloner{}
	m := NewManager(filepath.Join(t.TempDir(), "never-created"), cloner, nil)

	removed, err := m.ClearExpiredEntries()
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestMetadataRoundTrip(t *testing.T) {
	m, _, _, clock := newTestManager(t)

	meta, err := m.GetCacheMetadata("https/never-populated")
	require.NoError(t, err, "missing metadata must not error")
	assert.Nil(t, meta)

	require.NoError(t, m.EnsureRepoDirectory("https/manual"))
	want := &Metadata{
		RepoURL:     "https://github.com/user/manual.git",
		BranchName:  "main",
		LastUpdated: clock.Now().UTC(),
		TTLHours:    12,
	}
	require.NoError(t, m.UpdateCacheMetadata("https/manual", want))

	got, err := m.GetCacheMetadata("https/manual")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.RepoURL, got.RepoURL)
	assert.Equal(t, want.BranchName, got.BranchName)
	assert.True(t, want.LastUpdated.Equal(got.LastUpdated))
	assert.Equal(t, want.TTLHours, got.TTLHours)
}

func TestDetectCacheCorruption(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	assert.True(t, m.DetectCacheCorruption("https/absent"), "absent directory is corrupt")

	require.NoError(t, m.EnsureRepoDirectory("https/no-metadata"))
	assert.True(t, m.DetectCacheCorruption("https/no-metadata"), "missing sidecar is corrupt")

	require.NoError(t, m.EnsureRepoDirectory("https/bad-shape"))
	require.NoError(t, os.WriteFile(
		filepath.Join(m.CacheDir(), "https", "bad-shape", MetadataFileName),
		[]byte(`{"repoUrl":"x"}`), 0o644))
	assert.True(t, m.DetectCacheCorruption("https/bad-shape"), "shape-check failure is corrupt")

	_, err := m.PopulateCache(ctx, "user/repo", "", PopulateOptions{})
	require.NoError(t, err)
	assert.False(t, m.DetectCacheCorruption("https/user-repo"))
}

func TestEnsureDirectoriesIdempotent(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	require.NoError(t, m.EnsureCacheDirectory())
	require.NoError(t, m.EnsureCacheDirectory())
	require.NoError(t, m.EnsureRepoDirectory("https/user-repo"))
	require.NoError(t, m.EnsureRepoDirectory("https/user-repo"))
	assert.DirExists(t, filepath.Join(m.CacheDir(), "https", "user-repo"))
}
