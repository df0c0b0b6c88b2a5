package rtc

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(kernel string) Key {
	return Key{Kernel: kernel, Arch: "gfx90a", Signature: "aaaabbbbccccdddd"}
}

func TestCacheStoreLookup(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{})
	require.NoError(t, err)

	key := testKey("fft_stage_fwd_radix4_sp_ci_unit")
	binary := []byte("fake device binary")
	require.NoError(t, cache.Store(key, binary))

	got, err := cache.Lookup(key)
	require.NoError(t, err)
	assert.Equal(t, binary, got)
}

func TestCacheLookupMiss(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{})
	require.NoError(t, err)

	_, err = cache.Lookup(testKey("never_stored"))
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestCacheKeyComponentsSeparate(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{})
	require.NoError(t, err)

	key := testKey("fft_stage_fwd_radix2_sp_ci_unit")
	require.NoError(t, cache.Store(key, []byte("gfx90a build")))

	otherArch := key
	otherArch.Arch = "gfx1100"
	_, err = cache.Lookup(otherArch)
	assert.ErrorIs(t, err, ErrNotCached, "arch must separate entries")

	otherSig := key
	otherSig.Signature = "0123456789abcdef"
	_, err = cache.Lookup(otherSig)
	assert.ErrorIs(t, err, ErrNotCached, "generator signature must separate entries")

	require.NoError(t, cache.Store(otherArch, []byte("gfx1100 build")))
	got, err := cache.Lookup(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("gfx90a build"), got)
}

func TestCacheStoreIdempotent(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{})
	require.NoError(t, err)

	key := testKey("fft_stage_fwd_radix8_dp_ci_unit")
	binary := []byte("binary")
	require.NoError(t, cache.Store(key, binary))
	require.NoError(t, cache.Store(key, binary))

	entries, err := cache.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCacheStoreDivergent(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{})
	require.NoError(t, err)

	key := testKey("fft_stage_fwd_radix3_sp_ci_unit")
	require.NoError(t, cache.Store(key, []byte("first")))
	err = cache.Store(key, []byte("second"))
	assert.ErrorIs(t, err, ErrDivergentEntry)

	got, err := cache.Lookup(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got, "divergent store must not touch the entry")
}

func TestCachePersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	key := testKey("fft_chirp_fwd_len17_pad64_dp_ci")
	binary := []byte("persisted binary")

	cache, err := Open(dir, CacheOptions{})
	require.NoError(t, err)
	require.NoError(t, cache.Store(key, binary))

	reopened, err := Open(dir, CacheOptions{})
	require.NoError(t, err)
	got, err := reopened.Lookup(key)
	require.NoError(t, err)
	assert.Equal(t, binary, got)
}

func TestCacheIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.bin"), []byte("x"), 0o644))

	cache, err := Open(dir, CacheOptions{})
	require.NoError(t, err)
	entries, err := cache.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCacheClearMismatched(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{})
	require.NoError(t, err)

	current := testKey("fft_stage_fwd_radix4_sp_ci_unit")
	stale := Key{Kernel: "fft_stage_fwd_radix4_sp_ci_unit", Arch: "gfx90a", Signature: "0000000000000000"}
	require.NoError(t, cache.Store(current, []byte("current")))
	require.NoError(t, cache.Store(stale, []byte("stale")))

	require.NoError(t, cache.ClearMismatched(current.Signature))

	_, err = cache.Lookup(stale)
	assert.ErrorIs(t, err, ErrNotCached)
	got, err := cache.Lookup(current)
	require.NoError(t, err)
	assert.Equal(t, []byte("current"), got)
}

func TestCachePruneLRU(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{})
	require.NoError(t, err)

	// Deterministic clock so mtimes order the entries.
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	oldest := testKey("kernel_a")
	middle := testKey("kernel_b")
	newest := testKey("kernel_c")
	payload := make([]byte, 100)
	for i, key := range []Key{oldest, middle, newest} {
		require.NoError(t, cache.Store(key, payload))
		mtime := clock.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(filepath.Join(cache.Dir(), key.filename()), mtime, mtime))
	}

	// A lookup counts as use: bump the oldest entry to most recent.
	clock = clock.Add(time.Hour)
	_, err = cache.Lookup(oldest)
	require.NoError(t, err)

	removed, err := cache.Prune(150)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = cache.Lookup(middle)
	assert.ErrorIs(t, err, ErrNotCached)
	_, err = cache.Lookup(newest)
	assert.ErrorIs(t, err, ErrNotCached)
	_, err = cache.Lookup(oldest)
	assert.NoError(t, err, "recently used entry must survive")
}

func TestCacheEvictsOnStore(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{MaxBytes: 250})
	require.NoError(t, err)

	payload := make([]byte, 100)
	first := testKey("kernel_first")
	require.NoError(t, cache.Store(first, payload))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(cache.Dir(), first.filename()), past, past))

	require.NoError(t, cache.Store(testKey("kernel_second"), payload))
	require.NoError(t, cache.Store(testKey("kernel_third"), payload))

	_, err = cache.Lookup(first)
	assert.ErrorIs(t, err, ErrNotCached, "oldest entry evicted when footprint exceeds bound")

	size, err := cache.Footprint()
	require.NoError(t, err)
	assert.LessOrEqual(t, size, int64(250))
}

func TestCacheClear(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{})
	require.NoError(t, err)
	require.NoError(t, cache.Store(testKey("kernel_a"), []byte("a")))
	require.NoError(t, cache.Store(testKey("kernel_b"), []byte("b")))

	require.NoError(t, cache.Clear())
	entries, err := cache.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseEntryName(t *testing.T) {
	key := testKey("fft_stage_fwd_radix4_sp_ci_unit")
	parsed, ok := parseEntryName(key.filename())
	require.True(t, ok)
	assert.Equal(t, key, parsed)

	for _, name := range []string{".lock", "kernel.tmp-123", "a.b.bin", "a.b.c.d.bin"} {
		_, ok := parseEntryName(name)
		assert.False(t, ok, "%q must not parse as an entry", name)
	}
}
