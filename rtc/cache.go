package rtc

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Key identifies one compiled artifact. All three components participate
// in the on-disk name, so a binary compiled for a different architecture
// or by a different generator version can never be returned by Lookup.
type Key struct {
	Kernel    string // entry-point name
	Arch      string // target architecture identifier
	Signature string // generator signature
}

const entrySuffix = ".bin"

// filename returns the stable on-disk name for the key. Entry-point names
// only contain [a-z0-9_]; arch and signature are sanitized so the dot
// separators stay parseable by external inspection tools.
func (k Key) filename() string {
	return k.Kernel + "." + sanitize(k.Arch) + "." + sanitize(k.Signature) + entrySuffix
}

func (k Key) id() string { return k.filename() }

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, s)
}

// parseEntryName splits an on-disk entry name back into its key. Reports
// false for files that are not cache entries.
func parseEntryName(name string) (Key, bool) {
	if !strings.HasSuffix(name, entrySuffix) {
		return Key{}, false
	}
	parts := strings.Split(strings.TrimSuffix(name, entrySuffix), ".")
	if len(parts) != 3 {
		return Key{}, false
	}
	return Key{Kernel: parts[0], Arch: parts[1], Signature: parts[2]}, true
}

// Entry describes one cached binary, for diagnostics and the cache CLI.
type Entry struct {
	Key     Key
	Size    int64
	ModTime time.Time
}

// CacheOptions controls Open.
type CacheOptions struct {
	// MaxBytes bounds the cache footprint; stores that push past the
	// bound evict least-recently-used entries. Zero means unbounded.
	MaxBytes int64

	// Logger receives eviction and divergence notices. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Cache is a persistent, keyed store of compiled kernel binaries shared
// across processes. One file per key; writes go to a temp file in the
// same directory and are renamed into place, so readers never observe a
// partially written entry. Reads never block on writers.
type Cache struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger
	now      func() time.Time

	// mu serializes writers within this process; the flock on lockName
	// extends the exclusion across processes.
	mu sync.Mutex
}

const lockName = ".lock"

// Open opens (creating if needed) a cache rooted at dir.
func Open(dir string, opts CacheOptions) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("gpufft/rtc: empty cache directory")
	}
	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		return nil, fmt.Errorf("gpufft/rtc: %q is not a directory", dir)
	}
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		dir:      dir,
		maxBytes: opts.MaxBytes,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string { return c.dir }

// Lookup returns the cached binary for key, or ErrNotCached. A hit bumps
// the entry's modification time, which is the LRU clock for eviction.
func (c *Cache) Lookup(key Key) ([]byte, error) {
	name := filepath.Join(c.dir, key.filename())
	data, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNotCached
	}
	now := c.now()
	_ = os.Chtimes(name, now, now)
	return data, nil
}

// Store persists binary under key. Storing identical content twice is a
// no-op; different content under an existing key returns
// ErrDivergentEntry without touching the stored entry.
func (c *Cache) Store(key Key, binary []byte) error {
	if len(binary) == 0 {
		return errors.New("gpufft/rtc: refusing to store empty binary")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, err := os.OpenFile(filepath.Join(c.dir, lockName), os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return err
	}
	defer lock.Close()
	if err := acquireLock(lock); err != nil {
		return err
	}
	defer func() { _ = releaseLock(lock) }()

	name := filepath.Join(c.dir, key.filename())
	if existing, err := os.ReadFile(name); err == nil && len(existing) > 0 {
		if bytes.Equal(existing, binary) {
			return nil
		}
		c.logger.Error("rtc cache: divergent content for key",
			"kernel", key.Kernel, "arch", key.Arch, "signature", key.Signature)
		return ErrDivergentEntry
	}

	tmp, err := os.CreateTemp(c.dir, key.Kernel+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(binary); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return err
	}
	c.evictLocked(key)
	return nil
}

// evictLocked removes least-recently-used entries until the footprint is
// within bounds. The entry just stored is never evicted. Callers hold both
// the mutex and the file lock.
func (c *Cache) evictLocked(justStored Key) {
	if c.maxBytes <= 0 {
		return
	}
	if _, err := c.pruneLocked(c.maxBytes, &justStored); err != nil {
		c.logger.Warn("rtc cache: eviction scan failed", "error", err)
	}
}

// Prune removes least-recently-used entries until the footprint is at most
// maxBytes. It returns the number of entries removed.
func (c *Cache) Prune(maxBytes int64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pruneLocked(maxBytes, nil)
}

func (c *Cache) pruneLocked(maxBytes int64, keep *Key) (int, error) {
	entries, err := c.Entries()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	if total <= maxBytes {
		return 0, nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ModTime.Before(entries[j].ModTime) })
	removed := 0
	for _, e := range entries {
		if total <= maxBytes {
			break
		}
		if keep != nil && e.Key == *keep {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Key.filename())); err != nil {
			c.logger.Warn("rtc cache: eviction failed", "kernel", e.Key.Kernel, "error", err)
			continue
		}
		total -= e.Size
		removed++
		c.logger.Debug("rtc cache: evicted entry",
			"kernel", e.Key.Kernel, "arch", e.Key.Arch, "size", e.Size)
	}
	return removed, nil
}

// Entries lists the current cache contents.
func (c *Cache) Entries() ([]Entry, error) {
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		key, ok := parseEntryName(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Key: key, Size: info.Size(), ModTime: info.ModTime()})
	}
	return entries, nil
}

// Footprint returns the total size of all cache entries in bytes.
func (c *Cache) Footprint() (int64, error) {
	entries, err := c.Entries()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total, nil
}

// Clear removes every entry unconditionally.
func (c *Cache) Clear() error {
	return c.removeMatching(func(Key) bool { return true })
}

// ClearMismatched removes entries whose generator signature differs from
// signature, invalidating binaries produced by older generator versions.
func (c *Cache) ClearMismatched(signature string) error {
	want := sanitize(signature)
	return c.removeMatching(func(k Key) bool { return k.Signature != want })
}

func (c *Cache) removeMatching(match func(Key) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := c.Entries()
	if err != nil {
		return err
	}
	var firstErr error
	for _, e := range entries {
		if !match(e.Key) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Key.filename())); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
