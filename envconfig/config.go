// Package envconfig reads the environment variables that configure the
// rtc compile cache. All of them are pass-through configuration: they
// change where and whether binaries persist, never what is computed.
package envconfig

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Var reads an environment variable, trimming whitespace and quotes.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// CachePath returns the rtc cache directory.
// Configurable via GPUFFT_RTC_CACHE_PATH.
// Default: <user cache dir>/gpufft/rtc.
func CachePath() string {
	if s := Var("GPUFFT_RTC_CACHE_PATH"); s != "" {
		return s
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "gpufft", "rtc")
	}
	return filepath.Join(base, "gpufft", "rtc")
}

// CacheMaxBytes returns the cache footprint bound in bytes.
// Configurable via GPUFFT_RTC_CACHE_MAX_SIZE (supports K/M/G suffixes).
// Default: 2 GiB. Zero disables the bound.
func CacheMaxBytes() int64 {
	const defaultMax = 2 << 30
	s := Var("GPUFFT_RTC_CACHE_MAX_SIZE")
	if s == "" {
		return defaultMax
	}
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		mult, s = 1<<10, s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		mult, s = 1<<20, s[:len(s)-1]
	case strings.HasSuffix(s, "G"), strings.HasSuffix(s, "g"):
		mult, s = 1<<30, s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		slog.Warn("invalid GPUFFT_RTC_CACHE_MAX_SIZE, using default", "value", Var("GPUFFT_RTC_CACHE_MAX_SIZE"))
		return defaultMax
	}
	return n * mult
}

// BypassCache reports whether compile caching is disabled entirely.
// Configurable via GPUFFT_RTC_BYPASS_CACHE (debugging aid).
func BypassCache() bool {
	return Bool("GPUFFT_RTC_BYPASS_CACHE")
}

// Bool parses a boolean environment variable; unset or unparsable is false.
func Bool(key string) bool {
	v, err := strconv.ParseBool(Var(key))
	return err == nil && v
}

// LogLevel returns the slog level.
// Configurable via GPUFFT_DEBUG.
func LogLevel() slog.Level {
	if Bool("GPUFFT_DEBUG") {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// AsMap renders the current configuration for diagnostics.
func AsMap() map[string]string {
	return map[string]string{
		"GPUFFT_RTC_CACHE_PATH":     CachePath(),
		"GPUFFT_RTC_CACHE_MAX_SIZE": strconv.FormatInt(CacheMaxBytes(), 10),
		"GPUFFT_RTC_BYPASS_CACHE":   strconv.FormatBool(BypassCache()),
		"GPUFFT_DEBUG":              LogLevel().String(),
	}
}
