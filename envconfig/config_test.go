package envconfig

import (
	"log/slog"
	"path/filepath"
	"testing"
)

func TestVarTrimsQuotes(t *testing.T) {
	t.Setenv("GPUFFT_RTC_CACHE_PATH", `  "/tmp/cache"  `)
	if got := Var("GPUFFT_RTC_CACHE_PATH"); got != "/tmp/cache" {
		t.Errorf("Var = %q", got)
	}
}

func TestCachePath(t *testing.T) {
	t.Setenv("GPUFFT_RTC_CACHE_PATH", "/opt/kernels")
	if got := CachePath(); got != "/opt/kernels" {
		t.Errorf("CachePath = %q", got)
	}

	t.Setenv("GPUFFT_RTC_CACHE_PATH", "")
	got := CachePath()
	if got == "" {
		t.Fatal("CachePath returned empty default")
	}
	if filepath.Base(got) != "rtc" {
		t.Errorf("default CachePath = %q, want .../gpufft/rtc", got)
	}
}

func TestCacheMaxBytes(t *testing.T) {
	cases := map[string]int64{
		"":     2 << 30,
		"100":  100,
		"4K":   4 << 10,
		"512M": 512 << 20,
		"2G":   2 << 30,
		"2g":   2 << 30,
		"0":    0,
		"junk": 2 << 30,
		"-5":   2 << 30,
	}
	for in, want := range cases {
		t.Setenv("GPUFFT_RTC_CACHE_MAX_SIZE", in)
		if got := CacheMaxBytes(); got != want {
			t.Errorf("CacheMaxBytes(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestBypassCache(t *testing.T) {
	cases := map[string]bool{
		"": false, "1": true, "true": true, "TRUE": true,
		"0": false, "false": false, "yes": false,
	}
	for in, want := range cases {
		t.Setenv("GPUFFT_RTC_BYPASS_CACHE", in)
		if got := BypassCache(); got != want {
			t.Errorf("BypassCache(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogLevel(t *testing.T) {
	t.Setenv("GPUFFT_DEBUG", "")
	if got := LogLevel(); got != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", got)
	}
	t.Setenv("GPUFFT_DEBUG", "1")
	if got := LogLevel(); got != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", got)
	}
}

func TestAsMap(t *testing.T) {
	t.Setenv("GPUFFT_RTC_CACHE_PATH", "/opt/kernels")
	m := AsMap()
	if m["GPUFFT_RTC_CACHE_PATH"] != "/opt/kernels" {
		t.Errorf("AsMap cache path = %q", m["GPUFFT_RTC_CACHE_PATH"])
	}
	for _, key := range []string{"GPUFFT_RTC_CACHE_MAX_SIZE", "GPUFFT_RTC_BYPASS_CACHE", "GPUFFT_DEBUG"} {
		if _, ok := m[key]; !ok {
			t.Errorf("AsMap missing %s", key)
		}
	}
}
