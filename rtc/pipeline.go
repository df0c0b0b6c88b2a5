// Package rtc implements runtime compilation of generated device kernels
// with a persistent, cross-process compile cache.
//
// The single entry point is Pipeline.Compile: it looks the kernel up in
// the cache and only on a miss runs the deferred source generator and the
// device compiler. Concurrent requests for the same kernel coalesce into
// one compilation, and results are persisted so later processes skip the
// compiler entirely.
package rtc

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// SourceFunc produces the source text for a kernel entry point. The
// pipeline only invokes it on a cache miss, so generation cost is never
// paid for cached kernels. It must be pure: the same entry point always
// yields the same source.
type SourceFunc func(kernelName string) (string, error)

// PipelineOptions controls NewPipeline.
type PipelineOptions struct {
	// BypassCache skips cache lookups and stores, forcing regeneration
	// and recompilation on every request. Debugging aid.
	BypassCache bool

	// Logger receives cache degradation notices. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Pipeline orchestrates lookup, generation, compilation and storage.
// A nil cache is allowed and behaves like a permanently missing one.
type Pipeline struct {
	cache    *Cache
	compiler Compiler
	bypass   bool
	logger   *slog.Logger
	group    singleflight.Group
}

// NewPipeline builds a pipeline around a cache handle and a device
// compiler. The cache may be nil to run without persistence.
func NewPipeline(cache *Cache, compiler Compiler, opts PipelineOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cache:    cache,
		compiler: compiler,
		bypass:   opts.BypassCache,
		logger:   logger,
	}
}

// Compile returns the device binary for kernelName on arch, compiling at
// most once per key. The generator signature is part of the cache key, so
// binaries from an older generator version are never reused.
//
// Cache storage failures degrade to recompilation and are logged, never
// fatal. Compiler failures are returned as *CompileError and are not
// cached, so a later call may retry.
func (p *Pipeline) Compile(ctx context.Context, kernelName, arch string, gen SourceFunc, signature string) ([]byte, error) {
	if p.compiler == nil {
		return nil, ErrNoCompiler
	}
	key := Key{Kernel: kernelName, Arch: arch, Signature: signature}
	v, err, _ := p.group.Do(key.id(), func() (any, error) {
		return p.compileKey(ctx, key, gen)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (p *Pipeline) compileKey(ctx context.Context, key Key, gen SourceFunc) ([]byte, error) {
	if !p.bypass && p.cache != nil {
		binary, err := p.cache.Lookup(key)
		switch {
		case err == nil:
			return binary, nil
		case errors.Is(err, ErrNotCached):
		default:
			p.logger.Warn("rtc: cache lookup failed, recompiling",
				"kernel", key.Kernel, "error", err)
		}
	}

	source, err := gen(key.Kernel)
	if err != nil {
		return nil, err
	}

	binary, err := p.compiler.Compile(ctx, source, key.Arch)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			if ce.Kernel == "" {
				ce.Kernel = key.Kernel
			}
			p.logger.Debug("rtc: compile failure source listing",
				"kernel", key.Kernel, "source", ce.SourceListing())
			return nil, ce
		}
		return nil, &CompileError{
			Kernel:      key.Kernel,
			Arch:        key.Arch,
			Diagnostics: err.Error(),
			Source:      source,
		}
	}

	if !p.bypass && p.cache != nil {
		if err := p.cache.Store(key, binary); err != nil {
			// Non-fatal: the binary is good, only persistence is lost.
			p.logger.Warn("rtc: cache store failed, continuing uncached",
				"kernel", key.Kernel, "arch", key.Arch, "error", err)
		}
	}
	return binary, nil
}
