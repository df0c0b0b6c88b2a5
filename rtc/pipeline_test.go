package rtc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const testSignature = "aaaabbbbccccdddd"

// countingCompiler wraps the binary it "produces" around the source so
// tests can assert what reached the compiler.
type countingCompiler struct {
	calls atomic.Int64
	fail  bool
}

func (c *countingCompiler) Name() string { return "counting" }

func (c *countingCompiler) Compile(_ context.Context, source, arch string) ([]byte, error) {
	c.calls.Add(1)
	if c.fail {
		return nil, &CompileError{
			Arch:        arch,
			Diagnostics: "kernel.cpp(3): error: expected a ';'",
			Source:      source,
		}
	}
	return []byte("BIN[" + arch + "]" + source), nil
}

func countingGen(source string, calls *atomic.Int64) SourceFunc {
	return func(string) (string, error) {
		calls.Add(1)
		return source, nil
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipelineCompileAndCache(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{})
	require.NoError(t, err)
	compiler := &countingCompiler{}
	pipe := NewPipeline(cache, compiler, PipelineOptions{Logger: quietLogger()})

	var genCalls atomic.Int64
	gen := countingGen("__global__ void k() {}", &genCalls)

	bin, err := pipe.Compile(context.Background(), "k", "gfx90a", gen, testSignature)
	require.NoError(t, err)
	assert.Equal(t, []byte("BIN[gfx90a]__global__ void k() {}"), bin)
	assert.EqualValues(t, 1, genCalls.Load())
	assert.EqualValues(t, 1, compiler.calls.Load())

	// Second request: served from cache, neither generator nor compiler run.
	again, err := pipe.Compile(context.Background(), "k", "gfx90a", gen, testSignature)
	require.NoError(t, err)
	assert.Equal(t, bin, again)
	assert.EqualValues(t, 1, genCalls.Load())
	assert.EqualValues(t, 1, compiler.calls.Load())
}

func TestPipelineCachePersistsAcrossPipelines(t *testing.T) {
	dir := t.TempDir()
	cache, err := Open(dir, CacheOptions{})
	require.NoError(t, err)
	first := &countingCompiler{}
	pipe := NewPipeline(cache, first, PipelineOptions{Logger: quietLogger()})

	var genCalls atomic.Int64
	gen := countingGen("src", &genCalls)
	_, err = pipe.Compile(context.Background(), "k", "gfx90a", gen, testSignature)
	require.NoError(t, err)

	// A fresh pipeline on the same directory, as a new process would open.
	reopened, err := Open(dir, CacheOptions{})
	require.NoError(t, err)
	second := &countingCompiler{}
	pipe2 := NewPipeline(reopened, second, PipelineOptions{Logger: quietLogger()})
	_, err = pipe2.Compile(context.Background(), "k", "gfx90a", gen, testSignature)
	require.NoError(t, err)
	assert.EqualValues(t, 1, genCalls.Load())
	assert.EqualValues(t, 0, second.calls.Load())
}

func TestPipelineArchAndSignatureSeparation(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{})
	require.NoError(t, err)
	compiler := &countingCompiler{}
	pipe := NewPipeline(cache, compiler, PipelineOptions{Logger: quietLogger()})

	var genCalls atomic.Int64
	gen := countingGen("src", &genCalls)

	a, err := pipe.Compile(context.Background(), "k", "gfx90a", gen, testSignature)
	require.NoError(t, err)
	b, err := pipe.Compile(context.Background(), "k", "gfx1100", gen, testSignature)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "different arch yields a different binary")
	assert.EqualValues(t, 2, compiler.calls.Load())

	// Same kernel, same arch, new generator signature: must recompile.
	_, err = pipe.Compile(context.Background(), "k", "gfx90a", gen, "0123456789abcdef")
	require.NoError(t, err)
	assert.EqualValues(t, 3, compiler.calls.Load())
}

func TestPipelineSingleFlight(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{})
	require.NoError(t, err)
	compiler := &countingCompiler{}
	pipe := NewPipeline(cache, compiler, PipelineOptions{Logger: quietLogger()})

	var genCalls atomic.Int64
	gen := countingGen("src", &genCalls)

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			_, err := pipe.Compile(context.Background(), "k", "gfx90a", gen, testSignature)
			return err
		})
	}
	require.NoError(t, g.Wait())

	// Concurrent callers coalesce; latecomers hit the cache. Either way
	// the compiler runs exactly once.
	assert.EqualValues(t, 1, compiler.calls.Load())
	assert.EqualValues(t, 1, genCalls.Load())
}

func TestPipelineCompileError(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{})
	require.NoError(t, err)
	compiler := &countingCompiler{fail: true}
	pipe := NewPipeline(cache, compiler, PipelineOptions{Logger: quietLogger()})

	var genCalls atomic.Int64
	gen := countingGen("bad src", &genCalls)

	_, err = pipe.Compile(context.Background(), "k", "gfx90a", gen, testSignature)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "k", ce.Kernel)
	assert.Contains(t, ce.Diagnostics, "expected a ';'")
	assert.Contains(t, err.Error(), "expected a ';'")

	// Failures are never cached: a retry reaches the compiler again.
	_, err = pipe.Compile(context.Background(), "k", "gfx90a", gen, testSignature)
	require.Error(t, err)
	assert.EqualValues(t, 2, compiler.calls.Load())

	entries, err := cache.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPipelineGeneratorError(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{})
	require.NoError(t, err)
	compiler := &countingCompiler{}
	pipe := NewPipeline(cache, compiler, PipelineOptions{Logger: quietLogger()})

	genErr := errors.New("unsupported kernel configuration")
	_, err = pipe.Compile(context.Background(), "k", "gfx90a",
		func(string) (string, error) { return "", genErr }, testSignature)
	assert.ErrorIs(t, err, genErr)
	assert.EqualValues(t, 0, compiler.calls.Load(), "compiler must not run on generation failure")
}

func TestPipelineBypassCache(t *testing.T) {
	cache, err := Open(t.TempDir(), CacheOptions{})
	require.NoError(t, err)
	compiler := &countingCompiler{}
	pipe := NewPipeline(cache, compiler, PipelineOptions{BypassCache: true, Logger: quietLogger()})

	var genCalls atomic.Int64
	gen := countingGen("src", &genCalls)
	for i := 0; i < 3; i++ {
		_, err := pipe.Compile(context.Background(), "k", "gfx90a", gen, testSignature)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, compiler.calls.Load())

	entries, err := cache.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries, "bypass mode must not populate the cache")
}

func TestPipelineNilCache(t *testing.T) {
	compiler := &countingCompiler{}
	pipe := NewPipeline(nil, compiler, PipelineOptions{Logger: quietLogger()})

	var genCalls atomic.Int64
	gen := countingGen("src", &genCalls)
	bin, err := pipe.Compile(context.Background(), "k", "gfx90a", gen, testSignature)
	require.NoError(t, err)
	assert.NotEmpty(t, bin)
}

func TestPipelineStoreFailureDegrades(t *testing.T) {
	dir := t.TempDir()
	cache, err := Open(dir, CacheOptions{})
	require.NoError(t, err)
	// Pull the directory out from under the cache so the store fails.
	require.NoError(t, os.RemoveAll(dir))

	compiler := &countingCompiler{}
	pipe := NewPipeline(cache, compiler, PipelineOptions{Logger: quietLogger()})

	var genCalls atomic.Int64
	gen := countingGen("src", &genCalls)
	bin, err := pipe.Compile(context.Background(), "k", "gfx90a", gen, testSignature)
	require.NoError(t, err, "a failed store must not fail the compilation")
	assert.NotEmpty(t, bin)
	assert.EqualValues(t, 1, compiler.calls.Load())
}

func TestPipelineNoCompiler(t *testing.T) {
	pipe := NewPipeline(nil, nil, PipelineOptions{Logger: quietLogger()})
	_, err := pipe.Compile(context.Background(), "k", "gfx90a",
		func(string) (string, error) { return "src", nil }, testSignature)
	assert.ErrorIs(t, err, ErrNoCompiler)
}

func TestCompileErrorSourceListing(t *testing.T) {
	ce := &CompileError{
		Kernel:      "k",
		Arch:        "gfx90a",
		Diagnostics: "error on line 2",
		Source:      "line one\nline two\nline three",
	}
	listing := ce.SourceListing()
	assert.Contains(t, listing, "   1 | line one")
	assert.Contains(t, listing, "   2 | line two")
	assert.True(t, strings.Contains(ce.Error(), "gfx90a"))
}
