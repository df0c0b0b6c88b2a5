package rtc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotCached is returned by Cache.Lookup when no entry exists for
	// the key (or the entry was evicted or invalidated).
	ErrNotCached = errors.New("gpufft/rtc: not cached")

	// ErrDivergentEntry is returned by Cache.Store when an entry already
	// exists under the key with different content. Keys are content
	// determined, so this indicates a logic error in the caller, never a
	// condition to paper over by overwriting.
	ErrDivergentEntry = errors.New("gpufft/rtc: divergent content for cached key")

	// ErrNoCompiler is returned by the pipeline when constructed without
	// a device compiler.
	ErrNoCompiler = errors.New("gpufft/rtc: no device compiler configured")
)

// CompileError reports a device compiler rejection. Diagnostics holds the
// compiler output verbatim; Source holds the full generated source that
// failed, for offline inspection.
type CompileError struct {
	Kernel      string
	Arch        string
	Diagnostics string
	Source      string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("gpufft/rtc: compiling %s for %s failed:\n%s",
		e.Kernel, e.Arch, strings.TrimRight(e.Diagnostics, "\n"))
}

// SourceListing returns the failing source with line numbers, matching the
// line references device compilers put in their diagnostics.
func (e *CompileError) SourceListing() string {
	lines := strings.Split(e.Source, "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%4d | %s\n", i+1, line)
	}
	return b.String()
}
