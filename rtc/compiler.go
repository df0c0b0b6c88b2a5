package rtc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Compiler turns generated source into a loadable device binary for a
// target architecture. Implementations are black boxes to the pipeline;
// their diagnostics are surfaced verbatim on failure.
type Compiler interface {
	// Name identifies the toolchain for logs.
	Name() string

	// Compile builds source for arch and returns the binary blob.
	// Failures should be reported as *CompileError so diagnostics reach
	// the caller intact.
	Compile(ctx context.Context, source, arch string) ([]byte, error)
}

// CompilerFunc adapts a plain function to the Compiler interface.
type CompilerFunc func(ctx context.Context, source, arch string) ([]byte, error)

func (f CompilerFunc) Name() string { return "func" }

func (f CompilerFunc) Compile(ctx context.Context, source, arch string) ([]byte, error) {
	return f(ctx, source, arch)
}

// ToolchainCompiler shells out to an offline device compiler binary.
type ToolchainCompiler struct {
	name string
	path string
	ext  string
	args func(arch, in, out string) []string
}

// NewHIPCompiler returns a compiler that invokes hipcc to produce a code
// object for the given offload architecture (e.g. "gfx90a").
func NewHIPCompiler() *ToolchainCompiler {
	return &ToolchainCompiler{
		name: "hipcc",
		path: "hipcc",
		ext:  ".cpp",
		args: func(arch, in, out string) []string {
			return []string{"--genco", "-O3", "--offload-arch=" + arch, "-o", out, in}
		},
	}
}

// NewNVRTCCompiler returns a compiler that invokes nvcc to produce a cubin
// for the given SM architecture (e.g. "sm_80").
func NewNVRTCCompiler() *ToolchainCompiler {
	return &ToolchainCompiler{
		name: "nvcc",
		path: "nvcc",
		ext:  ".cu",
		args: func(arch, in, out string) []string {
			return []string{"-cubin", "-O3", "-arch=" + arch, "-o", out, in}
		},
	}
}

func (t *ToolchainCompiler) Name() string { return t.name }

// Compile writes the source to a scratch directory, runs the toolchain and
// reads back the produced binary. Compiler output on failure is carried in
// the returned *CompileError untouched.
func (t *ToolchainCompiler) Compile(ctx context.Context, source, arch string) ([]byte, error) {
	scratch, err := os.MkdirTemp("", "gpufft-rtc-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	in := filepath.Join(scratch, "kernel"+t.ext)
	out := filepath.Join(scratch, "kernel.bin")
	if err := os.WriteFile(in, []byte(source), 0o644); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, t.path, t.args(arch, in, out)...)
	combined, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &CompileError{
			Arch:        arch,
			Diagnostics: fmt.Sprintf("%s: %v\n%s", t.name, err, combined),
			Source:      source,
		}
	}
	binary, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("gpufft/rtc: %s produced no output: %w", t.name, err)
	}
	return binary, nil
}
