package gpufft

import (
	"context"
	"fmt"

	"github.com/cwbudde/gpufft/internal/generator"
	"github.com/cwbudde/gpufft/internal/reference"
	"github.com/cwbudde/gpufft/rtc"
)

// PlanOptions controls plan creation.
type PlanOptions struct {
	// Batch is the number of independent transforms per execution
	// (0 means 1).
	Batch int

	// InPlace requests in-place execution where the backend supports it.
	InPlace bool
}

// Stage is one radix pass of a decomposed transform. Span is the
// cumulative sub-transform length after the stage; the stage kernel
// receives it as a launch argument.
type Stage struct {
	Radix int
	Span  int
}

// planRadices are tried largest first when decomposing a length. Every
// radix here has a stage kernel emitter; lengths with other prime factors
// take the Bluestein path.
var planRadices = []int{16, 13, 11, 8, 7, 5, 4, 3, 2}

// factorStages greedily decomposes n into supported radix stages. The
// second result reports whether the decomposition is exact.
func factorStages(n int) ([]Stage, bool) {
	var stages []Stage
	span := 1
	rem := n
	for _, r := range planRadices {
		for rem%r == 0 {
			rem /= r
			span *= r
			stages = append(stages, Stage{Radix: r, Span: span})
		}
	}
	return stages, rem == 1
}

// bluesteinPlan holds the chirp-convolution decomposition of a length
// whose factors are not all supported radices.
type bluesteinPlan struct {
	pad    int     // power-of-two convolution length, >= 2n-1
	stages []Stage // radix stages of the padded transform
}

// Plan describes how one transform length decomposes into device kernels.
// It is the plan-construction collaborator of the rtc pipeline: it knows
// which kernel specifications are needed and in which order their kernels
// launch, but owns no device resources itself.
type Plan struct {
	n         int
	batch     int
	precision Precision
	layout    Layout
	inPlace   bool
	stages    []Stage
	bluestein *bluesteinPlan
}

// NewPlan creates a complex-to-complex plan of length n.
func NewPlan(n int, precision Precision, layout Layout, opts PlanOptions) (*Plan, error) {
	if n < 1 {
		return nil, ErrInvalidLength
	}
	if layout != LayoutInterleaved && layout != LayoutPlanar {
		return nil, ErrInvalidLayout
	}
	batch := opts.Batch
	if batch == 0 {
		batch = 1
	}
	if batch < 0 {
		return nil, ErrInvalidBatch
	}

	p := &Plan{
		n:         n,
		batch:     batch,
		precision: precision,
		layout:    layout,
		inPlace:   opts.InPlace,
	}
	stages, exact := factorStages(n)
	if exact {
		p.stages = stages
		return p, nil
	}

	// Chirp kernels only exist for interleaved layouts.
	if layout != LayoutInterleaved {
		return nil, fmt.Errorf("%w: length %d needs the Bluestein path, which requires interleaved layout", ErrInvalidLayout, n)
	}
	pad := reference.NextPow2(2*n - 1)
	padStages, ok := factorStages(pad)
	if !ok {
		// pad is a power of two, so this cannot happen.
		return nil, ErrInvalidLength
	}
	p.bluestein = &bluesteinPlan{pad: pad, stages: padStages}
	return p, nil
}

// Len returns the transform length.
func (p *Plan) Len() int { return p.n }

// Batch returns the batch count.
func (p *Plan) Batch() int { return p.batch }

// Precision returns the plan precision.
func (p *Plan) Precision() Precision { return p.precision }

// Layout returns the plan layout.
func (p *Plan) Layout() Layout { return p.layout }

// Stages returns the radix passes of the direct mixed-radix path, or nil
// when the plan uses the Bluestein decomposition.
func (p *Plan) Stages() []Stage {
	if p.bluestein != nil {
		return nil
	}
	out := make([]Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// UsesBluestein reports whether the plan runs through the chirp
// convolution instead of direct radix stages.
func (p *Plan) UsesBluestein() bool { return p.bluestein != nil }

// Specs returns the kernel specifications the plan needs for the given
// direction, in launch order, with duplicates removed. Stage kernels take
// their span as a launch argument, so one spec covers every stage of the
// same radix.
func (p *Plan) Specs(dir Direction) []KernelSpec {
	var specs []KernelSpec
	seen := make(map[KernelSpec]bool)
	add := func(s KernelSpec) {
		if !seen[s] {
			seen[s] = true
			specs = append(specs, s)
		}
	}
	radixSpec := func(radix int, d Direction) KernelSpec {
		return KernelSpec{
			Family:    generator.FamilyRadixButterfly,
			Precision: p.precision,
			Direction: d,
			Layout:    p.layout,
			Radix:     radix,
		}
	}

	if p.bluestein == nil {
		for _, st := range p.stages {
			add(radixSpec(st.Radix, dir))
		}
		return specs
	}

	bp := p.bluestein
	opposite := Forward
	if dir == Forward {
		opposite = Inverse
	}
	chirp := func(d Direction) KernelSpec {
		return KernelSpec{
			Family:      generator.FamilyChirpSetup,
			Precision:   p.precision,
			Direction:   d,
			Layout:      LayoutInterleaved,
			Length:      p.n,
			ChirpLength: bp.pad,
		}
	}
	// Chirp table for the pre/post multiplies, and its conjugate for the
	// convolution filter.
	add(chirp(dir))
	add(chirp(opposite))
	// Zero-padded scatter of the chirped input into the scratch buffer.
	add(KernelSpec{
		Family:    generator.FamilyCopy,
		Precision: p.precision,
		Direction: Forward,
		Layout:    LayoutInterleaved,
	})
	// The padded convolution runs the forward stages, the pointwise
	// product, then the inverse stages.
	for _, st := range bp.stages {
		add(radixSpec(st.Radix, Forward))
	}
	add(KernelSpec{
		Family:      generator.FamilyChirpMultiply,
		Precision:   p.precision,
		Direction:   Forward, // plain pointwise product
		Layout:      LayoutInterleaved,
		Length:      p.n,
		ChirpLength: bp.pad,
	})
	for _, st := range bp.stages {
		add(radixSpec(st.Radix, Inverse))
	}
	add(KernelSpec{
		Family:      generator.FamilyChirpMultiply,
		Precision:   p.precision,
		Direction:   Inverse, // final chirp multiply, folds the 1/pad scale
		Layout:      LayoutInterleaved,
		Length:      p.n,
		ChirpLength: bp.pad,
	})
	return specs
}

// CompiledKernel pairs a kernel specification with its compiled binary.
type CompiledKernel struct {
	Spec   KernelSpec
	Name   string
	Binary []byte
}

// CompileKernels compiles every kernel the plan needs for dir on the given
// target architecture through the rtc pipeline. Generation only runs for
// kernels the cache has not seen.
func (p *Plan) CompileKernels(ctx context.Context, pipe *rtc.Pipeline, arch string, dir Direction) ([]CompiledKernel, error) {
	specs := p.Specs(dir)
	kernels := make([]CompiledKernel, 0, len(specs))
	for _, spec := range specs {
		spec := spec
		name := spec.EntryPoint()
		binary, err := pipe.Compile(ctx, name, arch, func(string) (string, error) {
			_, src, err := generator.Generate(spec)
			return src, err
		}, generator.Signature())
		if err != nil {
			return nil, fmt.Errorf("gpufft: plan kernel %s: %w", name, err)
		}
		kernels = append(kernels, CompiledKernel{Spec: spec, Name: name, Binary: binary})
	}
	return kernels, nil
}

// Transform executes the plan on the host reference path, the same math
// the generated kernels implement. It backs the mock backend and tests;
// device execution goes through a gpu backend instead. Inverse transforms
// are scaled by 1/n, matching the plan-level normalization contract.
func (p *Plan) Transform(dst, src []complex128, dir Direction) error {
	if dst == nil || src == nil {
		return ErrNilSlice
	}
	if len(dst) < p.n*p.batch || len(src) < p.n*p.batch {
		return ErrLengthMismatch
	}
	for b := 0; b < p.batch; b++ {
		d := dst[b*p.n : (b+1)*p.n]
		s := src[b*p.n : (b+1)*p.n]
		if err := p.transformOne(d, s, dir); err != nil {
			return err
		}
		if dir == Inverse {
			scale := complex(1/float64(p.n), 0)
			for i := range d {
				d[i] *= scale
			}
		}
	}
	return nil
}

func (p *Plan) transformOne(dst, src []complex128, dir Direction) error {
	if p.bluestein != nil {
		return reference.Bluestein(dst, src, dir)
	}
	cur := make([]complex128, p.n)
	next := make([]complex128, p.n)
	copy(cur, src)
	for _, st := range p.stages {
		tw := reference.StageTwiddles(st.Radix, st.Span, dir)
		if err := reference.ApplyStage(next, cur, st.Radix, st.Span, p.n, tw, dir); err != nil {
			return err
		}
		cur, next = next, cur
	}
	copy(dst, cur)
	return nil
}
