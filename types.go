package gpufft

import "github.com/cwbudde/gpufft/internal/generator"

// Public aliases for the kernel-specification vocabulary. The canonical
// definitions live in internal/generator so the generator stays a leaf
// package; plans and the cache CLI speak the same types.

// Precision selects the numeric precision of a plan's kernels.
type Precision = generator.Precision

const (
	PrecisionSingle = generator.PrecisionSingle
	PrecisionDouble = generator.PrecisionDouble
	PrecisionHalf   = generator.PrecisionHalf
)

// Direction is the transform direction.
type Direction = generator.Direction

const (
	Forward = generator.Forward
	Inverse = generator.Inverse
)

// Layout classifies the array layout a plan's kernels address.
type Layout = generator.Layout

const (
	LayoutInterleaved = generator.LayoutInterleaved
	LayoutPlanar      = generator.LayoutPlanar
	LayoutReal        = generator.LayoutReal
	LayoutHermitian   = generator.LayoutHermitian
)

// KernelSpec describes one device kernel variant a plan needs.
type KernelSpec = generator.KernelSpec

// GeneratorSignature returns the version fingerprint of the kernel source
// generator. It participates in every compile-cache key, so binaries
// produced by an older generator are never reused.
func GeneratorSignature() string {
	return generator.Signature()
}
