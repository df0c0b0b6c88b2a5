// Package generator turns kernel specifications into compilable device
// source. Generation is a pure function of the specification: field-wise
// equal specs always produce identical entry-point names and byte-identical
// source text, which is what makes the compile cache content-determined.
package generator

import "fmt"

// Family identifies a kernel family. Each family has its own emitter
// dispatched through Generate.
type Family uint8

const (
	FamilyRadixButterfly Family = iota // one Stockham decimation stage
	FamilyChirpSetup                   // Bluestein chirp-sequence table
	FamilyChirpMultiply                // Bluestein pointwise convolution multiply
	FamilyTranspose                    // tiled transpose
	FamilyRealComplexPack              // real <-> hermitian packing
	FamilyCopy                         // strided/padded copy
)

// String returns a short name for the family, used in entry points.
func (f Family) String() string {
	switch f {
	case FamilyRadixButterfly:
		return "stage"
	case FamilyChirpSetup:
		return "chirp"
	case FamilyChirpMultiply:
		return "chirp_mul"
	case FamilyTranspose:
		return "transpose"
	case FamilyRealComplexPack:
		return "pack"
	case FamilyCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// Precision describes the numeric precision of a kernel.
type Precision uint8

const (
	PrecisionSingle Precision = iota
	PrecisionDouble
	PrecisionHalf
)

// String returns the entry-point code for the precision.
func (p Precision) String() string {
	switch p {
	case PrecisionSingle:
		return "sp"
	case PrecisionDouble:
		return "dp"
	case PrecisionHalf:
		return "hp"
	default:
		return "unknown"
	}
}

// Direction is the transform direction. It selects the sign of all twiddle
// rotations emitted by the generator.
type Direction uint8

const (
	Forward Direction = iota
	Inverse
)

func (d Direction) String() string {
	if d == Inverse {
		return "inv"
	}
	return "fwd"
}

// Layout classifies how the kernel addresses its arrays.
type Layout uint8

const (
	LayoutInterleaved Layout = iota // complex, interleaved re/im
	LayoutPlanar                    // complex, separate re/im arrays
	LayoutReal                      // real-valued array
	LayoutHermitian                 // half-spectrum complex, interleaved
)

func (l Layout) String() string {
	switch l {
	case LayoutInterleaved:
		return "ci"
	case LayoutPlanar:
		return "cp"
	case LayoutReal:
		return "r"
	case LayoutHermitian:
		return "hi"
	default:
		return "unknown"
	}
}

// StrideClass classifies the addressing pattern of a kernel.
type StrideClass uint8

const (
	UnitStride StrideClass = iota
	Strided
)

func (s StrideClass) String() string {
	if s == Strided {
		return "strided"
	}
	return "unit"
}

// KernelSpec is an immutable description of one device kernel variant.
// It is a tagged variant: Family selects the emitter, the remaining fields
// are its parameters. Fields a family does not use must be left zero so
// that equal kernels compare equal.
type KernelSpec struct {
	Family    Family
	Precision Precision
	Direction Direction
	Layout    Layout

	// Radix is the butterfly radix for FamilyRadixButterfly.
	Radix int

	// Length is the transform length for families that bake it into the
	// kernel (chirp setup/multiply). Radix stage kernels take the stage
	// span as a launch argument and leave Length zero.
	Length int

	// ChirpLength is the padded convolution length for the chirp families.
	ChirpLength int

	Stride StrideClass
}

// Radix values the stage emitter accepts. Radices 2..4 use handwritten
// fused butterfly sequences; the rest go through the literal-DFT emitter.
const (
	minRadix = 2
	maxRadix = 16
)

// Validate checks the spec against the support matrix. It returns an
// *UnsupportedError describing the first violated constraint, or nil.
func (s KernelSpec) Validate() error {
	switch s.Family {
	case FamilyRadixButterfly:
		if s.Radix < minRadix || s.Radix > maxRadix {
			return unsupportedf(s, "radix %d outside supported range [%d, %d]", s.Radix, minRadix, maxRadix)
		}
		if s.Layout != LayoutInterleaved && s.Layout != LayoutPlanar {
			return unsupportedf(s, "radix butterflies require a complex layout, got %s", s.Layout)
		}
	case FamilyChirpSetup, FamilyChirpMultiply:
		if s.Precision == PrecisionHalf {
			return unsupportedf(s, "chirp kernels are not available in half precision")
		}
		if s.Layout != LayoutInterleaved {
			return unsupportedf(s, "chirp kernels require interleaved layout, got %s", s.Layout)
		}
		if s.Length < 2 {
			return unsupportedf(s, "chirp transform length %d is too short", s.Length)
		}
		if s.ChirpLength < 2*s.Length-1 {
			return unsupportedf(s, "chirp padded length %d below minimum %d", s.ChirpLength, 2*s.Length-1)
		}
	case FamilyTranspose:
		if s.Layout != LayoutInterleaved && s.Layout != LayoutPlanar {
			return unsupportedf(s, "transpose requires a complex layout, got %s", s.Layout)
		}
	case FamilyRealComplexPack:
		if s.Layout != LayoutReal && s.Layout != LayoutHermitian {
			return unsupportedf(s, "pack kernels require real or hermitian layout, got %s", s.Layout)
		}
		if s.Precision == PrecisionHalf {
			return unsupportedf(s, "pack kernels are not available in half precision")
		}
	case FamilyCopy:
		// Any precision and layout.
	default:
		return unsupportedf(s, "unknown kernel family %d", s.Family)
	}
	switch s.Precision {
	case PrecisionSingle, PrecisionDouble, PrecisionHalf:
	default:
		return unsupportedf(s, "unknown precision %d", s.Precision)
	}
	return nil
}

// EntryPoint derives the kernel entry-point name. The name encodes every
// field that participates in generation, so distinct specs never collide
// and equal specs always resolve to the same cache entry.
func (s KernelSpec) EntryPoint() string {
	switch s.Family {
	case FamilyRadixButterfly:
		return fmt.Sprintf("fft_stage_%s_radix%d_%s_%s_%s",
			s.Direction, s.Radix, s.Precision, s.Layout, s.Stride)
	case FamilyChirpSetup:
		return fmt.Sprintf("fft_chirp_%s_len%d_pad%d_%s_%s",
			s.Direction, s.Length, s.ChirpLength, s.Precision, s.Layout)
	case FamilyChirpMultiply:
		return fmt.Sprintf("fft_chirp_mul_%s_len%d_pad%d_%s_%s",
			s.Direction, s.Length, s.ChirpLength, s.Precision, s.Layout)
	case FamilyTranspose:
		return fmt.Sprintf("fft_transpose_%s_%s_%s_%s",
			s.Direction, s.Precision, s.Layout, s.Stride)
	case FamilyRealComplexPack:
		return fmt.Sprintf("fft_pack_%s_%s_%s",
			s.Direction, s.Precision, s.Layout)
	case FamilyCopy:
		return fmt.Sprintf("fft_copy_%s_%s_%s_%s",
			s.Direction, s.Precision, s.Layout, s.Stride)
	default:
		return fmt.Sprintf("fft_unknown_%d", s.Family)
	}
}

// String renders the spec for error messages and logs.
func (s KernelSpec) String() string {
	return fmt.Sprintf("%s{dir=%s prec=%s layout=%s radix=%d len=%d pad=%d stride=%s}",
		s.Family, s.Direction, s.Precision, s.Layout, s.Radix, s.Length, s.ChirpLength, s.Stride)
}
