package generator

import (
	"fmt"
	"strconv"
	"strings"
)

// Generate synthesizes device source for the given specification.
//
// It returns the kernel entry-point name and the complete source text.
// Generation is pure: equal specs yield byte-identical output. On error
// no partial source is returned.
func Generate(spec KernelSpec) (entryPoint, source string, err error) {
	if err := spec.Validate(); err != nil {
		return "", "", err
	}

	entryPoint = spec.EntryPoint()

	var b strings.Builder
	emitPrelude(&b, spec.Precision)

	switch spec.Family {
	case FamilyRadixButterfly:
		err = emitRadixStage(&b, spec, entryPoint)
	case FamilyChirpSetup:
		err = emitChirpSetup(&b, spec, entryPoint)
	case FamilyChirpMultiply:
		err = emitChirpMultiply(&b, spec, entryPoint)
	case FamilyTranspose:
		err = emitTranspose(&b, spec, entryPoint)
	case FamilyRealComplexPack:
		err = emitRealComplexPack(&b, spec, entryPoint)
	case FamilyCopy:
		err = emitCopy(&b, spec, entryPoint)
	default:
		// Validate admits every family Generate dispatches; reaching this
		// means the two switches went out of sync.
		err = &GenerationError{Spec: spec, Reason: "no emitter for family"}
	}
	if err != nil {
		return "", "", err
	}
	return entryPoint, b.String(), nil
}

// realType returns the device scalar type for a precision.
func realType(p Precision) string {
	switch p {
	case PrecisionDouble:
		return "double"
	case PrecisionHalf:
		return "_Float16"
	default:
		return "float"
	}
}

// emitPrelude writes the self-contained complex arithmetic helpers every
// kernel uses. RTC compilation has no include path, so the source carries
// its own type definitions.
func emitPrelude(b *strings.Builder, p Precision) {
	rt := realType(p)
	fmt.Fprintf(b, "// generated by gpufft rtc %s; do not edit\n", generatorVersionTag)
	fmt.Fprintf(b, "typedef %s real_t;\n", rt)
	b.WriteString(`typedef struct { real_t x, y; } complex_t;

static __device__ __forceinline__ complex_t cadd(complex_t a, complex_t b)
{
    return (complex_t){a.x + b.x, a.y + b.y};
}
static __device__ __forceinline__ complex_t csub(complex_t a, complex_t b)
{
    return (complex_t){a.x - b.x, a.y - b.y};
}
static __device__ __forceinline__ complex_t cmul(complex_t a, complex_t b)
{
    return (complex_t){a.x * b.x - a.y * b.y, a.x * b.y + a.y * b.x};
}
static __device__ __forceinline__ complex_t cscale(real_t s, complex_t a)
{
    return (complex_t){s * a.x, s * a.y};
}
static __device__ __forceinline__ complex_t cconj(complex_t a)
{
    return (complex_t){a.x, -a.y};
}

`)
}

// fmtReal formats a floating-point literal with enough digits to round-trip
// float64 exactly. Fixed formatting keeps generation byte-deterministic.
func fmtReal(v float64) string {
	return "(real_t)" + strconv.FormatFloat(v, 'e', 17, 64)
}

// bufferParams returns the in/out kernel parameters for a layout, and
// loadExpr/storeStmt return the matching access expressions. Planar layouts
// address separate re/im arrays; interleaved layouts address complex pairs.
func bufferParams(l Layout) (in, out string) {
	switch l {
	case LayoutPlanar:
		in = "const real_t* in_re, const real_t* in_im"
		out = "real_t* out_re, real_t* out_im"
	default:
		in = "const complex_t* in"
		out = "complex_t* out"
	}
	return in, out
}

func loadExpr(l Layout, idx string) string {
	if l == LayoutPlanar {
		return fmt.Sprintf("(complex_t){in_re[%s], in_im[%s]}", idx, idx)
	}
	return fmt.Sprintf("in[%s]", idx)
}

func storeStmt(l Layout, idx, val string) string {
	if l == LayoutPlanar {
		return fmt.Sprintf("out_re[%s] = %s.x; out_im[%s] = %s.y;", idx, val, idx, val)
	}
	return fmt.Sprintf("out[%s] = %s;", idx, val)
}
