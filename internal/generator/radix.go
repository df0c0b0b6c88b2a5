package generator

import (
	"fmt"
	"math"
	"strings"
)

// Butterfly constants for the handwritten radix-3 sequence.
// c3qb is sin(2*pi/3).
const (
	c3qa = 0.5
	c3qb = 0.86602540378443864676372317075294
)

// butterflyName returns the device function name of the radix-R butterfly.
func butterflyName(radix int, dir Direction) string {
	prefix := "Fwd"
	if dir == Inverse {
		prefix = "Inv"
	}
	return fmt.Sprintf("%sRad%dB1", prefix, radix)
}

// butterflyArgOrder returns the register order the butterfly function is
// called with. Radix 4 takes its middle registers swapped so the final
// output permutation happens inside the butterfly.
func butterflyArgOrder(radix int) []int {
	if radix == 4 {
		return []int{0, 2, 1, 3}
	}
	order := make([]int, radix)
	for i := range order {
		order[i] = i
	}
	return order
}

// emitButterfly writes the radix-R in-register butterfly device function.
// Radices 2, 3 and 4 use fused handwritten sequences; other radices fall
// back to the unrolled literal-twiddle DFT.
func emitButterfly(b *strings.Builder, radix int, dir Direction) {
	switch radix {
	case 2:
		emitRad2(b, dir)
	case 3:
		emitRad3(b, dir)
	case 4:
		emitRad4(b, dir)
	default:
		emitRadLiteral(b, radix, dir)
	}
}

func butterflyParams(radix int) string {
	parts := make([]string, radix)
	for i := range parts {
		parts[i] = fmt.Sprintf("complex_t* R%d", i)
	}
	return strings.Join(parts, ", ")
}

// emitRad2 writes the radix-2 butterfly. The sequence is direction
// independent: out0 = in0 + in1, out1 = in0 - in1.
func emitRad2(b *strings.Builder, dir Direction) {
	fmt.Fprintf(b, "static __device__ void %s(%s)\n", butterflyName(2, dir), butterflyParams(2))
	b.WriteString(`{
    (*R1) = csub(*R0, *R1);
    (*R0) = csub(cscale((real_t)2.0, *R0), *R1);
}

`)
}

// emitRad3 writes the radix-3 butterfly. The sign of the c3qb terms flips
// between forward and inverse.
func emitRad3(b *strings.Builder, dir Direction) {
	plus, minus := "+", "-"
	if dir == Inverse {
		plus, minus = "-", "+"
	}
	fmt.Fprintf(b, "static __device__ void %s(%s)\n", butterflyName(3, dir), butterflyParams(3))
	fmt.Fprintf(b, `{
    const real_t C3QA = %s;
    const real_t C3QB = %s;
    real_t TR0, TI0, TR1, TI1, TR2, TI2;
    TR0 = (*R0).x + (*R1).x + (*R2).x;
    TI0 = (*R0).y + (*R1).y + (*R2).y;
    TR1 = ((*R0).x - C3QA * ((*R1).x + (*R2).x)) %s C3QB * ((*R1).y - (*R2).y);
    TI1 = ((*R0).y - C3QA * ((*R1).y + (*R2).y)) %s C3QB * ((*R1).x - (*R2).x);
    TR2 = ((*R0).x - C3QA * ((*R1).x + (*R2).x)) %s C3QB * ((*R1).y - (*R2).y);
    TI2 = ((*R0).y - C3QA * ((*R1).y + (*R2).y)) %s C3QB * ((*R1).x - (*R2).x);
    (*R0) = (complex_t){TR0, TI0};
    (*R1) = (complex_t){TR1, TI1};
    (*R2) = (complex_t){TR2, TI2};
}

`, fmtReal(c3qa), fmtReal(c3qb), plus, minus, minus, plus)
}

// emitRad4 writes the radix-4 butterfly as a two-level radix-2
// decomposition. Between the levels the odd pair is rotated by 90 degrees:
// forward rotates (x, y) to (-y, x), inverse to (y, -x).
func emitRad4(b *strings.Builder, dir Direction) {
	rot := "(complex_t){-(*R3).y, (*R3).x}"
	if dir == Inverse {
		rot = "(complex_t){(*R3).y, -(*R3).x}"
	}
	fmt.Fprintf(b, "static __device__ void %s(%s)\n", butterflyName(4, dir), butterflyParams(4))
	fmt.Fprintf(b, `{
    complex_t res;

    (*R1) = csub(*R0, *R1);
    (*R0) = csub(cscale((real_t)2.0, *R0), *R1);
    (*R3) = csub(*R2, *R3);
    (*R2) = csub(cscale((real_t)2.0, *R2), *R3);

    (*R2) = csub(*R0, *R2);
    (*R0) = csub(cscale((real_t)2.0, *R0), *R2);

    (*R3) = cadd(*R1, %s);
    (*R1) = csub(cscale((real_t)2.0, *R1), *R3);

    res   = (*R1);
    (*R1) = (*R2);
    (*R2) = res;
}

`, rot)
}

// emitRadLiteral writes an unrolled DFT butterfly with twiddle factors
// baked in as literals. Trivial factors (1, -1, +/-i) are emitted as adds,
// subtracts and axis swaps instead of full complex multiplies.
func emitRadLiteral(b *strings.Builder, radix int, dir Direction) {
	fmt.Fprintf(b, "static __device__ void %s(%s)\n{\n", butterflyName(radix, dir), butterflyParams(radix))
	for k := 0; k < radix; k++ {
		fmt.Fprintf(b, "    complex_t X%d;\n", k)
	}
	for k := 0; k < radix; k++ {
		fmt.Fprintf(b, "    X%d = *R0;\n", k)
		for j := 1; j < radix; j++ {
			b.WriteString("    " + literalTerm(k, j, radix, dir) + "\n")
		}
	}
	for k := 0; k < radix; k++ {
		fmt.Fprintf(b, "    (*R%d) = X%d;\n", k, k)
	}
	b.WriteString("}\n\n")
}

// literalTerm emits "Xk = Xk (op) W^(jk) * Rj" for one DFT term.
func literalTerm(k, j, radix int, dir Direction) string {
	t := (j * k) % radix
	switch {
	case t == 0:
		return fmt.Sprintf("X%d = cadd(X%d, *R%d);", k, k, j)
	case radix%2 == 0 && t == radix/2:
		return fmt.Sprintf("X%d = csub(X%d, *R%d);", k, k, j)
	case radix%4 == 0 && t == radix/4:
		// W = -i forward, +i inverse.
		if dir == Forward {
			return fmt.Sprintf("X%d = cadd(X%d, (complex_t){(*R%d).y, -(*R%d).x});", k, k, j, j)
		}
		return fmt.Sprintf("X%d = cadd(X%d, (complex_t){-(*R%d).y, (*R%d).x});", k, k, j, j)
	case radix%4 == 0 && t == 3*radix/4:
		if dir == Forward {
			return fmt.Sprintf("X%d = cadd(X%d, (complex_t){-(*R%d).y, (*R%d).x});", k, k, j, j)
		}
		return fmt.Sprintf("X%d = cadd(X%d, (complex_t){(*R%d).y, -(*R%d).x});", k, k, j, j)
	default:
		sign := -1.0
		if dir == Inverse {
			sign = 1.0
		}
		theta := sign * 2 * math.Pi * float64(t) / float64(radix)
		re, im := math.Cos(theta), math.Sin(theta)
		return fmt.Sprintf("X%d = cadd(X%d, cmul((complex_t){%s, %s}, *R%d));",
			k, k, fmtReal(re), fmtReal(im), j)
	}
}

// emitRadixStage writes the radix-R Stockham stage kernel. The stage span
// and total transform length arrive as launch arguments so one compiled
// kernel serves every stage of that radix. The plan supplies a twiddle
// table laid out as (radix-1) entries per butterfly index.
func emitRadixStage(b *strings.Builder, spec KernelSpec, entryPoint string) error {
	r := spec.Radix
	emitButterfly(b, r, spec.Direction)

	inParam, outParam := bufferParams(spec.Layout)
	params := fmt.Sprintf("%s, %s, const complex_t* twiddles, unsigned int span, unsigned int total",
		inParam, outParam)
	if spec.Stride == Strided {
		params += ", unsigned int istride, unsigned int ostride"
	}

	srcIdx := func(expr string) string {
		if spec.Stride == Strided {
			return "(" + expr + ") * istride"
		}
		return expr
	}
	dstIdx := func(expr string) string {
		if spec.Stride == Strided {
			return "(" + expr + ") * ostride"
		}
		return expr
	}

	fmt.Fprintf(b, "extern \"C\" __global__ void %s(%s)\n{\n", entryPoint, params)
	fmt.Fprintf(b, "    const unsigned int m = span / %du;\n", r)
	fmt.Fprintf(b, "    const unsigned int dist = total / %du;\n", r)
	b.WriteString(`    const unsigned int tid = blockIdx.x * blockDim.x + threadIdx.x;
    if (tid >= dist) {
        return;
    }
    const unsigned int blk = tid / m;
    const unsigned int i = tid % m;

`)
	for q := 0; q < r; q++ {
		fmt.Fprintf(b, "    complex_t X%d = %s;\n", q,
			loadExpr(spec.Layout, srcIdx(fmt.Sprintf("blk * m + i + %du * dist", q))))
	}
	b.WriteString("\n")
	for q := 1; q < r; q++ {
		fmt.Fprintf(b, "    X%d = cmul(twiddles[%du * i + %du], X%d);\n", q, r-1, q-1, q)
	}
	args := make([]string, r)
	for pos, reg := range butterflyArgOrder(r) {
		args[pos] = fmt.Sprintf("&X%d", reg)
	}
	fmt.Fprintf(b, "\n    %s(%s);\n\n", butterflyName(r, spec.Direction), strings.Join(args, ", "))
	for q := 0; q < r; q++ {
		fmt.Fprintf(b, "    %s\n",
			storeStmt(spec.Layout, dstIdx(fmt.Sprintf("blk * span + %du * m + i", q)), fmt.Sprintf("X%d", q)))
	}
	b.WriteString("}\n")
	return nil
}
