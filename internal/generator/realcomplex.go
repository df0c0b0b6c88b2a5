package generator

import (
	"fmt"
	"strings"
)

// emitRealComplexPack writes the real <-> hermitian conversion kernels.
//
// LayoutReal emits the pre-process step: adjacent real samples are packed
// into complex pairs ahead of a half-length complex transform (forward),
// or unpacked back into reals (inverse).
//
// LayoutHermitian emits the post-process butterfly that splits the packed
// half-length spectrum Z into the even/odd sub-spectra and recombines them
// into the hermitian half-spectrum. The recombination twiddles are supplied
// by the plan so the kernel stays length agnostic.
func emitRealComplexPack(b *strings.Builder, spec KernelSpec, entryPoint string) error {
	if spec.Layout == LayoutReal {
		body := `{
    const unsigned int i = blockIdx.x * blockDim.x + threadIdx.x;
    if (i >= half) {
        return;
    }
    out[i] = (complex_t){in[2u * i], in[2u * i + 1u]};
}`
		sig := "const real_t* in, complex_t* out, unsigned int half"
		if spec.Direction == Inverse {
			sig = "const complex_t* in, real_t* out, unsigned int half"
			body = `{
    const unsigned int i = blockIdx.x * blockDim.x + threadIdx.x;
    if (i >= half) {
        return;
    }
    out[2u * i] = in[i].x;
    out[2u * i + 1u] = in[i].y;
}`
		}
		fmt.Fprintf(b, "extern \"C\" __global__ void %s(%s)\n%s\n", entryPoint, sig, body)
		return nil
	}

	// Hermitian post/pre-process. Forward: spectrum of the packed transform
	// to hermitian half-spectrum; inverse: the reverse combine.
	rot := "o = cmul(tw[k], o);"
	combine := "x[k] = cadd(e, o);"
	if spec.Direction == Inverse {
		rot = "o = cmul(cconj(tw[k]), o);"
		combine = "x[k] = csub(e, o);"
	}
	fmt.Fprintf(b, "extern \"C\" __global__ void %s(const complex_t* z, complex_t* x, const complex_t* tw, unsigned int half)\n", entryPoint)
	fmt.Fprintf(b, `{
    const unsigned int k = blockIdx.x * blockDim.x + threadIdx.x;
    if (k > half) {
        return;
    }
    const complex_t a = z[k %% half];
    const complex_t bb = cconj(z[(half - k) %% half]);
    const complex_t e = cscale((real_t)0.5, cadd(a, bb));
    complex_t o = cscale((real_t)0.5, csub(a, bb));
    %s
    %s
}
`, rot, combine)
	return nil
}

// emitCopy writes the padded copy kernel. Elements beyond the source
// length are zero filled, which is what the Bluestein scratch setup needs.
func emitCopy(b *strings.Builder, spec KernelSpec, entryPoint string) error {
	if spec.Layout == LayoutReal {
		params := "const real_t* in, real_t* out, unsigned int n_in, unsigned int n_out"
		if spec.Stride == Strided {
			params += ", unsigned int istride, unsigned int ostride"
		}
		idxIn, idxOut := "i", "i"
		if spec.Stride == Strided {
			idxIn, idxOut = "i * istride", "i * ostride"
		}
		fmt.Fprintf(b, "extern \"C\" __global__ void %s(%s)\n", entryPoint, params)
		fmt.Fprintf(b, `{
    const unsigned int i = blockIdx.x * blockDim.x + threadIdx.x;
    if (i >= n_out) {
        return;
    }
    out[%s] = (i < n_in) ? in[%s] : (real_t)0.0;
}
`, idxOut, idxIn)
		return nil
	}

	inParam, outParam := bufferParams(spec.Layout)
	params := fmt.Sprintf("%s, %s, unsigned int n_in, unsigned int n_out", inParam, outParam)
	if spec.Stride == Strided {
		params += ", unsigned int istride, unsigned int ostride"
	}
	idxIn, idxOut := "i", "i"
	if spec.Stride == Strided {
		idxIn, idxOut = "i * istride", "i * ostride"
	}
	fmt.Fprintf(b, "extern \"C\" __global__ void %s(%s)\n", entryPoint, params)
	fmt.Fprintf(b, `{
    const unsigned int i = blockIdx.x * blockDim.x + threadIdx.x;
    if (i >= n_out) {
        return;
    }
    const complex_t v = (i < n_in) ? %s : (complex_t){(real_t)0.0, (real_t)0.0};
    %s
}
`, loadExpr(spec.Layout, idxIn), storeStmt(spec.Layout, idxOut, "v"))
	return nil
}
