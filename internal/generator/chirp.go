package generator

import (
	"fmt"
	"strings"
)

// emitChirpSetup writes the Bluestein chirp-table kernel. The table holds
// w[k] = exp(sign * i * pi * k^2 / N) for k < N, mirrored into the tail of
// the padded buffer so the circular convolution sees a symmetric filter.
// The k^2 term is reduced mod 2N before the float conversion to keep the
// phase argument small for large lengths.
func emitChirpSetup(b *strings.Builder, spec KernelSpec, entryPoint string) error {
	sign := "-"
	if spec.Direction == Inverse {
		sign = ""
	}
	fmt.Fprintf(b, "extern \"C\" __global__ void %s(complex_t* chirp)\n", entryPoint)
	fmt.Fprintf(b, `{
    const unsigned int n = %du;
    const unsigned int pad = %du;
    const unsigned int k = blockIdx.x * blockDim.x + threadIdx.x;
    if (k >= n) {
        return;
    }
    const unsigned long long k2 = ((unsigned long long)k * k) %% (2ull * n);
    const double theta = %s3.14159265358979323846 * (double)k2 / (double)n;
    const complex_t w = {(real_t)cos(theta), (real_t)sin(theta)};
    chirp[k] = w;
    if (k > 0u) {
        chirp[pad - k] = w;
    }
}
`, spec.Length, spec.ChirpLength, sign)
	return nil
}

// emitChirpMultiply writes the pointwise convolution multiply used between
// the forward and inverse passes over the padded buffer. The inverse
// variant folds in the 1/pad normalization of the inner transform.
func emitChirpMultiply(b *strings.Builder, spec KernelSpec, entryPoint string) error {
	scale := "v"
	if spec.Direction == Inverse {
		scale = fmt.Sprintf("cscale(%s, v)", fmtReal(1.0/float64(spec.ChirpLength)))
	}
	fmt.Fprintf(b, "extern \"C\" __global__ void %s(complex_t* inout, const complex_t* filter)\n", entryPoint)
	fmt.Fprintf(b, `{
    const unsigned int pad = %du;
    const unsigned int k = blockIdx.x * blockDim.x + threadIdx.x;
    if (k >= pad) {
        return;
    }
    const complex_t v = cmul(inout[k], filter[k]);
    inout[k] = %s;
}
`, spec.ChirpLength, scale)
	return nil
}
