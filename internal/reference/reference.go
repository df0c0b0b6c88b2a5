// Package reference provides host-side implementations of every generated
// kernel family. The mock backend executes plans through this package, and
// the generator tests use it to pin down the numerical contract of the
// emitted device code without a device attached.
package reference

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/x448/float16"

	"github.com/cwbudde/gpufft/internal/generator"
)

func sign(dir generator.Direction) float64 {
	if dir == generator.Inverse {
		return 1
	}
	return -1
}

// Transform computes the unnormalized DFT of src into dst. Lengths with
// small prime factors recurse through mixed-radix decimation; prime lengths
// fall back to the direct sum. Inverse transforms are unnormalized, like
// the device path: the plan owns the 1/N scaling.
func Transform(dst, src []complex128, dir generator.Direction) error {
	if len(dst) != len(src) {
		return fmt.Errorf("gpufft/reference: length mismatch %d != %d", len(dst), len(src))
	}
	copy(dst, dft(src, sign(dir)))
	return nil
}

func dft(x []complex128, s float64) []complex128 {
	n := len(x)
	if n <= 1 {
		out := make([]complex128, n)
		copy(out, x)
		return out
	}
	r := smallestFactor(n)
	if r == n {
		return naiveDFT(x, s)
	}
	m := n / r

	// Decimation in time over residues mod r.
	subs := make([][]complex128, r)
	for j := 0; j < r; j++ {
		sub := make([]complex128, m)
		for t := 0; t < m; t++ {
			sub[t] = x[t*r+j]
		}
		subs[j] = dft(sub, s)
	}

	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		var acc complex128
		for j := 0; j < r; j++ {
			w := cmplx.Exp(complex(0, s*2*math.Pi*float64(j*k)/float64(n)))
			acc += w * subs[j][k%m]
		}
		out[k] = acc
	}
	return out
}

func naiveDFT(x []complex128, s float64) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		var acc complex128
		for t := 0; t < n; t++ {
			acc += x[t] * cmplx.Exp(complex(0, s*2*math.Pi*float64(k*t)/float64(n)))
		}
		out[k] = acc
	}
	return out
}

func smallestFactor(n int) int {
	for f := 2; f*f <= n; f++ {
		if n%f == 0 {
			return f
		}
	}
	return n
}

// StageTwiddles computes the twiddle table one radix stage consumes, laid
// out exactly as the generated kernel indexes it: (radix-1) entries per
// butterfly index i, with tw[(radix-1)*i + (j-1)] = w_span^(i*j).
func StageTwiddles(radix, span int, dir generator.Direction) []complex128 {
	m := span / radix
	tw := make([]complex128, m*(radix-1))
	for i := 0; i < m; i++ {
		for j := 1; j < radix; j++ {
			theta := sign(dir) * 2 * math.Pi * float64(i*j) / float64(span)
			tw[(radix-1)*i+(j-1)] = cmplx.Exp(complex(0, theta))
		}
	}
	return tw
}

// ApplyStage runs one radix stage over src into dst with the same
// indexing the generated stage kernel uses: total/radix butterflies,
// gather stride total/radix, scatter into blocks of span. dst and src must
// not alias.
func ApplyStage(dst, src []complex128, radix, span, total int, twiddles []complex128, dir generator.Direction) error {
	if len(dst) < total || len(src) < total {
		return fmt.Errorf("gpufft/reference: stage buffers shorter than %d", total)
	}
	if span%radix != 0 || total%span != 0 {
		return fmt.Errorf("gpufft/reference: invalid stage geometry radix=%d span=%d total=%d", radix, span, total)
	}
	m := span / radix
	dist := total / radix
	regs := make([]complex128, radix)
	for tid := 0; tid < dist; tid++ {
		blk := tid / m
		i := tid % m
		for q := 0; q < radix; q++ {
			regs[q] = src[blk*m+i+q*dist]
		}
		for q := 1; q < radix; q++ {
			regs[q] *= twiddles[(radix-1)*i+(q-1)]
		}
		butterfly(regs, dir)
		for q := 0; q < radix; q++ {
			dst[blk*span+q*m+i] = regs[q]
		}
	}
	return nil
}

// butterfly computes the in-register DFT of len(regs) points, the host
// twin of the emitted butterfly functions (which end in natural output
// order regardless of their internal permutations).
func butterfly(regs []complex128, dir generator.Direction) {
	r := len(regs)
	out := make([]complex128, r)
	for k := 0; k < r; k++ {
		var acc complex128
		for j := 0; j < r; j++ {
			theta := sign(dir) * 2 * math.Pi * float64(j*k) / float64(r)
			acc += regs[j] * cmplx.Exp(complex(0, theta))
		}
		out[k] = acc
	}
	copy(regs, out)
}

// ChirpSequence builds the Bluestein chirp table the chirp-setup kernel
// produces: w[k] = exp(s*i*pi*k^2/n) for k < n, mirrored into the tail of
// the padded buffer.
func ChirpSequence(n, pad int, dir generator.Direction) []complex128 {
	w := make([]complex128, pad)
	for k := 0; k < n; k++ {
		k2 := (uint64(k) * uint64(k)) % uint64(2*n)
		theta := sign(dir) * math.Pi * float64(k2) / float64(n)
		w[k] = cmplx.Exp(complex(0, theta))
		if k > 0 {
			w[pad-k] = w[k]
		}
	}
	return w
}

// NextPow2 returns the smallest power of two >= n.
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Bluestein computes the DFT of src by chirp convolution, mirroring the
// device algorithm: pad to a power of two >= 2n-1, multiply by the chirp,
// convolve with the mirrored conjugate chirp, multiply by the chirp again.
func Bluestein(dst, src []complex128, dir generator.Direction) error {
	n := len(src)
	if len(dst) != n {
		return fmt.Errorf("gpufft/reference: length mismatch %d != %d", len(dst), n)
	}
	if n == 0 {
		return nil
	}
	pad := NextPow2(2*n - 1)

	c := ChirpSequence(n, pad, dir)
	opposite := generator.Forward
	if dir == generator.Forward {
		opposite = generator.Inverse
	}
	b := ChirpSequence(n, pad, opposite)

	a := make([]complex128, pad)
	for k := 0; k < n; k++ {
		a[k] = src[k] * c[k]
	}

	fa := dft(a, -1)
	fb := dft(b, -1)
	for k := range fa {
		fa[k] *= fb[k]
	}
	conv := dft(fa, 1)
	scale := complex(1/float64(pad), 0)
	for k := 0; k < n; k++ {
		dst[k] = conv[k] * scale * c[k]
	}
	return nil
}

// Transpose transposes a rows x cols matrix, the host twin of the tiled
// transpose kernel.
func Transpose(dst, src []complex128, rows, cols int) error {
	if len(src) < rows*cols || len(dst) < rows*cols {
		return fmt.Errorf("gpufft/reference: transpose buffers shorter than %d", rows*cols)
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			dst[x*rows+y] = src[y*cols+x]
		}
	}
	return nil
}

// RoundSingle rounds a complex value through float32 storage, matching
// what a single-precision device buffer holds.
func RoundSingle(v complex128) complex128 {
	return complex(float64(float32(real(v))), float64(float32(imag(v))))
}

// RoundHalf rounds a complex value through IEEE binary16 storage, matching
// what a half-precision device buffer holds.
func RoundHalf(v complex128) complex128 {
	re := float16.Fromfloat32(float32(real(v))).Float32()
	im := float16.Fromfloat32(float32(imag(v))).Float32()
	return complex(float64(re), float64(im))
}
