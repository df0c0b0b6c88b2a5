package gpu

import (
	"context"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gpufft "github.com/cwbudde/gpufft"
	"github.com/cwbudde/gpufft/rtc"
)

func registerMock(t *testing.T) {
	t.Helper()
	RegisterMockBackend()
	t.Cleanup(func() { RegisterBackend(nil) })
}

// passthroughPipeline compiles by handing the generated source back as the
// binary, which is exactly what the mock module loader expects.
func passthroughPipeline(t *testing.T) *rtc.Pipeline {
	t.Helper()
	cache, err := rtc.Open(t.TempDir(), rtc.CacheOptions{})
	require.NoError(t, err)
	compiler := rtc.CompilerFunc(func(_ context.Context, source, _ string) ([]byte, error) {
		return []byte(source), nil
	})
	return rtc.NewPipeline(cache, compiler, rtc.PipelineOptions{})
}

func TestMockBackendRegistration(t *testing.T) {
	_, ok := CurrentBackendInfo()
	assert.False(t, ok, "no backend registered initially")

	registerMock(t)
	info, ok := CurrentBackendInfo()
	require.True(t, ok)
	assert.Equal(t, "mock", info.Name)

	devices, err := getBackend().Devices()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "mock", devices[0].ComputeCap)
}

func TestNewPlanRequiresBackend(t *testing.T) {
	desc, err := gpufft.NewPlan(8, gpufft.PrecisionDouble, gpufft.LayoutInterleaved, gpufft.PlanOptions{})
	require.NoError(t, err)
	_, err = NewPlan(desc, nil, PlanOptions{})
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestMockModuleEntryPoints(t *testing.T) {
	registerMock(t)
	ctx, err := getBackend().NewContext(0)
	require.NoError(t, err)
	defer ctx.Close()

	binary := []byte(`
extern "C" __global__ void fft_stage_fwd_radix4_sp_ci_unit(float2* in) {}
extern "C" __global__ void fft_stage_inv_radix4_sp_ci_unit(float2* in) {}
`)
	mod, err := ctx.LoadModule(binary)
	require.NoError(t, err)
	defer mod.Close()

	assert.ElementsMatch(t, []string{
		"fft_stage_fwd_radix4_sp_ci_unit",
		"fft_stage_inv_radix4_sp_ci_unit",
	}, mod.Kernels())

	k, err := mod.Kernel("fft_stage_fwd_radix4_sp_ci_unit")
	require.NoError(t, err)
	require.NoError(t, k.Launch(nil, Dim3{X: 1, Y: 1, Z: 1}, Dim3{X: 64, Y: 1, Z: 1}))

	_, err = mod.Kernel("no_such_kernel")
	assert.ErrorIs(t, err, ErrKernelNotFound)
}

func TestMockPlanRoundtrip(t *testing.T) {
	registerMock(t)

	for _, n := range []int{16, 24, 17} {
		desc, err := gpufft.NewPlan(n, gpufft.PrecisionDouble, gpufft.LayoutInterleaved, gpufft.PlanOptions{})
		require.NoError(t, err)
		plan, err := NewPlan(desc, passthroughPipeline(t), PlanOptions{})
		require.NoError(t, err)

		rng := rand.New(rand.NewSource(int64(n)))
		src := make([]complex128, n)
		for i := range src {
			src[i] = complex(rng.Float64()*2-1, rng.Float64()*2-1)
		}
		freq := make([]complex128, n)
		back := make([]complex128, n)
		require.NoError(t, plan.Forward(freq, src))
		require.NoError(t, plan.Inverse(back, freq))
		for i := range back {
			if d := cmplx.Abs(back[i] - src[i]); d > 1e-8 {
				t.Fatalf("n=%d: roundtrip drift %g at %d", n, d, i)
			}
		}
		require.NoError(t, plan.Close())
	}
}

func TestMockPlanCompilesThroughPipeline(t *testing.T) {
	registerMock(t)

	cache, err := rtc.Open(t.TempDir(), rtc.CacheOptions{})
	require.NoError(t, err)
	compiled := 0
	compiler := rtc.CompilerFunc(func(_ context.Context, source, _ string) ([]byte, error) {
		compiled++
		return []byte(source), nil
	})
	pipe := rtc.NewPipeline(cache, compiler, rtc.PipelineOptions{})

	desc, err := gpufft.NewPlan(64, gpufft.PrecisionSingle, gpufft.LayoutInterleaved, gpufft.PlanOptions{})
	require.NoError(t, err)
	plan, err := NewPlan(desc, pipe, PlanOptions{})
	require.NoError(t, err)
	defer plan.Close()

	want := len(desc.Specs(gpufft.Forward)) + len(desc.Specs(gpufft.Inverse))
	assert.Equal(t, want, compiled, "plan construction compiles each needed kernel once")

	// A second plan on the same pipeline hits the cache for everything.
	plan2, err := NewPlan(desc, pipe, PlanOptions{})
	require.NoError(t, err)
	defer plan2.Close()
	assert.Equal(t, want, compiled)
}

func TestMockPlanHalfPrecisionRounds(t *testing.T) {
	registerMock(t)

	desc, err := gpufft.NewPlan(8, gpufft.PrecisionHalf, gpufft.LayoutInterleaved, gpufft.PlanOptions{})
	require.NoError(t, err)
	plan, err := NewPlan(desc, passthroughPipeline(t), PlanOptions{})
	require.NoError(t, err)
	defer plan.Close()

	src := make([]complex128, 8)
	for i := range src {
		src[i] = complex(0.1*float64(i+1), 0)
	}
	dst := make([]complex128, 8)
	require.NoError(t, plan.Forward(dst, src))

	exact := make([]complex128, 8)
	descDP, err := gpufft.NewPlan(8, gpufft.PrecisionDouble, gpufft.LayoutInterleaved, gpufft.PlanOptions{})
	require.NoError(t, err)
	require.NoError(t, descDP.Transform(exact, src, gpufft.Forward))

	var differs bool
	for i := range dst {
		if d := cmplx.Abs(dst[i] - exact[i]); d > 0.1 {
			t.Fatalf("half-precision output too far from exact at %d: %g", i, d)
		}
		if dst[i] != exact[i] {
			differs = true
		}
	}
	assert.True(t, differs, "half precision must round the output")
}

func TestMockPlanArgumentErrors(t *testing.T) {
	registerMock(t)

	desc, err := gpufft.NewPlan(8, gpufft.PrecisionDouble, gpufft.LayoutInterleaved, gpufft.PlanOptions{})
	require.NoError(t, err)
	plan, err := NewPlan(desc, nil, PlanOptions{})
	require.NoError(t, err)
	defer plan.Close()

	buf := make([]complex128, 8)
	assert.ErrorIs(t, plan.Forward(nil, buf), ErrNilSlice)
	assert.ErrorIs(t, plan.Forward(buf, nil), ErrNilSlice)
	assert.ErrorIs(t, plan.Forward(make([]complex128, 4), buf), ErrLengthMismatch)
}

func TestMockBufferPrecisionRounding(t *testing.T) {
	registerMock(t)
	ctx, err := getBackend().NewContext(0)
	require.NoError(t, err)
	defer ctx.Close()

	buf, err := ctx.NewBuffer(4, gpufft.PrecisionSingle)
	require.NoError(t, err)
	defer buf.Close()
	assert.Equal(t, 4, buf.Len())

	src := []complex128{complex(0.1, 0.2), 1, 2, 3}
	require.NoError(t, buf.Upload(src))
	got := make([]complex128, 4)
	require.NoError(t, buf.Download(got))

	assert.NotEqual(t, src[0], got[0], "single precision storage rounds 0.1")
	assert.InDelta(t, 0.1, real(got[0]), 1e-6)
	assert.Equal(t, src[1], got[1])

	assert.ErrorIs(t, buf.Upload(make([]complex128, 3)), ErrLengthMismatch)
}
