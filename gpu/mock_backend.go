package gpu

import (
	"context"
	"fmt"
	"strings"

	gpufft "github.com/cwbudde/gpufft"
	"github.com/cwbudde/gpufft/internal/reference"
	"github.com/cwbudde/gpufft/rtc"
)

// MockBackend is a CPU-backed GPU backend for development and tests.
// It satisfies the GPU backend interfaces but executes on the CPU through
// the host reference path. Loaded modules index their entry points from
// the binary text and record launches without computing anything.
type MockBackend struct {
	device DeviceInfo
}

// NewMockBackend returns a mock backend with a single fake device.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		device: DeviceInfo{
			Name:       "MockGPU",
			Vendor:     "gpufft",
			Driver:     "mock",
			MemoryMB:   0,
			ComputeCap: "mock",
		},
	}
}

func (b *MockBackend) Info() BackendInfo {
	return BackendInfo{
		Name:        "mock",
		Version:     "0.1",
		Description: "CPU-backed mock GPU backend",
	}
}

func (b *MockBackend) Available() bool {
	return true
}

func (b *MockBackend) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{b.device}, nil
}

func (b *MockBackend) NewContext(deviceIndex int) (Context, error) {
	if deviceIndex != 0 {
		return nil, fmt.Errorf("mock backend: device index %d out of range", deviceIndex)
	}
	return &mockContext{device: b.device}, nil
}

// RegisterMockBackend registers the mock backend as the active backend.
func RegisterMockBackend() {
	RegisterBackend(NewMockBackend())
}

type mockContext struct {
	device DeviceInfo
}

func (c *mockContext) Device() DeviceInfo {
	return c.device
}

func (c *mockContext) NewBuffer(elemCount int, precision Precision) (Buffer, error) {
	if elemCount < 0 {
		return nil, ErrInvalidLength
	}
	return &mockBuffer{
		precision: precision,
		data:      make([]complex128, elemCount),
	}, nil
}

func (c *mockContext) NewStream() (Stream, error) {
	return &mockStream{}, nil
}

// LoadModule indexes the entry points of the "binary". The mock pipeline
// compiler passes source text through as the binary, so entry points are
// recovered from the extern "C" declarations.
func (c *mockContext) LoadModule(binary []byte) (Module, error) {
	text := string(binary)
	var names []string
	const marker = "__global__ void "
	for {
		i := strings.Index(text, marker)
		if i < 0 {
			break
		}
		text = text[i+len(marker):]
		end := strings.IndexByte(text, '(')
		if end < 0 {
			break
		}
		names = append(names, strings.TrimSpace(text[:end]))
	}
	return &mockModule{names: names}, nil
}

func (c *mockContext) NewFFTPlan(plan *gpufft.Plan, pipe *rtc.Pipeline) (PlanImpl, error) {
	if plan == nil {
		return nil, ErrInvalidLength
	}
	// Mirror the real flow: compile and load every kernel the plan needs,
	// even though execution happens on the host reference path.
	if pipe != nil {
		for _, dir := range []gpufft.Direction{gpufft.Forward, gpufft.Inverse} {
			kernels, err := plan.CompileKernels(context.Background(), pipe, c.device.ComputeCap, dir)
			if err != nil {
				return nil, err
			}
			for _, k := range kernels {
				mod, err := c.LoadModule(k.Binary)
				if err != nil {
					return nil, err
				}
				if _, err := mod.Kernel(k.Name); err != nil {
					_ = mod.Close()
					return nil, err
				}
				_ = mod.Close()
			}
		}
	}
	return &mockPlan{plan: plan}, nil
}

func (c *mockContext) Close() error {
	return nil
}

type mockModule struct {
	names    []string
	launches int
}

func (m *mockModule) Kernel(name string) (Kernel, error) {
	for _, n := range m.names {
		if n == name {
			return &mockKernel{module: m}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrKernelNotFound, name)
}

func (m *mockModule) Kernels() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

func (m *mockModule) Close() error { return nil }

type mockKernel struct {
	module *mockModule
}

// Launch records the launch and succeeds. The mock computes through the
// host reference path instead of replaying individual kernels.
func (k *mockKernel) Launch(_ Stream, _, _ Dim3, _ ...any) error {
	k.module.launches++
	return nil
}

type mockBuffer struct {
	precision Precision
	data      []complex128
}

func (b *mockBuffer) Len() int             { return len(b.data) }
func (b *mockBuffer) Precision() Precision { return b.precision }

// Upload copies host data into the buffer, rounding through the buffer's
// storage precision the way a device buffer would.
func (b *mockBuffer) Upload(src any) error {
	s, ok := src.([]complex128)
	if !ok {
		return ErrNotImplemented
	}
	if len(s) != len(b.data) {
		return ErrLengthMismatch
	}
	for i, v := range s {
		b.data[i] = roundTo(b.precision, v)
	}
	return nil
}

func (b *mockBuffer) Download(dst any) error {
	d, ok := dst.([]complex128)
	if !ok {
		return ErrNotImplemented
	}
	if len(d) != len(b.data) {
		return ErrLengthMismatch
	}
	copy(d, b.data)
	return nil
}

func (b *mockBuffer) Close() error { return nil }

func roundTo(p Precision, v complex128) complex128 {
	switch p {
	case gpufft.PrecisionHalf:
		return reference.RoundHalf(v)
	case gpufft.PrecisionSingle:
		return reference.RoundSingle(v)
	default:
		return v
	}
}

type mockStream struct{}

func (s *mockStream) Synchronize() error { return nil }
func (s *mockStream) Close() error       { return nil }

type mockPlan struct {
	plan *gpufft.Plan
}

func (p *mockPlan) Len() int             { return p.plan.Len() }
func (p *mockPlan) Precision() Precision { return p.plan.Precision() }

func (p *mockPlan) Forward(dst, src []complex128) error {
	if err := p.plan.Transform(dst, src, gpufft.Forward); err != nil {
		return err
	}
	p.round(dst)
	return nil
}

func (p *mockPlan) Inverse(dst, src []complex128) error {
	if err := p.plan.Transform(dst, src, gpufft.Inverse); err != nil {
		return err
	}
	p.round(dst)
	return nil
}

func (p *mockPlan) round(data []complex128) {
	if p.plan.Precision() == gpufft.PrecisionDouble {
		return
	}
	n := p.plan.Len() * p.plan.Batch()
	for i := 0; i < n; i++ {
		data[i] = roundTo(p.plan.Precision(), data[i])
	}
}

func (p *mockPlan) Close() error { return nil }
