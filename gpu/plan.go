package gpu

import (
	gpufft "github.com/cwbudde/gpufft"
	"github.com/cwbudde/gpufft/rtc"
)

// Plan is a GPU-backed FFT plan for a specific size and precision.
//
// The plan owns GPU streams and the backend-specific implementation and is
// safe for concurrent use only if the underlying backend is thread-safe.
type Plan struct {
	desc    *gpufft.Plan
	ctx     Context
	streams []Stream
	options PlanOptions
	impl    PlanImpl
}

// NewPlan creates a GPU plan using the registered backend. Kernels are
// compiled through pipe against the context device's compute capability;
// pipe may be nil for backends that carry prebuilt kernels (the mock).
func NewPlan(desc *gpufft.Plan, pipe *rtc.Pipeline, opts PlanOptions) (*Plan, error) {
	if desc == nil || desc.Len() < 1 {
		return nil, ErrInvalidLength
	}

	backend := getBackend()
	if backend == nil {
		return nil, ErrNoBackend
	}
	if !backend.Available() {
		return nil, ErrBackendUnavailable
	}

	ctx, err := backend.NewContext(opts.DeviceIndex)
	if err != nil {
		return nil, err
	}

	streamCount := opts.StreamCount
	if streamCount <= 0 {
		streamCount = 1
	}
	streams := make([]Stream, 0, streamCount)
	for i := 0; i < streamCount; i++ {
		stream, err := ctx.NewStream()
		if err != nil {
			for _, s := range streams {
				_ = s.Close()
			}
			_ = ctx.Close()
			return nil, err
		}
		streams = append(streams, stream)
	}

	impl, err := ctx.NewFFTPlan(desc, pipe)
	if err != nil {
		for _, s := range streams {
			_ = s.Close()
		}
		_ = ctx.Close()
		return nil, err
	}

	return &Plan{
		desc:    desc,
		ctx:     ctx,
		streams: streams,
		options: opts,
		impl:    impl,
	}, nil
}

// Len returns the FFT length (number of complex samples) for this Plan.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return p.desc.Len()
}

// Precision returns the plan precision.
func (p *Plan) Precision() Precision {
	if p == nil {
		return gpufft.PrecisionSingle
	}
	return p.desc.Precision()
}

// Forward computes the forward FFT on the GPU.
func (p *Plan) Forward(dst, src []complex128) error {
	return p.run(dst, src, gpufft.Forward)
}

// Inverse computes the inverse FFT on the GPU.
func (p *Plan) Inverse(dst, src []complex128) error {
	return p.run(dst, src, gpufft.Inverse)
}

func (p *Plan) run(dst, src []complex128, dir gpufft.Direction) error {
	if p == nil || p.impl == nil {
		return ErrNotImplemented
	}
	if dst == nil || src == nil {
		return ErrNilSlice
	}
	n := p.desc.Len() * p.desc.Batch()
	if len(dst) < n || len(src) < n {
		return ErrLengthMismatch
	}
	if dir == gpufft.Inverse {
		return p.impl.Inverse(dst, src)
	}
	return p.impl.Forward(dst, src)
}

// ForwardInPlace computes the forward FFT in-place.
func (p *Plan) ForwardInPlace(data []complex128) error {
	return p.Forward(data, data)
}

// InverseInPlace computes the inverse FFT in-place.
func (p *Plan) InverseInPlace(data []complex128) error {
	return p.Inverse(data, data)
}

// Close releases GPU resources associated with the plan.
func (p *Plan) Close() error {
	if p == nil {
		return nil
	}
	if p.impl != nil {
		_ = p.impl.Close()
		p.impl = nil
	}
	var firstErr error
	for _, s := range p.streams {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.streams = nil
	if p.ctx != nil {
		if err := p.ctx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.ctx = nil
	}
	return firstErr
}
