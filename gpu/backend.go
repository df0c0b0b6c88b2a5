package gpu

import (
	"sync"

	gpufft "github.com/cwbudde/gpufft"
	"github.com/cwbudde/gpufft/rtc"
)

// Backend is implemented by GPU backends (HIP, CUDA, Metal, Vulkan, etc.).
// It is responsible for device discovery, buffer allocation, module
// loading and kernel execution.
type Backend interface {
	Info() BackendInfo
	Available() bool
	Devices() ([]DeviceInfo, error)
	NewContext(deviceIndex int) (Context, error)
}

// Context represents a backend-specific GPU context tied to a device.
type Context interface {
	Device() DeviceInfo
	// NewBuffer allocates a device buffer for complex data.
	NewBuffer(elemCount int, precision Precision) (Buffer, error)
	// NewStream creates an execution stream/queue.
	NewStream() (Stream, error)
	// LoadModule loads a compiled binary produced by the rtc pipeline.
	LoadModule(binary []byte) (Module, error)
	// NewFFTPlan binds a decomposed plan to this context, compiling its
	// kernels through the given pipeline.
	NewFFTPlan(plan *gpufft.Plan, pipe *rtc.Pipeline) (PlanImpl, error)
	Close() error
}

// Module is a loaded device binary exposing its kernel entry points.
type Module interface {
	// Kernel resolves an entry point by name.
	Kernel(name string) (Kernel, error)
	// Kernels lists the entry points the module exports.
	Kernels() []string
	Close() error
}

// Kernel is one launchable entry point of a loaded module.
type Kernel interface {
	// Launch enqueues the kernel with the given geometry and arguments.
	Launch(s Stream, grid, block Dim3, args ...any) error
}

// Buffer is a device buffer.
type Buffer interface {
	Len() int
	Precision() Precision
	// Upload copies from host to device.
	Upload(src any) error
	// Download copies from device to host.
	Download(dst any) error
	Close() error
}

// Stream represents an execution queue/stream.
type Stream interface {
	Synchronize() error
	Close() error
}

// PlanImpl is a backend-specific FFT plan implementation.
type PlanImpl interface {
	Len() int
	Precision() Precision
	Forward(dst, src []complex128) error
	Inverse(dst, src []complex128) error
	Close() error
}

var (
	backendMu sync.RWMutex
	backend   Backend
)

// RegisterBackend registers a GPU backend. Passing nil clears the backend.
func RegisterBackend(b Backend) {
	backendMu.Lock()
	backend = b
	backendMu.Unlock()
}

// CurrentBackendInfo reports the currently registered backend, if any.
func CurrentBackendInfo() (BackendInfo, bool) {
	backendMu.RLock()
	b := backend
	backendMu.RUnlock()
	if b == nil {
		return BackendInfo{}, false
	}
	return b.Info(), true
}

func getBackend() Backend {
	backendMu.RLock()
	b := backend
	backendMu.RUnlock()
	return b
}
