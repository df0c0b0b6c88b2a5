package gpu

import gpufft "github.com/cwbudde/gpufft"

// Precision is the shared precision enum used by gpufft.
type Precision = gpufft.Precision

// DeviceInfo describes a GPU device. ComputeCap is the target architecture
// identifier the rtc pipeline keys compiled binaries on (e.g. "gfx90a",
// "sm_80").
type DeviceInfo struct {
	Name       string
	Vendor     string
	Driver     string
	MemoryMB   int
	ComputeCap string
}

// BackendInfo describes a backend implementation.
type BackendInfo struct {
	Name        string
	Version     string
	Description string
}

// Dim3 is a kernel launch dimension triple.
type Dim3 struct {
	X, Y, Z uint32
}

// PlanOptions controls GPU plan creation.
type PlanOptions struct {
	// DeviceIndex selects which device to use (0 = default).
	DeviceIndex int

	// StreamCount requests a number of execution streams/queues.
	StreamCount int

	// InPlace enables in-place transforms when supported.
	InPlace bool
}
