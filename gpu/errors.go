package gpu

import "errors"

var (
	// ErrNoBackend is returned when no GPU backend is registered.
	ErrNoBackend = errors.New("gpufft/gpu: no backend registered")

	// ErrBackendUnavailable is returned when the backend is registered but not
	// available on the current system (e.g., no device, driver missing).
	ErrBackendUnavailable = errors.New("gpufft/gpu: backend unavailable")

	// ErrNotImplemented is returned by stubbed operations.
	ErrNotImplemented = errors.New("gpufft/gpu: not implemented")

	// ErrKernelNotFound is returned when a module does not contain the
	// requested entry point.
	ErrKernelNotFound = errors.New("gpufft/gpu: kernel not found in module")

	// ErrInvalidLength is returned for invalid plan or buffer sizes.
	ErrInvalidLength = errors.New("gpufft/gpu: invalid length")

	// ErrNilSlice is returned when dst or src is nil.
	ErrNilSlice = errors.New("gpufft/gpu: nil slice")

	// ErrLengthMismatch is returned when dst or src lengths are not as required.
	ErrLengthMismatch = errors.New("gpufft/gpu: length mismatch")
)
