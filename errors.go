package gpufft

import "errors"

// Sentinel errors returned by plan construction and execution.
var (
	// ErrInvalidLength is returned when the transform size is not valid.
	// Any length >= 1 is accepted; lengths without small prime factors
	// take the Bluestein path, so this only fires for non-positive sizes.
	ErrInvalidLength = errors.New("gpufft: invalid transform length")

	// ErrInvalidBatch is returned when the batch count is not positive.
	ErrInvalidBatch = errors.New("gpufft: invalid batch count")

	// ErrInvalidLayout is returned when the requested layout is not valid
	// for the plan kind (e.g. a real layout for a complex plan).
	ErrInvalidLayout = errors.New("gpufft: invalid layout for plan")

	// ErrNilSlice is returned when a nil slice is passed to a transform method.
	ErrNilSlice = errors.New("gpufft: nil slice")

	// ErrLengthMismatch is returned when input/output slice sizes don't match
	// the Plan's expected dimensions.
	ErrLengthMismatch = errors.New("gpufft: slice length mismatch")
)
