package generator

import (
	"errors"
	"fmt"
)

// ErrUnsupported is the sentinel wrapped by every *UnsupportedError, so
// callers can match the error class with errors.Is.
var ErrUnsupported = errors.New("gpufft/generator: unsupported kernel specification")

// UnsupportedError reports a kernel specification the generator cannot
// produce source for. It is fatal to the compile request it belongs to
// and is never substituted with a fallback kernel.
type UnsupportedError struct {
	Spec   KernelSpec
	Reason string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("gpufft/generator: unsupported specification %s: %s", e.Spec, e.Reason)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

func unsupportedf(spec KernelSpec, format string, args ...any) error {
	return &UnsupportedError{Spec: spec, Reason: fmt.Sprintf(format, args...)}
}

// GenerationError reports an internal inconsistency while synthesizing
// source for a specification that passed validation. It indicates a
// generator defect, not a caller mistake.
type GenerationError struct {
	Spec   KernelSpec
	Reason string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("gpufft/generator: generation failed for %s: %s", e.Spec, e.Reason)
}
