// Package gpu provides the device abstraction for gpufft.
//
// This package defines a backend-neutral API for device discovery, buffer
// allocation, module loading and kernel launches. Compiled kernel binaries
// come from the rtc pipeline; a backend only has to load them into an
// execution context and launch them with plan-computed grid/block
// parameters. A backend must be registered at runtime; the mock backend
// executes plans on the CPU for development and tests.
package gpu
