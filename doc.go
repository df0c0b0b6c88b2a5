// Package gpufft is a GPU-accelerated Fourier-transform engine built
// around runtime kernel compilation.
//
// A transform length is decomposed into radix stages (or a Bluestein chirp
// convolution when its factors are not supported radices). Each stage maps
// to a kernel specification; the rtc subpackage generates device source
// for the specification, compiles it for the target architecture and
// persists the binary in a cross-process cache, so repeated runs pay the
// compiler cost once. The gpu subpackage loads the binaries and launches
// them; the mock backend executes the same math on the host for
// development and tests.
package gpufft
