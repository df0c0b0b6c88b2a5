package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// generatorVersionTag is bumped on any semantic change to the emitters
// that probe coverage below cannot observe (support matrix edits, launch
// argument contract changes).
const generatorVersionTag = "v3"

var (
	signatureOnce sync.Once
	signature     string
)

// probeSpecs is the fixed set of specifications hashed into the generator
// signature. It exercises every family, both directions, every layout the
// support matrix admits and both butterfly emitters, so any change to
// generated text changes the signature.
var probeSpecs = []KernelSpec{
	{Family: FamilyRadixButterfly, Precision: PrecisionSingle, Direction: Forward, Layout: LayoutInterleaved, Radix: 2},
	{Family: FamilyRadixButterfly, Precision: PrecisionDouble, Direction: Inverse, Layout: LayoutPlanar, Radix: 3},
	{Family: FamilyRadixButterfly, Precision: PrecisionSingle, Direction: Forward, Layout: LayoutInterleaved, Radix: 4},
	{Family: FamilyRadixButterfly, Precision: PrecisionHalf, Direction: Inverse, Layout: LayoutInterleaved, Radix: 4, Stride: Strided},
	{Family: FamilyRadixButterfly, Precision: PrecisionDouble, Direction: Forward, Layout: LayoutInterleaved, Radix: 5},
	{Family: FamilyRadixButterfly, Precision: PrecisionSingle, Direction: Inverse, Layout: LayoutInterleaved, Radix: 7},
	{Family: FamilyRadixButterfly, Precision: PrecisionSingle, Direction: Forward, Layout: LayoutInterleaved, Radix: 8},
	{Family: FamilyRadixButterfly, Precision: PrecisionDouble, Direction: Forward, Layout: LayoutPlanar, Radix: 16},
	{Family: FamilyChirpSetup, Precision: PrecisionDouble, Direction: Forward, Layout: LayoutInterleaved, Length: 17, ChirpLength: 64},
	{Family: FamilyChirpSetup, Precision: PrecisionSingle, Direction: Inverse, Layout: LayoutInterleaved, Length: 17, ChirpLength: 64},
	{Family: FamilyChirpMultiply, Precision: PrecisionDouble, Direction: Inverse, Layout: LayoutInterleaved, Length: 17, ChirpLength: 64},
	{Family: FamilyTranspose, Precision: PrecisionSingle, Direction: Forward, Layout: LayoutInterleaved},
	{Family: FamilyTranspose, Precision: PrecisionDouble, Direction: Forward, Layout: LayoutPlanar, Stride: Strided},
	{Family: FamilyRealComplexPack, Precision: PrecisionSingle, Direction: Forward, Layout: LayoutReal},
	{Family: FamilyRealComplexPack, Precision: PrecisionDouble, Direction: Inverse, Layout: LayoutHermitian},
	{Family: FamilyCopy, Precision: PrecisionSingle, Direction: Forward, Layout: LayoutInterleaved},
	{Family: FamilyCopy, Precision: PrecisionDouble, Direction: Forward, Layout: LayoutReal, Stride: Strided},
}

// Signature returns the version fingerprint of the generation logic.
//
// It hashes the source text the emitters produce for a fixed probe set of
// specifications, so it changes exactly when generated output changes and
// never depends on build metadata or timestamps. Cached binaries keyed on
// an older signature are treated as misses by the compile cache.
func Signature() string {
	signatureOnce.Do(func() {
		h := sha256.New()
		fmt.Fprintf(h, "gpufft-generator-%s\n", generatorVersionTag)
		for _, spec := range probeSpecs {
			name, src, err := Generate(spec)
			if err != nil {
				// Probe specs are supported by construction; a failure
				// here is a generator defect and must not yield a
				// colliding signature.
				panic(fmt.Sprintf("gpufft/generator: signature probe %s failed: %v", spec, err))
			}
			fmt.Fprintf(h, "%s\n%s\n", name, src)
		}
		signature = hex.EncodeToString(h.Sum(nil))[:16]
	})
	return signature
}
