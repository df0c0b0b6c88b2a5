package generator

import "testing"

func TestSignatureStable(t *testing.T) {
	first := Signature()
	if len(first) != 16 {
		t.Fatalf("signature length = %d, want 16", len(first))
	}
	for _, c := range first {
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
		if !isHex {
			t.Fatalf("signature %q contains non-hex character %q", first, c)
		}
	}
	if again := Signature(); again != first {
		t.Fatalf("signature changed within process: %q vs %q", first, again)
	}
}

func TestProbeSpecsAllSupported(t *testing.T) {
	for _, spec := range probeSpecs {
		if err := spec.Validate(); err != nil {
			t.Errorf("probe spec %s fails validation: %v", spec, err)
		}
	}
}
