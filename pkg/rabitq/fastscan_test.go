package rabitq

import "testing"

// scalarAccumulate re-implements Accumulate's contract directly from the
// packed nibble layout, independent of the production loop structure, as a
// reference to check PackCodes+Accumulate against.
func scalarAccumulate(codes [][]byte, lut []byte, paddedDim int) []uint16 {
	d := len(codes)
	out := make([]uint16, d)
	numBlocks := paddedDim / 4
	for n := 0; n < d; n++ {
		var sum uint16
		for block := 0; block < numBlocks; block++ {
			nib := nibbleBits(codes[n], block)
			sum += uint16(lut[block*16+int(nib)])
		}
		out[n] = sum
	}
	return out
}

func TestPackCodesAccumulateAgreesWithScalar(t *testing.T) {
	paddedDim := 64
	numBlocks := paddedDim / 4
	d := 32

	codes := make([][]byte, d)
	for n := range codes {
		code := make([]byte, paddedDim/8)
		for b := range code {
			// Deterministic but non-trivial bit pattern per neighbor.
			code[b] = byte((n*7 + b*3) % 256)
		}
		codes[n] = code
	}

	lut := make([]byte, numBlocks*16)
	for i := range lut {
		lut[i] = byte((i*13 + 5) % 256)
	}

	packed := make([]byte, numBlocks*d)
	PackCodes(paddedDim, codes, packed)

	got := make([]uint16, d)
	Accumulate(packed, lut, got, paddedDim, d)

	want := scalarAccumulate(codes, lut, paddedDim)

	for n := 0; n < d; n++ {
		if got[n] != want[n] {
			t.Errorf("neighbor %d: accumulate=%d scalar=%d", n, got[n], want[n])
		}
	}
}

func TestNibbleBitsExtractsMSBFirstBits(t *testing.T) {
	// byte 0b1011_0000: bit7=1 bit6=0 bit5=1 bit4=1 -> dims 0..3 = 1,0,1,1
	code := []byte{0b1011_0000}
	nib := nibbleBits(code, 0)
	want := byte(1 | 0<<1 | 1<<2 | 1<<3)
	if nib != want {
		t.Errorf("nibbleBits = %04b, want %04b", nib, want)
	}
}
