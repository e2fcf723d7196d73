package rabitq

import "math"

// LUT is the query-side lookup table built from a rotated query: a
// quantized 4-dims-at-a-time code-pattern table plus the two scalar
// correction constants needed to dequantize Accumulate's output.
type LUT struct {
	Bytes []byte  // len 16 * paddedDim/4, quantized table
	Delta float32 // (max-min)/255 of the float table; 0 is allowed
	SumVL float32 // lo * (paddedDim/4)
}

// NewLUT reshapes rotatedQuery (length paddedDim) into paddedDim/4 groups of
// 4 dims, enumerates all 16 bit patterns per group, and scalar-quantizes
// the resulting float table to uint8 with a uniform affine map.
//
// Entry (g, p) holds the partial inner product of the query's group g with
// the 0/1 code pattern p, i.e. the sum of q̃ over p's set bits. Summed over
// all groups via Accumulate this yields ⟨y_u, q̃⟩; the estimator's
// g_k1xsumq = -Σq̃/2 term then shifts it to ⟨y_u - 1/2, q̃⟩, which is the
// centered quantity the correction factors were derived against.
func NewLUT(rotatedQuery []float32, paddedDim int) *LUT {
	numGroups := paddedDim / 4
	floatTable := make([]float32, numGroups*16)

	for g := 0; g < numGroups; g++ {
		base := g * 4
		for p := 0; p < 16; p++ {
			var sum float32
			for k := 0; k < 4; k++ {
				dim := base + k
				if dim >= len(rotatedQuery) {
					continue
				}
				if (p>>uint(k))&1 == 1 {
					sum += rotatedQuery[dim]
				}
			}
			floatTable[g*16+p] = sum
		}
	}

	lo, hi := floatTable[0], floatTable[0]
	for _, v := range floatTable {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	delta := (hi - lo) / 255
	bytes := make([]byte, len(floatTable))
	if delta == 0 {
		// Constant table: every entry quantizes to 0, never fatal.
		for i := range bytes {
			bytes[i] = 0
		}
	} else {
		for i, v := range floatTable {
			b := math.Round(float64((v - lo) / delta))
			if b < 0 {
				b = 0
			}
			if b > 255 {
				b = 255
			}
			bytes[i] = byte(b)
		}
	}

	return &LUT{
		Bytes: bytes,
		Delta: delta,
		SumVL: lo * float32(numGroups),
	}
}
