package rabitq

// SquaredL2 returns Σ (x_i - y_i)^2. Pure, no allocation, no state. The main
// loop takes 4 dims at a time and a scalar tail loop handles the remainder,
// so a single portable implementation covers every dim.
func SquaredL2(x, y []float32) float32 {
	var sum float32
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	i := 0
	for ; i+4 <= n; i += 4 {
		d0 := x[i] - y[i]
		d1 := x[i+1] - y[i+1]
		d2 := x[i+2] - y[i+2]
		d3 := x[i+3] - y[i+3]
		sum += d0*d0 + d1*d1 + d2*d2 + d3*d3
	}
	for ; i < n; i++ {
		d := x[i] - y[i]
		sum += d * d
	}
	return sum
}

// DotProduct returns Σ x_i·y_i.
func DotProduct(x, y []float32) float32 {
	var sum float32
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	for i := 0; i < n; i++ {
		sum += x[i] * y[i]
	}
	return sum
}

// NormSq returns ‖x‖².
func NormSq(x []float32) float32 {
	return DotProduct(x, x)
}

// dequantizeAffine reconstructs v = min + b*(max-min)/(levels-1) for a single
// quantized level b through the per-dimension affine map.
func dequantizeAffine(b byte, min, max float32, levels int) float32 {
	if levels <= 1 {
		return min
	}
	return min + float32(b)*(max-min)/float32(levels-1)
}

// SquaredL2SQ8 computes squared L2 between a raw float vector and an SQ8
// (byte-per-dim) quantized vector, dequantizing on the fly against the
// per-dimension min/max that produced the code.
func SquaredL2SQ8(x []float32, codes []byte, min, max []float32) float32 {
	var sum float32
	n := len(x)
	if len(codes) < n {
		n = len(codes)
	}
	for i := 0; i < n; i++ {
		v := dequantizeAffine(codes[i], min[i], max[i], 256)
		d := x[i] - v
		sum += d * d
	}
	return sum
}

// SquaredL2SQ4 computes squared L2 against a 4-bit (nibble-per-dim) coded
// vector, two dims per packed byte, low nibble first.
func SquaredL2SQ4(x []float32, packed []byte, min, max []float32) float32 {
	var sum float32
	n := len(x)
	for i := 0; i < n; i++ {
		byteIdx := i / 2
		if byteIdx >= len(packed) {
			break
		}
		var nibble byte
		if i%2 == 0 {
			nibble = packed[byteIdx] & 0x0F
		} else {
			nibble = (packed[byteIdx] >> 4) & 0x0F
		}
		v := dequantizeAffine(nibble, min[i], max[i], 16)
		d := x[i] - v
		sum += d * d
	}
	return sum
}
