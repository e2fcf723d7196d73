package rabitq

// DegreeBound is the fixed neighbor-block size the FastScan kernel and the
// RaBitQ quantizer are built around.
const DegreeBound = 32

// RBQQuantizer owns the rotator and turns a (centroid, 32 neighbors) block
// into packed binary codes plus per-neighbor correction factors.
type RBQQuantizer struct {
	rotator   *FhtKacRotator
	paddedDim int
}

// NewRBQQuantizer builds a quantizer around the given rotator.
func NewRBQQuantizer(rotator *FhtKacRotator) *RBQQuantizer {
	return &RBQQuantizer{rotator: rotator, paddedDim: rotator.PaddedDim()}
}

// Rotator exposes the underlying rotator (the space persists its seed).
func (q *RBQQuantizer) Rotator() *FhtKacRotator { return q.rotator }

// PaddedDim returns the padded dimension codes are computed in.
func (q *RBQQuantizer) PaddedDim() int { return q.paddedDim }

// compactCodeLen is the byte length of one neighbor's MSB-first bit-packed
// residual-sign code.
func (q *RBQQuantizer) compactCodeLen() int { return q.paddedDim / 8 }

// PackedBlockLen is the byte length of the FastScan-packed neighbor code
// block for DegreeBound neighbors: two 4-bit nibbles per byte, so
// paddedDim*DegreeBound/8 bytes.
func (q *RBQQuantizer) PackedBlockLen() int {
	return (q.paddedDim * DegreeBound) / 8
}

// BatchQuantize rotates the centroid and the DegreeBound neighbor vectors,
// computes each neighbor's residual-sign code and its two correction
// factors, and returns the FastScan-packed code block alongside f_add and
// f_rescale (each length DegreeBound).
func (q *RBQQuantizer) BatchQuantize(neighbors [][]float32, centroid []float32) (codeBlock []byte, fAdd, fRescale []float32) {
	d := len(neighbors)
	cRot := make([]float32, q.paddedDim)
	q.rotator.Rotate(centroid, cRot)

	compactCodes := make([][]byte, d)
	fAdd = make([]float32, d)
	fRescale = make([]float32, d)

	oRot := make([]float32, q.paddedDim)
	residual := make([]float32, q.paddedDim)

	for n := 0; n < d; n++ {
		q.rotator.Rotate(neighbors[n], oRot)

		var l2 float32
		for k := 0; k < q.paddedDim; k++ {
			residual[k] = oRot[k] - cRot[k]
			l2 += residual[k] * residual[k]
		}

		code := make([]byte, q.compactCodeLen())
		var ipResi, ipCent float32
		for k := 0; k < q.paddedDim; k++ {
			positive := residual[k] > 0
			yBar := float32(-0.5)
			if positive {
				yBar = 0.5
				byteIdx := k / 8
				bitInByte := 7 - uint(k%8)
				code[byteIdx] |= 1 << bitInByte
			}
			ipResi += yBar * residual[k]
			ipCent += yBar * cRot[k]
		}
		compactCodes[n] = code

		if ipResi == 0 {
			fAdd[n] = l2
			fRescale[n] = 0
			continue
		}
		fAdd[n] = l2 + 2*l2*ipCent/ipResi
		fRescale[n] = -2 * l2 / ipResi
	}

	codeBlock = make([]byte, q.PackedBlockLen())
	PackCodes(q.paddedDim, compactCodes, codeBlock)
	return codeBlock, fAdd, fRescale
}
