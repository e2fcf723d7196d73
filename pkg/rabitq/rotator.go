package rabitq

import (
	"math"
	"math/rand"
)

// kacRounds is the number of butterfly rounds applied after the Hadamard
// pass. Each round is a random pairing of padded_dim/2 Givens rotations, so
// a handful of rounds is enough to spread mass across every coordinate
// (a "Kac random walk" mixing argument) while keeping the whole rotate()
// call at O(padded_dim log padded_dim).
const kacRounds = 4

// PadDim rounds dim up to the next multiple of 64, per spec's padded_dim
// invariant (also keeps padded_dim a multiple of 8 for bit packing).
func PadDim(dim int) int {
	if dim <= 0 {
		return 64
	}
	return ((dim + 63) / 64) * 64
}

// kacRound holds one round of paired Givens rotations: pairs[r] is rotated
// with (cos[r], sin[r]).
type kacRound struct {
	pairs [][2]int
	cos   []float32
	sin   []float32
}

// FhtKacRotator is the default rotator: a sign-flip mask,
// a Fast Hadamard Transform, then several rounds of random Givens rotations
// (a Kac random walk). The composition of sign flips, an orthonormal FHT,
// and Givens rotations is itself orthogonal, so Euclidean norm is preserved
// up to floating-point rounding.
type FhtKacRotator struct {
	dim       int
	paddedDim int
	seed      int64
	signs     []float32
	rounds    []kacRound
}

// NewFhtKacRotator builds a rotator for vectors of length dim, padding to a
// multiple of 64. The seed fully determines the sign mask and the Kac
// rotation angles, so rotate() is deterministic given a persisted seed.
func NewFhtKacRotator(dim int, seed int64) *FhtKacRotator {
	padded := PadDim(dim)
	r := &FhtKacRotator{dim: dim, paddedDim: padded, seed: seed}
	rng := rand.New(rand.NewSource(seed))

	r.signs = make([]float32, padded)
	for i := range r.signs {
		if rng.Intn(2) == 0 {
			r.signs[i] = -1
		} else {
			r.signs[i] = 1
		}
	}

	r.rounds = make([]kacRound, kacRounds)
	for k := 0; k < kacRounds; k++ {
		perm := rng.Perm(padded)
		numPairs := padded / 2
		round := kacRound{
			pairs: make([][2]int, numPairs),
			cos:   make([]float32, numPairs),
			sin:   make([]float32, numPairs),
		}
		for p := 0; p < numPairs; p++ {
			round.pairs[p] = [2]int{perm[2*p], perm[2*p+1]}
			theta := rng.Float64() * 2 * math.Pi
			round.cos[p] = float32(math.Cos(theta))
			round.sin[p] = float32(math.Sin(theta))
		}
		r.rounds[k] = round
	}
	return r
}

// Dim returns the configured input dimension.
func (r *FhtKacRotator) Dim() int { return r.dim }

// PaddedDim returns the rotated output dimension.
func (r *FhtKacRotator) PaddedDim() int { return r.paddedDim }

// Seed returns the seed this rotator was constructed with, for persistence.
func (r *FhtKacRotator) Seed() int64 { return r.seed }

// Rotate writes the rotated form of src (length dim, zero-padded to
// paddedDim) into dst (length paddedDim). ‖dst‖² == ‖src‖² modulo rounding.
func (r *FhtKacRotator) Rotate(src []float32, dst []float32) {
	for i := 0; i < r.paddedDim; i++ {
		if i < len(src) {
			dst[i] = src[i]
		} else {
			dst[i] = 0
		}
	}

	for i := 0; i < r.paddedDim; i++ {
		dst[i] *= r.signs[i]
	}

	fht(dst)

	for _, round := range r.rounds {
		for p, pair := range round.pairs {
			a, b := pair[0], pair[1]
			c, s := round.cos[p], round.sin[p]
			x, y := dst[a], dst[b]
			dst[a] = c*x - s*y
			dst[b] = s*x + c*y
		}
	}
}

// fht performs an in-place, orthonormal Fast Hadamard Transform. The
// butterfly needs a power-of-two length; PadDim only guarantees a multiple
// of 64, so a non-power-of-two length is split into its largest
// power-of-two prefix plus a recursively transformed remainder. Each block
// is normalized by 1/sqrt(blockLen), so the whole map stays block-diagonal
// orthonormal and preserves Euclidean norm; the Kac rounds afterwards mix
// mass across block boundaries.
func fht(a []float32) {
	n := len(a)
	if n <= 1 {
		return
	}
	if n&(n-1) == 0 {
		fhtPow2(a)
		return
	}
	block := 1
	for block*2 <= n {
		block *= 2
	}
	fhtPow2(a[:block])
	fht(a[block:])
}

func fhtPow2(a []float32) {
	n := len(a)
	for size := 1; size < n; size *= 2 {
		for start := 0; start < n; start += size * 2 {
			for i := start; i < start+size; i++ {
				x, y := a[i], a[i+size]
				a[i] = x + y
				a[i+size] = x - y
			}
		}
	}
	scale := float32(1.0 / math.Sqrt(float64(n)))
	for i := range a {
		a[i] *= scale
	}
}
