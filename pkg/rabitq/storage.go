package rabitq

import (
	"encoding/binary"
	"math"
)

// SequentialStorage is a single contiguous arena of fixed-size slots, one
// per point id. Slot layout:
//
//	[0                     ) raw vector       dim * 4 bytes
//	[rawEnd                ) neighbor codes   paddedDim * D / 8 bytes
//	[codesEnd              ) f_add[D]         D * 4 bytes
//	[fAddEnd               ) f_rescale[D]     D * 4 bytes
//
// Each id's writable region is disjoint from every other id's, so
// UpdateBatchData can be called concurrently for distinct ids.
type SequentialStorage struct {
	dim        int
	paddedDim  int
	capacity   int
	neiCodeLen int // paddedDim * D / 8
	rawEnd     int
	codesEnd   int
	fAddEnd    int
	slotStride int
	arena      []byte
}

// NewSequentialStorage allocates an arena for capacity points of the given
// raw and padded dimension.
func NewSequentialStorage(dim, paddedDim, capacity int) *SequentialStorage {
	rawLen := dim * 4
	neiCodeLen := (paddedDim * DegreeBound) / 8
	fAddLen := DegreeBound * 4
	fRescaleLen := DegreeBound * 4

	s := &SequentialStorage{
		dim:        dim,
		paddedDim:  paddedDim,
		capacity:   capacity,
		neiCodeLen: neiCodeLen,
		rawEnd:     rawLen,
		codesEnd:   rawLen + neiCodeLen,
		fAddEnd:    rawLen + neiCodeLen + fAddLen,
		slotStride: rawLen + neiCodeLen + fAddLen + fRescaleLen,
	}
	s.arena = make([]byte, s.slotStride*capacity)
	return s
}

// Capacity returns the number of slots in the arena.
func (s *SequentialStorage) Capacity() int { return s.capacity }

// SlotStride returns the byte size of one slot.
func (s *SequentialStorage) SlotStride() int { return s.slotStride }

func (s *SequentialStorage) slot(id int) []byte {
	start := id * s.slotStride
	return s.arena[start : start+s.slotStride]
}

// RawVector decodes the dim raw floats stored at id.
func (s *SequentialStorage) RawVector(id int) []float32 {
	slot := s.slot(id)
	out := make([]float32, s.dim)
	decodeFloat32Slice(slot[:s.rawEnd], out)
	return out
}

// SetRawVector writes dim raw floats for id.
func (s *SequentialStorage) SetRawVector(id int, vec []float32) {
	slot := s.slot(id)
	encodeFloat32Slice(slot[:s.rawEnd], vec)
}

// NeighborCodeBlock returns the FastScan-packed neighbor code block for id.
func (s *SequentialStorage) NeighborCodeBlock(id int) []byte {
	slot := s.slot(id)
	return slot[s.rawEnd:s.codesEnd]
}

// FAdd returns the D f_add correction factors for id.
func (s *SequentialStorage) FAdd(id int) []float32 {
	slot := s.slot(id)
	out := make([]float32, DegreeBound)
	decodeFloat32Slice(slot[s.codesEnd:s.fAddEnd], out)
	return out
}

// FRescale returns the D f_rescale correction factors for id.
func (s *SequentialStorage) FRescale(id int) []float32 {
	slot := s.slot(id)
	out := make([]float32, DegreeBound)
	decodeFloat32Slice(slot[s.fAddEnd:], out)
	return out
}

// SetNeighborBlock writes the code block and factor arrays for id together,
// since they are only meaningful as one unit: both are derived from the
// same neighbor list and centroid.
func (s *SequentialStorage) SetNeighborBlock(id int, codes []byte, fAdd, fRescale []float32) {
	slot := s.slot(id)
	copy(slot[s.rawEnd:s.codesEnd], codes)
	encodeFloat32Slice(slot[s.codesEnd:s.fAddEnd], fAdd)
	encodeFloat32Slice(slot[s.fAddEnd:], fRescale)
}

// Bytes exposes the raw arena for serialization.
func (s *SequentialStorage) Bytes() []byte { return s.arena }

// LoadBytes replaces the arena contents (used by LoadSpace).
func (s *SequentialStorage) LoadBytes(b []byte) { copy(s.arena, b) }

func encodeFloat32Slice(dst []byte, src []float32) {
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[i*4:i*4+4], math.Float32bits(v))
	}
}

func decodeFloat32Slice(src []byte, dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4 : i*4+4]))
	}
}
