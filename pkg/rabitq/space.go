package rabitq

import (
	"encoding/binary"
	"fmt"
	"os"
)

// rotatorTypeFhtKac is the only persisted rotator tag this space writes;
// kept as an explicit constant so the on-disk format has room to grow.
const rotatorTypeFhtKac uint32 = 0

// metricL2 is the only metric this space supports.
const metricL2 uint32 = 0

// Space bundles storage and the RaBitQ quantizer. It owns
// both exclusively; a GraphRefiner borrows it mutably for its one-shot run,
// a GraphSearchJob borrows it read-only.
type Space struct {
	dim       int
	paddedDim int
	capacity  int
	itemCnt   int
	quantizer *RBQQuantizer
	storage   *SequentialStorage
}

// NewSpace validates dim/capacity and allocates storage for an L2 RBQ
// space. seed fully determines the rotator.
func NewSpace(dim, capacity int, seed int64) (*Space, error) {
	if dim == 0 {
		return nil, ErrZeroDimension
	}
	if capacity == 0 {
		return nil, ErrZeroCapacity
	}
	paddedDim := PadDim(dim)
	rotator := NewFhtKacRotator(dim, seed)
	quantizer := NewRBQQuantizer(rotator)
	storage := NewSequentialStorage(dim, paddedDim, capacity)
	return &Space{
		dim:       dim,
		paddedDim: paddedDim,
		capacity:  capacity,
		quantizer: quantizer,
		storage:   storage,
	}, nil
}

// Dim returns the native (unpadded) vector dimension.
func (s *Space) Dim() int { return s.dim }

// PaddedDim returns the rotator's output dimension.
func (s *Space) PaddedDim() int { return s.paddedDim }

// Capacity returns the arena's slot count.
func (s *Space) Capacity() int { return s.capacity }

// ItemCount returns the number of points loaded by Fit.
func (s *Space) ItemCount() int { return s.itemCnt }

// Fit bulk-copies raw vectors into slots [0, N). Does not touch code
// blocks — those are populated by UpdateBatchData once a graph exists.
func (s *Space) Fit(data [][]float32) error {
	if len(data) > s.capacity {
		return ErrCapacityExceeded
	}
	for i, vec := range data {
		s.storage.SetRawVector(i, vec)
	}
	s.itemCnt = len(data)
	return nil
}

// RawVector returns a copy of the raw vector stored at id.
func (s *Space) RawVector(id int) []float32 {
	return s.storage.RawVector(id)
}

// UpdateBatchData materializes the DegreeBound neighbor vectors named by
// edges, quantizes them against the vector at c as centroid, and writes
// the resulting code block and factor arrays into slot c. Safe to call
// concurrently for distinct c, since each slot's writable region is
// disjoint.
func (s *Space) UpdateBatchData(c int, edges []int32) error {
	if len(edges) != DegreeBound {
		return ErrBadNeighborCount
	}
	centroid := s.storage.RawVector(c)
	neighbors := make([][]float32, DegreeBound)
	for i, e := range edges {
		if e < 0 {
			neighbors[i] = make([]float32, s.dim)
			continue
		}
		neighbors[i] = s.storage.RawVector(int(e))
	}
	codes, fAdd, fRescale := s.quantizer.BatchQuantize(neighbors, centroid)
	s.storage.SetNeighborBlock(c, codes, fAdd, fRescale)
	return nil
}

// GetDistance returns the exact squared L2 distance between the raw
// vectors stored at i and j.
func (s *Space) GetDistance(i, j int) float32 {
	return SquaredL2(s.storage.RawVector(i), s.storage.RawVector(j))
}

// GetQueryComputer builds a QueryComputer for query q.
func (s *Space) GetQueryComputer(q []float32) *QueryComputer {
	return newQueryComputer(s, q)
}

// Insert always fails: an RBQ space is a bulk-loaded, immutable-topology
// snapshot and does not support streaming inserts.
func (s *Space) Insert(vec []float32) error {
	return ErrUnsupportedOp
}

// Remove always fails, for the same reason as Insert.
func (s *Space) Remove(id int) error {
	return ErrUnsupportedOp
}

// Save writes the space to path in little-endian form:
// metric | dim | item_cnt | capacity | storage blob | quantizer.
func (s *Space) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], metricL2)
	binary.LittleEndian.PutUint32(header[4:8], uint32(s.dim))
	binary.LittleEndian.PutUint32(header[8:12], uint32(s.itemCnt))
	binary.LittleEndian.PutUint32(header[12:16], uint32(s.capacity))
	if _, err := f.Write(header); err != nil {
		return err
	}
	if _, err := f.Write(s.storage.Bytes()); err != nil {
		return err
	}

	quantHeader := make([]byte, 12)
	binary.LittleEndian.PutUint32(quantHeader[0:4], uint32(s.dim))
	binary.LittleEndian.PutUint32(quantHeader[4:8], uint32(s.paddedDim))
	binary.LittleEndian.PutUint32(quantHeader[8:12], rotatorTypeFhtKac)
	if _, err := f.Write(quantHeader); err != nil {
		return err
	}
	seedBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(seedBytes, uint64(s.quantizer.Rotator().Seed()))
	if _, err := f.Write(seedBytes); err != nil {
		return err
	}
	return nil
}

// LoadSpace reads a space previously written by Save.
func LoadSpace(path string) (*Space, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, 16)
	if _, err := readFull(f, header); err != nil {
		return nil, err
	}
	metric := binary.LittleEndian.Uint32(header[0:4])
	if metric != metricL2 {
		return nil, ErrUnsupportedMetric
	}
	dim := int(binary.LittleEndian.Uint32(header[4:8]))
	itemCnt := int(binary.LittleEndian.Uint32(header[8:12]))
	capacity := int(binary.LittleEndian.Uint32(header[12:16]))

	paddedDim := PadDim(dim)
	storage := NewSequentialStorage(dim, paddedDim, capacity)
	blob := make([]byte, storage.SlotStride()*capacity)
	if _, err := readFull(f, blob); err != nil {
		return nil, err
	}
	storage.LoadBytes(blob)

	quantHeader := make([]byte, 12)
	if _, err := readFull(f, quantHeader); err != nil {
		return nil, err
	}
	rotatorType := binary.LittleEndian.Uint32(quantHeader[8:12])
	if rotatorType != rotatorTypeFhtKac {
		return nil, fmt.Errorf("rabitq: unknown rotator type %d", rotatorType)
	}
	seedBytes := make([]byte, 8)
	if _, err := readFull(f, seedBytes); err != nil {
		return nil, err
	}
	seed := int64(binary.LittleEndian.Uint64(seedBytes))

	rotator := NewFhtKacRotator(dim, seed)
	quantizer := NewRBQQuantizer(rotator)

	return &Space{
		dim:       dim,
		paddedDim: paddedDim,
		capacity:  capacity,
		itemCnt:   itemCnt,
		quantizer: quantizer,
		storage:   storage,
	}, nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// QueryComputer is per-query state: the once-rotated query, its quantized
// LUT, and the working estimated-distance array for whichever centroid was
// last loaded.
type QueryComputer struct {
	space        *Space
	rotatedQuery []float32
	lut          *LUT
	gK1xSumQ     float32
	rawQuery     []float32

	estDists [DegreeBound]float32
	gAdd     float32
	accum    [DegreeBound]uint16
}

const c1 = -0.5

func newQueryComputer(space *Space, q []float32) *QueryComputer {
	rotated := make([]float32, space.paddedDim)
	space.quantizer.Rotator().Rotate(q, rotated)
	lut := NewLUT(rotated, space.paddedDim)

	var sum float32
	for _, v := range rotated {
		sum += v
	}

	return &QueryComputer{
		space:        space,
		rotatedQuery: rotated,
		lut:          lut,
		gK1xSumQ:     c1 * sum,
		rawQuery:     q,
	}
}

// LoadCentroid computes the exact query-to-centroid distance and, via
// FastScan, the batched estimated distances to all DegreeBound neighbors
// named by edges.
func (qc *QueryComputer) LoadCentroid(c int32, edges []int32) {
	qc.gAdd = SquaredL2(qc.rawQuery, qc.space.storage.RawVector(int(c)))

	codeBlock := qc.space.storage.NeighborCodeBlock(int(c))
	Accumulate(codeBlock, qc.lut.Bytes, qc.accum[:], qc.space.paddedDim, DegreeBound)

	fAdd := qc.space.storage.FAdd(int(c))
	fRescale := qc.space.storage.FRescale(int(c))
	delta := qc.lut.Delta
	sumVL := qc.lut.SumVL

	for j := 0; j < DegreeBound; j++ {
		qc.estDists[j] = fAdd[j] + qc.gAdd + fRescale[j]*(delta*float32(qc.accum[j])+sumVL+qc.gK1xSumQ)
	}

	_ = edges // edges identify which ids the estimates correspond to; the
	// caller pairs estDists[i] with edges[i].
}

// Est returns the estimated squared distance to the i-th neighbor of the
// currently loaded centroid. No bounds check on the hot path.
func (qc *QueryComputer) Est(i int) float32 {
	return qc.estDists[i]
}

// GetExactQRCDist returns the exact query-to-centroid distance computed by
// the most recent LoadCentroid, used to rerank the centroid itself.
func (qc *QueryComputer) GetExactQRCDist() float32 {
	return qc.gAdd
}
