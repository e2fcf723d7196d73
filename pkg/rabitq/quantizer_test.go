package rabitq

import (
	"math"
	"math/rand"
	"testing"
)

func randVec(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

func TestBatchQuantizeShapesAndFiniteFactors(t *testing.T) {
	dim := 64
	rotator := NewFhtKacRotator(dim, 11)
	q := NewRBQQuantizer(rotator)

	rng := rand.New(rand.NewSource(3))
	centroid := randVec(rng, dim)
	neighbors := make([][]float32, DegreeBound)
	for i := range neighbors {
		neighbors[i] = randVec(rng, dim)
	}

	codes, fAdd, fRescale := q.BatchQuantize(neighbors, centroid)

	if len(codes) != q.PackedBlockLen() {
		t.Fatalf("code block length = %d, want %d", len(codes), q.PackedBlockLen())
	}
	if len(fAdd) != DegreeBound || len(fRescale) != DegreeBound {
		t.Fatalf("factor arrays wrong length: fAdd=%d fRescale=%d", len(fAdd), len(fRescale))
	}
	for i := 0; i < DegreeBound; i++ {
		if math.IsNaN(float64(fAdd[i])) || math.IsInf(float64(fAdd[i]), 0) {
			t.Errorf("fAdd[%d] not finite: %f", i, fAdd[i])
		}
		if math.IsNaN(float64(fRescale[i])) || math.IsInf(float64(fRescale[i]), 0) {
			t.Errorf("fRescale[%d] not finite: %f", i, fRescale[i])
		}
	}
}

// TestQueryComputerRanksSelfNearest exercises the estimator's round-trip
// law: quantizing a neighbor block against a centroid and
// then estimating distances from a query equal to one of the neighbors
// should usually rank that neighbor closest among the 32.
func TestQueryComputerRanksSelfNearest(t *testing.T) {
	dim := 64
	n := 40
	space, err := NewSpace(dim, n, 21)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}

	rng := rand.New(rand.NewSource(17))
	data := make([][]float32, n)
	for i := range data {
		data[i] = randVec(rng, dim)
	}
	if err := space.Fit(data); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	centroid := 0
	edges := make([]int32, DegreeBound)
	for i := range edges {
		edges[i] = int32(i + 1)
	}
	if err := space.UpdateBatchData(centroid, edges); err != nil {
		t.Fatalf("UpdateBatchData: %v", err)
	}

	correct := 0
	for j := 0; j < DegreeBound; j++ {
		query := data[edges[j]]
		qc := space.GetQueryComputer(query)
		qc.LoadCentroid(int32(centroid), edges)

		bestIdx := 0
		bestVal := qc.Est(0)
		for i := 1; i < DegreeBound; i++ {
			if qc.Est(i) < bestVal {
				bestVal = qc.Est(i)
				bestIdx = i
			}
		}
		if bestIdx == j {
			correct++
		}
	}

	if correct < DegreeBound*6/10 {
		t.Errorf("self-rank-nearest held for only %d/%d neighbors, expected >= 60%%", correct, DegreeBound)
	}
}
