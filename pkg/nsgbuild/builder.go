// Package nsgbuild produces the initial proximity graph refinement starts
// from: a fixed-out-degree adjacency with the -1 sentinel in empty slots,
// built NSG-style (approximate-centroid entry point, per-node KNN search,
// degree-capped neighbor keep). rabitq.GraphRefiner then rewrites it.
package nsgbuild

import (
	"container/heap"
	"errors"
	"math"

	"github.com/AlayaDB-AI/AlayaLite/pkg/rabitq"
)

// ErrEmptyDataset is returned by Build when given zero vectors.
var ErrEmptyDataset = errors.New("nsgbuild: no vectors to build from")

// Config controls the initial graph's shape. Degree should match the
// consuming rabitq.Space's DegreeBound; L is the per-node candidate pool
// size explored while searching for neighbors.
type Config struct {
	Degree int
	L      int
}

// DefaultConfig sizes the graph for rabitq.DegreeBound neighbors with a
// 100-candidate construction pool.
func DefaultConfig() Config {
	return Config{Degree: rabitq.DegreeBound, L: 100}
}

// Build constructs an initial fixed-out-degree proximity graph over
// vectors: find the approximate centroid as entry point, then for every
// node search its L nearest neighbors and keep the Degree closest. The
// refiner treats this purely as a starting topology — it does not need to
// be monotonic or even fully connected.
func Build(vectors [][]float32, cfg Config) (*rabitq.Graph, error) {
	n := len(vectors)
	if n == 0 {
		return nil, ErrEmptyDataset
	}
	if cfg.Degree <= 0 {
		cfg.Degree = rabitq.DegreeBound
	}
	if cfg.L < cfg.Degree {
		cfg.L = cfg.Degree
	}

	entry := findNavigatingNode(vectors)
	graph := rabitq.NewGraph(n, cfg.Degree)
	graph.SetEntryPoint(int32(entry))

	for i := 0; i < n; i++ {
		neighbors := findKNN(vectors, i, cfg.L)
		if len(neighbors) > cfg.Degree {
			neighbors = neighbors[:cfg.Degree]
		}
		edges := make([]int32, len(neighbors))
		for k, c := range neighbors {
			edges[k] = c.id
		}
		graph.SetEdges(i, edges)
	}

	return graph, nil
}

// findNavigatingNode returns the id of the vector closest to the dataset's
// centroid, used as the graph's entry point.
func findNavigatingNode(vectors [][]float32) int {
	dim := len(vectors[0])
	centroid := make([]float32, dim)
	count := float32(len(vectors))
	for _, v := range vectors {
		for i, val := range v {
			centroid[i] += val / count
		}
	}

	closest := 0
	minDist := float32(math.MaxFloat32)
	for id, v := range vectors {
		dist := rabitq.SquaredL2(v, centroid)
		if dist < minDist {
			minDist = dist
			closest = id
		}
	}
	return closest
}

// knnCandidate is one scored neighbor, ascending order after extraction.
type knnCandidate struct {
	id   int32
	dist float32
}

// findKNN brute-force searches the l nearest neighbors (excluding self) of
// vectors[self], sorted ascending by squared L2.
func findKNN(vectors [][]float32, self, l int) []knnCandidate {
	pq := &maxHeap{}
	heap.Init(pq)

	query := vectors[self]
	for id, v := range vectors {
		if id == self {
			continue
		}
		dist := rabitq.SquaredL2(query, v)
		if pq.Len() < l {
			heap.Push(pq, heapItem{id: int32(id), dist: dist})
		} else if dist < (*pq)[0].dist {
			heap.Pop(pq)
			heap.Push(pq, heapItem{id: int32(id), dist: dist})
		}
	}

	out := make([]knnCandidate, pq.Len())
	for i := len(out) - 1; i >= 0; i-- {
		top := heap.Pop(pq).(heapItem)
		out[i] = knnCandidate{id: top.id, dist: top.dist}
	}
	return out
}

// heapItem is one scored candidate held by maxHeap.
type heapItem struct {
	id   int32
	dist float32
}

// maxHeap is a bounded max-heap by distance: popping drops the single
// farthest candidate, which is how findKNN keeps only the l closest.
type maxHeap []heapItem

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(heapItem)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
