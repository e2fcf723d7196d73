package rabitq

import "github.com/AlayaDB-AI/AlayaLite/pkg/observability"

// PrefetchKind distinguishes the two memory-dependent steps the
// non-quantized search variants can surface as a prefetch hint.
type PrefetchKind int

const (
	// PrefetchNeighborList hints that a node's neighbor list is about to
	// be read.
	PrefetchNeighborList PrefetchKind = iota
	// PrefetchRawVector hints that a neighbor's raw vector is about to be
	// read.
	PrefetchRawVector
)

// PrefetchHint is a cooperative suspension-point event: instead of baking
// in a coroutine runtime, the non-quantized search variants call an
// optional PrefetchFunc before each memory-dependent load so a
// caller-supplied scheduler can interleave many queries to hide memory
// latency. A nil PrefetchFunc means no hinting.
type PrefetchHint struct {
	Kind PrefetchKind
	ID   int32
}

// PrefetchFunc is called synchronously with each hint; callers that don't
// care about prefetching pass nil.
type PrefetchFunc func(PrefetchHint)

// GraphSearchJob runs beam search over a Graph using a Space's
// QueryComputer for distance estimation and reranking.
type GraphSearchJob struct {
	space  *Space
	graph  *Graph
	logger *observability.Logger
}

// NewGraphSearchJob builds a search job over the given space and graph. A
// nil logger falls back to the package-level default logger.
func NewGraphSearchJob(space *Space, graph *Graph, logger *observability.Logger) *GraphSearchJob {
	if logger == nil {
		logger = observability.GetGlobalLogger()
	}
	return &GraphSearchJob{space: space, graph: graph, logger: logger}
}

// SearchOptimized is the RBQ, quantization-accelerated beam search: a
// search_pool of size ef sorted by estimated distance drives traversal, an
// approximate hash-based visited set permits correctness-neutral
// revisits, and a res_pool of size k collects the exact query-to-centroid
// distance of every popped node — the "implicit rerank" technique. ef must
// be large enough that the true top-k elements actually get popped as
// centroids, not merely pushed as neighbors.
func (j *GraphSearchJob) SearchOptimized(q []float32, k, ef int) []int32 {
	qc := j.space.GetQueryComputer(q)
	searchPool := NewSearchBuffer(ef)
	resPool := NewSearchBuffer(k)
	visited := NewApproxVisited(j.graph.N())

	entry := j.graph.EntryPoint()
	searchPool.Insert(entry, float32(3.0e38))

	for searchPool.HasNext() {
		u, _ := searchPool.Pop()
		if visited.Get(u) {
			continue
		}
		visited.Set(u)

		edges := j.graph.Edges(int(u))
		qc.LoadCentroid(u, edges)

		for i := 0; i < DegreeBound; i++ {
			v := edges[i]
			if v < 0 {
				continue
			}
			dEst := qc.Est(i)
			if searchPool.IsFull(dEst) {
				continue
			}
			if visited.Get(v) {
				continue
			}
			searchPool.Insert(v, dEst)
		}

		resPool.Insert(u, qc.GetExactQRCDist())
	}

	ids := make([]int32, k)
	n := resPool.CopyResultsTo(ids)
	if n < k {
		j.logger.Warn("search returned fewer than k results", map[string]interface{}{
			"k": k, "returned": n, "ef": ef,
		})
	}
	return ids[:n]
}

// SearchSolo is the LinearPool-fused variant: beam and exact bitset visited
// set live in one object, trading O(N) memory for zero false-negative
// visitation instead of the approximate hash set SearchOptimized uses.
func (j *GraphSearchJob) SearchSolo(q []float32, k, ef int) []int32 {
	qc := j.space.GetQueryComputer(q)
	searchPool := NewLinearPool(ef, j.graph.N())
	resPool := NewSearchBuffer(k)

	entry := j.graph.EntryPoint()
	searchPool.Insert(entry, float32(3.0e38))

	for searchPool.HasNext() {
		u, _ := searchPool.Pop()
		if searchPool.VisGet(u) {
			continue
		}
		searchPool.VisSet(u)

		edges := j.graph.Edges(int(u))
		qc.LoadCentroid(u, edges)

		for i := 0; i < DegreeBound; i++ {
			v := edges[i]
			if v < 0 {
				continue
			}
			dEst := qc.Est(i)
			if !searchPool.SmallEnough(dEst) {
				continue
			}
			if searchPool.VisGet(v) {
				continue
			}
			searchPool.Insert(v, dEst)
		}

		resPool.Insert(u, qc.GetExactQRCDist())
	}

	ids := make([]int32, k)
	n := resPool.CopyResultsTo(ids)
	if n < k {
		j.logger.Warn("search returned fewer than k results", map[string]interface{}{
			"k": k, "returned": n, "ef": ef,
		})
	}
	return ids[:n]
}

// Search is the non-quantized baseline: distances are computed exactly via
// SquaredL2 per neighbor rather than estimated via FastScan, used with
// non-RBQ spaces or as a reference path. prefetch, if non-nil, is called
// before each memory-dependent load.
func (j *GraphSearchJob) Search(q []float32, k, ef int, prefetch PrefetchFunc) []int32 {
	pool := NewLinearPool(ef, j.graph.N())
	entry := j.graph.EntryPoint()
	pool.Insert(entry, SquaredL2(q, j.space.RawVector(int(entry))))
	pool.VisSet(entry)

	for pool.HasNext() {
		u, _ := pool.Pop()

		if prefetch != nil {
			prefetch(PrefetchHint{Kind: PrefetchNeighborList, ID: u})
		}
		edges := j.graph.Edges(int(u))

		for i := 0; i < DegreeBound; i++ {
			v := edges[i]
			if v < 0 {
				break
			}
			if pool.VisGet(v) {
				continue
			}
			pool.VisSet(v)
			if prefetch != nil {
				prefetch(PrefetchHint{Kind: PrefetchRawVector, ID: v})
			}
			d := SquaredL2(q, j.space.RawVector(int(v)))
			if !pool.SmallEnough(d) {
				continue
			}
			pool.Insert(v, d)
		}
	}

	ids := make([]int32, k)
	n := pool.CopyResultsTo(ids)
	if n < k {
		j.logger.Warn("search returned fewer than k results", map[string]interface{}{
			"k": k, "returned": n, "ef": ef,
		})
	}
	return ids[:n]
}
