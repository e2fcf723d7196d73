package rabitq

import (
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/AlayaDB-AI/AlayaLite/pkg/observability"
)

// Refinement parameters.
const (
	EfBuild              = 400
	MaxCandidatePoolSize = 750
	MaxPrunedSize        = 300
	MaxBsIter            = 5
)

// candidate is an (id, exact-distance-to-owner) pair tracked during
// refinement. Distances are always exact, never FastScan-estimated: the
// refiner's pruning and angle math need true squared L2.
type candidate struct {
	id   int32
	dist float32
}

// GraphRefiner is the one-shot transform from an externally built,
// degree-bounded graph into a refined graph of the same fixed out-degree.
// It borrows space and graph mutably for the duration of Refine and
// requires no other live borrows.
type GraphRefiner struct {
	space   *Space
	graph   *Graph
	logger  *observability.Logger
	efBuild int
	seed    int64
}

// NewGraphRefiner builds a refiner over the given space and graph. A nil
// logger falls back to the package-level default logger.
func NewGraphRefiner(space *Space, graph *Graph, logger *observability.Logger) *GraphRefiner {
	if logger == nil {
		logger = observability.GetGlobalLogger()
	}
	return &GraphRefiner{
		space:   space,
		graph:   graph,
		logger:  logger,
		efBuild: EfBuild,
		seed:    1,
	}
}

// nodeRNG derives a per-node random source: the supplement phases run one
// task per node across the worker pool, and rand.Rand is not safe for
// concurrent use, so each node gets its own deterministic stream.
func (r *GraphRefiner) nodeRNG(node int) *rand.Rand {
	return rand.New(rand.NewSource(r.seed + int64(node)*0x9E3779B9))
}

// Refine runs all five phases to completion, fail-fast on any internal
// contract violation: init, search_new_neighbors, add_reverse_edges,
// angle_based_supplement, insert_refined_neighbors.
func (r *GraphRefiner) Refine() error {
	if r.space == nil {
		return ErrNilSpace
	}
	if r.graph == nil {
		return ErrNilGraph
	}

	n := r.graph.N()
	newNeighbors := make([][]candidate, n)
	pruned := make([][]candidate, n)
	locks := make([]sync.Mutex, n)

	r.logger.Info("refinement: init", map[string]interface{}{"nodes": n})
	r.init(newNeighbors)

	r.logger.Info("refinement: search_new_neighbors", nil)
	r.searchNewNeighbors(newNeighbors, pruned)

	r.logger.Info("refinement: add_reverse_edges", nil)
	r.addReverseEdges(newNeighbors, pruned, locks)

	r.logger.Info("refinement: angle_based_supplement", nil)
	r.angleBasedSupplement(newNeighbors, pruned)

	r.logger.Info("refinement: insert_refined_neighbors", nil)
	r.insertRefinedNeighbors(newNeighbors)

	return nil
}

// forEachNode runs worker(i) for every node in [0, n) across a fixed-size
// goroutine pool sized to hardware concurrency, blocking until every node
// has been processed.
func forEachNode(n int, worker func(i int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	next := make(chan int, n)
	for i := 0; i < n; i++ {
		next <- i
	}
	close(next)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				worker(i)
			}
		}()
	}
	wg.Wait()
}

// randomDistinctIDs draws count ids from [0, n) excluding self and any id
// already present in exclude, retrying under collision since the pool is
// typically far larger than count.
func randomDistinctIDs(rng *rand.Rand, n, self, count int, exclude map[int32]bool) []int32 {
	out := make([]int32, 0, count)
	if n <= 1 {
		return out
	}
	seen := make(map[int32]bool, len(exclude)+count)
	for k := range exclude {
		seen[k] = true
	}
	attempts := 0
	maxAttempts := count*20 + 200
	for len(out) < count && attempts < maxAttempts {
		attempts++
		cand := int32(rng.Intn(n))
		if int(cand) == self || seen[cand] {
			continue
		}
		seen[cand] = true
		out = append(out, cand)
	}
	return out
}

// init is phase (1): drop empty slots from the current neighbor list,
// supplement with random distinct non-self ids until D are present,
// compute exact distances, write the supplemented ids back to the graph and
// quantize the resulting neighbor block.
func (r *GraphRefiner) init(newNeighbors [][]candidate) {
	n := r.graph.N()
	forEachNode(n, func(i int) {
		existing := r.graph.Edges(i)
		seen := make(map[int32]bool, DegreeBound)
		ids := make([]int32, 0, DegreeBound)
		for _, e := range existing {
			if e < 0 || int(e) == i || seen[e] {
				continue
			}
			seen[e] = true
			ids = append(ids, e)
		}

		if len(ids) < DegreeBound {
			extra := randomDistinctIDs(r.nodeRNG(i), n, i, DegreeBound-len(ids), seen)
			ids = append(ids, extra...)
		}
		if len(ids) > DegreeBound {
			ids = ids[:DegreeBound]
		}

		cands := make([]candidate, len(ids))
		for k, id := range ids {
			cands[k] = candidate{id: id, dist: r.space.GetDistance(i, int(id))}
		}
		sort.Slice(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })
		newNeighbors[i] = cands

		r.writeNeighbors(i, cands)
	})
}

// writeNeighbors pads cands to exactly DegreeBound ids (using -1 for any
// shortfall, which UpdateBatchData treats as a zero vector neighbor),
// commits them to the graph, and re-quantizes the node's neighbor block.
func (r *GraphRefiner) writeNeighbors(i int, cands []candidate) {
	edges := make([]int32, DegreeBound)
	for k := 0; k < DegreeBound; k++ {
		if k < len(cands) {
			edges[k] = cands[k].id
		} else {
			edges[k] = -1
		}
	}
	r.graph.SetEdges(i, edges)
	_ = r.space.UpdateBatchData(i, edges)
}

// collectCandidates runs a beam search seeded with the node's own raw
// vector as the query and returns every popped centroid id other than
// self, up to limit, each paired with its exact distance to self.
func (r *GraphRefiner) collectCandidates(self int32, queryVec []float32, limit int) []candidate {
	qc := r.space.GetQueryComputer(queryVec)
	pool := NewSearchBuffer(r.efBuild)
	visited := NewBitsetVisited(r.graph.N())

	entry := r.graph.EntryPoint()
	pool.Insert(entry, float32(3.0e38))

	out := make([]candidate, 0, limit)
	for pool.HasNext() {
		u, _ := pool.Pop()
		if visited.Get(u) {
			continue
		}
		visited.Set(u)

		edges := r.graph.Edges(int(u))
		qc.LoadCentroid(u, edges)
		for i := 0; i < DegreeBound; i++ {
			v := edges[i]
			if v < 0 {
				continue
			}
			dEst := qc.Est(i)
			if pool.IsFull(dEst) {
				continue
			}
			if visited.Get(v) {
				continue
			}
			pool.Insert(v, dEst)
		}

		if u != self && len(out) < limit {
			out = append(out, candidate{id: u, dist: r.space.GetDistance(int(self), int(u))})
		}
	}
	return out
}

// searchNewNeighbors is phase (2): collect up to kMaxCandidatePoolSize
// popped-centroid candidates per node, merge with the existing
// new_neighbors entry, truncate to the pool cap by exact distance, then
// apply the heuristic prune to produce the final sorted neighbor list.
func (r *GraphRefiner) searchNewNeighbors(newNeighbors [][]candidate, pruned [][]candidate) {
	n := r.graph.N()
	forEachNode(n, func(i int) {
		self := int32(i)
		found := r.collectCandidates(self, r.space.RawVector(i), MaxCandidatePoolSize)

		merged := mergeCandidates(found, newNeighbors[i])
		sort.Slice(merged, func(a, b int) bool { return merged[a].dist < merged[b].dist })
		if len(merged) > MaxCandidatePoolSize {
			merged = merged[:MaxCandidatePoolSize]
		}

		var prunedOut []candidate
		newNeighbors[i] = heuristicPrune(r.space, self, merged, &prunedOut)
		pruned[i] = prunedOut
	})
}

// mergeCandidates dedupes a ∪ b by id, keeping the first occurrence (a is
// the freshly searched set, b the previously recorded one).
func mergeCandidates(a, b []candidate) []candidate {
	seen := make(map[int32]bool, len(a)+len(b))
	out := make([]candidate, 0, len(a)+len(b))
	for _, c := range a {
		if seen[c.id] {
			continue
		}
		seen[c.id] = true
		out = append(out, c)
	}
	for _, c := range b {
		if seen[c.id] {
			continue
		}
		seen[c.id] = true
		out = append(out, c)
	}
	return out
}

// heuristicPrune is the NSG-style occlusion prune: candidates
// must already be sorted ascending by distance to node. Candidate j is kept
// if, for every already-kept k, d(j,k) >= d(node,j); otherwise j is occluded
// by k and recorded into *prunedOut (capped at kMaxPrunedSize).
func heuristicPrune(space *Space, node int32, sortedCandidates []candidate, prunedOut *[]candidate) []candidate {
	kept := make([]candidate, 0, DegreeBound)
	for _, c := range sortedCandidates {
		if c.id == node {
			continue
		}
		if len(kept) >= DegreeBound {
			break
		}
		occluded := false
		for _, k := range kept {
			djk := space.GetDistance(int(c.id), int(k.id))
			if djk < c.dist {
				occluded = true
				break
			}
		}
		if occluded {
			if len(*prunedOut) < MaxPrunedSize {
				*prunedOut = append(*prunedOut, c)
			}
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// addReverseEdges is phase (3): for every edge node -> v in new_neighbors,
// ensure v also lists node, appending to v's overflow (capped at the
// candidate pool size) when v is already full. Guarded by per-destination
// locks since many nodes write into the same v concurrently. Every node is
// then re-pruned over new_neighbors ∪ overflow.
func (r *GraphRefiner) addReverseEdges(newNeighbors [][]candidate, pruned [][]candidate, locks []sync.Mutex) {
	n := r.graph.N()
	overflow := make([][]candidate, n)

	forEachNode(n, func(i int) {
		owner := int32(i)
		// Snapshot the owner's list under its own lock: another worker may
		// be appending a reverse edge into newNeighbors[i] concurrently.
		locks[i].Lock()
		own := append([]candidate(nil), newNeighbors[i]...)
		locks[i].Unlock()

		for _, nb := range own {
			v := int(nb.id)
			reverseDist := r.space.GetDistance(v, i)

			locks[v].Lock()
			has := false
			for _, existing := range newNeighbors[v] {
				if existing.id == owner {
					has = true
					break
				}
			}
			if !has {
				if len(newNeighbors[v]) < DegreeBound {
					newNeighbors[v] = append(newNeighbors[v], candidate{id: owner, dist: reverseDist})
				} else if len(overflow[v]) < MaxCandidatePoolSize {
					overflow[v] = append(overflow[v], candidate{id: owner, dist: reverseDist})
				}
			}
			locks[v].Unlock()
		}
	})

	forEachNode(n, func(i int) {
		self := int32(i)
		merged := mergeCandidates(newNeighbors[i], overflow[i])
		sort.Slice(merged, func(a, b int) bool { return merged[a].dist < merged[b].dist })
		if len(merged) > MaxCandidatePoolSize {
			merged = merged[:MaxCandidatePoolSize]
		}

		var prunedOut []candidate
		newNeighbors[i] = heuristicPrune(r.space, self, merged, &prunedOut)

		pruned[i] = appendCapped(pruned[i], prunedOut, MaxPrunedSize)
	})
}

func appendCapped(dst, src []candidate, limit int) []candidate {
	for _, c := range src {
		if len(dst) >= limit {
			break
		}
		dst = append(dst, c)
	}
	return dst
}

// cosineOcclusionAngle computes cos(∠jik) from the three pairwise squared
// distances via the law of cosines.
func cosineOcclusionAngle(dij, dik, djk float32) float64 {
	denom := 2 * math.Sqrt(float64(dij)*float64(dik))
	if denom == 0 {
		return -1
	}
	return (float64(dik) + float64(dij) - float64(djk)) / denom
}

// retainAtThreshold replays base (the already-kept neighbors) and tries to
// admit prunedSorted candidates (ascending distance to node) at cosine
// threshold tau: k is admitted unless some admitted j with d(node,j) <=
// d(node,k) occludes it (cos angle > tau).
func retainAtThreshold(space *Space, node int32, base, prunedSorted []candidate, tau float64) []candidate {
	kept := make([]candidate, len(base), DegreeBound)
	copy(kept, base)
	have := make(map[int32]bool, DegreeBound)
	for _, c := range base {
		have[c.id] = true
	}

	for _, k := range prunedSorted {
		if len(kept) >= DegreeBound {
			break
		}
		// A candidate pruned earlier may have come back as a reverse edge.
		if have[k.id] {
			continue
		}
		occluded := false
		for _, j := range kept {
			if j.dist > k.dist {
				continue
			}
			djk := space.GetDistance(int(j.id), int(k.id))
			if cosineOcclusionAngle(j.dist, k.dist, djk) > tau {
				occluded = true
				break
			}
		}
		if !occluded {
			kept = append(kept, k)
			have[k.id] = true
		}
	}
	return kept
}

// angleBasedSupplement is phase (4): for nodes still short of D after
// phase (3), binary-search the smallest cosine threshold tau in [0.5, 1.0]
// over kMaxBsIter iterations that lets the remembered pruned candidates
// refill the neighbor list to D; falls back to tau = 1.0 and, if still
// short, pads with random distinct ids.
func (r *GraphRefiner) angleBasedSupplement(newNeighbors [][]candidate, pruned [][]candidate) {
	n := r.graph.N()
	forEachNode(n, func(i int) {
		if len(newNeighbors[i]) >= DegreeBound {
			return
		}
		self := int32(i)

		prunedSorted := append([]candidate(nil), pruned[i]...)
		sort.Slice(prunedSorted, func(a, b int) bool { return prunedSorted[a].dist < prunedSorted[b].dist })

		base := newNeighbors[i]
		best := retainAtThreshold(r.space, self, base, prunedSorted, 1.0)

		if len(best) >= DegreeBound {
			lo, hi := 0.5, 1.0
			for iter := 0; iter < MaxBsIter; iter++ {
				mid := (lo + hi) / 2
				retained := retainAtThreshold(r.space, self, base, prunedSorted, mid)
				if len(retained) >= DegreeBound {
					hi = mid
					best = retained
				} else {
					lo = mid
				}
			}
		}

		if len(best) < DegreeBound {
			seen := make(map[int32]bool, len(best))
			for _, c := range best {
				seen[c.id] = true
			}
			extra := randomDistinctIDs(r.nodeRNG(i), n, i, DegreeBound-len(best), seen)
			for _, id := range extra {
				best = append(best, candidate{id: id, dist: r.space.GetDistance(i, int(id))})
			}
		}

		newNeighbors[i] = best
	})
}

// insertRefinedNeighbors is phase (5): write the final D neighbor ids into
// the graph and re-quantize every node's neighbor block against them.
func (r *GraphRefiner) insertRefinedNeighbors(newNeighbors [][]candidate) {
	n := r.graph.N()
	forEachNode(n, func(i int) {
		cands := newNeighbors[i]
		sort.Slice(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })
		r.writeNeighbors(i, cands)
	})
}
