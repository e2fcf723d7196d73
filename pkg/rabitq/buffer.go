package rabitq

import "sort"

// beamEntry is one (id, dist) pair held by a SearchBuffer.
type beamEntry struct {
	id     int32
	dist   float32
	popped bool
}

// SearchBuffer is a bounded-beam priority queue: a
// capacity-bounded sequence sorted ascending by (dist, id), with a cursor
// separating already-popped entries from the rest. A later insert whose
// sorted position falls before the cursor rewinds the cursor, so the newly
// arrived, better candidate gets popped next — the same "greedy list"
// discipline Vamana-style beam searches use.
type SearchBuffer struct {
	capacity int
	entries  []beamEntry
	cur      int
}

// NewSearchBuffer allocates an empty beam of the given capacity.
func NewSearchBuffer(capacity int) *SearchBuffer {
	return &SearchBuffer{capacity: capacity, entries: make([]beamEntry, 0, capacity)}
}

// IsFull reports whether dist can no longer make the cut: the buffer is at
// capacity and dist is no better than the current worst kept entry.
func (b *SearchBuffer) IsFull(dist float32) bool {
	if len(b.entries) < b.capacity {
		return false
	}
	last := b.entries[len(b.entries)-1]
	return dist >= last.dist
}

// Insert inserts (id, dist) in sorted position, truncating the tail past
// capacity. Returns false if the entry was rejected by IsFull.
func (b *SearchBuffer) Insert(id int32, dist float32) bool {
	if b.IsFull(dist) {
		return false
	}

	pos := sort.Search(len(b.entries), func(i int) bool {
		e := b.entries[i]
		if e.dist != dist {
			return e.dist > dist
		}
		return e.id > id
	})

	b.entries = append(b.entries, beamEntry{})
	copy(b.entries[pos+1:], b.entries[pos:])
	b.entries[pos] = beamEntry{id: id, dist: dist}
	if len(b.entries) > b.capacity {
		b.entries = b.entries[:b.capacity]
	}
	if pos < b.cur {
		b.cur = pos
	}
	return true
}

// HasNext reports whether an unpopped entry remains.
func (b *SearchBuffer) HasNext() bool {
	return b.cur < len(b.entries)
}

// NextID peeks the id that Pop would return next, for prefetching.
func (b *SearchBuffer) NextID() int32 {
	return b.entries[b.cur].id
}

// Pop returns the smallest not-yet-popped entry and advances the cursor.
func (b *SearchBuffer) Pop() (int32, float32) {
	e := b.entries[b.cur]
	b.entries[b.cur].popped = true
	for b.cur < len(b.entries) && b.entries[b.cur].popped {
		b.cur++
	}
	return e.id, e.dist
}

// Len returns the current number of kept entries.
func (b *SearchBuffer) Len() int { return len(b.entries) }

// CopyResultsTo drains up to len(ids) ids in ascending distance order and
// returns how many were written.
func (b *SearchBuffer) CopyResultsTo(ids []int32) int {
	n := len(b.entries)
	if n > len(ids) {
		n = len(ids)
	}
	for i := 0; i < n; i++ {
		ids[i] = b.entries[i].id
	}
	return n
}

// BitsetVisited is a dense N-bit visited set: perfect membership, O(N)
// memory per query.
type BitsetVisited struct {
	bits []uint64
}

// NewBitsetVisited allocates a visited set covering ids in [0, n).
func NewBitsetVisited(n int) *BitsetVisited {
	return &BitsetVisited{bits: make([]uint64, (n+63)/64)}
}

// Get reports whether id has been marked visited.
func (v *BitsetVisited) Get(id int32) bool {
	return v.bits[id/64]&(1<<uint(id%64)) != 0
}

// Set marks id visited.
func (v *BitsetVisited) Set(id int32) {
	v.bits[id/64] |= 1 << uint(id%64)
}

// approxProbeLimit bounds how many open-addressed slots ApproxVisited will
// probe before evicting, trading a small false-negative rate (an evicted id
// reports unvisited again, causing a correctness-neutral re-visit) for
// O(N/10) memory.
const approxProbeLimit = 4

// ApproxVisited is the open-addressed, sub-N-sized visited set the
// optimized search path uses: sized roughly N/10, it
// occasionally evicts an older entry under collision pressure, which can
// cause a node to be revisited. Revisits only cost extra work, never
// incorrect results.
type ApproxVisited struct {
	slots []int64 // 0 = empty, else id+1
	mask  uint32
}

// NewApproxVisited allocates an approximate visited set sized to roughly
// n/10 slots (rounded up to a power of two, minimum 16).
func NewApproxVisited(n int) *ApproxVisited {
	size := n / 10
	if size < 16 {
		size = 16
	}
	capSize := 16
	for capSize < size {
		capSize *= 2
	}
	return &ApproxVisited{slots: make([]int64, capSize), mask: uint32(capSize - 1)}
}

func (a *ApproxVisited) hash(id int32) uint32 {
	h := uint32(id) * 2654435761
	return h & a.mask
}

// Get reports whether id is currently tracked as visited.
func (a *ApproxVisited) Get(id int32) bool {
	h := a.hash(id)
	for i := 0; i < approxProbeLimit; i++ {
		idx := (h + uint32(i)) & a.mask
		v := a.slots[idx]
		if v == 0 {
			return false
		}
		if v-1 == int64(id) {
			return true
		}
	}
	return false
}

// Set marks id visited, evicting another entry under sustained collisions.
func (a *ApproxVisited) Set(id int32) {
	h := a.hash(id)
	for i := 0; i < approxProbeLimit; i++ {
		idx := (h + uint32(i)) & a.mask
		if a.slots[idx] == 0 || a.slots[idx]-1 == int64(id) {
			a.slots[idx] = int64(id) + 1
			return
		}
	}
	a.slots[h] = int64(id) + 1
}

// LinearPool fuses a SearchBuffer with a dense visited bitset into one
// object, for algorithms that need the beam and the exact (not
// approximate) visited set coupled together.
type LinearPool struct {
	*SearchBuffer
	vis *BitsetVisited
}

// NewLinearPool allocates a fused beam+visited-set of the given beam
// capacity over ids in [0, n).
func NewLinearPool(capacity, n int) *LinearPool {
	return &LinearPool{SearchBuffer: NewSearchBuffer(capacity), vis: NewBitsetVisited(n)}
}

// SmallEnough is the LinearPool spelling of !IsFull(dist).
func (p *LinearPool) SmallEnough(dist float32) bool {
	return !p.IsFull(dist)
}

// VisGet reports global visitation, distinct from the intra-beam cursor.
func (p *LinearPool) VisGet(id int32) bool { return p.vis.Get(id) }

// VisSet marks id globally visited.
func (p *LinearPool) VisSet(id int32) { p.vis.Set(id) }
