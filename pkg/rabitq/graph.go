package rabitq

// Graph is a fixed-out-degree adjacency array plus an entry point id.
// Empty slots hold the sentinel -1.
type Graph struct {
	degree     int
	n          int
	edges      []int32
	entryPoint int32
}

// NewGraph allocates an n-node graph with the given fixed out-degree, every
// slot initialized to the empty sentinel -1.
func NewGraph(n, degree int) *Graph {
	g := &Graph{degree: degree, n: n, edges: make([]int32, n*degree)}
	for i := range g.edges {
		g.edges[i] = -1
	}
	return g
}

// N returns the number of nodes.
func (g *Graph) N() int { return g.n }

// MaxNbrs is the fixed out-degree (D for an RBQ graph).
func (g *Graph) MaxNbrs() int { return g.degree }

// EntryPoint returns the configured entry point id.
func (g *Graph) EntryPoint() int32 { return g.entryPoint }

// SetEntryPoint sets the entry point id.
func (g *Graph) SetEntryPoint(id int32) { g.entryPoint = id }

// Edges returns the mutable neighbor-id slice for node i (length degree).
func (g *Graph) Edges(i int) []int32 {
	return g.edges[i*g.degree : (i+1)*g.degree]
}

// At reads neighbor slot j of node i.
func (g *Graph) At(i, j int) int32 {
	return g.edges[i*g.degree+j]
}

// SetAt writes neighbor slot j of node i.
func (g *Graph) SetAt(i, j int, v int32) {
	g.edges[i*g.degree+j] = v
}

// SetEdges overwrites node i's entire neighbor list. Lists shorter than
// degree are padded with -1; longer ones are truncated.
func (g *Graph) SetEdges(i int, ids []int32) {
	dst := g.Edges(i)
	n := copy(dst, ids)
	for k := n; k < len(dst); k++ {
		dst[k] = -1
	}
}
