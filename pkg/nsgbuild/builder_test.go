package nsgbuild

import (
	"math/rand"
	"testing"

	"github.com/AlayaDB-AI/AlayaLite/pkg/rabitq"
)

func randomVectors(n, dim int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	vecs := make([][]float32, n)
	for i := range vecs {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()
		}
		vecs[i] = v
	}
	return vecs
}

func TestBuildEmptyDataset(t *testing.T) {
	_, err := Build(nil, DefaultConfig())
	if err != ErrEmptyDataset {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestBuildEntryPointInRange(t *testing.T) {
	vecs := randomVectors(64, 8, 1)
	g, err := Build(vecs, DefaultConfig())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ep := g.EntryPoint()
	if ep < 0 || int(ep) >= len(vecs) {
		t.Fatalf("entry point %d out of range [0, %d)", ep, len(vecs))
	}
}

func TestBuildNeighborsDistinctNonSelf(t *testing.T) {
	vecs := randomVectors(100, 16, 2)
	cfg := Config{Degree: 12, L: 30}
	g, err := Build(vecs, cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for i := 0; i < len(vecs); i++ {
		seen := make(map[int32]bool)
		for _, e := range g.Edges(i) {
			if e == -1 {
				continue
			}
			if int(e) == i {
				t.Fatalf("node %d lists itself as a neighbor", i)
			}
			if seen[e] {
				t.Fatalf("node %d has duplicate neighbor %d", i, e)
			}
			seen[e] = true
		}
	}
}

func TestBuildNeighborsAreApproximatelyClose(t *testing.T) {
	vecs := randomVectors(200, 16, 3)
	cfg := Config{Degree: 10, L: 50}
	g, err := Build(vecs, cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// The nearest neighbor found by the builder should never be farther
	// than the distance to a uniformly random other node.
	node := 0
	edges := g.Edges(node)
	var nearest float32 = -1
	for _, e := range edges {
		if e < 0 {
			continue
		}
		d := rabitq.SquaredL2(vecs[node], vecs[e])
		if nearest < 0 || d < nearest {
			nearest = d
		}
	}
	if nearest < 0 {
		t.Fatal("node 0 has no neighbors at all")
	}

	farthestRandom := rabitq.SquaredL2(vecs[node], vecs[len(vecs)-1])
	if nearest > farthestRandom*4 {
		t.Errorf("nearest found neighbor distance %f suspiciously far vs random %f", nearest, farthestRandom)
	}
}

func TestBuildRespectsDegreeCap(t *testing.T) {
	vecs := randomVectors(50, 4, 4)
	cfg := Config{Degree: 8, L: 20}
	g, err := Build(vecs, cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if g.MaxNbrs() != 8 {
		t.Fatalf("expected MaxNbrs 8, got %d", g.MaxNbrs())
	}
}
