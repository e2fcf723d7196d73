package rest

import (
	"fmt"
	"sync"
	"time"

	"github.com/AlayaDB-AI/AlayaLite/pkg/config"
	"github.com/AlayaDB-AI/AlayaLite/pkg/nsgbuild"
	"github.com/AlayaDB-AI/AlayaLite/pkg/observability"
	"github.com/AlayaDB-AI/AlayaLite/pkg/rabitq"
)

// Engine owns the current Space/Graph snapshot and exposes the engine's
// Fit/Refine/Search operations to the REST handlers. The core does not
// support concurrent readers and writers against the same mutable
// snapshot, so every operation holds mu for its full duration.
type Engine struct {
	cfg     config.EngineConfig
	logger  *observability.Logger
	metrics *observability.Metrics

	mu    sync.RWMutex
	space *rabitq.Space
	graph *rabitq.Graph
}

// NewEngine builds an Engine over the given configuration. No Space/Graph
// exists until Fit is called.
func NewEngine(cfg config.EngineConfig, logger *observability.Logger, metrics *observability.Metrics) *Engine {
	if logger == nil {
		logger = observability.GetGlobalLogger()
	}
	return &Engine{cfg: cfg, logger: logger, metrics: metrics}
}

// ErrEngineNotFit is returned by Refine/Search before Fit has been called.
var ErrEngineNotFit = fmt.Errorf("engine: no space has been fit yet")

// Fit replaces the current snapshot: quantizes vectors into a fresh Space
// and builds an initial proximity graph over them via nsgbuild.
func (e *Engine) Fit(vectors [][]float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	for i, v := range vectors {
		if len(v) != e.cfg.Dimensions {
			return fmt.Errorf("engine: vector %d has dimension %d, configured dimension is %d", i, len(v), e.cfg.Dimensions)
		}
	}

	space, err := rabitq.NewSpace(e.cfg.Dimensions, len(vectors), e.cfg.RotatorSeed)
	if err != nil {
		return err
	}
	if err := space.Fit(vectors); err != nil {
		return err
	}

	graph, err := nsgbuild.Build(vectors, nsgbuild.Config{Degree: rabitq.DegreeBound, L: e.cfg.EfBuild / 4})
	if err != nil {
		return err
	}

	// Quantize every node's neighbor block against the initial topology so
	// search works immediately after fit; Refine rewrites these blocks.
	for i := 0; i < graph.N(); i++ {
		if err := space.UpdateBatchData(i, graph.Edges(i)); err != nil {
			return err
		}
	}

	e.space = space
	e.graph = graph

	if e.metrics != nil {
		e.metrics.RecordFit(time.Since(start), len(vectors))
		e.metrics.UpdateGraphStats(graph.N(), graph.MaxNbrs())
	}
	e.logger.Info("engine: fit complete", map[string]interface{}{
		"vectors": len(vectors), "dim": e.cfg.Dimensions, "duration": time.Since(start).String(),
	})
	return nil
}

// Refine runs GraphRefiner.Refine over the current snapshot in place.
func (e *Engine) Refine() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.space == nil || e.graph == nil {
		return ErrEngineNotFit
	}

	refiner := rabitq.NewGraphRefiner(e.space, e.graph, e.logger)
	if err := refiner.Refine(); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.RecordRefine()
	}
	return nil
}

// Search runs SearchOptimized against the current snapshot.
func (e *Engine) Search(query []float32, k, ef int) ([]int32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.space == nil || e.graph == nil {
		return nil, ErrEngineNotFit
	}
	if len(query) != e.space.Dim() {
		return nil, fmt.Errorf("engine: query has dimension %d, space dimension is %d", len(query), e.space.Dim())
	}

	start := time.Now()
	job := rabitq.NewGraphSearchJob(e.space, e.graph, e.logger)
	ids := job.SearchOptimized(query, k, ef)

	if e.metrics != nil {
		e.metrics.RecordSearch(time.Since(start), len(ids))
	}
	return ids, nil
}

// Stats reports the current snapshot's size, or zero values before Fit.
func (e *Engine) Stats() (nodes, dim, degree int, fitted bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.space == nil || e.graph == nil {
		return 0, e.cfg.Dimensions, e.cfg.DegreeBound, false
	}
	return e.graph.N(), e.space.Dim(), e.graph.MaxNbrs(), true
}
