// Package engine orchestrates the index lifecycle: load dataset →
// bulk-load the B+-tree → parallel-build the proximity graph →
// immutable serving phase → answer range-filtered queries → release. It
// is the shared "main object" cmd/rangeknn and internal/service both
// build on instead of duplicating setup.
package engine

import (
	"context"
	"time"

	"github.com/rangeknn/hybridindex/internal/analytics"
	"github.com/rangeknn/hybridindex/internal/bptree"
	"github.com/rangeknn/hybridindex/internal/dispatcher"
	"github.com/rangeknn/hybridindex/internal/graph"
	"github.com/rangeknn/hybridindex/internal/layout"
	"github.com/rangeknn/hybridindex/internal/metrics"
	"github.com/rangeknn/hybridindex/internal/pointio"
	"github.com/rangeknn/hybridindex/internal/xerrors"
)

// Config controls how an Engine is built.
type Config struct {
	// Order is the B+-tree bulk-load order.
	Order int
	// FillFactor controls leaf packing density on bulk load.
	FillFactor float64
	// Graph holds the proximity graph's construction parameters.
	Graph graph.Config
	// Dispatch holds the query dispatcher's tuning knobs.
	Dispatch dispatcher.Config
}

// DefaultConfig returns the reference configuration (tuning choices
// documented in DESIGN.md).
func DefaultConfig() Config {
	return Config{
		Order:      100,
		FillFactor: 1.0,
		Graph:      graph.DefaultConfig(),
		Dispatch:   dispatcher.DefaultConfig(),
	}
}

// Engine holds a built index over an immutable dataset: an Engine is only
// ready to serve queries after Build succeeds, and the dataset/tree/graph
// triple is never mutated afterward.
type Engine struct {
	cfg Config

	dataset  []layout.Point
	tree     *bptree.Tree
	graph    *graph.Index
	dispatch *dispatcher.Dispatcher
}

// New returns an Engine configured but not yet built.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Build loads a dataset file, bulk-loads the B+-tree over its continuous
// attribute, and parallel-builds the proximity graph over its vectors.
// After Build returns successfully the Engine is ready for Answer/AnswerAll.
func (e *Engine) Build(ctx context.Context, datasetPath string) error {
	points, err := pointio.ReadPoints(datasetPath, layout.NodeDimension(layout.D))
	if err != nil {
		return xerrors.Wrap(err, xerrors.KindIO, "Engine.Build", "read dataset")
	}

	keys := make([]float32, len(points))
	for i, p := range points {
		keys[i] = p.Continuous()
	}

	start := time.Now()
	tree := bptree.Bulk(keys, e.cfg.Order, e.cfg.FillFactor)
	metrics.TreeBuildDuration.Observe(time.Since(start).Seconds())
	metrics.TreeLeafCount.Set(float64(tree.LeafCount()))

	g := graph.New(e.cfg.Graph)
	if err := g.Build(ctx, points); err != nil {
		return xerrors.Wrap(err, xerrors.KindGraphBuild, "Engine.Build", "build proximity graph")
	}

	e.dataset = points
	e.tree = tree
	e.graph = g
	e.dispatch = dispatcher.New(tree, g, points, e.cfg.Dispatch)
	return nil
}

// Answer dispatches a single query against the built index.
func (e *Engine) Answer(ctx context.Context, q layout.Query) []uint32 {
	return e.dispatch.Answer(ctx, q)
}

// AnswerAll dispatches every query in queries concurrently, preserving
// query↔answer alignment.
func (e *Engine) AnswerAll(ctx context.Context, queries []layout.Query) ([][]uint32, error) {
	return e.dispatch.AnswerAll(ctx, queries)
}

// Len returns the number of points in the built dataset.
func (e *Engine) Len() int {
	return len(e.dataset)
}

// Dataset exposes the immutable built dataset, for callers (recall
// evaluation) that need read access to the raw points.
func (e *Engine) Dataset() []layout.Point {
	return e.dataset
}

// AttachQueryLog wires log into the dispatcher so every subsequent
// Answer/AnswerAll call records a QueryRecord. Passing nil detaches it.
func (e *Engine) AttachQueryLog(log *analytics.QueryLog) {
	if log == nil {
		e.dispatch.SetQueryLog(nil)
		return
	}
	e.dispatch.SetQueryLog(log)
}

// ExportDegrees writes a Parquet profile of every dataset point's
// continuous attribute and graph degree to path.
func (e *Engine) ExportDegrees(path string) error {
	continuous := make([]float32, len(e.dataset))
	degrees := make([]int, len(e.dataset))
	for i, p := range e.dataset {
		continuous[i] = p.Continuous()
		degrees[i] = e.graph.Degree(uint32(i))
	}
	return analytics.ExportParquet(path, continuous, degrees)
}
