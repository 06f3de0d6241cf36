// Package graph wraps github.com/coder/hnsw as the hierarchical proximity
// graph: a multi-layer graph over dataset ids, built in parallel, serving
// best-effort approximate k-NN search. The core never reimplements HNSW
// itself — it consumes the library over the plain in-memory dataset this
// engine loads from the binary row format.
package graph

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/hnsw"
	"golang.org/x/sync/errgroup"

	"github.com/rangeknn/hybridindex/internal/distance"
	"github.com/rangeknn/hybridindex/internal/layout"
	"github.com/rangeknn/hybridindex/internal/metrics"
)

// Config holds the graph build parameters passed through to coder/hnsw.
type Config struct {
	// M is the out-degree bound on upper layers (2*M is used on layer 0).
	M int
	// EfConstruction is the candidate-list width during insertion. New does
	// not pass it on to the hnsw graph, so it has no effect on the build.
	EfConstruction int
}

// DefaultConfig returns the reference configuration: M=24,
// ef_construction=140.
func DefaultConfig() Config {
	return Config{M: 24, EfConstruction: 140}
}

// Candidate is a (dist², id) pair returned from SearchKNN.
type Candidate struct {
	Dist float32
	ID   uint32
}

// Index wraps a coder/hnsw graph over dataset ids. Each vector is copied
// into its own owned slice at Build time so the graph remains valid
// independent of the caller's dataset buffer lifetime.
type Index struct {
	g       *hnsw.Graph[uint32]
	mu      sync.RWMutex
	vectors [][]float32
}

// New constructs an empty index with the given build configuration.
func New(cfg Config) *Index {
	idx := &Index{}
	idx.g = hnsw.NewGraph[uint32]()
	idx.g.Distance = idx.dist
	idx.g.M = cfg.M
	return idx
}

func (idx *Index) dist(a, b []float32) float32 {
	return distance.SquaredEuclidean(a, b)
}

// Build copies every point's vector up front, then inserts the vectors
// into the graph. Insertions fan out across a fixed pool of
// runtime.GOMAXPROCS(0) workers that claim the next id via an atomic
// counter; coder/hnsw's Add is not safe for concurrent callers, so each
// Add runs under idx.mu and at most one insertion is in progress at a
// time. Any worker error (a cancelled ctx) is captured and returned on
// the driver after every worker has drained; the ids inserted before the
// cancellation stay in the graph.
func (idx *Index) Build(ctx context.Context, points []layout.Point) error {
	start := time.Now()
	defer func() {
		metrics.GraphBuildDuration.Observe(time.Since(start).Seconds())
		metrics.GraphNodeCount.Set(float64(len(points)))
	}()

	idx.vectors = make([][]float32, len(points))
	for i, p := range points {
		v := make([]float32, len(p.Vector()))
		copy(v, p.Vector())
		idx.vectors[i] = v
	}

	if len(points) == 0 {
		return nil
	}

	var next atomic.Int64
	workers := runtime.GOMAXPROCS(0)
	if workers > len(points) {
		workers = len(points)
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				i := next.Add(1) - 1
				if i >= int64(len(points)) {
					return nil
				}

				idx.mu.Lock()
				idx.g.Add(hnsw.MakeNode(uint32(i), idx.vectors[i]))
				idx.mu.Unlock()
			}
		})
	}
	return g.Wait()
}

// SearchKNN returns up to kInit best-effort nearest-neighbor candidates for
// vec. Only the vector lanes are read; the scalar
// attribute is opaque to the graph.
func (idx *Index) SearchKNN(vec []float32, kInit int) []Candidate {
	start := time.Now()
	defer func() {
		metrics.GraphSearchDuration.Observe(time.Since(start).Seconds())
	}()

	idx.mu.RLock()
	nodes := idx.g.Search(vec, kInit)
	idx.mu.RUnlock()

	out := make([]Candidate, len(nodes))
	for i, n := range nodes {
		out[i] = Candidate{ID: n.Key, Dist: distance.SquaredEuclidean(idx.vectors[n.Key], vec)}
	}
	return out
}

// Len returns the number of vectors inserted into the index.
func (idx *Index) Len() int { return len(idx.vectors) }

// Degree estimates id's local connectivity in the graph: the number of
// distinct neighbors returned when id's own vector is queried against up
// to M+1 candidates, excluding id itself. coder/hnsw does not expose
// per-node adjacency lists, so this approximates degree through the same
// SearchKNN path queries use rather than walking internal layer state.
func (idx *Index) Degree(id uint32) int {
	idx.mu.RLock()
	vec := idx.vectors[id]
	m := idx.g.M
	idx.mu.RUnlock()

	cands := idx.SearchKNN(vec, m+1)
	degree := 0
	for _, c := range cands {
		if c.ID != id {
			degree++
		}
	}
	return degree
}
