// Package dispatcher implements the query dispatcher: per query,
// choose between exhaustive filtered scan and graph search with
// post-range-filtering based on the size of the filtered candidate set,
// and aggregate results across queries without losing query↔answer
// alignment.
package dispatcher

import (
	"context"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rangeknn/hybridindex/internal/analytics"
	"github.com/rangeknn/hybridindex/internal/distance"
	"github.com/rangeknn/hybridindex/internal/graph"
	"github.com/rangeknn/hybridindex/internal/layout"
	"github.com/rangeknn/hybridindex/internal/metrics"
)

// RangeIndex is the subset of *bptree.Tree the dispatcher needs.
type RangeIndex interface {
	SearchRange(l, r float32) []uint32
}

// ProximityIndex is the subset of *graph.Index the dispatcher needs.
type ProximityIndex interface {
	SearchKNN(vec []float32, kInit int) []graph.Candidate
}

// QueryRecorder is the subset of *analytics.QueryLog the dispatcher needs.
// A nil QueryRecorder is valid: the dispatcher answers identically whether
// or not one is attached.
type QueryRecorder interface {
	Record(ctx context.Context, r analytics.QueryRecord) error
}

// Config holds the dispatcher's tuning knobs.
type Config struct {
	// TBrute is the |S| threshold at or below which the exact brute-force
	// branch is taken.
	TBrute int
	// K is the number of results returned per query.
	K int
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{TBrute: 3000, K: layout.K}
}

// Dispatcher answers range-filtered k-ANN queries against a built tree,
// graph, and dataset. It is stateless after construction; all three
// dependencies are read-only, so a Dispatcher is safe for concurrent use
// across many queries.
type Dispatcher struct {
	tree    RangeIndex
	graph   ProximityIndex
	dataset []layout.Point
	cfg     Config
	kInit   int
	log     QueryRecorder
}

// New constructs a Dispatcher over a built tree, graph, and dataset.
// kInit, the candidate breadth requested from the graph ahead of
// post-filtering, is resolved once here as max(5*K, len(dataset)/5): wide
// enough to survive a typical range filter's attrition without asking the
// graph for every point on every query.
func New(tree RangeIndex, g ProximityIndex, dataset []layout.Point, cfg Config) *Dispatcher {
	kInit := 5 * cfg.K
	if byPop := len(dataset) / 5; byPop > kInit {
		kInit = byPop
	}
	return &Dispatcher{tree: tree, graph: g, dataset: dataset, cfg: cfg, kInit: kInit}
}

// SetQueryLog attaches a QueryRecorder that receives one record per
// dispatched query. Passing nil detaches it.
func (d *Dispatcher) SetQueryLog(log QueryRecorder) {
	d.log = log
}

// scored pairs a distance with an id for sorting; ties break on ascending
// id.
type scored struct {
	dist float32
	id   uint32
}

func sortScored(s []scored) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].dist != s[j].dist {
			return s[i].dist < s[j].dist
		}
		return s[i].id < s[j].id
	})
}

func truncate(s []scored, k int) []uint32 {
	if k > len(s) {
		k = len(s)
	}
	out := make([]uint32, k)
	for i := 0; i < k; i++ {
		out[i] = s[i].id
	}
	return out
}

// Answer dispatches a single query. A range-filtered query takes the
// filtered path; an unfiltered query goes straight to the graph. If a
// QueryRecorder is attached, one record is logged per call; a logging
// failure never affects the returned result.
func (d *Dispatcher) Answer(ctx context.Context, q layout.Query) []uint32 {
	if !q.IsRangeFiltered() {
		start := time.Now()
		cands := d.graph.SearchKNN(q.Vector(), d.cfg.K)
		s := make([]scored, len(cands))
		for i, c := range cands {
			s[i] = scored{dist: c.Dist, id: c.ID}
		}
		sortScored(s)
		result := truncate(s, d.cfg.K)
		d.recordQuery(ctx, analytics.QueryRecord{
			Type:          q.Type(),
			CandidateSize: len(cands),
			Route:         "graph_unfiltered",
			LatencyMS:     float64(time.Since(start).Microseconds()) / 1000,
		})
		return result
	}

	l, r := q.L(), q.R()
	candidates := d.tree.SearchRange(l, r)
	metrics.CandidateSetSize.Observe(float64(len(candidates)))

	start := time.Now()
	route := "graph"
	var result []uint32
	if len(candidates) <= d.cfg.TBrute {
		route = "brute"
		result = d.bruteForce(candidates, q.Vector())
	} else {
		result = d.graphSearch(q.Vector(), l, r)
	}
	elapsed := time.Since(start)
	metrics.DispatchRouteTotal.WithLabelValues(route).Inc()
	metrics.DispatchDuration.WithLabelValues(route).Observe(elapsed.Seconds())
	if len(result) < d.cfg.K {
		metrics.TruncatedResultsTotal.Inc()
	}
	d.recordQuery(ctx, analytics.QueryRecord{
		Type:          q.Type(),
		L:             l,
		R:             r,
		CandidateSize: len(candidates),
		Route:         route,
		LatencyMS:     float64(elapsed.Microseconds()) / 1000,
	})
	return result
}

// recordQuery is a no-op when no QueryRecorder is attached.
func (d *Dispatcher) recordQuery(ctx context.Context, r analytics.QueryRecord) {
	if d.log == nil {
		return
	}
	_ = d.log.Record(ctx, r)
}

// bruteForce scores every candidate id exactly and returns the top-K —
// exact on the filter.
func (d *Dispatcher) bruteForce(ids []uint32, vec []float32) []uint32 {
	s := make([]scored, len(ids))
	for i, id := range ids {
		s[i] = scored{dist: distance.SquaredEuclidean(d.dataset[id].Vector(), vec), id: id}
	}
	sortScored(s)
	return truncate(s, d.cfg.K)
}

// graphSearch requests kInit candidates from the proximity graph and
// post-filters by [l, r] before truncating to K.
func (d *Dispatcher) graphSearch(vec []float32, l, r float32) []uint32 {
	cands := d.graph.SearchKNN(vec, d.kInit)
	s := make([]scored, 0, len(cands))
	for _, c := range cands {
		cont := d.dataset[c.ID].Continuous()
		if cont >= l && cont <= r {
			s = append(s, scored{dist: c.Dist, id: c.ID})
		}
	}
	sortScored(s)
	return truncate(s, d.cfg.K)
}

// AnswerAll dispatches every query in queries, fanning out across
// runtime.GOMAXPROCS(0) workers that claim the next query index via an
// atomic counter. results is pre-sized to len(queries) before any worker
// starts and each worker writes only results[i] — avoiding an
// append-on-completion pattern, which would lose query↔answer alignment
// under concurrent execution.
func (d *Dispatcher) AnswerAll(ctx context.Context, queries []layout.Query) ([][]uint32, error) {
	results := make([][]uint32, len(queries))
	if len(queries) == 0 {
		return results, nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(queries) {
		workers = len(queries)
	}

	var next atomic.Int64
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
				if i >= int64(len(queries)) {
					return nil
				}
				results[i] = d.Answer(gctx, queries[i])
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
