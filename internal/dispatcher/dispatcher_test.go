package dispatcher

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"github.com/rangeknn/hybridindex/internal/analytics"
	"github.com/rangeknn/hybridindex/internal/distance"
	"github.com/rangeknn/hybridindex/internal/graph"
	"github.com/rangeknn/hybridindex/internal/layout"
)

// fakeTree returns a fixed candidate set regardless of [l, r], letting
// tests pin |S| on either side of TBrute without building a real tree.
type fakeTree struct {
	ids []uint32
}

func (f fakeTree) SearchRange(l, r float32) []uint32 { return f.ids }

// fakeGraph returns a fixed candidate list regardless of the query
// vector, so graph-path tests can assert on post-filtering and
// truncation in isolation from actual proximity search.
type fakeGraph struct {
	candidates []graph.Candidate
}

func (f fakeGraph) SearchKNN(vec []float32, kInit int) []graph.Candidate { return f.candidates }

func newRow(cont float32, vec ...float32) layout.Point {
	row := make([]float32, layout.ENodeExtras+len(vec))
	row[layout.CategoricalIndex] = 0
	row[layout.ContinuousIndex] = cont
	copy(row[layout.ENodeExtras:], vec)
	return layout.Point(row)
}

func newQuery(l, r float32, vec ...float32) layout.Query {
	row := make([]float32, layout.EQueryExtras+len(vec))
	row[layout.QueryTypeIndex] = layout.TypeRangeFilteredA
	row[layout.QueryCategoricalIndex] = 0
	row[layout.QueryLIndex] = l
	row[layout.QueryRIndex] = r
	copy(row[layout.EQueryExtras:], vec)
	return layout.Query(row)
}

// TestBruteForcePathIsExact checks that a narrow range filter keeps |S|
// below T_brute, so the dispatcher must return the exact top-K against
// an independently computed brute-force reference.
func TestBruteForcePathIsExact(t *testing.T) {
	dataset := []layout.Point{
		newRow(10, 0, 0),
		newRow(20, 1, 0),
		newRow(30, 2, 0),
		newRow(40, 3, 0),
		newRow(50, 10, 10),
		newRow(60, 100, 100),
	}
	ids := []uint32{0, 1, 2, 3, 4, 5}
	tree := fakeTree{ids: ids}
	g := fakeGraph{} // unused on the brute path

	cfg := Config{TBrute: 3000, K: 3}
	d := New(tree, g, dataset, cfg)

	q := newQuery(10, 60, 0, 0)
	got := d.Answer(context.Background(), q)

	type sc struct {
		dist float32
		id   uint32
	}
	want := make([]sc, len(ids))
	for i, id := range ids {
		want[i] = sc{dist: distance.SquaredEuclidean(dataset[id].Vector(), q.Vector()), id: id}
	}
	sort.Slice(want, func(i, j int) bool {
		if want[i].dist != want[j].dist {
			return want[i].dist < want[j].dist
		}
		return want[i].id < want[j].id
	})
	wantIDs := make([]uint32, cfg.K)
	for i := 0; i < cfg.K; i++ {
		wantIDs[i] = want[i].id
	}

	if !reflect.DeepEqual(got, wantIDs) {
		t.Fatalf("brute force result = %v, want %v", got, wantIDs)
	}
}

// TestGraphPathFiltersAndTruncates checks that a wide range filter
// pushes |S| above T_brute, routing to the graph path, which must
// discard out-of-range candidates and truncate to K.
func TestGraphPathFiltersAndTruncates(t *testing.T) {
	dataset := []layout.Point{
		newRow(5),   // id 0: out of range
		newRow(15),  // id 1: in range
		newRow(25),  // id 2: in range
		newRow(35),  // id 3: in range
		newRow(95),  // id 4: out of range
	}
	candidates := []graph.Candidate{
		{ID: 0, Dist: 1},
		{ID: 1, Dist: 2},
		{ID: 2, Dist: 3},
		{ID: 3, Dist: 4},
		{ID: 4, Dist: 5},
	}
	tree := fakeTree{ids: make([]uint32, 5000)} // |S| > TBrute forces the graph path
	g := fakeGraph{candidates: candidates}

	cfg := Config{TBrute: 10, K: 2}
	d := New(tree, g, dataset, cfg)

	q := newQuery(10, 40)
	got := d.Answer(context.Background(), q)

	want := []uint32{1, 2} // ascending distance among in-range candidates, truncated to K=2
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("graph path result = %v, want %v", got, want)
	}
}

// TestTruncatedWhenFewerSurvive covers the case where fewer than K
// candidates survive the post-filter.
func TestTruncatedWhenFewerSurvive(t *testing.T) {
	dataset := []layout.Point{
		newRow(5),
		newRow(15),
	}
	candidates := []graph.Candidate{
		{ID: 0, Dist: 1},
		{ID: 1, Dist: 2},
	}
	tree := fakeTree{ids: make([]uint32, 5000)}
	g := fakeGraph{candidates: candidates}

	cfg := Config{TBrute: 10, K: 5}
	d := New(tree, g, dataset, cfg)

	got := d.Answer(context.Background(), newQuery(10, 40))
	want := []uint32{1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// TestAnswerAllPreservesOrder fans out many queries concurrently and
// checks that results[i] always corresponds to queries[i], guarding
// against an append-on-completion pattern that would lose it.
func TestAnswerAllPreservesOrder(t *testing.T) {
	dataset := make([]layout.Point, 200)
	for i := range dataset {
		dataset[i] = newRow(float32(i), float32(i))
	}
	tree := fakeTree{ids: func() []uint32 {
		ids := make([]uint32, 200)
		for i := range ids {
			ids[i] = uint32(i)
		}
		return ids
	}()}
	g := fakeGraph{}

	cfg := Config{TBrute: 3000, K: 1}
	d := New(tree, g, dataset, cfg)

	queries := make([]layout.Query, 200)
	for i := range queries {
		queries[i] = newQuery(0, 100, float32(i))
	}

	results, err := d.AnswerAll(context.Background(), queries)
	if err != nil {
		t.Fatalf("AnswerAll: %v", err)
	}
	if len(results) != len(queries) {
		t.Fatalf("got %d results, want %d", len(results), len(queries))
	}
	for i, q := range queries {
		want := uint32(q.Vector()[0])
		if len(results[i]) != 1 || results[i][0] != want {
			t.Fatalf("query %d: got %v, want nearest id %d", i, results[i], want)
		}
	}
}

// TestNewResolvesKInitFromDatasetSize checks that kInit follows
// max(5*K, len(dataset)/5) rather than a flat multiple of K.
func TestNewResolvesKInitFromDatasetSize(t *testing.T) {
	small := make([]layout.Point, 10)
	d := New(fakeTree{}, fakeGraph{}, small, Config{TBrute: 3000, K: 5})
	if d.kInit != 25 { // 5*K dominates: 5*5=25 > 10/5=2
		t.Errorf("kInit = %d, want 25", d.kInit)
	}

	large := make([]layout.Point, 1000)
	d = New(fakeTree{}, fakeGraph{}, large, Config{TBrute: 3000, K: 5})
	if d.kInit != 200 { // len(dataset)/5 dominates: 1000/5=200 > 5*5=25
		t.Errorf("kInit = %d, want 200", d.kInit)
	}
}

// fakeRecorder captures every QueryRecord passed to Record.
type fakeRecorder struct {
	records []analytics.QueryRecord
}

func (f *fakeRecorder) Record(_ context.Context, r analytics.QueryRecord) error {
	f.records = append(f.records, r)
	return nil
}

// TestAnswerRecordsQueryWhenLogAttached checks that an attached
// QueryRecorder receives exactly one record per Answer call, and that no
// attachment is also valid (exercised implicitly by every other test in
// this file, none of which call SetQueryLog).
func TestAnswerRecordsQueryWhenLogAttached(t *testing.T) {
	dataset := []layout.Point{newRow(10, 0), newRow(20, 1)}
	tree := fakeTree{ids: []uint32{0, 1}}
	g := fakeGraph{}

	d := New(tree, g, dataset, Config{TBrute: 3000, K: 1})
	rec := &fakeRecorder{}
	d.SetQueryLog(rec)

	d.Answer(context.Background(), newQuery(10, 20, 0))

	if len(rec.records) != 1 {
		t.Fatalf("got %d records, want 1", len(rec.records))
	}
	if rec.records[0].Route != "brute" {
		t.Errorf("Route = %q, want %q", rec.records[0].Route, "brute")
	}
}
