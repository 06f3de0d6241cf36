// Package layout defines the fixed-width row shapes shared by the dataset
// and query files, and the accessor helpers the rest of the engine uses to
// read them without re-deriving lane offsets everywhere.
package layout

const (
	// D is the vector dimensionality of the reference configuration.
	D = 100

	// ENodeExtras is the number of scalar lanes prefixed to every dataset
	// point: categorical tag, then continuous attribute.
	ENodeExtras = 2
	// CategoricalIndex is the lane holding the (unused) categorical tag.
	CategoricalIndex = 0
	// ContinuousIndex is the lane holding the B+-tree key.
	ContinuousIndex = 1

	// EQueryExtras is the number of scalar lanes prefixed to every query
	// row: type, categorical filter, l, r.
	EQueryExtras = 4
	// QueryTypeIndex, QueryCategoricalIndex, QueryLIndex, QueryRIndex are
	// the query-row scalar lane offsets.
	QueryTypeIndex        = 0
	QueryCategoricalIndex = 1
	QueryLIndex           = 2
	QueryRIndex           = 3

	// K is the number of neighbors returned per query in the reference
	// configuration.
	K = 100

	// TypeRangeFilteredA and TypeRangeFilteredB are the two query types the
	// core handles (range-filtered k-ANN); other type values are forwarded
	// to the graph unfiltered and are out of scope here.
	TypeRangeFilteredA = 2
	TypeRangeFilteredB = 3
)

// NodeDimension is the row width of a dataset row for the given vector
// dimensionality.
func NodeDimension(dim int) int { return dim + ENodeExtras }

// QueryDimension is the row width of a query row for the given vector
// dimensionality.
func QueryDimension(dim int) int { return dim + EQueryExtras }

// Point is one dataset row: ENodeExtras scalar lanes followed by a D-lane
// vector. It is a thin view over a row owned by the Dataset; callers must
// not retain the slice past the Dataset's lifetime assumptions.
type Point []float32

// Categorical returns the unused categorical tag lane.
func (p Point) Categorical() float32 { return p[CategoricalIndex] }

// Continuous returns the scalar attribute used as the B+-tree key.
func (p Point) Continuous() float32 { return p[ContinuousIndex] }

// Vector returns the D-lane vector portion of the row.
func (p Point) Vector() []float32 { return p[ENodeExtras:] }

// Query is one query row: EQueryExtras scalar lanes followed by a D-lane
// vector.
type Query []float32

// Type returns the query type lane.
func (q Query) Type() int { return int(q[QueryTypeIndex]) }

// Categorical returns the categorical filter lane.
func (q Query) Categorical() float32 { return q[QueryCategoricalIndex] }

// L returns the lower bound of the range filter.
func (q Query) L() float32 { return q[QueryLIndex] }

// R returns the upper bound of the range filter.
func (q Query) R() float32 { return q[QueryRIndex] }

// Vector returns the D-lane query vector.
func (q Query) Vector() []float32 { return q[EQueryExtras:] }

// IsRangeFiltered reports whether this query type is handled by the
// range-filtered k-ANN core (types 2 and 3); other types pass through to
// the graph unfiltered at the dispatcher layer.
func (q Query) IsRangeFiltered() bool {
	t := q.Type()
	return t == TypeRangeFilteredA || t == TypeRangeFilteredB
}
