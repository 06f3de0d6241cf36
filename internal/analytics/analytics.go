// Package analytics is ambient inspection tooling the core index never
// depends on: a Parquet export of per-point scalar/degree profiles and an
// in-memory DuckDB log of dispatcher decisions queryable with ad-hoc SQL.
package analytics

import (
	"context"
	"database/sql"
	"os"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/parquet-go/parquet-go"

	"github.com/rangeknn/hybridindex/internal/xerrors"
)

// DegreeRow is one row of the exported dataset/graph profile.
type DegreeRow struct {
	ID         uint32  `parquet:"id"`
	Continuous float32 `parquet:"continuous"`
	Degree     int     `parquet:"degree"`
}

// ExportParquet writes one DegreeRow per dataset point to path. continuous
// and degrees must be the same length, index-aligned by dataset id.
func ExportParquet(path string, continuous []float32, degrees []int) error {
	if len(continuous) != len(degrees) {
		return xerrors.New(xerrors.KindConfiguration, "ExportParquet", "continuous/degrees length mismatch")
	}

	f, err := os.Create(path)
	if err != nil {
		return xerrors.Wrap(err, xerrors.KindIO, "ExportParquet", "create "+path)
	}
	defer f.Close()

	rows := make([]DegreeRow, len(continuous))
	for i := range continuous {
		rows[i] = DegreeRow{ID: uint32(i), Continuous: continuous[i], Degree: degrees[i]}
	}

	w := parquet.NewGenericWriter[DegreeRow](f)
	if _, err := w.Write(rows); err != nil {
		return xerrors.Wrap(err, xerrors.KindIO, "ExportParquet", "write rows")
	}
	if err := w.Close(); err != nil {
		return xerrors.Wrap(err, xerrors.KindIO, "ExportParquet", "close writer")
	}
	return nil
}

// QueryRecord is one row of dispatcher telemetry captured for later
// analysis: which route a query took, how wide its candidate set was, and
// how long it took.
type QueryRecord struct {
	Type          int
	L             float32
	R             float32
	CandidateSize int
	Route         string
	LatencyMS     float64
}

// QueryLog is an in-memory DuckDB table of QueryRecord rows. It is
// nil-safe at the call site: the dispatcher works identically whether or
// not a QueryLog is attached to record it.
type QueryLog struct {
	db *sql.DB
}

// NewQueryLog opens an in-memory DuckDB database and creates the query_log
// table.
func NewQueryLog() (*QueryLog, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.KindIO, "NewQueryLog", "open in-memory duckdb")
	}

	schema := `CREATE TABLE query_log (
		type INTEGER,
		l DOUBLE,
		r DOUBLE,
		candidate_size INTEGER,
		route VARCHAR,
		latency_ms DOUBLE
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, xerrors.Wrap(err, xerrors.KindIO, "NewQueryLog", "create query_log table")
	}
	return &QueryLog{db: db}, nil
}

// Record inserts one dispatcher decision into the log.
func (q *QueryLog) Record(ctx context.Context, r QueryRecord) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO query_log VALUES (?, ?, ?, ?, ?, ?)`,
		r.Type, r.L, r.R, r.CandidateSize, r.Route, r.LatencyMS)
	if err != nil {
		return xerrors.Wrap(err, xerrors.KindIO, "QueryLog.Record", "insert row")
	}
	return nil
}

// Summarize runs an ad-hoc SQL query (e.g. aggregate route counts, average
// latency per route bucket) over the logged rows, returning each result
// row as a column-name→value map.
func (q *QueryLog) Summarize(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.KindIO, "QueryLog.Summarize", "execute query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.KindIO, "QueryLog.Summarize", "read columns")
	}

	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, xerrors.Wrap(err, xerrors.KindIO, "QueryLog.Summarize", "scan row")
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(err, xerrors.KindIO, "QueryLog.Summarize", "iterate rows")
	}
	return out, nil
}

// Close releases the underlying DuckDB connection.
func (q *QueryLog) Close() error {
	return q.db.Close()
}
