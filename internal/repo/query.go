// Package repo: the Query Executor. It runs validator-approved SELECTs and
// nothing else, returning rows as column-keyed maps.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-arth-chatbot/internal/sqlguard"
)

// ErrUnvalidated is returned when the runner is handed a zero ValidatedQuery.
var ErrUnvalidated = errors.New("query was not validated")

// Querier is the subset of *sql.DB the runner needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// QueryError is the typed database failure of a read query. Op is one of
// "query", "columns", "scan" or "rows".
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string { return fmt.Sprintf("read query %s: %v", e.Op, e.Err) }

func (e *QueryError) Unwrap() error { return e.Err }

// ResultSet holds rows in result-column order.
type ResultSet struct {
	Columns []string
	Rows    []map[string]any
}

// QueryRunner executes validated queries with a per-call deadline.
type QueryRunner struct {
	DB      Querier
	Timeout time.Duration
}

// NewQueryRunner returns a runner over db; timeout <= 0 disables the
// runner's own deadline.
func NewQueryRunner(db Querier, timeout time.Duration) *QueryRunner {
	return &QueryRunner{DB: db, Timeout: timeout}
}

// Run executes q. []byte cells are returned as strings.
func (r *QueryRunner) Run(ctx context.Context, q sqlguard.ValidatedQuery) (ResultSet, error) {
	if q.IsZero() {
		return ResultSet{}, ErrUnvalidated
	}

	tr := otel.Tracer("repo/QueryRunner")
	ctx, span := tr.Start(ctx, "Run",
		trace.WithAttributes(
			attribute.String("query.domain", string(q.Domain())),
			attribute.Int("query.limit", q.Limit()),
		),
	)
	defer span.End()

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	rs, err := r.run(ctx, q.SQL())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return ResultSet{}, err
	}
	span.SetAttributes(attribute.Int("query.rows", len(rs.Rows)))
	return rs, nil
}

func (r *QueryRunner) run(ctx context.Context, query string) (ResultSet, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return ResultSet{}, &QueryError{Op: "query", Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return ResultSet{}, &QueryError{Op: "columns", Err: err}
	}

	out := ResultSet{Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return ResultSet{}, &QueryError{Op: "scan", Err: err}
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return ResultSet{}, &QueryError{Op: "rows", Err: err}
	}
	return out, nil
}
