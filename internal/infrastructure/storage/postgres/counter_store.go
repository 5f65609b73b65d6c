package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"autoinc/internal/core/apperror"
	"autoinc/internal/core/counter"
)

var tracer = otel.Tracer("autoinc/counter")

// Querier interface for database operations.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conn is a Querier with a lifecycle.
type Conn interface {
	Querier
	Ping(ctx context.Context) error
	Close()
}

// CounterStore implements counter.Store on a PostgreSQL table.
type CounterStore struct {
	conn  Conn
	table string // sanitized identifier
}

// Ensure compile-time interface compliance.
var _ counter.Store = (*CounterStore)(nil)

// NewCounterStore creates a store over conn using the given table name.
// An empty table name selects counter.DefaultTable.
func NewCounterStore(conn Conn, table string) (*CounterStore, error) {
	if table == "" {
		table = counter.DefaultTable
	}
	if err := counter.ValidateTableName(table); err != nil {
		return nil, err
	}
	return &CounterStore{
		conn:  conn,
		table: pgx.Identifier{table}.Sanitize(),
	}, nil
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (s *CounterStore) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// EnsureSchema creates the counter table if it does not exist.
func (s *CounterStore) EnsureSchema(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name          TEXT PRIMARY KEY,
			current_value BIGINT NOT NULL,
			step          BIGINT NOT NULL DEFAULT 1
		)`, s.table))
	if err != nil {
		return classify("", fmt.Errorf("ensure schema: %w", err))
	}
	return nil
}

// advanceSQL inserts the row at startAt or adds the caller's step, in one statement.
func (s *CounterStore) advanceSQL() string {
	return fmt.Sprintf(`
		INSERT INTO %[1]s (name, current_value, step)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET current_value = %[1]s.current_value + EXCLUDED.step
		RETURNING current_value`, s.table)
}

// Advance implements counter.Store.
func (s *CounterStore) Advance(ctx context.Context, name string, startAt, step int64) (int64, error) {
	ctx, span := startSpan(ctx, "counter.advance", name)
	defer span.End()

	var value int64
	if err := s.conn.QueryRow(ctx, s.advanceSQL(), name, startAt, step).Scan(&value); err != nil {
		return 0, endWithError(span, classify(name, fmt.Errorf("advance %s: %w", name, err)))
	}
	span.SetAttributes(attribute.Int64("counter.value", value))
	return value, nil
}

func (s *CounterStore) getQuery(name string) (string, []any, error) {
	return s.Builder().
		Select("name", "current_value", "step").
		From(s.table).
		Where(squirrel.Eq{"name": name}).
		Limit(1).
		ToSql()
}

// Get implements counter.Store.
func (s *CounterStore) Get(ctx context.Context, name string) (counter.Counter, error) {
	ctx, span := startSpan(ctx, "counter.get", name)
	defer span.End()

	var c counter.Counter
	sql, args, err := s.getQuery(name)
	if err != nil {
		return c, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, s.conn, &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return c, apperror.NewNotFound("counter", name)
		}
		return c, endWithError(span, classify(name, fmt.Errorf("get %s: %w", name, err)))
	}
	return c, nil
}

func (s *CounterStore) seedQuery(name string, value, step int64) (string, []any, error) {
	return s.Builder().
		Insert(s.table).
		Columns("name", "current_value", "step").
		Values(name, value, step).
		Suffix("ON CONFLICT (name) DO NOTHING").
		ToSql()
}

// Seed implements counter.Store.
func (s *CounterStore) Seed(ctx context.Context, name string, value, step int64) (bool, error) {
	ctx, span := startSpan(ctx, "counter.seed", name)
	defer span.End()

	sql, args, err := s.seedQuery(name, value, step)
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}
	tag, err := s.conn.Exec(ctx, sql, args...)
	if err != nil {
		return false, endWithError(span, classify(name, fmt.Errorf("seed %s: %w", name, err)))
	}
	return tag.RowsAffected() == 1, nil
}

func (s *CounterStore) setQuery(name string, value, step int64) (string, []any, error) {
	return s.Builder().
		Insert(s.table).
		Columns("name", "current_value", "step").
		Values(name, value, step).
		Suffix("ON CONFLICT (name) DO UPDATE SET current_value = EXCLUDED.current_value, step = EXCLUDED.step").
		ToSql()
}

// Set implements counter.Store.
func (s *CounterStore) Set(ctx context.Context, name string, value, step int64) error {
	ctx, span := startSpan(ctx, "counter.set", name)
	defer span.End()

	sql, args, err := s.setQuery(name, value, step)
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.conn.Exec(ctx, sql, args...); err != nil {
		return endWithError(span, classify(name, fmt.Errorf("set %s: %w", name, err)))
	}
	return nil
}

func (s *CounterStore) listQuery() (string, []any, error) {
	return s.Builder().
		Select("name", "current_value", "step").
		From(s.table).
		OrderBy("name").
		ToSql()
}

// List implements counter.Store.
func (s *CounterStore) List(ctx context.Context) ([]counter.Counter, error) {
	ctx, span := startSpan(ctx, "counter.list", "")
	defer span.End()

	sql, args, err := s.listQuery()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []counter.Counter
	if err := pgxscan.Select(ctx, s.conn, &out, sql, args...); err != nil {
		return nil, endWithError(span, classify("", fmt.Errorf("list counters: %w", err)))
	}
	return out, nil
}

// Ping implements counter.Store.
func (s *CounterStore) Ping(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return apperror.NewStoreUnavailable("", err)
	}
	return nil
}

// Close implements counter.Store.
func (s *CounterStore) Close() error {
	s.conn.Close()
	return nil
}

// classify maps driver errors onto the counter error taxonomy.
// Anything that is not a server-side SQL error is treated as the store being unreachable.
func classify(name string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return apperror.NewStoreUnavailable(name, err)
	}

	switch {
	case pgErr.Code == "22003": // numeric_value_out_of_range
		return apperror.NewCounterOverflow(name, err)
	case pgErr.Code == "23505": // unique_violation
		return apperror.NewConcurrentInitConflict(name, err)
	case pgErr.Code == "57014": // query_canceled (statement_timeout)
		return apperror.NewStoreUnavailable(name, err)
	case len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "08" || pgErr.Code[:2] == "53" || pgErr.Code[:2] == "57"):
		// connection exception, insufficient resources, operator intervention
		return apperror.NewStoreUnavailable(name, err)
	default:
		return apperror.NewInternal(err).WithDetail("counter", name).WithDetail("sqlstate", pgErr.Code)
	}
}

func startSpan(ctx context.Context, op, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("counter.name", name),
		))
}

func endWithError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
