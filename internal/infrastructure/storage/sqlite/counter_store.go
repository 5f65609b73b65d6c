// Package sqlite provides a counter store backed by an embedded SQLite database.
// Several processes may share one database file; the upsert statement is atomic
// under SQLite's single-writer lock.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"autoinc/internal/core/apperror"
	"autoinc/internal/core/counter"

	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("autoinc/counter")

// Config configures the SQLite counter store.
type Config struct {
	// DSN is the database connection string.
	DSN string

	// Table overrides counter.DefaultTable.
	Table string

	// BusyTimeoutMS is how long a writer waits for the lock (default 5000).
	BusyTimeoutMS int
}

// CounterStore implements counter.Store on SQLite.
type CounterStore struct {
	db    *sql.DB
	table string // quoted identifier
}

// Ensure compile-time interface compliance.
var _ counter.Store = (*CounterStore)(nil)

// NewCounterStore opens (or creates) the database and its counter table.
func NewCounterStore(cfg Config) (*CounterStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("sqlite: counter store dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = counter.DefaultTable
	}
	if err := counter.ValidateTableName(table); err != nil {
		return nil, err
	}
	busy := cfg.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}

	db, err := sql.Open("sqlite", withPragmas(cfg.DSN, busy))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// One connection per handle keeps shared-cache memory databases from
	// returning SQLITE_LOCKED; cross-handle contention waits on busy_timeout.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &CounterStore{db: db, table: `"` + table + `"`}

	if _, err := db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name          TEXT PRIMARY KEY,
			current_value INTEGER NOT NULL,
			step          INTEGER NOT NULL DEFAULT 1
		) STRICT`, s.table)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return s, nil
}

// withPragmas appends connection pragmas to dsn. The driver applies them on
// every new connection, so a pooled reconnect keeps the same settings.
func withPragmas(dsn string, busyTimeoutMS int) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", dsn, sep, busyTimeoutMS)
}

// Builder returns a new squirrel builder with ? placeholders.
func (s *CounterStore) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

// Advance implements counter.Store.
func (s *CounterStore) Advance(ctx context.Context, name string, startAt, step int64) (int64, error) {
	ctx, span := startSpan(ctx, "counter.advance", name)
	defer span.End()

	// SQLite promotes an overflowing integer sum to REAL instead of failing,
	// so the update is skipped when the sum would leave the int64 range.
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (name, current_value, step)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET current_value = %[1]s.current_value + excluded.step
		WHERE excluded.step = 0
			OR (excluded.step > 0 AND %[1]s.current_value <= 9223372036854775807 - excluded.step)
			OR (excluded.step < 0 AND %[1]s.current_value >= (-9223372036854775807 - 1) - excluded.step)
		RETURNING current_value`, s.table)

	var value int64
	if err := s.db.QueryRowContext(ctx, query, name, startAt, step).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, endWithError(span, apperror.NewCounterOverflow(name, counter.ErrOverflow))
		}
		return 0, endWithError(span, classify(name, fmt.Errorf("advance %s: %w", name, err)))
	}
	span.SetAttributes(attribute.Int64("counter.value", value))
	return value, nil
}

// Get implements counter.Store.
func (s *CounterStore) Get(ctx context.Context, name string) (counter.Counter, error) {
	ctx, span := startSpan(ctx, "counter.get", name)
	defer span.End()

	var c counter.Counter
	query, args, err := s.Builder().
		Select("name", "current_value", "step").
		From(s.table).
		Where(squirrel.Eq{"name": name}).
		Limit(1).
		ToSql()
	if err != nil {
		return c, fmt.Errorf("build query: %w", err)
	}

	if err := sqlscan.Get(ctx, s.db, &c, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return c, apperror.NewNotFound("counter", name)
		}
		return c, endWithError(span, classify(name, fmt.Errorf("get %s: %w", name, err)))
	}
	return c, nil
}

// Seed implements counter.Store.
func (s *CounterStore) Seed(ctx context.Context, name string, value, step int64) (bool, error) {
	ctx, span := startSpan(ctx, "counter.seed", name)
	defer span.End()

	query, args, err := s.Builder().
		Insert(s.table).
		Columns("name", "current_value", "step").
		Values(name, value, step).
		Suffix("ON CONFLICT (name) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, endWithError(span, classify(name, fmt.Errorf("seed %s: %w", name, err)))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, endWithError(span, classify(name, fmt.Errorf("seed %s: %w", name, err)))
	}
	return n == 1, nil
}

// Set implements counter.Store.
func (s *CounterStore) Set(ctx context.Context, name string, value, step int64) error {
	ctx, span := startSpan(ctx, "counter.set", name)
	defer span.End()

	query, args, err := s.Builder().
		Insert(s.table).
		Columns("name", "current_value", "step").
		Values(name, value, step).
		Suffix("ON CONFLICT (name) DO UPDATE SET current_value = excluded.current_value, step = excluded.step").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return endWithError(span, classify(name, fmt.Errorf("set %s: %w", name, err)))
	}
	return nil
}

// List implements counter.Store.
func (s *CounterStore) List(ctx context.Context) ([]counter.Counter, error) {
	ctx, span := startSpan(ctx, "counter.list", "")
	defer span.End()

	query, args, err := s.Builder().
		Select("name", "current_value", "step").
		From(s.table).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []counter.Counter
	if err := sqlscan.Select(ctx, s.db, &out, query, args...); err != nil {
		return nil, endWithError(span, classify("", fmt.Errorf("list counters: %w", err)))
	}
	return out, nil
}

// Ping implements counter.Store.
func (s *CounterStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperror.NewStoreUnavailable("", err)
	}
	return nil
}

// Close implements counter.Store.
func (s *CounterStore) Close() error {
	return s.db.Close()
}

// classify maps driver errors onto the counter error taxonomy.
func classify(name string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "cannot store REAL value in INTEGER column"),
		strings.Contains(msg, "integer overflow"):
		// The table is STRICT, so a REAL that slips past the guard is rejected.
		return apperror.NewCounterOverflow(name, err)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return apperror.NewConcurrentInitConflict(name, err)
	case strings.Contains(msg, "no such table"), strings.Contains(msg, "syntax error"):
		return apperror.NewInternal(err).WithDetail("counter", name)
	default:
		return apperror.NewStoreUnavailable(name, err)
	}
}

func startSpan(ctx context.Context, op, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "sqlite"),
			attribute.String("counter.name", name),
		))
}

func endWithError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
