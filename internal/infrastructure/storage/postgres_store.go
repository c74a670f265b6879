package storage

import (
	"context"
	"fmt"
	"regexp"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"PipelineDash/internal/domain"
	"PipelineDash/internal/ports"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads pipeline tables directly from Postgres.
type PostgresStore struct {
	db Querier
	sb sq.StatementBuilderType
}

var _ ports.Store = (*PostgresStore)(nil)

// NewPostgresStore wires a pgx pool (or any Querier).
func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Connect creates and verifies a pgxpool connection pool.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

// Count returns the number of rows matching q's filters.
func (s *PostgresStore) Count(ctx context.Context, q domain.Query) (int, error) {
	if s.db == nil {
		return 0, nil
	}

	b, err := s.base(q, "COUNT(*)")
	if err != nil {
		return 0, err
	}

	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count %s: %w", q.Table, err)
	}

	var n int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Table, err)
	}
	return int(n), nil
}

// Select returns rows matching q, projected onto q.Columns.
func (s *PostgresStore) Select(ctx context.Context, q domain.Query) ([]domain.Row, error) {
	if s.db == nil {
		return nil, nil
	}

	columns := q.Columns
	if len(columns) == 0 {
		columns = []string{"*"}
	} else {
		for _, col := range columns {
			if err := checkIdentifier(col); err != nil {
				return nil, err
			}
		}
	}

	b, err := s.base(q, columns...)
	if err != nil {
		return nil, err
	}

	for _, o := range q.Order {
		if err := checkIdentifier(o.Column); err != nil {
			return nil, err
		}
		b = b.OrderBy(orderClause(o))
	}
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", q.Table, err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var result []domain.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Table, err)
		}
		row := make(domain.Row, len(fields))
		for i, f := range fields {
			if i < len(values) {
				row[f.Name] = normalizeValue(values[i])
			}
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration %s: %w", q.Table, err)
	}

	return result, nil
}

func (s *PostgresStore) base(q domain.Query, columns ...string) (sq.SelectBuilder, error) {
	if err := checkIdentifier(string(q.Table)); err != nil {
		return sq.SelectBuilder{}, err
	}

	b := s.sb.Select(columns...).From(string(q.Table))
	for _, f := range q.Filters {
		if err := checkIdentifier(f.Column); err != nil {
			return sq.SelectBuilder{}, err
		}
		switch f.Op {
		case domain.OpEq:
			b = b.Where(sq.Eq{f.Column: f.Value})
		case domain.OpIsNull:
			b = b.Where(sq.Eq{f.Column: nil})
		case domain.OpGte:
			b = b.Where(sq.GtOrEq{f.Column: f.Value})
		default:
			return sq.SelectBuilder{}, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
	}
	return b, nil
}

func orderClause(o domain.Order) string {
	dir := "ASC"
	if o.Descending {
		dir = "DESC"
	}
	nulls := "NULLS LAST"
	if o.NullsFirst {
		nulls = "NULLS FIRST"
	}
	return fmt.Sprintf("%s %s %s", o.Column, dir, nulls)
}

func checkIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

// normalizeValue turns pgx wire types into plain Go values the domain decoders understand.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	default:
		return v
	}
}
