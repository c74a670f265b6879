package storage

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"PipelineDash/internal/domain"
	"PipelineDash/internal/ports"
)

// MemoryStore evaluates queries over rows held in memory. It backs offline
// runs from a fixture file and the use case tests.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[domain.Table][]domain.Row
	errs   map[domain.Table]error
}

var _ ports.Store = (*MemoryStore)(nil)

// NewMemoryStore copies the given tables into a new store.
func NewMemoryStore(tables map[domain.Table][]domain.Row) *MemoryStore {
	s := &MemoryStore{
		tables: make(map[domain.Table][]domain.Row, len(tables)),
		errs:   map[domain.Table]error{},
	}
	for table, rows := range tables {
		s.tables[table] = append([]domain.Row(nil), rows...)
	}
	return s
}

// LoadFixture reads a YAML document keyed by table name.
func LoadFixture(path string) (*MemoryStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}

	var doc map[string][]map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}

	tables := make(map[domain.Table][]domain.Row, len(doc))
	for name, rows := range doc {
		converted := make([]domain.Row, 0, len(rows))
		for _, r := range rows {
			converted = append(converted, domain.Row(r))
		}
		tables[domain.Table(name)] = converted
	}
	return NewMemoryStore(tables), nil
}

// Insert appends rows to a table.
func (s *MemoryStore) Insert(table domain.Table, rows ...domain.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], rows...)
}

// FailTable makes every query on table return err; nil clears it.
func (s *MemoryStore) FailTable(table domain.Table, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, table)
		return
	}
	s.errs[table] = err
}

// Count returns the number of matching rows.
func (s *MemoryStore) Count(_ context.Context, q domain.Query) (int, error) {
	rows, err := s.match(q)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Select returns matching rows, ordered, limited and projected.
func (s *MemoryStore) Select(_ context.Context, q domain.Query) ([]domain.Row, error) {
	rows, err := s.match(q)
	if err != nil {
		return nil, err
	}

	if len(q.Order) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			return less(rows[i], rows[j], q.Order)
		})
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	out := make([]domain.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, project(r, q.Columns))
	}
	return out, nil
}

func (s *MemoryStore) match(q domain.Query) ([]domain.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.errs[q.Table]; err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}

	var rows []domain.Row
	for _, r := range s.tables[q.Table] {
		ok, err := matches(r, q.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func matches(r domain.Row, filters []domain.Filter) (bool, error) {
	for _, f := range filters {
		value := r[f.Column]
		switch f.Op {
		case domain.OpIsNull:
			if value != nil {
				return false, nil
			}
		case domain.OpEq:
			if value == nil || compare(r, f.Column, f.Value) != 0 {
				return false, nil
			}
		case domain.OpGte:
			if value == nil || compare(r, f.Column, f.Value) < 0 {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
	}
	return true, nil
}

// compare orders r[column] against want, trying time, number, bool, then text.
func compare(r domain.Row, column string, want any) int {
	other := domain.Row{"v": want}

	if a, ok := r.Time(column); ok {
		if b, ok := other.Time("v"); ok {
			return a.Compare(b)
		}
	}
	if a, ok := r.Float(column); ok {
		if b, ok := other.Float("v"); ok {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		}
	}
	if _, isBool := want.(bool); isBool {
		if r.Bool(column) == want.(bool) {
			return 0
		}
		return -1
	}

	a, _ := r.String(column)
	b, _ := other.String("v")
	return strings.Compare(a, b)
}

func less(a, b domain.Row, order []domain.Order) bool {
	for _, o := range order {
		aNil, bNil := a[o.Column] == nil, b[o.Column] == nil
		if aNil || bNil {
			if aNil == bNil {
				continue
			}
			return aNil == o.NullsFirst
		}

		c := compare(a, o.Column, b[o.Column])
		if c == 0 {
			continue
		}
		if o.Descending {
			return c > 0
		}
		return c < 0
	}
	return false
}

func project(r domain.Row, columns []string) domain.Row {
	out := make(domain.Row, len(r))
	if len(columns) == 0 {
		for k, v := range r {
			out[k] = v
		}
		return out
	}
	for _, col := range columns {
		out[col] = r[col]
	}
	return out
}
