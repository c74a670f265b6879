package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Table names the four logical tables the dashboard reads.
type Table string

const (
	TableSources     Table = "discovery_sources"
	TableRawItems    Table = "raw_scraped_content"
	TableCards       Table = "discovery_cards"
	TableCardSources Table = "discovery_card_sources"
)

// Operator is a filter predicate kind supported by every store adapter.
type Operator string

const (
	OpEq     Operator = "eq"
	OpIsNull Operator = "is"
	OpGte    Operator = "gte"
)

// Filter restricts a query to rows where Column matches Value under Op.
// Value is ignored for OpIsNull.
type Filter struct {
	Column string
	Op     Operator
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter { return Filter{Column: column, Op: OpEq, Value: value} }

// IsNull builds a null check.
func IsNull(column string) Filter { return Filter{Column: column, Op: OpIsNull} }

// Gte builds a greater-or-equal filter.
func Gte(column string, value any) Filter { return Filter{Column: column, Op: OpGte, Value: value} }

// Order sorts query results on a single column.
type Order struct {
	Column     string
	Descending bool
	NullsFirst bool
}

// Query is a read-only request against one table. Empty Columns selects all.
// Limit <= 0 means unbounded.
type Query struct {
	Table   Table
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
}

// Row is one result row keyed by column name.
type Row map[string]any

// Bool reads a boolean column; absent or null values are false.
func (r Row) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// String reads a text column. ok is false for absent or null values.
func (r Row) String(key string) (string, bool) {
	switch v := r[key].(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

// Float reads a numeric column. ok is false for absent, null or non-numeric values.
func (r Row) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Int reads a numeric column truncated to int; absent values are 0.
func (r Row) Int(key string) int {
	f, _ := r.Float(key)
	return int(f)
}

// Time reads a timestamp column. Text values may be RFC 3339 or a Postgres
// timestamp with or without an offset; offset-less values are UTC.
func (r Row) Time(key string) (time.Time, bool) {
	switch v := r[key].(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		return parseTimestamp(v)
	default:
		return time.Time{}, false
	}
}

// timestampLayouts covers RFC 3339 plus the offset-less and space-separated
// forms Postgres and PostgREST emit for timestamp columns.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp reads values without an offset as UTC.
func parseTimestamp(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
