package database

import (
	"context"
	"time"
)

// Row is a schema-agnostic record keyed by column name. Values are nil,
// string, bool, int, int64, float64 or time.Time.
type Row map[string]any

type Op int

const (
	OpEq Op = iota
	OpIn
	// OpContains is a case-insensitive substring match.
	OpContains
	// OpNullOrAtMost matches NULL or values <= Value.
	OpNullOrAtMost
)

type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func In(column string, values ...string) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

func Contains(column, substr string) Filter {
	return Filter{Column: column, Op: OpContains, Value: substr}
}

func NullOrAtMost(column string, value time.Time) Filter {
	return Filter{Column: column, Op: OpNullOrAtMost, Value: value}
}

type Query struct {
	Table      string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// RowStore is the persistence boundary every repository goes through.
type RowStore interface {
	Select(ctx context.Context, q Query) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	// Update applies values to every row matching q.Filters and returns the
	// number of rows changed.
	Update(ctx context.Context, q Query, values Row) (int64, error)
	// Upsert inserts row or, when conflictColumn already holds its value,
	// overwrites the existing row with it.
	Upsert(ctx context.Context, table string, row Row, conflictColumn string) (Row, error)
	Ping(ctx context.Context) error
}

// selectOne returns the first matching row or entity.ErrNotFound.
func selectOne(ctx context.Context, s RowStore, q Query) (Row, error) {
	q.Limit = 1
	rows, err := s.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errNotFound
	}
	return rows[0], nil
}
