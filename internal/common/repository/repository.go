// Package repository is the persistence port used by every function: equality
// selects with ordering and a limit, and single-row upserts. No transactions span
// tables; each write stands alone.
package repository

import (
	"context"
	"fmt"
)

// Filter is an equality predicate on one column.
type Filter struct {
	Column string
	Value  interface{}
}

// Eq matches column = value. A nil value matches NULL.
func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Value: value}
}

type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Row is one record keyed by column name.
type Row map[string]interface{}

type Repository interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	// Upsert inserts record, or updates the existing row matching the conflict
	// columns, and returns the stored row.
	Upsert(ctx context.Context, table string, record Row, conflict ...string) (Row, error)
}

// First returns the first row matching filters, or nil when there is none.
func First(ctx context.Context, repo Repository, table string, filters ...Filter) (Row, error) {
	rows, err := repo.Select(ctx, table, Query{Filters: filters, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// String reads a column as a string, empty when absent or not a string.
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case string:
		return v
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}
