package repository

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"maritime-edge/internal/common/errors"
)

// MemoryRepository keeps tables in process memory. It backs the "memory"
// database driver for local runs and is the standard fake in handler tests.
type MemoryRepository struct {
	mu     sync.Mutex
	tables map[string][]Row
	failOn map[string]error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tables: make(map[string][]Row),
		failOn: make(map[string]error),
	}
}

// Seed appends rows to table without conflict handling.
func (m *MemoryRepository) Seed(table string, rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.tables[table] = append(m.tables[table], copyRow(r))
	}
}

// FailOn makes every operation on table return err wrapped as DATABASE_ERROR.
func (m *MemoryRepository) FailOn(table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[table] = err
}

// Rows returns a copy of everything stored in table.
func (m *MemoryRepository) Rows(table string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, len(m.tables[table]))
	for i, r := range m.tables[table] {
		out[i] = copyRow(r)
	}
	return out
}

func (m *MemoryRepository) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failOn[table]; err != nil {
		return nil, errors.NewDatabaseError("select from "+table, err)
	}

	var out []Row
	for _, r := range m.tables[table] {
		if matches(r, q.Filters) {
			out = append(out, copyRow(r))
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := fmt.Sprint(out[i][q.OrderBy]), fmt.Sprint(out[j][q.OrderBy])
			if q.Descending {
				return a > b
			}
			return a < b
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) Upsert(ctx context.Context, table string, record Row, conflict ...string) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failOn[table]; err != nil {
		return nil, errors.NewDatabaseError("upsert into "+table, err)
	}
	if len(record) == 0 {
		return nil, errors.NewDatabaseError("upsert into "+table, fmt.Errorf("empty record"))
	}

	if len(conflict) > 0 {
		filters := make([]Filter, len(conflict))
		for i, c := range conflict {
			filters[i] = Eq(c, record[c])
		}
		for i, existing := range m.tables[table] {
			if matches(existing, filters) {
				merged := copyRow(existing)
				for k, v := range record {
					merged[k] = v
				}
				m.tables[table][i] = merged
				return copyRow(merged), nil
			}
		}
	}

	stored := copyRow(record)
	m.tables[table] = append(m.tables[table], stored)
	return copyRow(stored), nil
}

func matches(r Row, filters []Filter) bool {
	for _, f := range filters {
		if !reflect.DeepEqual(r[f.Column], f.Value) && fmt.Sprint(r[f.Column]) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
