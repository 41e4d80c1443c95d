package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"maritime-edge/internal/common/errors"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// PostgresRepository talks to Postgres directly through lib/pq.
type PostgresRepository struct {
	db Querier
}

func NewPostgresRepository(db Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (p *PostgresRepository) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	query, args := buildSelect(table, q)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("select from "+table, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, errors.NewDatabaseError("select from "+table, err)
	}
	return out, nil
}

func (p *PostgresRepository) Upsert(ctx context.Context, table string, record Row, conflict ...string) (Row, error) {
	if len(record) == 0 {
		return nil, errors.NewDatabaseError("upsert into "+table, fmt.Errorf("empty record"))
	}

	query, args, err := buildUpsert(table, record, conflict)
	if err != nil {
		return nil, errors.NewDatabaseError("upsert into "+table, err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("upsert into "+table, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, errors.NewDatabaseError("upsert into "+table, err)
	}
	if len(out) == 0 {
		return record, nil
	}
	return out[0], nil
}

func buildSelect(table string, q Query) (string, []interface{}) {
	var sb strings.Builder
	args := make([]interface{}, 0, len(q.Filters)+1)

	sb.WriteString("SELECT * FROM ")
	sb.WriteString(pq.QuoteIdentifier(table))

	for i, f := range q.Filters {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		if f.Value == nil {
			sb.WriteString(pq.QuoteIdentifier(f.Column) + " IS NULL")
			continue
		}
		args = append(args, f.Value)
		fmt.Fprintf(&sb, "%s = $%d", pq.QuoteIdentifier(f.Column), len(args))
	}

	if q.OrderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(pq.QuoteIdentifier(q.OrderBy))
		if q.Descending {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	return sb.String(), args
}

func buildUpsert(table string, record Row, conflict []string) (string, []interface{}, error) {
	columns := make([]string, 0, len(record))
	for col := range record {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		quoted[i] = pq.QuoteIdentifier(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		v, err := toParam(record[col])
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", col, err)
		}
		args[i] = v
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	if len(conflict) > 0 {
		isConflict := make(map[string]bool, len(conflict))
		conflictCols := make([]string, len(conflict))
		for i, c := range conflict {
			isConflict[c] = true
			conflictCols[i] = pq.QuoteIdentifier(c)
		}

		var sets []string
		for _, col := range columns {
			if !isConflict[col] {
				sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", pq.QuoteIdentifier(col), pq.QuoteIdentifier(col)))
			}
		}
		// RETURNING needs an update to yield the existing row.
		if len(sets) == 0 {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", conflictCols[0], conflictCols[0]))
		}

		fmt.Fprintf(&sb, " ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(conflictCols, ", "), strings.Join(sets, ", "))
	}

	sb.WriteString(" RETURNING *")
	return sb.String(), args, nil
}

// toParam encodes maps, slices and structs as JSON text for jsonb columns.
func toParam(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64, time.Time, []byte:
		return val, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, nil
		}
		return toParam(rv.Elem().Interface())
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return v, nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = fromColumn(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// fromColumn decodes jsonb payloads and turns remaining byte slices into strings.
func fromColumn(v interface{}) interface{} {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var decoded interface{}
		if err := json.Unmarshal(b, &decoded); err == nil {
			return decoded
		}
	}
	return string(b)
}
