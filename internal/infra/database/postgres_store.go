package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
)

type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *PostgresStore) Select(ctx context.Context, q Query) ([]Row, error) {
	query, args := buildSelect(q)
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (s *PostgresStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	query, args := buildInsert(table, row, "")
	return s.queryOne(ctx, table, query, args)
}

func (s *PostgresStore) Upsert(ctx context.Context, table string, row Row, conflictColumn string) (Row, error) {
	query, args := buildInsert(table, row, conflictColumn)
	return s.queryOne(ctx, table, query, args)
}

func (s *PostgresStore) Update(ctx context.Context, q Query, values Row) (int64, error) {
	query, args := buildUpdate(q, values)
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", q.Table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", q.Table, err)
	}
	return n, nil
}

func (s *PostgresStore) queryOne(ctx context.Context, table, query string, args []any) (Row, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", table, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("write %s: no row returned", table)
	}
	return out[0], nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			// lib/pq hands text and uuid columns back as []byte.
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func sortedColumns(row Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func buildSelect(q Query) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(pq.QuoteIdentifier(q.Table))

	where, args := buildWhere(q.Filters, nil)
	b.WriteString(where)

	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(pq.QuoteIdentifier(q.OrderBy))
		if q.Descending {
			b.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args
}

func buildInsert(table string, row Row, conflictColumn string) (string, []any) {
	cols := sortedColumns(row)
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[c]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	if conflictColumn != "" {
		var sets []string
		for _, c := range cols {
			if c == conflictColumn || c == "id" || c == "created_at" {
				continue
			}
			q := pq.QuoteIdentifier(c)
			sets = append(sets, q+" = EXCLUDED."+q)
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s)", pq.QuoteIdentifier(conflictColumn))
		if len(sets) == 0 {
			// DO NOTHING would return no row; a no-op update keeps RETURNING populated.
			q := pq.QuoteIdentifier(conflictColumn)
			sets = append(sets, q+" = EXCLUDED."+q)
		}
		b.WriteString(" DO UPDATE SET ")
		b.WriteString(strings.Join(sets, ", "))
	}

	b.WriteString(" RETURNING *")
	return b.String(), args
}

func buildUpdate(q Query, values Row) (string, []any) {
	cols := sortedColumns(values)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(q.Filters))
	for i, c := range cols {
		args = append(args, values[c])
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), len(args))
	}

	where, args := buildWhere(q.Filters, args)
	return fmt.Sprintf("UPDATE %s SET %s%s", pq.QuoteIdentifier(q.Table), strings.Join(sets, ", "), where), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildWhere appends filter arguments to args and numbers placeholders
// after the ones already present.
func buildWhere(filters []Filter, args []any) (string, []any) {
	if len(filters) == 0 {
		return "", args
	}

	clauses := make([]string, 0, len(filters))
	for _, f := range filters {
		col := pq.QuoteIdentifier(f.Column)
		if f.Op == OpEq && f.Value == nil {
			clauses = append(clauses, col+" IS NULL")
			continue
		}

		value := f.Value
		switch f.Op {
		case OpIn:
			value = pq.Array(f.Value)
		case OpContains:
			value = likeEscaper.Replace(fmt.Sprint(f.Value))
		}
		args = append(args, value)
		n := len(args)

		switch f.Op {
		case OpEq:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", col, n))
		case OpIn:
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", col, n))
		case OpContains:
			clauses = append(clauses, fmt.Sprintf("%s ILIKE '%%' || $%d || '%%'", col, n))
		case OpNullOrAtMost:
			clauses = append(clauses, fmt.Sprintf("(%s IS NULL OR %s <= $%d)", col, col, n))
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
