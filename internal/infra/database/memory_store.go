package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a RowStore kept in process memory. It backs local runs
// without DATABASE_URL and the test suites.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string][]Row
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string][]Row),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// Seed inserts rows as-is, for fixtures.
func (s *MemoryStore) Seed(table string, rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], s.fill(r))
	}
}

// Rows returns a copy of every row in table.
func (s *MemoryStore) Rows(table string) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, copyRow(r))
	}
	return out
}

func (s *MemoryStore) Select(_ context.Context, q Query) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Row
	for _, r := range s.tables[q.Table] {
		if matches(r, q.Filters) {
			out = append(out, copyRow(r))
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c := compare(out[i][q.OrderBy], out[j][q.OrderBy])
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Insert(_ context.Context, table string, row Row) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.fill(copyRow(row))
	s.tables[table] = append(s.tables[table], stored)
	return copyRow(stored), nil
}

func (s *MemoryStore) Upsert(_ context.Context, table string, row Row, conflictColumn string) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := row[conflictColumn]
	if !ok || key == nil {
		return nil, fmt.Errorf("upsert %s: missing conflict column %s", table, conflictColumn)
	}

	for _, existing := range s.tables[table] {
		if compare(existing[conflictColumn], key) != 0 {
			continue
		}
		for k, v := range row {
			if k == "id" || k == "created_at" {
				continue
			}
			existing[k] = v
		}
		existing["updated_at"] = s.now()
		return copyRow(existing), nil
	}

	stored := s.fill(copyRow(row))
	s.tables[table] = append(s.tables[table], stored)
	return copyRow(stored), nil
}

func (s *MemoryStore) Update(_ context.Context, q Query, values Row) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range s.tables[q.Table] {
		if !matches(r, q.Filters) {
			continue
		}
		for k, v := range values {
			r[k] = v
		}
		n++
	}
	return n, nil
}

func (s *MemoryStore) fill(r Row) Row {
	if id, _ := r["id"].(string); id == "" {
		r["id"] = uuid.New().String()
	}
	if _, ok := r["created_at"]; !ok {
		r["created_at"] = s.now()
	}
	return r
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func matches(r Row, filters []Filter) bool {
	for _, f := range filters {
		v := r[f.Column]
		switch f.Op {
		case OpEq:
			if f.Value == nil {
				if v != nil {
					return false
				}
				continue
			}
			if v == nil || compare(v, f.Value) != 0 {
				return false
			}
		case OpIn:
			found := false
			if s, ok := v.(string); ok {
				for _, want := range f.Value.([]string) {
					if s == want {
						found = true
						break
					}
				}
			}
			if !found {
				return false
			}
		case OpContains:
			s, _ := v.(string)
			if !strings.Contains(strings.ToLower(s), strings.ToLower(fmt.Sprint(f.Value))) {
				return false
			}
		case OpNullOrAtMost:
			if v != nil && compare(v, f.Value) > 0 {
				return false
			}
		}
	}
	return true
}

// compare orders two column values of the same kind. Mixed kinds compare by
// their string form.
func compare(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
