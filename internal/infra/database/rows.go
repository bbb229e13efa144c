package database

import (
	"strconv"
	"time"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

var errNotFound = entity.ErrNotFound

func getString(r Row, col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

func getBool(r Row, col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func getInt(r Row, col string) (int, bool) {
	switch v := r[col].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

func getIntPtr(r Row, col string) *int {
	n, ok := getInt(r, col)
	if !ok {
		return nil
	}
	return &n
}

func getTime(r Row, col string) time.Time {
	t := getTimePtr(r, col)
	if t == nil {
		return time.Time{}
	}
	return *t
}

func getTimePtr(r Row, col string) *time.Time {
	switch v := r[col].(type) {
	case time.Time:
		t := v.UTC()
		return &t
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil
		}
		t = t.UTC()
		return &t
	}
	return nil
}

// nullString maps "" to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
