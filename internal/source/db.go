package source

import (
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
)

// DBSource streams table rows out of any database/sql connection. Backtick
// identifier quoting works for both MySQL and SQLite. The connection is
// owned by the caller.
type DBSource struct {
	db *sql.DB
}

func NewDBSource(db *sql.DB) *DBSource {
	return &DBSource{db: db}
}

func (s *DBSource) Table(t *catalog.Table) (RowReader, error) {
	quoted := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		quoted[i] = "`" + c.Name + "`"
	}
	query := fmt.Sprintf("SELECT %s FROM `%s`", strings.Join(quoted, ", "), t.Name)
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", t.Name, err)
	}
	return &sqlRows{rows: rows, table: t}, nil
}

func (s *DBSource) Close() error { return nil }

type sqlRows struct {
	rows  *sql.Rows
	table *catalog.Table
}

func (r *sqlRows) Next() ([]any, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", r.table.Name, err)
		}
		return nil, io.EOF
	}

	raw := make([]any, len(r.table.Columns))
	ptrs := make([]any, len(raw))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scanning row of %s: %w", r.table.Name, err)
	}

	row := make([]any, len(raw))
	for i, v := range raw {
		row[i] = coerceValue(v, r.table.Columns[i].Type)
	}
	return row, nil
}

func (r *sqlRows) Close() error {
	return r.rows.Close()
}

// timestampLayouts covers the textual forms drivers hand back when they
// don't parse temporal columns themselves.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// coerceValue converts a driver value into the typed form the profiler
// expects for the column's logical type. Values that cannot be interpreted
// are treated as null rather than failing the whole scan.
func coerceValue(v any, typ catalog.LogicalType) any {
	if v == nil {
		return nil
	}
	switch typ {
	case catalog.Integer:
		switch x := v.(type) {
		case int64:
			return x
		case float64:
			return int64(x)
		case []byte:
			if n, err := strconv.ParseInt(string(x), 10, 64); err == nil {
				return n
			}
		case string:
			if n, err := strconv.ParseInt(x, 10, 64); err == nil {
				return n
			}
		}
		return nil
	case catalog.Real:
		switch x := v.(type) {
		case float64:
			return x
		case int64:
			return float64(x)
		case []byte:
			if f, err := strconv.ParseFloat(string(x), 64); err == nil {
				return f
			}
		case string:
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return f
			}
		}
		return nil
	case catalog.Boolean:
		switch x := v.(type) {
		case bool:
			return x
		case int64:
			return x != 0
		case []byte:
			if b, err := strconv.ParseBool(string(x)); err == nil {
				return b
			}
		case string:
			if b, err := strconv.ParseBool(x); err == nil {
				return b
			}
		}
		return nil
	case catalog.Timestamp:
		switch x := v.(type) {
		case time.Time:
			return x
		case int64:
			return time.Unix(x, 0).UTC()
		case []byte:
			return parseTimestamp(string(x))
		case string:
			return parseTimestamp(x)
		}
		return nil
	case catalog.Text:
		switch x := v.(type) {
		case string:
			return x
		case []byte:
			return string(x)
		default:
			return fmt.Sprint(x)
		}
	default:
		// Opaque: presence is all the profiler records.
		return v
	}
}

func parseTimestamp(s string) any {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return nil
}
