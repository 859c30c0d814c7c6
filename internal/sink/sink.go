// Package sink defines the row-sink boundary generation writes to, plus the
// bulk-load implementations: tab-separated files and MySQL LOAD DATA.
package sink

import (
	"github.com/Pragadeesh-19/replica-db/internal/catalog"
)

// RowWriter consumes one table's generated rows.
type RowWriter interface {
	WriteRow(row []any) error
	Close() error
}

// Sink opens one writer per table. rows is the planned row count, which
// implementations may use for progress or preallocation.
type Sink interface {
	Table(t *catalog.Table, rows int64) (RowWriter, error)
	Close() error
}
