// Package source defines the row-source boundary the profiler consumes, plus
// database-backed implementations. A source yields each table's rows as
// positional tuples of typed-or-null values in catalog column order.
package source

import (
	"github.com/Pragadeesh-19/replica-db/internal/catalog"
)

// RowReader is a finite lazy sequence of rows. Next returns io.EOF after the
// last row.
type RowReader interface {
	Next() ([]any, error)
	Close() error
}

// Source opens row streams per table.
type Source interface {
	Table(t *catalog.Table) (RowReader, error)
	Close() error
}
