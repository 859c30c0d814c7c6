package sink

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-sql-driver/mysql"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
)

var handlerCounter atomic.Int64

// MySQLSink streams generated rows straight into MySQL via
// LOAD DATA LOCAL INFILE, batching rows and loading batches from a worker
// pool. Secondary indexes can be dropped for the duration of each table's
// load and restored afterwards.
type MySQLSink struct {
	db           *sql.DB
	schema       string
	workers      int
	batchSize    int
	deferIndexes bool
}

func NewMySQLSink(db *sql.DB, schema string, workers, batchSize int, deferIndexes bool) (*MySQLSink, error) {
	var localInfile int
	if err := db.QueryRow("SELECT @@local_infile").Scan(&localInfile); err != nil {
		return nil, fmt.Errorf("checking local_infile: %w", err)
	}
	if localInfile != 1 {
		return nil, fmt.Errorf("LOAD DATA LOCAL INFILE requires the server to have local_infile=ON.\n" +
			"Run: SET GLOBAL local_infile=1; (or add local-infile=1 to my.cnf)")
	}
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 5000
	}
	return &MySQLSink{
		db:           db,
		schema:       schema,
		workers:      workers,
		batchSize:    batchSize,
		deferIndexes: deferIndexes,
	}, nil
}

func (s *MySQLSink) Table(t *catalog.Table, rows int64) (RowWriter, error) {
	quotedCols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		quotedCols[i] = "`" + c.Name + "`"
	}

	w := &loadWriter{
		sink:       s,
		table:      t.Name,
		colList:    strings.Join(quotedCols, ", "),
		batches:    make(chan [][]any, s.workers*2),
		errCh:      make(chan error, 1),
		batchCap:   s.batchSize,
		cur:        make([][]any, 0, s.batchSize),
	}

	if s.deferIndexes {
		idxs, err := fetchSecondaryIndexes(s.db, s.schema, t.Name)
		if err != nil {
			return nil, err
		}
		droppable, _ := filterFKBackingIndexes(idxs, t)
		if len(droppable) > 0 {
			if err := dropSecondaryIndexes(s.db, t.Name, droppable); err != nil {
				return nil, err
			}
			w.droppedIndexes = droppable
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.ctx = ctx

	for i := 0; i < s.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for b := range w.batches {
				if err := loadBatch(s.db, w.table, w.colList, b); err != nil {
					w.errOnce.Do(func() {
						w.errCh <- err
						cancel()
					})
					return
				}
			}
		}()
	}

	return w, nil
}

func (s *MySQLSink) Close() error { return nil }

type loadWriter struct {
	sink    *MySQLSink
	table   string
	colList string

	batchCap int
	cur      [][]any
	batches  chan [][]any

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	errCh   chan error
	errOnce sync.Once

	droppedIndexes []SecondaryIndex
}

func (w *loadWriter) WriteRow(row []any) error {
	w.cur = append(w.cur, row)
	if len(w.cur) < w.batchCap {
		return nil
	}
	return w.flush()
}

func (w *loadWriter) flush() error {
	if len(w.cur) == 0 {
		return nil
	}
	select {
	case w.batches <- w.cur:
		w.cur = make([][]any, 0, w.batchCap)
		return nil
	case <-w.ctx.Done():
		return <-w.errCh
	}
}

func (w *loadWriter) Close() error {
	flushErr := w.flush()
	close(w.batches)
	w.wg.Wait()
	w.cancel()

	var loadErr error
	select {
	case loadErr = <-w.errCh:
	default:
	}

	// Restore indexes even when the load failed part way.
	if len(w.droppedIndexes) > 0 {
		if err := restoreSecondaryIndexes(w.sink.db, w.table, w.droppedIndexes); err != nil {
			if loadErr == nil {
				loadErr = err
			}
		}
	}
	if loadErr != nil {
		return loadErr
	}
	return flushErr
}

// loadBatch streams one batch through an io.Pipe into LOAD DATA LOCAL INFILE.
func loadBatch(db *sql.DB, tableName, colList string, rows [][]any) error {
	pr, pw := io.Pipe()

	name := fmt.Sprintf("batch_%d", handlerCounter.Add(1))
	mysql.RegisterReaderHandler(name, func() io.Reader { return pr })
	defer mysql.DeregisterReaderHandler(name)

	go func() {
		enc := newRowEncoder(pw)
		for _, row := range rows {
			if err := enc.WriteRow(row); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		pw.Close()
	}()

	query := fmt.Sprintf(
		"LOAD DATA LOCAL INFILE 'Reader::%s' INTO TABLE `%s` FIELDS TERMINATED BY '\\t' LINES TERMINATED BY '\\n' (%s)",
		name, tableName, colList,
	)

	_, err := db.Exec(query)
	return err
}
