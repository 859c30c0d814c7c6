// Package planner orchestrates generation: it orders tables so parents come
// first, wires the correlated samplers to the key store, and streams rows to
// the sink. All randomness flows through seeded substreams, so a fixed seed
// and genome reproduce the output byte for byte.
package planner

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
	"github.com/Pragadeesh-19/replica-db/internal/depgraph"
	"github.com/Pragadeesh-19/replica-db/internal/genome"
	"github.com/Pragadeesh-19/replica-db/internal/keystore"
	"github.com/Pragadeesh-19/replica-db/internal/randsrc"
	"github.com/Pragadeesh-19/replica-db/internal/sampler"
	"github.com/Pragadeesh-19/replica-db/internal/sink"
)

// DefaultBatchSize is how many rows are generated between cancellation and
// progress checks.
const DefaultBatchSize = 1024

// Config drives one generation run.
type Config struct {
	Genome *genome.Genome
	Seed   uint64

	// DefaultRows applies to every table; 0 means the profiled row count.
	// Rows overrides per table.
	DefaultRows int64
	Rows        map[string]int64

	BatchSize          int
	KeyStoreCapacity   int
	CholeskyEpsilonMax float64
	FillOther          bool

	// Progress, when set, is called once per batch per table.
	Progress func(table string, done, total int64)
}

// TableReport summarizes one table's generation.
type TableReport struct {
	Table     string
	Requested int64
	Generated int64
	Dropped   int64 // rows whose non-nullable FK found no parent key to draw
	Skipped   bool  // covariance could not be stabilized
	Reason    string
}

// fkBinding is a resolved FK edge: which row positions to fill, from which
// parent store, and how the parent PK tuple maps onto them.
type fkBinding struct {
	colIdx   []int
	refPos   []int // position within the parent PK tuple, -1 if unservable
	parent   string
	nullable bool
	nullRate float64
	rng      *rand.Rand
}

// Run generates every table of the genome in topological order. The context
// is checked once per batch; on cancellation, accumulated state is discarded
// and the error returned. Rows already delivered to the sink stay the
// caller's concern.
func Run(ctx context.Context, cfg Config, out sink.Sink) ([]TableReport, error) {
	cat, err := cfg.Genome.Catalog()
	if err != nil {
		return nil, err
	}
	order, _, err := depgraph.Resolve(cat.Tables)
	if err != nil {
		return nil, err
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	root := randsrc.New(cfg.Seed)
	stores := make(map[string]*keystore.Store)
	reports := make([]TableReport, 0, len(order))

	for _, name := range order {
		gt := cfg.Genome.Tables[name]
		ct := cat.Table(name)

		rows := gt.RowCount
		if cfg.DefaultRows > 0 {
			rows = cfg.DefaultRows
		}
		if r, ok := cfg.Rows[name]; ok && r > 0 {
			rows = r
		}

		report, err := generateTable(ctx, cfg, root, cat, ct, gt, name, rows, batch, stores, out)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}

	return reports, nil
}

func generateTable(
	ctx context.Context,
	cfg Config,
	root randsrc.Root,
	cat *catalog.Catalog,
	ct *catalog.Table,
	gt *genome.Table,
	name string,
	rows int64,
	batch int,
	stores map[string]*keystore.Store,
	out sink.Sink,
) (TableReport, error) {
	report := TableReport{Table: name, Requested: rows}

	skip := ct.FKColumnSet()
	ts, err := sampler.New(name, gt, ct, root, sampler.Options{
		CholeskyEpsilonMax: cfg.CholeskyEpsilonMax,
		FillOther:          cfg.FillOther,
		Skip:               skip,
	})
	if err != nil {
		if errors.Is(err, sampler.ErrUnstable) {
			report.Skipped = true
			report.Reason = err.Error()
			return report, nil
		}
		return report, fmt.Errorf("table %s: %w", name, err)
	}

	fks := bindForeignKeys(name, ct, gt, cat, root)

	var pkIdx []int
	for _, pk := range ct.PrimaryKey {
		pkIdx = append(pkIdx, ct.ColumnIndex(pk))
	}
	var store *keystore.Store
	if len(pkIdx) > 0 {
		store = keystore.New(cfg.KeyStoreCapacity)
		stores[name] = store
	}

	writer, err := out.Table(ct, rows)
	if err != nil {
		return report, fmt.Errorf("opening sink for %s: %w", name, err)
	}

	pkBuf := make([]any, len(pkIdx))
	for r := int64(0); r < rows; r++ {
		if r%int64(batch) == 0 {
			select {
			case <-ctx.Done():
				writer.Close()
				return report, ctx.Err()
			default:
			}
			if cfg.Progress != nil {
				cfg.Progress(name, r, rows)
			}
		}

		row := ts.Row(nil)

		ok := true
		for _, fk := range fks {
			if !fillForeignKey(row, fk, stores) {
				report.Dropped++
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		if err := writer.WriteRow(row); err != nil {
			writer.Close()
			return report, fmt.Errorf("writing row for %s: %w", name, err)
		}
		report.Generated++

		if store != nil {
			for i, idx := range pkIdx {
				pkBuf[i] = row[idx]
			}
			store.Push(pkBuf)
		}
	}

	if err := writer.Close(); err != nil {
		return report, fmt.Errorf("closing sink for %s: %w", name, err)
	}
	if cfg.Progress != nil {
		cfg.Progress(name, rows, rows)
	}
	return report, nil
}

// bindForeignKeys resolves each FK edge against the catalog: row positions,
// parent PK tuple positions, nullability, and a dedicated substream.
func bindForeignKeys(name string, ct *catalog.Table, gt *genome.Table, cat *catalog.Catalog, root randsrc.Root) []fkBinding {
	var fks []fkBinding
	for k, fk := range ct.ForeignKeys {
		b := fkBinding{
			parent:   fk.RefTable,
			nullable: true,
			rng:      root.Stream(name, "fk", strconv.Itoa(k)),
		}
		for _, col := range fk.Columns {
			idx := ct.ColumnIndex(col)
			b.colIdx = append(b.colIdx, idx)
			if !ct.Columns[idx].Nullable {
				b.nullable = false
			}
		}
		if m := gt.Marginal(fk.Columns[0]); m != nil {
			b.nullRate = m.NullRate()
		}
		// Map each referenced column onto its position in the parent's PK
		// tuple. References outside the parent PK cannot be served by the
		// key store; those draws fall back to null or drop the row.
		parent := cat.Table(fk.RefTable)
		for _, ref := range fk.RefColumns {
			pos := -1
			for i, pk := range parent.PrimaryKey {
				if pk == ref {
					pos = i
					break
				}
			}
			b.refPos = append(b.refPos, pos)
		}
		fks = append(fks, b)
	}
	return fks
}

// fillForeignKey substitutes one FK edge's columns from the parent store.
// Returns false when the row must be dropped (non-nullable FK, no parent).
func fillForeignKey(row []any, fk fkBinding, stores map[string]*keystore.Store) bool {
	// Nullable FKs reproduce the profiled null rate before any lookup.
	if fk.nullable && fk.nullRate > 0 && fk.rng.Float64() < fk.nullRate {
		for _, idx := range fk.colIdx {
			row[idx] = nil
		}
		return true
	}

	store := stores[fk.parent]
	servable := store != nil
	for _, pos := range fk.refPos {
		if pos < 0 {
			servable = false
		}
	}
	var tuple []any
	if servable {
		tuple, servable = store.Draw(fk.rng)
	}

	if !servable {
		if fk.nullable {
			for _, idx := range fk.colIdx {
				row[idx] = nil
			}
			return true
		}
		return false
	}

	for i, idx := range fk.colIdx {
		row[idx] = tuple[fk.refPos[i]]
	}
	return true
}
