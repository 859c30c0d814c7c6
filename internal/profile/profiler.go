// Package profile builds genome tables from streamed rows. Every accumulator
// in this package holds a size-independent memory envelope: moments are
// online, histograms come from a bounded reservoir, frequency tables are
// pruned to O(K), and covariance keeps O(n²) running sums. Nothing here ever
// collects the row stream.
package profile

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
	"github.com/Pragadeesh-19/replica-db/internal/genome"
)

// Defaults for the profiling options.
const (
	DefaultHistogramBins     = 64
	DefaultCategoricalTopK   = 256
	DefaultReservoirSize     = 10_000
	DefaultCovarianceMinRows = 30
)

// Options bound the profiler's memory and resolution.
type Options struct {
	HistogramBins     int
	CategoricalTopK   int
	ReservoirSize     int
	CovarianceMinRows int
}

func (o Options) withDefaults() Options {
	if o.HistogramBins <= 0 {
		o.HistogramBins = DefaultHistogramBins
	}
	if o.CategoricalTopK <= 0 {
		o.CategoricalTopK = DefaultCategoricalTopK
	}
	if o.ReservoirSize <= 0 {
		o.ReservoirSize = DefaultReservoirSize
	}
	if o.CovarianceMinRows <= 0 {
		o.CovarianceMinRows = DefaultCovarianceMinRows
	}
	return o
}

// columnProfiler is a tagged variant over the three accumulator kinds.
// Exactly one pointer is set, matching kind.
type columnProfiler struct {
	kind genome.Kind
	num  *NumericProfiler
	cat  *CategoricalProfiler
	opq  *OpaqueProfiler
}

// TableProfiler owns one accumulator per column plus the covariance builder
// for the table's numeric columns. It has a single writer: Observe must not
// be called concurrently, and Finalize freezes it for good.
type TableProfiler struct {
	table *catalog.Table
	cols  []columnProfiler

	cov        *CovarianceBuilder
	numericIdx []int     // positions of numeric columns, in column order
	numericBuf []float64 // scratch complete-case vector

	rows      int64
	finalized bool
}

// NewTableProfiler creates empty accumulators for every column of t.
// rng feeds the per-column reservoirs.
func NewTableProfiler(t *catalog.Table, opts Options, rng *rand.Rand) *TableProfiler {
	opts = opts.withDefaults()

	tp := &TableProfiler{table: t}
	var numericNames []string
	for i, col := range t.Columns {
		switch {
		case col.Type.Numeric():
			tp.cols = append(tp.cols, columnProfiler{
				kind: genome.KindNumeric,
				num:  NewNumericProfiler(col, opts.HistogramBins, opts.ReservoirSize, rng),
			})
			tp.numericIdx = append(tp.numericIdx, i)
			numericNames = append(numericNames, col.Name)
		case col.Type.Categorical():
			tp.cols = append(tp.cols, columnProfiler{
				kind: genome.KindCategorical,
				cat:  NewCategoricalProfiler(col, opts.CategoricalTopK),
			})
		default:
			tp.cols = append(tp.cols, columnProfiler{
				kind: genome.KindOpaque,
				opq:  NewOpaqueProfiler(col),
			})
		}
	}
	if len(numericNames) > 0 {
		tp.cov = NewCovarianceBuilder(numericNames, opts.CovarianceMinRows)
		tp.numericBuf = make([]float64, len(numericNames))
	}
	return tp
}

// Observe folds one row into the accumulators. The row must be positional in
// the table's column order.
func (tp *TableProfiler) Observe(row []any) error {
	if len(row) != len(tp.cols) {
		return fmt.Errorf("table %s: row has %d values, expected %d", tp.table.Name, len(row), len(tp.cols))
	}
	tp.rows++

	complete := tp.cov != nil
	for pos, colIdx := range tp.numericIdx {
		v, ok := numericValue(row[colIdx])
		if !ok {
			complete = false
			continue
		}
		tp.numericBuf[pos] = v
	}

	for i, cp := range tp.cols {
		v := row[i]
		switch cp.kind {
		case genome.KindNumeric:
			if f, ok := numericValue(v); ok {
				cp.num.Observe(f)
			} else {
				cp.num.ObserveNull()
			}
		case genome.KindCategorical:
			if v == nil {
				cp.cat.ObserveNull()
			} else {
				cp.cat.Observe(categoricalValue(v))
			}
		default:
			if v == nil {
				cp.opq.ObserveNull()
			} else {
				cp.opq.Observe()
			}
		}
	}

	// Complete-case covariance update: all numeric columns non-null.
	if complete {
		tp.cov.Observe(tp.numericBuf)
	}
	return nil
}

// Finalize freezes every accumulator and assembles the genome table.
// Double-finalize is a programming error.
func (tp *TableProfiler) Finalize() *genome.Table {
	if tp.finalized {
		panic("profile: table profiler finalized twice")
	}
	tp.finalized = true

	gt := &genome.Table{
		PrimaryKey: tp.table.PrimaryKey,
		RowCount:   tp.rows,
	}
	for _, fk := range tp.table.ForeignKeys {
		gt.ForeignKeys = append(gt.ForeignKeys, genome.ForeignKey{
			Columns:    fk.Columns,
			RefTable:   fk.RefTable,
			RefColumns: fk.RefColumns,
		})
	}

	stddevs := make(map[string]float64)
	for i, cp := range tp.cols {
		name := tp.table.Columns[i].Name
		switch cp.kind {
		case genome.KindNumeric:
			m := cp.num.Finalize(name)
			if m.Count > 0 {
				stddevs[name] = cp.num.StdDev()
			}
			gt.Columns = append(gt.Columns, m)
		case genome.KindCategorical:
			gt.Columns = append(gt.Columns, cp.cat.Finalize(name))
		default:
			gt.Columns = append(gt.Columns, cp.opq.Finalize(name))
		}
	}

	if tp.cov != nil {
		gt.Covariance = tp.cov.Finalize(stddevs)
	}
	return gt
}

// numericValue coerces a source value to float64. Timestamps are modeled as
// integer epoch seconds.
func numericValue(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case time.Time:
		return float64(x.Unix()), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case []byte:
		f, err := strconv.ParseFloat(string(x), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// categoricalValue coerces a source value to its frequency-table key.
func categoricalValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
