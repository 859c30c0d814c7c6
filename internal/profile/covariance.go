package profile

import (
	"math"

	"github.com/Pragadeesh-19/replica-db/internal/genome"
)

// CovarianceBuilder estimates the pairwise Pearson correlation over a table's
// numeric columns from running sums, then converts it to a covariance matrix
// using the finalized per-column standard deviations. Only complete cases
// (rows where every participating column is non-null) update the sums.
// Memory is O(n²) in the numeric column count, independent of row count.
type CovarianceBuilder struct {
	names   []string
	n       int
	rows    int64 // complete-case rows used
	minRows int

	sum   []float64 // Σx per column
	sumSq []float64 // Σx² per column
	prod  []float64 // Σxy per unordered pair, upper triangle row-major
}

func NewCovarianceBuilder(names []string, minRows int) *CovarianceBuilder {
	if minRows <= 0 {
		minRows = DefaultCovarianceMinRows
	}
	n := len(names)
	return &CovarianceBuilder{
		names:   names,
		n:       n,
		minRows: minRows,
		sum:     make([]float64, n),
		sumSq:   make([]float64, n),
		prod:    make([]float64, n*n),
	}
}

// Observe folds one complete row of numeric values into the sums. The caller
// must pass values for every tracked column; rows with any null are skipped
// upstream.
func (b *CovarianceBuilder) Observe(vals []float64) {
	b.rows++
	for i, v := range vals {
		b.sum[i] += v
		b.sumSq[i] += v * v
		for j := i + 1; j < b.n; j++ {
			b.prod[i*b.n+j] += v * vals[j]
		}
	}
}

// Rows returns the complete-case row count used so far.
func (b *CovarianceBuilder) Rows() int64 { return b.rows }

// correlation returns the Pearson correlation of columns i and j, or 0 when
// either column has no spread over the complete-case rows.
func (b *CovarianceBuilder) correlation(i, j int) float64 {
	m := float64(b.rows)
	covXY := b.prod[i*b.n+j] - b.sum[i]*b.sum[j]/m
	varX := b.sumSq[i] - b.sum[i]*b.sum[i]/m
	varY := b.sumSq[j] - b.sum[j]*b.sum[j]/m
	if varX <= 0 || varY <= 0 {
		return 0
	}
	r := covXY / math.Sqrt(varX*varY)
	// Running sums can push |r| epsilon past 1.
	if r > 1 {
		r = 1
	}
	if r < -1 {
		r = -1
	}
	return r
}

// Finalize computes the covariance block. stddevs maps column name to the
// finalized marginal standard deviation; columns with zero variance (or zero
// observations) are dropped from the block and sampled from their marginal
// alone. Below the minimum row count, or with fewer than two surviving
// columns, correlations collapse to identity (a diagonal covariance).
func (b *CovarianceBuilder) Finalize(stddevs map[string]float64) *genome.Covariance {
	var keep []int
	for i, name := range b.names {
		if sd, ok := stddevs[name]; ok && sd > 0 {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil
	}

	k := len(keep)
	cols := make([]string, k)
	for i, idx := range keep {
		cols[i] = b.names[idx]
	}

	identity := b.rows < int64(b.minRows) || k < 2

	matrix := make([]float64, k*k)
	for a := 0; a < k; a++ {
		sdA := stddevs[cols[a]]
		matrix[a*k+a] = sdA * sdA
		for c := a + 1; c < k; c++ {
			var r float64
			if !identity {
				i, j := keep[a], keep[c]
				if i > j {
					i, j = j, i
				}
				r = b.correlation(i, j)
			}
			cov := r * sdA * stddevs[cols[c]]
			matrix[a*k+c] = cov
			matrix[c*k+a] = cov
		}
	}

	return &genome.Covariance{Columns: cols, Matrix: matrix}
}
