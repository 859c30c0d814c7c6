package sampler

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Pragadeesh-19/replica-db/internal/genome"
)

// ErrUnstable is returned when a covariance block cannot be factorized even
// at the regularization ceiling; generation for that table must be skipped.
var ErrUnstable = errors.New("covariance matrix is numerically unstable")

const choleskyEpsilonStart = 1e-8

// correlated drives the Gaussian copula for one table's covariance block.
// It holds the Cholesky factor L of the (regularized) covariance Σ and the
// per-column standard deviations σ; a draw produces z ~ N(0, I), y = Lz, and
// uniforms u_k = Φ(y_k / σ_k) for marginal inversion.
type correlated struct {
	cols  []string
	k     int
	l     []float64 // lower-triangular factor, row-major k×k
	sigma []float64
}

// newCorrelated stabilizes and factorizes the covariance block. ε·I is added
// starting at 1e-8 and grown ×10 until Cholesky succeeds or epsMax is passed.
func newCorrelated(cov *genome.Covariance, epsMax float64) (*correlated, error) {
	if epsMax <= 0 {
		epsMax = DefaultCholeskyEpsilonMax
	}
	k := len(cov.Columns)
	if k == 0 || len(cov.Matrix) != k*k {
		return nil, fmt.Errorf("covariance block over %d columns has %d entries", k, len(cov.Matrix))
	}

	eps := choleskyEpsilonStart
	for {
		sym := mat.NewSymDense(k, nil)
		for i := 0; i < k; i++ {
			for j := i; j < k; j++ {
				v := cov.At(i, j)
				if i == j {
					v += eps
				}
				sym.SetSym(i, j, v)
			}
		}

		var chol mat.Cholesky
		if chol.Factorize(sym) {
			var tri mat.TriDense
			chol.LTo(&tri)

			c := &correlated{
				cols:  cov.Columns,
				k:     k,
				l:     make([]float64, k*k),
				sigma: make([]float64, k),
			}
			for i := 0; i < k; i++ {
				c.sigma[i] = math.Sqrt(sym.At(i, i))
				for j := 0; j <= i; j++ {
					c.l[i*k+j] = tri.At(i, j)
				}
			}
			return c, nil
		}

		if eps >= epsMax {
			return nil, fmt.Errorf("%w: cholesky failed with regularization up to %g", ErrUnstable, epsMax)
		}
		eps *= 10
		if eps > epsMax {
			eps = epsMax
		}
	}
}

// uniforms fills u with one correlated draw. z and u must have length k.
func (c *correlated) uniforms(rng *rand.Rand, z, u []float64) {
	for i := range z {
		z[i] = rng.NormFloat64()
	}
	for i := 0; i < c.k; i++ {
		y := 0.0
		row := c.l[i*c.k:]
		for j := 0; j <= i; j++ {
			y += row[j] * z[j]
		}
		if c.sigma[i] > 0 {
			u[i] = distuv.UnitNormal.CDF(y / c.sigma[i])
		} else {
			u[i] = 0.5
		}
		if u[i] >= 1 {
			u[i] = math.Nextafter(1, 0)
		}
	}
}
