// Package sampler turns genome marginals and covariance blocks back into
// values. Marginal draws invert the profiled histogram or frequency table;
// the correlated sampler drives numeric columns through a Gaussian copula so
// the profiled Pearson structure survives generation.
package sampler

import (
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"time"

	"github.com/Pragadeesh-19/replica-db/internal/genome"
)

// otherValue marks a categorical draw that landed in the aggregated "other"
// bucket. It resolves to null unless a filler is configured.
type otherValue struct{}

// marginalSampler inverts one column's marginal. It is a tagged variant over
// the three kinds; the hot path branches on kind, not through an interface.
type marginalSampler struct {
	kind     genome.Kind
	typ      genome.Marginal
	nullRate float64

	// numeric: normalized cumulative histogram over [min, max]
	cdf   []float64
	min   float64
	width float64

	// categorical: normalized cumulative frequency table
	values   []string
	catCDF   []float64
	otherIdx int // position in catCDF representing the other bucket, -1 if none
}

func newMarginalSampler(m *genome.Marginal) *marginalSampler {
	ms := &marginalSampler{
		kind:     m.Kind,
		typ:      *m,
		nullRate: m.NullRate(),
		otherIdx: -1,
	}
	if m.Count == 0 {
		// Degenerate column: everything observed was null.
		ms.nullRate = 1
		return ms
	}

	switch m.Kind {
	case genome.KindNumeric:
		ms.min = m.Min
		if len(m.Bins) > 1 {
			ms.width = (m.Max - m.Min) / float64(len(m.Bins))
		}
		total := 0.0
		for _, c := range m.Bins {
			total += c
		}
		if total > 0 {
			ms.cdf = make([]float64, len(m.Bins))
			cum := 0.0
			for i, c := range m.Bins {
				cum += c
				ms.cdf[i] = cum / total
			}
		}
	case genome.KindCategorical:
		n := len(m.Values)
		if m.Other > 0 {
			n++
		}
		ms.values = make([]string, 0, n)
		weights := make([]float64, 0, n)
		for _, vc := range m.Values {
			ms.values = append(ms.values, vc.Value)
			weights = append(weights, float64(vc.Count))
		}
		if m.Other > 0 {
			ms.otherIdx = len(ms.values)
			ms.values = append(ms.values, "")
			weights = append(weights, float64(m.Other))
		}
		total := 0.0
		for _, w := range weights {
			total += w
		}
		ms.catCDF = make([]float64, len(weights))
		cum := 0.0
		for i, w := range weights {
			cum += w
			ms.catCDF[i] = cum / total
		}
	}
	return ms
}

// invert maps a uniform u ∈ [0,1) through the histogram's inverse CDF:
// binary-search for the bin, then interpolate linearly inside it.
func (ms *marginalSampler) invert(u float64) float64 {
	if u >= 1 {
		u = math.Nextafter(1, 0)
	}
	if u < 0 {
		u = 0
	}
	if len(ms.cdf) == 0 || ms.width == 0 {
		// Single-bin or point distribution.
		return ms.min
	}
	idx := sort.SearchFloat64s(ms.cdf, u)
	if idx >= len(ms.cdf) {
		idx = len(ms.cdf) - 1
	}
	lo := 0.0
	if idx > 0 {
		lo = ms.cdf[idx-1]
	}
	frac := 0.0
	if span := ms.cdf[idx] - lo; span > 0 {
		frac = (u - lo) / span
	}
	return ms.min + (float64(idx)+frac)*ms.width
}

// numericFromUniform inverts u and converts to the column's value type.
func (ms *marginalSampler) numericFromUniform(u float64) any {
	v := ms.invert(u)
	switch ms.typ.Type {
	case "integer":
		return int64(math.Round(v))
	case "timestamp":
		return time.Unix(int64(math.Round(v)), 0).UTC()
	default:
		return v
	}
}

// drawCategorical samples a bucket proportional to its count. The other
// bucket resolves to otherValue{} for the caller to map.
func (ms *marginalSampler) drawCategorical(rng *rand.Rand) any {
	idx := sort.SearchFloat64s(ms.catCDF, rng.Float64())
	if idx >= len(ms.catCDF) {
		idx = len(ms.catCDF) - 1
	}
	if idx == ms.otherIdx {
		return otherValue{}
	}
	return ms.categoricalTyped(ms.values[idx])
}

func (ms *marginalSampler) categoricalTyped(s string) any {
	if ms.typ.Type == "boolean" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return s
		}
		return b
	}
	return s
}
