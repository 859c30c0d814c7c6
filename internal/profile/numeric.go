package profile

import (
	"math"
	"math/rand/v2"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
	"github.com/Pragadeesh-19/replica-db/internal/genome"
)

// NumericProfiler accumulates moments and a reservoir sample for one numeric
// column. Min/max/mean/variance come from Welford's online algorithm; the
// histogram is derived at finalize time from the reservoir, scaled back up
// to the observed count. Memory is bounded by the reservoir capacity.
type NumericProfiler struct {
	typ      catalog.LogicalType
	nullable bool
	bins     int

	count int64
	nulls int64
	min   float64
	max   float64
	mean  float64
	m2    float64

	res       *Reservoir
	finalized bool
}

func NewNumericProfiler(col catalog.Column, bins, reservoirSize int, rng *rand.Rand) *NumericProfiler {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	return &NumericProfiler{
		typ:      col.Type,
		nullable: col.Nullable,
		bins:     bins,
		min:      math.Inf(1),
		max:      math.Inf(-1),
		res:      NewReservoir(reservoirSize, rng),
	}
}

// Observe records one non-null value.
func (p *NumericProfiler) Observe(v float64) {
	p.count++
	if v < p.min {
		p.min = v
	}
	if v > p.max {
		p.max = v
	}
	delta := v - p.mean
	p.mean += delta / float64(p.count)
	p.m2 += delta * (v - p.mean)
	p.res.Observe(v)
}

// ObserveNull records a null.
func (p *NumericProfiler) ObserveNull() {
	p.nulls++
}

// Count returns the non-null observation count so far.
func (p *NumericProfiler) Count() int64 { return p.count }

// StdDev returns the running sample standard deviation.
func (p *NumericProfiler) StdDev() float64 {
	if p.count < 2 {
		return 0
	}
	return math.Sqrt(p.m2 / float64(p.count-1))
}

// Finalize freezes the accumulator into a marginal summary. Calling it twice
// is a programming error.
func (p *NumericProfiler) Finalize(name string) genome.Marginal {
	if p.finalized {
		panic("profile: numeric profiler finalized twice")
	}
	p.finalized = true

	m := genome.Marginal{
		Name:     name,
		Type:     p.typ,
		Kind:     genome.KindNumeric,
		Nullable: p.nullable,
		Count:    p.count,
		Nulls:    p.nulls,
	}
	if p.count == 0 {
		// Degenerate column: 100% null, no distribution to record.
		return m
	}

	m.Min = p.min
	m.Max = p.max
	m.Mean = p.mean
	if p.count > 1 {
		m.Variance = p.m2 / float64(p.count-1)
	}

	if p.min == p.max {
		m.Bins = []float64{float64(p.count)}
		return m
	}

	// Bin the reservoir sample over the final [min, max] range, then rescale
	// the counts so they sum to the true non-null count.
	sample := p.res.Values()
	bins := make([]float64, p.bins)
	width := (p.max - p.min) / float64(p.bins)
	for _, v := range sample {
		idx := int((v - p.min) / width)
		if idx >= p.bins {
			idx = p.bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		bins[idx]++
	}
	scale := float64(p.count) / float64(len(sample))
	for i := range bins {
		bins[i] *= scale
	}
	m.Bins = bins
	return m
}
