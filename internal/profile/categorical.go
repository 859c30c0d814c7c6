package profile

import (
	"sort"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
	"github.com/Pragadeesh-19/replica-db/internal/genome"
)

// CategoricalProfiler maintains a bounded frequency table for one text or
// boolean column. The map is pruned whenever it exceeds 4×K entries: the top
// 2×K survive and the discarded mass moves to the "other" bucket, so memory
// stays O(K) no matter how many distinct values the stream carries.
type CategoricalProfiler struct {
	typ      catalog.LogicalType
	nullable bool
	topK     int

	count  int64
	nulls  int64
	counts map[string]int64
	other  int64

	finalized bool
}

func NewCategoricalProfiler(col catalog.Column, topK int) *CategoricalProfiler {
	if topK <= 0 {
		topK = DefaultCategoricalTopK
	}
	return &CategoricalProfiler{
		typ:      col.Type,
		nullable: col.Nullable,
		topK:     topK,
		counts:   make(map[string]int64),
	}
}

// Observe records one non-null value.
func (p *CategoricalProfiler) Observe(v string) {
	p.count++
	p.counts[v]++
	if len(p.counts) > 4*p.topK {
		p.prune(2 * p.topK)
	}
}

// ObserveNull records a null.
func (p *CategoricalProfiler) ObserveNull() {
	p.nulls++
}

// prune keeps the keep highest-count entries; the rest accumulate into other.
func (p *CategoricalProfiler) prune(keep int) {
	entries := p.sorted()
	for _, e := range entries[keep:] {
		p.other += e.Count
		delete(p.counts, e.Value)
	}
}

func (p *CategoricalProfiler) sorted() []genome.ValueCount {
	entries := make([]genome.ValueCount, 0, len(p.counts))
	for v, c := range p.counts {
		entries = append(entries, genome.ValueCount{Value: v, Count: c})
	}
	// Sort by count descending, value ascending for a stable order.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Value < entries[j].Value
	})
	return entries
}

// Finalize truncates to the top K values plus the aggregated other bucket.
func (p *CategoricalProfiler) Finalize(name string) genome.Marginal {
	if p.finalized {
		panic("profile: categorical profiler finalized twice")
	}
	p.finalized = true

	entries := p.sorted()
	if len(entries) > p.topK {
		for _, e := range entries[p.topK:] {
			p.other += e.Count
		}
		entries = entries[:p.topK]
	}

	return genome.Marginal{
		Name:     name,
		Type:     p.typ,
		Kind:     genome.KindCategorical,
		Nullable: p.nullable,
		Count:    p.count,
		Nulls:    p.nulls,
		Values:   entries,
		Other:    p.other,
	}
}

// OpaqueProfiler counts presence and nulls for columns the system does not
// model; generation emits null for them.
type OpaqueProfiler struct {
	nullable  bool
	count     int64
	nulls     int64
	finalized bool
}

func NewOpaqueProfiler(col catalog.Column) *OpaqueProfiler {
	return &OpaqueProfiler{nullable: col.Nullable}
}

func (p *OpaqueProfiler) Observe()     { p.count++ }
func (p *OpaqueProfiler) ObserveNull() { p.nulls++ }

func (p *OpaqueProfiler) Finalize(name string) genome.Marginal {
	if p.finalized {
		panic("profile: opaque profiler finalized twice")
	}
	p.finalized = true
	return genome.Marginal{
		Name:     name,
		Type:     catalog.Opaque,
		Kind:     genome.KindOpaque,
		Nullable: p.nullable,
		Count:    p.count,
		Nulls:    p.nulls,
	}
}
