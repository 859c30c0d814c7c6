package profile

import (
	"math"
	"testing"
	"time"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
	"github.com/Pragadeesh-19/replica-db/internal/genome"
	"github.com/Pragadeesh-19/replica-db/internal/randsrc"
)

func intCol(name string) catalog.Column {
	return catalog.Column{Name: name, Type: catalog.Integer, Nullable: true}
}

func realCol(name string) catalog.Column {
	return catalog.Column{Name: name, Type: catalog.Real, Nullable: true}
}

func textCol(name string) catalog.Column {
	return catalog.Column{Name: name, Type: catalog.Text, Nullable: true}
}

func profileRows(t *testing.T, ct *catalog.Table, rows [][]any) *genome.Table {
	t.Helper()
	tp := NewTableProfiler(ct, Options{}, randsrc.New(1).Stream("test", ct.Name))
	for _, row := range rows {
		if err := tp.Observe(row); err != nil {
			t.Fatalf("Observe: %v", err)
		}
	}
	return tp.Finalize()
}

func TestNumericMarginalInvariants(t *testing.T) {
	ct := &catalog.Table{Name: "t", Columns: []catalog.Column{realCol("x")}}
	var rows [][]any
	for i := 0; i < 10_000; i++ {
		rows = append(rows, []any{float64(i % 500)})
	}
	for i := 0; i < 300; i++ {
		rows = append(rows, []any{nil})
	}

	gt := profileRows(t, ct, rows)
	m := gt.Marginal("x")

	if m.Count != 10_000 || m.Nulls != 300 {
		t.Fatalf("count=%d nulls=%d, want 10000/300", m.Count, m.Nulls)
	}
	if m.Min != 0 || m.Max != 499 {
		t.Errorf("min=%g max=%g, want 0/499", m.Min, m.Max)
	}

	// Histogram counts must sum to the non-null count within the reservoir
	// scaling tolerance (≤ 1%).
	var binSum float64
	for _, b := range m.Bins {
		binSum += b
	}
	if math.Abs(binSum-float64(m.Count))/float64(m.Count) > 0.01 {
		t.Errorf("bin sum %.1f deviates from count %d by more than 1%%", binSum, m.Count)
	}

	wantMean := 249.5
	if math.Abs(m.Mean-wantMean) > 1 {
		t.Errorf("mean = %.2f, want ≈%.1f", m.Mean, wantMean)
	}
}

func TestNumericDegenerateSingleBin(t *testing.T) {
	ct := &catalog.Table{Name: "t", Columns: []catalog.Column{intCol("k")}}
	var rows [][]any
	for i := 0; i < 100; i++ {
		rows = append(rows, []any{int64(7)})
	}
	m := profileRows(t, ct, rows).Marginal("k")
	if len(m.Bins) != 1 || m.Bins[0] != 100 {
		t.Errorf("bins = %v, want single bin holding the full count", m.Bins)
	}
	if m.Min != 7 || m.Max != 7 {
		t.Errorf("min/max = %g/%g, want 7/7", m.Min, m.Max)
	}
}

func TestAllNullColumn(t *testing.T) {
	ct := &catalog.Table{Name: "t", Columns: []catalog.Column{intCol("v"), realCol("w")}}
	var rows [][]any
	for i := 0; i < 1000; i++ {
		rows = append(rows, []any{nil, float64(i)})
	}
	gt := profileRows(t, ct, rows)

	m := gt.Marginal("v")
	if m.Count != 0 || m.Nulls != 1000 {
		t.Fatalf("count=%d nulls=%d, want 0/1000", m.Count, m.Nulls)
	}
	if m.NullRate() != 1 {
		t.Errorf("NullRate = %g, want 1", m.NullRate())
	}
	// Degenerate columns are excluded from the covariance block.
	if gt.Covariance != nil {
		if gt.Covariance.Index("v") >= 0 {
			t.Error("degenerate column present in covariance block")
		}
	}
}

func TestCategoricalExactConservation(t *testing.T) {
	ct := &catalog.Table{Name: "t", Columns: []catalog.Column{textCol("status")}}
	var rows [][]any
	counts := map[string]int{"active": 500, "inactive": 300, "banned": 200}
	for v, n := range counts {
		for i := 0; i < n; i++ {
			rows = append(rows, []any{v})
		}
	}
	for i := 0; i < 50; i++ {
		rows = append(rows, []any{nil})
	}

	m := profileRows(t, ct, rows).Marginal("status")
	if m.Count != 1000 || m.Nulls != 50 {
		t.Fatalf("count=%d nulls=%d, want 1000/50", m.Count, m.Nulls)
	}
	var sum int64
	for _, vc := range m.Values {
		sum += vc.Count
		if int64(counts[vc.Value]) != vc.Count {
			t.Errorf("%s = %d, want %d", vc.Value, vc.Count, counts[vc.Value])
		}
	}
	if sum+m.Other != m.Count {
		t.Errorf("frequencies (%d) + other (%d) != count (%d)", sum, m.Other, m.Count)
	}
}

func TestCategoricalTopKPruning(t *testing.T) {
	ct := &catalog.Table{Name: "t", Columns: []catalog.Column{textCol("tag")}}
	tp := NewTableProfiler(ct, Options{CategoricalTopK: 8}, randsrc.New(1).Stream("p"))

	// Head values dominate; a long tail of singletons forces pruning.
	for i := 0; i < 8; i++ {
		for j := 0; j < 100*(8-i); j++ {
			tp.Observe([]any{"head" + string(rune('a'+i))})
		}
	}
	total := int64(0)
	for i := 0; i < 8; i++ {
		total += int64(100 * (8 - i))
	}
	for i := 0; i < 500; i++ {
		tp.Observe([]any{"tail" + string(rune('0'+i%10)) + string(rune('a'+i/10))})
		total++
	}

	m := tp.Finalize().Marginal("tag")
	if len(m.Values) > 8 {
		t.Fatalf("kept %d values, want ≤ top-K 8", len(m.Values))
	}
	var sum int64
	for _, vc := range m.Values {
		sum += vc.Count
	}
	if sum+m.Other != total {
		t.Errorf("frequencies (%d) + other (%d) != observed (%d)", sum, m.Other, total)
	}
	// The dominant head values must have survived pruning.
	if m.Values[0].Value != "heada" || m.Values[0].Count != 800 {
		t.Errorf("top value = %+v, want heada×800", m.Values[0])
	}
}

// Marginal fidelity: profiling a normal stream must recover the true mean and
// standard deviation within 2%, and the mean reconstructed from the
// histogram bins must also lie within 2% of the true mean.
func TestMarginalFidelityMoments(t *testing.T) {
	const (
		n     = 100_000
		mu    = 100.0
		sigma = 15.0
	)
	rng := randsrc.New(7).Stream("normal")
	ct := &catalog.Table{Name: "t", Columns: []catalog.Column{realCol("x")}}
	tp := NewTableProfiler(ct, Options{}, randsrc.New(8).Stream("res"))
	for i := 0; i < n; i++ {
		tp.Observe([]any{mu + sigma*rng.NormFloat64()})
	}
	m := tp.Finalize().Marginal("x")

	if math.Abs(m.Mean-mu)/mu > 0.02 {
		t.Errorf("profiled mean %.2f deviates from %.0f by more than 2%%", m.Mean, mu)
	}
	if sd := math.Sqrt(m.Variance); math.Abs(sd-sigma)/sigma > 0.02 {
		t.Errorf("profiled stddev %.2f deviates from %.0f by more than 2%%", sd, sigma)
	}

	// Reconstruct moments from the histogram itself (bin midpoints).
	var wsum, total float64
	width := (m.Max - m.Min) / float64(len(m.Bins))
	for i, c := range m.Bins {
		mid := m.Min + (float64(i)+0.5)*width
		wsum += mid * c
		total += c
	}
	histMean := wsum / total
	if math.Abs(histMean-mu)/mu > 0.02 {
		t.Errorf("histogram mean %.2f deviates from %.0f by more than 2%%", histMean, mu)
	}
}

func TestTimestampsModeledAsEpoch(t *testing.T) {
	ct := &catalog.Table{Name: "t", Columns: []catalog.Column{
		{Name: "at", Type: catalog.Timestamp, Nullable: true},
	}}
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	var rows [][]any
	for i := 0; i < 100; i++ {
		rows = append(rows, []any{base.Add(time.Duration(i) * time.Hour)})
	}
	m := profileRows(t, ct, rows).Marginal("at")
	if m.Kind != genome.KindNumeric {
		t.Fatalf("timestamp profiled as %s, want numeric", m.Kind)
	}
	if int64(m.Min) != base.Unix() {
		t.Errorf("min = %d, want %d", int64(m.Min), base.Unix())
	}
	if int64(m.Max) != base.Add(99*time.Hour).Unix() {
		t.Errorf("max = %d, want %d", int64(m.Max), base.Add(99*time.Hour).Unix())
	}
}

func TestDoubleFinalizePanics(t *testing.T) {
	ct := &catalog.Table{Name: "t", Columns: []catalog.Column{intCol("x")}}
	tp := NewTableProfiler(ct, Options{}, randsrc.New(1).Stream("p"))
	tp.Observe([]any{int64(1)})
	tp.Finalize()
	defer func() {
		if recover() == nil {
			t.Error("second Finalize did not panic")
		}
	}()
	tp.Finalize()
}

func TestRowLengthMismatch(t *testing.T) {
	ct := &catalog.Table{Name: "t", Columns: []catalog.Column{intCol("x"), intCol("y")}}
	tp := NewTableProfiler(ct, Options{}, randsrc.New(1).Stream("p"))
	if err := tp.Observe([]any{int64(1)}); err == nil {
		t.Error("short row accepted")
	}
}
