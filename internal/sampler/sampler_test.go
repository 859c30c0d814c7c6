package sampler

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
	"github.com/Pragadeesh-19/replica-db/internal/genome"
	"github.com/Pragadeesh-19/replica-db/internal/profile"
	"github.com/Pragadeesh-19/replica-db/internal/randsrc"
)

// tableFor pairs a genome table with the catalog table the sampler needs.
func tableFor(gt *genome.Table) *catalog.Table {
	ct := &catalog.Table{Name: "t"}
	for _, m := range gt.Columns {
		ct.Columns = append(ct.Columns, catalog.Column{
			Name: m.Name, Type: m.Type, Nullable: m.Nullable,
		})
	}
	return ct
}

func uniformBins(n int, count float64) []float64 {
	bins := make([]float64, n)
	for i := range bins {
		bins[i] = count / float64(n)
	}
	return bins
}

func TestInvertBounds(t *testing.T) {
	ms := newMarginalSampler(&genome.Marginal{
		Name: "x", Type: catalog.Real, Kind: genome.KindNumeric,
		Count: 1000, Min: 10, Max: 20, Bins: uniformBins(64, 1000),
	})
	tests := []struct {
		name string
		u    float64
	}{
		{"zero", 0},
		{"middle", 0.5},
		{"near one", 0.999999},
		{"exactly one is clamped", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ms.invert(tt.u)
			if v < 10 || v > 20 {
				t.Errorf("invert(%g) = %g, outside [10, 20]", tt.u, v)
			}
		})
	}
	// The inverse CDF of a uniform histogram is linear.
	if v := ms.invert(0.5); math.Abs(v-15) > 0.01 {
		t.Errorf("invert(0.5) = %g, want ≈15", v)
	}
	if a, b := ms.invert(0.2), ms.invert(0.8); a >= b {
		t.Errorf("inverse CDF not monotonic: F⁻¹(0.2)=%g ≥ F⁻¹(0.8)=%g", a, b)
	}
}

func TestNumericTyping(t *testing.T) {
	intM := newMarginalSampler(&genome.Marginal{
		Name: "n", Type: catalog.Integer, Kind: genome.KindNumeric,
		Count: 100, Min: 1, Max: 5, Bins: uniformBins(4, 100),
	})
	if _, ok := intM.numericFromUniform(0.3).(int64); !ok {
		t.Error("integer column did not produce int64")
	}

	tsM := newMarginalSampler(&genome.Marginal{
		Name: "at", Type: catalog.Timestamp, Kind: genome.KindNumeric,
		Count: 100, Min: 1.6e9, Max: 1.7e9, Bins: uniformBins(4, 100),
	})
	ts, ok := tsM.numericFromUniform(0.5).(time.Time)
	if !ok {
		t.Fatal("timestamp column did not produce time.Time")
	}
	if ts.Unix() < 1.6e9 || ts.Unix() > 1.7e9 {
		t.Errorf("timestamp %v outside profiled range", ts)
	}
}

// A profiled discrete distribution must resample with each value's frequency
// preserved and no values invented outside the observed range.
func TestDiscreteResampleFrequencies(t *testing.T) {
	ct := &catalog.Table{Name: "t", Columns: []catalog.Column{
		{Name: "v", Type: catalog.Integer, Nullable: true},
	}}
	tp := profile.NewTableProfiler(ct, profile.Options{}, randsrc.New(1).Stream("p"))
	for i := 0; i < 200; i++ {
		for v := int64(1); v <= 5; v++ {
			tp.Observe([]any{v})
		}
	}
	gt := tp.Finalize()

	s, err := New("t", gt, ct, randsrc.New(42), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	counts := make(map[int64]int)
	for i := 0; i < 10_000; i++ {
		row := s.Row(nil)
		v, ok := row[0].(int64)
		if !ok {
			t.Fatalf("row %d: value %v is not int64", i, row[0])
		}
		if v < 1 || v > 5 {
			t.Fatalf("generated %d, outside observed range [1, 5]", v)
		}
		counts[v]++
	}
	for v := int64(1); v <= 5; v++ {
		if counts[v] < 1800 || counts[v] > 2200 {
			t.Errorf("value %d drawn %d times, want within [1800, 2200]", v, counts[v])
		}
	}
}

func TestCategoricalFrequencies(t *testing.T) {
	gt := &genome.Table{Columns: []genome.Marginal{{
		Name: "status", Type: catalog.Text, Kind: genome.KindCategorical,
		Count: 10_000,
		Values: []genome.ValueCount{
			{Value: "A", Count: 5000},
			{Value: "B", Count: 3000},
			{Value: "C", Count: 2000},
		},
	}}}
	s, err := New("t", gt, tableFor(gt), randsrc.New(1), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const n = 100_000
	counts := make(map[string]int)
	for i := 0; i < n; i++ {
		counts[s.Row(nil)[0].(string)]++
	}
	want := map[string]float64{"A": 0.5, "B": 0.3, "C": 0.2}
	for v, p := range want {
		got := float64(counts[v]) / n
		if math.Abs(got-p) > 0.01 {
			t.Errorf("frequency of %s = %.4f, want %.2f ± 0.01", v, got, p)
		}
	}
}

func TestOtherBucketNullByDefault(t *testing.T) {
	gt := &genome.Table{Columns: []genome.Marginal{{
		Name: "city", Type: catalog.Text, Kind: genome.KindCategorical, Nullable: true,
		Count:  1000,
		Values: []genome.ValueCount{{Value: "oslo", Count: 100}},
		Other:  900,
	}}}
	s, err := New("t", gt, tableFor(gt), randsrc.New(3), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	nulls := 0
	for i := 0; i < 1000; i++ {
		if s.Row(nil)[0] == nil {
			nulls++
		}
	}
	// ~90% of draws land in the other bucket and resolve to null.
	if nulls < 800 {
		t.Errorf("only %d/1000 nulls from the other bucket", nulls)
	}
}

func TestOtherBucketFilled(t *testing.T) {
	gt := &genome.Table{Columns: []genome.Marginal{{
		Name: "city", Type: catalog.Text, Kind: genome.KindCategorical, Nullable: true,
		Count:  1000,
		Values: []genome.ValueCount{{Value: "oslo", Count: 100}},
		Other:  900,
	}}}
	s, err := New("t", gt, tableFor(gt), randsrc.New(3), Options{FillOther: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	filled := 0
	for i := 0; i < 1000; i++ {
		v := s.Row(nil)[0]
		if str, ok := v.(string); ok && str != "oslo" && str != "" {
			filled++
		}
	}
	if filled < 500 {
		t.Errorf("only %d/1000 draws produced filler text", filled)
	}
}

func TestAllNullColumn(t *testing.T) {
	gt := &genome.Table{Columns: []genome.Marginal{{
		Name: "dead", Type: catalog.Real, Kind: genome.KindNumeric, Nullable: true,
		Count: 0, Nulls: 1000,
	}}}
	s, err := New("t", gt, tableFor(gt), randsrc.New(4), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 1000; i++ {
		if v := s.Row(nil)[0]; v != nil {
			t.Fatalf("100%%-null column produced %v", v)
		}
	}
}

func TestOpaqueEmitsNull(t *testing.T) {
	gt := &genome.Table{Columns: []genome.Marginal{{
		Name: "blob", Type: catalog.Opaque, Kind: genome.KindOpaque, Count: 500, Nulls: 0,
	}}}
	s, err := New("t", gt, tableFor(gt), randsrc.New(5), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if v := s.Row(nil)[0]; v != nil {
		t.Errorf("opaque column produced %v, want null", v)
	}
}

// Correlation fidelity: rows generated through the copula must reproduce the
// profiled Pearson correlation within ±0.02.
func TestCopulaCorrelationFidelity(t *testing.T) {
	tests := []struct {
		name string
		rho  float64
	}{
		{"rho=0.9", 0.9},
		{"rho=0", 0.0},
		{"rho=-0.9", -0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := &catalog.Table{Name: "geo", Columns: []catalog.Column{
				{Name: "lat", Type: catalog.Real},
				{Name: "lon", Type: catalog.Real},
			}}
			tp := profile.NewTableProfiler(ct, profile.Options{}, randsrc.New(21).Stream("res"))
			rng := randsrc.New(22).Stream("input")
			for i := 0; i < 50_000; i++ {
				z1 := rng.NormFloat64()
				z2 := tt.rho*z1 + math.Sqrt(1-tt.rho*tt.rho)*rng.NormFloat64()
				tp.Observe([]any{40 + 5*z1, -70 + 3*z2})
			}
			gt := tp.Finalize()

			profiled := gt.Covariance.At(0, 1) /
				math.Sqrt(gt.Covariance.At(0, 0)*gt.Covariance.At(1, 1))

			s, err := New("geo", gt, ct, randsrc.New(7), Options{})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			const n = 100_000
			lats := make([]float64, n)
			lons := make([]float64, n)
			for i := 0; i < n; i++ {
				row := s.Row(nil)
				lats[i] = row[0].(float64)
				lons[i] = row[1].(float64)
			}

			got := pearson(lats, lons)
			if math.Abs(got-profiled) > 0.02 {
				t.Errorf("generated ρ = %.4f, profiled ρ = %.4f (Δ > 0.02)", got, profiled)
			}

			// Marginals must hold up too.
			if mean := average(lats); math.Abs(mean-40) > 0.8 {
				t.Errorf("lat mean = %.3f, want ≈40", mean)
			}
		})
	}
}

func TestDeterminism(t *testing.T) {
	gt := &genome.Table{
		Columns: []genome.Marginal{
			{Name: "x", Type: catalog.Real, Kind: genome.KindNumeric, Nullable: true,
				Count: 900, Nulls: 100, Min: 0, Max: 1, Bins: uniformBins(8, 900)},
			{Name: "s", Type: catalog.Text, Kind: genome.KindCategorical,
				Count: 1000, Values: []genome.ValueCount{{Value: "a", Count: 600}, {Value: "b", Count: 400}}},
		},
	}
	mk := func(seed uint64) [][]any {
		s, err := New("t", gt, tableFor(gt), randsrc.New(seed), Options{})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		rows := make([][]any, 500)
		for i := range rows {
			rows[i] = s.Row(nil)
		}
		return rows
	}

	a, b := mk(42), mk(42)
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("row %d col %d differs under the same seed: %v vs %v", i, j, a[i][j], b[i][j])
			}
		}
	}

	c := mk(43)
	same := 0
	for i := range a {
		if a[i][0] == c[i][0] {
			same++
		}
	}
	if same == len(a) {
		t.Error("different seeds produced identical output")
	}
}

func TestCholeskyUnstableFatal(t *testing.T) {
	gt := &genome.Table{
		Columns: []genome.Marginal{
			{Name: "x", Type: catalog.Real, Kind: genome.KindNumeric, Count: 100, Min: 0, Max: 1, Bins: uniformBins(4, 100)},
			{Name: "y", Type: catalog.Real, Kind: genome.KindNumeric, Count: 100, Min: 0, Max: 1, Bins: uniformBins(4, 100)},
		},
		// |off-diagonal| far beyond what the diagonal allows: not PSD, and
		// no ε within the ceiling can repair it.
		Covariance: &genome.Covariance{
			Columns: []string{"x", "y"},
			Matrix:  []float64{1, 2, 2, 1},
		},
	}
	_, err := New("t", gt, tableFor(gt), randsrc.New(1), Options{})
	if !errors.Is(err, ErrUnstable) {
		t.Fatalf("err = %v, want ErrUnstable", err)
	}
}

func TestStabilizationRepairsNearPSD(t *testing.T) {
	// Perfectly correlated block: singular but repairable with tiny ε.
	gt := &genome.Table{
		Columns: []genome.Marginal{
			{Name: "x", Type: catalog.Real, Kind: genome.KindNumeric, Count: 100, Min: 0, Max: 1, Bins: uniformBins(4, 100)},
			{Name: "y", Type: catalog.Real, Kind: genome.KindNumeric, Count: 100, Min: 0, Max: 1, Bins: uniformBins(4, 100)},
		},
		Covariance: &genome.Covariance{
			Columns: []string{"x", "y"},
			Matrix:  []float64{1, 1, 1, 1},
		},
	}
	s, err := New("t", gt, tableFor(gt), randsrc.New(1), Options{})
	if err != nil {
		t.Fatalf("singular covariance not repaired: %v", err)
	}
	row := s.Row(nil)
	a, b := row[0].(float64), row[1].(float64)
	if a < 0 || a > 1 || b < 0 || b > 1 {
		t.Errorf("values %g, %g outside marginal range", a, b)
	}
}

func TestSkippedColumnsEmitNil(t *testing.T) {
	gt := &genome.Table{Columns: []genome.Marginal{
		{Name: "id", Type: catalog.Integer, Kind: genome.KindNumeric, Count: 100, Min: 1, Max: 100, Bins: uniformBins(4, 100)},
		{Name: "user_id", Type: catalog.Integer, Kind: genome.KindNumeric, Count: 100, Min: 1, Max: 50, Bins: uniformBins(4, 100)},
	}}
	s, err := New("t", gt, tableFor(gt), randsrc.New(9), Options{Skip: map[int]bool{1: true}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	row := s.Row(nil)
	if row[1] != nil {
		t.Errorf("skipped column = %v, want nil placeholder", row[1])
	}
	if row[0] == nil {
		t.Error("unskipped column came back nil")
	}
}

func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	var sx, sy, sxx, syy, sxy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
		sxx += xs[i] * xs[i]
		syy += ys[i] * ys[i]
		sxy += xs[i] * ys[i]
	}
	return (sxy - sx*sy/n) / math.Sqrt((sxx-sx*sx/n)*(syy-sy*sy/n))
}

func average(xs []float64) float64 {
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}
