package genome

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
)

func sampleGenome() *Genome {
	g := New()
	g.Tables["users"] = &Table{
		Columns: []Marginal{
			{Name: "id", Type: catalog.Integer, Kind: KindNumeric, Count: 1000, Min: 1, Max: 1000, Mean: 500.5, Variance: 83416.25, Bins: []float64{500, 500}},
			{Name: "email", Type: catalog.Text, Kind: KindCategorical, Nullable: true, Count: 990, Nulls: 10, Values: []ValueCount{{Value: "a@x.com", Count: 990}}},
		},
		PrimaryKey: []string{"id"},
		RowCount:   1000,
	}
	g.Tables["orders"] = &Table{
		Columns: []Marginal{
			{Name: "id", Type: catalog.Integer, Kind: KindNumeric, Count: 5000, Min: 1, Max: 5000, Bins: []float64{5000}},
			{Name: "user_id", Type: catalog.Integer, Kind: KindNumeric, Nullable: true, Count: 4900, Nulls: 100, Min: 1, Max: 1000, Bins: []float64{4900}},
			{Name: "total", Type: catalog.Real, Kind: KindNumeric, Nullable: true, Count: 5000, Min: 0, Max: 100, Bins: []float64{2500, 2500}},
		},
		Covariance: &Covariance{
			Columns: []string{"user_id", "total"},
			Matrix:  []float64{1, 0.5, 0.5, 2},
		},
		PrimaryKey: []string{"id"},
		ForeignKeys: []ForeignKey{
			{Columns: []string{"user_id"}, RefTable: "users", RefColumns: []string{"id"}},
		},
		RowCount: 5000,
	}
	return g
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	g := sampleGenome()
	var buf bytes.Buffer
	if err := g.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Version != FormatVersion {
		t.Errorf("version = %d, want %d", got.Version, FormatVersion)
	}
	orders := got.Tables["orders"]
	if orders == nil {
		t.Fatal("orders table missing after round trip")
	}
	if orders.RowCount != 5000 || len(orders.Columns) != 3 {
		t.Errorf("orders = %d rows, %d columns", orders.RowCount, len(orders.Columns))
	}
	if orders.Covariance.At(0, 1) != 0.5 {
		t.Errorf("covariance entry = %g, want 0.5", orders.Covariance.At(0, 1))
	}
	if got.Tables["users"].Marginal("email").NullRate() == 0 {
		t.Error("null rate lost in round trip")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genome.json")
	if err := sampleGenome().Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	g, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(g.Tables) != 2 {
		t.Errorf("loaded %d tables, want 2", len(g.Tables))
	}
}

func TestVersionMismatchFatal(t *testing.T) {
	g := sampleGenome()
	g.Version = FormatVersion + 1
	var buf bytes.Buffer
	if err := g.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err := Decode(&buf)
	if !errors.Is(err, ErrVersion) {
		t.Fatalf("err = %v, want ErrVersion", err)
	}
}

func TestCatalogReconstruction(t *testing.T) {
	cat, err := sampleGenome().Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	orders := cat.Table("orders")
	if orders == nil {
		t.Fatal("orders missing from catalog")
	}
	if got := orders.Columns[1]; got.Name != "user_id" || got.Type != catalog.Integer || !got.Nullable {
		t.Errorf("user_id column = %+v", got)
	}
	if len(orders.ForeignKeys) != 1 || orders.ForeignKeys[0].RefTable != "users" {
		t.Errorf("foreign keys = %+v", orders.ForeignKeys)
	}
	// Catalog reconstruction validates; a genome with a bad type must fail.
	g := sampleGenome()
	g.Tables["users"].Columns[0].Type = "varchar"
	if _, err := g.Catalog(); err == nil {
		t.Error("invalid logical type accepted")
	}
}

func TestTableNamesSorted(t *testing.T) {
	names := sampleGenome().TableNames()
	if len(names) != 2 || names[0] != "orders" || names[1] != "users" {
		t.Errorf("TableNames = %v, want sorted [orders users]", names)
	}
}
