// Package genome defines the statistical artifact a profiling run produces:
// per-table, per-column marginal summaries, the numeric covariance block,
// primary keys, FK edges, and observed row counts. A genome contains no
// source rows; it is serialized as a versioned JSON document.
package genome

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
)

// FormatVersion is written into every genome; loading any other version fails.
const FormatVersion = 1

// ErrVersion is returned when a genome was written by an incompatible version.
var ErrVersion = errors.New("incompatible genome format version")

// Kind tags the marginal variant.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
	KindOpaque      Kind = "opaque"
)

// ValueCount is one bucket of a categorical frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Marginal is the univariate summary of one column. Numeric fields are only
// meaningful for KindNumeric, Values/Other only for KindCategorical.
// Timestamps are recorded in integer epoch seconds.
type Marginal struct {
	Name     string              `json:"name"`
	Type     catalog.LogicalType `json:"type"`
	Kind     Kind                `json:"kind"`
	Nullable bool                `json:"nullable"`
	Count    int64               `json:"count"` // non-null observations
	Nulls    int64               `json:"nulls"`

	Min      float64   `json:"min,omitempty"`
	Max      float64   `json:"max,omitempty"`
	Mean     float64   `json:"mean,omitempty"`
	Variance float64   `json:"variance,omitempty"`
	Bins     []float64 `json:"bins,omitempty"` // equi-width counts over [min, max]

	Values []ValueCount `json:"values,omitempty"`
	Other  int64        `json:"other,omitempty"` // mass beyond the top-K values
}

// NullRate returns the probability of emitting null for this column.
func (m *Marginal) NullRate() float64 {
	total := m.Count + m.Nulls
	if total == 0 {
		return 1
	}
	return float64(m.Nulls) / float64(total)
}

// Covariance is a table's numeric dependence block: a symmetric matrix over
// the named columns, stored row-major.
type Covariance struct {
	Columns []string  `json:"columns"`
	Matrix  []float64 `json:"matrix"`
}

// Index returns the block position of the named column, or -1.
func (c *Covariance) Index(name string) int {
	for i, n := range c.Columns {
		if n == name {
			return i
		}
	}
	return -1
}

// At returns the (i, j) entry.
func (c *Covariance) At(i, j int) float64 {
	return c.Matrix[i*len(c.Columns)+j]
}

// ForeignKey mirrors catalog.ForeignKey in serialized form.
type ForeignKey struct {
	Columns    []string `json:"columns"`
	RefTable   string   `json:"ref_table"`
	RefColumns []string `json:"ref_columns"`
}

// Table is one table's digest. Columns preserve the source column order.
type Table struct {
	Columns     []Marginal   `json:"columns"`
	Covariance  *Covariance  `json:"covariance,omitempty"`
	PrimaryKey  []string     `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
	RowCount    int64        `json:"row_count"`
}

// Marginal returns the named column's summary, or nil.
func (t *Table) Marginal(name string) *Marginal {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Genome is the versioned root document.
type Genome struct {
	Version int               `json:"version"`
	Tables  map[string]*Table `json:"tables"`
}

func New() *Genome {
	return &Genome{Version: FormatVersion, Tables: make(map[string]*Table)}
}

// TableNames returns the table names in sorted order.
func (g *Genome) TableNames() []string {
	names := make([]string, 0, len(g.Tables))
	for name := range g.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog reconstructs the abstract catalog carried in the genome: column
// order, logical types, nullability, primary keys, and FK edges.
func (g *Genome) Catalog() (*catalog.Catalog, error) {
	cat := &catalog.Catalog{}
	for _, name := range g.TableNames() {
		gt := g.Tables[name]
		t := &catalog.Table{Name: name, PrimaryKey: gt.PrimaryKey}
		for _, m := range gt.Columns {
			typ, err := catalog.ParseLogicalType(string(m.Type))
			if err != nil {
				return nil, fmt.Errorf("genome table %s: %w", name, err)
			}
			t.Columns = append(t.Columns, catalog.Column{
				Name:     m.Name,
				Type:     typ,
				Nullable: m.Nullable,
			})
		}
		for _, fk := range gt.ForeignKeys {
			t.ForeignKeys = append(t.ForeignKeys, catalog.ForeignKey{
				Columns:    fk.Columns,
				RefTable:   fk.RefTable,
				RefColumns: fk.RefColumns,
			})
		}
		cat.Tables = append(cat.Tables, t)
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("genome catalog: %w", err)
	}
	return cat, nil
}

// Encode writes the genome as indented JSON.
func (g *Genome) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}

// Decode reads a genome and enforces the format version.
func Decode(r io.Reader) (*Genome, error) {
	var g Genome
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("decoding genome: %w", err)
	}
	if g.Version != FormatVersion {
		return nil, fmt.Errorf("%w: file has version %d, this build reads version %d",
			ErrVersion, g.Version, FormatVersion)
	}
	return &g, nil
}

// Save writes the genome to a file.
func (g *Genome) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating genome file: %w", err)
	}
	if err := g.Encode(f); err != nil {
		f.Close()
		return fmt.Errorf("writing genome: %w", err)
	}
	return f.Close()
}

// Load reads a genome from a file.
func Load(path string) (*Genome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening genome file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
