package sampler

import (
	"math/rand/v2"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
	"github.com/Pragadeesh-19/replica-db/internal/genome"
	"github.com/Pragadeesh-19/replica-db/internal/randsrc"
)

// DefaultCholeskyEpsilonMax is the regularization ceiling for the copula.
const DefaultCholeskyEpsilonMax = 1e-3

// Options tune a table sampler.
type Options struct {
	CholeskyEpsilonMax float64
	// FillOther synthesizes faker text for "other"-bucket draws on text
	// columns instead of emitting null.
	FillOther bool
	// Skip marks column positions whose draws the caller substitutes
	// (FK columns fed from the key store). Skipped positions emit nil.
	Skip map[int]bool
}

// TableSampler draws whole rows for one table. Each column consumes its own
// deterministic substream, and the copula has one more, so the value a
// column sees depends only on the seed, the table, and the row index.
type TableSampler struct {
	name string
	cols []*marginalSampler
	skip map[int]bool

	corr     *correlated
	blockPos []int // column position -> covariance block index, -1 if absent
	corrRng  *rand.Rand
	colRngs  []*rand.Rand
	fillers  []*filler

	z, u []float64
}

// New builds a sampler for one genome table. ct supplies the column order
// and logical types; root supplies the deterministic substreams.
// Returns ErrUnstable (wrapped) when the covariance block cannot be
// factorized within the regularization ceiling.
func New(name string, gt *genome.Table, ct *catalog.Table, root randsrc.Root, opts Options) (*TableSampler, error) {
	s := &TableSampler{
		name:     name,
		skip:     opts.Skip,
		blockPos: make([]int, len(gt.Columns)),
		colRngs:  make([]*rand.Rand, len(gt.Columns)),
		fillers:  make([]*filler, len(gt.Columns)),
	}

	for i := range gt.Columns {
		m := &gt.Columns[i]
		s.cols = append(s.cols, newMarginalSampler(m))
		s.colRngs[i] = root.Stream(name, m.Name)
		s.blockPos[i] = -1
		if opts.FillOther && m.Type == catalog.Text {
			s.fillers[i] = newFiller(m.Name, root.Seed64(name, m.Name, "fill"))
		}
	}

	if gt.Covariance != nil && len(gt.Covariance.Columns) > 1 {
		corr, err := newCorrelated(gt.Covariance, opts.CholeskyEpsilonMax)
		if err != nil {
			return nil, err
		}
		s.corr = corr
		s.corrRng = root.Stream(name, "copula")
		s.z = make([]float64, corr.k)
		s.u = make([]float64, corr.k)
		for i := range gt.Columns {
			s.blockPos[i] = gt.Covariance.Index(gt.Columns[i].Name)
		}
	}

	return s, nil
}

// Row draws one row into buf (allocated when nil). Columns inside the
// covariance block share a single copula draw; everything else is drawn
// independently from its marginal. Null handling follows the profiled null
// rate: independent columns decide null before drawing, copula columns are
// overwritten with null after the draw.
func (s *TableSampler) Row(buf []any) []any {
	if buf == nil {
		buf = make([]any, len(s.cols))
	}

	if s.corr != nil {
		s.corr.uniforms(s.corrRng, s.z, s.u)
	}

	for i, ms := range s.cols {
		if s.skip[i] {
			buf[i] = nil
			continue
		}
		rng := s.colRngs[i]

		switch ms.kind {
		case genome.KindNumeric:
			if bp := s.blockPos[i]; bp >= 0 {
				v := ms.numericFromUniform(s.u[bp])
				if ms.nullRate > 0 && rng.Float64() < ms.nullRate {
					buf[i] = nil
				} else {
					buf[i] = v
				}
				continue
			}
			if ms.nullRate > 0 && rng.Float64() < ms.nullRate {
				buf[i] = nil
				continue
			}
			buf[i] = ms.numericFromUniform(rng.Float64())

		case genome.KindCategorical:
			if ms.nullRate > 0 && rng.Float64() < ms.nullRate {
				buf[i] = nil
				continue
			}
			v := ms.drawCategorical(rng)
			if _, isOther := v.(otherValue); isOther {
				if fl := s.fillers[i]; fl != nil {
					buf[i] = fl.fill()
				} else {
					buf[i] = nil
				}
				continue
			}
			buf[i] = v

		default:
			buf[i] = nil
		}
	}
	return buf
}
