// Package normalize turns raw source measurements into typed rows, one
// row type per fact kind, ready for filtering, persistence and
// reconciliation.
package normalize

import (
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/nuclide"
	"github.com/agentstation/factsync/pkg/units"
)

// Kind tags a row.
type Kind string

const (
	KindHalfLife   Kind = "half_life"
	KindDecay      Kind = "decay"
	KindSpinParity Kind = "spin_parity"
	KindAbundance  Kind = "abundance"
)

// Kinds lists every row kind in file order.
func Kinds() []Kind {
	return []Kind{KindHalfLife, KindDecay, KindSpinParity, KindAbundance}
}

// Row is implemented by every normalized row.
type Row interface {
	RowKind() Kind
	Entity() kb.EntityID
}

// Origin is the nuclide item a row is about and where its data came from.
type Origin struct {
	Item  kb.EntityID
	Label string
	URL   string
}

// Entity returns the nuclide item.
func (o Origin) Entity() kb.EntityID { return o.Item }

// HalfLifeRow is a normalized half-life. Uncertainty is nil when the
// source gave none.
type HalfLifeRow struct {
	Origin
	Value       float64
	Uncertainty *float64
	Unit        units.ID
	UnitLabel   string
}

func (HalfLifeRow) RowKind() Kind { return KindHalfLife }

// DecayRow is one decay branch. Code is the canonical mode code; Product
// is nil when the mode does not resolve to a nuclide, in which case
// DecaysTo is empty and the target is unknown.
type DecayRow struct {
	Origin
	Mode     string
	Code     string
	Percent  *float64
	Product  *nuclide.Key
	DecaysTo kb.EntityID
}

func (DecayRow) RowKind() Kind { return KindDecay }

// SpinParityRow is a firm level assignment.
type SpinParityRow struct {
	Origin
	Spin   *float64
	Parity *int
}

func (SpinParityRow) RowKind() Kind { return KindSpinParity }

// AbundanceRow is a natural abundance in percent.
type AbundanceRow struct {
	Origin
	Value       float64
	Uncertainty *float64
}

func (AbundanceRow) RowKind() Kind { return KindAbundance }

// Batch holds rows by kind.
type Batch struct {
	HalfLives  []HalfLifeRow
	Decays     []DecayRow
	SpinParity []SpinParityRow
	Abundances []AbundanceRow
}

// Add appends rows of any kind.
func (b *Batch) Add(rows ...Row) {
	for _, r := range rows {
		switch r := r.(type) {
		case HalfLifeRow:
			b.HalfLives = append(b.HalfLives, r)
		case DecayRow:
			b.Decays = append(b.Decays, r)
		case SpinParityRow:
			b.SpinParity = append(b.SpinParity, r)
		case AbundanceRow:
			b.Abundances = append(b.Abundances, r)
		}
	}
}

// Merge appends every row of o.
func (b *Batch) Merge(o Batch) {
	b.HalfLives = append(b.HalfLives, o.HalfLives...)
	b.Decays = append(b.Decays, o.Decays...)
	b.SpinParity = append(b.SpinParity, o.SpinParity...)
	b.Abundances = append(b.Abundances, o.Abundances...)
}

// Len counts rows of all kinds.
func (b Batch) Len() int {
	return len(b.HalfLives) + len(b.Decays) + len(b.SpinParity) + len(b.Abundances)
}

// Counts reports the number of rows per kind.
func (b Batch) Counts() map[Kind]int {
	return map[Kind]int{
		KindHalfLife:   len(b.HalfLives),
		KindDecay:      len(b.Decays),
		KindSpinParity: len(b.SpinParity),
		KindAbundance:  len(b.Abundances),
	}
}

func ptr[T any](v T) *T { return &v }
