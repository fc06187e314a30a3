package differ

import (
	"strconv"
	"strings"

	"github.com/agentstation/factsync/pkg/constants"
	"github.com/agentstation/factsync/pkg/decay"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/normalize"
	"github.com/agentstation/factsync/pkg/nuclide"
	"github.com/agentstation/factsync/pkg/units"
)

// Differ handles change detection between source rows and recorded state.
type Differ interface {
	// Batch keeps the rows of updated that differ from existing.
	Batch(existing *nuclide.Index, updated normalize.Batch) *Changeset
}

// differ is the default implementation of Differ.
type differ struct {
	units        *units.Table
	modes        *decay.ItemMap
	halfLifeTol  float64
	abundanceTol float64
	tracking     bool
}

// New creates a Differ with default settings.
func New(opts ...Option) Differ {
	d := &differ{
		units:        units.Default(),
		modes:        decay.DefaultItemMap(),
		halfLifeTol:  constants.ChangeTolerance,
		abundanceTol: constants.ChangeTolerance,
		tracking:     true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Batch compares each row with the nuclide it is about. Rows for
// entities the index does not know are kept.
func (diff *differ) Batch(existing *nuclide.Index, updated normalize.Batch) *Changeset {
	cs := &Changeset{Unchanged: make(map[normalize.Kind]int)}

	byItem := make(map[kb.EntityID]nuclide.Nuclide)
	if existing != nil {
		for _, n := range existing.All() {
			byItem[n.Item] = n
		}
	}
	unknown := make(map[kb.EntityID]bool)
	state := func(row normalize.Row) (nuclide.Nuclide, bool) {
		n, ok := byItem[row.Entity()]
		if !ok && !unknown[row.Entity()] {
			unknown[row.Entity()] = true
			cs.Unknown = append(cs.Unknown, row.Entity())
		}
		return n, ok
	}

	for _, row := range updated.HalfLives {
		n, ok := state(row)
		if !ok {
			cs.Changed.Add(row)
			continue
		}
		value := row.Value
		if !diff.units.TimespansDiffer(&value, row.Unit, n.HalfLifeSeconds(diff.units), diff.halfLifeTol) {
			cs.Unchanged[normalize.KindHalfLife]++
			continue
		}
		cs.Changed.Add(row)
		diff.track(cs, row.Item, "half_life", optFloat(n.HalfLife, string(n.HalfLifeUnit)), optFloat(&row.Value, string(row.Unit)))
	}

	for _, row := range updated.Decays {
		n, ok := state(row)
		if !ok {
			cs.Changed.Add(row)
			continue
		}
		if item, err := diff.modes.Item(row.Code); err == nil && n.HasDecayMode(kb.EntityID(item)) {
			cs.Unchanged[normalize.KindDecay]++
			continue
		}
		cs.Changed.Add(row)
		diff.track(cs, row.Item, "decay."+row.Code, "", string(row.DecaysTo))
	}

	for _, row := range updated.SpinParity {
		n, ok := state(row)
		if !ok {
			cs.Changed.Add(row)
			continue
		}
		var parity *float64
		if row.Parity != nil {
			p := float64(*row.Parity)
			parity = &p
		}
		if equal(row.Spin, n.Spin) && equal(parity, n.Parity) {
			cs.Unchanged[normalize.KindSpinParity]++
			continue
		}
		cs.Changed.Add(row)
		diff.track(cs, row.Item, "spin_parity",
			strings.TrimSpace(optFloat(n.Spin, "")+" "+optFloat(n.Parity, "")),
			strings.TrimSpace(optFloat(row.Spin, "")+" "+optFloat(parity, "")))
	}

	for _, row := range updated.Abundances {
		n, ok := state(row)
		if !ok {
			cs.Changed.Add(row)
			continue
		}
		value := row.Value
		if !units.FloatsDiffer(&value, n.Abundance, diff.abundanceTol) {
			cs.Unchanged[normalize.KindAbundance]++
			continue
		}
		cs.Changed.Add(row)
		diff.track(cs, row.Item, "abundance", optFloat(n.Abundance, ""), optFloat(&row.Value, ""))
	}

	cs.summarize()
	return cs
}

func (diff *differ) track(cs *Changeset, entity kb.EntityID, path, old, updated string) {
	if !diff.tracking {
		return
	}
	t := ChangeTypeUpdate
	if old == "" {
		t = ChangeTypeAdd
	}
	cs.Changes = append(cs.Changes, FieldChange{Entity: entity, Path: path, OldValue: old, NewValue: updated, Type: t})
}

func equal(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func optFloat(v *float64, unit string) string {
	if v == nil {
		return ""
	}
	s := strconv.FormatFloat(*v, 'g', -1, 64)
	if unit != "" {
		s += " " + unit
	}
	return s
}
