package normalize

import (
	"context"
	"fmt"

	"github.com/agentstation/factsync/pkg/decay"
	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/logging"
	"github.com/agentstation/factsync/pkg/nuclide"
	"github.com/agentstation/factsync/pkg/nudat"
	"github.com/agentstation/factsync/pkg/quantity"
	"github.com/agentstation/factsync/pkg/units"
)

// Normalizer builds rows from raw measurements. Decay products are
// resolved through the nuclide index.
type Normalizer struct {
	units *units.Table
	index *nuclide.Index
}

// New creates a normalizer.
func New(table *units.Table, index *nuclide.Index) *Normalizer {
	if table == nil {
		table = units.Default()
	}
	return &Normalizer{units: table, index: index}
}

// Skipped is a raw record that produced no row.
type Skipped struct {
	Raw nudat.Raw
	Err error
}

// Nuclide normalizes every raw record of one nuclide. Records that fail
// are returned as skipped and never abort the others.
func (n *Normalizer) Nuclide(ctx context.Context, nuc nuclide.Nuclide, raws []nudat.Raw) (Batch, []Skipped) {
	log := logging.Ctx(logging.WithNuclide(ctx, nuc.Key.Z, nuc.Key.N))
	var (
		batch   Batch
		skipped []Skipped
	)
	skip := func(raw nudat.Raw, err error) {
		log.Debug().Err(err).Str("kind", string(raw.Kind)).Str("value", raw.Value).Msg("skipped record")
		skipped = append(skipped, Skipped{Raw: raw, Err: err})
	}

	for _, raw := range raws {
		origin := Origin{Item: nuc.Item, Label: nuc.Label, URL: raw.URL}
		switch raw.Kind {
		case nudat.HalfLife:
			row, err := n.HalfLife(origin, raw)
			if err != nil {
				skip(raw, err)
				continue
			}
			batch.Add(row)
		case nudat.Abundance:
			row, err := n.Abundance(origin, raw)
			if err != nil {
				skip(raw, err)
				continue
			}
			batch.Add(row)
		case nudat.SpinParity:
			row, err := n.SpinParity(origin, raw)
			if err != nil {
				skip(raw, err)
				continue
			}
			batch.Add(row)
		case nudat.DecayModes:
			rows, errs := n.Decays(origin, nuc.Key, raw)
			for _, r := range rows {
				batch.Add(r)
			}
			for _, err := range errs {
				skip(raw, err)
			}
		}
	}
	return batch, skipped
}

// HalfLife parses and normalizes a half-life record. Markers such as
// "LT" leave the uncertainty absent.
func (n *Normalizer) HalfLife(origin Origin, raw nudat.Raw) (HalfLifeRow, error) {
	m, err := quantity.Parse(raw.Value, raw.Uncertainty)
	if err != nil {
		return HalfLifeRow{}, err
	}
	q, err := n.units.NormalizeHalfLife(m.Value, m.Uncertainty, raw.Unit)
	if err != nil {
		return HalfLifeRow{}, err
	}

	row := HalfLifeRow{Origin: origin, Value: q.Value, Unit: q.Unit, UnitLabel: q.Label}
	if m.HasUncertainty {
		row.Uncertainty = ptr(q.Uncertainty)
	}
	return row, nil
}

// Abundance parses a natural abundance record.
func (n *Normalizer) Abundance(origin Origin, raw nudat.Raw) (AbundanceRow, error) {
	m, err := quantity.Parse(raw.Value, raw.Uncertainty)
	if err != nil {
		return AbundanceRow{}, err
	}
	row := AbundanceRow{Origin: origin, Value: m.Value}
	if m.HasUncertainty {
		row.Uncertainty = ptr(m.Uncertainty)
	}
	return row, nil
}

// SpinParity parses a J-pi record. Tentative assignments are rejected.
func (n *Normalizer) SpinParity(origin Origin, raw nudat.Raw) (SpinParityRow, error) {
	jpi, err := nudat.ParseJPi(raw.Value)
	if err != nil {
		return SpinParityRow{}, err
	}
	return SpinParityRow{Origin: origin, Spin: ptr(jpi.Spin), Parity: jpi.Parity}, nil
}

// Decays splits a decay-modes record into branches. A mode that does not
// decode keeps an unknown target. A mode that decodes to a nuclide
// missing from the index is reported and dropped.
func (n *Normalizer) Decays(origin Origin, key nuclide.Key, raw nudat.Raw) ([]DecayRow, []error) {
	var (
		rows []DecayRow
		errs []error
	)
	for _, b := range decay.ParseModes(raw.Value) {
		row := DecayRow{Origin: origin, Mode: b.Mode, Percent: b.Percent}
		if code, ok := decay.Code(b.Mode); ok {
			row.Code = code
		} else {
			row.Code = decay.Canonical(b.Mode)
		}

		if after, ok := decay.Apply(key.Z, key.N, b.Mode); ok {
			product := nuclide.Key{Z: after.Z, N: after.N}
			item, err := n.lookup(product)
			if err != nil {
				errs = append(errs, fmt.Errorf("decay %s of %s: %w", b.Mode, key, err))
				continue
			}
			row.Product = &product
			row.DecaysTo = item
		}
		rows = append(rows, row)
	}
	return rows, errs
}

func (n *Normalizer) lookup(key nuclide.Key) (kb.EntityID, error) {
	if n.index == nil {
		return "", errors.NewNotFoundError("nuclide", key.String())
	}
	return n.index.Lookup(key.Z, key.N)
}
