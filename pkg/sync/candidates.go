package sync

import (
	"fmt"

	"github.com/agentstation/factsync/pkg/decay"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/normalize"
	"github.com/agentstation/factsync/pkg/reconcile"
)

// FromBatch turns normalized rows into candidates. A decay row whose
// mode has no knowledge-base item is reported and left out.
func FromBatch(batch normalize.Batch, modes *decay.ItemMap) ([]Candidate, []error) {
	if modes == nil {
		modes = decay.DefaultItemMap()
	}
	var (
		out  []Candidate
		errs []error
	)

	for _, r := range batch.HalfLives {
		uncertainty := r.Value
		if r.Uncertainty != nil {
			uncertainty = *r.Uncertainty
		}
		out = append(out, candidate(r.Origin, reconcile.QuantityProposal{
			Prop:        kb.PropHalfLife,
			Value:       r.Value,
			Uncertainty: uncertainty,
			Unit:        kb.EntityID(r.Unit),
			Qualifiers:  []kb.Snak{{Property: kb.PropUncertaintyMeans, Value: kb.Item(kb.ItemStandardDeviation)}},
		}, "half-life"))
	}

	for _, r := range batch.Abundances {
		var uncertainty float64
		if r.Uncertainty != nil {
			uncertainty = *r.Uncertainty
		}
		out = append(out, candidate(r.Origin, reconcile.QuantityProposal{
			Prop:        kb.PropAbundance,
			Value:       r.Value,
			Uncertainty: uncertainty,
			Unit:        kb.ItemPercent,
		}, "natural abundance"))
	}

	for _, r := range batch.SpinParity {
		if r.Spin != nil {
			out = append(out, candidate(r.Origin, reconcile.QuantityProposal{
				Prop: kb.PropSpin, Value: *r.Spin, ValueOnly: true,
			}, "nuclear spin"))
		}
		if r.Parity != nil {
			out = append(out, candidate(r.Origin, reconcile.QuantityProposal{
				Prop: kb.PropParity, Value: float64(*r.Parity), ValueOnly: true,
			}, "parity"))
		}
	}

	for _, r := range batch.Decays {
		item, err := modes.Item(r.Code)
		if err != nil {
			errs = append(errs, fmt.Errorf("decay %s of %s: %w", r.Code, r.Item, err))
			continue
		}
		target := kb.SomeValue()
		if r.DecaysTo != "" {
			target = kb.Item(r.DecaysTo)
		}
		out = append(out, candidate(r.Origin, reconcile.RelationProposal{
			Prop:             kb.PropDecaysTo,
			Target:           target,
			Required:         []kb.Snak{{Property: kb.PropDecayMode, Value: kb.Item(kb.EntityID(item))}},
			Percent:          r.Percent,
			ReplaceWholesale: true,
		}, "decay"))
	}
	return out, errs
}

func candidate(o normalize.Origin, p reconcile.Proposal, what string) Candidate {
	return Candidate{
		Entity:    o.Item,
		Label:     o.Label,
		Proposal:  p,
		SourceURL: o.URL,
		Summary:   fmt.Sprintf("Adding %s from NuDat", what),
	}
}
