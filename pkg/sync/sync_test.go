package sync_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/kb/memory"
	"github.com/agentstation/factsync/pkg/normalize"
	"github.com/agentstation/factsync/pkg/nuclide"
	"github.com/agentstation/factsync/pkg/nudat"
	"github.com/agentstation/factsync/pkg/provenance"
	"github.com/agentstation/factsync/pkg/reconcile"
	"github.com/agentstation/factsync/pkg/release"
	"github.com/agentstation/factsync/pkg/sync"
	"github.com/agentstation/factsync/pkg/units"
)

var (
	retrieved = time.Date(2016, 6, 23, 0, 0, 0, 0, time.UTC)
	edition   = release.Descriptor{Title: "NuDat 2.6", Edition: "2.6", EditionOf: kb.ItemNuDat}
)

func halfLife(entity kb.EntityID, v float64) sync.Candidate {
	return sync.Candidate{
		Entity: entity,
		Proposal: reconcile.QuantityProposal{
			Prop: kb.PropHalfLife, Value: v, Uncertainty: 1, Unit: "Q1092296",
		},
		SourceURL: "https://example.org/" + string(entity),
	}
}

// newStore holds the given nuclide items and answers the release query
// with item Q777 when withRelease is set.
func newStore(withRelease bool, ids ...kb.EntityID) *memory.Store {
	s := memory.New(memory.WithQuery(func(sparql string) ([]kb.Binding, error) {
		if withRelease && strings.Contains(sparql, string(kb.PropEditionOf)) {
			return []kb.Binding{{"item": "http://www.wikidata.org/entity/Q777"}}, nil
		}
		return nil, nil
	}))
	for _, id := range ids {
		s.Put(kb.Entity{ID: id})
	}
	return s
}

func opts(extra ...sync.Option) []sync.Option {
	return append([]sync.Option{
		sync.WithDelay(0),
		sync.WithRetrievedAt(retrieved),
		sync.WithRelease(edition),
	}, extra...)
}

func TestRunOrderAndRelease(t *testing.T) {
	store := newStore(true, "Q1", "Q2")
	d := sync.NewDriver(store, opts()...)

	res, err := d.Run(context.Background(), []sync.Candidate{halfLife("Q2", 10), halfLife("Q1", 20)})
	require.NoError(t, err)

	assert.Equal(t, kb.EntityID("Q777"), res.Release)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 4, res.Mutations)
	assert.Equal(t, 2, res.Decisions[reconcile.CreateClaim])
	assert.Equal(t, 2, res.Decisions[reconcile.AttachSource])
	assert.Empty(t, res.Failures)

	muts := store.Mutations()
	require.Len(t, muts, 4)
	assert.Equal(t, kb.EntityID("Q1"), muts[0].Entity)
	assert.Equal(t, kb.EntityID("Q2"), muts[3].Entity)

	for _, id := range []kb.EntityID{"Q1", "Q2"} {
		ent, err := store.GetEntity(context.Background(), id)
		require.NoError(t, err)
		claims := ent.ClaimsFor(kb.PropHalfLife)
		require.Len(t, claims, 1)
		require.Len(t, claims[0].References, 1)
		stated := claims[0].References[0].Values(kb.PropStatedIn)
		require.Len(t, stated, 1)
		assert.Equal(t, kb.EntityID("Q777"), stated[0].Item)
	}
	assert.Equal(t, 4, d.Tracker().Len())
	assert.Len(t, res.Provenance, 2)
	assert.Len(t, res.Provenance["Q1"], 2)

	// A second run finds everything attributed.
	store.Reset()
	res, err = sync.NewDriver(store, opts()...).Run(context.Background(), []sync.Candidate{halfLife("Q2", 10), halfLife("Q1", 20)})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Mutations)
	assert.Equal(t, 2, res.Decisions[reconcile.NoOp])
	assert.False(t, res.HasChanges())
	assert.Empty(t, store.Mutations())
}

func TestRunCreatesMissingRelease(t *testing.T) {
	store := newStore(false, "Q1")
	res, err := sync.NewDriver(store, opts()...).Run(context.Background(), []sync.Candidate{halfLife("Q1", 20)})
	require.NoError(t, err)

	require.NotEmpty(t, res.Release)
	assert.NotEqual(t, kb.ItemNuDat, res.Release)
	muts := store.Mutations()
	require.NotEmpty(t, muts)
	assert.Equal(t, "create_entity", muts[0].Op)

	ent, err := store.GetEntity(context.Background(), "Q1")
	require.NoError(t, err)
	stated := ent.ClaimsFor(kb.PropHalfLife)[0].References[0].Values(kb.PropStatedIn)
	assert.Equal(t, res.Release, stated[0].Item)
}

func TestRunWindow(t *testing.T) {
	store := newStore(true, "Q1", "Q2", "Q3")
	candidates := []sync.Candidate{halfLife("Q3", 1), halfLife("Q1", 1), halfLife("Q2", 1)}

	res, err := sync.NewDriver(store, opts(sync.WithRange(2, 2))...).Run(context.Background(), candidates)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Candidates)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 2, res.LastOrdinal)

	for _, m := range store.Mutations() {
		assert.Equal(t, kb.EntityID("Q2"), m.Entity)
	}
}

func TestRunMutationCap(t *testing.T) {
	store := newStore(true, "Q1", "Q2", "Q3")
	candidates := []sync.Candidate{halfLife("Q1", 1), halfLife("Q2", 1), halfLife("Q3", 1)}

	res, err := sync.NewDriver(store, opts(sync.WithMaxMutations(3))...).Run(context.Background(), candidates)
	require.NoError(t, err)
	assert.True(t, res.Capped)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 2, res.Mutations)
	assert.Equal(t, 1, res.LastOrdinal)
	assert.Equal(t, 2, res.ResumeOrdinal)
	assert.Len(t, store.Mutations(), 2)
	assert.Contains(t, res.Summary(), "resume from #2")
}

func TestRunBlankSourceFails(t *testing.T) {
	store := newStore(true, "Q1", "Q2")
	blank := provenance.Publication{}.Cite()
	cited := provenance.Publication{DOI: "10.6084/m9.figshare.3409414"}.Cite()
	candidates := []sync.Candidate{
		{Entity: "Q1", Proposal: reconcile.IdentifierProposal{Prop: kb.PropGRID, ID: "grid.1.1"}, Source: &blank},
		{Entity: "Q2", Proposal: reconcile.IdentifierProposal{Prop: kb.PropGRID, ID: "grid.2.2"}, Source: &cited},
	}

	res, err := sync.NewDriver(store, opts()...).Run(context.Background(), candidates)
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, kb.EntityID("Q1"), res.Failures[0].Entity)
	assert.True(t, errors.IsValidationError(res.Failures[0].Err))
	for _, m := range store.Mutations() {
		assert.Equal(t, kb.EntityID("Q2"), m.Entity)
	}
}

func TestRunMutationCapBelowRecord(t *testing.T) {
	tests := []struct {
		name    string
		cap     int
		wantErr bool
	}{
		{name: "cap below the first record", cap: 1, wantErr: true},
		{name: "cap fits the first record", cap: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(true, "Q1", "Q2")
			candidates := []sync.Candidate{halfLife("Q1", 1), halfLife("Q2", 1)}

			res, err := sync.NewDriver(store, opts(sync.WithMaxMutations(tt.cap))...).Run(context.Background(), candidates)
			require.NotNil(t, res)
			assert.True(t, res.Capped)
			if tt.wantErr {
				assert.True(t, errors.IsValidationError(err))
				assert.Equal(t, 0, res.Processed)
				assert.Equal(t, 1, res.ResumeOrdinal)
				assert.Empty(t, store.Mutations())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, res.Processed)
			assert.Equal(t, 2, res.ResumeOrdinal)
		})
	}
}

func TestRunDryRun(t *testing.T) {
	store := newStore(false, "Q1", "Q2")
	res, err := sync.NewDriver(store, opts(sync.WithDryRun(true))...).Run(context.Background(),
		[]sync.Candidate{halfLife("Q1", 1), halfLife("Q2", 1)})
	require.NoError(t, err)

	assert.Empty(t, store.Mutations())
	assert.Equal(t, kb.ItemNuDat, res.Release, "a dry run cites the dataset when the release is missing")
	assert.Len(t, res.Plans, 2)
	assert.Equal(t, 4, res.Mutations)
	assert.True(t, res.HasChanges())
	assert.Contains(t, res.Summary(), "Dry run")
}

func TestRunFailureContinues(t *testing.T) {
	store := newStore(true, "Q1", "Q3")
	candidates := []sync.Candidate{halfLife("Q1", 1), halfLife("Q2", 1), halfLife("Q3", 1)}

	res, err := sync.NewDriver(store, opts()...).Run(context.Background(), candidates)
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].Ordinal)
	assert.Equal(t, kb.EntityID("Q2"), res.Failures[0].Entity)
	assert.True(t, errors.IsNotFound(res.Failures[0].Err))
	assert.Equal(t, 2, res.Processed)

	store.Reset()
	store.FailOn("add_reference", errors.New("boom"))
	res, err = sync.NewDriver(store, opts(sync.WithFailFast(true))...).Run(context.Background(),
		[]sync.Candidate{halfLife("Q1", 5), halfLife("Q3", 5)})
	require.Error(t, err)
	var merr *errors.MutationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "attach_source", merr.Operation)
	assert.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Mutations, "the claim was created before the source failed")
}

func TestRunDraft(t *testing.T) {
	store := newStore(true)
	draft := kb.Draft{Labels: map[string]string{"en": "Brown University"}}
	res, err := sync.NewDriver(store, opts()...).Run(context.Background(),
		[]sync.Candidate{{Draft: &draft, Fact: "ror 05gq02987"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Decisions[reconcile.CreateEntity])
	assert.Len(t, store.Entities(), 1)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sync.NewDriver(newStore(false, "Q1"), sync.WithDelay(0)).Run(ctx, []sync.Candidate{halfLife("Q1", 1)})
	assert.True(t, errors.IsCanceled(err))
}

func TestValidate(t *testing.T) {
	_, err := sync.NewDriver(newStore(false), sync.WithRange(5, 2)).Run(context.Background(), nil)
	assert.True(t, errors.IsValidationError(err))
}

func pct(f float64) *float64 { return &f }

func TestFromBatch(t *testing.T) {
	origin := normalize.Origin{Item: "Q1", Label: "carbon-14", URL: "https://example.org/c14"}
	var b normalize.Batch
	b.Add(
		normalize.HalfLifeRow{Origin: origin, Value: 5700, Unit: "Q1092296"},
		normalize.AbundanceRow{Origin: origin, Value: 98.93, Uncertainty: pct(0.08)},
		normalize.SpinParityRow{Origin: origin, Spin: pct(0)},
		normalize.DecayRow{Origin: origin, Mode: "B-", Code: "B-", Percent: pct(100), Product: &nuclide.Key{Z: 7, N: 7}, DecaysTo: "Q2"},
		normalize.DecayRow{Origin: origin, Mode: "B-", Code: "B-"},
		normalize.DecayRow{Origin: origin, Mode: "ZZ", Code: "ZZ"},
	)

	cs, errs := sync.FromBatch(b, nil)
	require.Len(t, errs, 1)
	assert.True(t, errors.IsNotFound(errs[0]))
	require.Len(t, cs, 5)

	hl := cs[0].Proposal.(reconcile.QuantityProposal)
	assert.Equal(t, 5700.0, hl.Uncertainty, "absent uncertainty is as large as the value")
	require.Len(t, hl.Qualifiers, 1)
	assert.Equal(t, kb.PropUncertaintyMeans, hl.Qualifiers[0].Property)
	assert.Equal(t, "https://example.org/c14", cs[0].SourceURL)

	ab := cs[1].Proposal.(reconcile.QuantityProposal)
	assert.Equal(t, kb.ItemPercent, ab.Unit)
	assert.Equal(t, 0.08, ab.Uncertainty)

	spin := cs[2].Proposal.(reconcile.QuantityProposal)
	assert.Equal(t, kb.PropSpin, spin.Prop)
	assert.True(t, spin.ValueOnly)

	known := cs[3].Proposal.(reconcile.RelationProposal)
	assert.Equal(t, kb.EntityID("Q2"), known.Target.Item)
	assert.True(t, known.ReplaceWholesale)
	require.Len(t, known.Required, 1)
	assert.Equal(t, kb.EntityID("Q14646001"), known.Required[0].Value.Item)

	unknown := cs[4].Proposal.(reconcile.RelationProposal)
	assert.Equal(t, kb.KindSomeValue, unknown.Target.Kind)
}

func TestFromBatchUnresolvedMode(t *testing.T) {
	cf252 := nuclide.Nuclide{Item: "Q252", Label: "californium-252", Key: nuclide.Key{Z: 98, N: 154}}
	cm248 := nuclide.Nuclide{Item: "Q248", Label: "curium-248", Key: nuclide.Key{Z: 96, N: 152}}
	n := normalize.New(units.Default(), nuclide.NewIndex([]nuclide.Nuclide{cf252, cm248}))

	batch, skipped := n.Nuclide(context.Background(), cf252, []nudat.Raw{
		{Key: cf252.Key, Kind: nudat.DecayModes, Value: "α 96.9 SF 3.1", URL: "https://example.org/cf252"},
	})
	assert.Empty(t, skipped)
	require.Len(t, batch.Decays, 2)

	cs, errs := sync.FromBatch(batch, nil)
	assert.Empty(t, errs)
	require.Len(t, cs, 2)

	alpha := cs[0].Proposal.(reconcile.RelationProposal)
	assert.Equal(t, kb.EntityID("Q248"), alpha.Target.Item)

	fission := cs[1].Proposal.(reconcile.RelationProposal)
	assert.Equal(t, kb.KindSomeValue, fission.Target.Kind)
	require.Len(t, fission.Required, 1)
	assert.Equal(t, kb.EntityID("Q468777"), fission.Required[0].Value.Item)
	require.NotNil(t, fission.Percent)
	assert.Equal(t, 3.1, *fission.Percent)
}

func TestSort(t *testing.T) {
	cs := []sync.Candidate{halfLife("Q2", 2), halfLife("Q1", 9), halfLife("Q1", 1)}
	sync.Sort(cs)
	assert.Equal(t, kb.EntityID("Q1"), cs[0].Entity)
	assert.Equal(t, kb.EntityID("Q1"), cs[1].Entity)
	assert.Less(t, cs[0].Key(), cs[1].Key())
	assert.Equal(t, kb.EntityID("Q2"), cs[2].Entity)
}
