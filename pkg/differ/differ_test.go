package differ_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/factsync/pkg/differ"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/normalize"
	"github.com/agentstation/factsync/pkg/nuclide"
	"github.com/agentstation/factsync/pkg/units"
)

func f(v float64) *float64 { return &v }

func index() *nuclide.Index {
	return nuclide.NewIndex([]nuclide.Nuclide{
		{
			Item:         "Q1",
			Key:          nuclide.Key{Z: 6, N: 8},
			HalfLife:     f(5700),
			HalfLifeUnit: units.Year,
			DecayModes:   []kb.EntityID{"Q14646001"},
			Spin:         f(0),
			Parity:       f(1),
		},
		{
			Item:      "Q2",
			Key:       nuclide.Key{Z: 6, N: 6},
			Abundance: f(98.93),
		},
	})
}

func origin(item kb.EntityID) normalize.Origin {
	return normalize.Origin{Item: item}
}

func TestBatchFiltersRecordedRows(t *testing.T) {
	plus := 1
	var b normalize.Batch
	b.Add(
		// 5700 y expressed in days, within 1e-6 relative
		normalize.HalfLifeRow{Origin: origin("Q1"), Value: 5700 * 3.156e7 / 86400, Unit: units.Day},
		normalize.HalfLifeRow{Origin: origin("Q1"), Value: 5730, Unit: units.Year},
		normalize.DecayRow{Origin: origin("Q1"), Code: "B-", DecaysTo: "Q3"},
		normalize.DecayRow{Origin: origin("Q1"), Code: "EC"},
		normalize.SpinParityRow{Origin: origin("Q1"), Spin: f(0), Parity: &plus},
		normalize.SpinParityRow{Origin: origin("Q2"), Spin: f(0), Parity: &plus},
		normalize.AbundanceRow{Origin: origin("Q2"), Value: 98.9300001},
		normalize.AbundanceRow{Origin: origin("Q9"), Value: 1},
	)

	cs := differ.New().Batch(index(), b)
	require.True(t, cs.HasChanges())

	require.Len(t, cs.Changed.HalfLives, 1)
	assert.Equal(t, 5730.0, cs.Changed.HalfLives[0].Value)
	require.Len(t, cs.Changed.Decays, 1)
	assert.Equal(t, "EC", cs.Changed.Decays[0].Code)
	require.Len(t, cs.Changed.SpinParity, 1)
	assert.Equal(t, kb.EntityID("Q2"), cs.Changed.SpinParity[0].Item)
	require.Len(t, cs.Changed.Abundances, 1)
	assert.Equal(t, kb.EntityID("Q9"), cs.Changed.Abundances[0].Item)

	assert.Equal(t, []kb.EntityID{"Q9"}, cs.Unknown)
	assert.Equal(t, 4, cs.Summary.UnchangedRows)
	assert.Equal(t, 4, cs.Summary.TotalChanges)

	require.NotEmpty(t, cs.Changes)
	assert.Equal(t, differ.FieldChange{
		Entity: "Q1", Path: "half_life", OldValue: "5700 Q1092296", NewValue: "5730 Q1092296", Type: differ.ChangeTypeUpdate,
	}, cs.Changes[0])
	assert.Contains(t, cs.String(), "Half-lives: 1")
}

func TestBatchWithoutTracking(t *testing.T) {
	var b normalize.Batch
	b.Add(normalize.AbundanceRow{Origin: origin("Q2"), Value: 50})

	cs := differ.New(differ.WithTracking(false), differ.WithAbundanceTolerance(100)).Batch(index(), b)
	assert.False(t, cs.HasChanges())
	assert.Empty(t, cs.Changes)
	assert.Equal(t, "No changes (1 rows already recorded)", cs.String())
}

func TestBatchMissingHalfLifeIsAdd(t *testing.T) {
	var b normalize.Batch
	b.Add(normalize.HalfLifeRow{Origin: origin("Q2"), Value: 1, Unit: units.Second})

	cs := differ.New().Batch(index(), b)
	require.Len(t, cs.Changes, 1)
	assert.Equal(t, differ.ChangeTypeAdd, cs.Changes[0].Type)
}
