package table

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/factsync/pkg/differ"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/normalize"
	"github.com/agentstation/factsync/pkg/provenance"
	"github.com/agentstation/factsync/pkg/reconcile"
	"github.com/agentstation/factsync/pkg/sync"
)

func TestResultToTableData(t *testing.T) {
	res := &sync.Result{
		Candidates: 3, Processed: 2, Mutations: 4,
		Capped: true, LastOrdinal: 2, ResumeOrdinal: 3, Release: "Q777",
		Decisions: map[reconcile.DecisionKind]int{
			reconcile.NoOp:        1,
			reconcile.CreateClaim: 2,
		},
	}

	data := ResultToTableData(res)
	assert.Equal(t, []string{"PROPERTY", "VALUE"}, data.Headers)
	assert.Contains(t, data.Rows, []string{"Resume from", "#3"})
	assert.Contains(t, data.Rows, []string{"Release", "Q777"})

	// Decision kinds follow the fixed rows in name order.
	n := len(data.Rows)
	assert.Equal(t, []string{"create_claim", "2"}, data.Rows[n-2])
	assert.Equal(t, []string{"noop", "1"}, data.Rows[n-1])
}

func TestFailuresToTableData(t *testing.T) {
	data := FailuresToTableData([]sync.Failure{
		{Ordinal: 7, Entity: "Q2", Fact: "P2114 5700", Err: errors.New("boom")},
	})
	require.Len(t, data.Rows, 1)
	assert.Equal(t, []string{"#7", "Q2", "P2114 5700", "boom"}, data.Rows[0])
}

func TestChangesetToTableData(t *testing.T) {
	var rows normalize.Batch
	rows.Add(normalize.HalfLifeRow{Value: 1}, normalize.HalfLifeRow{Value: 2})

	cs := &differ.Changeset{
		Unchanged: map[normalize.Kind]int{normalize.KindHalfLife: 1},
		Changes: []differ.FieldChange{
			{Entity: "Q1", Path: "half_life", NewValue: "2 Q11574", Type: differ.ChangeTypeAdd},
		},
	}
	cs.Changed.Add(normalize.HalfLifeRow{Value: 2})

	data := ChangesetToTableData(rows, cs, false)
	require.Len(t, data.Rows, len(normalize.Kinds()))
	assert.Equal(t, []string{string(normalize.KindHalfLife), "2", "1", "1"}, data.Rows[0])

	detailed := ChangesetToTableData(rows, cs, true)
	assert.Equal(t, []string{"Q1 half_life", "-", "2 Q11574", "add"}, detailed.Rows[len(detailed.Rows)-1])
}

func TestProvenanceToTableData(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m := provenance.Map{
		"Q2": {{Entity: "Q2", Fact: "P2114 5700", Action: "create_claim", ClaimID: "Q2$A", Cited: []string{"P248=Q777"}, Timestamp: when}},
		"Q1": {
			{Entity: "Q1", Fact: "P2114 1", Action: "create_claim", Timestamp: when},
			{Entity: "Q1", Fact: "P817 B-", Action: "attach_source"},
		},
	}

	data := ProvenanceToTableData(m, nil)
	require.Len(t, data.Rows, 3)
	assert.Equal(t, "Q1", data.Rows[0][0])
	assert.Equal(t, "", data.Rows[1][0])
	assert.Equal(t, "-", data.Rows[1][5])
	assert.Equal(t, []string{"Q2", "P2114 5700", "create_claim", "Q2$A", "P248=Q777", "2024-01-02 03:04:05"}, data.Rows[2])

	filtered := ProvenanceToTableData(provenance.Map{kb.EntityID("Q1"): m["Q1"]}, []string{"p817 *"})
	require.Len(t, filtered.Rows, 1)
	assert.Equal(t, "Q1", filtered.Rows[0][0])
}

func TestMatchField(t *testing.T) {
	tests := []struct {
		field    string
		patterns []string
		want     bool
	}{
		{"P2114 5700", nil, true},
		{"P2114 5700", []string{"P2114 *"}, true},
		{"decay.B-", []string{"decay.*"}, true},
		{"decay", []string{"decay.*"}, true},
		{"P1122 0.5", []string{"P2114 *"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchField(tt.field, tt.patterns))
		})
	}
}
