// Package table converts run results into rows for the table formatter.
package table

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/agentstation/factsync/pkg/differ"
	"github.com/agentstation/factsync/pkg/normalize"
	"github.com/agentstation/factsync/pkg/reconcile"
	"github.com/agentstation/factsync/pkg/sync"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table data with headers and rows.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// ResultToTableData renders a run summary as a key-value table.
func ResultToTableData(res *sync.Result) Data {
	rows := [][]string{
		{"Candidates", strconv.Itoa(res.Candidates)},
		{"Processed", strconv.Itoa(res.Processed)},
		{"Skipped", strconv.Itoa(res.Skipped)},
		{"Mutations", strconv.Itoa(res.Mutations)},
		{"Failures", strconv.Itoa(len(res.Failures))},
		{"Release", string(res.Release)},
		{"Dry run", strconv.FormatBool(res.DryRun)},
	}
	if res.Capped {
		rows = append(rows, []string{"Resume from", "#" + strconv.Itoa(res.ResumeOrdinal)})
	}

	kinds := make([]string, 0, len(res.Decisions))
	for k := range res.Decisions {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		rows = append(rows, []string{k, strconv.Itoa(res.Decisions[reconcile.DecisionKind(k)])})
	}

	return Data{
		Headers:         []string{"PROPERTY", "VALUE"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// FailuresToTableData lists failed records in ordinal order.
func FailuresToTableData(failures []sync.Failure) Data {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{
			"#" + strconv.Itoa(f.Ordinal),
			string(f.Entity),
			f.Fact,
			f.Err.Error(),
		})
	}
	return Data{
		Headers:         []string{"#", "ENTITY", "FACT", "ERROR"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignDefault, AlignDefault, AlignDefault},
	}
}

// PlansToTableData lists the decisions of a dry run, one per row.
func PlansToTableData(plans []*reconcile.Plan) Data {
	var rows [][]string
	for _, p := range plans {
		for i, d := range p.Decisions {
			entity, fact := "", ""
			if i == 0 {
				entity, fact = string(p.Entity), p.Fact
			}
			rows = append(rows, []string{entity, fact, string(d.Kind), d.String()})
		}
	}
	return Data{
		Headers: []string{"ENTITY", "FACT", "DECISION", "DETAIL"},
		Rows:    rows,
	}
}

// ChangesetToTableData summarizes an extraction per row kind.
// With details every changed field is listed after the summary.
func ChangesetToTableData(rows normalize.Batch, cs *differ.Changeset, showDetails bool) Data {
	total := rows.Counts()
	changed := cs.Changed.Counts()

	data := Data{
		Headers:         []string{"KIND", "ROWS", "CHANGED", "UNCHANGED"},
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignRight, AlignRight},
	}
	for _, k := range normalize.Kinds() {
		data.Rows = append(data.Rows, []string{
			string(k),
			strconv.Itoa(total[k]),
			strconv.Itoa(changed[k]),
			strconv.Itoa(cs.Unchanged[k]),
		})
	}

	if showDetails {
		for _, c := range cs.Changes {
			data.Rows = append(data.Rows, []string{
				string(c.Entity) + " " + c.Path,
				formatChange(c.OldValue),
				formatChange(c.NewValue),
				string(c.Type),
			})
		}
	}
	return data
}

func formatChange(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

// FormatCount renders n with a singular or plural noun.
func FormatCount(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
