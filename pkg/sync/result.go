package sync

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/provenance"
	"github.com/agentstation/factsync/pkg/reconcile"
)

// Failure is a record that could not be planned or applied.
type Failure struct {
	Ordinal int
	Entity  kb.EntityID
	Fact    string
	Err     error
}

// Result represents the complete result of a synchronization run.
type Result struct {
	// Overall statistics
	Candidates int                            // Candidates in the sorted order
	Processed  int                            // Candidates planned inside the window
	Skipped    int                            // Candidates outside the window
	Mutations  int                            // Mutating calls made
	Decisions  map[reconcile.DecisionKind]int // Decisions planned or applied, by kind
	Failures   []Failure

	// Operation metadata
	DryRun      bool        // Whether this was a dry run
	Capped        bool        // Whether the mutation cap stopped the run
	LastOrdinal   int         // Ordinal of the last candidate processed
	ResumeOrdinal int         // Ordinal the cap stopped at, the next run's range start
	Release       kb.EntityID // Release marker every new record cites
	Plans         []*reconcile.Plan
	Provenance    provenance.Map // Mutations applied, by entity
}

func newResult(dryRun bool) *Result {
	return &Result{DryRun: dryRun, Decisions: make(map[reconcile.DecisionKind]int)}
}

func (sr *Result) count(plan *reconcile.Plan) {
	for _, k := range plan.Kinds() {
		sr.Decisions[k]++
	}
}

// HasChanges returns true if the run planned or made any mutation.
func (sr *Result) HasChanges() bool {
	for k, n := range sr.Decisions {
		if k.Mutates() && n > 0 {
			return true
		}
	}
	return false
}

// Summary returns a human-readable summary of the run.
func (sr *Result) Summary() string {
	var parts []string
	if sr.DryRun {
		parts = append(parts, "(Dry run)")
	}
	if sr.Capped {
		parts = append(parts, fmt.Sprintf("(Stopped by mutation cap, resume from #%d)", sr.ResumeOrdinal))
	}

	summary := fmt.Sprintf("%d processed, %d mutations, %d failed", sr.Processed, sr.Mutations, len(sr.Failures))
	if !sr.HasChanges() {
		summary = fmt.Sprintf("No changes needed (%d processed, %d failed)", sr.Processed, len(sr.Failures))
	}

	kinds := make([]string, 0, len(sr.Decisions))
	for k := range sr.Decisions {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		summary += fmt.Sprintf(", %s=%d", k, sr.Decisions[reconcile.DecisionKind(k)])
	}

	if len(parts) > 0 {
		summary += " " + strings.Join(parts, " ")
	}
	return summary
}
