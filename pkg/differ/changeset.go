// Package differ filters normalized rows against the state the
// knowledge base already records, so only rows that would change
// something reach reconciliation.
package differ

import (
	"fmt"
	"strings"

	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/normalize"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates the fact is absent from the knowledge base.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates the knowledge base holds a different value.
	ChangeTypeUpdate ChangeType = "update"
)

// FieldChange represents a change to a specific fact of a nuclide.
type FieldChange struct {
	Entity   kb.EntityID
	Path     string // fact kind, e.g. "half_life" or "decay.B-"
	OldValue string
	NewValue string
	Type     ChangeType
}

// Changeset is the result of filtering a batch.
type Changeset struct {
	Changed   normalize.Batch // rows that need reconciliation
	Unchanged map[normalize.Kind]int
	Unknown   []kb.EntityID // row entities absent from the nuclide index
	Changes   []FieldChange
	Summary   ChangesetSummary
}

// ChangesetSummary provides summary statistics for a changeset.
type ChangesetSummary struct {
	HalfLivesChanged  int
	DecaysChanged     int
	SpinParityChanged int
	AbundancesChanged int
	UnchangedRows     int
	TotalChanges      int
}

// HasChanges returns true if any row needs reconciliation.
func (c *Changeset) HasChanges() bool {
	return c.Summary.TotalChanges > 0
}

func (c *Changeset) summarize() {
	unchanged := 0
	for _, n := range c.Unchanged {
		unchanged += n
	}
	c.Summary = ChangesetSummary{
		HalfLivesChanged:  len(c.Changed.HalfLives),
		DecaysChanged:     len(c.Changed.Decays),
		SpinParityChanged: len(c.Changed.SpinParity),
		AbundancesChanged: len(c.Changed.Abundances),
		UnchangedRows:     unchanged,
		TotalChanges:      c.Changed.Len(),
	}
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if !c.HasChanges() {
		return fmt.Sprintf("No changes (%d rows already recorded)", c.Summary.UnchangedRows)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Changes: %d\n", c.Summary.TotalChanges)
	fmt.Fprintf(&sb, "  Half-lives: %d\n", c.Summary.HalfLivesChanged)
	fmt.Fprintf(&sb, "  Decays: %d\n", c.Summary.DecaysChanged)
	fmt.Fprintf(&sb, "  Spin/parity: %d\n", c.Summary.SpinParityChanged)
	fmt.Fprintf(&sb, "  Abundances: %d\n", c.Summary.AbundancesChanged)
	fmt.Fprintf(&sb, "Unchanged: %d", c.Summary.UnchangedRows)
	if len(c.Unknown) > 0 {
		fmt.Fprintf(&sb, "\nUnknown entities: %d", len(c.Unknown))
	}
	return sb.String()
}
