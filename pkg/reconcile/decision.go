package reconcile

import (
	"fmt"
	"strings"

	"github.com/agentstation/factsync/pkg/kb"
)

// DecisionKind is what reconciliation decided to do about one fact.
type DecisionKind string

const (
	NoOp            DecisionKind = "noop"
	CreateClaim     DecisionKind = "create_claim"
	AttachSource    DecisionKind = "attach_source"
	ReplaceSource   DecisionKind = "replace_source"
	UpdateQualifier DecisionKind = "update_qualifier"
	CreateEntity    DecisionKind = "create_entity"
)

// Mutates reports whether the decision edits the knowledge base.
func (k DecisionKind) Mutates() bool {
	return k != NoOp
}

// Decision is one step of a plan. An empty ClaimID refers to the claim
// created by the preceding CreateClaim of the same plan.
type Decision struct {
	Kind          DecisionKind
	ClaimID       string
	Claim         *kb.Claim
	Draft         *kb.Draft
	Reference     *kb.Reference
	ReferenceHash string
	Qualifier     *kb.Snak
	QualifierHash string
}

// String describes the decision.
func (d Decision) String() string {
	switch d.Kind {
	case CreateClaim:
		return fmt.Sprintf("create %s %s", d.Claim.Property, d.Claim.Value.Display())
	case AttachSource:
		return "attach source to " + orNew(d.ClaimID)
	case ReplaceSource:
		return fmt.Sprintf("replace source %s on %s", d.ReferenceHash, d.ClaimID)
	case UpdateQualifier:
		verb := "overwrite"
		if d.QualifierHash == "" {
			verb = "add"
		}
		return fmt.Sprintf("%s %s qualifier %s on %s", verb, d.Qualifier.Property, d.Qualifier.Value.Display(), d.ClaimID)
	case CreateEntity:
		return "create entity " + d.Draft.Labels["en"]
	default:
		return "no change"
	}
}

func orNew(id string) string {
	if id == "" {
		return "new claim"
	}
	return id
}

// Plan is the ordered decisions for one fact on one entity.
type Plan struct {
	Entity    kb.EntityID
	Property  kb.PropertyID
	Fact      string
	Decisions []Decision
}

func (p *Plan) add(d Decision) {
	p.Decisions = append(p.Decisions, d)
}

// Mutations counts the decisions that edit the knowledge base.
func (p *Plan) Mutations() int {
	n := 0
	for _, d := range p.Decisions {
		if d.Kind.Mutates() {
			n++
		}
	}
	return n
}

// Kinds lists the decision kinds in order.
func (p *Plan) Kinds() []DecisionKind {
	kinds := make([]DecisionKind, len(p.Decisions))
	for i, d := range p.Decisions {
		kinds[i] = d.Kind
	}
	return kinds
}

// String summarizes the plan on one line.
func (p *Plan) String() string {
	parts := make([]string, len(p.Decisions))
	for i, d := range p.Decisions {
		parts[i] = d.String()
	}
	return fmt.Sprintf("%s %s: %s", p.Entity, p.Fact, strings.Join(parts, "; "))
}
