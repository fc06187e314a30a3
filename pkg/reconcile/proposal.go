package reconcile

import (
	"fmt"
	"strconv"

	"github.com/agentstation/factsync/pkg/kb"
)

// Proposal is a fact we want the knowledge base to hold.
type Proposal interface {
	// Property is the claim property the fact lives under.
	Property() kb.PropertyID
	// Key is the natural key used in logs and reports.
	Key() string
	// Match finds an existing claim already expressing the fact.
	Match(claims []kb.Claim, tol Tolerance) (kb.Claim, bool)
	// Claim builds the new claim with its mandatory qualifiers.
	Claim() kb.Claim
}

// QuantityProposal is a measured value such as a half-life or abundance.
type QuantityProposal struct {
	Prop        kb.PropertyID
	Value       float64
	Uncertainty float64
	Unit        kb.EntityID
	// Qualifiers are written with a new claim.
	Qualifiers []kb.Snak
	// ValueOnly matches on the central value alone, for exact
	// quantum numbers.
	ValueOnly bool
}

func (p QuantityProposal) Property() kb.PropertyID { return p.Prop }

func (p QuantityProposal) Key() string {
	return fmt.Sprintf("%s %s", p.Prop, kb.Amount(p.Value, p.Uncertainty, p.Unit).Display())
}

func (p QuantityProposal) Match(claims []kb.Claim, tol Tolerance) (kb.Claim, bool) {
	if p.ValueOnly {
		return MatchValue(claims, p.Value, tol)
	}
	return MatchClaim(claims, p.Value, p.Uncertainty, tol)
}

func (p QuantityProposal) Claim() kb.Claim {
	return kb.Claim{
		Property:   p.Prop,
		Value:      kb.Amount(p.Value, p.Uncertainty, p.Unit),
		Qualifiers: append([]kb.Snak(nil), p.Qualifiers...),
	}
}

// RelationProposal links an entity to a target, such as a decay product
// qualified by its decay mode.
type RelationProposal struct {
	Prop   kb.PropertyID
	Target kb.Value
	// Required qualifiers must be present on a matching claim.
	Required []kb.Snak
	// Percent is the optional branching percentage.
	Percent *float64
	// ReplaceWholesale replaces an incomplete provenance record instead
	// of attaching a second one.
	ReplaceWholesale bool
}

func (p RelationProposal) Property() kb.PropertyID { return p.Prop }

func (p RelationProposal) Key() string {
	key := fmt.Sprintf("%s %s", p.Prop, p.Target.Display())
	for _, q := range p.Required {
		key += fmt.Sprintf(" %s=%s", q.Property, q.Value.Display())
	}
	if p.Percent != nil {
		key += " " + strconv.FormatFloat(*p.Percent, 'g', -1, 64) + "%"
	}
	return key
}

func (p RelationProposal) Match(claims []kb.Claim, _ Tolerance) (kb.Claim, bool) {
	return MatchClaimWithQualifiers(claims, p.Target, p.Required)
}

func (p RelationProposal) Claim() kb.Claim {
	qualifiers := append([]kb.Snak(nil), p.Required...)
	if f, ok := p.Fraction(); ok {
		qualifiers = append(qualifiers, kb.Snak{Property: kb.PropProportion, Value: kb.Amount(f, 0, "")})
	}
	return kb.Claim{Property: p.Prop, Value: p.Target, Qualifiers: qualifiers}
}

// Fraction is the branching percentage as a fraction of one.
func (p RelationProposal) Fraction() (float64, bool) {
	if p.Percent == nil {
		return 0, false
	}
	return *p.Percent * 0.01, true
}

// IdentifierProposal is an external identifier string, such as a GRID id.
type IdentifierProposal struct {
	Prop kb.PropertyID
	ID   string
}

func (p IdentifierProposal) Property() kb.PropertyID { return p.Prop }

func (p IdentifierProposal) Key() string { return fmt.Sprintf("%s %s", p.Prop, p.ID) }

func (p IdentifierProposal) Match(claims []kb.Claim, _ Tolerance) (kb.Claim, bool) {
	return MatchClaimWithQualifiers(claims, kb.String(p.ID), nil)
}

func (p IdentifierProposal) Claim() kb.Claim {
	return kb.Claim{Property: p.Prop, Value: kb.String(p.ID)}
}
