package reconcile

import (
	"math"

	"github.com/agentstation/factsync/pkg/constants"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/provenance"
)

// Tolerance bounds float comparison of stored and proposed quantities.
// Two numbers match when they differ by at most Absolute, or by Relative
// times the magnitude of the quantity for large values where float
// rounding in stored bounds exceeds Absolute.
type Tolerance struct {
	Absolute float64
	Relative float64
}

// DefaultTolerance returns the claim matching tolerance.
func DefaultTolerance() Tolerance {
	return Tolerance{Absolute: constants.ClaimTolerance, Relative: constants.ClaimRelativeTolerance}
}

func (t Tolerance) close(a, b, magnitude float64) bool {
	return math.Abs(a-b) <= math.Max(t.Absolute, t.Relative*magnitude)
}

// MatchClaim returns the first quantity claim whose central value is
// within tolerance of value and whose lower and upper distances both
// match uncertainty.
func MatchClaim(claims []kb.Claim, value, uncertainty float64, tol Tolerance) (kb.Claim, bool) {
	for _, c := range claims {
		if c.Value.Kind != kb.KindQuantity {
			continue
		}
		q := c.Value.Quantity
		magnitude := math.Max(math.Abs(value), math.Abs(q.Amount))
		if !tol.close(q.Amount, value, magnitude) {
			continue
		}
		if tol.close(q.Amount-q.Lower, uncertainty, magnitude) && tol.close(q.Upper-q.Amount, uncertainty, magnitude) {
			return c, true
		}
	}
	return kb.Claim{}, false
}

// MatchValue returns the first quantity claim whose central value is
// within tolerance of value, ignoring bounds.
func MatchValue(claims []kb.Claim, value float64, tol Tolerance) (kb.Claim, bool) {
	for _, c := range claims {
		if c.Value.Kind != kb.KindQuantity {
			continue
		}
		q := c.Value.Quantity
		if tol.close(q.Amount, value, math.Max(math.Abs(value), math.Abs(q.Amount))) {
			return c, true
		}
	}
	return kb.Claim{}, false
}

// MatchClaimWithQualifiers returns the first claim whose target equals
// target (two unknown targets are equal) and which carries every
// required qualifier.
func MatchClaimWithQualifiers(claims []kb.Claim, target kb.Value, required []kb.Snak) (kb.Claim, bool) {
	for _, c := range claims {
		if !c.Value.Equal(target) {
			continue
		}
		complete := true
		for _, q := range required {
			if !c.HasQualifier(q) {
				complete = false
				break
			}
		}
		if complete {
			return c, true
		}
	}
	return kb.Claim{}, false
}

// SourceIsAttributed reports whether claim carries a provenance record
// holding every required field of src.
func SourceIsAttributed(claim kb.Claim, src provenance.Source) bool {
	return provenance.IsAttributed(claim, src)
}

// UpdateBranchingFraction checks the proportion qualifiers of claim
// against fraction. When some qualifier's bounds contain it, nothing is
// needed and nil is returned. Otherwise the last proportion qualifier is
// overwritten, or a new one added, with a zero-uncertainty value.
func UpdateBranchingFraction(claim kb.Claim, fraction float64) *Decision {
	hash := ""
	for _, q := range claim.QualifierValues(kb.PropProportion) {
		if q.Value.Kind == kb.KindQuantity {
			b := q.Value.Quantity
			if fraction >= b.Lower && fraction <= b.Upper {
				return nil
			}
		}
		hash = q.Hash
	}

	qualifier := kb.Snak{Property: kb.PropProportion, Value: kb.Amount(fraction, 0, "")}
	return &Decision{
		Kind:          UpdateQualifier,
		ClaimID:       claim.ID,
		Qualifier:     &qualifier,
		QualifierHash: hash,
	}
}
