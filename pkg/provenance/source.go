// Package provenance describes where a fact came from: the fields a
// provenance record must carry to count as attribution, the full record
// written when one is missing, and a tracker of what a run wrote.
package provenance

import (
	"time"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
)

// Field is one required property-value pair of a provenance record.
type Field struct {
	Property kb.PropertyID
	Value    kb.Value
}

// Source is the provenance of a fact. Required fields decide whether an
// existing record counts as attribution. Extra fields, typically the
// retrieval date, are written with new records but never compared.
type Source struct {
	Required []Field
	Extra    []Field
}

// Record builds the full provenance record for a new attachment.
func (s Source) Record() kb.Reference {
	snaks := make([]kb.Snak, 0, len(s.Required)+len(s.Extra))
	for _, f := range s.Required {
		snaks = append(snaks, kb.Snak{Property: f.Property, Value: f.Value})
	}
	for _, f := range s.Extra {
		snaks = append(snaks, kb.Snak{Property: f.Property, Value: f.Value})
	}
	return kb.Reference{Snaks: snaks}
}

// Anchor is the field identifying which dataset a record cites; a record
// that carries it but fails the other fields is incomplete.
func (s Source) Anchor() (Field, bool) {
	if len(s.Required) == 0 {
		return Field{}, false
	}
	return s.Required[0], true
}

// Validate fails a source with no required field, which no reference
// could ever satisfy.
func (s Source) Validate() error {
	if len(s.Required) == 0 {
		return errors.NewValidationError("source", s.Extra, "at least one required field is needed")
	}
	return nil
}

// Satisfies reports whether ref holds a matching value for every
// required field. Fields of ref that are not required are ignored.
func (s Source) Satisfies(ref kb.Reference) bool {
	if len(s.Required) == 0 {
		return false
	}
	for _, f := range s.Required {
		if !holds(ref, f) {
			return false
		}
	}
	return true
}

// Incomplete reports whether ref cites the anchor but not every
// required field.
func (s Source) Incomplete(ref kb.Reference) bool {
	anchor, ok := s.Anchor()
	return ok && holds(ref, anchor) && !s.Satisfies(ref)
}

func holds(ref kb.Reference, f Field) bool {
	for _, v := range ref.Values(f.Property) {
		if v.Equal(f.Value) {
			return true
		}
	}
	return false
}

// IsAttributed reports whether at least one record attached to claim
// satisfies s.
func IsAttributed(claim kb.Claim, s Source) bool {
	for _, ref := range claim.References {
		if s.Satisfies(ref) {
			return true
		}
	}
	return false
}

// Release identifies a dataset snapshot in the knowledge base.
type Release struct {
	Item    kb.EntityID // the release marker item
	Dataset kb.EntityID // the database the release is an edition of
	Edition string
	Title   string
}

// Cite builds the source for a fact read from url in this release.
// Stated-in points at the release marker; the edition string and
// reference URL are required too, and the retrieval date is written
// but not compared.
func (r Release) Cite(url string, retrieved time.Time) Source {
	statedIn := r.Item
	if statedIn == "" {
		statedIn = r.Dataset
	}
	s := Source{
		Required: []Field{{Property: kb.PropStatedIn, Value: kb.Item(statedIn)}},
	}
	if r.Edition != "" {
		s.Required = append(s.Required, Field{Property: kb.PropEditionNumber, Value: kb.String(r.Edition)})
	}
	if url != "" {
		s.Required = append(s.Required, Field{Property: kb.PropReferenceURL, Value: kb.String(url)})
	}
	if !retrieved.IsZero() {
		s.Extra = append(s.Extra, Field{Property: kb.PropRetrieved, Value: kb.Date(retrieved, kb.PrecisionDay)})
	}
	return s
}

// Publication is a dataset cited by DOI rather than by an item, as the
// GRID releases are.
type Publication struct {
	DOI     string
	Edition string
	URL     string
}

// Cite builds the source for a fact from the publication.
func (p Publication) Cite() Source {
	s := Source{}
	if p.DOI != "" {
		s.Required = append(s.Required, Field{Property: kb.PropDOI, Value: kb.String(p.DOI)})
	}
	if p.Edition != "" {
		s.Required = append(s.Required, Field{Property: kb.PropEditionNumber, Value: kb.String(p.Edition)})
	}
	if p.URL != "" {
		s.Required = append(s.Required, Field{Property: kb.PropReferenceURL, Value: kb.String(p.URL)})
	}
	return s
}
