// Package kb defines the knowledge-base model (entities, claims,
// qualifiers and provenance records) and the Client boundary the
// reconciliation engine talks to.
package kb

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// EntityID identifies an item, e.g. "Q1234".
type EntityID string

// PropertyID identifies a property, e.g. "P2114".
type PropertyID string

// ValueKind discriminates Value.
type ValueKind int

const (
	KindItem ValueKind = iota
	KindString
	KindQuantity
	KindTime
	KindMonolingual
	// KindSomeValue is the unknown-target sentinel: a value exists but is not known.
	KindSomeValue
)

// Quantity is a stored amount with bounds. Unit is empty for dimensionless values.
type Quantity struct {
	Amount float64
	Lower  float64
	Upper  float64
	Unit   EntityID
}

// Time is a point in time with a precision (9 year, 10 month, 11 day).
type Time struct {
	Time      time.Time
	Precision int
}

// Time precisions.
const (
	PrecisionYear  = 9
	PrecisionMonth = 10
	PrecisionDay   = 11
)

// Value is the target of a snak.
type Value struct {
	Kind     ValueKind
	Item     EntityID
	String   string
	Language string
	Quantity Quantity
	Time     Time
}

// Item returns an item value.
func Item(id EntityID) Value { return Value{Kind: KindItem, Item: id} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, String: s} }

// Text returns a monolingual text value.
func Text(lang, s string) Value { return Value{Kind: KindMonolingual, Language: lang, String: s} }

// SomeValue returns the unknown-target sentinel.
func SomeValue() Value { return Value{Kind: KindSomeValue} }

// Amount returns a quantity value with symmetric uncertainty.
func Amount(v, uncertainty float64, unit EntityID) Value {
	return Value{Kind: KindQuantity, Quantity: Quantity{
		Amount: v,
		Lower:  v - uncertainty,
		Upper:  v + uncertainty,
		Unit:   unit,
	}}
}

// Date returns a time value truncated to precision.
func Date(t time.Time, precision int) Value {
	t = t.UTC()
	switch precision {
	case PrecisionYear:
		t = time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	case PrecisionMonth:
		t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return Value{Kind: KindTime, Time: Time{Time: t, Precision: precision}}
}

// Equal compares values the way provenance and target matching need:
// items by id, strings by text, times by precision-truncated instant
// and quantities exactly.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindItem:
		return v.Item == o.Item
	case KindString:
		return v.String == o.String
	case KindMonolingual:
		return v.String == o.String && v.Language == o.Language
	case KindTime:
		return v.Time.Precision == o.Time.Precision && v.Time.Time.Equal(o.Time.Time)
	case KindQuantity:
		return v.Quantity == o.Quantity
	default:
		return true
	}
}

// Display renders a value for logs and natural keys.
func (v Value) Display() string {
	switch v.Kind {
	case KindItem:
		return string(v.Item)
	case KindString, KindMonolingual:
		return v.String
	case KindTime:
		return v.Time.Time.Format(time.DateOnly)
	case KindQuantity:
		q := v.Quantity
		s := strconv.FormatFloat(q.Amount, 'g', -1, 64)
		if unc := math.Max(q.Upper-q.Amount, q.Amount-q.Lower); unc > 0 {
			s += "±" + strconv.FormatFloat(unc, 'g', 6, 64)
		}
		if q.Unit != "" {
			s += " " + string(q.Unit)
		}
		return s
	default:
		return "<somevalue>"
	}
}

// Snak is a property-value pair; Hash identifies a stored qualifier.
type Snak struct {
	Property PropertyID
	Value    Value
	Hash     string
}

// Reference is a provenance record attached to a claim.
type Reference struct {
	Hash  string
	Snaks []Snak
}

// Values returns the values the reference holds for p.
func (r Reference) Values(p PropertyID) []Value {
	var out []Value
	for _, s := range r.Snaks {
		if s.Property == p {
			out = append(out, s.Value)
		}
	}
	return out
}

// Claim is a statement on an entity.
type Claim struct {
	ID         string
	Property   PropertyID
	Value      Value
	Qualifiers []Snak
	References []Reference
}

// QualifierValues returns the qualifier snaks for p in stored order.
func (c Claim) QualifierValues(p PropertyID) []Snak {
	var out []Snak
	for _, q := range c.Qualifiers {
		if q.Property == p {
			out = append(out, q)
		}
	}
	return out
}

// HasQualifier reports whether a qualifier equal to s is present.
func (c Claim) HasQualifier(s Snak) bool {
	for _, q := range c.Qualifiers {
		if q.Property == s.Property && q.Value.Equal(s.Value) {
			return true
		}
	}
	return false
}

// Entity is an item with its labels and claims.
type Entity struct {
	ID           EntityID
	Labels       map[string]string
	Descriptions map[string]string
	Claims       map[PropertyID][]Claim
}

// ClaimsFor lists the entity's claims for a property.
func (e *Entity) ClaimsFor(p PropertyID) []Claim {
	if e == nil {
		return nil
	}
	return e.Claims[p]
}

// Draft is a new entity to create.
type Draft struct {
	Labels       map[string]string
	Descriptions map[string]string
	Aliases      map[string][]string
	Claims       []Claim
}

// Binding is one row of a graph query result.
type Binding map[string]string

// EntityIDFromURI strips a concept URI down to its id.
func EntityIDFromURI(uri string) EntityID {
	if i := strings.LastIndexByte(uri, '/'); i >= 0 {
		uri = uri[i+1:]
	}
	return EntityID(uri)
}

// NumericID returns the number of an id such as "Q42".
func (id EntityID) NumericID() (int, error) {
	n, err := strconv.Atoi(strings.TrimLeft(string(id), "QPL"))
	if err != nil {
		return 0, fmt.Errorf("entity id %q: %w", id, err)
	}
	return n, nil
}

// Client is the knowledge-base boundary. Mutations are synchronous and
// each one is a single remote edit.
type Client interface {
	// GetEntity looks up an entity with all its claims.
	GetEntity(ctx context.Context, id EntityID) (*Entity, error)
	// CreateClaim creates a claim with its qualifiers in one edit and returns its id.
	CreateClaim(ctx context.Context, entity EntityID, claim Claim) (string, error)
	// SetQualifier overwrites the qualifier with hash, or adds one when hash is empty.
	SetQualifier(ctx context.Context, claimID, hash string, qualifier Snak) error
	// RemoveQualifiers deletes qualifiers by hash.
	RemoveQualifiers(ctx context.Context, claimID string, hashes ...string) error
	// AddReference attaches a provenance record.
	AddReference(ctx context.Context, claimID string, ref Reference) error
	// ReplaceReference atomically replaces the record with hash.
	ReplaceReference(ctx context.Context, claimID, hash string, ref Reference) error
	// RemoveReferences deletes provenance records by hash.
	RemoveReferences(ctx context.Context, claimID string, hashes ...string) error
	// CreateEntity creates a new item and returns its id.
	CreateEntity(ctx context.Context, draft Draft) (EntityID, error)
	// Query runs a read-only graph query.
	Query(ctx context.Context, sparql string) ([]Binding, error)
}

type summaryKey struct{}

// WithEditSummary attaches an edit summary to mutations made with ctx.
func WithEditSummary(ctx context.Context, summary string) context.Context {
	return context.WithValue(ctx, summaryKey{}, summary)
}

// EditSummary returns the edit summary attached to ctx.
func EditSummary(ctx context.Context) string {
	s, _ := ctx.Value(summaryKey{}).(string)
	return s
}
