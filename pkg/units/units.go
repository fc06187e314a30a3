// Package units maps source unit tokens to canonical knowledge-base unit
// items and applies the half-life normalization rules: sub-femtosecond
// seconds become attoseconds and energy level widths become attoseconds.
package units

import (
	"math"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/factsync/pkg/errors"
)

// ID is a canonical unit, identified by its knowledge-base item.
type ID string

// Canonical unit items.
const (
	Second      ID = "Q11574"
	Minute      ID = "Q7727"
	Hour        ID = "Q25235"
	Day         ID = "Q573"
	Week        ID = "Q23387"
	Month       ID = "Q5151"
	Year        ID = "Q1092296"
	CalendarYr  ID = "Q577"
	Millisecond ID = "Q723733"
	Microsecond ID = "Q842015"
	Nanosecond  ID = "Q838801"
	Picosecond  ID = "Q3902709"
	Femtosecond ID = "Q1777507"
	Attosecond  ID = "Q2483628"
)

// Kind separates durations from energies.
type Kind int

const (
	Time Kind = iota
	Energy
)

// Unit describes one source token.
type Unit struct {
	Token string
	ID    ID // empty for energies, which are converted away
	Kind  Kind
	// Factor is seconds per unit for Time and eV per unit for Energy.
	Factor float64
}

// PlanckH is Planck's constant in eV·s.
const PlanckH = 4.135667662e-15

// planckRatio turns a level width in eV into a half-life in attoseconds:
// ln(2)·h/(2π)/Γ. Evaluated at run time so the result carries float64
// rounding at each step.
var planckRatio = func() float64 {
	h := PlanckH
	return math.Log(2.0) * h * 1.0e18 / (2 * math.Pi)
}()

// PlanckRatio returns ln(2)·h·1e18/(2π).
func PlanckRatio() float64 { return planckRatio }

// Table is an immutable token and id lookup.
type Table struct {
	byToken map[string]Unit
	seconds map[ID]float64
	labels  map[ID]string
}

var defaultTable = sync.OnceValue(func() *Table {
	t := &Table{
		byToken: make(map[string]Unit),
		seconds: map[ID]float64{
			Second:      1.0,
			Minute:      60.0,
			Hour:        3600.0,
			Day:         86400.0,
			Week:        604800.0,
			Month:       2.630e6,
			Year:        3.156e7,
			CalendarYr:  3.156e7,
			Millisecond: 1.0e-3,
			Microsecond: 1.0e-6,
			Nanosecond:  1.0e-9,
			Picosecond:  1.0e-12,
			Femtosecond: 1.0e-15,
			Attosecond:  1.0e-18,
		},
		labels: make(map[ID]string),
	}

	timeTokens := []struct {
		token string
		id    ID
	}{
		{"s", Second}, {"m", Minute}, {"h", Hour}, {"d", Day}, {"y", Year},
		{"ms", Millisecond}, {"μs", Microsecond}, {"us", Microsecond},
		{"ns", Nanosecond}, {"ps", Picosecond}, {"fs", Femtosecond}, {"as", Attosecond},
	}
	for _, tt := range timeTokens {
		t.byToken[tt.token] = Unit{Token: tt.token, ID: tt.id, Kind: Time, Factor: t.seconds[tt.id]}
		if _, ok := t.labels[tt.id]; !ok {
			t.labels[tt.id] = tt.token
		}
	}
	for token, ev := range map[string]float64{"eV": 1.0, "keV": 1000.0, "MeV": 1.0e6} {
		t.byToken[token] = Unit{Token: token, Kind: Energy, Factor: ev}
	}
	return t
})

// Default returns the shared table.
func Default() *Table {
	return defaultTable()
}

// canonicalToken folds compatibility characters (the micro sign becomes
// Greek mu) and the source's "µS" spelling of microseconds.
func canonicalToken(token string) string {
	token = norm.NFKC.String(strings.TrimSpace(token))
	if strings.HasSuffix(token, "S") && strings.HasPrefix(token, "μ") {
		token = strings.TrimSuffix(token, "S") + "s"
	}
	return token
}

// Lookup finds the unit for a source token.
func (t *Table) Lookup(token string) (Unit, bool) {
	u, ok := t.byToken[canonicalToken(token)]
	return u, ok
}

// Label returns the short token of a canonical time unit.
func (t *Table) Label(id ID) (string, bool) {
	l, ok := t.labels[id]
	return l, ok
}

// Seconds converts an amount of a canonical time unit to seconds.
func (t *Table) Seconds(amount float64, id ID) (float64, error) {
	f, ok := t.seconds[id]
	if !ok {
		return 0, errors.NewNotFoundError("time unit", string(id))
	}
	return amount * f, nil
}

// Quantity is a normalized half-life.
type Quantity struct {
	Value       float64
	Uncertainty float64
	Unit        ID
	Label       string
}

// NormalizeHalfLife converts a source value into a canonical time quantity.
// Seconds below 1e-15 are rewritten to attoseconds first, then energy
// widths in eV, keV or MeV are converted to attoseconds with the
// uncertainty rescaled by the ratio of new to old value.
func (t *Table) NormalizeHalfLife(value, uncertainty float64, token string) (Quantity, error) {
	u, ok := t.Lookup(token)
	if !ok {
		return Quantity{}, errors.NewNotFoundError("unit", token)
	}

	if u.Kind == Time && u.ID == Second && value < 1.0e-15 {
		value *= 1.0e18
		uncertainty *= 1.0e18
		u = t.byToken["as"]
	}

	if u.Kind == Energy {
		if value == 0 {
			return Quantity{}, errors.NewValidationError("value", value, "zero level width")
		}
		converted := planckRatio / (u.Factor * value)
		uncertainty *= converted / value
		value = converted
		u = t.byToken["as"]
	}

	return Quantity{Value: value, Uncertainty: uncertainty, Unit: u.ID, Label: u.Token}, nil
}

// TimespansDiffer reports whether amount of unit id differs from
// seconds by more than the relative tolerance. Both absent is equal.
func (t *Table) TimespansDiffer(amount *float64, id ID, seconds *float64, tol float64) bool {
	if amount == nil || seconds == nil {
		return amount != nil || seconds != nil
	}
	a, err := t.Seconds(*amount, id)
	if err != nil {
		return true
	}
	return math.Abs(a-*seconds) > tol*math.Abs(*seconds)
}

// FloatsDiffer reports whether two optional values differ by
// at least tol. Both absent is equal.
func FloatsDiffer(a, b *float64, tol float64) bool {
	if a == nil || b == nil {
		return a != nil || b != nil
	}
	return math.Abs(*a-*b) >= tol
}
