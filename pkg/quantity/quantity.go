// Package quantity parses measurement strings in nuclear-data style,
// where an uncertainty is written in units of the last significant digit
// of the value: "4.623 3" means 4.623 ± 0.003 (1-sigma).
package quantity

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentstation/factsync/pkg/errors"
)

// Policy says what uncertainty a caller assumes when the source gives none.
type Policy int

const (
	// ZeroIfAbsent treats a missing uncertainty as exact.
	ZeroIfAbsent Policy = iota
	// ValueIfAbsent treats a missing uncertainty as large as the value itself.
	ValueIfAbsent
)

// Measurement is a parsed value with its symmetric 1-sigma uncertainty.
type Measurement struct {
	Value          float64
	Uncertainty    float64
	HasUncertainty bool

	// Qualifier holds a non-numeric uncertainty marker such as "AP" or "LT".
	Qualifier string
}

// UncertaintyOr returns the uncertainty, applying p when none was given.
func (m Measurement) UncertaintyOr(p Policy) float64 {
	if m.HasUncertainty {
		return m.Uncertainty
	}
	if p == ValueIfAbsent {
		return m.Value
	}
	return 0
}

var (
	valueUnitPattern = regexp.MustCompile(`([-\d\.Ee\+]+)\s+(\S+)\s*$`)
	exponentPattern  = regexp.MustCompile(`[Ee]([-\+]?\d+)$`)
	upperLowerBounds = regexp.MustCompile(`^\+([\d\.]+)\-([\d\.]+)$`)
	lowerUpperBounds = regexp.MustCompile(`^\-([\d\.]+)\+([\d\.]+)$`)
)

// qualifiers are uncertainty markers that carry no numeric value.
var qualifiers = map[string]bool{
	"AP": true, // approximate
	"CA": true, // calculated
	"SY": true, // from systematics
	"LT": true, // less than
	"GT": true, // greater than
	"LE": true, // less than or equal
	"GE": true, // greater than or equal
	"?":  true, // uncertain
}

// SplitUnit separates a "number unit" cell such as "5.70E+3 y".
func SplitUnit(cell string) (number, unit string, err error) {
	m := valueUnitPattern.FindStringSubmatch(strings.TrimSpace(cell))
	if m == nil {
		return "", "", errors.NewParseError("value", cell, "expected a number followed by a unit")
	}
	return m[1], m[2], nil
}

// Scale returns the magnitude of one unit in the last significant digit
// of number: 10^(exponent - digits after the decimal point). A number
// without a decimal point has scale 1, whatever its exponent.
func Scale(number string) (float64, error) {
	number = strings.TrimSpace(number)
	if _, err := strconv.ParseFloat(number, 64); err != nil {
		return 0, errors.NewParseError("value", number, "not a number")
	}
	if !strings.Contains(number, ".") {
		return 1, nil
	}

	mantissa := number
	expt := 0
	if m := exponentPattern.FindStringSubmatchIndex(number); m != nil {
		e, err := strconv.Atoi(number[m[2]:m[3]])
		if err != nil {
			return 0, errors.WrapParse("value", number, err)
		}
		expt = e
		mantissa = number[:m[0]]
	}

	digits := 0
	if i := strings.IndexByte(mantissa, '.'); i >= 0 {
		digits = len(mantissa) - i - 1
	}
	return math.Pow(10, float64(expt-digits)), nil
}

// Parse reads a value and its uncertainty. The value may carry an embedded
// uncertainty ("4.623 3"); otherwise the separate uncertainty token is used.
// The token may be a number, "+U-L" or "-L+U". Asymmetric bounds collapse
// to max(U, L), losing the asymmetry.
func Parse(value, uncertainty string) (Measurement, error) {
	fields := strings.Fields(value)
	switch len(fields) {
	case 1:
	case 2:
		if strings.TrimSpace(uncertainty) != "" {
			return Measurement{}, errors.NewParseError("value", value, "uncertainty given twice")
		}
		uncertainty = fields[1]
	default:
		return Measurement{}, errors.NewParseError("value", value, "expected a value and an optional uncertainty")
	}

	number := fields[0]
	v, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return Measurement{}, errors.NewParseError("value", value, "not a number")
	}
	scale, err := Scale(number)
	if err != nil {
		return Measurement{}, err
	}

	m := Measurement{Value: v}
	token := strings.TrimSpace(uncertainty)
	if token == "" {
		return m, nil
	}
	if qualifiers[strings.ToUpper(token)] {
		m.Qualifier = strings.ToUpper(token)
		return m, nil
	}

	u, err := parseUncertainty(token)
	if err != nil {
		return Measurement{}, err
	}
	m.Uncertainty = u * scale
	m.HasUncertainty = true
	return m, nil
}

func parseUncertainty(token string) (float64, error) {
	if bounds := upperLowerBounds.FindStringSubmatch(token); bounds != nil {
		return maxOf(token, bounds[1], bounds[2])
	}
	if bounds := lowerUpperBounds.FindStringSubmatch(token); bounds != nil {
		return maxOf(token, bounds[1], bounds[2])
	}
	u, err := strconv.ParseFloat(token, 64)
	if err != nil || u < 0 {
		return 0, errors.NewParseError("uncertainty", token, "not a non-negative number or bound pair")
	}
	return u, nil
}

func maxOf(token, a, b string) (float64, error) {
	x, errA := strconv.ParseFloat(a, 64)
	y, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil {
		return 0, errors.NewParseError("uncertainty", token, "bounds are not numeric")
	}
	return math.Max(x, y), nil
}
