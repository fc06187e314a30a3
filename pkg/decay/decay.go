// Package decay models nuclear decay modes as ordered (ΔZ, ΔN) steps.
//
// A mode symbol such as "β-n" (beta-minus then neutron emission) decodes
// to the canonical code "B-|N" and the steps [(+1,-1), (0,-1)]. Modes the
// table cannot resolve, spontaneous fission or cluster emission for
// example, yield no product rather than a guess.
package decay

import (
	"strings"
)

// Delta is the change in proton and neutron number of one step.
type Delta struct {
	Z int
	N int
}

// Steps is the ordered sequence of a (possibly compound) decay mode.
type Steps []Delta

// Total is the combined change of all steps.
func (s Steps) Total() Delta {
	var d Delta
	for _, step := range s {
		d.Z += step.Z
		d.N += step.N
	}
	return d
}

// Nucleons identifies a nuclide by proton and neutron number.
type Nucleons struct {
	Z int
	N int
}

// base step symbols, longest first so "EC" and "IT" win over prefixes.
var base = []struct {
	symbol string
	delta  Delta
}{
	{"B-", Delta{Z: +1, N: -1}},
	{"B+", Delta{Z: -1, N: +1}},
	{"EC", Delta{Z: -1, N: +1}},
	{"IT", Delta{Z: 0, N: 0}},
	{"A", Delta{Z: -2, N: -2}},
	{"N", Delta{Z: 0, N: -1}},
	{"P", Delta{Z: -1, N: 0}},
}

var glyphs = strings.NewReplacer(
	"β", "B",
	"ε", "EC",
	"α", "A",
	"−", "-",
)

// Canonical rewrites source notation ("β-n", "2ε") to upper-case ASCII
// ("B-N", "2EC").
func Canonical(symbol string) string {
	return strings.ToUpper(glyphs.Replace(strings.TrimSpace(symbol)))
}

type part struct {
	code  string
	delta Delta
}

func decode(symbol string) ([]part, bool) {
	s := Canonical(symbol)
	if s == "" {
		return nil, false
	}

	var parts []part
	for len(s) > 0 {
		mult := 1
		prefix := ""
		if c := s[0]; c >= '2' && c <= '9' {
			mult = int(c - '0')
			prefix = s[:1]
			s = s[1:]
		}

		matched := false
		for _, b := range base {
			if strings.HasPrefix(s, b.symbol) {
				parts = append(parts, part{
					code:  prefix + b.symbol,
					delta: Delta{Z: mult * b.delta.Z, N: mult * b.delta.N},
				})
				s = s[len(b.symbol):]
				matched = true
				break
			}
		}
		if !matched {
			return nil, false
		}
	}
	return parts, true
}

// Code returns the canonical pipe-delimited code of a mode symbol.
func Code(symbol string) (string, bool) {
	parts, ok := decode(strings.ReplaceAll(symbol, "|", ""))
	if !ok {
		return "", false
	}
	codes := make([]string, len(parts))
	for i, p := range parts {
		codes[i] = p.code
	}
	return strings.Join(codes, "|"), true
}

// Decode returns the per-step deltas of a mode symbol or
// pipe-delimited code.
func Decode(symbol string) (Steps, bool) {
	parts, ok := decode(strings.ReplaceAll(symbol, "|", ""))
	if !ok {
		return nil, false
	}
	steps := make(Steps, len(parts))
	for i, p := range parts {
		steps[i] = p.delta
	}
	return steps, true
}

// Apply returns the product of the decay of (z, n) by symbol. It reports
// false when any step is unresolved.
func Apply(z, n int, symbol string) (Nucleons, bool) {
	steps, ok := Decode(symbol)
	if !ok {
		return Nucleons{}, false
	}
	d := steps.Total()
	product := Nucleons{Z: z + d.Z, N: n + d.N}
	if product.Z < 0 || product.N < 0 {
		return Nucleons{}, false
	}
	return product, true
}
