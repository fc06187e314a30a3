package nudat

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/agentstation/factsync/pkg/errors"
)

// firmJPi is a spin and parity assignment without tentative markers:
// "0+", "3/2-", "7".
var firmJPi = regexp.MustCompile(`^(\d+(?:/\d+)?)([+-]?)$`)

// JPi is a parsed level assignment. Parity is +1 or -1, nil when
// the source gives none.
type JPi struct {
	Spin   float64
	Parity *int
}

// ParseJPi parses a level's J-pi cell. Tentative assignments, written in
// parentheses or flagged with "#" for systematics, and multiple
// candidates are rejected rather than guessed.
func ParseJPi(s string) (JPi, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "−", "-"))
	if strings.ContainsAny(s, "()[]#,") {
		return JPi{}, errors.NewParseError("spin", s, "tentative assignment")
	}
	m := firmJPi.FindStringSubmatch(s)
	if m == nil {
		return JPi{}, errors.NewParseError("spin", s, "unrecognized J-pi")
	}

	r, ok := new(big.Rat).SetString(m[1])
	if !ok {
		return JPi{}, errors.NewParseError("spin", s, "bad spin fraction")
	}
	spin, _ := r.Float64()

	out := JPi{Spin: spin}
	switch m[2] {
	case "+":
		p := 1
		out.Parity = &p
	case "-":
		p := -1
		out.Parity = &p
	}
	return out, nil
}
