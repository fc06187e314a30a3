package decay

import (
	"strconv"
	"strings"
)

// Branch is one decay mode of a nuclide with its optional percentage.
type Branch struct {
	Mode    string
	Percent *float64
}

var noise = strings.NewReplacer(
	"≤", "", "≥", "", "≈", "", "<", "", ">", "",
	":", "", "%", "", "=", "",
)

// ParseModes splits decay-mode text such as "β- : 98.2 % ε : 1.8 %" into
// branches. A number attaches to the mode before it; comparison glyphs
// and separators are dropped, so a bound ("≤ 0.1") reads as its value.
func ParseModes(text string) []Branch {
	var branches []Branch
	for _, raw := range strings.Fields(text) {
		token := noise.Replace(raw)
		if token == "" {
			continue
		}

		if pct, err := strconv.ParseFloat(token, 64); err == nil {
			last := len(branches) - 1
			if last >= 0 && branches[last].Percent == nil {
				branches[last].Percent = &pct
			}
			continue
		}

		branches = append(branches, Branch{Mode: token})
	}
	return branches
}
