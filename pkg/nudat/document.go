// Package nudat reads nuclear level data from the NuDat tabular source:
// one HTML document per (Z, N), with one table row of class "cp" per
// level.
package nudat

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/nuclide"
	"github.com/agentstation/factsync/pkg/quantity"
)

// Kind is the measured quantity a raw record carries.
type Kind string

const (
	HalfLife   Kind = "half_life"
	Abundance  Kind = "abundance"
	DecayModes Kind = "decay_modes"
	SpinParity Kind = "spin_parity"
)

// Raw is one measurement as extracted, before any parsing of numbers.
type Raw struct {
	Key         nuclide.Key
	Kind        Kind
	Value       string
	Uncertainty string
	Unit        string
	URL         string
}

// Level is one row of a document.
type Level struct {
	Energy       string
	JPi          string
	MassExcess   string
	HalfLife     string // "5.70E+3 y", or "STABLE"
	HalfLifeUnc  string
	Abundance    string
	AbundanceUnc string
	DecayModes   string
}

// Ground reports whether the level is the ground state.
func (l Level) Ground() bool {
	e := strings.TrimSpace(l.Energy)
	return e == "0.0" || e == "0"
}

// Document is the parsed source page for one (Z, N).
type Document struct {
	URL    string
	Levels []Level
}

// Cell offsets of a level row. Rows that open a nucleus carry a leading
// nucleus-name cell and are one cell wider.
const (
	colEnergy = iota
	colJPi
	colMassExcess
	colHalfLife
	colAbundance
	colDecayModes
	levelCells
)

// Parse reads a document. A page without level rows yields an empty
// document, not an error.
func Parse(r io.Reader, url string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapParse("html", url, err)
	}

	doc := &Document{URL: url}
	for _, row := range findRows(root) {
		cells := children(row, "td", "th")
		offset := 0
		switch {
		case len(cells) > levelCells:
			offset = len(cells) - levelCells
		case len(cells) <= colHalfLife:
			continue
		}
		at := func(i int) *html.Node {
			if i+offset < len(cells) {
				return cells[i+offset]
			}
			return nil
		}
		doc.Levels = append(doc.Levels, Level{
			Energy:       clean(textContent(at(colEnergy))),
			JPi:          clean(textContent(at(colJPi))),
			MassExcess:   clean(directText(at(colMassExcess))),
			HalfLife:     clean(directText(at(colHalfLife))),
			HalfLifeUnc:  clean(firstElementText(at(colHalfLife))),
			Abundance:    clean(directText(at(colAbundance))),
			AbundanceUnc: clean(firstElementText(at(colAbundance))),
			DecayModes:   clean(textContent(at(colDecayModes))),
		})
	}
	return doc, nil
}

// Level returns the ground state for isomer 0, and for isomer i the
// i-th level above it that has a half-life.
func (d *Document) Level(isomer int) (Level, bool) {
	ground := -1
	for i, l := range d.Levels {
		if l.Ground() {
			ground = i
			break
		}
	}
	if ground < 0 {
		return Level{}, false
	}
	if isomer == 0 {
		return d.Levels[ground], true
	}
	seen := 0
	for _, l := range d.Levels[ground+1:] {
		if l.HalfLife == "" {
			continue
		}
		seen++
		if seen == isomer {
			return l, true
		}
	}
	return Level{}, false
}

// Raw extracts the measurements of one nuclide. Stable or unparseable
// half-life cells and empty columns produce no record.
func (d *Document) Raw(key nuclide.Key) []Raw {
	l, ok := d.Level(key.Isomer)
	if !ok {
		return nil
	}

	var out []Raw
	if number, unit, err := quantity.SplitUnit(l.HalfLife); err == nil {
		out = append(out, Raw{Key: key, Kind: HalfLife, Value: number, Uncertainty: l.HalfLifeUnc, Unit: unit, URL: d.URL})
	}
	if l.Abundance != "" {
		out = append(out, Raw{Key: key, Kind: Abundance, Value: l.Abundance, Uncertainty: l.AbundanceUnc, URL: d.URL})
	}
	if l.DecayModes != "" {
		out = append(out, Raw{Key: key, Kind: DecayModes, Value: l.DecayModes, URL: d.URL})
	}
	if l.JPi != "" {
		out = append(out, Raw{Key: key, Kind: SpinParity, Value: l.JPi, URL: d.URL})
	}
	return out
}

func findRows(n *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" && hasClass(n, "cp") {
			rows = append(rows, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return rows
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, f := range strings.Fields(a.Val) {
				if f == class {
					return true
				}
			}
		}
	}
	return false
}

func children(n *html.Node, tags ...string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		for _, t := range tags {
			if c.Data == t {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// directText joins the text nodes directly under n, leaving out
// markup such as the uncertainty superscript.
func directText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func firstElementText(n *html.Node) string {
	if n == nil {
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return textContent(c)
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

// clean collapses whitespace, including the non-breaking spaces the
// source pads cells with.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
