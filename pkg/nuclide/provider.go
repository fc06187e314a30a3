package nuclide

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/logging"
	"github.com/agentstation/factsync/pkg/units"
)

// Query lists every item that is an isotope, with the facts the
// differ compares. One row per item and decay mode.
const Query = `SELECT ?item ?itemLabel ?z ?n ?halfLife ?halfLifeUnit ?spin ?parity ?abundance ?mode WHERE {
  ?item wdt:P31/wdt:P279* wd:Q25276 ;
        wdt:P1086 ?z ;
        wdt:P1148 ?n .
  OPTIONAL { ?item p:P2114/psv:P2114 [ wikibase:quantityAmount ?halfLife ; wikibase:quantityUnit ?halfLifeUnit ] . }
  OPTIONAL { ?item wdt:P1122 ?spin . }
  OPTIONAL { ?item wdt:P1123 ?parity . }
  OPTIONAL { ?item wdt:P2374 ?abundance . }
  OPTIONAL { ?item wdt:P817 ?mode . }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en" . }
}`

// isomerSuffix matches labels such as "tantalum-180m" or "hafnium-178m2".
var isomerSuffix = regexp.MustCompile(`-\d+m(\d*)$`)

// IsomerIndex derives the isomer index from an item label.
func IsomerIndex(label string) int {
	m := isomerSuffix.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0
	}
	if m[1] == "" {
		return 1
	}
	i, err := strconv.Atoi(m[1])
	if err != nil {
		return 1
	}
	return i
}

// Provider loads nuclide items from the knowledge base.
type Provider struct {
	client kb.Client
}

// NewProvider creates a provider over client.
func NewProvider(client kb.Client) *Provider {
	return &Provider{client: client}
}

// Fetch runs the bulk query and folds its rows into nuclides. Items
// without integral Z and N are skipped.
func (p *Provider) Fetch(ctx context.Context) (*Index, error) {
	rows, err := p.client.Query(ctx, Query)
	if err != nil {
		return nil, err
	}
	nuclides, err := FromBindings(rows)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Int("nuclides", len(nuclides)).Msg("fetched nuclide items")
	return NewIndex(nuclides), nil
}

// FromBindings folds query rows into nuclides in first-seen order.
func FromBindings(rows []kb.Binding) ([]Nuclide, error) {
	byItem := make(map[kb.EntityID]*Nuclide)
	var order []kb.EntityID

	for _, row := range rows {
		item := kb.EntityIDFromURI(row["item"])
		if item == "" {
			return nil, errors.NewParseError("binding", row["item"], "missing item")
		}
		n, seen := byItem[item]
		if !seen {
			z, zok := integral(row["z"])
			nn, nok := integral(row["n"])
			if !zok || !nok {
				continue
			}
			label := row["itemLabel"]
			n = &Nuclide{
				Item:  item,
				Label: label,
				Key:   Key{Z: z, N: nn, Isomer: IsomerIndex(label)},
			}
			byItem[item] = n
			order = append(order, item)
		}

		if n.HalfLife == nil {
			if v, ok := number(row["halfLife"]); ok {
				n.HalfLife = &v
				n.HalfLifeUnit = units.ID(kb.EntityIDFromURI(row["halfLifeUnit"]))
			}
		}
		if n.Spin == nil {
			n.Spin = optional(row["spin"])
		}
		if n.Parity == nil {
			n.Parity = optional(row["parity"])
		}
		if n.Abundance == nil {
			n.Abundance = optional(row["abundance"])
		}
		if uri := row["mode"]; uri != "" {
			if mode := kb.EntityIDFromURI(uri); !n.HasDecayMode(mode) {
				n.DecayModes = append(n.DecayModes, mode)
			}
		}
	}

	out := make([]Nuclide, 0, len(order))
	for _, item := range order {
		out = append(out, *byItem[item])
	}
	return out, nil
}

func number(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
	return v, err == nil
}

func optional(s string) *float64 {
	v, ok := number(s)
	if !ok {
		return nil
	}
	return &v
}

func integral(s string) (int, bool) {
	v, ok := number(s)
	if !ok || v != float64(int(v)) {
		return 0, false
	}
	return int(v), true
}
