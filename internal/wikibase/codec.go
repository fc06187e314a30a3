package wikibase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
)

const (
	entityPrefix  = "http://www.wikidata.org/entity/"
	gregorian     = entityPrefix + "Q1985727"
	dimensionless = "1"
)

// Wire types of the Wikibase JSON model.
type (
	dataValue struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}

	snak struct {
		SnakType  string     `json:"snaktype"`
		Property  string     `json:"property"`
		Hash      string     `json:"hash,omitempty"`
		DataValue *dataValue `json:"datavalue,omitempty"`
	}

	reference struct {
		Hash       string            `json:"hash,omitempty"`
		Snaks      map[string][]snak `json:"snaks"`
		SnaksOrder []string          `json:"snaks-order,omitempty"`
	}

	statement struct {
		ID              string            `json:"id,omitempty"`
		Type            string            `json:"type"`
		Rank            string            `json:"rank,omitempty"`
		MainSnak        snak              `json:"mainsnak"`
		Qualifiers      map[string][]snak `json:"qualifiers,omitempty"`
		QualifiersOrder []string          `json:"qualifiers-order,omitempty"`
		References      []reference       `json:"references,omitempty"`
	}

	term struct {
		Language string `json:"language"`
		Value    string `json:"value"`
	}

	entity struct {
		ID           string                 `json:"id"`
		Missing      *string                `json:"missing,omitempty"`
		Labels       map[string]term        `json:"labels,omitempty"`
		Descriptions map[string]term        `json:"descriptions,omitempty"`
		Aliases      map[string][]term      `json:"aliases,omitempty"`
		Claims       map[string][]statement `json:"claims,omitempty"`
	}

	itemValue struct {
		EntityType string `json:"entity-type"`
		NumericID  int    `json:"numeric-id"`
		ID         string `json:"id"`
	}

	quantityValue struct {
		Amount     string `json:"amount"`
		UpperBound string `json:"upperBound,omitempty"`
		LowerBound string `json:"lowerBound,omitempty"`
		Unit       string `json:"unit"`
	}

	timeValue struct {
		Time          string `json:"time"`
		Timezone      int    `json:"timezone"`
		Before        int    `json:"before"`
		After         int    `json:"after"`
		Precision     int    `json:"precision"`
		CalendarModel string `json:"calendarmodel"`
	}

	textValue struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
)

// amount renders a float the way quantity amounts are stored: signed
// decimal without exponent.
func amount(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
}

func encodeValue(v kb.Value) (*dataValue, error) {
	var (
		typ string
		val any
	)
	switch v.Kind {
	case kb.KindSomeValue:
		return nil, nil
	case kb.KindItem:
		n, err := v.Item.NumericID()
		if err != nil {
			return nil, err
		}
		typ, val = "wikibase-entityid", itemValue{EntityType: "item", NumericID: n, ID: string(v.Item)}
	case kb.KindString:
		typ, val = "string", v.String
	case kb.KindMonolingual:
		typ, val = "monolingualtext", textValue{Text: v.String, Language: v.Language}
	case kb.KindQuantity:
		q := v.Quantity
		unit := dimensionless
		if q.Unit != "" {
			unit = entityPrefix + string(q.Unit)
		}
		qv := quantityValue{Amount: amount(q.Amount), Unit: unit}
		if q.Lower != q.Amount || q.Upper != q.Amount {
			qv.LowerBound, qv.UpperBound = amount(q.Lower), amount(q.Upper)
		}
		typ, val = "quantity", qv
	case kb.KindTime:
		typ, val = "time", timeValue{
			Time:          v.Time.Time.UTC().Format("+2006-01-02T15:04:05Z"),
			Precision:     v.Time.Precision,
			CalendarModel: gregorian,
		}
	default:
		return nil, errors.NewValidationError("value", v.Kind, "unsupported value kind")
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	return &dataValue{Type: typ, Value: raw}, nil
}

func decodeValue(s snak) (kb.Value, error) {
	if s.SnakType != "value" || s.DataValue == nil {
		return kb.SomeValue(), nil
	}
	dv := s.DataValue
	switch dv.Type {
	case "wikibase-entityid":
		var iv itemValue
		if err := json.Unmarshal(dv.Value, &iv); err != nil {
			return kb.Value{}, err
		}
		id := iv.ID
		if id == "" {
			id = fmt.Sprintf("Q%d", iv.NumericID)
		}
		return kb.Item(kb.EntityID(id)), nil
	case "string":
		var str string
		if err := json.Unmarshal(dv.Value, &str); err != nil {
			return kb.Value{}, err
		}
		return kb.String(str), nil
	case "monolingualtext":
		var tv textValue
		if err := json.Unmarshal(dv.Value, &tv); err != nil {
			return kb.Value{}, err
		}
		return kb.Text(tv.Language, tv.Text), nil
	case "quantity":
		var qv quantityValue
		if err := json.Unmarshal(dv.Value, &qv); err != nil {
			return kb.Value{}, err
		}
		return decodeQuantity(qv)
	case "time":
		var tv timeValue
		if err := json.Unmarshal(dv.Value, &tv); err != nil {
			return kb.Value{}, err
		}
		t, err := time.Parse("2006-01-02T15:04:05Z", strings.TrimPrefix(tv.Time, "+"))
		if err != nil {
			return kb.Value{}, err
		}
		return kb.Value{Kind: kb.KindTime, Time: kb.Time{Time: t, Precision: tv.Precision}}, nil
	}
	// Other datatypes are not compared by any job; keep them opaque.
	return kb.String(string(dv.Value)), nil
}

func decodeQuantity(qv quantityValue) (kb.Value, error) {
	a, err := parseAmount(qv.Amount)
	if err != nil {
		return kb.Value{}, err
	}
	q := kb.Quantity{Amount: a, Lower: a, Upper: a}
	if qv.LowerBound != "" {
		if q.Lower, err = parseAmount(qv.LowerBound); err != nil {
			return kb.Value{}, err
		}
	}
	if qv.UpperBound != "" {
		if q.Upper, err = parseAmount(qv.UpperBound); err != nil {
			return kb.Value{}, err
		}
	}
	if qv.Unit != dimensionless {
		q.Unit = kb.EntityIDFromURI(qv.Unit)
	}
	return kb.Value{Kind: kb.KindQuantity, Quantity: q}, nil
}

func encodeSnak(s kb.Snak) (snak, error) {
	dv, err := encodeValue(s.Value)
	if err != nil {
		return snak{}, err
	}
	out := snak{SnakType: "value", Property: string(s.Property), Hash: s.Hash, DataValue: dv}
	if dv == nil {
		out.SnakType = "somevalue"
	}
	return out, nil
}

// encodeSnaks groups snaks by property and keeps the property order.
func encodeSnaks(in []kb.Snak) (map[string][]snak, []string, error) {
	out := make(map[string][]snak)
	var order []string
	for _, s := range in {
		ws, err := encodeSnak(s)
		if err != nil {
			return nil, nil, err
		}
		if _, seen := out[ws.Property]; !seen {
			order = append(order, ws.Property)
		}
		out[ws.Property] = append(out[ws.Property], ws)
	}
	return out, order, nil
}

func decodeSnaks(in map[string][]snak, order []string) ([]kb.Snak, error) {
	if len(order) == 0 {
		for p := range in {
			order = append(order, p)
		}
	}
	var out []kb.Snak
	for _, p := range order {
		for _, s := range in[p] {
			v, err := decodeValue(s)
			if err != nil {
				return nil, fmt.Errorf("snak %s: %w", p, err)
			}
			out = append(out, kb.Snak{Property: kb.PropertyID(s.Property), Value: v, Hash: s.Hash})
		}
	}
	return out, nil
}

func encodeReference(r kb.Reference) (reference, error) {
	snaks, order, err := encodeSnaks(r.Snaks)
	if err != nil {
		return reference{}, err
	}
	return reference{Hash: r.Hash, Snaks: snaks, SnaksOrder: order}, nil
}

func encodeStatement(c kb.Claim) (statement, error) {
	main, err := encodeSnak(kb.Snak{Property: c.Property, Value: c.Value})
	if err != nil {
		return statement{}, err
	}
	st := statement{ID: c.ID, Type: "statement", Rank: "normal", MainSnak: main}
	if len(c.Qualifiers) > 0 {
		if st.Qualifiers, st.QualifiersOrder, err = encodeSnaks(c.Qualifiers); err != nil {
			return statement{}, err
		}
	}
	for _, r := range c.References {
		ref, err := encodeReference(r)
		if err != nil {
			return statement{}, err
		}
		st.References = append(st.References, ref)
	}
	return st, nil
}

func decodeStatement(st statement) (kb.Claim, error) {
	v, err := decodeValue(st.MainSnak)
	if err != nil {
		return kb.Claim{}, fmt.Errorf("statement %s: %w", st.ID, err)
	}
	c := kb.Claim{ID: st.ID, Property: kb.PropertyID(st.MainSnak.Property), Value: v}
	if c.Qualifiers, err = decodeSnaks(st.Qualifiers, st.QualifiersOrder); err != nil {
		return kb.Claim{}, fmt.Errorf("statement %s: %w", st.ID, err)
	}
	for _, r := range st.References {
		snaks, err := decodeSnaks(r.Snaks, r.SnaksOrder)
		if err != nil {
			return kb.Claim{}, fmt.Errorf("statement %s: %w", st.ID, err)
		}
		c.References = append(c.References, kb.Reference{Hash: r.Hash, Snaks: snaks})
	}
	return c, nil
}

func decodeEntity(e entity) (*kb.Entity, error) {
	out := &kb.Entity{
		ID:           kb.EntityID(e.ID),
		Labels:       terms(e.Labels),
		Descriptions: terms(e.Descriptions),
		Claims:       make(map[kb.PropertyID][]kb.Claim, len(e.Claims)),
	}
	for p, sts := range e.Claims {
		for _, st := range sts {
			c, err := decodeStatement(st)
			if err != nil {
				return nil, errors.WrapParse("entity", e.ID, err)
			}
			out.Claims[kb.PropertyID(p)] = append(out.Claims[kb.PropertyID(p)], c)
		}
	}
	return out, nil
}

func terms(in map[string]term) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for lang, t := range in {
		out[lang] = t.Value
	}
	return out
}

func encodeDraft(d kb.Draft) (entity, error) {
	e := entity{
		Labels:       make(map[string]term, len(d.Labels)),
		Descriptions: make(map[string]term, len(d.Descriptions)),
		Aliases:      make(map[string][]term, len(d.Aliases)),
		Claims:       make(map[string][]statement),
	}
	for lang, v := range d.Labels {
		e.Labels[lang] = term{Language: lang, Value: v}
	}
	for lang, v := range d.Descriptions {
		e.Descriptions[lang] = term{Language: lang, Value: v}
	}
	for lang, vs := range d.Aliases {
		for _, v := range vs {
			e.Aliases[lang] = append(e.Aliases[lang], term{Language: lang, Value: v})
		}
	}
	for _, c := range d.Claims {
		c.ID = ""
		st, err := encodeStatement(c)
		if err != nil {
			return entity{}, err
		}
		e.Claims[string(c.Property)] = append(e.Claims[string(c.Property)], st)
	}
	return e, nil
}
