// Package rowfile reads and writes normalized rows as headerless CSV,
// one file per row kind. Absent values are written as "None".
//
// Column layouts:
//
//	half_life_data.csv    item, value, uncertainty, unit item, unit label, label, url
//	decays_data.csv       item, mode, code, percent, decays-to item, label, url
//	spin_parity_data.csv  item, spin, parity, label, url
//	abundance_data.csv    item, value, uncertainty, label, url
package rowfile

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/agentstation/factsync/pkg/constants"
	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/normalize"
	"github.com/agentstation/factsync/pkg/units"
)

// None marks an absent value.
const None = "None"

var columns = map[normalize.Kind]int{
	normalize.KindHalfLife:   7,
	normalize.KindDecay:      7,
	normalize.KindSpinParity: 5,
	normalize.KindAbundance:  5,
}

// FileName returns the file a row kind is stored in.
func FileName(kind normalize.Kind) string {
	switch kind {
	case normalize.KindHalfLife:
		return constants.HalfLifeFile
	case normalize.KindDecay:
		return constants.DecayFile
	case normalize.KindSpinParity:
		return constants.SpinParityFile
	default:
		return constants.AbundanceFile
	}
}

// ParseKind resolves a kind name as given on the command line.
func ParseKind(s string) (normalize.Kind, error) {
	switch s {
	case "half_life", "half-life", "halflife", "half_lives":
		return normalize.KindHalfLife, nil
	case "decay", "decays":
		return normalize.KindDecay, nil
	case "spin_parity", "spin-parity", "spin":
		return normalize.KindSpinParity, nil
	case "abundance", "abundances":
		return normalize.KindAbundance, nil
	}
	return "", errors.NewNotFoundError("row kind", s)
}

// Write writes the rows of one kind from b.
func Write(w io.Writer, kind normalize.Kind, b normalize.Batch) error {
	cw := csv.NewWriter(w)
	var err error
	switch kind {
	case normalize.KindHalfLife:
		for _, r := range b.HalfLives {
			if err = cw.Write([]string{
				string(r.Item), float(r.Value), optFloat(r.Uncertainty),
				optString(string(r.Unit)), optString(r.UnitLabel), r.Label, r.URL,
			}); err != nil {
				break
			}
		}
	case normalize.KindDecay:
		for _, r := range b.Decays {
			if err = cw.Write([]string{
				string(r.Item), r.Mode, optString(r.Code), optFloat(r.Percent),
				optString(string(r.DecaysTo)), r.Label, r.URL,
			}); err != nil {
				break
			}
		}
	case normalize.KindSpinParity:
		for _, r := range b.SpinParity {
			parity := None
			if r.Parity != nil {
				parity = strconv.Itoa(*r.Parity)
			}
			if err = cw.Write([]string{
				string(r.Item), optFloat(r.Spin), parity, r.Label, r.URL,
			}); err != nil {
				break
			}
		}
	case normalize.KindAbundance:
		for _, r := range b.Abundances {
			if err = cw.Write([]string{
				string(r.Item), float(r.Value), optFloat(r.Uncertainty), r.Label, r.URL,
			}); err != nil {
				break
			}
		}
	}
	if err != nil {
		return errors.WrapIO("write", FileName(kind), err)
	}
	cw.Flush()
	return errors.WrapIO("write", FileName(kind), cw.Error())
}

// Read reads rows of one kind. Malformed rows are returned as parse
// errors carrying their line number and do not stop the read.
func Read(r io.Reader, kind normalize.Kind) (normalize.Batch, []error, error) {
	want, ok := columns[kind]
	if !ok {
		return normalize.Batch{}, nil, errors.NewNotFoundError("row kind", string(kind))
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var (
		batch normalize.Batch
		bad   []error
	)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return batch, bad, errors.WrapParse("csv", FileName(kind), err)
		}
		if len(rec) != want {
			bad = append(bad, &errors.ParseError{Kind: "csv", Line: line, Message: "expected " + strconv.Itoa(want) + " columns, got " + strconv.Itoa(len(rec))})
			continue
		}
		row, err := decode(kind, rec)
		if err != nil {
			bad = append(bad, &errors.ParseError{Kind: "csv", Line: line, Message: err.Error(), Err: err})
			continue
		}
		batch.Add(row)
	}
	return batch, bad, nil
}

func decode(kind normalize.Kind, rec []string) (normalize.Row, error) {
	switch kind {
	case normalize.KindHalfLife:
		v, err := parseFloat(rec[1])
		if err != nil {
			return nil, err
		}
		unc, err := parseOptFloat(rec[2])
		if err != nil {
			return nil, err
		}
		if rec[3] == None {
			return nil, errors.NewValidationError("unit", rec[3], "half-life without unit")
		}
		return normalize.HalfLifeRow{
			Origin:      origin(rec[0], rec[5], rec[6]),
			Value:       v,
			Uncertainty: unc,
			Unit:        units.ID(rec[3]),
			UnitLabel:   optValue(rec[4]),
		}, nil

	case normalize.KindDecay:
		pct, err := parseOptFloat(rec[3])
		if err != nil {
			return nil, err
		}
		return normalize.DecayRow{
			Origin:   origin(rec[0], rec[5], rec[6]),
			Mode:     rec[1],
			Code:     optValue(rec[2]),
			Percent:  pct,
			DecaysTo: kb.EntityID(optValue(rec[4])),
		}, nil

	case normalize.KindSpinParity:
		spin, err := parseOptFloat(rec[1])
		if err != nil {
			return nil, err
		}
		row := normalize.SpinParityRow{Origin: origin(rec[0], rec[3], rec[4]), Spin: spin}
		if rec[2] != None {
			p, err := strconv.Atoi(rec[2])
			if err != nil {
				return nil, errors.NewParseError("parity", rec[2], "not an integer")
			}
			row.Parity = &p
		}
		return row, nil

	default:
		v, err := parseFloat(rec[1])
		if err != nil {
			return nil, err
		}
		unc, err := parseOptFloat(rec[2])
		if err != nil {
			return nil, err
		}
		return normalize.AbundanceRow{Origin: origin(rec[0], rec[3], rec[4]), Value: v, Uncertainty: unc}, nil
	}
}

// WriteDir writes every kind of b to its file under dir.
func WriteDir(dir string, b normalize.Batch) error {
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}
	for _, kind := range normalize.Kinds() {
		path := filepath.Join(dir, FileName(kind))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions)
		if err != nil {
			return errors.WrapIO("create", path, err)
		}
		if err := Write(f, kind, b); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return errors.WrapIO("close", path, err)
		}
	}
	return nil
}

// ReadFile reads one file of the given kind.
func ReadFile(path string, kind normalize.Kind) (normalize.Batch, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return normalize.Batch{}, nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()
	return Read(f, kind)
}

func origin(item, label, url string) normalize.Origin {
	return normalize.Origin{Item: kb.EntityID(item), Label: label, URL: url}
}

func float(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func optFloat(v *float64) string {
	if v == nil {
		return None
	}
	return float(*v)
}

func optString(s string) string {
	if s == "" {
		return None
	}
	return s
}

func optValue(s string) string {
	if s == None {
		return ""
	}
	return s
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.NewParseError("value", s, "not a number")
	}
	return v, nil
}

func parseOptFloat(s string) (*float64, error) {
	if s == None || s == "" {
		return nil, nil
	}
	v, err := parseFloat(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
