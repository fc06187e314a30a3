package quantity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/quantity"
)

func TestScale(t *testing.T) {
	tests := []struct {
		number string
		want   float64
	}{
		{"4.623", 1e-3},
		{"12", 1},
		{"0.5", 1e-1},
		{"1.23E-5", 1e-7},
		{"5.70E+3", 1e1},
		{"5E-3", 1},
		{"5E+3", 1},
		{"2.0e-16", 1e-17},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			got, err := quantity.Scale(tt.number)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, tt.want*1e-12)
		})
	}

	_, err := quantity.Scale("abc")
	assert.True(t, errors.IsMalformed(err))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		uncertainty string
		want        quantity.Measurement
	}{
		{
			name:  "embedded last-digit uncertainty",
			value: "4.623 3",
			want:  quantity.Measurement{Value: 4.623, Uncertainty: 0.003, HasUncertainty: true},
		},
		{
			name:        "separate token",
			value:       "5.70E+3",
			uncertainty: "3",
			want:        quantity.Measurement{Value: 5700, Uncertainty: 30, HasUncertainty: true},
		},
		{
			name:        "exponent without a decimal point",
			value:       "5E+3",
			uncertainty: "2",
			want:        quantity.Measurement{Value: 5000, Uncertainty: 2, HasUncertainty: true},
		},
		{
			name:        "upper then lower bound",
			value:       "1.25",
			uncertainty: "+12-7",
			want:        quantity.Measurement{Value: 1.25, Uncertainty: 0.12, HasUncertainty: true},
		},
		{
			name:        "lower then upper bound",
			value:       "1.25",
			uncertainty: "-4+9",
			want:        quantity.Measurement{Value: 1.25, Uncertainty: 0.09, HasUncertainty: true},
		},
		{
			name:  "no uncertainty",
			value: "98.93",
			want:  quantity.Measurement{Value: 98.93},
		},
		{
			name:        "approximate marker",
			value:       "3.2",
			uncertainty: "ap",
			want:        quantity.Measurement{Value: 3.2, Qualifier: "AP"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := quantity.Parse(tt.value, tt.uncertainty)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.Value, got.Value, 1e-12)
			assert.InDelta(t, tt.want.Uncertainty, got.Uncertainty, 1e-12)
			assert.Equal(t, tt.want.HasUncertainty, got.HasUncertainty)
			assert.Equal(t, tt.want.Qualifier, got.Qualifier)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		uncertainty string
	}{
		{"not a number", "STABLE", ""},
		{"too many fields", "1.0 2 3", ""},
		{"uncertainty twice", "1.0 2", "3"},
		{"garbage uncertainty", "1.0", "x7"},
		{"negative uncertainty", "1.0", "-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quantity.Parse(tt.value, tt.uncertainty)
			require.Error(t, err)
			var pErr *errors.ParseError
			assert.ErrorAs(t, err, &pErr)
		})
	}
}

func TestUncertaintyOr(t *testing.T) {
	m := quantity.Measurement{Value: 12.5}
	assert.Equal(t, 0.0, m.UncertaintyOr(quantity.ZeroIfAbsent))
	assert.Equal(t, 12.5, m.UncertaintyOr(quantity.ValueIfAbsent))

	m = quantity.Measurement{Value: 12.5, Uncertainty: 0.1, HasUncertainty: true}
	assert.Equal(t, 0.1, m.UncertaintyOr(quantity.ValueIfAbsent))
}

func TestSplitUnit(t *testing.T) {
	number, unit, err := quantity.SplitUnit("5.70E+3 y ")
	require.NoError(t, err)
	assert.Equal(t, "5.70E+3", number)
	assert.Equal(t, "y", unit)

	number, unit, err = quantity.SplitUnit("1.2 keV")
	require.NoError(t, err)
	assert.Equal(t, "1.2", number)
	assert.Equal(t, "keV", unit)

	_, _, err = quantity.SplitUnit("STABLE")
	assert.Error(t, err)
}
