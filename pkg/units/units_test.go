package units_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/units"
)

func ptr(f float64) *float64 { return &f }

func TestLookup(t *testing.T) {
	table := units.Default()

	tests := []struct {
		token string
		want  units.ID
	}{
		{"s", units.Second},
		{"y", units.Year},
		{"ms", units.Millisecond},
		{"µs", units.Microsecond}, // micro sign
		{"μs", units.Microsecond}, // greek mu
		{"µS", units.Microsecond},
		{"as", units.Attosecond},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			u, ok := table.Lookup(tt.token)
			require.True(t, ok)
			assert.Equal(t, tt.want, u.ID)
		})
	}

	_, ok := table.Lookup("fortnight")
	assert.False(t, ok)
}

func TestNormalizeHalfLife(t *testing.T) {
	table := units.Default()

	t.Run("plain years", func(t *testing.T) {
		q, err := table.NormalizeHalfLife(4.623, 0.003, "y")
		require.NoError(t, err)
		assert.Equal(t, units.Quantity{Value: 4.623, Uncertainty: 0.003, Unit: units.Year, Label: "y"}, q)
	})

	t.Run("tiny seconds become attoseconds", func(t *testing.T) {
		q, err := table.NormalizeHalfLife(2.0e-16, 1.0e-17, "s")
		require.NoError(t, err)
		assert.Equal(t, units.Attosecond, q.Unit)
		assert.Equal(t, "as", q.Label)
		assert.InDelta(t, 200.0, q.Value, 1e-9)
		assert.InDelta(t, 10.0, q.Uncertainty, 1e-9)
	})

	t.Run("femtosecond boundary stays in seconds", func(t *testing.T) {
		q, err := table.NormalizeHalfLife(1.0e-15, 0, "s")
		require.NoError(t, err)
		assert.Equal(t, units.Second, q.Unit)
	})

	t.Run("energy widths", func(t *testing.T) {
		ratio := math.Log(2.0) * units.PlanckH * 1.0e18 / (2 * math.Pi)
		tests := []struct {
			token  string
			factor float64
		}{
			{"eV", 1.0},
			{"keV", 1000.0},
			{"MeV", 1.0e6},
		}
		for _, tt := range tests {
			q, err := table.NormalizeHalfLife(2.0, 0.5, tt.token)
			require.NoError(t, err, tt.token)
			want := ratio / (tt.factor * 2.0)
			assert.Equal(t, units.Attosecond, q.Unit)
			assert.InDelta(t, want, q.Value, want*1e-12)
			assert.InDelta(t, 0.5*want/2.0, q.Uncertainty, want*1e-12)
		}
	})

	t.Run("unknown unit", func(t *testing.T) {
		_, err := table.NormalizeHalfLife(1, 0, "parsec")
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestSecondsAndDiffer(t *testing.T) {
	table := units.Default()

	s, err := table.Seconds(2, units.Week)
	require.NoError(t, err)
	assert.Equal(t, 1209600.0, s)

	_, err = table.Seconds(1, units.ID("Q1"))
	assert.True(t, errors.IsNotFound(err))

	assert.False(t, table.TimespansDiffer(ptr(1.0), units.Year, ptr(3.156e7), 1e-6))
	assert.True(t, table.TimespansDiffer(ptr(1.1), units.Year, ptr(3.156e7), 1e-6))
	assert.True(t, table.TimespansDiffer(ptr(1.0), units.Year, nil, 1e-6))
	assert.False(t, table.TimespansDiffer(nil, units.Year, nil, 1e-6))

	assert.False(t, units.FloatsDiffer(ptr(98.93), ptr(98.9300001), 1e-6))
	assert.True(t, units.FloatsDiffer(ptr(98.93), nil, 1e-6))
	assert.False(t, units.FloatsDiffer(nil, nil, 1e-6))
}
