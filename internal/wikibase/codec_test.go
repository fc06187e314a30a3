package wikibase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/factsync/pkg/kb"
)

func TestAmount(t *testing.T) {
	tests := map[float64]string{
		5700:    "+5700",
		-1:      "-1",
		0.982:   "+0.982",
		1.4e17:  "+140000000000000000",
		2.0e-16: "+0.0000000000000002",
	}
	for in, want := range tests {
		assert.Equal(t, want, amount(in))
		back, err := parseAmount(want)
		require.NoError(t, err)
		assert.Equal(t, in, back)
	}
}

func TestStatementRoundTrip(t *testing.T) {
	claim := kb.Claim{
		ID:       "Q1$X",
		Property: kb.PropDecaysTo,
		Value:    kb.SomeValue(),
		Qualifiers: []kb.Snak{
			{Property: kb.PropDecayMode, Value: kb.Item("Q14646001")},
			{Property: kb.PropProportion, Value: kb.Amount(1, 0, "")},
		},
		References: []kb.Reference{{Snaks: []kb.Snak{
			{Property: kb.PropStatedIn, Value: kb.Item("Q777")},
			{Property: kb.PropEditionNumber, Value: kb.String("2.6")},
		}}},
	}
	st, err := encodeStatement(claim)
	require.NoError(t, err)
	assert.Equal(t, "somevalue", st.MainSnak.SnakType)
	assert.Equal(t, []string{"P817", "P1107"}, st.QualifiersOrder)

	back, err := decodeStatement(st)
	require.NoError(t, err)
	assert.Equal(t, claim.Property, back.Property)
	assert.Equal(t, kb.KindSomeValue, back.Value.Kind)
	require.Len(t, back.Qualifiers, 2)
	assert.True(t, back.Qualifiers[0].Value.Equal(kb.Item("Q14646001")))
	assert.True(t, back.Qualifiers[1].Value.Equal(kb.Amount(1, 0, "")))
	assert.Equal(t, "2.6", back.References[0].Values(kb.PropEditionNumber)[0].String)
}

func TestEncodeRejectsBadItem(t *testing.T) {
	_, err := encodeValue(kb.Item("not-an-id"))
	assert.Error(t, err)
}
