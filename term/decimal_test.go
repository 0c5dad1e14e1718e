package term

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecimalRoundTrip(t *testing.T) {
	d, err := NewDecimalFromString("1.5")
	require.NoError(t, err)
	require.Equal(t, "1.5", d.String())

	b := d.Bytes16()
	d2 := DecimalFromBytes16(b)
	require.Equal(t, 0, d.Cmp(d2))
}

func TestDecimalNegativeRoundTrip(t *testing.T) {
	d, err := NewDecimalFromString("-42.125")
	require.NoError(t, err)
	d2 := DecimalFromBytes16(d.Bytes16())
	require.Equal(t, 0, d.Cmp(d2))
	require.Equal(t, "-42.125", d2.String())
}

func TestDecimalArithmetic(t *testing.T) {
	a, _ := NewDecimalFromString("1.5")
	b, _ := NewDecimalFromString("2.5")
	require.Equal(t, "4", a.Add(b).String())
	require.Equal(t, "-1", a.Sub(b).String())
	require.Equal(t, "3.75", a.Mul(b).String())

	q, ok := a.Div(b)
	require.True(t, ok)
	require.Equal(t, "0.6", q.String())

	_, ok = a.Div(Decimal128{})
	require.False(t, ok)
}
