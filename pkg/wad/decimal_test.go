package wad

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimal_FromUint64RoundTrip(t *testing.T) {
	d := FromUint64(42)
	raw, err := d.Scaled()
	require.NoError(t, err)
	// 42e18 needs more than 64 bits.
	assert.Equal(t, uint64(2), raw.Hi)
	assert.Equal(t, "42", d.String())
	assert.Equal(t, d, FromScaled(raw))
}

func TestDecimal_Arithmetic(t *testing.T) {
	two := FromUint64(2)
	three := FromUint64(3)

	sum, err := two.Add(three)
	require.NoError(t, err)
	assert.Equal(t, "5", sum.String())

	diff, err := three.Sub(two)
	require.NoError(t, err)
	assert.Equal(t, 0, diff.Cmp(One()))

	prod, err := two.Mul(three)
	require.NoError(t, err)
	assert.Equal(t, "6", prod.String())

	quot, err := two.Div(three)
	require.NoError(t, err)
	assert.Equal(t, "0.666666666666666666", quot.String())

	half, err := One().DivUint64(2)
	require.NoError(t, err)
	assert.Equal(t, "0.5", half.String())

	tenfold, err := half.MulUint64(10)
	require.NoError(t, err)
	assert.Equal(t, "5", tenfold.String())
}

func TestDecimal_Errors(t *testing.T) {
	_, err := FromUint64(1).Sub(FromUint64(2))
	assert.ErrorIs(t, err, ErrUnderflow)

	_, err = One().Div(Zero())
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = One().DivUint64(0)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	// (2^64 * 1e18)^2 / 1e18 still fits, but a fourth power does not.
	big := FromUint64(math.MaxUint64)
	sq, err := big.Mul(big)
	require.NoError(t, err)
	_, err = sq.Scaled()
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = sq.Mul(sq)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestDecimal_Shopspring(t *testing.T) {
	in := decimal.RequireFromString("123.4567")
	d, err := FromShopspring(in)
	require.NoError(t, err)
	assert.True(t, d.Shopspring().Equal(in))

	_, err = FromShopspring(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrNegative)

	truncated, err := FromShopspring(decimal.RequireFromString("0.0000000000000000019"))
	require.NoError(t, err)
	assert.Equal(t, "0.000000000000000001", truncated.String())
}

func TestPrice_Decimal(t *testing.T) {
	tests := []struct {
		name     string
		price    Price
		expected string
	}{
		{name: "integer", price: Price{Value: 7, Exp: 0}, expected: "7"},
		{name: "eight decimals", price: Price{Value: 12345678, Exp: 8}, expected: "0.12345678"},
		{name: "eighteen decimals", price: Price{Value: 1, Exp: 18}, expected: "0.000000000000000001"},
		{name: "beyond precision", price: Price{Value: 123, Exp: 20}, expected: "0.000000000000000001"},
		{name: "far beyond precision", price: Price{Value: 123, Exp: 200}, expected: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.price.Decimal().String())
		})
	}
}

func TestPriceFromDecimal(t *testing.T) {
	p, err := PriceFromDecimal(FromUint64(5))
	require.NoError(t, err)
	// 5e18 fits in a uint64 at full precision.
	assert.Equal(t, Price{Value: 5_000_000_000_000_000_000, Exp: 18}, p)

	p, err = PriceFromDecimal(FromUint64(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, uint64(13), p.Exp)
	assert.Equal(t, "1000000", p.String())

	p, err = PriceFromShopspring(decimal.RequireFromString("0.00012"))
	require.NoError(t, err)
	assert.True(t, p.Shopspring().Equal(decimal.RequireFromString("0.00012")))
}
