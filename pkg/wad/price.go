package wad

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Price is the adapter-facing decimal representation: Value * 10^-Exp.
type Price struct {
	Value uint64 `json:"value"`
	Exp   uint64 `json:"exp"`
}

// Decimal converts p to a Decimal. Digits below 10^-18 are truncated.
func (p Price) Decimal() Decimal {
	var d Decimal
	d.v.SetUint64(p.Value)
	switch {
	case p.Exp <= Decimals:
		// Value < 2^64 and 10^18 < 2^60, so this never overflows 256 bits.
		d.v.Mul(&d.v, &pow10[Decimals-p.Exp])
	case p.Exp-Decimals < uint64(len(pow10)):
		d.v.Div(&d.v, &pow10[p.Exp-Decimals])
	default:
		d.v.Clear()
	}
	return d
}

// Shopspring converts p to a shopspring decimal.
func (p Price) Shopspring() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(p.Value), -int32(p.Exp))
}

// String formats p as a decimal string.
func (p Price) String() string {
	return p.Shopspring().String()
}

// PriceFromDecimal converts d to a Price with the largest exponent (at most
// 18) whose mantissa fits in 64 bits. Precision is dropped from the right.
func PriceFromDecimal(d Decimal) (Price, error) {
	v := d.v
	exp := uint64(Decimals)
	for !v.IsUint64() {
		if exp == 0 {
			return Price{}, ErrOverflow
		}
		v.Div(&v, &pow10[1])
		exp--
	}
	return Price{Value: v.Uint64(), Exp: exp}, nil
}

// PriceFromShopspring converts a non-negative shopspring decimal to a Price.
func PriceFromShopspring(in decimal.Decimal) (Price, error) {
	d, err := FromShopspring(in)
	if err != nil {
		return Price{}, err
	}
	return PriceFromDecimal(d)
}
