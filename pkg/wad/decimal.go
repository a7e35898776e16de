package wad

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits carried by a Decimal.
const Decimals = 18

var (
	// pow10[i] = 10^i; 10^77 is the largest power of ten below 2^256.
	pow10 [78]uint256.Int
	one   uint256.Int
)

func init() {
	pow10[0].SetUint64(1)
	ten := uint256.NewInt(10)
	for i := 1; i < len(pow10); i++ {
		pow10[i].Mul(&pow10[i-1], ten)
	}
	one.Set(&pow10[Decimals])
}

// Uint128 is an unsigned 128-bit integer split into two 64-bit halves.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// IsZero reports whether u is zero.
func (u Uint128) IsZero() bool {
	return u.Hi == 0 && u.Lo == 0
}

// Decimal is an unsigned fixed-point number scaled by 10^18.
// The zero value is 0. Every arithmetic operation is overflow checked.
type Decimal struct {
	v uint256.Int
}

// Zero returns 0.
func Zero() Decimal {
	return Decimal{}
}

// One returns 1.
func One() Decimal {
	return Decimal{v: one}
}

// FromUint64 returns n as a Decimal.
func FromUint64(n uint64) Decimal {
	var d Decimal
	d.v.SetUint64(n)
	d.v.Mul(&d.v, &one)
	return d
}

// FromScaled wraps a raw value already scaled by 10^18.
func FromScaled(raw Uint128) Decimal {
	var d Decimal
	d.v[0] = raw.Lo
	d.v[1] = raw.Hi
	return d
}

// Scaled returns the raw scaled value, or ErrOverflow if it needs more than 128 bits.
func (d Decimal) Scaled() (Uint128, error) {
	if d.v[2] != 0 || d.v[3] != 0 {
		return Uint128{}, ErrOverflow
	}
	return Uint128{Hi: d.v[1], Lo: d.v[0]}, nil
}

// IsZero reports whether d is zero.
func (d Decimal) IsZero() bool {
	return d.v.IsZero()
}

// Cmp compares d and o and returns -1, 0 or +1.
func (d Decimal) Cmp(o Decimal) int {
	return d.v.Cmp(&o.v)
}

// Add returns d + o.
func (d Decimal) Add(o Decimal) (Decimal, error) {
	var r Decimal
	if _, overflow := r.v.AddOverflow(&d.v, &o.v); overflow {
		return Decimal{}, ErrOverflow
	}
	return r, nil
}

// Sub returns d - o.
func (d Decimal) Sub(o Decimal) (Decimal, error) {
	var r Decimal
	if _, underflow := r.v.SubOverflow(&d.v, &o.v); underflow {
		return Decimal{}, ErrUnderflow
	}
	return r, nil
}

// Mul returns d * o, truncated to 18 decimals.
func (d Decimal) Mul(o Decimal) (Decimal, error) {
	var r Decimal
	if _, overflow := r.v.MulOverflow(&d.v, &o.v); overflow {
		return Decimal{}, ErrOverflow
	}
	r.v.Div(&r.v, &one)
	return r, nil
}

// Div returns d / o, truncated to 18 decimals.
func (d Decimal) Div(o Decimal) (Decimal, error) {
	if o.v.IsZero() {
		return Decimal{}, ErrDivisionByZero
	}
	var r Decimal
	if _, overflow := r.v.MulOverflow(&d.v, &one); overflow {
		return Decimal{}, ErrOverflow
	}
	r.v.Div(&r.v, &o.v)
	return r, nil
}

// MulUint64 returns d * n.
func (d Decimal) MulUint64(n uint64) (Decimal, error) {
	var r, m Decimal
	m.v.SetUint64(n)
	if _, overflow := r.v.MulOverflow(&d.v, &m.v); overflow {
		return Decimal{}, ErrOverflow
	}
	return r, nil
}

// DivUint64 returns d / n, truncated.
func (d Decimal) DivUint64(n uint64) (Decimal, error) {
	if n == 0 {
		return Decimal{}, ErrDivisionByZero
	}
	var r, m Decimal
	m.v.SetUint64(n)
	r.v.Div(&d.v, &m.v)
	return r, nil
}

// Shopspring converts d to a shopspring decimal. It allocates and is meant
// for API boundaries only.
func (d Decimal) Shopspring() decimal.Decimal {
	return decimal.NewFromBigInt(d.v.ToBig(), -Decimals)
}

// String formats d with its significant fractional digits.
func (d Decimal) String() string {
	return d.Shopspring().String()
}

// FromShopspring converts a non-negative shopspring decimal, truncating any
// digits beyond 18 decimals.
func FromShopspring(in decimal.Decimal) (Decimal, error) {
	if in.IsNegative() {
		return Decimal{}, fmt.Errorf("%w: %s", ErrNegative, in.String())
	}
	scaled := in.Shift(Decimals).Truncate(0).BigInt()
	v, overflow := uint256.FromBig(scaled)
	if overflow {
		return Decimal{}, fmt.Errorf("%w: %s", ErrOverflow, in.String())
	}
	return Decimal{v: *v}, nil
}
