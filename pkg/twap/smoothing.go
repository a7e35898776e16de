package twap

import (
	"github.com/StrathCole/oracle-twap/pkg/wad"
)

// MinSampleInterval is the minimum spacing in seconds between two samples
// applied to the same timeframe.
const MinSampleInterval = 30

var two = wad.FromUint64(2)

// SmoothingFactor returns the EMA alpha adjusted for irregular sampling.
//
//	N' = window / dt
//	alpha = 2 / (N' + 1)
//
// A gap of a full window or more yields 1, replacing the previous value.
// A gap below MinSampleInterval is rejected with ErrSampleTooFrequent.
func SmoothingFactor(lastTs, currentTs, window uint64) (wad.Decimal, error) {
	var dt uint64
	if currentTs > lastTs {
		dt = currentTs - lastTs
	}

	switch {
	case dt >= window:
		return wad.One(), nil
	case dt < MinSampleInterval:
		return wad.Decimal{}, ErrSampleTooFrequent
	}

	n, err := wad.FromUint64(window).DivUint64(dt)
	if err != nil {
		return wad.Decimal{}, ErrNumericOverflow
	}
	denom, err := n.Add(wad.One())
	if err != nil {
		return wad.Decimal{}, ErrNumericOverflow
	}
	alpha, err := two.Div(denom)
	if err != nil {
		return wad.Decimal{}, ErrNumericOverflow
	}
	return alpha, nil
}

// blend returns price*alpha + ema*(1-alpha). The result must fit the
// persisted 128-bit scaled value.
func blend(price, ema, alpha wad.Decimal) (wad.Decimal, error) {
	weighted, err := price.Mul(alpha)
	if err != nil {
		return wad.Decimal{}, ErrNumericOverflow
	}
	rest, err := wad.One().Sub(alpha)
	if err != nil {
		return wad.Decimal{}, ErrNumericOverflow
	}
	carried, err := ema.Mul(rest)
	if err != nil {
		return wad.Decimal{}, ErrNumericOverflow
	}
	out, err := weighted.Add(carried)
	if err != nil {
		return wad.Decimal{}, ErrNumericOverflow
	}
	if _, err := out.Scaled(); err != nil {
		return wad.Decimal{}, ErrNumericOverflow
	}
	return out, nil
}
