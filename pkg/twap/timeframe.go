package twap

import (
	"fmt"
	"strings"
)

// Timeframe selects one of the three EMA windows.
type Timeframe uint8

const (
	// Ema1h is the one hour EMA.
	Ema1h Timeframe = iota
	// Ema8h is the eight hour EMA.
	Ema8h
	// Ema24h is the twenty-four hour EMA.
	Ema24h
)

// NumTimeframes is the number of timeframes kept per record.
const NumTimeframes = 3

// Timeframes lists every timeframe in record order.
var Timeframes = [NumTimeframes]Timeframe{Ema1h, Ema8h, Ema24h}

type timeframeParams struct {
	name       string
	window     uint64 // seconds
	minSamples uint32
	subwindows int
}

var params = [NumTimeframes]timeframeParams{
	{name: "1h", window: 60 * 60, minSamples: 10, subwindows: 3},
	{name: "8h", window: 8 * 60 * 60, minSamples: 24, subwindows: 8},
	{name: "24h", window: 24 * 60 * 60, minSamples: 48, subwindows: 24},
}

// Valid reports whether t is a known timeframe.
func (t Timeframe) Valid() bool {
	return t < NumTimeframes
}

// Window returns the EMA period in seconds.
func (t Timeframe) Window() uint64 {
	return params[t].window
}

// MinSamples returns the minimum number of populated buckets required to trust the EMA.
func (t Timeframe) MinSamples() uint32 {
	return params[t].minSamples
}

// Subwindows returns how many sub-windows the validator splits the window into.
func (t Timeframe) Subwindows() int {
	return params[t].subwindows
}

func (t Timeframe) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Timeframe(%d)", uint8(t))
	}
	return params[t].name
}

// ParseTimeframe parses "1h", "8h" or "24h" (case-insensitive).
func ParseTimeframe(s string) (Timeframe, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, tf := range Timeframes {
		if params[tf].name == name {
			return tf, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTimeframe, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Timeframe) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTimeframe, uint8(t))
	}
	return []byte(params[t].name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Timeframe) UnmarshalText(text []byte) error {
	tf, err := ParseTimeframe(string(text))
	if err != nil {
		return err
	}
	*t = tf
	return nil
}
