package twap

import (
	"fmt"
	"strings"
)

// EnabledMask is a 3-bit set of the timeframes an entry maintains.
// It is owned by configuration; the engine only reads it.
type EnabledMask uint8

// MaskAll enables every timeframe.
const MaskAll EnabledMask = 1<<NumTimeframes - 1

// NewEnabledMask builds a mask from a list of timeframes.
func NewEnabledMask(timeframes ...Timeframe) EnabledMask {
	var m EnabledMask
	for _, tf := range timeframes {
		m = m.Enable(tf)
	}
	return m
}

// MaskFromByte validates a raw mask byte.
func MaskFromByte(b uint8) (EnabledMask, error) {
	if b > uint8(MaskAll) {
		return 0, fmt.Errorf("%w: %d", ErrEnabledMaskConversion, b)
	}
	return EnabledMask(b), nil
}

// Enable returns m with tf enabled.
func (m EnabledMask) Enable(tf Timeframe) EnabledMask {
	if !tf.Valid() {
		return m
	}
	return m | 1<<tf
}

// IsEnabled reports whether tf is enabled.
func (m EnabledMask) IsEnabled(tf Timeframe) bool {
	return tf.Valid() && m&(1<<tf) != 0
}

// Any reports whether at least one timeframe is enabled.
func (m EnabledMask) Any() bool {
	return m&MaskAll != 0
}

// Timeframes returns the enabled timeframes in record order.
func (m EnabledMask) Timeframes() []Timeframe {
	out := make([]Timeframe, 0, NumTimeframes)
	for _, tf := range Timeframes {
		if m.IsEnabled(tf) {
			out = append(out, tf)
		}
	}
	return out
}

// String renders the mask as "[1h, 24h]".
func (m EnabledMask) String() string {
	names := make([]string, 0, NumTimeframes)
	for _, tf := range m.Timeframes() {
		names = append(names, tf.String())
	}
	return "[" + strings.Join(names, ", ") + "]"
}
