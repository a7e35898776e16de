// Package twap maintains and validates time-weighted EMA prices per oracle entry.
package twap

import "errors"

var (
	// ErrIndexOutOfRange indicates an entry or source index outside the table.
	ErrIndexOutOfRange = errors.New("twap entry index out of range")
	// ErrSampleTooFrequent indicates a sample closer than MinSampleInterval to the previous one.
	ErrSampleTooFrequent = errors.New("twap sample too frequent")
	// ErrInsufficientSamples indicates that the window coverage is too sparse to trust the EMA.
	ErrInsufficientSamples = errors.New("not enough twap samples in period")
	// ErrClockRegression indicates a current time older than the last update.
	ErrClockRegression = errors.New("current timestamp is older than last twap update")
	// ErrNumericOverflow indicates an arithmetic overflow while computing an EMA.
	ErrNumericOverflow = errors.New("twap numeric overflow")
	// ErrEnabledMaskConversion indicates a byte that is not a valid enabled-timeframe mask.
	ErrEnabledMaskConversion = errors.New("invalid twap enabled bitmask")
	// ErrUnknownTimeframe indicates an unknown timeframe name or value.
	ErrUnknownTimeframe = errors.New("unknown twap timeframe")
)
