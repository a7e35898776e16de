package twap

import (
	"github.com/StrathCole/oracle-twap/pkg/wad"
)

// Sample is one raw observation produced by a price adapter.
type Sample struct {
	Price         wad.Price
	UnixTimestamp uint64
	// Sequence orders samples independently of wall-clock time, e.g. a slot
	// or block height. It must be non-zero.
	Sequence uint64
}

// DatedPrice is a validated price handed to consumers.
type DatedPrice struct {
	Price               wad.Price
	LastUpdatedSequence uint64
	UnixTimestamp       uint64
	// GenericData is the opaque per-price payload of the dated-price layout.
	// EMA prices carry none, so it is always zero here and is not exposed
	// by the HTTP API.
	GenericData [24]byte
}

// EmaState is the aggregate of a single timeframe.
type EmaState struct {
	Value               wad.Decimal
	LastUpdateTimestamp uint64
	// LastUpdateSequence is zero when the timeframe was never updated.
	LastUpdateSequence uint64
	Tracker            SampleTracker
}

// IsSet reports whether the timeframe holds a price.
func (s *EmaState) IsSet() bool {
	return s.LastUpdateSequence != 0
}

// DatedPrice returns the current value with its update time and sequence.
func (s *EmaState) DatedPrice() (DatedPrice, error) {
	price, err := wad.PriceFromDecimal(s.Value)
	if err != nil {
		return DatedPrice{}, ErrNumericOverflow
	}
	return DatedPrice{
		Price:               price,
		LastUpdatedSequence: s.LastUpdateSequence,
		UnixTimestamp:       s.LastUpdateTimestamp,
	}, nil
}

// EmaRecord holds the three timeframes of one entry. The record-level
// sequence and timestamp are those of the last sample that changed any
// timeframe and are used to drop stale or duplicate samples early.
type EmaRecord struct {
	LastUpdateSequence  uint64
	LastUpdateTimestamp uint64
	States              [NumTimeframes]EmaState
}

// State returns the state of tf. It panics on an invalid timeframe.
func (r *EmaRecord) State(tf Timeframe) *EmaState {
	return &r.States[tf]
}

// IsZero reports whether the record was never updated or has been reset.
func (r *EmaRecord) IsZero() bool {
	return *r == EmaRecord{}
}

// Reset zeroes the record in place.
func (r *EmaRecord) Reset() {
	*r = EmaRecord{}
}
