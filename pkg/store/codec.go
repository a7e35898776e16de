package store

import (
	"encoding/binary"
	"fmt"

	"github.com/StrathCole/oracle-twap/pkg/twap"
	"github.com/StrathCole/oracle-twap/pkg/wad"
)

// RecordSize is the encoded size of one record.
const RecordSize = 672

// Byte offsets of the record layout. All integers are little-endian; u128
// values are stored low word first.
const (
	offSequence  = 0
	offTimestamp = 8
	offEma1h     = 16
	offTracker1h = 32
	offPadding0  = 40
	offEma8h     = 48
	offEma24h    = 64
	offTracker8h = 80
	offTracker24 = 88
	offPadding1  = 96

	// Per-timeframe (sequence, timestamp) pairs occupy the start of padding_1.
	offStamps   = offPadding1
	stampSize   = 16
	stampsBytes = twap.NumTimeframes * stampSize
)

var (
	emaOffsets     = [twap.NumTimeframes]int{offEma1h, offEma8h, offEma24h}
	trackerOffsets = [twap.NumTimeframes]int{offTracker1h, offTracker8h, offTracker24}
)

// Encode serializes rec into the fixed layout.
func Encode(rec *twap.EmaRecord) ([]byte, error) {
	buf := make([]byte, RecordSize)
	le := binary.LittleEndian

	le.PutUint64(buf[offSequence:], rec.LastUpdateSequence)
	le.PutUint64(buf[offTimestamp:], rec.LastUpdateTimestamp)

	for _, tf := range twap.Timeframes {
		st := rec.State(tf)
		scaled, err := st.Value.Scaled()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrValueTooLarge, tf)
		}
		off := emaOffsets[tf]
		le.PutUint64(buf[off:], scaled.Lo)
		le.PutUint64(buf[off+8:], scaled.Hi)
		le.PutUint64(buf[trackerOffsets[tf]:], uint64(st.Tracker))

		stamp := offStamps + int(tf)*stampSize
		le.PutUint64(buf[stamp:], st.LastUpdateSequence)
		le.PutUint64(buf[stamp+8:], st.LastUpdateTimestamp)
	}
	return buf, nil
}

// Decode parses a record produced by Encode. Records written before
// per-timeframe stamps existed carry only the record-level pair; every
// timeframe holding data inherits it.
func Decode(data []byte) (twap.EmaRecord, error) {
	var rec twap.EmaRecord
	if len(data) != RecordSize {
		return rec, fmt.Errorf("%w: got %d, want %d", ErrInvalidLength, len(data), RecordSize)
	}
	le := binary.LittleEndian

	rec.LastUpdateSequence = le.Uint64(data[offSequence:])
	rec.LastUpdateTimestamp = le.Uint64(data[offTimestamp:])

	legacy := rec.LastUpdateSequence != 0 && isZero(data[offStamps:offStamps+stampsBytes])

	for _, tf := range twap.Timeframes {
		st := rec.State(tf)
		off := emaOffsets[tf]
		st.Value = wad.FromScaled(wad.Uint128{
			Lo: le.Uint64(data[off:]),
			Hi: le.Uint64(data[off+8:]),
		})
		st.Tracker = twap.SampleTracker(le.Uint64(data[trackerOffsets[tf]:]))

		if legacy {
			if !st.Value.IsZero() || st.Tracker != 0 {
				st.LastUpdateSequence = rec.LastUpdateSequence
				st.LastUpdateTimestamp = rec.LastUpdateTimestamp
			}
			continue
		}
		stamp := offStamps + int(tf)*stampSize
		st.LastUpdateSequence = le.Uint64(data[stamp:])
		st.LastUpdateTimestamp = le.Uint64(data[stamp+8:])
	}
	return rec, nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
