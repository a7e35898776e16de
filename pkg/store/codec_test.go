package store

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-twap/pkg/twap"
	"github.com/StrathCole/oracle-twap/pkg/wad"
)

func populatedRecord(t *testing.T) twap.EmaRecord {
	t.Helper()
	table := twap.NewTable()
	price := wad.Price{Value: 8_512_345, Exp: 5}
	_, err := twap.Update(table, 0, twap.Sample{Price: price, UnixTimestamp: 1000, Sequence: 7}, twap.NewEnabledMask(twap.Ema1h, twap.Ema24h))
	require.NoError(t, err)
	_, err = twap.Update(table, 0, twap.Sample{Price: price, UnixTimestamp: 1400, Sequence: 9}, twap.MaskAll)
	require.NoError(t, err)

	rec, err := table.Record(0)
	require.NoError(t, err)
	return *rec
}

func TestEncode_Layout(t *testing.T) {
	rec := populatedRecord(t)
	data, err := Encode(&rec)
	require.NoError(t, err)
	require.Len(t, data, RecordSize)

	le := binary.LittleEndian
	assert.Equal(t, uint64(9), le.Uint64(data[0:]))
	assert.Equal(t, uint64(1400), le.Uint64(data[8:]))

	scaled, err := rec.State(twap.Ema1h).Value.Scaled()
	require.NoError(t, err)
	assert.Equal(t, scaled.Lo, le.Uint64(data[16:]))
	assert.Equal(t, scaled.Hi, le.Uint64(data[24:]))
	assert.Equal(t, uint64(rec.State(twap.Ema1h).Tracker), le.Uint64(data[32:]))
	assert.Zero(t, le.Uint64(data[40:]))
	assert.Equal(t, uint64(rec.State(twap.Ema24h).Tracker), le.Uint64(data[88:]))

	// 8h was enabled on the second sample only.
	assert.Equal(t, uint64(9), le.Uint64(data[96+16:]))
	assert.Equal(t, uint64(1400), le.Uint64(data[96+16+8:]))
	assert.True(t, isZero(data[96+48:]))
}

func TestDecode_RoundTrip(t *testing.T) {
	rec := populatedRecord(t)
	data, err := Encode(&rec)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)

	var empty twap.EmaRecord
	data, err = Encode(&empty)
	require.NoError(t, err)
	assert.True(t, isZero(data))
	decoded, err = Decode(data)
	require.NoError(t, err)
	assert.True(t, decoded.IsZero())
}

func TestDecode_LegacyRecordMigrates(t *testing.T) {
	rec := populatedRecord(t)
	data, err := Encode(&rec)
	require.NoError(t, err)

	// Drop the per-timeframe stamps and clear the 8h aggregate, as an older
	// writer that never enabled 8h would have left it.
	for i := offStamps; i < offStamps+stampsBytes; i++ {
		data[i] = 0
	}
	for i := offEma8h; i < offEma8h+16; i++ {
		data[i] = 0
	}
	binary.LittleEndian.PutUint64(data[offTracker8h:], 0)

	decoded, err := Decode(data)
	require.NoError(t, err)
	for _, tf := range []twap.Timeframe{twap.Ema1h, twap.Ema24h} {
		st := decoded.State(tf)
		assert.Equal(t, uint64(9), st.LastUpdateSequence, "tf=%s", tf)
		assert.Equal(t, uint64(1400), st.LastUpdateTimestamp, "tf=%s", tf)
	}
	assert.False(t, decoded.State(twap.Ema8h).IsSet())
}

func TestDecode_InvalidLength(t *testing.T) {
	for _, n := range []int{0, RecordSize - 1, RecordSize + 1} {
		_, err := Decode(make([]byte, n))
		assert.ErrorIs(t, err, ErrInvalidLength, "len=%d", n)
	}
}

func TestEncode_ValueTooLarge(t *testing.T) {
	huge, err := wad.FromUint64(math.MaxUint64).MulUint64(1 << 40)
	require.NoError(t, err)

	var rec twap.EmaRecord
	rec.State(twap.Ema8h).Value = huge
	_, err = Encode(&rec)
	assert.ErrorIs(t, err, ErrValueTooLarge)
}
