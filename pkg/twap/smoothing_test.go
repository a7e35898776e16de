package twap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-twap/pkg/wad"
)

func TestSmoothingFactor_FullWindowReplaces(t *testing.T) {
	for _, tf := range Timeframes {
		for _, dt := range []uint64{tf.Window(), tf.Window() + 1, 10 * tf.Window()} {
			alpha, err := SmoothingFactor(1000, 1000+dt, tf.Window())
			require.NoError(t, err)
			assert.Equal(t, 0, alpha.Cmp(wad.One()), "tf=%s dt=%d", tf, dt)
		}
	}
}

func TestSmoothingFactor_TooFrequent(t *testing.T) {
	for _, dt := range []uint64{0, 1, MinSampleInterval - 1} {
		_, err := SmoothingFactor(1000, 1000+dt, 3600)
		assert.ErrorIs(t, err, ErrSampleTooFrequent, "dt=%d", dt)
	}

	// Timestamps going backwards saturate to a zero gap.
	_, err := SmoothingFactor(1000, 900, 3600)
	assert.ErrorIs(t, err, ErrSampleTooFrequent)
}

func TestSmoothingFactor_StrictlyIncreasing(t *testing.T) {
	for _, tf := range Timeframes {
		window := tf.Window()
		step := window / 3600
		if step == 0 {
			step = 1
		}

		prev := wad.Zero()
		for dt := uint64(MinSampleInterval); dt < window; dt += step {
			alpha, err := SmoothingFactor(0, dt, window)
			require.NoError(t, err)
			assert.False(t, alpha.IsZero(), "tf=%s dt=%d", tf, dt)
			assert.LessOrEqual(t, alpha.Cmp(wad.One()), 0, "tf=%s dt=%d", tf, dt)
			assert.Equal(t, 1, alpha.Cmp(prev), "tf=%s dt=%d", tf, dt)
			prev = alpha
		}
	}
}

func TestSmoothingFactor_Value(t *testing.T) {
	// N' = 3600/360 = 10, alpha = 2/11.
	alpha, err := SmoothingFactor(0, 360, 3600)
	require.NoError(t, err)
	assert.Equal(t, "0.181818181818181818", alpha.String())
}

func TestBlend_OverflowIsAnError(t *testing.T) {
	huge, err := wad.FromUint64(math.MaxUint64).MulUint64(1 << 40)
	require.NoError(t, err)

	_, err = blend(huge, wad.Zero(), wad.One())
	assert.ErrorIs(t, err, ErrNumericOverflow)
}
