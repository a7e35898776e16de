package twap

import "fmt"

// Validate checks that st has enough well-distributed samples in the window
// of tf ending at now. It never modifies st.
func Validate(st *EmaState, tf Timeframe, now uint64) error {
	if !tf.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownTimeframe, uint8(tf))
	}
	if !st.IsSet() {
		return fmt.Errorf("%w: %s ema never updated", ErrInsufficientSamples, tf)
	}
	if now < st.LastUpdateTimestamp {
		return fmt.Errorf("%w: now %d, last update %d", ErrClockRegression, now, st.LastUpdateTimestamp)
	}

	window := tf.Window()
	tracker := st.Tracker
	tracker.EraseStale(window, now, st.LastUpdateTimestamp)

	if count := tracker.Count(); count < tf.MinSamples() {
		return fmt.Errorf("%w: %s has %d of %d required", ErrInsufficientSamples, tf, count, tf.MinSamples())
	}

	// Coverage concentrated at one edge of the window does not count.
	oldest, newest := tracker.SubwindowEdges(window, now, tf.Subwindows())
	if oldest == 0 || newest == 0 {
		return fmt.Errorf("%w: %s edge sub-windows oldest=%d newest=%d",
			ErrInsufficientSamples, tf, oldest, newest)
	}
	return nil
}

// Read validates the tf aggregate backing entry at now and returns it as a
// dated price. Mirrored entries are redirected to their source slot.
func Read(m *Mappings, t *Table, entry int, tf Timeframe, now uint64) (DatedPrice, error) {
	if !tf.Valid() {
		return DatedPrice{}, fmt.Errorf("%w: %d", ErrUnknownTimeframe, uint8(tf))
	}
	src, _, err := m.Source(entry)
	if err != nil {
		return DatedPrice{}, err
	}
	rec, err := t.Record(src)
	if err != nil {
		return DatedPrice{}, err
	}

	st := rec.State(tf)
	if err := Validate(st, tf, now); err != nil {
		return DatedPrice{}, err
	}
	return st.DatedPrice()
}

// Coverage returns the number of populated buckets of tf as of now, or 0 if
// the timeframe is unset or now precedes its last update.
func Coverage(st *EmaState, tf Timeframe, now uint64) uint32 {
	if !tf.Valid() || !st.IsSet() || now < st.LastUpdateTimestamp {
		return 0
	}
	tracker := st.Tracker
	tracker.EraseStale(tf.Window(), now, st.LastUpdateTimestamp)
	return tracker.Count()
}
