package twap

// Update applies a sample to the record of entry for every timeframe
// enabled in mask and reports whether any timeframe changed.
//
// Samples whose sequence is not newer than the record are ignored without
// error. The update is all-or-nothing: if any enabled timeframe fails, the
// stored record is left untouched and the first error is returned.
func Update(t *Table, entry int, s Sample, mask EnabledMask) (bool, error) {
	rec, err := t.Record(entry)
	if err != nil {
		return false, err
	}
	if s.Sequence <= rec.LastUpdateSequence {
		return false, nil
	}

	working := *rec
	updated := false
	for _, tf := range Timeframes {
		if !mask.IsEnabled(tf) {
			continue
		}
		if err := updateState(working.State(tf), tf, s); err != nil {
			return false, err
		}
		updated = true
	}
	if !updated {
		return false, nil
	}

	working.LastUpdateSequence = s.Sequence
	working.LastUpdateTimestamp = s.UnixTimestamp
	*rec = working
	return true, nil
}

func updateState(st *EmaState, tf Timeframe, s Sample) error {
	window := tf.Window()
	price := s.Price.Decimal()

	if !st.IsSet() {
		st.Value = price
		st.Tracker = 0
		st.Tracker.Record(window, s.UnixTimestamp, s.UnixTimestamp)
	} else {
		alpha, err := SmoothingFactor(st.LastUpdateTimestamp, s.UnixTimestamp, window)
		if err != nil {
			return err
		}
		value, err := blend(price, st.Value, alpha)
		if err != nil {
			return err
		}
		st.Value = value
		// SmoothingFactor rejected any timestamp at or before the last update.
		st.Tracker.Record(window, s.UnixTimestamp, st.LastUpdateTimestamp)
	}

	st.LastUpdateTimestamp = s.UnixTimestamp
	st.LastUpdateSequence = s.Sequence
	return nil
}
