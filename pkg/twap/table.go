package twap

import "fmt"

// MaxEntries is the fixed number of slots in a Table.
const MaxEntries = 512

// Table is the fixed-capacity array of records indexed by entry id.
// Slots are never reassigned; Reset zeroes one in place.
type Table struct {
	records [MaxEntries]EmaRecord
}

// NewTable returns an empty table.
func NewTable() *Table {
	return new(Table)
}

// Len returns the table capacity.
func (t *Table) Len() int {
	return MaxEntries
}

func checkIndex(entry int) error {
	if entry < 0 || entry >= MaxEntries {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, entry)
	}
	return nil
}

// Record returns the record of entry.
func (t *Table) Record(entry int) (*EmaRecord, error) {
	if err := checkIndex(entry); err != nil {
		return nil, err
	}
	return &t.records[entry], nil
}

// Restore overwrites the record of entry, e.g. when loading persisted state.
func (t *Table) Restore(entry int, rec EmaRecord) error {
	if err := checkIndex(entry); err != nil {
		return err
	}
	t.records[entry] = rec
	return nil
}

// Reset zeroes the record of entry.
func (t *Table) Reset(entry int) error {
	rec, err := t.Record(entry)
	if err != nil {
		return err
	}
	rec.Reset()
	return nil
}

// Mappings holds the per-entry configuration the engine reads: which
// timeframes are maintained, and for mirrored entries, which slot holds the
// aggregate. The zero value has no timeframes enabled and no mirrors.
type Mappings struct {
	enabled [MaxEntries]EnabledMask
	// source[i] is the mirrored slot + 1, or 0 when entry i reads itself.
	source [MaxEntries]uint16
}

// EnabledMask returns the enabled timeframes of entry.
func (m *Mappings) EnabledMask(entry int) (EnabledMask, error) {
	if err := checkIndex(entry); err != nil {
		return 0, err
	}
	return m.enabled[entry], nil
}

// SetEnabledMask sets the enabled timeframes of entry.
func (m *Mappings) SetEnabledMask(entry int, mask EnabledMask) error {
	if err := checkIndex(entry); err != nil {
		return err
	}
	m.enabled[entry] = mask & MaskAll
	return nil
}

// SetSource makes reads of entry use the record of src.
func (m *Mappings) SetSource(entry, src int) error {
	if err := checkIndex(entry); err != nil {
		return err
	}
	if err := checkIndex(src); err != nil {
		return fmt.Errorf("source of entry %d: %w", entry, err)
	}
	m.source[entry] = uint16(src + 1)
	return nil
}

// ClearSource makes entry read its own record again.
func (m *Mappings) ClearSource(entry int) error {
	if err := checkIndex(entry); err != nil {
		return err
	}
	m.source[entry] = 0
	return nil
}

// Source returns the slot whose record backs reads of entry and whether
// that slot is a mirror target rather than entry itself.
func (m *Mappings) Source(entry int) (int, bool, error) {
	if err := checkIndex(entry); err != nil {
		return 0, false, err
	}
	if s := m.source[entry]; s != 0 {
		return int(s) - 1, true, nil
	}
	return entry, false, nil
}

// Reset clears the configuration of entry.
func (m *Mappings) Reset(entry int) error {
	if err := checkIndex(entry); err != nil {
		return err
	}
	m.enabled[entry] = 0
	m.source[entry] = 0
	return nil
}
