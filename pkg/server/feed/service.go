package feed

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/StrathCole/oracle-twap/pkg/config"
	"github.com/StrathCole/oracle-twap/pkg/logging"
	"github.com/StrathCole/oracle-twap/pkg/metrics"
	"github.com/StrathCole/oracle-twap/pkg/twap"
	"github.com/StrathCole/oracle-twap/pkg/wad"
)

// Store persists records. Implemented by *store.Store.
type Store interface {
	Save(entry int, rec *twap.EmaRecord) error
	Delete(entry int) error
}

// Subscriber receives the events of every applied update.
type Subscriber interface {
	Publish(events []Event)
}

// Entry is the configuration of one table slot.
type Entry struct {
	ID     int              `json:"id"`
	Symbol string           `json:"symbol"`
	Mask   twap.EnabledMask `json:"-"`
	// Source is the slot read for this entry; equal to ID unless mirrored.
	Source   int  `json:"source"`
	Mirrored bool `json:"mirrored"`
}

// Event describes one timeframe of an entry after an update.
type Event struct {
	Entry     int
	Symbol    string
	Timeframe twap.Timeframe
	Value     wad.Decimal
	Sequence  uint64
	Timestamp uint64
	Coverage  uint32
	// Valid reports whether a read at Timestamp would succeed.
	Valid bool
}

// Service owns the table and mappings. Writers are serialized, reads share
// a read lock.
type Service struct {
	mu       sync.RWMutex
	table    *twap.Table
	mappings twap.Mappings
	entries  map[int]Entry
	bySymbol map[string][]int

	store  Store
	logger *logging.Logger

	subMu       sync.RWMutex
	subscribers []Subscriber
}

// New creates a service around table. store may be nil to keep records in
// memory only.
func New(table *twap.Table, store Store, logger *logging.Logger) *Service {
	return &Service{
		table:    table,
		entries:  make(map[int]Entry),
		bySymbol: make(map[string][]int),
		store:    store,
		logger:   logger,
	}
}

// Configure replaces the entry configuration. Records are kept; only the
// enabled timeframes and mirror sources change.
func (s *Service) Configure(entries []config.EntryConfig) error {
	var mappings twap.Mappings
	byID := make(map[int]Entry, len(entries))
	bySymbol := make(map[string][]int, len(entries))

	for _, ec := range entries {
		mask, err := ec.Mask()
		if err != nil {
			return err
		}
		if err := mappings.SetEnabledMask(ec.ID, mask); err != nil {
			return fmt.Errorf("entry %d: %w", ec.ID, err)
		}
		e := Entry{ID: ec.ID, Symbol: NormalizeSymbol(ec.Symbol), Mask: mask, Source: ec.ID}
		if ec.Source != nil {
			if err := mappings.SetSource(ec.ID, *ec.Source); err != nil {
				return err
			}
			e.Source = *ec.Source
			e.Mirrored = true
		}
		byID[e.ID] = e
		bySymbol[e.Symbol] = append(bySymbol[e.Symbol], e.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = mappings
	s.entries = byID
	s.bySymbol = bySymbol

	s.logger.Info("Entries configured", "count", len(byID))
	return nil
}

// Subscribe registers sub for update events.
func (s *Service) Subscribe(sub Subscriber) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, sub)
}

// Entries returns the configured entries ordered by id.
func (s *Service) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Entry returns the configuration of id.
func (s *Service) Entry(id int) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// Lookup returns the ids configured for symbol after normalization.
func (s *Service) Lookup(symbol string) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.bySymbol[NormalizeSymbol(symbol)]
	return append([]int(nil), ids...)
}

func (s *Service) entryLocked(id int) (Entry, error) {
	if id < 0 || id >= twap.MaxEntries {
		return Entry{}, fmt.Errorf("%w: %d", twap.ErrIndexOutOfRange, id)
	}
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %d", ErrUnknownEntry, id)
	}
	return e, nil
}

// Submit applies sample to entry and persists the record when it changed.
// If persisting fails the in-memory record is rolled back.
func (s *Service) Submit(entry int, sample twap.Sample) (bool, error) {
	start := time.Now()
	label := strconv.Itoa(entry)

	s.mu.Lock()
	updated, events, err := s.submitLocked(entry, sample)
	s.mu.Unlock()

	metrics.RecordUpdate(time.Since(start))
	metrics.RecordSample(label, sampleResult(updated, err))

	switch {
	case err != nil:
		s.logger.Warn("Sample rejected", "entry", entry, "sequence", sample.Sequence,
			"timestamp", sample.UnixTimestamp, "error", err)
		return false, err
	case !updated:
		s.logger.Debug("Sample ignored", "entry", entry, "sequence", sample.Sequence)
		return false, nil
	}

	for _, ev := range events {
		metrics.RecordCoverage(strconv.Itoa(ev.Entry), ev.Timeframe.String(), ev.Coverage)
	}
	s.publish(events)
	return true, nil
}

func (s *Service) submitLocked(entry int, sample twap.Sample) (bool, []Event, error) {
	e, err := s.entryLocked(entry)
	if err != nil {
		return false, nil, err
	}
	rec, err := s.table.Record(entry)
	if err != nil {
		return false, nil, err
	}

	snapshot := *rec
	updated, err := twap.Update(s.table, entry, sample, e.Mask)
	if err != nil || !updated {
		return false, nil, err
	}

	if s.store != nil {
		if err := s.store.Save(entry, rec); err != nil {
			*rec = snapshot
			return false, nil, fmt.Errorf("%w: %w", ErrPersist, err)
		}
	}
	return true, s.eventsLocked(e, rec, sample.UnixTimestamp), nil
}

// eventsLocked reports every enabled timeframe of e, repeated for each
// entry that mirrors it.
func (s *Service) eventsLocked(e Entry, rec *twap.EmaRecord, now uint64) []Event {
	readers := []Entry{e}
	for _, other := range s.entries {
		if other.Mirrored && other.Source == e.ID {
			readers = append(readers, other)
		}
	}
	sort.Slice(readers[1:], func(i, j int) bool { return readers[1+i].ID < readers[1+j].ID })

	events := make([]Event, 0, len(readers)*twap.NumTimeframes)
	for _, reader := range readers {
		for _, tf := range e.Mask.Timeframes() {
			st := rec.State(tf)
			events = append(events, Event{
				Entry:     reader.ID,
				Symbol:    reader.Symbol,
				Timeframe: tf,
				Value:     st.Value,
				Sequence:  st.LastUpdateSequence,
				Timestamp: st.LastUpdateTimestamp,
				Coverage:  twap.Coverage(st, tf, now),
				Valid:     twap.Validate(st, tf, now) == nil,
			})
		}
	}
	return events
}

func (s *Service) publish(events []Event) {
	if len(events) == 0 {
		return
	}
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, sub := range s.subscribers {
		sub.Publish(events)
	}
}

// SubmitSymbol applies sample to every non-mirrored entry configured for
// symbol and returns how many were updated. Per-entry failures are joined.
func (s *Service) SubmitSymbol(symbol string, sample twap.Sample) (int, error) {
	var targets []int
	s.mu.RLock()
	for _, id := range s.bySymbol[NormalizeSymbol(symbol)] {
		if !s.entries[id].Mirrored {
			targets = append(targets, id)
		}
	}
	s.mu.RUnlock()

	if len(targets) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	n := 0
	var errs []error
	for _, id := range targets {
		updated, err := s.Submit(id, sample)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", id, err))
			continue
		}
		if updated {
			n++
		}
	}
	return n, errors.Join(errs...)
}

// Read returns the validated tf price of entry as of now.
func (s *Service) Read(entry int, tf twap.Timeframe, now uint64) (twap.DatedPrice, error) {
	s.mu.RLock()
	price, err := s.readLocked(entry, tf, now)
	s.mu.RUnlock()

	result := "ok"
	if err != nil {
		result = readResult(err)
	}
	metrics.RecordRead(strconv.Itoa(entry), tf.String(), result)
	return price, err
}

func (s *Service) readLocked(entry int, tf twap.Timeframe, now uint64) (twap.DatedPrice, error) {
	if _, err := s.entryLocked(entry); err != nil {
		return twap.DatedPrice{}, err
	}
	return twap.Read(&s.mappings, s.table, entry, tf, now)
}

// Coverage returns the populated buckets of the tf window backing entry.
func (s *Service) Coverage(entry int, tf twap.Timeframe, now uint64) (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.entryLocked(entry)
	if err != nil {
		return 0, err
	}
	rec, err := s.table.Record(e.Source)
	if err != nil {
		return 0, err
	}
	if !tf.Valid() {
		return 0, fmt.Errorf("%w: %d", twap.ErrUnknownTimeframe, uint8(tf))
	}
	return twap.Coverage(rec.State(tf), tf, now), nil
}

// Reset zeroes the record of entry in memory and in the store.
func (s *Service) Reset(entry int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.entryLocked(entry); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.Delete(entry); err != nil {
			return fmt.Errorf("%w: %w", ErrPersist, err)
		}
	}
	if err := s.table.Reset(entry); err != nil {
		return err
	}
	s.logger.Info("Entry reset", "entry", entry)
	return nil
}

func sampleResult(updated bool, err error) string {
	switch {
	case err == nil && updated:
		return "updated"
	case err == nil:
		return "ignored"
	case errors.Is(err, twap.ErrSampleTooFrequent):
		return "too_frequent"
	case errors.Is(err, twap.ErrNumericOverflow):
		return "overflow"
	default:
		return "error"
	}
}

func readResult(err error) string {
	switch {
	case errors.Is(err, twap.ErrInsufficientSamples):
		return "insufficient_samples"
	case errors.Is(err, twap.ErrClockRegression):
		return "clock_regression"
	default:
		return "error"
	}
}
