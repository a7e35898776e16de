package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/StrathCole/oracle-twap/pkg/logging"
	"github.com/StrathCole/oracle-twap/pkg/twap"
)

var keyPrefix = []byte("twap/")

// Options configures a Store.
type Options struct {
	// Path of the database directory. Empty keeps everything in memory.
	Path string
	// Sync flushes every write to disk before returning.
	Sync bool
}

// Store is a LevelDB-backed record store keyed by entry id.
type Store struct {
	mu     sync.RWMutex
	db     *leveldb.DB
	wo     *opt.WriteOptions
	logger *logging.Logger
	closed bool
}

// Open opens or creates the database described by opts. A corrupted
// on-disk database is recovered before use.
func Open(opts Options, logger *logging.Logger) (*Store, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if opts.Path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(opts.Path, nil)
		if lerrors.IsCorrupted(err) {
			logger.Warn("Record store corrupted, recovering", "path", opts.Path, "error", err)
			db, err = leveldb.RecoverFile(opts.Path, nil)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open record store %q: %w", opts.Path, err)
	}

	logger.Info("Record store opened", "path", opts.Path, "sync", opts.Sync)
	return &Store{
		db:     db,
		wo:     &opt.WriteOptions{Sync: opts.Sync},
		logger: logger,
	}, nil
}

func checkEntry(entry int) error {
	if entry < 0 || entry >= twap.MaxEntries {
		return fmt.Errorf("%w: %d", twap.ErrIndexOutOfRange, entry)
	}
	return nil
}

// key must only be called with an entry accepted by checkEntry.
func key(entry int) []byte {
	k := make([]byte, len(keyPrefix)+2)
	copy(k, keyPrefix)
	binary.BigEndian.PutUint16(k[len(keyPrefix):], uint16(entry))
	return k
}

func parseKey(k []byte) (int, error) {
	if len(k) != len(keyPrefix)+2 {
		return 0, fmt.Errorf("%w: %x", ErrInvalidKey, k)
	}
	return int(binary.BigEndian.Uint16(k[len(keyPrefix):])), nil
}

// Save persists the record of entry.
func (s *Store) Save(entry int, rec *twap.EmaRecord) error {
	if err := checkEntry(entry); err != nil {
		return err
	}
	data, err := Encode(rec)
	if err != nil {
		return fmt.Errorf("encode entry %d: %w", entry, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.db.Put(key(entry), data, s.wo); err != nil {
		return fmt.Errorf("save entry %d: %w", entry, err)
	}
	return nil
}

// Get returns the stored record of entry and whether one exists.
func (s *Store) Get(entry int) (twap.EmaRecord, bool, error) {
	if err := checkEntry(entry); err != nil {
		return twap.EmaRecord{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return twap.EmaRecord{}, false, ErrClosed
	}

	data, err := s.db.Get(key(entry), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return twap.EmaRecord{}, false, nil
	}
	if err != nil {
		return twap.EmaRecord{}, false, fmt.Errorf("get entry %d: %w", entry, err)
	}
	rec, err := Decode(data)
	if err != nil {
		return twap.EmaRecord{}, false, fmt.Errorf("decode entry %d: %w", entry, err)
	}
	return rec, true, nil
}

// Delete removes the record of entry. Deleting a missing record is not an error.
func (s *Store) Delete(entry int) error {
	if err := checkEntry(entry); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.db.Delete(key(entry), s.wo); err != nil {
		return fmt.Errorf("delete entry %d: %w", entry, err)
	}
	return nil
}

// Load restores every stored record into table and returns how many were
// loaded. Undecodable records are skipped with a warning.
func (s *Store) Load(table *twap.Table) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	iter := s.db.NewIterator(util.BytesPrefix(keyPrefix), nil)
	defer iter.Release()

	loaded := 0
	for iter.Next() {
		entry, err := parseKey(iter.Key())
		if err != nil {
			s.logger.Warn("Skipping stored record", "error", err)
			continue
		}
		rec, err := Decode(iter.Value())
		if err != nil {
			s.logger.Warn("Skipping stored record", "entry", entry, "error", err)
			continue
		}
		if err := table.Restore(entry, rec); err != nil {
			s.logger.Warn("Skipping stored record", "entry", entry, "error", err)
			continue
		}
		loaded++
	}
	if err := iter.Error(); err != nil {
		return loaded, fmt.Errorf("iterate records: %w", err)
	}
	return loaded, nil
}

// Close closes the database. Further calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
