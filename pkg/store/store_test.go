package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-twap/pkg/logging"
	"github.com/StrathCole/oracle-twap/pkg/twap"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{}, logging.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SaveGetDelete(t *testing.T) {
	s := openMem(t)
	rec := populatedRecord(t)

	_, found, err := s.Get(3)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Save(3, &rec))
	got, found, err := s.Get(3)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, rec, got)

	require.NoError(t, s.Delete(3))
	_, found, err = s.Get(3)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, s.Delete(3))
}

func TestStore_RejectsOutOfRange(t *testing.T) {
	s := openMem(t)
	rec := populatedRecord(t)
	require.NoError(t, s.Save(3, &rec))

	for _, entry := range []int{-1, twap.MaxEntries, 1<<16 + 3} {
		assert.ErrorIs(t, s.Save(entry, &rec), twap.ErrIndexOutOfRange, "save %d", entry)
		_, found, err := s.Get(entry)
		assert.ErrorIs(t, err, twap.ErrIndexOutOfRange, "get %d", entry)
		assert.False(t, found)
		assert.ErrorIs(t, s.Delete(entry), twap.ErrIndexOutOfRange, "delete %d", entry)
	}

	// 1<<16 + 3 truncates to 3 as a uint16 key; slot 3 must survive.
	got, found, err := s.Get(3)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, rec, got)
}

func TestStore_LoadRestoresTable(t *testing.T) {
	s := openMem(t)
	rec := populatedRecord(t)
	for _, entry := range []int{0, 255, 256, twap.MaxEntries - 1} {
		require.NoError(t, s.Save(entry, &rec))
	}

	table := twap.NewTable()
	n, err := s.Load(table)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for _, entry := range []int{0, 255, 256, twap.MaxEntries - 1} {
		got, err := table.Record(entry)
		require.NoError(t, err)
		assert.Equal(t, rec, *got, "entry=%d", entry)
	}
	untouched, err := table.Record(1)
	require.NoError(t, err)
	assert.True(t, untouched.IsZero())
}

func TestStore_LoadSkipsCorruptRecords(t *testing.T) {
	s := openMem(t)
	rec := populatedRecord(t)
	require.NoError(t, s.Save(1, &rec))
	require.NoError(t, s.db.Put(key(2), []byte("short"), nil))
	require.NoError(t, s.db.Put(append(key(9), 0), make([]byte, RecordSize), nil))

	table := twap.NewTable()
	n, err := s.Load(table)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twap")
	rec := populatedRecord(t)

	s, err := Open(Options{Path: path, Sync: true}, logging.NewNoopLogger())
	require.NoError(t, err)
	require.NoError(t, s.Save(42, &rec))
	require.NoError(t, s.Close())

	s, err = Open(Options{Path: path}, logging.NewNoopLogger())
	require.NoError(t, err)
	defer s.Close()

	got, found, err := s.Get(42)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec, got)
}

func TestStore_Closed(t *testing.T) {
	s, err := Open(Options{}, logging.NewNoopLogger())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	rec := populatedRecord(t)
	assert.ErrorIs(t, s.Save(0, &rec), ErrClosed)
	assert.ErrorIs(t, s.Delete(0), ErrClosed)
	_, _, err = s.Get(0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Load(twap.NewTable())
	assert.ErrorIs(t, err, ErrClosed)
}
