package crlstore

import (
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "crls.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestU_Store_PutGet(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Put(big.NewInt(0x1000), "crl-a"))

	rec, err := s.Get(big.NewInt(0x1000))
	require.NoError(t, err)
	assert.Equal(t, "crl-a", rec.PEM)
	assert.Equal(t, int64(0x1000), rec.Number.Int64())
	assert.True(t, fixed.Equal(rec.ReceivedAt))

	_, err = s.Get(big.NewInt(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestU_Store_Latest(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Latest()
	require.ErrorIs(t, err, ErrNotFound)

	// Numeric order, not insertion or lexical decimal order.
	for _, n := range []int64{9, 0x1001, 10, 0x100} {
		require.NoError(t, s.Put(big.NewInt(n), big.NewInt(n).String()))
	}

	rec, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, int64(0x1001), rec.Number.Int64())

	numbers, err := s.List()
	require.NoError(t, err)
	var got []int64
	for _, n := range numbers {
		got = append(got, n.Int64())
	}
	assert.Equal(t, []int64{9, 10, 0x100, 0x1001}, got)
}

func TestU_Store_PutIfNewer(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.PutIfNewer(big.NewInt(1000), "first"))
	require.NoError(t, s.PutIfNewer(big.NewInt(1001), "second"))

	for _, n := range []int64{1001, 1000, 5} {
		err := s.PutIfNewer(big.NewInt(n), "stale")
		assert.True(t, errors.Is(err, ErrOutdated), "number %d: %v", n, err)
	}

	rec, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, "second", rec.PEM)
}

func TestU_Store_Delete(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.PutIfNewer(big.NewInt(1001), "rolled back"))
	require.NoError(t, s.Delete(big.NewInt(1001)))
	require.NoError(t, s.Delete(big.NewInt(1001)))

	_, err := s.Get(big.NewInt(1001))
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.PutIfNewer(big.NewInt(1001), "again"))
}

func TestU_Store_InvalidNumber(t *testing.T) {
	s := newTestStore(t)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 160)
	for _, n := range []*big.Int{nil, big.NewInt(-1), tooBig} {
		assert.ErrorIs(t, s.Put(n, "x"), ErrInvalidNumber)
	}

	maxNumber := new(big.Int).Sub(tooBig, big.NewInt(1))
	require.NoError(t, s.Put(maxNumber, "max"))
	rec, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Number.Cmp(maxNumber))
}

func TestU_Store_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crls.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(big.NewInt(42), "kept"))
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	rec, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, "kept", rec.PEM)
}
