package pagestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"diskbtree/internal/types"
	"diskbtree/pkg/dberrors"
)

func openTestStore(t *testing.T, pageSize int) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pages.bin")
	s, err := Open(path, pageSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAllocateGrowsThenReusesFreed(t *testing.T) {
	s := openTestStore(t, 16)

	p0 := s.AllocatePage()
	p1 := s.AllocatePage()
	require.Equal(t, types.Page(0), p0)
	require.Equal(t, types.Page(1), p1)
	require.EqualValues(t, 2, s.PageCount())

	s.RemovePage(p0)
	reused := s.AllocatePage()
	require.Equal(t, p0, reused, "a freed page must be reused before growing the file")
	require.EqualValues(t, 2, s.PageCount(), "reusing a freed page must not grow the file")
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := openTestStore(t, 8)
	p := s.AllocatePage()
	buf := types.Data("abcdefgh")
	require.NoError(t, s.WritePage(p, buf))

	got, err := s.ReadPage(p)
	require.NoError(t, err)
	require.Equal(t, buf, got)
}

func TestWriteOutOfRange(t *testing.T) {
	s := openTestStore(t, 8)
	err := s.WritePage(types.Page(5), make(types.Data, 8))
	require.Error(t, err)
	var storeErr *dberrors.StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, dberrors.OutOfRange, storeErr.Kind)
}

func TestWriteWrongSize(t *testing.T) {
	s := openTestStore(t, 8)
	p := s.AllocatePage()
	err := s.WritePage(p, make(types.Data, 4))
	require.Error(t, err)
	var storeErr *dberrors.StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, dberrors.InvalidSize, storeErr.Kind)
}

func TestReadFreedPage(t *testing.T) {
	s := openTestStore(t, 8)
	p := s.AllocatePage()
	require.NoError(t, s.WritePage(p, make(types.Data, 8)))
	s.RemovePage(p)

	_, err := s.ReadPage(p)
	require.Error(t, err)
	var storeErr *dberrors.StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, dberrors.ReadFreed, storeErr.Kind)
}

func TestFreeSlotReuse(t *testing.T) {
	s := openTestStore(t, 8)
	addr := types.Address{Page: 3, Offset: 16}

	_, ok := s.GetEmptyPosition()
	require.False(t, ok)

	s.AddFreeSlot(addr)
	got, ok := s.GetEmptyPosition()
	require.True(t, ok)
	require.Equal(t, addr, got)

	_, ok = s.GetEmptyPosition()
	require.False(t, ok, "a slot must not be returned twice")
}

func TestReadWriteCountersAccumulate(t *testing.T) {
	s := openTestStore(t, 8)
	before := Reads()
	beforeW := Writes()
	p := s.AllocatePage()
	require.NoError(t, s.WritePage(p, make(types.Data, 8)))
	_, err := s.ReadPage(p)
	require.NoError(t, err)
	require.Greater(t, Writes(), beforeW)
	require.Greater(t, Reads(), before)
}
