package recordheap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"diskbtree/internal/bufferpool"
	"diskbtree/internal/pagestore"
	"diskbtree/internal/types"
)

func openTestHeap(t *testing.T) *Heap {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.bin")
	store, err := pagestore.Open(path, 30) // blocking factor 3, record size 10
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(bufferpool.NewRecordPool(store, 5, 10))
}

func TestSaveReadOverwriteRemove(t *testing.T) {
	h := openTestHeap(t)

	data := make(types.Data, 10)
	copy(data, "0123456789")
	addr, err := h.Save(data)
	require.NoError(t, err)

	got, err := h.Read(addr)
	require.NoError(t, err)
	require.Equal(t, data, got)

	updated := make(types.Data, 10)
	copy(updated, "abcdefghij")
	require.NoError(t, h.Overwrite(addr, updated))

	got, err = h.Read(addr)
	require.NoError(t, err)
	require.Equal(t, updated, got)

	// Fill the page's two other slots so the freed slot is the only free one.
	for i := 0; i < 2; i++ {
		_, err := h.Save(make(types.Data, 10))
		require.NoError(t, err)
	}

	require.NoError(t, h.Remove(addr))

	reused, err := h.Save(make(types.Data, 10))
	require.NoError(t, err)
	require.Equal(t, addr, reused, "a freed slot must be reused by the next Save")
}
