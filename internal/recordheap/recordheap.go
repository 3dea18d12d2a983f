// Package recordheap implements a thin, record-granular API over a
// buffer pool backed by the record store. It owns no policy of its own —
// slot reuse, page seeding, and caching all live in bufferpool.Pool.
package recordheap

import (
	"diskbtree/internal/bufferpool"
	"diskbtree/internal/types"
)

// Heap saves, reads, overwrites, and frees fixed-size records packed into
// pages of a record store.
type Heap struct {
	pool *bufferpool.Pool
}

func New(pool *bufferpool.Pool) *Heap {
	return &Heap{pool: pool}
}

// Save stores data in a reused free slot if one exists, otherwise a fresh
// page, and returns its address.
func (h *Heap) Save(data types.Data) (types.Address, error) {
	return h.pool.WriteNewRecord(data)
}

// Overwrite replaces the bytes at an existing address in place.
func (h *Heap) Overwrite(addr types.Address, data types.Data) error {
	return h.pool.WriteRecord(addr, data)
}

// Read returns a copy of the record at addr.
func (h *Heap) Read(addr types.Address) (types.Data, error) {
	return h.pool.ReadRecord(addr)
}

// Remove frees addr for reuse by a later Save.
func (h *Heap) Remove(addr types.Address) error {
	return h.pool.RemoveRecord(addr)
}
