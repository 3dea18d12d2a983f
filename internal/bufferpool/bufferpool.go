// Package bufferpool implements a per-file, write-back LRU cache in
// front of a pagestore.Store. Pages are kept resident in a map plus an
// intrusive doubly linked list (dummy head/tail sentinels) for O(1)
// move-to-front and eviction; a dirty page is written back only on
// eviction or an explicit Flush.
//
// The tree is single-threaded by design, so unlike the example this is
// grounded on, there is no mutex here — callers serialize their own
// access.
package bufferpool

import (
	"diskbtree/internal/pagestore"
	"diskbtree/internal/types"
	"diskbtree/pkg/assert"
	"diskbtree/pkg/dberrors"
)

type frame struct {
	page  types.Page
	buf   types.Data
	dirty bool
	prev  *frame
	next  *frame
}

// Pool is an LRU write-back cache for one backing Store. recordSize is 0
// for a node pool; a positive recordSize enables the record-granular
// Read/Write/RemoveRecord operations used by the record heap.
type Pool struct {
	store      *pagestore.Store
	capacity   int
	recordSize int
	byPage     map[types.Page]*frame
	head, tail *frame

	hits, misses, evictions uint64
}

// New builds a node-style pool: whole-page operations only.
func New(store *pagestore.Store, capacity int) *Pool {
	return newPool(store, capacity, 0)
}

// NewRecordPool builds a pool over a record store, additionally exposing
// record-granular reads/writes within a resident page.
func NewRecordPool(store *pagestore.Store, capacity, recordSize int) *Pool {
	assert.Invariant(recordSize > 0, "record pool requires a positive record size")
	return newPool(store, capacity, recordSize)
}

func newPool(store *pagestore.Store, capacity, recordSize int) *Pool {
	assert.Invariant(capacity > 0, "buffer pool capacity must be positive")
	p := &Pool{
		store:      store,
		capacity:   capacity,
		recordSize: recordSize,
		byPage:     make(map[types.Page]*frame, capacity),
	}
	p.head = &frame{}
	p.tail = &frame{}
	p.head.next = p.tail
	p.tail.prev = p.head
	return p
}

func (p *Pool) addFront(f *frame) {
	f.prev = p.head
	f.next = p.head.next
	p.head.next.prev = f
	p.head.next = f
}

func (p *Pool) unlink(f *frame) {
	f.prev.next = f.next
	f.next.prev = f.prev
}

func (p *Pool) moveToFront(f *frame) {
	p.unlink(f)
	p.addFront(f)
}

func (p *Pool) evictIfFull() error {
	if len(p.byPage) < p.capacity {
		return nil
	}
	lru := p.tail.prev
	assert.Invariant(lru != p.head, "buffer pool capacity exceeded with an empty cache")
	if lru.dirty {
		if err := p.store.WritePage(lru.page, lru.buf); err != nil {
			return err
		}
	}
	p.unlink(lru)
	delete(p.byPage, lru.page)
	p.evictions++
	return nil
}

// residentRead returns the cached frame for pg, faulting it in from the
// store if necessary, and moves it to the front either way.
func (p *Pool) residentRead(pg types.Page) (*frame, error) {
	if f, ok := p.byPage[pg]; ok {
		p.hits++
		p.moveToFront(f)
		return f, nil
	}
	p.misses++
	buf, err := p.store.ReadPage(pg)
	if err != nil {
		return nil, err
	}
	if err := p.evictIfFull(); err != nil {
		return nil, err
	}
	f := &frame{page: pg, buf: buf}
	p.byPage[pg] = f
	p.addFront(f)
	return f, nil
}

// ReadPage returns a copy of a page's bytes, populating the cache on a
// miss and marking the page most-recently-used.
func (p *Pool) ReadPage(pg types.Page) (types.Data, error) {
	f, err := p.residentRead(pg)
	if err != nil {
		return nil, err
	}
	out := make(types.Data, len(f.buf))
	copy(out, f.buf)
	return out, nil
}

// PeekPage reads a page without perturbing LRU order when it is already
// resident (used by diagnostics walks, never by the hot path). When the
// page is not resident it falls back to the normal faulting ReadPage.
func (p *Pool) PeekPage(pg types.Page) (types.Data, error) {
	if f, ok := p.byPage[pg]; ok {
		out := make(types.Data, len(f.buf))
		copy(out, f.buf)
		return out, nil
	}
	return p.ReadPage(pg)
}

// WritePage overwrites (or newly caches) a whole page, marking it dirty.
// A page not yet resident is inserted directly without a store read.
func (p *Pool) WritePage(pg types.Page, buf types.Data) error {
	if len(buf) != p.store.PageSize() {
		return dberrors.NewInvalidSize("buffer pool writePage: wrong buffer length")
	}
	if f, ok := p.byPage[pg]; ok {
		copy(f.buf, buf)
		f.dirty = true
		p.moveToFront(f)
		return nil
	}
	if err := p.evictIfFull(); err != nil {
		return err
	}
	stored := make(types.Data, len(buf))
	copy(stored, buf)
	f := &frame{page: pg, buf: stored, dirty: true}
	p.byPage[pg] = f
	p.addFront(f)
	return nil
}

// WriteNewPage allocates a fresh page from the store and writes buf into
// it through the cache.
func (p *Pool) WriteNewPage(buf types.Data) (types.Page, error) {
	pg := p.store.AllocatePage()
	if err := p.WritePage(pg, buf); err != nil {
		return 0, err
	}
	return pg, nil
}

// RemovePage evicts pg from the cache (discarding any dirty content) and
// frees its page number in the store.
func (p *Pool) RemovePage(pg types.Page) {
	if f, ok := p.byPage[pg]; ok {
		p.unlink(f)
		delete(p.byPage, pg)
	}
	p.store.RemovePage(pg)
}

// WriteRecord overwrites recordSize bytes at addr within its (faulted-in)
// page.
func (p *Pool) WriteRecord(addr types.Address, buf types.Data) error {
	assert.Invariant(p.recordSize > 0, "writeRecord called on a node buffer pool")
	if len(buf) != p.recordSize {
		return dberrors.NewInvalidSize("buffer pool writeRecord: wrong record length")
	}
	f, err := p.residentRead(addr.Page)
	if err != nil {
		return err
	}
	copy(f.buf[addr.Offset:int(addr.Offset)+p.recordSize], buf)
	f.dirty = true
	return nil
}

// WriteNewRecord reuses a free slot if one exists; otherwise it allocates
// a fresh page, writes buf into its first slot, and seeds the remaining
// blocking-factor-1 slots as free (ascending offset order).
func (p *Pool) WriteNewRecord(buf types.Data) (types.Address, error) {
	assert.Invariant(p.recordSize > 0, "writeNewRecord called on a node buffer pool")
	if addr, ok := p.store.GetEmptyPosition(); ok {
		return addr, p.WriteRecord(addr, buf)
	}

	blockingFactor := p.store.PageSize() / p.recordSize
	pageBuf := make(types.Data, p.store.PageSize())
	copy(pageBuf, buf)
	pg, err := p.WriteNewPage(pageBuf)
	if err != nil {
		return types.Address{}, err
	}
	for i := 1; i < blockingFactor; i++ {
		p.store.AddFreeSlot(types.Address{Page: pg, Offset: int32(i * p.recordSize)})
	}
	return types.Address{Page: pg, Offset: 0}, nil
}

// ReadRecord returns a copy of the recordSize bytes at addr.
func (p *Pool) ReadRecord(addr types.Address) (types.Data, error) {
	assert.Invariant(p.recordSize > 0, "readRecord called on a node buffer pool")
	f, err := p.residentRead(addr.Page)
	if err != nil {
		return nil, err
	}
	out := make(types.Data, p.recordSize)
	copy(out, f.buf[addr.Offset:int(addr.Offset)+p.recordSize])
	return out, nil
}

// RemoveRecord frees addr for reuse without touching its bytes.
func (p *Pool) RemoveRecord(addr types.Address) error {
	p.store.AddFreeSlot(addr)
	return nil
}

// Flush writes every dirty resident page back to the store.
func (p *Pool) Flush() error {
	for f := p.head.next; f != p.tail; f = f.next {
		if f.dirty {
			if err := p.store.WritePage(f.page, f.buf); err != nil {
				return err
			}
			f.dirty = false
		}
	}
	return nil
}

func (p *Pool) Len() int      { return len(p.byPage) }
func (p *Pool) Capacity() int { return p.capacity }

// Resident reports whether pg currently has a cache entry, without
// affecting LRU order — used by tests asserting cache residency.
func (p *Pool) Resident(pg types.Page) bool {
	_, ok := p.byPage[pg]
	return ok
}

// Stats returns hit/miss/eviction counters for diagnostics.
type Stats struct {
	Hits, Misses, Evictions uint64
}

func (p *Pool) Stats() Stats {
	return Stats{Hits: p.hits, Misses: p.misses, Evictions: p.evictions}
}
