// Package pagestore implements a single file of concatenated fixed-size
// pages, truncated fresh on every construction, with an in-memory
// free-page set and free-slot set that do not survive a restart
// (durability is an explicit non-goal).
package pagestore

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"diskbtree/internal/types"
	"diskbtree/pkg/dberrors"
)

// READS and WRITES are process-wide diagnostics, mirroring the original
// implementation's static counters: every Store, node or record, adds to
// the same pair of totals.
var (
	globalReads  uint64
	globalWrites uint64
)

// Store is a file-backed array of fixed-size pages.
type Store struct {
	file      *os.File
	pageSize  int
	pageCount types.Page
	freePages map[types.Page]struct{}
	freeSlots map[types.Address]struct{}
}

// Open truncates (or creates) the file at path and returns an empty store
// of pages sized pageSize.
func Open(path string, pageSize int) (*Store, error) {
	if pageSize <= 0 {
		return nil, dberrors.NewInvalidSize("page size must be positive")
	}
	if fi, statErr := os.Stat(path); statErr == nil && fi.Size() > 0 {
		log.Printf("pagestore: truncating existing file %s (%d bytes)", path, fi.Size())
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, dberrors.NewIO("opening page store file", err)
	}
	return &Store{
		file:      f,
		pageSize:  pageSize,
		freePages: make(map[types.Page]struct{}),
		freeSlots: make(map[types.Address]struct{}),
	}, nil
}

func (s *Store) PageSize() int        { return s.pageSize }
func (s *Store) PageCount() types.Page { return s.pageCount }

// AllocatePage reuses a freed page number if one exists, else grows the
// file by one page.
func (s *Store) AllocatePage() types.Page {
	for p := range s.freePages {
		delete(s.freePages, p)
		return p
	}
	p := s.pageCount
	s.pageCount++
	return p
}

// WritePage overwrites an existing, in-range page with exactly pageSize
// bytes.
func (s *Store) WritePage(p types.Page, buf types.Data) error {
	if p < 0 || p >= s.pageCount {
		return dberrors.NewOutOfRange(fmt.Sprintf("writePage: page %d out of range [0,%d)", p, s.pageCount))
	}
	if len(buf) != s.pageSize {
		return dberrors.NewInvalidSize(fmt.Sprintf("writePage: buffer length %d != page size %d", len(buf), s.pageSize))
	}
	if _, err := s.file.WriteAt(buf, int64(p)*int64(s.pageSize)); err != nil {
		return dberrors.NewIO("writing page", err)
	}
	atomic.AddUint64(&globalWrites, 1)
	return nil
}

// ReadPage returns a fresh copy of an in-range, non-freed page.
func (s *Store) ReadPage(p types.Page) (types.Data, error) {
	if p < 0 || p >= s.pageCount {
		return nil, dberrors.NewOutOfRange(fmt.Sprintf("readPage: page %d out of range [0,%d)", p, s.pageCount))
	}
	if _, freed := s.freePages[p]; freed {
		return nil, dberrors.NewReadFreed(fmt.Sprintf("readPage: page %d was freed", p))
	}
	buf := make(types.Data, s.pageSize)
	if _, err := s.file.ReadAt(buf, int64(p)*int64(s.pageSize)); err != nil {
		return nil, dberrors.NewIO("reading page", err)
	}
	atomic.AddUint64(&globalReads, 1)
	return buf, nil
}

// RemovePage marks a page free for reuse; it does not erase its content.
func (s *Store) RemovePage(p types.Page) {
	s.freePages[p] = struct{}{}
}

// AddFreeSlot records a record-sized address inside a page as available
// for reuse by the record heap.
func (s *Store) AddFreeSlot(a types.Address) {
	s.freeSlots[a] = struct{}{}
}

// GetEmptyPosition pops an arbitrary free slot, or reports there is none.
func (s *Store) GetEmptyPosition() (types.Address, bool) {
	for a := range s.freeSlots {
		delete(s.freeSlots, a)
		return a, true
	}
	return types.Address{}, false
}

// Reads and Writes are the process-wide diagnostic counters.
func Reads() uint64  { return atomic.LoadUint64(&globalReads) }
func Writes() uint64 { return atomic.LoadUint64(&globalWrites) }

func (s *Store) Reads() uint64  { return Reads() }
func (s *Store) Writes() uint64 { return Writes() }

func (s *Store) Close() error {
	return s.file.Close()
}
