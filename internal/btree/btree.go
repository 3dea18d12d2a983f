// Package btree implements the B-tree engine itself — a generic Tree[T]
// over an externally supplied record schema, backed by a node page
// store/buffer pool and a record heap. The structural algorithms
// (compensation, split, merge) live in their own files per concern,
// mirroring how the storage-engine examples in the retrieval pack split
// a B-tree's balancing logic out of its main search/insert/delete path.
package btree

import (
	"fmt"

	"diskbtree/internal/bufferpool"
	"diskbtree/internal/node"
	"diskbtree/internal/pagestore"
	"diskbtree/internal/recordheap"
	"diskbtree/internal/types"
	"diskbtree/pkg/assert"
)

// Status is the domain-level outcome of Insert/Remove: it always
// travels as a plain return value, never as an error. Only the four
// fatal store-level conditions in pkg/dberrors surface as errors.
type Status int

const (
	OK Status = iota
	AlreadyExists
	DoesNotExist
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case AlreadyExists:
		return "AlreadyExists"
	case DoesNotExist:
		return "DoesNotExist"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Record is the schema contract the tree is generic over: a key and a
// serialized byte form. The counterpart deserializer and fixed record
// size are supplied separately through Options, since Go cannot express
// a static factory method through a type parameter alone.
type Record interface {
	Key() types.Key
	Serialize() types.Data
}

// Options configures a Tree's order, cache sizes, and record schema.
type Options[T Record] struct {
	D                   int
	BlockingFactor      int
	NodeCacheCapacity   int
	RecordCacheCapacity int
	RecordSize          int
	Deserialize         func(types.Data) T
}

func (o Options[T]) validate() {
	assert.Invariant(o.D >= 2, "D must be >= 2, got %d", o.D)
	assert.Invariant(o.BlockingFactor >= 1, "BlockingFactor must be >= 1, got %d", o.BlockingFactor)
	assert.Invariant(o.NodeCacheCapacity > 0, "NodeCacheCapacity must be positive")
	assert.Invariant(o.RecordCacheCapacity > 0, "RecordCacheCapacity must be positive")
	assert.Invariant(o.RecordSize > 0, "RecordSize must be positive")
	assert.Invariant(o.Deserialize != nil, "Deserialize must be supplied")
}

// Tree is an ordered key/value index backed by two page files: one
// holding B-tree nodes, one holding packed fixed-size records.
type Tree[T Record] struct {
	opt         Options[T]
	nodeStore   *pagestore.Store
	recordStore *pagestore.Store
	nodes       *bufferpool.Pool
	heap        *recordheap.Heap
	root        types.Page
}

// Open truncates (or creates) nodesPath and recordsPath and returns an
// empty tree. No state is recovered across a restart — these are bare
// files of concatenated fixed-size pages, with no header.
func Open[T Record](nodesPath, recordsPath string, opt Options[T]) (*Tree[T], error) {
	opt.validate()

	nodeStore, err := pagestore.Open(nodesPath, node.Size(opt.D))
	if err != nil {
		return nil, err
	}
	recordStore, err := pagestore.Open(recordsPath, opt.RecordSize*opt.BlockingFactor)
	if err != nil {
		return nil, err
	}

	records := bufferpool.NewRecordPool(recordStore, opt.RecordCacheCapacity, opt.RecordSize)

	return &Tree[T]{
		opt:         opt,
		nodeStore:   nodeStore,
		recordStore: recordStore,
		nodes:       bufferpool.New(nodeStore, opt.NodeCacheCapacity),
		heap:        recordheap.New(records),
		root:        types.NullPage,
	}, nil
}

// Close releases the backing file handles. Dirty cached pages are not
// flushed first — durability across process exit is an explicit
// non-goal, and Tree exposes no flush operation.
func (t *Tree[T]) Close() error {
	if err := t.nodeStore.Close(); err != nil {
		return err
	}
	return t.recordStore.Close()
}

func (t *Tree[T]) getNode(p types.Page) (node.Node, error) {
	buf, err := t.nodes.ReadPage(p)
	if err != nil {
		return node.Node{}, err
	}
	return node.Deserialize(buf, t.opt.D), nil
}

func (t *Tree[T]) peekNode(p types.Page) (node.Node, error) {
	buf, err := t.nodes.PeekPage(p)
	if err != nil {
		return node.Node{}, err
	}
	return node.Deserialize(buf, t.opt.D), nil
}

func (t *Tree[T]) putNode(p types.Page, n node.Node) error {
	return t.nodes.WritePage(p, node.Serialize(n, t.opt.D))
}

func (t *Tree[T]) newNode(n node.Node) (types.Page, error) {
	return t.nodes.WriteNewPage(node.Serialize(n, t.opt.D))
}

func (t *Tree[T]) delNode(p types.Page) {
	t.nodes.RemovePage(p)
}

func (t *Tree[T]) setParent(child, parent types.Page) error {
	n, err := t.getNode(child)
	if err != nil {
		return err
	}
	n.Parent = parent
	return t.putNode(child, n)
}

// Search returns the record stored under key, if any.
func (t *Tree[T]) Search(key types.Key) (T, bool, error) {
	var zero T
	if t.root == types.NullPage {
		return zero, false, nil
	}
	addr, found, err := t.searchAddr(key, t.root)
	if err != nil || !found {
		return zero, false, err
	}
	buf, err := t.heap.Read(addr)
	if err != nil {
		return zero, false, err
	}
	return t.opt.Deserialize(buf), true, nil
}

func (t *Tree[T]) searchAddr(key types.Key, page types.Page) (types.Address, bool, error) {
	n, err := t.getNode(page)
	if err != nil {
		return types.Address{}, false, err
	}
	idx := n.UpperBound(key)
	if idx > 0 && n.Entries[idx-1].Key == key {
		return n.Entries[idx-1].Address, true, nil
	}
	if n.Leaf {
		return types.Address{}, false, nil
	}
	return t.searchAddr(key, n.Children[idx])
}

// searchPlace descends to the leaf (or matching internal entry) where key
// belongs, reporting whether it is already present.
func (t *Tree[T]) searchPlace(key types.Key, page types.Page) (Status, types.Page, error) {
	n, err := t.getNode(page)
	if err != nil {
		return OK, 0, err
	}
	idx := n.UpperBound(key)
	if idx > 0 && n.Entries[idx-1].Key == key {
		return AlreadyExists, page, nil
	}
	if n.Leaf {
		return DoesNotExist, page, nil
	}
	return t.searchPlace(key, n.Children[idx])
}

// Insert adds record under its key, returning AlreadyExists without
// mutating the tree if the key is already present.
func (t *Tree[T]) Insert(record T) (Status, error) {
	key := record.Key()

	if t.root == types.NullPage {
		addr, err := t.heap.Save(record.Serialize())
		if err != nil {
			return OK, err
		}
		leaf := node.Node{Leaf: true, Parent: types.NullPage, Entries: []node.Entry{{Key: key, Address: addr}}}
		pg, err := t.newNode(leaf)
		if err != nil {
			return OK, err
		}
		t.root = pg
		return OK, nil
	}

	status, leafPage, err := t.searchPlace(key, t.root)
	if err != nil {
		return OK, err
	}
	if status == AlreadyExists {
		return AlreadyExists, nil
	}

	addr, err := t.heap.Save(record.Serialize())
	if err != nil {
		return OK, err
	}

	n, err := t.getNode(leafPage)
	if err != nil {
		return OK, err
	}
	n.AddEntry(node.Entry{Key: key, Address: addr})

	return OK, t.rebalanceAfterInsert(n, leafPage)
}

// Modify overwrites the record stored under record.Key() in place,
// reporting DoesNotExist without mutating the tree if the key is absent.
func (t *Tree[T]) Modify(record T) (Status, error) {
	if t.root == types.NullPage {
		return DoesNotExist, nil
	}
	addr, found, err := t.searchAddr(record.Key(), t.root)
	if err != nil {
		return OK, err
	}
	if !found {
		return DoesNotExist, nil
	}
	return OK, t.heap.Overwrite(addr, record.Serialize())
}

// Remove deletes the record stored under key, reporting DoesNotExist
// without mutating the tree if the key is absent.
func (t *Tree[T]) Remove(key types.Key) (Status, error) {
	if t.root == types.NullPage {
		return DoesNotExist, nil
	}
	status, page, err := t.searchPlace(key, t.root)
	if err != nil {
		return OK, err
	}
	if status == DoesNotExist {
		return DoesNotExist, nil
	}

	n, err := t.getNode(page)
	if err != nil {
		return OK, err
	}
	idx := n.UpperBound(key)
	assert.Invariant(idx > 0 && n.Entries[idx-1].Key == key, "searchPlace reported AlreadyExists but the key is missing at the reported page")

	if err := t.heap.Remove(n.Entries[idx-1].Address); err != nil {
		return OK, err
	}

	if n.Leaf {
		n.RemoveEntryAt(idx - 1)
	} else {
		successorPage, err := t.findSuccessor(n.Children[idx])
		if err != nil {
			return OK, err
		}
		successor, err := t.getNode(successorPage)
		if err != nil {
			return OK, err
		}
		n.Entries[idx-1] = successor.Entries[0]
		successor.PopFront()
		if err := t.putNode(page, n); err != nil {
			return OK, err
		}
		page, n = successorPage, successor
	}

	return OK, t.rebalanceAfterRemove(n, page)
}

// findSuccessor walks to the leftmost leaf of the subtree rooted at page
// — the in-order successor used when deleting an internal entry.
func (t *Tree[T]) findSuccessor(page types.Page) (types.Page, error) {
	n, err := t.getNode(page)
	if err != nil {
		return 0, err
	}
	if n.Leaf {
		return page, nil
	}
	return t.findSuccessor(n.Children[0])
}

func (t *Tree[T]) rebalanceAfterInsert(n node.Node, page types.Page) error {
	for {
		if len(n.Entries) <= 2*t.opt.D {
			return t.putNode(page, n)
		}
		done, err := t.compensate(&n, page, true)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		parent, parentPage, err := t.split(&n, page)
		if err != nil {
			return err
		}
		n, page = parent, parentPage
	}
}

func (t *Tree[T]) rebalanceAfterRemove(n node.Node, page types.Page) error {
	for {
		if len(n.Entries) >= t.opt.D {
			return t.putNode(page, n)
		}
		if page == t.root {
			if len(n.Entries) < 1 {
				t.delNode(page)
				if !n.Leaf {
					t.root = n.Children[0]
					newRoot, err := t.getNode(t.root)
					if err != nil {
						return err
					}
					newRoot.Parent = types.NullPage
					page, n = t.root, newRoot
				} else {
					t.root = types.NullPage
					return nil
				}
			}
			return t.putNode(page, n)
		}
		done, err := t.compensate(&n, page, false)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		parent, parentPage, err := t.merge(&n, page)
		if err != nil {
			return err
		}
		n, page = parent, parentPage
	}
}
