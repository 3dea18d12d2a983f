package btree

import "diskbtree/internal/types"

// Ratio reports the fill factor used for test reporting: live entries
// across every reachable node, divided by (node count * 2D). Computed via
// PeekPage so walking the tree for diagnostics never perturbs buffer-pool
// LRU order, matching the original's getRatio/getHeight, which are the
// only callers of peekPage in the source this was distilled from.
func (t *Tree[T]) Ratio() (float64, error) {
	if t.root == types.NullPage {
		return 0, nil
	}
	entries, nodes, err := t.ratio(t.root)
	if err != nil {
		return 0, err
	}
	return float64(entries) / float64(nodes*2*t.opt.D), nil
}

func (t *Tree[T]) ratio(page types.Page) (entries, nodes int, err error) {
	n, err := t.peekNode(page)
	if err != nil {
		return 0, 0, err
	}
	entries, nodes = len(n.Entries), 1
	if !n.Leaf {
		for _, c := range n.Children {
			ce, cn, err := t.ratio(c)
			if err != nil {
				return 0, 0, err
			}
			entries += ce
			nodes += cn
		}
	}
	return entries, nodes, nil
}

// Height reports the number of levels from the root down to the leftmost
// leaf, counting the leaf itself: a single-leaf tree has height 1, a
// tree whose root has split once has height 2, and so on.
func (t *Tree[T]) Height() (int, error) {
	if t.root == types.NullPage {
		return 0, nil
	}
	height := 0
	page := t.root
	for {
		n, err := t.peekNode(page)
		if err != nil {
			return 0, err
		}
		height++
		if n.Leaf {
			return height, nil
		}
		page = n.Children[0]
	}
}

// NodeReads, NodeWrites, RecordReads and RecordWrites expose the page
// stores' diagnostic I/O counters. Those counters are process-wide and
// shared by every store, so the node and record variants report the same
// totals.
func (t *Tree[T]) NodeReads() uint64    { return t.nodeStore.Reads() }
func (t *Tree[T]) NodeWrites() uint64   { return t.nodeStore.Writes() }
func (t *Tree[T]) RecordReads() uint64  { return t.recordStore.Reads() }
func (t *Tree[T]) RecordWrites() uint64 { return t.recordStore.Writes() }

// Root reports the current root page, NullPage for an empty tree. Exposed
// for diagnostics and tests asserting structural invariants from outside
// the package.
func (t *Tree[T]) Root() types.Page { return t.root }

// NodeAt exposes a page's deserialized node for structural-invariant
// tests walking the tree from outside the package.
func (t *Tree[T]) NodeAt(page types.Page) (NodeView, error) {
	n, err := t.getNode(page)
	if err != nil {
		return NodeView{}, err
	}
	return NodeView{Parent: n.Parent, Leaf: n.Leaf, Entries: len(n.Entries), Children: append([]types.Page(nil), n.Children...)}, nil
}

// NodeView is a read-only projection of a node's structural shape, used
// by external invariant-walking tests without exposing the node package's
// mutation methods.
type NodeView struct {
	Parent   types.Page
	Leaf     bool
	Entries  int
	Children []types.Page
}
