package btree

import (
	"diskbtree/internal/node"
	"diskbtree/internal/types"
)

// merge folds an underfull node (resident at page) together with whichever
// sibling exists, preferring the left one. The merged result is the left
// participant's entries, the parent's separating key, and the right
// participant's entries (and, for internal nodes, their concatenated
// children, reparented onto the left participant's page). The merged
// result is written at the left participant's page; the right
// participant's page is freed.
func (t *Tree[T]) merge(n *node.Node, page types.Page) (node.Node, types.Page, error) {
	parent, err := t.getNode(n.Parent)
	if err != nil {
		return node.Node{}, 0, err
	}
	idx := parent.IndexOfChild(page)

	var leftPage, rightPage types.Page
	var left, right node.Node
	var parentEntry int
	if idx > 0 {
		leftPage = parent.Children[idx-1]
		left, err = t.getNode(leftPage)
		if err != nil {
			return node.Node{}, 0, err
		}
		rightPage, right = page, *n
		parentEntry = idx - 1
	} else {
		leftPage, left = page, *n
		rightPage = parent.Children[idx+1]
		right, err = t.getNode(rightPage)
		if err != nil {
			return node.Node{}, 0, err
		}
		parentEntry = idx
	}

	merged := node.Node{Leaf: left.Leaf, Parent: left.Parent}
	merged.Entries = append(append([]node.Entry(nil), left.Entries...), parent.Entries[parentEntry])
	merged.Entries = append(merged.Entries, right.Entries...)
	if !left.Leaf {
		merged.Children = append(append([]types.Page(nil), left.Children...), right.Children...)
		for _, c := range right.Children {
			if err := t.setParent(c, leftPage); err != nil {
				return node.Node{}, 0, err
			}
		}
	}

	parent.RemoveEntryAt(parentEntry)
	parent.RemoveChildAt(parentEntry + 1)

	t.delNode(rightPage)
	if err := t.putNode(leftPage, merged); err != nil {
		return node.Node{}, 0, err
	}

	return parent, n.Parent, nil
}
