package btree

import (
	"diskbtree/internal/node"
	"diskbtree/internal/types"
)

// split rebalances an overflowing node (2D+1 entries, resident at page)
// into two nodes of D entries each, promoting the median entry into the
// parent. If n had no parent, a fresh root is allocated first.
func (t *Tree[T]) split(n *node.Node, page types.Page) (node.Node, types.Page, error) {
	d := t.opt.D
	median := n.Entries[d]

	sibling := node.Node{Leaf: n.Leaf}
	sibling.Entries = append([]node.Entry(nil), n.Entries[d+1:]...)
	if !n.Leaf {
		sibling.Children = append([]types.Page(nil), n.Children[d+1:]...)
	}

	var parent node.Node
	var parentPage types.Page
	var err error
	if n.Parent == types.NullPage {
		parentPage, err = t.newNode(node.Node{Leaf: false})
		if err != nil {
			return node.Node{}, 0, err
		}
		t.root = parentPage
		n.Parent = parentPage
		parent = node.Node{Leaf: false, Parent: types.NullPage, Children: []types.Page{page}}
	} else {
		parentPage = n.Parent
		parent, err = t.getNode(parentPage)
		if err != nil {
			return node.Node{}, 0, err
		}
	}

	sibling.Parent = n.Parent
	siblingPage, err := t.newNode(sibling)
	if err != nil {
		return node.Node{}, 0, err
	}

	if !sibling.Leaf {
		for _, child := range sibling.Children {
			if err := t.setParent(child, siblingPage); err != nil {
				return node.Node{}, 0, err
			}
		}
	}

	parent.AddChild(median, siblingPage)

	n.Entries = n.Entries[:d]
	if !n.Leaf {
		n.Children = n.Children[:d+1]
	}
	if err := t.putNode(page, *n); err != nil {
		return node.Node{}, 0, err
	}

	return parent, parentPage, nil
}
