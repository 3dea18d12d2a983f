package btree

import "diskbtree/internal/types"

// All returns every live record in ascending key order, descending the
// tree the same way the original's printAll walks it: recurse into each
// child before the entry that follows it, recurse into the last child
// after the final entry.
func (t *Tree[T]) All() ([]T, error) {
	if t.root == types.NullPage {
		return nil, nil
	}
	var out []T
	if err := t.collect(t.root, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Tree[T]) collect(page types.Page, out *[]T) error {
	n, err := t.getNode(page)
	if err != nil {
		return err
	}
	for i, e := range n.Entries {
		if !n.Leaf {
			if err := t.collect(n.Children[i], out); err != nil {
				return err
			}
		}
		buf, err := t.heap.Read(e.Address)
		if err != nil {
			return err
		}
		*out = append(*out, t.opt.Deserialize(buf))
	}
	if !n.Leaf {
		if err := t.collect(n.Children[len(n.Entries)], out); err != nil {
			return err
		}
	}
	return nil
}
