// Package node implements the fixed-layout B-tree node — a parent
// pointer, a leaf flag, an entry count, a zero-padded array of 2D
// (key, address) entries, and a zero-padded array of 2D+1 child page
// numbers. The layout, field order, and padding scheme are translated
// byte-for-byte from the original C++ node's memcpy-based serialize.
package node

import (
	"encoding/binary"
	"sort"

	"diskbtree/internal/types"
	"diskbtree/pkg/assert"
)

// Entry pairs a key with the address of its record.
type Entry struct {
	Key     types.Key
	Address types.Address
}

// Node is an in-memory B-tree node. Children is only meaningful when
// !Leaf, and then always holds len(Entries)+1 pages.
type Node struct {
	Parent   types.Page
	Leaf     bool
	Entries  []Entry
	Children []types.Page
}

const (
	entrySize  = 8 + 4 + 4 // Key + Address.Page + Address.Offset
	childSize  = 4         // Page
	headerSize = 4 + 1 + 4 // Parent + Leaf + count
)

// Size returns the fixed on-disk size of a node for order d.
func Size(d int) int {
	assert.Invariant(d >= 2, "order D must be >= 2, got %d", d)
	return headerSize + 2*d*entrySize + (2*d+1)*childSize
}

// UpperBound returns the index of the first entry whose key is greater
// than key — the same position upper_bound finds in the original, used
// both by search (entry at idx-1, if its key matches) and by insertion.
func (n Node) UpperBound(key types.Key) int {
	return sort.Search(len(n.Entries), func(i int) bool { return n.Entries[i].Key > key })
}

// IndexOfChild returns the position of page among n's children. Pages
// are not kept in numeric order, so this is a linear scan over a small
// (at most 2D+1) slice.
func (n Node) IndexOfChild(page types.Page) int {
	for i, c := range n.Children {
		if c == page {
			return i
		}
	}
	assert.Invariant(false, "page %d is not a child of its recorded parent", page)
	return -1
}

// AddEntry inserts e in sorted position and returns the index used.
func (n *Node) AddEntry(e Entry) int {
	idx := n.UpperBound(e.Key)
	n.Entries = append(n.Entries, Entry{})
	copy(n.Entries[idx+1:], n.Entries[idx:])
	n.Entries[idx] = e
	return idx
}

// AddChild inserts e and its right-hand child page in sorted position.
func (n *Node) AddChild(e Entry, child types.Page) {
	idx := n.AddEntry(e)
	n.Children = append(n.Children, 0)
	copy(n.Children[idx+2:], n.Children[idx+1:])
	n.Children[idx+1] = child
}

// PopFront removes the first entry (and, for an internal node, its
// leftmost child).
func (n *Node) PopFront() {
	n.Entries = n.Entries[1:]
	if !n.Leaf {
		n.Children = n.Children[1:]
	}
}

// PopBack removes the last entry (and, for an internal node, its
// rightmost child).
func (n *Node) PopBack() {
	n.Entries = n.Entries[:len(n.Entries)-1]
	if !n.Leaf {
		n.Children = n.Children[:len(n.Children)-1]
	}
}

// PushFrontEntry prepends e.
func (n *Node) PushFrontEntry(e Entry) {
	n.Entries = append(n.Entries, Entry{})
	copy(n.Entries[1:], n.Entries)
	n.Entries[0] = e
}

// PushFrontChild prepends a child page.
func (n *Node) PushFrontChild(p types.Page) {
	n.Children = append(n.Children, 0)
	copy(n.Children[1:], n.Children)
	n.Children[0] = p
}

// RemoveEntryAt deletes the entry at idx.
func (n *Node) RemoveEntryAt(idx int) {
	n.Entries = append(n.Entries[:idx], n.Entries[idx+1:]...)
}

// RemoveChildAt deletes the child pointer at idx.
func (n *Node) RemoveChildAt(idx int) {
	n.Children = append(n.Children[:idx], n.Children[idx+1:]...)
}

// Serialize packs n into a Size(d)-byte buffer.
func Serialize(n Node, d int) types.Data {
	buf := make(types.Data, Size(d))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(n.Parent)))
	if n.Leaf {
		buf[4] = 1
	}
	binary.LittleEndian.PutUint32(buf[5:9], uint32(len(n.Entries)))

	off := headerSize
	for _, e := range n.Entries {
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(e.Key))
		binary.LittleEndian.PutUint32(buf[off+8:off+12], uint32(int32(e.Address.Page)))
		binary.LittleEndian.PutUint32(buf[off+12:off+16], uint32(e.Address.Offset))
		off += entrySize
	}

	if !n.Leaf {
		childOff := headerSize + 2*d*entrySize
		for i, c := range n.Children {
			o := childOff + i*childSize
			binary.LittleEndian.PutUint32(buf[o:o+4], uint32(int32(c)))
		}
	}
	return buf
}

// Deserialize unpacks a Size(d)-byte buffer produced by Serialize.
func Deserialize(buf types.Data, d int) Node {
	assert.Invariant(len(buf) == Size(d), "node buffer has wrong size for order %d: got %d, want %d", d, len(buf), Size(d))

	var n Node
	n.Parent = types.Page(int32(binary.LittleEndian.Uint32(buf[0:4])))
	n.Leaf = buf[4] != 0
	count := int(binary.LittleEndian.Uint32(buf[5:9]))

	off := headerSize
	if count > 0 {
		n.Entries = make([]Entry, count)
	}
	for i := 0; i < count; i++ {
		key := types.Key(int64(binary.LittleEndian.Uint64(buf[off : off+8])))
		page := types.Page(int32(binary.LittleEndian.Uint32(buf[off+8 : off+12])))
		offset := int32(binary.LittleEndian.Uint32(buf[off+12 : off+16]))
		n.Entries[i] = Entry{Key: key, Address: types.Address{Page: page, Offset: offset}}
		off += entrySize
	}

	if !n.Leaf {
		childOff := headerSize + 2*d*entrySize
		n.Children = make([]types.Page, count+1)
		for i := 0; i <= count; i++ {
			o := childOff + i*childSize
			n.Children[i] = types.Page(int32(binary.LittleEndian.Uint32(buf[o : o+4])))
		}
	}
	return n
}
