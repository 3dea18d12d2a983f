package btree

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"diskbtree/internal/example"
	"diskbtree/internal/types"
)

func rec(k int64, a, r float64) example.PolarRecord {
	return example.PolarRecord{K: types.Key(k), Angle: a, Radius: r}
}

func openTestTree(t *testing.T, d, blockingFactor, nodeCache, recordCache int) *Tree[example.PolarRecord] {
	t.Helper()
	dir := t.TempDir()
	tree, err := Open(filepath.Join(dir, "nodes.bin"), filepath.Join(dir, "records.bin"), Options[example.PolarRecord]{
		D:                   d,
		BlockingFactor:      blockingFactor,
		NodeCacheCapacity:   nodeCache,
		RecordCacheCapacity: recordCache,
		RecordSize:          example.Size,
		Deserialize:         example.Deserialize,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tree.Close() })
	return tree
}

func TestEmptyThenSingle(t *testing.T) {
	tree := openTestTree(t, 2, 10, 5, 5)

	_, found, err := tree.Search(7)
	require.NoError(t, err)
	require.False(t, found)

	status, err := tree.Insert(rec(7, 1.0, 2.0))
	require.NoError(t, err)
	require.Equal(t, OK, status)

	got, found, err := tree.Search(7)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, rec(7, 1.0, 2.0), got)
}

func TestDuplicateInsertRejected(t *testing.T) {
	tree := openTestTree(t, 2, 10, 5, 5)

	status, err := tree.Insert(rec(1, 1.0, 1.0))
	require.NoError(t, err)
	require.Equal(t, OK, status)

	status, err = tree.Insert(rec(1, 99.0, 99.0))
	require.NoError(t, err)
	require.Equal(t, AlreadyExists, status)

	got, found, err := tree.Search(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, rec(1, 1.0, 1.0), got, "a rejected duplicate insert must not overwrite the original payload")
}

func TestRootSplitOnFifthInsert(t *testing.T) {
	tree := openTestTree(t, 2, 10, 5, 5)
	for _, k := range []int64{1, 2, 3, 4, 5} {
		status, err := tree.Insert(rec(k, 0, 0))
		require.NoError(t, err)
		require.Equal(t, OK, status)
	}

	root, err := tree.NodeAt(tree.Root())
	require.NoError(t, err)
	require.False(t, root.Leaf)
	require.Equal(t, 1, root.Entries)
	require.Len(t, root.Children, 2)

	left, err := tree.NodeAt(root.Children[0])
	require.NoError(t, err)
	right, err := tree.NodeAt(root.Children[1])
	require.NoError(t, err)
	require.True(t, left.Leaf)
	require.True(t, right.Leaf)
	require.Equal(t, 2, left.Entries)
	require.Equal(t, 2, right.Entries)

	height, err := tree.Height()
	require.NoError(t, err)
	require.Equal(t, 2, height, "root plus one level of leaves is height 2")

	for _, k := range []int64{1, 2, 3, 4, 5} {
		_, found, err := tree.Search(types.Key(k))
		require.NoError(t, err)
		require.True(t, found, "key %d must still be findable after the split", k)
	}
}

func TestCompensationOnInsertAvoidsSplit(t *testing.T) {
	tree := openTestTree(t, 2, 10, 5, 5)
	for _, k := range []int64{1, 2, 3, 4, 5, 0} {
		status, err := tree.Insert(rec(k, 0, 0))
		require.NoError(t, err)
		require.Equal(t, OK, status)
	}
	nodesBefore := countNodes(t, tree)

	for _, k := range []int64{-1, -2, -3} {
		status, err := tree.Insert(rec(k, 0, 0))
		require.NoError(t, err)
		require.Equal(t, OK, status)
	}

	root, err := tree.NodeAt(tree.Root())
	require.NoError(t, err)
	require.Len(t, root.Children, 2, "compensation must not create a third child")
	require.Equal(t, nodesBefore, countNodes(t, tree), "compensation must not allocate new nodes")

	for _, k := range []int64{-3, -2, -1, 0, 1, 2, 3, 4, 5} {
		_, found, err := tree.Search(types.Key(k))
		require.NoError(t, err)
		require.True(t, found)
	}
}

func countNodes(t *testing.T, tree *Tree[example.PolarRecord]) int {
	t.Helper()
	if tree.Root() == types.NullPage {
		return 0
	}
	var walk func(p types.Page) int
	walk = func(p types.Page) int {
		n, err := tree.NodeAt(p)
		require.NoError(t, err)
		count := 1
		for _, c := range n.Children {
			count += walk(c)
		}
		return count
	}
	return walk(tree.Root())
}

func TestDeleteMergeCollapsesRoot(t *testing.T) {
	tree := openTestTree(t, 2, 10, 5, 5)
	for _, k := range []int64{1, 2, 3, 4, 5} {
		status, err := tree.Insert(rec(k, 0, 0))
		require.NoError(t, err)
		require.Equal(t, OK, status)
	}
	// Tree is now root{3} with leaves {1,2} and {4,5}; the right leaf has
	// exactly D=2 entries, so it cannot lend when the left underflows.
	status, err := tree.Remove(1)
	require.NoError(t, err)
	require.Equal(t, OK, status)

	root, err := tree.NodeAt(tree.Root())
	require.NoError(t, err)
	require.True(t, root.Leaf, "the merged leaf must become the new root")
	require.Equal(t, 4, root.Entries)

	for _, k := range []int64{2, 3, 4, 5} {
		_, found, err := tree.Search(types.Key(k))
		require.NoError(t, err)
		require.True(t, found)
	}
	_, found, err := tree.Search(1)
	require.NoError(t, err)
	require.False(t, found)
}

func TestFreeSlotReuseKeepsPageCountStable(t *testing.T) {
	tree := openTestTree(t, 2, 10, 5, 5)
	for k := int64(0); k < 10; k++ {
		status, err := tree.Insert(rec(k, 0, 0))
		require.NoError(t, err)
		require.Equal(t, OK, status)
	}
	require.EqualValues(t, 1, tree.recordStore.PageCount())

	for k := int64(0); k < 10; k += 2 {
		status, err := tree.Remove(types.Key(k))
		require.NoError(t, err)
		require.Equal(t, OK, status)
	}
	for k := int64(100); k < 105; k++ {
		status, err := tree.Insert(rec(k, 0, 0))
		require.NoError(t, err)
		require.Equal(t, OK, status)
	}
	require.EqualValues(t, 1, tree.recordStore.PageCount(), "free slots must be reused instead of allocating a new record page")
}

func TestModifyIdempotentThenVisible(t *testing.T) {
	tree := openTestTree(t, 2, 10, 5, 5)
	r := rec(42, 1.5, 2.5)
	status, err := tree.Insert(r)
	require.NoError(t, err)
	require.Equal(t, OK, status)

	status, err = tree.Modify(r)
	require.NoError(t, err)
	require.Equal(t, OK, status)

	got, found, err := tree.Search(42)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, r, got)

	status, err = tree.Modify(rec(99, 0, 0))
	require.NoError(t, err)
	require.Equal(t, DoesNotExist, status)
}

func TestRemoveMissingKey(t *testing.T) {
	tree := openTestTree(t, 2, 10, 5, 5)
	status, err := tree.Remove(123)
	require.NoError(t, err)
	require.Equal(t, DoesNotExist, status)

	_, err = tree.Insert(rec(1, 0, 0))
	require.NoError(t, err)
	status, err = tree.Remove(2)
	require.NoError(t, err)
	require.Equal(t, DoesNotExist, status)
}

func TestInOrderEnumeration(t *testing.T) {
	tree := openTestTree(t, 2, 10, 5, 5)
	keys := []int64{5, 3, 8, 1, 9, 4, 7, 2, 6, 0}
	for _, k := range keys {
		_, err := tree.Insert(rec(k, 0, 0))
		require.NoError(t, err)
	}
	all, err := tree.All()
	require.NoError(t, err)
	require.Len(t, all, len(keys))
	for i := 1; i < len(all); i++ {
		require.Less(t, all[i-1].K, all[i].K, "All must enumerate in ascending key order")
	}
}

// Property test: a randomized sequence of inserts, deletes, and modifies
// must agree with a reference map at every step, and the tree's
// structural invariants must hold on every call boundary.
func TestRandomSequenceMatchesReferenceAndStaysBalanced(t *testing.T) {
	tree := openTestTree(t, 2, 10, 5, 5)
	reference := make(map[types.Key]example.PolarRecord)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 400; i++ {
		k := types.Key(rng.Intn(60))
		switch rng.Intn(3) {
		case 0: // insert
			r := rec(int64(k), rng.Float64(), rng.Float64())
			status, err := tree.Insert(r)
			require.NoError(t, err)
			if _, exists := reference[k]; exists {
				require.Equal(t, AlreadyExists, status)
			} else {
				require.Equal(t, OK, status)
				reference[k] = r
			}
		case 1: // remove
			status, err := tree.Remove(k)
			require.NoError(t, err)
			if _, exists := reference[k]; exists {
				require.Equal(t, OK, status)
				delete(reference, k)
			} else {
				require.Equal(t, DoesNotExist, status)
			}
		case 2: // modify
			r := rec(int64(k), rng.Float64(), rng.Float64())
			status, err := tree.Modify(r)
			require.NoError(t, err)
			if _, exists := reference[k]; exists {
				require.Equal(t, OK, status)
				reference[k] = r
			} else {
				require.Equal(t, DoesNotExist, status)
			}
		}
		assertInvariants(t, tree)
	}

	all, err := tree.All()
	require.NoError(t, err)
	require.Len(t, all, len(reference))
	for _, r := range all {
		want, ok := reference[r.K]
		require.True(t, ok)
		require.Equal(t, want, r)
	}
}

// assertInvariants walks the whole tree checking that every node's entry
// count stays within [D, 2D] (except the root, which only needs at least
// one entry), every internal node has one more child than entries, every
// child's stored
// parent pointer matches its actual parent, and every leaf sits at the
// same depth.
func assertInvariants(t *testing.T, tree *Tree[example.PolarRecord]) {
	t.Helper()
	if tree.Root() == types.NullPage {
		return
	}
	leafDepths := map[int]bool{}
	var walk func(page types.Page, parent types.Page, depth int, isRoot bool)
	walk = func(page types.Page, parent types.Page, depth int, isRoot bool) {
		n, err := tree.NodeAt(page)
		require.NoError(t, err)
		require.Equal(t, parent, n.Parent, "child's stored parent must match its actual parent")

		if !isRoot {
			require.GreaterOrEqual(t, n.Entries, tree.opt.D, "non-root node underfilled")
		}
		require.LessOrEqual(t, n.Entries, 2*tree.opt.D, "node overfilled")
		if isRoot {
			require.GreaterOrEqual(t, n.Entries, 1)
		}

		if n.Leaf {
			leafDepths[depth] = true
			return
		}
		require.Len(t, n.Children, n.Entries+1)
		for _, c := range n.Children {
			walk(c, page, depth+1, false)
		}
	}
	walk(tree.Root(), types.NullPage, 0, true)
	require.Len(t, leafDepths, 1, "all leaves must be at the same depth")
}
