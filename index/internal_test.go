package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talondb/common"
	"talondb/index"
)

func newInternalBuf(pageSize int) []byte { return make([]byte, pageSize) }

// buildInternal returns an internal node with children c0..cN under
// separators sep1..sepN, i.e. slot 0 is (dummy, c0), slot i is (sepI, cI).
func buildInternal(maxSize int, children []common.PageID, seps []common.Key) *index.InternalNode {
	n := index.NewInternalNode(newInternalBuf(256), common.KeyWidth8, maxSize, common.InvalidPageID)
	n.InsertAt(0, common.DummyKey(common.KeyWidth8), children[0])
	for i, sep := range seps {
		n.InsertAt(i+1, sep, children[i+1])
	}
	return n
}

func TestInternalNode_LookupResolvesDummyFirstSlot(t *testing.T) {
	n := buildInternal(8,
		[]common.PageID{1, 2, 3},
		[]common.Key{key(10), key(20)},
	)

	assert.Equal(t, 0, n.Lookup(key(0)))
	assert.Equal(t, 0, n.Lookup(key(9)))
	assert.Equal(t, 1, n.Lookup(key(10)))
	assert.Equal(t, 1, n.Lookup(key(15)))
	assert.Equal(t, 2, n.Lookup(key(20)))
	assert.Equal(t, 2, n.Lookup(key(1000)))
}

func TestInternalNode_InsertNodeAfterPlacesNewChildCorrectly(t *testing.T) {
	n := buildInternal(8, []common.PageID{1, 2}, []common.Key{key(10)})

	n.InsertNodeAfter(0, key(5), common.PageID(99))
	require.Equal(t, 3, n.Size())
	assert.Equal(t, common.PageID(1), n.ChildAt(0))
	assert.Equal(t, common.PageID(99), n.ChildAt(1))
	assert.True(t, n.KeyAt(1).Equal(key(5)))
	assert.Equal(t, common.PageID(2), n.ChildAt(2))
	assert.True(t, n.KeyAt(2).Equal(key(10)))
}

func TestInternalNode_MoveHalfToPreservesDummyKeyInvariant(t *testing.T) {
	left := buildInternal(4,
		[]common.PageID{1, 2, 3, 4},
		[]common.Key{key(10), key(20), key(30)},
	)
	right := index.NewInternalNode(newInternalBuf(256), common.KeyWidth8, 4, common.InvalidPageID)

	pushUp := left.MoveHalfTo(right)
	assert.True(t, pushUp.Equal(key(20)))
	assert.Equal(t, 2, left.Size())
	require.Equal(t, 2, right.Size())
	assert.Equal(t, common.PageID(3), right.ChildAt(0))
	assert.Equal(t, common.PageID(4), right.ChildAt(1))
	assert.True(t, right.KeyAt(1).Equal(key(30)))
}

func TestInternalNode_MoveAllToMergeReattachesFirstChildWithSeparator(t *testing.T) {
	left := buildInternal(8, []common.PageID{1, 2}, []common.Key{key(10)})
	right := buildInternal(8, []common.PageID{3, 4}, []common.Key{key(30)})

	right.MoveAllTo(left, key(20))
	assert.Equal(t, 0, right.Size())
	require.Equal(t, 4, left.Size())
	assert.Equal(t, common.PageID(3), left.ChildAt(2))
	assert.True(t, left.KeyAt(2).Equal(key(20)))
	assert.Equal(t, common.PageID(4), left.ChildAt(3))
	assert.True(t, left.KeyAt(3).Equal(key(30)))
}

func TestInternalNode_StealFirstFromUpdatesSeparator(t *testing.T) {
	left := buildInternal(8, []common.PageID{1, 2}, []common.Key{key(10)})
	right := buildInternal(8, []common.PageID{3, 4, 5}, []common.Key{key(30), key(40)})

	newSep := left.StealFirstFrom(right, key(20))
	assert.True(t, newSep.Equal(key(30)))
	require.Equal(t, 3, left.Size())
	assert.Equal(t, common.PageID(3), left.ChildAt(2))
	assert.True(t, left.KeyAt(2).Equal(key(20)))

	require.Equal(t, 2, right.Size())
	assert.Equal(t, common.PageID(4), right.ChildAt(0))
	assert.True(t, right.KeyAt(1).Equal(key(40)))
}

func TestInternalNode_StealLastFromUpdatesSeparator(t *testing.T) {
	left := buildInternal(8, []common.PageID{1, 2, 3}, []common.Key{key(10), key(20)})
	right := buildInternal(8, []common.PageID{4, 5}, []common.Key{key(40)})

	newSep := right.StealLastFrom(left, key(30))
	assert.True(t, newSep.Equal(key(20)))
	require.Equal(t, 2, left.Size())
	assert.Equal(t, common.PageID(1), left.ChildAt(0))
	assert.True(t, left.KeyAt(1).Equal(key(10)))

	require.Equal(t, 3, right.Size())
	assert.Equal(t, common.PageID(3), right.ChildAt(0))
	assert.True(t, right.KeyAt(1).Equal(key(30)))
	assert.Equal(t, common.PageID(4), right.ChildAt(1))
	assert.Equal(t, common.PageID(5), right.ChildAt(2))
}
