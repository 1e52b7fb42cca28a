package buffer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talondb/buffer"
	"talondb/common"
)

func TestLRUReplacer_VictimReturnsOldestUnpinnedFirst(t *testing.T) {
	r := buffer.NewLRUReplacer(4)

	r.Unpin(common.FrameID(1))
	r.Unpin(common.FrameID(2))
	r.Unpin(common.FrameID(3))

	id, ok := r.Victim()
	require.True(t, ok)
	assert.Equal(t, common.FrameID(1), id)

	id, ok = r.Victim()
	require.True(t, ok)
	assert.Equal(t, common.FrameID(2), id)
}

func TestLRUReplacer_PinRemovesFromEvictableSet(t *testing.T) {
	r := buffer.NewLRUReplacer(4)
	r.Unpin(common.FrameID(1))
	r.Unpin(common.FrameID(2))

	r.Pin(common.FrameID(1))
	assert.Equal(t, 1, r.Size())

	id, ok := r.Victim()
	require.True(t, ok)
	assert.Equal(t, common.FrameID(2), id, "pinned frame must not be selected as a victim")
}

func TestLRUReplacer_VictimOnEmptyReturnsFalse(t *testing.T) {
	r := buffer.NewLRUReplacer(4)
	_, ok := r.Victim()
	assert.False(t, ok)
}

func TestLRUReplacer_ReUnpinOfEvictableFrameDoesNotMove(t *testing.T) {
	r := buffer.NewLRUReplacer(4)
	r.Unpin(common.FrameID(1))
	r.Unpin(common.FrameID(2))
	r.Unpin(common.FrameID(1)) // already evictable; must not jump to the back

	id, ok := r.Victim()
	require.True(t, ok)
	assert.Equal(t, common.FrameID(1), id)
}

func TestLRUReplacer_UnpinBeyondCapacityIsNoOp(t *testing.T) {
	r := buffer.NewLRUReplacer(2)
	r.Unpin(common.FrameID(1))
	r.Unpin(common.FrameID(2))
	r.Unpin(common.FrameID(3)) // over capacity, dropped

	assert.Equal(t, 2, r.Size())
}

func TestLRUReplacer_PinOfAbsentFrameIsNoOp(t *testing.T) {
	r := buffer.NewLRUReplacer(4)
	r.Pin(common.FrameID(99)) // must not panic
	assert.Equal(t, 0, r.Size())
}
