package index

import "talondb/common"

// LeafNode is a thin typed view over a frame's raw bytes: a nodeHeader
// followed by up to MaxSize (key, RID) slots in sorted key order. Grounded
// on other_examples/jobala-petro__leaf_page.go's fixed slot array, widened
// to spec.md's runtime-configurable key width instead of a Go generic
// parameter (the buffer pool deals in raw []byte frames, not typed pages).
type LeafNode struct {
	buf      []byte
	keyWidth common.KeyWidth
}

// NewLeafNode initializes buf as an empty leaf page.
func NewLeafNode(buf []byte, keyWidth common.KeyWidth, maxSize int, parentID common.PageID) *LeafNode {
	writeNodeHeader(buf, nodeHeader{
		typ:        leafNodeType,
		size:       0,
		maxSize:    maxSize,
		parentID:   parentID,
		nextPageID: common.InvalidPageID,
	})
	return &LeafNode{buf: buf, keyWidth: keyWidth}
}

// LoadLeafNode wraps an already-initialized leaf page's bytes.
func LoadLeafNode(buf []byte, keyWidth common.KeyWidth) *LeafNode {
	return &LeafNode{buf: buf, keyWidth: keyWidth}
}

func (n *LeafNode) header() nodeHeader    { return readNodeHeader(n.buf) }
func (n *LeafNode) setHeader(h nodeHeader) { writeNodeHeader(n.buf, h) }

func (n *LeafNode) Size() int                  { return n.header().size }
func (n *LeafNode) MaxSize() int                { return n.header().maxSize }
func (n *LeafNode) ParentID() common.PageID    { return n.header().parentID }
func (n *LeafNode) NextPageID() common.PageID  { return n.header().nextPageID }

func (n *LeafNode) SetParentID(id common.PageID) {
	h := n.header()
	h.parentID = id
	n.setHeader(h)
}

func (n *LeafNode) SetNextPageID(id common.PageID) {
	h := n.header()
	h.nextPageID = id
	n.setHeader(h)
}

func (n *LeafNode) setSize(size int) {
	h := n.header()
	h.size = size
	n.setHeader(h)
}

func (n *LeafNode) slotSize() int { return int(n.keyWidth) + common.RIDSize }

func (n *LeafNode) slotOffset(i int) int { return nodeHeaderSize + i*n.slotSize() }

func (n *LeafNode) KeyAt(i int) common.Key {
	off := n.slotOffset(i)
	data := make([]byte, n.keyWidth)
	copy(data, n.buf[off:off+int(n.keyWidth)])
	return common.NewKey(n.keyWidth, data)
}

func (n *LeafNode) RIDAt(i int) common.RID {
	off := n.slotOffset(i) + int(n.keyWidth)
	return common.RIDFromBytes(n.buf[off : off+common.RIDSize])
}

func (n *LeafNode) SetKeyAt(i int, key common.Key) {
	off := n.slotOffset(i)
	copy(n.buf[off:off+int(n.keyWidth)], key.Bytes())
}

func (n *LeafNode) SetRIDAt(i int, rid common.RID) {
	off := n.slotOffset(i) + int(n.keyWidth)
	copy(n.buf[off:off+common.RIDSize], rid.Bytes())
}

func (n *LeafNode) copySlot(src, dst int) {
	srcOff, dstOff := n.slotOffset(src), n.slotOffset(dst)
	copy(n.buf[dstOff:dstOff+n.slotSize()], n.buf[srcOff:srcOff+n.slotSize()])
}

// shiftRight shifts every slot in [from, Size()) one position to the
// right, making room to insert at `from`. It does not update size.
func (n *LeafNode) shiftRight(from int) {
	for i := n.Size(); i > from; i-- {
		n.copySlot(i-1, i)
	}
}

// FindIndex returns the lower-bound index of key: the first slot whose key
// is >= key. found is true if that slot's key equals key exactly.
func (n *LeafNode) FindIndex(key common.Key) (idx int, found bool) {
	size := n.Size()
	lo, hi := 0, size
	for lo < hi {
		mid := (lo + hi) / 2
		if n.KeyAt(mid).Less(key) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < size && n.KeyAt(lo).Equal(key) {
		return lo, true
	}
	return lo, false
}

// InsertAt inserts (key, rid) at idx, shifting later slots right. A call
// on a full node leaves it at MaxSize()+1, the one-entry overflow that
// BPlusTree.Insert then resolves by splitting; the page buffer must have
// room for that extra slot.
func (n *LeafNode) InsertAt(idx int, key common.Key, rid common.RID) {
	n.shiftRight(idx)
	n.SetKeyAt(idx, key)
	n.SetRIDAt(idx, rid)
	n.setSize(n.Size() + 1)
}

// DeleteAt removes the slot at idx, shifting later slots left.
func (n *LeafNode) DeleteAt(idx int) {
	size := n.Size()
	for i := idx; i < size-1; i++ {
		n.copySlot(i+1, i)
	}
	n.setSize(size - 1)
}

// MoveHalfTo moves n's upper half of slots onto the front of `to`, used
// when splitting an overflowing leaf. Returns to's first key, the
// separator to insert into the parent.
func (n *LeafNode) MoveHalfTo(to *LeafNode) common.Key {
	size := n.Size()
	mid := size / 2
	for i := mid; i < size; i++ {
		to.InsertAt(i-mid, n.KeyAt(i), n.RIDAt(i))
	}
	n.setSize(mid)
	return to.KeyAt(0)
}

// MoveAllTo appends all of n's slots onto the end of `to`, used when
// merging n into its left sibling `to`. n is left with size 0.
func (n *LeafNode) MoveAllTo(to *LeafNode) {
	size := n.Size()
	base := to.Size()
	for i := 0; i < size; i++ {
		to.InsertAt(base+i, n.KeyAt(i), n.RIDAt(i))
	}
	n.setSize(0)
}

// MoveFirstToEndOf moves n's first slot onto the end of `to`, used when
// redistributing a key from n into its left sibling `to`.
func (n *LeafNode) MoveFirstToEndOf(to *LeafNode) {
	to.InsertAt(to.Size(), n.KeyAt(0), n.RIDAt(0))
	n.DeleteAt(0)
}

// MoveLastToFrontOf moves n's last slot onto the front of `to`, used when
// redistributing a key from n into its right sibling `to`.
func (n *LeafNode) MoveLastToFrontOf(to *LeafNode) {
	last := n.Size() - 1
	to.InsertAt(0, n.KeyAt(last), n.RIDAt(last))
	n.DeleteAt(last)
}
