package index

import "talondb/common"

// InternalNode is a fixed slot array of (key, child pageID) pairs. Slot 0's
// key is a dummy value (ignored by every comparison): slot i for i>=1
// holds a lower bound for every key reachable through ChildAt(i) (Remove
// does not raise it when that subtree's smallest key is deleted), and
// ChildAt(0) holds everything less than KeyAt(1). Grounded on
// other_examples/jobala-petro__page.go's fixed array design; the
// dummy-first-key convention follows spec.md's description of the
// fixed-size internal page layout.
type InternalNode struct {
	buf      []byte
	keyWidth common.KeyWidth
}

const pageIDSize = 4

func NewInternalNode(buf []byte, keyWidth common.KeyWidth, maxSize int, parentID common.PageID) *InternalNode {
	writeNodeHeader(buf, nodeHeader{
		typ:      internalNodeType,
		size:     0,
		maxSize:  maxSize,
		parentID: parentID,
	})
	return &InternalNode{buf: buf, keyWidth: keyWidth}
}

func LoadInternalNode(buf []byte, keyWidth common.KeyWidth) *InternalNode {
	return &InternalNode{buf: buf, keyWidth: keyWidth}
}

func (n *InternalNode) header() nodeHeader     { return readNodeHeader(n.buf) }
func (n *InternalNode) setHeader(h nodeHeader) { writeNodeHeader(n.buf, h) }

func (n *InternalNode) Size() int               { return n.header().size }
func (n *InternalNode) MaxSize() int             { return n.header().maxSize }
func (n *InternalNode) ParentID() common.PageID { return n.header().parentID }

func (n *InternalNode) SetParentID(id common.PageID) {
	h := n.header()
	h.parentID = id
	n.setHeader(h)
}

func (n *InternalNode) setSize(size int) {
	h := n.header()
	h.size = size
	n.setHeader(h)
}

func (n *InternalNode) slotSize() int    { return int(n.keyWidth) + pageIDSize }
func (n *InternalNode) slotOffset(i int) int { return nodeHeaderSize + i*n.slotSize() }

func (n *InternalNode) KeyAt(i int) common.Key {
	off := n.slotOffset(i)
	data := make([]byte, n.keyWidth)
	copy(data, n.buf[off:off+int(n.keyWidth)])
	return common.NewKey(n.keyWidth, data)
}

func (n *InternalNode) ChildAt(i int) common.PageID {
	off := n.slotOffset(i) + int(n.keyWidth)
	return common.PageID(uint32(n.buf[off])<<24 | uint32(n.buf[off+1])<<16 | uint32(n.buf[off+2])<<8 | uint32(n.buf[off+3]))
}

func (n *InternalNode) SetKeyAt(i int, key common.Key) {
	off := n.slotOffset(i)
	copy(n.buf[off:off+int(n.keyWidth)], key.Bytes())
}

func (n *InternalNode) SetChildAt(i int, id common.PageID) {
	off := n.slotOffset(i) + int(n.keyWidth)
	v := uint32(id)
	n.buf[off] = byte(v >> 24)
	n.buf[off+1] = byte(v >> 16)
	n.buf[off+2] = byte(v >> 8)
	n.buf[off+3] = byte(v)
}

func (n *InternalNode) copySlot(src, dst int) {
	srcOff, dstOff := n.slotOffset(src), n.slotOffset(dst)
	copy(n.buf[dstOff:dstOff+n.slotSize()], n.buf[srcOff:srcOff+n.slotSize()])
}

func (n *InternalNode) shiftRight(from int) {
	for i := n.Size(); i > from; i-- {
		n.copySlot(i-1, i)
	}
}

// Lookup returns the index of the child to descend into for key: the
// largest i with KeyAt(i) <= key (slot 0's dummy key always satisfies
// this, so Lookup never returns -1).
func (n *InternalNode) Lookup(key common.Key) int {
	size := n.Size()
	lo, hi := 1, size
	for lo < hi {
		mid := (lo + hi) / 2
		if n.KeyAt(mid).LessEqual(key) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

// InsertAt inserts (key, child) at idx, shifting later slots right. A call
// on a full node leaves it at MaxSize()+1, the one-entry overflow that
// insertIntoParent then resolves by splitting; the page buffer must have
// room for that extra slot.
func (n *InternalNode) InsertAt(idx int, key common.Key, child common.PageID) {
	n.shiftRight(idx)
	n.SetKeyAt(idx, key)
	n.SetChildAt(idx, child)
	n.setSize(n.Size() + 1)
}

// InsertNodeAfter inserts (key, newChild) immediately after the slot
// holding oldChildIdx, used after splitting the child at oldChildIdx.
func (n *InternalNode) InsertNodeAfter(oldChildIdx int, key common.Key, newChild common.PageID) {
	n.InsertAt(oldChildIdx+1, key, newChild)
}

// DeleteAt removes the slot at idx, shifting later slots left.
func (n *InternalNode) DeleteAt(idx int) {
	size := n.Size()
	for i := idx; i < size-1; i++ {
		n.copySlot(i+1, i)
	}
	n.setSize(size - 1)
}

// MoveHalfTo moves n's upper half onto `to` (whose slot 0 becomes the
// moved block's first child, with a fresh dummy key), used when splitting
// an overflowing internal node. Returns the separator to push into the
// parent -- the key at the split point, which is not kept in either half.
func (n *InternalNode) MoveHalfTo(to *InternalNode) common.Key {
	size := n.Size()
	mid := size / 2
	pushUpKey := n.KeyAt(mid)

	to.InsertAt(0, common.DummyKey(n.keyWidth), n.ChildAt(mid))
	for i := mid + 1; i < size; i++ {
		to.InsertAt(to.Size(), n.KeyAt(i), n.ChildAt(i))
	}
	n.setSize(mid)
	return pushUpKey
}

// MoveAllTo appends all of n's slots onto the end of `to`, using separator
// as the key reattaching n's first child (previously the parent's
// dummy-implicit separator between `to` and n). Used when merging an
// underflowing internal node into its left sibling. n is left with size 0.
func (n *InternalNode) MoveAllTo(to *InternalNode, separator common.Key) {
	to.InsertAt(to.Size(), separator, n.ChildAt(0))
	size := n.Size()
	for i := 1; i < size; i++ {
		to.InsertAt(to.Size(), n.KeyAt(i), n.ChildAt(i))
	}
	n.setSize(0)
}

// StealFirstFrom moves right's first child onto the end of n (the left
// sibling), reattached with the current parent separator between them.
// Returns the new separator the parent must record in its place.
func (n *InternalNode) StealFirstFrom(right *InternalNode, separator common.Key) (newSeparator common.Key) {
	n.InsertAt(n.Size(), separator, right.ChildAt(0))
	newSeparator = right.KeyAt(1)
	right.SetChildAt(0, right.ChildAt(1))
	right.DeleteAt(1)
	return newSeparator
}

// StealLastFrom moves left's last child onto the front of n (the right
// sibling), reattached with the current parent separator between them.
// Returns the new separator the parent must record in its place.
func (n *InternalNode) StealLastFrom(left *InternalNode, separator common.Key) (newSeparator common.Key) {
	lastIdx := left.Size() - 1
	stolenChild := left.ChildAt(lastIdx)
	newSeparator = left.KeyAt(lastIdx)
	left.DeleteAt(lastIdx)

	n.InsertAt(0, common.DummyKey(n.keyWidth), stolenChild)
	n.SetKeyAt(1, separator)
	return newSeparator
}
