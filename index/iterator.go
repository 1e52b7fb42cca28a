package index

import (
	"talondb/buffer"
	"talondb/common"
)

// Iterator walks a leaf chain left to right under read latches, one leaf
// pinned at a time. Grounded on the teacher's btree/btree/iterator.go
// (TreeIterator): hand-over-hand advance to the next leaf via its sibling
// pointer once the current one is exhausted.
type Iterator struct {
	tree    *BPlusTree
	guard   *buffer.PageGuard
	idx     int
	done    bool
}

// Begin positions an iterator at the first key in the tree.
func (t *BPlusTree) Begin() *Iterator {
	if t.IsEmpty() {
		return &Iterator{done: true}
	}

	t.rootLatch.RLock()
	guard := buffer.FetchPageGuard(t.bpm, t.rootID, false)
	t.rootLatch.RUnlock()
	if guard == nil {
		return &Iterator{done: true}
	}

	for !isLeafPage(guard.Data()) {
		internal := LoadInternalNode(guard.Data(), t.keyWidth)
		childID := internal.ChildAt(0)
		next := buffer.FetchPageGuard(t.bpm, childID, false)
		guard.Release(false)
		if next == nil {
			return &Iterator{done: true}
		}
		guard = next
	}

	return &Iterator{tree: t, guard: guard, idx: 0, done: LoadLeafNode(guard.Data(), t.keyWidth).Size() == 0}
}

// BeginAt positions an iterator at the first key >= key.
func (t *BPlusTree) BeginAt(key common.Key) *Iterator {
	stack, _ := t.traverse(key, Read)
	if stack == nil {
		return &Iterator{done: true}
	}
	guard := stack[len(stack)-1]
	leaf := LoadLeafNode(guard.Data(), t.keyWidth)
	idx, _ := leaf.FindIndex(key)

	it := &Iterator{tree: t, guard: guard, idx: idx}
	it.done = it.idx >= leaf.Size() && !it.advanceToNextLeaf()
	return it
}

// IsEnd reports whether the iterator has been exhausted.
func (it *Iterator) IsEnd() bool { return it.done }

// Next returns the current (key, RID) pair and advances. Calling Next
// after IsEnd reports true returns zero values.
func (it *Iterator) Next() (common.Key, common.RID) {
	if it.done {
		return common.Key{}, common.RID{}
	}

	leaf := LoadLeafNode(it.guard.Data(), it.tree.keyWidth)
	key, rid := leaf.KeyAt(it.idx), leaf.RIDAt(it.idx)
	it.idx++

	if it.idx >= leaf.Size() {
		it.done = !it.advanceToNextLeaf()
	}
	return key, rid
}

// advanceToNextLeaf fetches and latches the right sibling before
// releasing the current leaf, so the chain is never left with no latch
// held on it, and skips over any empty leaves. Returns false once the
// chain is exhausted.
func (it *Iterator) advanceToNextLeaf() bool {
	for {
		leaf := LoadLeafNode(it.guard.Data(), it.tree.keyWidth)
		next := leaf.NextPageID()
		if !next.IsValid() {
			it.guard.Release(false)
			it.guard = nil
			return false
		}

		g := buffer.FetchPageGuard(it.tree.bpm, next, false)
		it.guard.Release(false)
		if g == nil {
			it.guard = nil
			return false
		}
		it.guard = g
		it.idx = 0
		if LoadLeafNode(g.Data(), it.tree.keyWidth).Size() > 0 {
			return true
		}
	}
}

// Close releases the iterator's currently pinned leaf, if any. Safe to
// call multiple times and after natural exhaustion.
func (it *Iterator) Close() {
	if it.guard != nil {
		it.guard.Release(false)
		it.guard = nil
	}
	it.done = true
}
