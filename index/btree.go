package index

import (
	"sync"

	"github.com/sirupsen/logrus"

	"talondb/buffer"
	"talondb/common"
	"talondb/config"
	"talondb/disk"
	"talondb/transaction"
)

// TraverseMode selects the latch-coupling discipline traverse uses while
// descending: Read releases each ancestor as soon as its child is
// fetched (true hand-over-hand); Insert and Delete keep ancestors latched
// until a descendant is provably "safe" from propagating a structural
// change back up. Grounded on the teacher's btree/btree/node.go
// TraverseMode and btree.go's FindAndGetStack.
type TraverseMode int

const (
	Read TraverseMode = iota
	Insert
	Delete
)

// BPlusTree is a disk-resident B+-tree over fixed-width keys, traversed
// with latch-coupling: a root entry lock plus per-page read/write latches
// acquired and released one level at a time as the path's safety is
// established. Grounded on the teacher's btree/btree/btree.go (BTree,
// rootEntryLock, FindAndGetStack, safeForSplit/safeForMerge, splitNode,
// redistribute/mergeNodes), adapted from its variable-length slotted pages
// to the fixed array layout in leaf.go/internal.go.
type BPlusTree struct {
	name     string
	bpm      *buffer.BufferPoolManager
	disk     disk.IDiskManager
	keyWidth common.KeyWidth

	leafMax, leafMin         int
	internalMax, internalMin int

	rootLatch sync.RWMutex
	rootID    common.PageID
}

// OpenBPlusTree loads or creates the named index's root pointer from the
// disk manager's header page's named-root directory and returns a tree
// ready for use. A fresh name starts out empty (rootID invalid); the
// first Insert materializes a root leaf.
func OpenBPlusTree(name string, bpm *buffer.BufferPoolManager, d disk.IDiskManager, cfg config.Config) (*BPlusTree, error) {
	rootID, ok, err := d.GetRootID(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		rootID = common.InvalidPageID
	}
	return &BPlusTree{
		name:         name,
		bpm:          bpm,
		disk:         d,
		keyWidth:     cfg.KeyWidth,
		leafMax:      cfg.LeafMaxSize,
		leafMin:      cfg.LeafMinSize(),
		internalMax:  cfg.InternalMaxSize,
		internalMin:  cfg.InternalMinSize(),
		rootID:       rootID,
	}, nil
}

func (t *BPlusTree) IsEmpty() bool {
	t.rootLatch.RLock()
	defer t.rootLatch.RUnlock()
	return !t.rootID.IsValid()
}

func (t *BPlusTree) setRootID(id common.PageID) {
	t.rootID = id
	if err := t.disk.SetRootID(t.name, id); err != nil {
		logrus.WithError(err).WithField("index", t.name).Error("failed persisting root id")
	}
}

func (t *BPlusTree) releaseGuards(guards []*buffer.PageGuard) {
	for _, g := range guards {
		g.Release(false)
	}
}

func (t *BPlusTree) isSafe(g *buffer.PageGuard, mode TraverseMode) bool {
	data := g.Data()
	if isLeafPage(data) {
		n := LoadLeafNode(data, t.keyWidth)
		if mode == Insert {
			return n.Size() < n.MaxSize()
		}
		return n.Size() > t.leafMin
	}
	n := LoadInternalNode(data, t.keyWidth)
	if mode == Insert {
		return n.Size() < n.MaxSize()
	}
	return n.Size() > t.internalMin
}

// traverse descends from the root to the leaf that should contain key,
// latch-coupling one level at a time. In Read mode only the returned
// leaf's guard is latched. In Insert/Delete mode, every ancestor that
// could still be mutated by a split or merge propagating up from the leaf
// remains write-latched in the returned slice (topmost held node first,
// leaf last); rootHeld reports whether the tree-wide root entry lock is
// still held (true iff no node below the root was found safe on the way
// down).
func (t *BPlusTree) traverse(key common.Key, mode TraverseMode) (stack []*buffer.PageGuard, rootHeld bool) {
	write := mode != Read
	if write {
		t.rootLatch.Lock()
		rootHeld = true
	} else {
		t.rootLatch.RLock()
	}

	if !t.rootID.IsValid() {
		if write {
			t.rootLatch.Unlock()
		} else {
			t.rootLatch.RUnlock()
		}
		return nil, false
	}

	root := buffer.FetchPageGuard(t.bpm, t.rootID, write)
	if root == nil {
		if write {
			t.rootLatch.Unlock()
		} else {
			t.rootLatch.RUnlock()
		}
		return nil, false
	}
	if !write {
		t.rootLatch.RUnlock()
	}

	stack = append(stack, root)

	for {
		top := stack[len(stack)-1]
		if isLeafPage(top.Data()) {
			return stack, rootHeld
		}

		internal := LoadInternalNode(top.Data(), t.keyWidth)
		childID := internal.ChildAt(internal.Lookup(key))

		child := buffer.FetchPageGuard(t.bpm, childID, write)
		if child == nil {
			t.releaseGuards(stack)
			if rootHeld {
				t.rootLatch.Unlock()
			}
			return nil, false
		}

		if !write {
			top.Release(false)
			stack = stack[:len(stack)-1]
		} else if t.isSafe(child, mode) {
			t.releaseGuards(stack)
			stack = stack[:0]
			if rootHeld {
				t.rootLatch.Unlock()
				rootHeld = false
			}
		}

		stack = append(stack, child)
	}
}

// GetValue looks up key, returning its RID and whether it was found.
func (t *BPlusTree) GetValue(key common.Key) (common.RID, bool) {
	stack, _ := t.traverse(key, Read)
	if stack == nil {
		return common.RID{}, false
	}
	leafGuard := stack[len(stack)-1]
	defer leafGuard.Release(false)

	leaf := LoadLeafNode(leafGuard.Data(), t.keyWidth)
	idx, found := leaf.FindIndex(key)
	if !found {
		return common.RID{}, false
	}
	return leaf.RIDAt(idx), true
}

// Insert adds (key, rid) under txn, returning false if key is already
// present. txn is marked dirty for every node whose entries the insert
// changes (leaf, new sibling, parent, new internal node, new root), a hook
// an undo/redo log would use to know which pages to force before commit.
// Child pages whose only change is a rewritten parent pointer are not
// marked.
func (t *BPlusTree) Insert(key common.Key, rid common.RID, txn transaction.Transaction) bool {
	if t.IsEmpty() {
		if ok, handled := t.insertIntoEmptyTree(key, rid, txn); handled {
			return ok
		}
	}

	stack, rootHeld := t.traverse(key, Insert)
	if stack == nil {
		return false
	}

	leafGuard := stack[len(stack)-1]
	ancestors := stack[:len(stack)-1]
	leaf := LoadLeafNode(leafGuard.Data(), t.keyWidth)

	idx, found := leaf.FindIndex(key)
	if found {
		leafGuard.Release(false)
		t.releaseGuards(ancestors)
		if rootHeld {
			t.rootLatch.Unlock()
		}
		return false
	}
	leaf.InsertAt(idx, key, rid)
	txn.MarkDirty(uint32(leafGuard.PageID()))

	if leaf.Size() <= leaf.MaxSize() {
		leafGuard.Release(true)
		t.releaseGuards(ancestors)
		if rootHeld {
			t.rootLatch.Unlock()
		}
		return true
	}

	newGuard, newPageID := buffer.NewPageGuard(t.bpm)
	if newGuard == nil {
		logrus.WithField("index", t.name).Error("split failed: pool exhausted allocating new leaf")
		leafGuard.Release(true)
		t.releaseGuards(ancestors)
		if rootHeld {
			t.rootLatch.Unlock()
		}
		return true
	}
	newLeaf := NewLeafNode(newGuard.Data(), t.keyWidth, t.leafMax, leaf.ParentID())
	separator := leaf.MoveHalfTo(newLeaf)
	newLeaf.SetNextPageID(leaf.NextPageID())
	leaf.SetNextPageID(newGuard.PageID())
	txn.MarkDirty(uint32(newPageID))

	leftPageID := leafGuard.PageID()
	leafGuard.Release(true)
	newGuard.Release(true)

	t.insertIntoParent(ancestors, rootHeld, leftPageID, separator, newPageID, key, txn)
	return true
}

// insertIntoEmptyTree handles the degenerate first-insert case directly
// under the root entry lock, bypassing the crabbing traversal entirely
// since there is nothing to crab over yet. handled is false if another
// writer raced and populated the root first, in which case the caller
// falls through to the normal path.
func (t *BPlusTree) insertIntoEmptyTree(key common.Key, rid common.RID, txn transaction.Transaction) (ok bool, handled bool) {
	t.rootLatch.Lock()
	defer t.rootLatch.Unlock()

	if t.rootID.IsValid() {
		return false, false
	}

	guard, pageID := buffer.NewPageGuard(t.bpm)
	if guard == nil {
		return false, true
	}
	leaf := NewLeafNode(guard.Data(), t.keyWidth, t.leafMax, common.InvalidPageID)
	leaf.InsertAt(0, key, rid)
	txn.MarkDirty(uint32(pageID))
	guard.Release(true)

	t.setRootID(pageID)
	return true, true
}

// insertIntoParent propagates a split upward: ancestors holds the
// remaining write-latched path (topmost first, direct parent last),
// leftID/rightID are the two
// pages resulting from splitting the node that used to live at leftID's
// slot, sep is the separator key between them, and searchKey is the
// original insert key used to relocate leftID's slot at each level.
func (t *BPlusTree) insertIntoParent(ancestors []*buffer.PageGuard, rootHeld bool, leftID common.PageID, sep common.Key, rightID common.PageID, searchKey common.Key, txn transaction.Transaction) {
	if len(ancestors) == 0 {
		newGuard, newRootID := buffer.NewPageGuard(t.bpm)
		if newGuard == nil {
			logrus.WithField("index", t.name).Error("split failed: pool exhausted allocating new root")
			if rootHeld {
				t.rootLatch.Unlock()
			}
			return
		}
		newRoot := NewInternalNode(newGuard.Data(), t.keyWidth, t.internalMax, common.InvalidPageID)
		newRoot.InsertAt(0, common.DummyKey(t.keyWidth), leftID)
		newRoot.InsertNodeAfter(0, sep, rightID)
		txn.MarkDirty(uint32(newRootID))
		newGuard.Release(true)

		t.fixParentPointer(leftID, newRootID)
		t.fixParentPointer(rightID, newRootID)
		t.setRootID(newRootID)
		if rootHeld {
			t.rootLatch.Unlock()
		}
		return
	}

	parentGuard := ancestors[len(ancestors)-1]
	ancestors = ancestors[:len(ancestors)-1]
	parent := LoadInternalNode(parentGuard.Data(), t.keyWidth)

	childIdx := parent.Lookup(searchKey)
	parent.InsertNodeAfter(childIdx, sep, rightID)
	t.fixParentPointer(rightID, parentGuard.PageID())
	txn.MarkDirty(uint32(parentGuard.PageID()))

	if parent.Size() <= parent.MaxSize() {
		parentGuard.Release(true)
		t.releaseGuards(ancestors)
		if rootHeld {
			t.rootLatch.Unlock()
		}
		return
	}

	newGuard, newPageID := buffer.NewPageGuard(t.bpm)
	if newGuard == nil {
		logrus.WithField("index", t.name).Error("split failed: pool exhausted allocating new internal node")
		parentGuard.Release(true)
		t.releaseGuards(ancestors)
		if rootHeld {
			t.rootLatch.Unlock()
		}
		return
	}
	newInternal := NewInternalNode(newGuard.Data(), t.keyWidth, t.internalMax, parent.ParentID())
	pushUp := parent.MoveHalfTo(newInternal)
	t.fixChildParentPointers(newInternal, newPageID)
	txn.MarkDirty(uint32(newPageID))

	leftPageID := parentGuard.PageID()
	parentGuard.Release(true)
	newGuard.Release(true)

	t.insertIntoParent(ancestors, rootHeld, leftPageID, pushUp, newPageID, searchKey, txn)
}

func (t *BPlusTree) fixParentPointer(childID, parentID common.PageID) {
	g := buffer.FetchPageGuard(t.bpm, childID, true)
	if g == nil {
		logrus.WithField("page_id", childID).Error("failed fetching child to fix parent pointer")
		return
	}
	if isLeafPage(g.Data()) {
		LoadLeafNode(g.Data(), t.keyWidth).SetParentID(parentID)
	} else {
		LoadInternalNode(g.Data(), t.keyWidth).SetParentID(parentID)
	}
	g.Release(true)
}

func (t *BPlusTree) fixChildParentPointers(n *InternalNode, parentID common.PageID) {
	for i := 0; i < n.Size(); i++ {
		t.fixParentPointer(n.ChildAt(i), parentID)
	}
}

// Remove deletes key under txn, returning false if it was not present.
func (t *BPlusTree) Remove(key common.Key, txn transaction.Transaction) bool {
	stack, rootHeld := t.traverse(key, Delete)
	if stack == nil {
		return false
	}
	defer func() {
		if rootHeld {
			t.rootLatch.Unlock()
		}
	}()

	leafGuard := stack[len(stack)-1]
	ancestors := stack[:len(stack)-1]
	leaf := LoadLeafNode(leafGuard.Data(), t.keyWidth)

	idx, found := leaf.FindIndex(key)
	if !found {
		leafGuard.Release(false)
		t.releaseGuards(ancestors)
		return false
	}
	leaf.DeleteAt(idx)
	txn.MarkDirty(uint32(leafGuard.PageID()))

	if len(ancestors) == 0 {
		// no ancestor is held: either the leaf is the root, where
		// adjustRoot's empty-tree rule applies instead of the leafMin
		// floor, or the leaf was safe for delete and cannot have dropped
		// below leafMin, so adjustRoot only releases it.
		t.adjustRoot(leafGuard)
		return true
	}

	if leaf.Size() >= t.leafMin {
		leafGuard.Release(true)
		t.releaseGuards(ancestors)
		return true
	}

	t.coalesceOrRedistribute(leafGuard, ancestors, key, txn)
	return true
}

// coalesceOrRedistribute repairs guard's underflow against a sibling found
// through parentGuard := ancestors' top, merging when the combined size
// fits in one node and stealing a single slot otherwise; it recurses up
// ancestors when a merge drops the parent itself below minimum occupancy.
// Grounded on the teacher's CoalesceOrRedistribute/mergeNodes/redistribute
// trio, adapted to the fixed-slot node API (see leaf.go/internal.go) in
// place of the teacher's byte-FillFactor accounting.
func (t *BPlusTree) coalesceOrRedistribute(guard *buffer.PageGuard, ancestors []*buffer.PageGuard, key common.Key, txn transaction.Transaction) {
	if len(ancestors) == 0 {
		t.adjustRoot(guard)
		return
	}

	parentGuard := ancestors[len(ancestors)-1]
	rest := ancestors[:len(ancestors)-1]
	parent := LoadInternalNode(parentGuard.Data(), t.keyWidth)
	idx := parent.Lookup(key)
	txn.MarkDirty(uint32(guard.PageID()))
	txn.MarkDirty(uint32(parentGuard.PageID()))

	leaf := isLeafPage(guard.Data())
	hasRight := idx < parent.Size()-1
	hasLeft := idx > 0

	var merged bool
	if hasRight {
		siblingID := parent.ChildAt(idx + 1)
		sibling := buffer.FetchPageGuard(t.bpm, siblingID, true)
		if sibling == nil {
			logrus.WithField("index", t.name).Error("coalesce failed: could not fetch right sibling")
			guard.Release(true)
			parentGuard.Release(true)
			t.releaseGuards(rest)
			return
		}
		merged = t.resolveWithRightSibling(guard, sibling, parent, idx, leaf)
		txn.MarkDirty(uint32(siblingID))
		guard.Release(true)
		sibling.Release(true)
		if merged {
			t.bpm.DeletePage(siblingID)
		}
	} else if hasLeft {
		siblingID := parent.ChildAt(idx - 1)
		sibling := buffer.FetchPageGuard(t.bpm, siblingID, true)
		if sibling == nil {
			logrus.WithField("index", t.name).Error("coalesce failed: could not fetch left sibling")
			guard.Release(true)
			parentGuard.Release(true)
			t.releaseGuards(rest)
			return
		}
		merged = t.resolveWithLeftSibling(sibling, guard, parent, idx, leaf)
		txn.MarkDirty(uint32(siblingID))
		childPageID := guard.PageID()
		sibling.Release(true)
		guard.Release(true)
		if merged {
			t.bpm.DeletePage(childPageID)
		}
	} else {
		// sole child: underflow is tolerated (can only happen directly
		// under the root, which AdjustRoot reconciles on its own turn).
		guard.Release(true)
	}

	if merged && parent.Size() < t.internalMin {
		t.coalesceOrRedistribute(parentGuard, rest, key, txn)
		return
	}
	parentGuard.Release(true)
	t.releaseGuards(rest)
}

// resolveWithRightSibling merges or redistributes guard (left, the
// underflowed node at slot idx) with its right sibling (slot idx+1).
// Returns true if a merge happened (sibling is now empty and must be
// freed by the caller).
func (t *BPlusTree) resolveWithRightSibling(guard, sibling *buffer.PageGuard, parent *InternalNode, idx int, leaf bool) bool {
	if leaf {
		a := LoadLeafNode(guard.Data(), t.keyWidth)
		b := LoadLeafNode(sibling.Data(), t.keyWidth)
		if a.Size()+b.Size() <= a.MaxSize() {
			nextAfterB := b.NextPageID()
			b.MoveAllTo(a)
			a.SetNextPageID(nextAfterB)
			parent.DeleteAt(idx + 1)
			return true
		}
		b.MoveFirstToEndOf(a)
		parent.SetKeyAt(idx+1, b.KeyAt(0))
		return false
	}

	a := LoadInternalNode(guard.Data(), t.keyWidth)
	b := LoadInternalNode(sibling.Data(), t.keyWidth)
	separator := parent.KeyAt(idx + 1)
	if a.Size()+b.Size() <= a.MaxSize() {
		t.fixChildParentPointers(b, guard.PageID())
		b.MoveAllTo(a, separator)
		parent.DeleteAt(idx + 1)
		return true
	}
	stolenChild := b.ChildAt(0)
	newSep := a.StealFirstFrom(b, separator)
	parent.SetKeyAt(idx+1, newSep)
	t.fixParentPointer(stolenChild, guard.PageID())
	return false
}

// resolveWithLeftSibling merges or redistributes guard (right, the
// underflowed node at slot idx) with its left sibling (slot idx-1, held
// in `sibling`). Returns true if a merge happened (guard is now empty and
// must be freed by the caller).
func (t *BPlusTree) resolveWithLeftSibling(sibling, guard *buffer.PageGuard, parent *InternalNode, idx int, leaf bool) bool {
	if leaf {
		b := LoadLeafNode(sibling.Data(), t.keyWidth)
		a := LoadLeafNode(guard.Data(), t.keyWidth)
		if b.Size()+a.Size() <= a.MaxSize() {
			nextAfterA := a.NextPageID()
			a.MoveAllTo(b)
			b.SetNextPageID(nextAfterA)
			parent.DeleteAt(idx)
			return true
		}
		b.MoveLastToFrontOf(a)
		parent.SetKeyAt(idx, a.KeyAt(0))
		return false
	}

	b := LoadInternalNode(sibling.Data(), t.keyWidth)
	a := LoadInternalNode(guard.Data(), t.keyWidth)
	separator := parent.KeyAt(idx)
	if b.Size()+a.Size() <= a.MaxSize() {
		t.fixChildParentPointers(a, sibling.PageID())
		a.MoveAllTo(b, separator)
		parent.DeleteAt(idx)
		return true
	}
	stolenChild := b.ChildAt(b.Size() - 1)
	newSep := a.StealLastFrom(b, separator)
	parent.SetKeyAt(idx, newSep)
	t.fixParentPointer(stolenChild, guard.PageID())
	return false
}

// adjustRoot collapses the root by one level once it holds at most a
// single child (internal) or no entries at all (leaf), matching the
// teacher's AdjustRoot. When guard is the root, the caller holds the root
// entry lock; Remove also passes a safe non-root leaf here, which is only
// released.
func (t *BPlusTree) adjustRoot(guard *buffer.PageGuard) {
	if isLeafPage(guard.Data()) {
		leaf := LoadLeafNode(guard.Data(), t.keyWidth)
		if leaf.Size() == 0 {
			oldID := guard.PageID()
			guard.Release(false)
			t.setRootID(common.InvalidPageID)
			t.bpm.DeletePage(oldID)
			return
		}
		guard.Release(true)
		return
	}

	internal := LoadInternalNode(guard.Data(), t.keyWidth)
	if internal.Size() == 1 {
		newRootID := internal.ChildAt(0)
		oldID := guard.PageID()
		guard.Release(false)
		t.fixParentPointer(newRootID, common.InvalidPageID)
		t.setRootID(newRootID)
		t.bpm.DeletePage(oldID)
		return
	}
	guard.Release(true)
}
