// Package buffer implements the buffer pool manager: the page table, free
// list and LRU replacer that make a paged disk file look like a
// random-access array of pinned frames to the index layer above it.
// Grounded on the teacher's buffer/buffer_pool.go, simplified by dropping
// WAL/LSN gating (spec.md §1 Non-goal) and renamed to spec.md §4.2's literal
// operation names.
package buffer

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"talondb/common"
	"talondb/disk"
)

// BufferPoolManager serializes all page-table/free-list/replacer state
// changes under a single mutex, per spec.md §5. The per-frame latch is
// independent and is acquired by tree code, never by the pool itself.
type BufferPoolManager struct {
	mu sync.Mutex

	frames    []*Frame
	pageTable map[common.PageID]common.FrameID
	freeList  []common.FrameID
	replacer  Replacer
	disk      disk.IDiskManager
}

// NewBufferPoolManager builds a pool of poolSize frames over disk.
func NewBufferPoolManager(poolSize int, d disk.IDiskManager) *BufferPoolManager {
	frames := make([]*Frame, poolSize)
	freeList := make([]common.FrameID, poolSize)
	for i := 0; i < poolSize; i++ {
		frames[i] = newFrame(common.FrameID(i), d.PageSize())
		freeList[i] = common.FrameID(i)
	}

	return &BufferPoolManager{
		frames:    frames,
		pageTable: make(map[common.PageID]common.FrameID, poolSize),
		freeList:  freeList,
		replacer:  NewLRUReplacer(poolSize),
		disk:      d,
	}
}

// FetchPage returns the frame holding pageID, pinning it, loading it from
// disk first if necessary. A nil frame means the pool is exhausted
// (spec.md's OutOfMemory) or the disk read failed (IOFailure, logged and
// swallowed into a nil return since spec.md's Index API surface has no
// error-returning FetchPage caller besides the tree's own crabbing, which
// treats "could not fetch" as fatal for the operation).
func (bp *BufferPoolManager) FetchPage(pageID common.PageID) *Frame {
	bp.mu.Lock()

	if frameID, ok := bp.pageTable[pageID]; ok {
		f := bp.frames[frameID]
		f.incrPin()
		bp.replacer.Pin(frameID)
		bp.mu.Unlock()
		return f
	}

	frameID, victimPageID, ok := bp.acquireFrameLocked()
	if !ok {
		bp.mu.Unlock()
		return nil
	}

	f := bp.frames[frameID]
	if err := bp.writeBackIfDirtyLocked(f, victimPageID); err != nil {
		bp.releaseFrameLocked(frameID)
		bp.mu.Unlock()
		logrus.WithError(err).WithField("page_id", victimPageID).Error("failed writing back dirty victim")
		return nil
	}

	f.reset()
	f.pageID = pageID
	if err := bp.disk.ReadPage(pageID, f.data); err != nil {
		bp.releaseFrameLocked(frameID)
		bp.mu.Unlock()
		logrus.WithError(err).WithField("page_id", pageID).Error("failed reading page")
		return nil
	}
	f.incrPin()
	bp.pageTable[pageID] = frameID
	bp.mu.Unlock()
	return f
}

// NewPage allocates a fresh page id, binds it to a frame and returns the
// pinned, zeroed frame plus its id.
func (bp *BufferPoolManager) NewPage() (*Frame, common.PageID) {
	bp.mu.Lock()

	frameID, victimPageID, ok := bp.acquireFrameLocked()
	if !ok {
		bp.mu.Unlock()
		return nil, common.InvalidPageID
	}

	f := bp.frames[frameID]
	if err := bp.writeBackIfDirtyLocked(f, victimPageID); err != nil {
		bp.releaseFrameLocked(frameID)
		bp.mu.Unlock()
		logrus.WithError(err).WithField("page_id", victimPageID).Error("failed writing back dirty victim")
		return nil, common.InvalidPageID
	}
	bp.mu.Unlock()

	pageID, err := bp.disk.AllocatePage()
	if err != nil {
		bp.mu.Lock()
		bp.releaseFrameLocked(frameID)
		bp.mu.Unlock()
		logrus.WithError(err).Error("failed allocating new page")
		return nil, common.InvalidPageID
	}

	bp.mu.Lock()
	f.reset()
	f.pageID = pageID
	f.incrPin()
	bp.pageTable[pageID] = frameID
	bp.mu.Unlock()
	return f, pageID
}

// acquireFrameLocked returns a frame not currently holding any live
// reference: the free list is always preferred over the replacer, per
// spec.md §4.2's edge policy, to minimize dirty write-back. The returned
// frame is pinned in the replacer (removed from eviction eligibility)
// before the pool mutex is released elsewhere, so a concurrent FetchPage
// cannot pick the same frame again. Caller must hold bp.mu.
func (bp *BufferPoolManager) acquireFrameLocked() (frameID common.FrameID, oldPageID common.PageID, ok bool) {
	if n := len(bp.freeList); n > 0 {
		frameID = bp.freeList[0]
		bp.freeList = bp.freeList[1:]
		return frameID, common.InvalidPageID, true
	}

	frameID, evicted := bp.replacer.Victim()
	if !evicted {
		return 0, common.InvalidPageID, false
	}
	f := bp.frames[frameID]
	oldPageID = f.pageID
	delete(bp.pageTable, oldPageID)
	return frameID, oldPageID, true
}

// releaseFrameLocked returns a frame acquired via acquireFrameLocked back
// to the free list, used on the rollback paths when a subsequent I/O step
// fails after the frame was already claimed.
func (bp *BufferPoolManager) releaseFrameLocked(frameID common.FrameID) {
	bp.frames[frameID].reset()
	bp.freeList = append(bp.freeList, frameID)
}

// writeBackIfDirtyLocked flushes f to disk if it is dirty and currently
// bound to oldPageID. Caller must hold bp.mu; this issues disk I/O while
// holding it, an accepted simplification per spec.md §5.
func (bp *BufferPoolManager) writeBackIfDirtyLocked(f *Frame, oldPageID common.PageID) error {
	if !oldPageID.IsValid() || !f.IsDirty() {
		return nil
	}
	if err := bp.disk.WritePage(oldPageID, f.data); err != nil {
		return errors.Wrapf(err, "buffer: writing back dirty victim page %d", oldPageID)
	}
	return nil
}

// UnpinPage decrements pageID's pin count, ORing in isDirty, and hands the
// frame to the replacer once its pin count reaches zero. Returns false if
// pageID is not resident or is already unpinned.
func (bp *BufferPoolManager) UnpinPage(pageID common.PageID, isDirty bool) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, ok := bp.pageTable[pageID]
	if !ok {
		return false
	}
	f := bp.frames[frameID]
	if f.PinCount() <= 0 {
		return false
	}

	if isDirty {
		f.SetDirty()
	}
	if f.decrPin() == 0 {
		bp.replacer.Unpin(frameID)
	}
	return true
}

// FlushPage writes pageID's bytes to disk if it is resident, clearing its
// dirty flag. Checks table membership before dereferencing the frame, the
// opposite order from the teacher's reported bug (spec.md §9).
func (bp *BufferPoolManager) FlushPage(pageID common.PageID) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, ok := bp.pageTable[pageID]
	if !ok {
		return false
	}
	f := bp.frames[frameID]
	if err := bp.disk.WritePage(pageID, f.data); err != nil {
		logrus.WithError(err).WithField("page_id", pageID).Error("flush failed")
		return false
	}
	f.SetClean()
	return true
}

// FlushAllPages writes back every resident page.
func (bp *BufferPoolManager) FlushAllPages() error {
	bp.mu.Lock()
	pageIDs := make([]common.PageID, 0, len(bp.pageTable))
	for pid := range bp.pageTable {
		pageIDs = append(pageIDs, pid)
	}
	bp.mu.Unlock()

	for _, pid := range pageIDs {
		if !bp.FlushPage(pid) {
			return errors.Errorf("buffer: failed flushing page %d", pid)
		}
	}
	return nil
}

// DeletePage removes pageID from the pool, returning true if it is now
// absent (whether it was already absent, or was present with pin count 0
// and has just been reclaimed). Returns false if it is present but pinned.
func (bp *BufferPoolManager) DeletePage(pageID common.PageID) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, ok := bp.pageTable[pageID]
	if !ok {
		return true
	}
	f := bp.frames[frameID]
	if f.PinCount() > 0 {
		return false
	}

	if f.IsDirty() {
		if err := bp.disk.WritePage(pageID, f.data); err != nil {
			logrus.WithError(err).WithField("page_id", pageID).Error("delete: write-back failed")
			return false
		}
	}

	delete(bp.pageTable, pageID)
	bp.replacer.Pin(frameID) // no-op if not present; ensures it is not evictable-and-free at once
	f.reset()
	bp.freeList = append(bp.freeList, frameID)
	_ = bp.disk.DeallocatePage(pageID)
	return true
}

// PoolSize returns the number of frames managed by the pool.
func (bp *BufferPoolManager) PoolSize() int { return len(bp.frames) }
