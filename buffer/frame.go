package buffer

import (
	"sync"
	"sync/atomic"

	"talondb/common"
)

// Frame is a fixed-size in-memory slot that may hold one page, plus the
// bookkeeping the pool and replacer need: the page it currently holds, a
// pin count, a dirty flag, and its own read-write latch for tree code to
// acquire independently of the pool's mutex. Grounded on the teacher's
// disk/pages.RawPage, renamed to spec.md's "Frame" vocabulary.
type Frame struct {
	id       common.FrameID
	pageID   common.PageID
	pinCount atomic.Int32
	dirty    atomic.Bool
	data     []byte
	latch    sync.RWMutex
}

func newFrame(id common.FrameID, pageSize int) *Frame {
	return &Frame{
		id:     id,
		pageID: common.InvalidPageID,
		data:   make([]byte, pageSize),
	}
}

// ID returns the frame's index in the pool's frame array.
func (f *Frame) ID() common.FrameID { return f.id }

// PageID returns the page currently bound to this frame.
func (f *Frame) PageID() common.PageID { return f.pageID }

// Data returns the frame's raw byte buffer. The buffer's lifetime is bound
// to the frame's binding to its current page: once the frame is unpinned to
// zero and later evicted, the bytes may be overwritten with a different
// page's contents. Callers that need the data to remain valid must keep the
// frame pinned for as long as they hold the slice, per spec.md §9's typed-
// view-over-borrowed-bytes design note.
func (f *Frame) Data() []byte { return f.data }

func (f *Frame) PinCount() int32 { return f.pinCount.Load() }
func (f *Frame) IsDirty() bool   { return f.dirty.Load() }
func (f *Frame) SetDirty()       { f.dirty.Store(true) }
func (f *Frame) SetClean()       { f.dirty.Store(false) }

func (f *Frame) incrPin() int32 { return f.pinCount.Add(1) }
func (f *Frame) decrPin() int32 { return f.pinCount.Add(-1) }

// reset clears the frame back to holding no page, for reuse after eviction
// or deletion.
func (f *Frame) reset() {
	f.pageID = common.InvalidPageID
	f.pinCount.Store(0)
	f.dirty.Store(false)
	for i := range f.data {
		f.data[i] = 0
	}
}

func (f *Frame) RLatch()    { f.latch.RLock() }
func (f *Frame) RUnlatch()  { f.latch.RUnlock() }
func (f *Frame) WLatch()    { f.latch.Lock() }
func (f *Frame) WUnlatch()  { f.latch.Unlock() }
