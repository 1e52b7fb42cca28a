package buffer

import "talondb/common"

// PageGuard is a scoped wrapper around a fetched-and-latched frame: Go has
// no destructors, so where the teacher and spec.md's C++ ancestor rely on a
// guard's destructor to unpin and unlatch, callers here must call Release
// explicitly (typically via defer). Grounded on
// other_examples/jobala-petro__b_plus_tree.go's guard.Drop() pattern.
//
// A PageGuard owns exactly one of a read-latch or a write-latch on its
// frame, acquired at construction; Release drops whichever it holds and
// unpins the frame, marking it dirty if requested.
type PageGuard struct {
	pool    *BufferPoolManager
	frame   *Frame
	write   bool
	release bool // guards against double-Release
}

// FetchPageGuard fetches pageID, pinning it, and read- or write-latches it
// before returning. Returns nil if the pool could not supply the frame
// (pool exhaustion or I/O failure).
func FetchPageGuard(pool *BufferPoolManager, pageID common.PageID, write bool) *PageGuard {
	f := pool.FetchPage(pageID)
	if f == nil {
		return nil
	}
	return newPageGuard(pool, f, write)
}

// NewPageGuard allocates a fresh page and write-latches it.
func NewPageGuard(pool *BufferPoolManager) (*PageGuard, common.PageID) {
	f, pageID := pool.NewPage()
	if f == nil {
		return nil, common.InvalidPageID
	}
	return newPageGuard(pool, f, true), pageID
}

func newPageGuard(pool *BufferPoolManager, f *Frame, write bool) *PageGuard {
	if write {
		f.WLatch()
	} else {
		f.RLatch()
	}
	return &PageGuard{pool: pool, frame: f, write: write}
}

// PageID returns the underlying frame's bound page id.
func (g *PageGuard) PageID() common.PageID { return g.frame.PageID() }

// Data returns the guarded frame's raw bytes. Valid only until Release.
func (g *PageGuard) Data() []byte { return g.frame.Data() }

// Release drops this guard's latch and unpins its frame, marking it dirty
// if dirty is true. Safe to call more than once; only the first call has
// effect. Callers should defer this immediately after a successful fetch.
func (g *PageGuard) Release(dirty bool) {
	if g.release {
		return
	}
	g.release = true

	if g.write {
		g.frame.WUnlatch()
	} else {
		g.frame.RUnlatch()
	}
	g.pool.UnpinPage(g.frame.PageID(), dirty)
}
