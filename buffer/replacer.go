package buffer

import "talondb/common"

// Replacer selects an unpinned frame to evict when the pool needs a frame
// and its free list is empty. Interface pulled out of BufferPoolManager on
// its own, the way other_examples/bietkhonhungvandi212-array-db separates
// its Replacer from the pool, using spec.md §4.1's literal operation names.
type Replacer interface {
	// Victim removes and returns the least-recently-unpinned evictable
	// frame, or ok=false if none is evictable.
	Victim() (id common.FrameID, ok bool)
	// Pin removes frameID from the evictable set if present; a no-op
	// otherwise. Called when a frame becomes referenced.
	Pin(frameID common.FrameID)
	// Unpin inserts frameID into the evictable set at the most-recently-
	// used end if it is not already present and capacity allows; a no-op
	// if frameID is already present.
	Unpin(frameID common.FrameID)
	// Size returns the number of currently evictable frames.
	Size() int
}
