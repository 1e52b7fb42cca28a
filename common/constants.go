package common

// PageID identifies a page within the paged file. It is a 32-bit id per
// spec.md's data model; InvalidPageID is the sentinel "no page" value.
type PageID uint32

// InvalidPageID is the sentinel for "no page" (e.g. an empty tree's root,
// a rightmost leaf's next pointer).
const InvalidPageID PageID = 1<<32 - 1

// IsValid reports whether id refers to a real page.
func (id PageID) IsValid() bool { return id != InvalidPageID }

// FrameID indexes into the buffer pool's frame array, [0, pool_size).
type FrameID int

// HeaderPageID is the reserved page id holding the named root directory.
const HeaderPageID PageID = 0

// EnableLogging gates the disk manager's debug log lines (file open, page
// allocation). It is a compile-time constant; the buffer pool and tree log
// their failures regardless of it.
const EnableLogging = true
