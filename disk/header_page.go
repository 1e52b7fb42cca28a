package disk

import (
	"encoding/binary"

	"talondb/common"
)

// headerRecord is one (index_name -> root_page_id) directory entry.
type headerRecord struct {
	name   string
	rootID common.PageID
}

// header is the decoded contents of page 0, per spec.md §6: a free-list
// head/tail the disk manager owns privately, plus the named root directory
// the catalog and index layers read and write through GetRootID/SetRootID/
// DeleteRootID. Page 0 is never handed out by the buffer pool (spec.md §3:
// "page id 0 is reserved"), so there is no cache-coherence hazard between
// this struct and pool-resident frames.
type header struct {
	freeListHead common.PageID
	freeListTail common.PageID
	records      []headerRecord
}

func newHeader() header {
	return header{
		freeListHead: common.InvalidPageID,
		freeListTail: common.InvalidPageID,
	}
}

// encode serializes h into a PageSize-wide buffer. It panics if the
// directory does not fit, matching spec.md's simplification that the header
// page holds one page's worth of named roots.
func (h header) encode(pageSize int) []byte {
	buf := make([]byte, pageSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(h.freeListHead))
	binary.BigEndian.PutUint32(buf[4:8], uint32(h.freeListTail))
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(h.records)))

	off := 12
	for _, r := range h.records {
		nameBytes := []byte(r.name)
		need := 2 + len(nameBytes) + 4
		if off+need > pageSize {
			panic("disk: header page directory overflowed page size")
		}
		binary.BigEndian.PutUint16(buf[off:], uint16(len(nameBytes)))
		off += 2
		copy(buf[off:], nameBytes)
		off += len(nameBytes)
		binary.BigEndian.PutUint32(buf[off:], uint32(r.rootID))
		off += 4
	}
	return buf
}

func decodeHeader(buf []byte) header {
	h := header{
		freeListHead: common.PageID(binary.BigEndian.Uint32(buf[0:4])),
		freeListTail: common.PageID(binary.BigEndian.Uint32(buf[4:8])),
	}
	count := binary.BigEndian.Uint32(buf[8:12])
	off := 12
	for i := uint32(0); i < count; i++ {
		nameLen := int(binary.BigEndian.Uint16(buf[off:]))
		off += 2
		name := string(buf[off : off+nameLen])
		off += nameLen
		rootID := common.PageID(binary.BigEndian.Uint32(buf[off:]))
		off += 4
		h.records = append(h.records, headerRecord{name: name, rootID: rootID})
	}
	return h
}

func (h *header) indexOf(name string) int {
	for i, r := range h.records {
		if r.name == name {
			return i
		}
	}
	return -1
}

// insertOrUpdate is InsertRecord/UpdateRecord collapsed into one operation:
// spec.md's Insert-or-update-a-root-mapping call pattern the tree uses on
// both first creation and every subsequent root change.
func (h *header) insertOrUpdate(name string, rootID common.PageID) {
	if i := h.indexOf(name); i >= 0 {
		h.records[i].rootID = rootID
		return
	}
	h.records = append(h.records, headerRecord{name: name, rootID: rootID})
}

func (h *header) delete(name string) {
	i := h.indexOf(name)
	if i < 0 {
		return
	}
	h.records = append(h.records[:i], h.records[i+1:]...)
}

func (h *header) get(name string) (common.PageID, bool) {
	i := h.indexOf(name)
	if i < 0 {
		return common.InvalidPageID, false
	}
	return h.records[i].rootID, true
}
