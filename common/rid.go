package common

import "encoding/binary"

// RIDSize is the fixed on-disk width of a RID.
const RIDSize = 8

// RID (record id) identifies a tuple's slot within a heap page. It is the
// fixed-width value type stored in every B+-tree leaf entry.
type RID struct {
	PageID uint32
	SlotID uint32
}

// InvalidRID is the zero-value sentinel for "no such record".
var InvalidRID = RID{}

// Bytes encodes r as 8 big-endian bytes.
func (r RID) Bytes() []byte {
	buf := make([]byte, RIDSize)
	binary.BigEndian.PutUint32(buf, r.PageID)
	binary.BigEndian.PutUint32(buf[4:], r.SlotID)
	return buf
}

// RIDFromBytes decodes a RID from an 8-byte slice.
func RIDFromBytes(b []byte) RID {
	return RID{
		PageID: binary.BigEndian.Uint32(b),
		SlotID: binary.BigEndian.Uint32(b[4:]),
	}
}
