// Package index implements a concurrent B+-tree keyed by a fixed-width
// common.Key, using latch-coupling ("crabbing") for traversal concurrency.
// Node layout is grounded on other_examples/jobala-petro__page.go's fixed
// array-of-slots design (chosen over the teacher's variable-length slotted
// pages, see DESIGN.md); the crabbing protocol itself -- root entry lock,
// held-latch stack, safeForSplit/safeForMerge predicates -- is grounded on
// the teacher's btree/btree/btree.go.
package index

import (
	"encoding/binary"

	"talondb/common"
)

type nodeType uint8

const (
	leafNodeType     nodeType = 1
	internalNodeType nodeType = 2
)

// nodeHeaderSize is the fixed prefix every page (leaf or internal) carries
// before its slot array: [0]type [1:3]size [3:5]maxSize [5:9]parentPageID
// [9:13]nextPageID (leaves only; internal pages leave it zeroed).
const nodeHeaderSize = 13

type nodeHeader struct {
	typ        nodeType
	size       int // number of occupied slots
	maxSize    int // slot capacity
	parentID   common.PageID
	nextPageID common.PageID // leaf right-sibling link; unused by internal pages
}

func readNodeHeader(buf []byte) nodeHeader {
	return nodeHeader{
		typ:        nodeType(buf[0]),
		size:       int(binary.BigEndian.Uint16(buf[1:3])),
		maxSize:    int(binary.BigEndian.Uint16(buf[3:5])),
		parentID:   common.PageID(binary.BigEndian.Uint32(buf[5:9])),
		nextPageID: common.PageID(binary.BigEndian.Uint32(buf[9:13])),
	}
}

func writeNodeHeader(buf []byte, h nodeHeader) {
	buf[0] = byte(h.typ)
	binary.BigEndian.PutUint16(buf[1:3], uint16(h.size))
	binary.BigEndian.PutUint16(buf[3:5], uint16(h.maxSize))
	binary.BigEndian.PutUint32(buf[5:9], uint32(h.parentID))
	binary.BigEndian.PutUint32(buf[9:13], uint32(h.nextPageID))
}

// isLeafPage reports a page's type without decoding the rest of its header,
// used by tree traversal to decide how to interpret a child page's bytes.
func isLeafPage(buf []byte) bool {
	return nodeType(buf[0]) == leafNodeType
}
