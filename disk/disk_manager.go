// Package disk mediates whole-page reads and writes against a single
// on-disk file, allocates page ids, and owns the reserved page-0 header
// (free list plus the named index-root directory), grounded on the
// teacher's disk/disk_manager.go with the WAL/log-file plumbing dropped
// (durability is a spec.md Non-goal).
package disk

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"talondb/common"
)

// DefaultPageSize is used when a caller does not have a config.Config handy
// (e.g. tests constructing a Manager directly).
const DefaultPageSize = 4096

// IDiskManager is the contract the buffer pool and header-page-aware
// callers consume, per spec.md §6.
type IDiskManager interface {
	// ReadPage reads page pageID's whole contents into dest, which must be
	// exactly PageSize() bytes.
	ReadPage(pageID common.PageID, dest []byte) error
	// WritePage writes data (exactly PageSize() bytes) to page pageID.
	WritePage(pageID common.PageID, data []byte) error
	// AllocatePage returns a fresh page id, preferring a freed page over
	// growing the file.
	AllocatePage() (common.PageID, error)
	// DeallocatePage returns pageID to the free list for reuse.
	DeallocatePage(pageID common.PageID) error
	// PageSize returns the fixed page width this manager was opened with.
	PageSize() int
	Close() error

	// GetRootID/SetRootID/DeleteRootID mediate the page-0 named root
	// directory described in spec.md §6. They bypass the buffer pool
	// entirely since page 0 is reserved and never pool-resident.
	GetRootID(indexName string) (common.PageID, bool, error)
	SetRootID(indexName string, rootID common.PageID) error
	DeleteRootID(indexName string) error
}

// Manager is the default IDiskManager, backed by one *os.File.
type Manager struct {
	file       *os.File
	pageSize   int
	lastPageID common.PageID
	mu         sync.Mutex
	header     *header
}

var _ IDiskManager = (*Manager)(nil)

// NewDiskManager opens (creating if necessary) a paged file at path.
func NewDiskManager(path string, pageSize int) (*Manager, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "disk: opening %s", path)
	}

	d := &Manager{file: f, pageSize: pageSize}

	stat, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "disk: stat")
	}

	if stat.Size() == 0 {
		// fresh file: page 0 is the header, first allocatable page is 1.
		d.lastPageID = 0
		h := newHeader()
		d.header = &h
		if err := d.flushHeader(); err != nil {
			return nil, err
		}
	} else {
		d.lastPageID = common.PageID(stat.Size()/int64(pageSize) - 1)
	}

	if common.EnableLogging {
		logrus.WithFields(logrus.Fields{"path": path, "page_size": pageSize}).Debug("disk manager opened")
	}
	return d, nil
}

func (d *Manager) PageSize() int { return d.pageSize }

func (d *Manager) ReadPage(pageID common.PageID, dest []byte) error {
	if len(dest) != d.pageSize {
		return errors.Errorf("disk: dest buffer is %d bytes, want %d", len(dest), d.pageSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	off := int64(pageID) * int64(d.pageSize)
	n, err := d.file.ReadAt(dest, off)
	if err != nil {
		return errors.Wrapf(common.ErrIOFailure, "disk: reading page %d: %v", pageID, err)
	}
	if n != d.pageSize {
		return errors.Wrapf(common.ErrIOFailure, "disk: short read on page %d (%d of %d bytes)", pageID, n, d.pageSize)
	}
	return nil
}

func (d *Manager) WritePage(pageID common.PageID, data []byte) error {
	if len(data) != d.pageSize {
		return errors.Errorf("disk: data buffer is %d bytes, want %d", len(data), d.pageSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writePageLocked(pageID, data)
}

func (d *Manager) writePageLocked(pageID common.PageID, data []byte) error {
	off := int64(pageID) * int64(d.pageSize)
	n, err := d.file.WriteAt(data, off)
	if err != nil {
		return errors.Wrapf(common.ErrIOFailure, "disk: writing page %d: %v", pageID, err)
	}
	if n != d.pageSize {
		return errors.Wrapf(common.ErrIOFailure, "disk: short write on page %d (%d of %d bytes)", pageID, n, d.pageSize)
	}
	return nil
}

// AllocatePage pops the free list if non-empty, else grows the file by one
// page. Monotonic allocation on file growth is acceptable per spec.md §6.
func (d *Manager) AllocatePage() (common.PageID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if h := d.loadedHeader(); h.freeListHead.IsValid() {
		popped := h.freeListHead
		if h.freeListHead == h.freeListTail {
			h.freeListHead = common.InvalidPageID
			h.freeListTail = common.InvalidPageID
		} else {
			next := make([]byte, d.pageSize)
			if err := d.readPageLocked(popped, next); err != nil {
				return 0, err
			}
			h.freeListHead = common.PageID(nextFreePointer(next))
		}
		if err := d.flushHeader(); err != nil {
			return 0, err
		}
		return popped, nil
	}

	d.lastPageID++
	if common.EnableLogging {
		logrus.WithField("page_id", d.lastPageID).Debug("allocated new page by growing file")
	}
	return d.lastPageID, nil
}

// DeallocatePage appends pageID at the tail of the free list: pageID's own
// contents get an invalid next pointer and the previous tail page's
// contents are overwritten with pageID as its next pointer, so the list can
// be traversed without any extra bookkeeping page, mirroring the teacher's
// popFreeList/FreePage.
func (d *Manager) DeallocatePage(pageID common.PageID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := d.loadedHeader()
	freed := make([]byte, d.pageSize)
	putNextFreePointer(freed, uint32(common.InvalidPageID))
	if err := d.writePageLocked(pageID, freed); err != nil {
		return err
	}

	if !h.freeListHead.IsValid() {
		h.freeListHead = pageID
		h.freeListTail = pageID
	} else {
		tailBuf := make([]byte, d.pageSize)
		putNextFreePointer(tailBuf, uint32(pageID))
		if err := d.writePageLocked(h.freeListTail, tailBuf); err != nil {
			return err
		}
		h.freeListTail = pageID
	}
	return d.flushHeader()
}

func (d *Manager) readPageLocked(pageID common.PageID, dest []byte) error {
	off := int64(pageID) * int64(d.pageSize)
	n, err := d.file.ReadAt(dest, off)
	if err != nil {
		return errors.Wrapf(common.ErrIOFailure, "disk: reading page %d: %v", pageID, err)
	}
	if n != d.pageSize {
		return errors.Wrapf(common.ErrIOFailure, "disk: short read on page %d", pageID)
	}
	return nil
}

func nextFreePointer(page []byte) uint32 {
	return uint32(page[0])<<24 | uint32(page[1])<<16 | uint32(page[2])<<8 | uint32(page[3])
}

func putNextFreePointer(page []byte, v uint32) {
	page[0] = byte(v >> 24)
	page[1] = byte(v >> 16)
	page[2] = byte(v >> 8)
	page[3] = byte(v)
}

func (d *Manager) GetRootID(indexName string) (common.PageID, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.loadedHeader().get(indexName)
	return id, ok, nil
}

func (d *Manager) SetRootID(indexName string, rootID common.PageID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loadedHeader().insertOrUpdate(indexName, rootID)
	return d.flushHeader()
}

func (d *Manager) DeleteRootID(indexName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loadedHeader().delete(indexName)
	return d.flushHeader()
}

// loadedHeader returns the cached header, reading it from page 0 on first
// use. Caller must hold d.mu.
func (d *Manager) loadedHeader() *header {
	if d.header != nil {
		return d.header
	}
	buf := make([]byte, d.pageSize)
	if err := d.readPageLocked(0, buf); err != nil {
		h := newHeader()
		d.header = &h
		return d.header
	}
	h := decodeHeader(buf)
	d.header = &h
	return d.header
}

// flushHeader writes the in-memory header back to page 0. Caller must hold
// d.mu.
func (d *Manager) flushHeader() error {
	return d.writePageLocked(0, d.header.encode(d.pageSize))
}

func (d *Manager) Close() error {
	return d.file.Close()
}

var _ io.Closer = (*Manager)(nil)
