// Package catalog is the named-table and named-index directory sitting
// above the B+-tree layer: it creates and looks up tables and indexes by
// name or OID, and populates a fresh index by scanning the table it is
// built over. Narrowed from a full relational catalog by dropping table
// schemas and the SQL type system in favor of an opaque row payload.
package catalog

import (
	"encoding/binary"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"

	"talondb/buffer"
	"talondb/common"
	"talondb/concurrency"
	"talondb/config"
	"talondb/disk"
	"talondb/index"
	"talondb/transaction"
)

// TableOID and IndexOID are monotonically allocated identifiers, unique
// within their own kind.
type TableOID uint32
type IndexOID uint32

const NullTableOID TableOID = 0
const NullIndexOID IndexOID = 0

// TableInfo bundles a table's name, OID and row storage.
type TableInfo struct {
	Name string
	OID  TableOID
	Heap TableHeap
}

// IndexInfo bundles a named B+-tree with the table it indexes, without
// the schema/column bookkeeping a full type system would need.
type IndexInfo struct {
	Name     string
	OID      IndexOID
	TableOID TableOID
	Tree     *index.BPlusTree
}

// Catalog creates and resolves tables and indexes by name or OID.
type Catalog interface {
	CreateTable(txn transaction.Transaction, name string) (*TableInfo, error)
	GetTable(name string) (*TableInfo, bool)
	GetTableByOID(oid TableOID) (*TableInfo, bool)

	CreateIndex(txn transaction.Transaction, indexName, tableName string) (*IndexInfo, error)
	GetIndex(name string) (*IndexInfo, bool)
	GetIndexByOID(oid IndexOID) (*IndexInfo, bool)
	GetTableIndexes(tableName string) []*IndexInfo
	DropIndex(name string) error
	IndexNames() []string
}

// InMemCatalog is the default Catalog. Resolved IndexInfo values are
// cached in a ristretto read-through cache keyed by name, the way a
// catalog under concurrent query load avoids re-deriving the same lookup
// on every access; the durable source of truth for an index's root page
// remains the disk header page, which GetIndex falls back to on a cache
// miss so a reopened catalog can reattach to indexes created before a
// restart. Table and OID bookkeeping is process-lifetime only: tables and
// non-root index metadata are not part of the header page's directory.
type InMemCatalog struct {
	mu sync.Mutex

	tables     map[TableOID]*TableInfo
	tableNames map[string]TableOID
	nextTable  TableOID

	indexes       map[IndexOID]*IndexInfo
	indexNames    map[string]IndexOID
	tableIndexes  map[TableOID][]IndexOID
	nextIndex     IndexOID

	bpm  *buffer.BufferPoolManager
	disk disk.IDiskManager
	cfg  config.Config
	lm   concurrency.LockManager

	cache *ristretto.Cache[string, *IndexInfo]
}

var _ Catalog = (*InMemCatalog)(nil)

func NewInMemCatalog(bpm *buffer.BufferPoolManager, d disk.IDiskManager, cfg config.Config) (*InMemCatalog, error) {
	return NewInMemCatalogWithLockManager(bpm, d, cfg, concurrency.NoLockManager{})
}

// NewInMemCatalogWithLockManager wires an explicit LockManager instead of
// the default no-op, for callers that plug in a real lock manager without
// changing every other construction call site.
func NewInMemCatalogWithLockManager(bpm *buffer.BufferPoolManager, d disk.IDiskManager, cfg config.Config, lm concurrency.LockManager) (*InMemCatalog, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *IndexInfo]{
		NumCounters: 1e4,
		MaxCost:     1 << 16,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "catalog: creating root-id cache")
	}

	return &InMemCatalog{
		tables:       make(map[TableOID]*TableInfo),
		tableNames:   make(map[string]TableOID),
		indexes:      make(map[IndexOID]*IndexInfo),
		indexNames:   make(map[string]IndexOID),
		tableIndexes: make(map[TableOID][]IndexOID),
		bpm:          bpm,
		disk:         d,
		cfg:          cfg,
		lm:           lm,
		cache:        cache,
	}, nil
}

func (c *InMemCatalog) CreateTable(txn transaction.Transaction, name string) (*TableInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tableNames[name]; ok {
		return nil, errors.Errorf("catalog: table %q already exists", name)
	}

	c.nextTable++
	info := &TableInfo{Name: name, OID: c.nextTable, Heap: NewMemTableHeap()}
	c.tables[info.OID] = info
	c.tableNames[name] = info.OID
	return info, nil
}

func (c *InMemCatalog) GetTable(name string) (*TableInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	oid, ok := c.tableNames[name]
	if !ok {
		return nil, false
	}
	return c.tables[oid], true
}

func (c *InMemCatalog) GetTableByOID(oid TableOID) (*TableInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok := c.tables[oid]
	return info, ok
}

// CreateIndex opens a fresh B+-tree named indexName and bulk-populates it
// by scanning tableName's heap, deriving each entry's key from its RID
// since row payloads carry no schema to index into. Each scanned row is
// locked Shared for the duration of its insert, guarding against a
// concurrent writer mutating the row mid-scan.
func (c *InMemCatalog) CreateIndex(txn transaction.Transaction, indexName, tableName string) (*IndexInfo, error) {
	c.mu.Lock()
	if _, ok := c.indexNames[indexName]; ok {
		c.mu.Unlock()
		return nil, errors.Errorf("catalog: index %q already exists", indexName)
	}
	tableOID, ok := c.tableNames[tableName]
	if !ok {
		c.mu.Unlock()
		return nil, errors.Errorf("catalog: index %q references nonexistent table %q", indexName, tableName)
	}
	table := c.tables[tableOID]
	c.mu.Unlock()

	if _, ok, err := c.disk.GetRootID(indexName); err != nil {
		return nil, err
	} else if ok {
		return nil, errors.Errorf("catalog: index %q already exists", indexName)
	}

	tree, err := index.OpenBPlusTree(indexName, c.bpm, c.disk, c.cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog: opening index %q", indexName)
	}

	var scanErr error
	err = table.Heap.Scan(func(rid common.RID, _ []byte) bool {
		if lockErr := c.lm.Lock(txn, rid, concurrency.Shared); lockErr != nil {
			scanErr = lockErr
			return false
		}
		tree.Insert(rowKey(c.cfg.KeyWidth, rid), rid, txn)
		if unlockErr := c.lm.Unlock(txn, rid); unlockErr != nil {
			scanErr = unlockErr
			return false
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrapf(err, "catalog: scanning table %q to populate index %q", tableName, indexName)
	}
	if scanErr != nil {
		return nil, errors.Wrapf(scanErr, "catalog: locking rows of %q while populating index %q", tableName, indexName)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextIndex++
	info := &IndexInfo{Name: indexName, OID: c.nextIndex, TableOID: tableOID, Tree: tree}
	c.indexes[info.OID] = info
	c.indexNames[indexName] = info.OID
	c.tableIndexes[tableOID] = append(c.tableIndexes[tableOID], info.OID)
	c.cache.SetWithTTL(indexName, info, 1, 0)
	c.cache.Wait()
	return info, nil
}

// rowKey derives an index key from a RID alone, since rows carry no
// column schema to key on. Both fields pack into the low 8 bytes of the
// key; widths under 8 bytes keep only the low-order SlotID bytes, so rows
// on different heap pages can map to the same key and the later Insert of
// such a key is rejected as a duplicate.
func rowKey(width common.KeyWidth, rid common.RID) common.Key {
	return common.KeyFromUint64(width, binary.BigEndian.Uint64(rid.Bytes()))
}

func (c *InMemCatalog) GetIndex(name string) (*IndexInfo, bool) {
	if info, ok := c.cache.Get(name); ok {
		return info, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if info, ok := c.cache.Get(name); ok {
		return info, true
	}
	oid, ok := c.indexNames[name]
	if ok {
		if info, ok := c.indexes[oid]; ok {
			c.cache.SetWithTTL(name, info, 1, 0)
			c.cache.Wait()
			return info, true
		}
	}

	// Fall back to the disk header page: a reopened process has no
	// in-memory OID bookkeeping for indexes created in a prior run, but
	// the root mapping itself always survives on page 0.
	if _, ok, err := c.disk.GetRootID(name); err != nil || !ok {
		return nil, false
	}
	tree, err := index.OpenBPlusTree(name, c.bpm, c.disk, c.cfg)
	if err != nil {
		return nil, false
	}
	c.nextIndex++
	info := &IndexInfo{Name: name, OID: c.nextIndex, TableOID: NullTableOID, Tree: tree}
	c.indexes[info.OID] = info
	c.indexNames[name] = info.OID
	c.cache.SetWithTTL(name, info, 1, 0)
	c.cache.Wait()
	return info, true
}

func (c *InMemCatalog) GetIndexByOID(oid IndexOID) (*IndexInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.indexes[oid]
	return info, ok
}

func (c *InMemCatalog) GetTableIndexes(tableName string) []*IndexInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	tableOID, ok := c.tableNames[tableName]
	if !ok {
		return nil
	}
	oids := c.tableIndexes[tableOID]
	infos := make([]*IndexInfo, 0, len(oids))
	for _, oid := range oids {
		if info, ok := c.indexes[oid]; ok {
			infos = append(infos, info)
		}
	}
	return infos
}

func (c *InMemCatalog) DropIndex(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if oid, ok := c.indexNames[name]; ok {
		if info := c.indexes[oid]; info != nil {
			oids := c.tableIndexes[info.TableOID]
			for i, o := range oids {
				if o == oid {
					c.tableIndexes[info.TableOID] = append(oids[:i], oids[i+1:]...)
					break
				}
			}
		}
		delete(c.indexes, oid)
		delete(c.indexNames, name)
	}
	c.cache.Del(name)
	return c.disk.DeleteRootID(name)
}

func (c *InMemCatalog) IndexNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.indexNames))
	for n := range c.indexNames {
		names = append(names, n)
	}
	return names
}

// Close releases the catalog's cache resources.
func (c *InMemCatalog) Close() {
	c.cache.Close()
}
