package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talondb/buffer"
	"talondb/catalog"
	"talondb/config"
	"talondb/disk"
	"talondb/transaction"
)

func newTestCatalog(t *testing.T) (*catalog.InMemCatalog, string, config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.LeafMaxSize = 4
	cfg.InternalMaxSize = 4

	path := filepath.Join(t.TempDir(), uuid.NewString()+".db")
	d, err := disk.NewDiskManager(path, cfg.PageSize)
	require.NoError(t, err)
	bpm := buffer.NewBufferPoolManager(cfg.PoolSize, d)

	cat, err := catalog.NewInMemCatalog(bpm, d, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close(); _ = d.Close(); _ = os.Remove(path) })
	return cat, path, cfg
}

func TestInMemCatalog_CreateThenGetTable(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	txn := transaction.Noop()

	table, err := cat.CreateTable(txn, "customers")
	require.NoError(t, err)
	require.NotNil(t, table)
	assert.Equal(t, "customers", table.Name)

	got, ok := cat.GetTable("customers")
	require.True(t, ok)
	assert.Same(t, table, got)

	byOID, ok := cat.GetTableByOID(table.OID)
	require.True(t, ok)
	assert.Same(t, table, byOID)
}

func TestInMemCatalog_CreateDuplicateTableNameFails(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	txn := transaction.Noop()

	_, err := cat.CreateTable(txn, "orders")
	require.NoError(t, err)

	_, err = cat.CreateTable(txn, "orders")
	assert.Error(t, err)
}

func TestInMemCatalog_CreateIndexPopulatesFromExistingRows(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	txn := transaction.Noop()

	table, err := cat.CreateTable(txn, "products")
	require.NoError(t, err)

	var inserted []string
	for i := 0; i < 5; i++ {
		row := "widget-" + string(rune('a'+i))
		_, err := table.Heap.Insert([]byte(row), txn)
		require.NoError(t, err)
		inserted = append(inserted, row)
	}

	info, err := cat.CreateIndex(txn, "products_idx", "products")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "products_idx", info.Name)
	assert.Equal(t, table.OID, info.TableOID)
	assert.False(t, info.Tree.IsEmpty())

	seen := 0
	it := info.Tree.Begin()
	for !it.IsEnd() {
		_, rid := it.Next()
		_, ok := table.Heap.Get(rid)
		assert.True(t, ok, "every indexed RID must resolve back to a row")
		seen++
	}
	it.Close()
	assert.Equal(t, len(inserted), seen)

	got, ok := cat.GetIndex("products_idx")
	require.True(t, ok)
	assert.Same(t, info, got, "a resolved IndexInfo should be served from cache")

	byOID, ok := cat.GetIndexByOID(info.OID)
	require.True(t, ok)
	assert.Same(t, info, byOID)

	tableIndexes := cat.GetTableIndexes("products")
	require.Len(t, tableIndexes, 1)
	assert.Equal(t, info.OID, tableIndexes[0].OID)
}

func TestInMemCatalog_CreateIndexOnNonexistentTableFails(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	txn := transaction.Noop()

	_, err := cat.CreateIndex(txn, "ghost_idx", "ghost_table")
	assert.Error(t, err)
}

func TestInMemCatalog_CreateDuplicateIndexNameFails(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	txn := transaction.Noop()

	_, err := cat.CreateTable(txn, "orders")
	require.NoError(t, err)

	_, err = cat.CreateIndex(txn, "orders_idx", "orders")
	require.NoError(t, err)

	_, err = cat.CreateIndex(txn, "orders_idx", "orders")
	assert.Error(t, err)
}

func TestInMemCatalog_GetMissingIndexReturnsFalse(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	_, ok := cat.GetIndex("nonexistent")
	assert.False(t, ok)
}

func TestInMemCatalog_DropIndexRemovesRootMapping(t *testing.T) {
	cat, _, _ := newTestCatalog(t)
	txn := transaction.Noop()

	_, err := cat.CreateTable(txn, "temp_table")
	require.NoError(t, err)
	_, err = cat.CreateIndex(txn, "temp", "temp_table")
	require.NoError(t, err)

	require.NoError(t, cat.DropIndex("temp"))
	_, ok := cat.GetIndex("temp")
	assert.False(t, ok)

	assert.NotContains(t, cat.IndexNames(), "temp")
}

func TestInMemCatalog_ReattachesFromFreshCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.LeafMaxSize = 4
	cfg.InternalMaxSize = 4
	path := filepath.Join(t.TempDir(), uuid.NewString()+".db")
	d, err := disk.NewDiskManager(path, cfg.PageSize)
	require.NoError(t, err)
	defer func() { _ = d.Close(); _ = os.Remove(path) }()
	bpm := buffer.NewBufferPoolManager(cfg.PoolSize, d)
	txn := transaction.Noop()

	cat, err := catalog.NewInMemCatalog(bpm, d, cfg)
	require.NoError(t, err)
	table, err := cat.CreateTable(txn, "accounts")
	require.NoError(t, err)
	rid, err := table.Heap.Insert([]byte("acct"), txn)
	require.NoError(t, err)

	_, err = cat.CreateIndex(txn, "accounts_idx", "accounts")
	require.NoError(t, err)
	cat.Close()

	// a fresh catalog over the same disk manager must reattach to the
	// index by reading its persisted root id rather than losing it.
	cat2, err := catalog.NewInMemCatalog(bpm, d, cfg)
	require.NoError(t, err)
	defer cat2.Close()

	reattached, ok := cat2.GetIndex("accounts_idx")
	require.True(t, ok)
	assert.False(t, reattached.Tree.IsEmpty())

	it := reattached.Tree.Begin()
	defer it.Close()
	require.False(t, it.IsEnd())
	_, gotRID := it.Next()
	assert.Equal(t, rid, gotRID)
}
