package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talondb/catalog"
	"talondb/common"
	"talondb/transaction"
)

func TestMemTableHeap_InsertGetDelete(t *testing.T) {
	h := catalog.NewMemTableHeap()
	txn := transaction.Noop()

	rid, err := h.Insert([]byte("row-a"), txn)
	require.NoError(t, err)

	got, ok := h.Get(rid)
	require.True(t, ok)
	assert.Equal(t, "row-a", string(got))

	assert.True(t, h.Delete(rid, txn))
	_, ok = h.Get(rid)
	assert.False(t, ok)
	assert.False(t, h.Delete(rid, txn), "deleting twice should report false")
}

func TestMemTableHeap_InsertCopiesData(t *testing.T) {
	h := catalog.NewMemTableHeap()
	txn := transaction.Noop()
	data := []byte("mutable")
	rid, err := h.Insert(data, txn)
	require.NoError(t, err)

	data[0] = 'X'
	got, ok := h.Get(rid)
	require.True(t, ok)
	assert.Equal(t, "mutable", string(got), "stored row must not alias the caller's slice")
}

func TestMemTableHeap_AssignsDistinctRIDs(t *testing.T) {
	h := catalog.NewMemTableHeap()
	txn := transaction.Noop()
	seen := make(map[string]bool)
	for i := 0; i < 300; i++ {
		rid, err := h.Insert([]byte("row"), txn)
		require.NoError(t, err)
		key := rid.Bytes()
		assert.False(t, seen[string(key)], "RID must not repeat within the heap's lifetime")
		seen[string(key)] = true
	}
}

func TestMemTableHeap_ScanVisitsRowsInInsertOrder(t *testing.T) {
	h := catalog.NewMemTableHeap()
	txn := transaction.Noop()

	var rids []common.RID
	for i := 0; i < 5; i++ {
		rid, err := h.Insert([]byte{byte(i)}, txn)
		require.NoError(t, err)
		rids = append(rids, rid)
	}

	var visited []common.RID
	require.NoError(t, h.Scan(func(rid common.RID, data []byte) bool {
		visited = append(visited, rid)
		return true
	}))
	assert.Equal(t, rids, visited)
}

func TestMemTableHeap_ScanStopsWhenCallbackReturnsFalse(t *testing.T) {
	h := catalog.NewMemTableHeap()
	txn := transaction.Noop()
	for i := 0; i < 5; i++ {
		_, err := h.Insert([]byte{byte(i)}, txn)
		require.NoError(t, err)
	}

	count := 0
	require.NoError(t, h.Scan(func(common.RID, []byte) bool {
		count++
		return count < 2
	}))
	assert.Equal(t, 2, count)
}

func TestMemTableHeap_ScanSkipsDeletedRows(t *testing.T) {
	h := catalog.NewMemTableHeap()
	txn := transaction.Noop()

	rid1, err := h.Insert([]byte("keep"), txn)
	require.NoError(t, err)
	rid2, err := h.Insert([]byte("drop"), txn)
	require.NoError(t, err)
	require.True(t, h.Delete(rid2, txn))

	var visited []common.RID
	require.NoError(t, h.Scan(func(rid common.RID, _ []byte) bool {
		visited = append(visited, rid)
		return true
	}))
	assert.Equal(t, []common.RID{rid1}, visited)
}
