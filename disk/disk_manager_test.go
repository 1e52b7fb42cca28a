package disk_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talondb/common"
	"talondb/disk"
)

func newTestManager(t *testing.T) (*disk.Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), uuid.NewString()+".db")
	d, err := disk.NewDiskManager(path, disk.DefaultPageSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(); _ = os.Remove(path) })
	return d, path
}

func TestDiskManager_AllocateStartsAfterHeaderPage(t *testing.T) {
	d, _ := newTestManager(t)

	id, err := d.AllocatePage()
	require.NoError(t, err)
	assert.NotEqual(t, common.HeaderPageID, id, "page 0 is reserved for the header")
}

func TestDiskManager_WriteReadRoundTrip(t *testing.T) {
	d, _ := newTestManager(t)

	id, err := d.AllocatePage()
	require.NoError(t, err)

	payload := make([]byte, d.PageSize())
	copy(payload, []byte("round-trip payload"))
	require.NoError(t, d.WritePage(id, payload))

	got := make([]byte, d.PageSize())
	require.NoError(t, d.ReadPage(id, got))
	assert.Equal(t, payload, got)
}

func TestDiskManager_DeallocateThenAllocateReusesPage(t *testing.T) {
	d, _ := newTestManager(t)

	id, err := d.AllocatePage()
	require.NoError(t, err)
	require.NoError(t, d.DeallocatePage(id))

	reused, err := d.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, id, reused, "freed pages must be reused before growing the file")
}

func TestDiskManager_FreeListSurvivesMultipleCycles(t *testing.T) {
	d, _ := newTestManager(t)

	var ids []common.PageID
	for i := 0; i < 5; i++ {
		id, err := d.AllocatePage()
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for _, id := range ids {
		require.NoError(t, d.DeallocatePage(id))
	}

	seen := make(map[common.PageID]bool)
	for i := 0; i < 5; i++ {
		id, err := d.AllocatePage()
		require.NoError(t, err)
		assert.False(t, seen[id], "each freed page should be handed out exactly once")
		seen[id] = true
	}
	for _, id := range ids {
		assert.True(t, seen[id], "page %d should have been recycled", id)
	}
}

func TestDiskManager_RootIDDirectoryRoundTrips(t *testing.T) {
	d, _ := newTestManager(t)

	_, ok, err := d.GetRootID("orders")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.SetRootID("orders", common.PageID(7)))
	got, ok, err := d.GetRootID("orders")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, common.PageID(7), got)

	require.NoError(t, d.SetRootID("orders", common.PageID(42)))
	got, ok, err = d.GetRootID("orders")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, common.PageID(42), got)

	require.NoError(t, d.DeleteRootID("orders"))
	_, ok, err = d.GetRootID("orders")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiskManager_HeaderPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), uuid.NewString()+".db")
	d, err := disk.NewDiskManager(path, disk.DefaultPageSize)
	require.NoError(t, err)
	require.NoError(t, d.SetRootID("customers", common.PageID(3)))
	require.NoError(t, d.Close())

	reopened, err := disk.NewDiskManager(path, disk.DefaultPageSize)
	require.NoError(t, err)
	defer func() { _ = reopened.Close(); _ = os.Remove(path) }()

	got, ok, err := reopened.GetRootID("customers")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, common.PageID(3), got)
}

func TestDiskManager_ReadWriteRejectsMismatchedBufferSize(t *testing.T) {
	d, _ := newTestManager(t)
	id, err := d.AllocatePage()
	require.NoError(t, err)

	assert.Error(t, d.WritePage(id, make([]byte, d.PageSize()-1)))
	assert.Error(t, d.ReadPage(id, make([]byte, d.PageSize()+1)))
}
