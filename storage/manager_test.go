package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeManager(t *testing.T) *storage.Manager {
	store, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "transfer.db"))
	require.Nil(t, err)
	t.Cleanup(func() { store.Close() })
	return storage.NewManager(store)
}

func TestManagerAddTransferState(t *testing.T) {
	manager := makeManager(t)
	require.Nil(t, manager.AddTransferState("job-1", constants.PlatformS3, constants.TransferInProgress))

	complete, err := manager.PlatformComplete("job-1", constants.PlatformS3)
	require.Nil(t, err)
	assert.False(t, complete)

	err = manager.AddTransferState("job-1", constants.PlatformS3, "half-done")
	assert.NotNil(t, err)

	err = manager.AddTransferState("", constants.PlatformS3, constants.TransferInProgress)
	assert.NotNil(t, err)
}

func TestManagerTransferComplete(t *testing.T) {
	manager := makeManager(t)

	// No rows recorded for this job means nothing has started, so
	// the transfer cannot be called complete.
	complete, err := manager.TransferComplete("job-1")
	require.Nil(t, err)
	assert.False(t, complete)

	platforms := []string{constants.PlatformS3, constants.PlatformSFS, constants.PlatformWasabi}
	for _, platform := range platforms {
		require.Nil(t, manager.AddTransferState("job-1", platform, constants.TransferInProgress))
	}

	complete, err = manager.TransferComplete("job-1")
	require.Nil(t, err)
	assert.False(t, complete)

	require.Nil(t, manager.SetTransferState("job-1", constants.PlatformS3, constants.TransferComplete))
	require.Nil(t, manager.SetTransferState("job-1", constants.PlatformWasabi, constants.TransferComplete))

	complete, err = manager.TransferComplete("job-1")
	require.Nil(t, err)
	assert.False(t, complete, "one platform still in progress")

	require.Nil(t, manager.SetTransferState("job-1", constants.PlatformSFS, constants.TransferComplete))

	complete, err = manager.TransferComplete("job-1")
	require.Nil(t, err)
	assert.True(t, complete)
}

func TestManagerPlatformComplete(t *testing.T) {
	manager := makeManager(t)
	require.Nil(t, manager.AddTransferState("job-1", constants.PlatformS3, constants.TransferInProgress))

	complete, err := manager.PlatformComplete("job-1", constants.PlatformS3)
	require.Nil(t, err)
	assert.False(t, complete)

	require.Nil(t, manager.SetTransferState("job-1", constants.PlatformS3, constants.TransferComplete))
	complete, err = manager.PlatformComplete("job-1", constants.PlatformS3)
	require.Nil(t, err)
	assert.True(t, complete)

	// A row that was never created reads as not complete.
	complete, err = manager.PlatformComplete("job-1", constants.PlatformSFS)
	require.Nil(t, err)
	assert.False(t, complete)
}

func TestManagerSetTransferStateMissing(t *testing.T) {
	manager := makeManager(t)
	err := manager.SetTransferState("job-1", constants.PlatformS3, constants.TransferComplete)
	assert.Equal(t, storage.ErrStateNotFound, err)
}
