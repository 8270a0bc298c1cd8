package storage

import (
	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/models"
)

// Manager is the transfer state manager: the rendezvous point between
// platform transfer workers that race independently. It answers the
// one question the pipeline cares about: is this job done transferring
// everywhere it needs to be?
type Manager struct {
	store TransferStore
}

func NewManager(store TransferStore) *Manager {
	return &Manager{store: store}
}

// Store exposes the underlying TransferStore, mainly so process
// shutdown can close it.
func (m *Manager) Store() TransferStore {
	return m.store
}

// AddTransferState upserts the row for (jobId, platform).
func (m *Manager) AddTransferState(jobId, platform, state string) error {
	ts, err := models.NewTransferState(jobId, platform, state)
	if err != nil {
		return err
	}
	return m.store.Upsert(ts)
}

// SetTransferState updates an existing row. Returns ErrStateNotFound
// if the row was never created, which means the ingest worker hasn't
// initialized this job.
func (m *Manager) SetTransferState(jobId, platform, state string) error {
	ts, err := models.NewTransferState(jobId, platform, state)
	if err != nil {
		return err
	}
	return m.store.Update(ts)
}

// TransferComplete returns true iff the job has at least one recorded
// row and no row is in_progress. A job with no rows at all is not
// complete: nothing has even started, and fixity generation against
// an untouched backend would be meaningless.
func (m *Manager) TransferComplete(jobId string) (bool, error) {
	rows, err := m.store.List(jobId)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	for _, row := range rows {
		if row.State == constants.TransferInProgress {
			return false, nil
		}
	}
	return true, nil
}

// PlatformComplete returns true if one specific platform's transfer
// has finished.
func (m *Manager) PlatformComplete(jobId, platform string) (bool, error) {
	row, err := m.store.Get(jobId, platform)
	if err != nil {
		if err == ErrStateNotFound {
			return false, nil
		}
		return false, err
	}
	return row.Complete(), nil
}
