// Package storage provides the durable store for per-platform
// transfer state. Transfer of a large collection can span many worker
// process lifetimes, so this state never lives in memory.
package storage

import (
	"errors"

	"github.com/cul-it/cular/models"
)

// ErrStateNotFound is returned when updating or fetching a transfer
// state row that does not exist.
var ErrStateNotFound = errors.New("transfer state not found")

// TransferStore persists transfer state rows keyed by
// (job_id, platform). Writes are transactional: a row is either fully
// written or not written. Different platforms of the same job write
// different rows, so concurrent platform workers never contend.
type TransferStore interface {
	// Upsert writes the row, replacing any existing row with the
	// same key.
	Upsert(state *models.TransferState) error

	// Update overwrites an existing row, returning
	// ErrStateNotFound if the row was never created.
	Update(state *models.TransferState) error

	// Get returns one row, or ErrStateNotFound.
	Get(jobId, platform string) (*models.TransferState, error)

	// List returns all rows for a job, in platform order.
	List(jobId string) ([]*models.TransferState, error)

	// Close releases the underlying connection or file handle.
	Close() error
}
