package models

import (
	"fmt"

	"github.com/cul-it/cular/constants"
)

// TransferState is one durable row tracking whether one platform's
// transfer of one job has finished. The composite key (JobId,
// Platform) means different platforms' workers never contend on the
// same row. Rows must survive process restarts: transferring a large
// collection can outlive many worker-process lifetimes.
type TransferState struct {
	JobId    string `json:"job_id"`
	Platform string `json:"platform"`
	State    string `json:"state"`
}

// NewTransferState creates a row after validating the state value.
func NewTransferState(jobId, platform, state string) (*TransferState, error) {
	if jobId == "" {
		return nil, fmt.Errorf("transfer state requires a job id")
	}
	if platform == "" {
		return nil, fmt.Errorf("transfer state requires a platform")
	}
	if state != constants.TransferInProgress && state != constants.TransferComplete {
		return nil, fmt.Errorf("'%s' is not a valid transfer state", state)
	}
	return &TransferState{
		JobId:    jobId,
		Platform: platform,
		State:    state,
	}, nil
}

// Complete returns true if this platform's transfer has finished.
func (ts *TransferState) Complete() bool {
	return ts.State == constants.TransferComplete
}
