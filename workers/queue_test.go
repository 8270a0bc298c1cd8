package workers_test

import (
	"testing"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanIngestBuildsPreviewWithoutSideEffects(t *testing.T) {
	env := newTestEnv(t)
	manifest := makeSourceCollection(t)
	depositKey := depositManifest(t, env, manifest, "deposits/rmc_RMA01234.json")

	preview, err := workers.PlanIngest(env.Context, depositKey, "/archive/rmc/RMA01234", "TICKET-1")
	require.Nil(t, err)
	assert.Equal(t, "rmc", preview.Depositor)
	assert.Equal(t, "RMA01234", preview.Collection)
	assert.Equal(t, 1, preview.Packages)
	assert.Equal(t, 3, preview.FileCount)
	assert.True(t, preview.TotalSize > 0)
	assert.NotEmpty(t, preview.Message.JobId)

	summary := preview.String()
	assert.Contains(t, summary, preview.Message.JobId)
	assert.Contains(t, summary, "cular_ingest")
	assert.Contains(t, summary, "rmc/RMA01234")
	assert.Contains(t, summary, "TICKET-1")

	// Planning queues nothing.
	assert.Equal(t, 0, env.queueLength(t, constants.MsgIngest))

	require.Nil(t, workers.Submit(env.Context, preview))
	assert.Equal(t, 1, env.queueLength(t, constants.MsgIngest))
}

func TestPlanIngestMissingManifest(t *testing.T) {
	env := newTestEnv(t)
	_, err := workers.PlanIngest(env.Context, "deposits/nope.json", "", "")
	assert.NotNil(t, err)
}
