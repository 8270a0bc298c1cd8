package workers_test

import (
	"testing"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/models"
	"github.com/cul-it/cular/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeadLetterMonitorSweep(t *testing.T) {
	env := newTestEnv(t)
	monitor := workers.NewDeadLetterMonitor(env.Context)

	reported, summary := monitor.Sweep()
	assert.True(t, summary.Succeeded())
	assert.Equal(t, 0, reported)
	assert.False(t, summary.HasErrors())

	// Dead-letter two messages in different queues.
	ingestDLQ, err := constants.DeadLetterQueueFor(constants.MsgIngest)
	require.Nil(t, err)
	compareDLQ, err := constants.DeadLetterQueueFor(constants.MsgFixityCompare)
	require.Nil(t, err)
	deadMessage := &models.IngestMessage{JobId: "job-1", Type: constants.MsgIngest}
	data, err := deadMessage.ToJson()
	require.Nil(t, err)
	require.Nil(t, env.Queues.Send(ingestDLQ, string(data)))
	require.Nil(t, env.Queues.Send(compareDLQ, "mangled body"))

	reported, summary = monitor.Sweep()
	assert.Equal(t, 2, reported)
	assert.False(t, summary.HasErrors())
	require.Equal(t, 2, env.Notifier.Count())
	for _, notification := range env.Notifier.Notifications {
		assert.Contains(t, notification.Subject, constants.DeadLetterWorkerName)
	}
	assert.Contains(t, env.Notifier.Notifications[0].Body, "job-1")
	assert.Contains(t, env.Notifier.Notifications[1].Body, "unknown")
	assert.Contains(t, env.Notifier.Notifications[1].Body, "mangled body")

	// The monitor never deletes: both messages are merely invisible
	// until their receipt visibility lapses.
	assert.Equal(t, 2, env.Queues.InflightCount())
	assert.Equal(t, 0, env.Queues.QueueLength(ingestDLQ))

	// A sweep inside the visibility window reports nothing new.
	reported, _ = monitor.Sweep()
	assert.Equal(t, 0, reported)

	// After the visibility window, the same incident is raised again.
	env.Queues.ExpireInflight()
	reported, _ = monitor.Sweep()
	assert.Equal(t, 2, reported)
	assert.Equal(t, 4, env.Notifier.Count())
}
