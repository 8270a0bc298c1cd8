package models_test

import (
	"testing"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/models"
	"github.com/cul-it/cular/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestMessageRoundTrip(t *testing.T) {
	message := testutil.MakeIngestMessage("job-1", constants.MsgIngest)
	message.DestPath = "/cul/data/depositor/collection"
	message.IngestManifest = ".manifest/job-1_ingest_manifest.json"

	data, err := message.ToJson()
	require.Nil(t, err)

	parsed, err := models.ParseIngestMessage(data)
	require.Nil(t, err)
	assert.Equal(t, message.JobId, parsed.JobId)
	assert.Equal(t, message.Type, parsed.Type)
	assert.Equal(t, message.DestPath, parsed.DestPath)
	assert.Equal(t, message.IngestManifest, parsed.IngestManifest)
}

func TestParseIngestMessageValidates(t *testing.T) {
	_, err := models.ParseIngestMessage([]byte(`{"type":"Ingest"}`))
	assert.NotNil(t, err, "message without job_id should not parse")

	_, err = models.ParseIngestMessage([]byte(`{"job_id":"j1","type":"Bogus"}`))
	assert.NotNil(t, err, "message with unroutable type should not parse")

	_, err = models.ParseIngestMessage([]byte(`not json`))
	assert.NotNil(t, err)
}

func TestQueueName(t *testing.T) {
	message := testutil.MakeIngestMessage("job-1", constants.MsgTransferSFS)
	name, err := message.QueueName()
	require.Nil(t, err)
	assert.Equal(t, "cular_transfer_sfs", name)
}

func TestForType(t *testing.T) {
	message := testutil.MakeIngestMessage("job-1", constants.MsgIngest)
	next := message.ForType(constants.MsgFixityS3, "transfer_s3", "transfer complete")
	assert.Equal(t, constants.MsgFixityS3, next.Type)
	assert.Equal(t, "transfer_s3", next.Worker)
	assert.Equal(t, "transfer complete", next.Log)
	assert.Equal(t, "job-1", next.JobId)
	// The original is untouched.
	assert.Equal(t, constants.MsgIngest, message.Type)
	assert.Empty(t, message.Worker)
}
