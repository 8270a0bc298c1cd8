package models_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cul-it/cular/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.Nil(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `{
	"Stage": "staging",
	"AWSRegion": "us-east-1",
	"S3Bucket": "cular-preservation-staging",
	"WasabiEndpoint": "s3.wasabisys.com",
	"WasabiRegion": "us-east-1",
	"WasabiBucket": "cular-wasabi-staging",
	"SFSRoot": "/cul/data",
	"TransferStateStore": "bolt",
	"BoltDBPath": "/var/lib/cular/transfer_state.db",
	"ChecksumRetryInterval": "2m",
	"LogDirectory": "/var/log/cular",
	"LogLevel": "INFO",
	"TransferS3Worker": {
		"MaxAttempts": 5,
		"WaitTimeSeconds": 20,
		"VisibilityTimeout": 7200,
		"PollInterval": "10s"
	}
}`

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, validConfig)
	config, err := models.LoadConfigFile(path)
	require.Nil(t, err)
	assert.Equal(t, path, config.ActiveConfig)
	assert.Equal(t, "staging", config.Stage)
	assert.Equal(t, "bolt", config.TransferStateStore)
	assert.Equal(t, 2*time.Minute, config.ChecksumInterval())
	assert.Equal(t, int64(7200), config.TransferS3Worker.VisibilityTimeout)
	assert.Equal(t, 10*time.Second, config.TransferS3Worker.Interval())
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := models.LoadConfigFile("/no/such/file.json")
	assert.NotNil(t, err)

	path := writeConfigFile(t, "{not json")
	_, err = models.LoadConfigFile(path)
	assert.NotNil(t, err)

	path = writeConfigFile(t, `{"AWSRegion":"us-east-1","S3Bucket":"b"}`)
	_, err = models.LoadConfigFile(path)
	assert.NotNil(t, err, "config without SFSRoot should not load")

	path = writeConfigFile(t,
		`{"AWSRegion":"us-east-1","S3Bucket":"b","SFSRoot":"/cul/data",
		"TransferStateStore":"oracle"}`)
	_, err = models.LoadConfigFile(path)
	assert.NotNil(t, err, "unknown TransferStateStore should not load")
}

func TestConfigDefaults(t *testing.T) {
	path := writeConfigFile(t,
		`{"AWSRegion":"us-east-1","S3Bucket":"b","SFSRoot":"/cul/data"}`)
	config, err := models.LoadConfigFile(path)
	require.Nil(t, err)
	assert.Equal(t, "postgres", config.TransferStateStore)
	assert.Equal(t, 5*time.Minute, config.ChecksumInterval())
	assert.Equal(t, 10*time.Minute, config.SweepInterval())
	assert.Equal(t, "/cular/development/database_url",
		config.ParameterPath("database_url"))
}

func TestCollectionPrefix(t *testing.T) {
	config := &models.Config{}
	assert.Equal(t, "RMC/RMA01234/",
		config.CollectionPrefix("RMC", "RMA01234"))
}
