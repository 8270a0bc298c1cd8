package workers_test

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/context"
	"github.com/cul-it/cular/fixity"
	"github.com/cul-it/cular/models"
	"github.com/cul-it/cular/storage"
	"github.com/cul-it/cular/util/logger"
	"github.com/cul-it/cular/util/testutil"
	"github.com/stretchr/testify/require"
)

// testEnv bundles a Context wired entirely to in-memory fakes, plus
// handles on the fakes for assertions.
type testEnv struct {
	Context  *context.Context
	Queues   *testutil.MemoryQueueService
	S3       *testutil.MemoryBlobStore
	Notifier *testutil.FakeNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	workerConfig := models.WorkerConfig{
		MaxAttempts:       3,
		WaitTimeSeconds:   0,
		VisibilityTimeout: 60,
		PollInterval:      "1ms",
	}
	config := &models.Config{
		Stage:                 "test",
		AWSRegion:             "us-east-1",
		S3Bucket:              "cular-test",
		SFSRoot:               t.TempDir(),
		RegistryPath:          filepath.Join(t.TempDir(), "registry.json"),
		ChecksumRetryInterval: "1ms",
		IngestWorker:          workerConfig,
		TransferS3Worker:      workerConfig,
		TransferSFSWorker:     workerConfig,
		FixityS3Worker:        workerConfig,
		FixitySFSWorker:       workerConfig,
		CompareWorker:         workerConfig,
		LogWorker:             workerConfig,
	}
	store, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "transfer.db"))
	require.Nil(t, err)
	t.Cleanup(func() { store.Close() })

	queues := testutil.NewMemoryQueueService()
	s3 := testutil.NewMemoryBlobStore()
	notifier := testutil.NewFakeNotifier()
	_context := &context.Context{
		Config:          config,
		MessageLog:      logger.DiscardLogger("workers_test"),
		JsonLog:         stdlog.New(io.Discard, "", 0),
		QueueService:    queues,
		S3Store:         s3,
		Notifier:        notifier,
		TransferManager: storage.NewManager(store),
	}
	return &testEnv{
		Context:  _context,
		Queues:   queues,
		S3:       s3,
		Notifier: notifier,
	}
}

func (env *testEnv) queueLength(t *testing.T, messageType string) int {
	queueName, err := constants.QueueFor(messageType)
	require.Nil(t, err)
	return env.Queues.QueueLength(queueName)
}

func (env *testEnv) sendMessage(t *testing.T, message *models.IngestMessage) {
	queueName, err := message.QueueName()
	require.Nil(t, err)
	data, err := message.ToJson()
	require.Nil(t, err)
	require.Nil(t, env.Queues.Send(queueName, string(data)))
}

// makeSourceCollection writes a small source tree to disk and builds
// the matching ingest manifest, with real digests.
func makeSourceCollection(t *testing.T) *models.Manifest {
	srcDir := t.TempDir()
	manifest := models.NewManifest("rmc", "RMA01234")
	manifest.Steward = "archives@example.edu"
	pkg := models.NewPackage("urn:uuid:00000000-0000-0000-0000-000000000001")
	pkg.SourcePath = srcDir
	for i, name := range []string{"item_0001/image.tif", "item_0001/notes.txt", "item_0002/image.tif"} {
		content := fmt.Sprintf("content of %s, file number %d\n", name, i)
		absPath := filepath.Join(srcDir, filepath.FromSlash(name))
		require.Nil(t, os.MkdirAll(filepath.Dir(absPath), 0755))
		require.Nil(t, os.WriteFile(absPath, []byte(content), 0644))
		sha1, size, err := fixity.DigestReader(strings.NewReader(content), constants.AlgSha1)
		require.Nil(t, err)
		md5, _, err := fixity.DigestReader(strings.NewReader(content), constants.AlgMd5)
		require.Nil(t, err)
		pkg.AddFile(&models.FileEntry{
			Filepath: name,
			Sha1:     sha1,
			Md5:      md5,
			Size:     size,
		})
	}
	require.Nil(t, manifest.AddPackage(pkg))
	return manifest
}

// depositManifest uploads a manifest in ingest form and returns its
// object key.
func depositManifest(t *testing.T, env *testEnv, manifest *models.Manifest, key string) string {
	data, err := manifest.ToIngestJson()
	require.Nil(t, err)
	env.S3.PutObject(key, data)
	return key
}
