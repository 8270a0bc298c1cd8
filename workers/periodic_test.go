package workers_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/fixity"
	"github.com/cul-it/cular/models"
	"github.com/cul-it/cular/registry"
	"github.com/cul-it/cular/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedStoredCollection puts a collection's files into both backends
// and its storage manifest into the object store and the registry,
// as if an earlier ingest had completed.
func seedStoredCollection(t *testing.T, env *testEnv, reg *registry.Registry, manifest *models.Manifest) {
	prefix := manifest.Depositor + "/" + manifest.CollectionId + "/"
	sfsDir := filepath.Join(env.Context.Config.SFSRoot, manifest.Depositor, manifest.CollectionId)
	err := manifest.WalkFiles(func(pkg *models.Package, entry *models.FileEntry) error {
		content, err := os.ReadFile(filepath.Join(pkg.SourcePath, filepath.FromSlash(entry.Filepath)))
		if err != nil {
			return err
		}
		env.S3.PutObject(prefix+entry.Filepath, content)
		destPath := filepath.Join(sfsDir, filepath.FromSlash(entry.Filepath))
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return err
		}
		return os.WriteFile(destPath, content, 0644)
	})
	require.Nil(t, err)

	data, err := manifest.ToStorageJson("2026-01-15")
	require.Nil(t, err)
	key := constants.CollectionManifestKey(manifest.Depositor, manifest.CollectionId)
	env.S3.PutObject(key, data)
	reg.Update(manifest.Depositor, manifest.CollectionId, key, "seeded")
}

// TestPeriodicFixityChain runs one full periodic cycle: verify one
// collection against both backends, stamp the registry, and chain to
// the next collection without any confirmation step.
func TestPeriodicFixityChain(t *testing.T) {
	env := newTestEnv(t)
	reg := &registry.Registry{}

	first := makeSourceCollection(t)
	seedStoredCollection(t, env, reg, first)

	second := models.NewManifest("math", "M0001")
	pkg := models.NewPackage("urn:uuid:00000000-0000-0000-0000-000000000002")
	srcDir := t.TempDir()
	pkg.SourcePath = srcDir
	require.Nil(t, os.WriteFile(filepath.Join(srcDir, "thesis.pdf"), []byte("thesis content"), 0644))
	entrySha1, size := digestBytes(t, []byte("thesis content"))
	pkg.AddFile(&models.FileEntry{Filepath: "thesis.pdf", Sha1: entrySha1, Size: size})
	require.Nil(t, second.AddPackage(pkg))
	seedStoredCollection(t, env, reg, second)

	require.Nil(t, reg.Save(env.Context.Config.RegistryPath))

	entry := reg.Find("rmc", "RMA01234")
	require.NotNil(t, entry)
	require.Nil(t, workers.EnqueuePeriodicFixity(env.Context, "scheduler", entry))
	require.Equal(t, 1, env.queueLength(t, constants.MsgFixityS3))
	require.Equal(t, 1, env.queueLength(t, constants.MsgFixitySFS))

	processed := runWorker(t, env, workers.NewFixityS3Worker(env.Context),
		constants.MsgFixityS3, &env.Context.Config.FixityS3Worker)
	require.Equal(t, 1, processed)
	processed = runWorker(t, env, workers.NewFixitySFSWorker(env.Context),
		constants.MsgFixitySFS, &env.Context.Config.FixitySFSWorker)
	require.Equal(t, 1, processed)

	processed = runWorker(t, env, workers.NewCompareWorker(env.Context),
		constants.MsgFixityCompare, &env.Context.Config.CompareWorker)
	require.Equal(t, 2, processed)

	// The verified collection got its fixity stamp.
	reloaded, err := registry.Load(env.Context.Config.RegistryPath)
	require.Nil(t, err)
	assert.NotEmpty(t, reloaded.Find("rmc", "RMA01234").LastFixity)
	assert.Empty(t, reloaded.Find("math", "M0001").LastFixity)

	// Exactly one successor job was chained, despite two compare
	// messages having run.
	require.Equal(t, 1, env.queueLength(t, constants.MsgFixityS3))
	require.Equal(t, 1, env.queueLength(t, constants.MsgFixitySFS))
	queueName, _ := constants.QueueFor(constants.MsgFixityS3)
	next, err := env.Queues.Receive(queueName, 0, 60)
	require.Nil(t, err)
	require.NotNil(t, next)
	chained, err := models.ParseIngestMessage([]byte(next.Body))
	require.Nil(t, err)
	assert.True(t, chained.Periodic)
	assert.Equal(t, "math", chained.Depositor)
	assert.Equal(t, "M0001", chained.Collection)
	assert.NotEmpty(t, chained.JobId)
}

// The chain fails closed, with a notification, when the registry
// cannot supply a successor.
func TestPeriodicChainBreakNotifies(t *testing.T) {
	env := newTestEnv(t)
	manifest := makeSourceCollection(t)
	data, err := manifest.ToIngestJson()
	require.Nil(t, err)
	env.S3.PutObject(constants.ManifestKey("job-1", constants.SuffixIngestManifest), data)
	storageData, err := manifest.ToStorageJson("2026-01-15")
	require.Nil(t, err)
	env.S3.PutObject(constants.ManifestKey("job-1", constants.SuffixS3Manifest), storageData)
	env.S3.PutObject(constants.ManifestKey("job-1", constants.SuffixSFSManifest), storageData)

	// Registry exists but has no entry for this collection.
	reg := &registry.Registry{}
	reg.Update("other", "X1", "key", "sha")
	require.Nil(t, reg.Save(env.Context.Config.RegistryPath))

	worker := workers.NewCompareWorker(env.Context)
	err = worker.Work(&models.IngestMessage{
		JobId:      "job-1",
		Type:       constants.MsgFixityCompare,
		Depositor:  "rmc",
		Collection: "RMA01234",
		Periodic:   true,
	})
	require.NotNil(t, err)
	require.Equal(t, 1, env.Notifier.Count())
	assert.Contains(t, env.Notifier.Notifications[0].Subject, "chain stopped")
}

func digestBytes(t *testing.T, data []byte) (string, int64) {
	sha1, size, err := fixity.DigestReader(bytes.NewReader(data), constants.AlgSha1)
	require.Nil(t, err)
	return sha1, size
}
