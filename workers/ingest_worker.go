package workers

import (
	"bytes"
	"fmt"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/context"
	"github.com/cul-it/cular/models"
)

// IngestWorker starts a job. It fetches the deposited ingest
// manifest, records it under the job's manifest key, initializes a
// transfer state row for every required platform, and hands the job
// to the transfer workers.
type IngestWorker struct {
	Context *context.Context
}

func NewIngestWorker(_context *context.Context) *IngestWorker {
	return &IngestWorker{Context: _context}
}

func (worker *IngestWorker) Name() string {
	return "Ingest worker"
}

func (worker *IngestWorker) platforms() []string {
	platforms := append([]string{}, constants.RequiredPlatforms...)
	if worker.Context.WasabiStore != nil {
		platforms = append(platforms, constants.PlatformWasabi)
	}
	return platforms
}

func (worker *IngestWorker) Work(message *models.IngestMessage) error {
	if message.IngestManifest == "" {
		return fmt.Errorf("ingest message for job %s has no manifest reference", message.JobId)
	}
	manifest, err := fetchManifest(worker.Context, message.IngestManifest)
	if err != nil {
		return err
	}
	worker.Context.MessageLog.Info("Job %s: manifest for %s/%s has %d packages, %d files",
		message.JobId, manifest.Depositor, manifest.CollectionId,
		manifest.NumberPackages, manifest.FileCount())

	// Record the manifest under the job's own key. Every later
	// stage reads it from there, so the deposit location can be
	// cleaned up independently of the job.
	jobKey := constants.ManifestKey(message.JobId, constants.SuffixIngestManifest)
	data, err := manifest.ToIngestJson()
	if err != nil {
		return err
	}
	err = worker.Context.S3Store.Upload(jobKey, bytes.NewReader(data), "application/json")
	if err != nil {
		return fmt.Errorf("cannot record ingest manifest for job %s: %v", message.JobId, err)
	}

	// Upsert keeps this idempotent: a redelivered ingest message
	// resets rows that are already there.
	for _, platform := range worker.platforms() {
		err = worker.Context.TransferManager.AddTransferState(
			message.JobId, platform, constants.TransferInProgress)
		if err != nil {
			return err
		}
	}

	for _, messageType := range []string{constants.MsgTransferS3, constants.MsgTransferSFS} {
		next := message.ForType(messageType, worker.Name(), "manifest recorded, transfer pending")
		next.IngestManifest = jobKey
		if err := enqueue(worker.Context, next); err != nil {
			return fmt.Errorf("cannot enqueue %s for job %s: %v", messageType, message.JobId, err)
		}
	}
	return nil
}
