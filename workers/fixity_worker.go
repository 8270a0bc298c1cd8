package workers

import (
	"fmt"
	"time"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/context"
	"github.com/cul-it/cular/fixity"
	"github.com/cul-it/cular/models"
)

// FixityS3Worker regenerates the S3-observed manifest for a job and
// stores it under the job's manifest key. For ingest jobs it checks
// only the files the ingest manifest names; for periodic jobs it
// lists the entire collection prefix, so files that should not be
// there get reported too.
type FixityS3Worker struct {
	Context *context.Context
}

func NewFixityS3Worker(_context *context.Context) *FixityS3Worker {
	return &FixityS3Worker{Context: _context}
}

func (worker *FixityS3Worker) Name() string {
	return "Fixity S3 worker"
}

func (worker *FixityS3Worker) Work(message *models.IngestMessage) error {
	manifest, scope, err := fixityInputs(worker.Context, message)
	if err != nil {
		return err
	}
	engine := fixity.NewEngine(worker.Context.Config.ChecksumInterval())
	generator := fixity.NewObjectStoreGenerator(
		worker.Context.S3Store, engine, manifest.Depositor, manifest.CollectionId)
	observed, err := generator.Generate(scope)
	if err != nil {
		return fmt.Errorf("job %s: fixity generation failed: %v", message.JobId, err)
	}
	return storeAndEnqueueCompare(worker.Context, worker.Name(), message,
		observed, constants.SuffixS3Manifest)
}

// FixitySFSWorker regenerates the SFS-observed manifest for a job by
// walking the collection's directory on the filesystem archive.
type FixitySFSWorker struct {
	Context *context.Context
}

func NewFixitySFSWorker(_context *context.Context) *FixitySFSWorker {
	return &FixitySFSWorker{Context: _context}
}

func (worker *FixitySFSWorker) Name() string {
	return "Fixity SFS worker"
}

func (worker *FixitySFSWorker) Work(message *models.IngestMessage) error {
	manifest, scope, err := fixityInputs(worker.Context, message)
	if err != nil {
		return err
	}
	engine := fixity.NewEngine(worker.Context.Config.ChecksumInterval())
	generator := fixity.NewFilesystemGenerator(
		worker.Context.Config.SFSRoot, engine, manifest.Depositor, manifest.CollectionId)
	observed, err := generator.Generate(scope)
	if err != nil {
		return fmt.Errorf("job %s: fixity generation failed: %v", message.JobId, err)
	}
	return storeAndEnqueueCompare(worker.Context, worker.Name(), message,
		observed, constants.SuffixSFSManifest)
}

// fixityInputs fetches the job's ingest manifest and decides the
// generation scope. Ingest jobs must not start fixity until every
// platform's transfer is done; the pipeline enqueues fixity messages
// only after that point, so an incomplete state here means the
// message arrived out of order and should be retried later. Periodic
// jobs verify collections already in storage and carry no transfer
// state, so they skip the check and scan the whole collection.
func fixityInputs(_context *context.Context, message *models.IngestMessage) (*models.Manifest, *models.Manifest, error) {
	manifest, err := fetchJobManifest(_context, message.JobId)
	if err != nil {
		return nil, nil, err
	}
	if message.Periodic {
		return manifest, nil, nil
	}
	complete, err := _context.TransferManager.TransferComplete(message.JobId)
	if err != nil {
		return nil, nil, err
	}
	if !complete {
		return nil, nil, fmt.Errorf("job %s: transfers not yet complete", message.JobId)
	}
	return manifest, manifest, nil
}

func storeAndEnqueueCompare(_context *context.Context, workerName string, message *models.IngestMessage, observed *models.Manifest, suffix string) error {
	today := time.Now().UTC().Format(constants.IngestDateFormat)
	if err := storeManifest(_context, observed, message.JobId, suffix, today); err != nil {
		return err
	}
	_context.MessageLog.Info("Job %s: observed manifest '%s' has %d files",
		message.JobId, suffix, observed.FileCount())
	next := message.ForType(constants.MsgFixityCompare, workerName,
		fmt.Sprintf("%s manifest stored", suffix))
	return enqueue(_context, next)
}
