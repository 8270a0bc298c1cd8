package workers

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/context"
	"github.com/cul-it/cular/fixity"
	"github.com/cul-it/cular/models"
	"github.com/cul-it/cular/network"
	"github.com/cul-it/cular/registry"
	uuid "github.com/satori/go.uuid"
)

// CompareWorker runs the three-way manifest comparison that decides
// whether a job is done. On agreement for an ingest job, it merges
// the ingest manifest into the collection's storage manifest and
// updates the registry. On agreement for a periodic job, it stamps
// the registry and chains the next collection's fixity check, with
// no operator in the loop. A mismatch is fatal and carries the full
// diff out to the ticket sink.
type CompareWorker struct {
	Context *context.Context
}

func NewCompareWorker(_context *context.Context) *CompareWorker {
	return &CompareWorker{Context: _context}
}

func (worker *CompareWorker) Name() string {
	return "Fixity Compare worker"
}

func (worker *CompareWorker) Work(message *models.IngestMessage) error {
	comparator := fixity.NewComparator(worker.Context.S3Store)
	ok, err := comparator.Compare(message.JobId)
	if err != nil {
		var mismatch *fixity.FixityMismatchError
		if errors.As(err, &mismatch) {
			worker.Context.MessageLog.Error("Job %s: fixity mismatch:\n%s",
				message.JobId, mismatch.Diff.String())
		}
		return err
	}
	if !ok {
		// One of the observed manifests isn't there yet. The other
		// fixity worker's compare message will finish the job.
		worker.Context.MessageLog.Info("Job %s: comparison incomplete, waiting for "+
			"remaining observed manifest", message.JobId)
		return nil
	}
	worker.Context.MessageLog.Info("Job %s: all three manifests agree", message.JobId)
	if message.Periodic {
		return worker.finishPeriodic(message)
	}
	return worker.finishIngest(message)
}

// finishIngest deploys the verified ingest into the collection's
// cumulative storage manifest, records the new manifest digest in
// the registry, and notifies the ticket sink that the job is done.
func (worker *CompareWorker) finishIngest(message *models.IngestMessage) error {
	summary := models.NewWorkSummary()
	summary.Start()
	ingest, err := fetchJobManifest(worker.Context, message.JobId)
	if err != nil {
		return err
	}
	storageKey := constants.CollectionManifestKey(ingest.Depositor, ingest.CollectionId)
	collection, err := fetchManifest(worker.Context, storageKey)
	if err != nil {
		if !errors.Is(err, network.ErrKeyNotFound) {
			return err
		}
		// First deposit into this collection.
		collection = models.NewManifest(ingest.Depositor, ingest.CollectionId)
	}
	overwrites := collection.Merge(ingest)
	for _, filepath := range overwrites {
		worker.Context.MessageLog.Warning("Job %s: overwrote existing entry for '%s'",
			message.JobId, filepath)
		summary.AddError("overwrote existing entry for '%s'", filepath)
	}

	today := time.Now().UTC().Format(constants.IngestDateFormat)
	data, err := collection.ToStorageJson(today)
	if err != nil {
		return err
	}
	err = worker.Context.S3Store.Upload(storageKey, bytes.NewReader(data), "application/json")
	if err != nil {
		return fmt.Errorf("cannot deploy storage manifest '%s': %v", storageKey, err)
	}
	sha1, _, err := fixity.DigestReader(bytes.NewReader(data), constants.AlgSha1)
	if err != nil {
		return err
	}
	if err := worker.updateRegistry(ingest.Depositor, ingest.CollectionId, storageKey, sha1, false); err != nil {
		return err
	}
	summary.Finish()

	subject := fmt.Sprintf("[%s] job %s verified", worker.Name(), message.JobId)
	body := fmt.Sprintf("Job: %s\nTicket: %s\nCollection: %s/%s\nFiles: %d\nOverwrites: %d\n%s",
		message.JobId, message.TicketId, ingest.Depositor, ingest.CollectionId,
		ingest.FileCount(), len(overwrites), summary.AllErrorsAsString())
	if err := worker.Context.Notifier.Post(subject, body); err != nil {
		worker.Context.MessageLog.Error("Job %s: cannot post completion notice: %v",
			message.JobId, err)
	}
	return nil
}

// finishPeriodic stamps the verified collection's fixity date and
// enqueues the next collection in registry order. Chaining is
// unattended work, so there is no confirmation step; if the registry
// cannot supply a successor the chain stops with a notification
// rather than a prompt.
func (worker *CompareWorker) finishPeriodic(message *models.IngestMessage) error {
	reg, err := registry.Load(worker.Context.Config.RegistryPath)
	if err != nil {
		return err
	}
	entry := reg.Find(message.Depositor, message.Collection)
	if entry == nil {
		err := fmt.Errorf("collection '%s/%s' is not in the registry",
			message.Depositor, message.Collection)
		worker.notifyChainBroken(message, err)
		return err
	}
	// Both fixity workers enqueue a compare message, so a periodic
	// job compares twice. The fixity stamp makes the second run a
	// no-op instead of a second chain link.
	today := time.Now().UTC().Format(constants.IngestDateFormat)
	if entry.LastFixity == today {
		worker.Context.MessageLog.Info("Job %s: %s already verified today, not chaining",
			message.JobId, entry.Name())
		return nil
	}
	if err := worker.updateRegistry(message.Depositor, message.Collection, "", "", true); err != nil {
		return err
	}
	next, err := reg.Successor(message.Depositor, message.Collection)
	if err != nil {
		worker.notifyChainBroken(message, err)
		return err
	}
	return EnqueuePeriodicFixity(worker.Context, worker.Name(), next)
}

// updateRegistry applies one mutation to the shared registry file.
// Load-mutate-save with an atomic rename; at most one compare worker
// runs per deployment, so there is no concurrent writer to race.
func (worker *CompareWorker) updateRegistry(depositor, collection, manifestKey, sha1 string, markFixity bool) error {
	path := worker.Context.Config.RegistryPath
	reg, err := registry.Load(path)
	if err != nil {
		// Only a missing file means a brand-new registry. Anything
		// else (corrupt JSON, an unreadable mount) must not be
		// papered over with an empty registry, or Save would wipe
		// every other collection's entry.
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		reg = &registry.Registry{}
	}
	if manifestKey != "" {
		reg.Update(depositor, collection, manifestKey, sha1)
	}
	if markFixity {
		if err := reg.MarkFixity(depositor, collection); err != nil {
			return err
		}
	}
	return reg.Save(path)
}

func (worker *CompareWorker) notifyChainBroken(message *models.IngestMessage, cause error) {
	subject := fmt.Sprintf("[%s] periodic fixity chain stopped", worker.Name())
	body := fmt.Sprintf("Job: %s\nCollection: %s/%s\nError: %v",
		message.JobId, message.Depositor, message.Collection, cause)
	if err := worker.Context.Notifier.Post(subject, body); err != nil {
		worker.Context.MessageLog.Error("Cannot post chain-stopped notice: %v", err)
	}
}

// EnqueuePeriodicFixity starts a periodic fixity job for one
// registry entry: it stages the collection's storage manifest as the
// new job's intent manifest, then enqueues both fixity messages. Also
// used by the queue CLI to kick off the first link of a chain.
func EnqueuePeriodicFixity(_context *context.Context, workerName string, entry *registry.Entry) error {
	jobId := uuid.NewV4().String()
	manifest, err := fetchManifest(_context, entry.ManifestKey)
	if err != nil {
		return fmt.Errorf("cannot stage storage manifest for '%s': %v", entry.Name(), err)
	}
	data, err := manifest.ToIngestJson()
	if err != nil {
		return err
	}
	jobKey := constants.ManifestKey(jobId, constants.SuffixIngestManifest)
	if err := _context.S3Store.Upload(jobKey, bytes.NewReader(data), "application/json"); err != nil {
		return err
	}
	for _, messageType := range []string{constants.MsgFixityS3, constants.MsgFixitySFS} {
		message := &models.IngestMessage{
			JobId:          jobId,
			Type:           messageType,
			Depositor:      entry.Depositor,
			Collection:     entry.CollectionId,
			IngestManifest: jobKey,
			Periodic:       true,
			Worker:         workerName,
			Log:            fmt.Sprintf("periodic fixity for %s", entry.Name()),
		}
		if err := enqueue(_context, message); err != nil {
			return err
		}
	}
	_context.MessageLog.Info("Enqueued periodic fixity job %s for %s", jobId, entry.Name())
	return nil
}
