package workers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/context"
	"github.com/cul-it/cular/models"
	"github.com/cul-it/cular/util/fileutil"
)

// TransferS3Worker copies a job's files from their source paths to
// the primary object store, mirrors them to the secondary object
// store when one is configured, and marks the platform transfer
// complete. Uploads are keyed by depositor/collection/filepath, so
// re-running a partially completed transfer re-uploads rather than
// duplicating.
type TransferS3Worker struct {
	Context *context.Context
}

func NewTransferS3Worker(_context *context.Context) *TransferS3Worker {
	return &TransferS3Worker{Context: _context}
}

func (worker *TransferS3Worker) Name() string {
	return "Transfer S3 worker"
}

func (worker *TransferS3Worker) Work(message *models.IngestMessage) error {
	manifest, err := fetchJobManifest(worker.Context, message.JobId)
	if err != nil {
		return err
	}
	prefix := worker.Context.Config.CollectionPrefix(manifest.Depositor, manifest.CollectionId)
	err = manifest.WalkFiles(func(pkg *models.Package, entry *models.FileEntry) error {
		sourcePath := filepath.Join(pkg.SourcePath, filepath.FromSlash(entry.Filepath))
		if err := worker.uploadFile(prefix+entry.Filepath, sourcePath); err != nil {
			return fmt.Errorf("job %s: %v", message.JobId, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	err = worker.Context.TransferManager.SetTransferState(
		message.JobId, constants.PlatformS3, constants.TransferComplete)
	if err != nil {
		return err
	}
	if worker.Context.WasabiStore != nil {
		err = worker.Context.TransferManager.SetTransferState(
			message.JobId, constants.PlatformWasabi, constants.TransferComplete)
		if err != nil {
			return err
		}
	}
	return enqueueFixityWhenComplete(worker.Context, worker.Name(), message)
}

// uploadFile streams one file to the primary store and, when a
// secondary store is configured, to the secondary store as well.
func (worker *TransferS3Worker) uploadFile(key, sourcePath string) error {
	file, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("cannot open source file '%s': %v", sourcePath, err)
	}
	err = worker.Context.S3Store.Upload(key, file, "application/octet-stream")
	file.Close()
	if err != nil {
		return fmt.Errorf("cannot upload '%s': %v", key, err)
	}
	if worker.Context.WasabiStore == nil {
		return nil
	}
	file, err = os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("cannot reopen source file '%s': %v", sourcePath, err)
	}
	err = worker.Context.WasabiStore.Upload(key, file, "application/octet-stream")
	file.Close()
	if err != nil {
		return fmt.Errorf("cannot upload '%s' to secondary store: %v", key, err)
	}
	return nil
}

// TransferSFSWorker copies a job's files to the networked filesystem
// archive and marks the platform transfer complete. Copies overwrite,
// so redelivery of a partially completed transfer is safe.
type TransferSFSWorker struct {
	Context *context.Context
}

func NewTransferSFSWorker(_context *context.Context) *TransferSFSWorker {
	return &TransferSFSWorker{Context: _context}
}

func (worker *TransferSFSWorker) Name() string {
	return "Transfer SFS worker"
}

// destRoot is where this job's files land on the filesystem archive.
// The message may carry an explicit destination; otherwise files go
// under the conventional depositor/collection directory.
func (worker *TransferSFSWorker) destRoot(message *models.IngestMessage, manifest *models.Manifest) string {
	if message.DestPath != "" {
		return message.DestPath
	}
	return filepath.Join(worker.Context.Config.SFSRoot,
		manifest.Depositor, manifest.CollectionId)
}

func (worker *TransferSFSWorker) Work(message *models.IngestMessage) error {
	manifest, err := fetchJobManifest(worker.Context, message.JobId)
	if err != nil {
		return err
	}
	destRoot := worker.destRoot(message, manifest)
	err = manifest.WalkFiles(func(pkg *models.Package, entry *models.FileEntry) error {
		sourcePath := filepath.Join(pkg.SourcePath, filepath.FromSlash(entry.Filepath))
		destPath := filepath.Join(destRoot, filepath.FromSlash(entry.Filepath))
		if _, err := fileutil.CopyFile(destPath, sourcePath); err != nil {
			return fmt.Errorf("job %s: cannot copy '%s': %v", message.JobId, entry.Filepath, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	err = worker.Context.TransferManager.SetTransferState(
		message.JobId, constants.PlatformSFS, constants.TransferComplete)
	if err != nil {
		return err
	}
	return enqueueFixityWhenComplete(worker.Context, worker.Name(), message)
}

// enqueueFixityWhenComplete hands the job to the fixity workers once
// every platform's transfer is done. The transfer workers for one job
// race; whichever finishes last sees the complete state and enqueues.
// If both see it (ack lost, message redelivered), the fixity workers
// just regenerate the same manifests.
func enqueueFixityWhenComplete(_context *context.Context, workerName string, message *models.IngestMessage) error {
	complete, err := _context.TransferManager.TransferComplete(message.JobId)
	if err != nil {
		return err
	}
	if !complete {
		_context.MessageLog.Info("Job %s: other platforms still transferring", message.JobId)
		return nil
	}
	for _, messageType := range []string{constants.MsgFixityS3, constants.MsgFixitySFS} {
		next := message.ForType(messageType, workerName, "all transfers complete")
		if err := enqueue(_context, next); err != nil {
			return fmt.Errorf("cannot enqueue %s for job %s: %v", messageType, message.JobId, err)
		}
	}
	return nil
}
