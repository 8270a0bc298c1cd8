package workers

import (
	"fmt"
	"strings"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/context"
	"github.com/cul-it/cular/models"
	uuid "github.com/satori/go.uuid"
)

// QueuePreview is everything an operator needs to see before an
// ingest job is queued. Building the preview has no side effects;
// nothing touches a queue until Submit. The split exists so the CLI
// can put a confirmation prompt between the two.
type QueuePreview struct {
	QueueName  string
	Message    *models.IngestMessage
	Depositor  string
	Collection string
	Packages   int
	FileCount  int
	TotalSize  int64
}

// PlanIngest validates a deposited manifest and builds the preview
// for queuing it as a new ingest job.
func PlanIngest(_context *context.Context, manifestKey, destPath, ticketId string) (*QueuePreview, error) {
	manifest, err := fetchManifest(_context, manifestKey)
	if err != nil {
		return nil, err
	}
	if manifest.Depositor == "" || manifest.CollectionId == "" {
		return nil, fmt.Errorf("manifest '%s' is missing depositor or collection id", manifestKey)
	}
	queueName, err := constants.QueueFor(constants.MsgIngest)
	if err != nil {
		return nil, err
	}
	message := &models.IngestMessage{
		JobId:          uuid.NewV4().String(),
		Type:           constants.MsgIngest,
		Depositor:      manifest.Depositor,
		Collection:     manifest.CollectionId,
		DestPath:       destPath,
		IngestManifest: manifestKey,
		TicketId:       ticketId,
	}
	return &QueuePreview{
		QueueName:  queueName,
		Message:    message,
		Depositor:  manifest.Depositor,
		Collection: manifest.CollectionId,
		Packages:   manifest.NumberPackages,
		FileCount:  manifest.FileCount(),
		TotalSize:  manifest.TotalSize(),
	}, nil
}

// String renders the deployment summary shown to the operator.
func (preview *QueuePreview) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job id:      %s\n", preview.Message.JobId)
	fmt.Fprintf(&b, "Queue:       %s\n", preview.QueueName)
	fmt.Fprintf(&b, "Collection:  %s/%s\n", preview.Depositor, preview.Collection)
	fmt.Fprintf(&b, "Packages:    %d\n", preview.Packages)
	fmt.Fprintf(&b, "Files:       %d\n", preview.FileCount)
	fmt.Fprintf(&b, "Total bytes: %d\n", preview.TotalSize)
	fmt.Fprintf(&b, "Manifest:    %s\n", preview.Message.IngestManifest)
	if preview.Message.DestPath != "" {
		fmt.Fprintf(&b, "Dest path:   %s\n", preview.Message.DestPath)
	}
	if preview.Message.TicketId != "" {
		fmt.Fprintf(&b, "Ticket:      %s\n", preview.Message.TicketId)
	}
	return b.String()
}

// Submit sends the previewed message. Callers must have obtained
// operator confirmation first; Submit itself never prompts.
func Submit(_context *context.Context, preview *QueuePreview) error {
	if err := enqueue(_context, preview.Message); err != nil {
		return fmt.Errorf("cannot queue job %s: %v", preview.Message.JobId, err)
	}
	_context.MessageLog.Info("Queued job %s on %s", preview.Message.JobId, preview.QueueName)
	return nil
}
