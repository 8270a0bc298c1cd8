// Package workers contains the pipeline workers. Each worker is a
// stateless message handler wrapped in a polling harness: poll the
// input queue, process one message to completion, poll again. The
// queue service is the only scheduler. A handler that fails simply
// leaves its message unacknowledged; the queue redelivers it and
// eventually dead-letters it.
package workers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/context"
	"github.com/cul-it/cular/fixity"
	"github.com/cul-it/cular/models"
	"github.com/cul-it/cular/network"
)

// Handler is one worker's message processing step. Work must be
// idempotent: the harness retries by leaving the message in its
// queue, so Work can run more than once for the same message.
type Handler interface {
	// Name identifies the worker in logs and tickets.
	Name() string

	// Work processes one message. A non-nil return means the
	// message stays queued for redelivery.
	Work(message *models.IngestMessage) error
}

// Base is the polling harness shared by all workers. It resolves the
// handler's input queue, polls it in a loop, and translates handler
// results into queue acknowledgments.
type Base struct {
	Context     *context.Context
	Handler     Handler
	MessageType string
	Config      *models.WorkerConfig

	// NotifyOnError posts a ticket for every failed message. Set
	// for the compare and log workers, whose failures must reach
	// an operator even before the dead-letter sweep notices them.
	NotifyOnError bool

	queueURL string
}

func NewBase(_context *context.Context, handler Handler, messageType string, workerConfig *models.WorkerConfig) *Base {
	return &Base{
		Context:     _context,
		Handler:     handler,
		MessageType: messageType,
		Config:      workerConfig,
	}
}

// activityRecord is one line in the JSON activity log.
type activityRecord struct {
	Timestamp string `json:"timestamp"`
	Worker    string `json:"worker"`
	JobId     string `json:"job_id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

func (base *Base) logActivity(jobId, messageType, status, errText string) {
	record := activityRecord{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Worker:    base.Handler.Name(),
		JobId:     jobId,
		Type:      messageType,
		Status:    status,
		Error:     errText,
	}
	data, err := json.Marshal(record)
	if err != nil {
		base.Context.MessageLog.Error("Cannot marshal activity record: %v", err)
		return
	}
	base.Context.JsonLog.Println(string(data))
}

func (base *Base) resolveQueue() error {
	if base.queueURL != "" {
		return nil
	}
	queueName, err := constants.QueueFor(base.MessageType)
	if err != nil {
		return err
	}
	queueURL, err := base.Context.QueueService.QueueURL(queueName)
	if err != nil {
		return fmt.Errorf("cannot resolve queue '%s': %v", queueName, err)
	}
	base.queueURL = queueURL
	return nil
}

// ProcessOne polls once and processes at most one message. Returns
// true if a message was received. Queue-level errors come back as
// errors; handler failures do not, since the harness absorbs those
// by leaving the message queued.
func (base *Base) ProcessOne() (bool, error) {
	if err := base.resolveQueue(); err != nil {
		return false, err
	}
	message, err := base.Context.QueueService.Receive(
		base.queueURL, base.Config.WaitTimeSeconds, base.Config.VisibilityTimeout)
	if err != nil {
		return false, fmt.Errorf("queue receive failed: %v", err)
	}
	if message == nil {
		return false, nil
	}
	base.handle(message)
	return true, nil
}

func (base *Base) handle(message *network.Message) {
	ingestMessage, err := models.ParseIngestMessage([]byte(message.Body))
	if err != nil {
		// Structural error. The message can never be processed.
		// Leaving it unacknowledged routes it to the dead-letter
		// queue, where the monitor will raise it.
		base.Context.MessageLog.Error("%s: discarding unparsable message (attempt %d): %v",
			base.Handler.Name(), message.Attempt, err)
		base.Context.IncrementFailed()
		base.logActivity("", base.MessageType, "unparsable", err.Error())
		return
	}
	base.Context.MessageLog.Info("%s: processing job %s (attempt %d)",
		base.Handler.Name(), ingestMessage.JobId, message.Attempt)

	summary := models.NewWorkSummary()
	summary.AttemptNumber = message.Attempt
	summary.Start()
	workErr := base.Handler.Work(ingestMessage)
	summary.Finish()
	if workErr != nil {
		if fatalError(workErr) {
			summary.AddFatalError("%v", workErr)
		} else {
			summary.AddError("%v", workErr)
		}
		status := "failed"
		if !summary.Retry {
			// Redelivery cannot cure this one. It stays queued all
			// the same: the dead-letter route preserves the message
			// as evidence for the operator.
			status = "fatal"
		}
		base.Context.MessageLog.Error("%s: job %s %s on attempt %d: %v",
			base.Handler.Name(), ingestMessage.JobId, status,
			summary.AttemptNumber, workErr)
		base.Context.IncrementFailed()
		base.logActivity(ingestMessage.JobId, ingestMessage.Type, status, summary.FirstError())
		if base.NotifyOnError {
			base.notifyFailure(ingestMessage, workErr)
		}
		return
	}
	if err := base.Context.QueueService.Delete(base.queueURL, message.ReceiptHandle); err != nil {
		// The work succeeded but the ack failed. The message will
		// be redelivered; Work is idempotent, so this is safe.
		base.Context.MessageLog.Error("%s: job %s succeeded but delete failed: %v",
			base.Handler.Name(), ingestMessage.JobId, err)
		return
	}
	base.Context.IncrementSucceeded()
	base.logActivity(ingestMessage.JobId, ingestMessage.Type, "succeeded", "")
	base.Context.MessageLog.Info("%s: job %s succeeded in %s",
		base.Handler.Name(), ingestMessage.JobId, summary.RunTime())
}

// fatalError reports whether redelivering the message could possibly
// produce a different outcome. A checksum value mismatch cannot be
// retried into agreement, and a checksum that could not be computed
// because the underlying key or file does not exist is just as
// permanent.
func fatalError(err error) bool {
	var mismatch *fixity.FixityMismatchError
	if errors.As(err, &mismatch) {
		return true
	}
	return errors.Is(err, network.ErrKeyNotFound) || errors.Is(err, fs.ErrNotExist)
}

func (base *Base) notifyFailure(message *models.IngestMessage, workErr error) {
	subject := fmt.Sprintf("[%s] job %s failed", base.Handler.Name(), message.JobId)
	body := fmt.Sprintf("Worker: %s\nJob: %s\nTicket: %s\nError: %v",
		base.Handler.Name(), message.JobId, message.TicketId, workErr)
	if err := base.Context.Notifier.Post(subject, body); err != nil {
		base.Context.MessageLog.Error("%s: cannot post failure notification: %v",
			base.Handler.Name(), err)
	}
}

// Run polls forever. It never returns. Kill the process to stop it;
// any in-flight message simply reappears after its visibility
// timeout.
func (base *Base) Run() {
	base.Context.MessageLog.Info("%s: polling for %s messages",
		base.Handler.Name(), base.MessageType)
	for {
		processed, err := base.ProcessOne()
		if err != nil {
			base.Context.MessageLog.Error("%s: %v", base.Handler.Name(), err)
		}
		if !processed {
			time.Sleep(base.Config.Interval())
		}
	}
}

// enqueue serializes a message and sends it on the queue its type
// maps to. Shared by workers that hand a job to the next stage.
func enqueue(_context *context.Context, message *models.IngestMessage) error {
	queueName, err := message.QueueName()
	if err != nil {
		return err
	}
	queueURL, err := _context.QueueService.QueueURL(queueName)
	if err != nil {
		return fmt.Errorf("cannot resolve queue '%s': %v", queueName, err)
	}
	data, err := message.ToJson()
	if err != nil {
		return err
	}
	return _context.QueueService.Send(queueURL, string(data))
}
