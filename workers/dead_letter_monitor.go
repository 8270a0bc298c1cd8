package workers

import (
	"fmt"
	"time"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/context"
	"github.com/cul-it/cular/models"
)

// DeadLetterMonitor sweeps every dead-letter queue on an interval and
// raises a ticket for each message it finds. It never deletes or
// requeues anything: dead letters are evidence, and remediation is an
// operator decision. Messages it has already reported stay in their
// queues and get reported again on later sweeps until someone drains
// them, which keeps an unhandled incident from going quiet.
type DeadLetterMonitor struct {
	Context *context.Context

	// ReceiptVisibility is how long a reported message stays
	// invisible, in seconds. It should comfortably exceed one
	// sweep so a single sweep never sees the same message twice.
	ReceiptVisibility int64
}

func NewDeadLetterMonitor(_context *context.Context) *DeadLetterMonitor {
	visibility := int64(_context.Config.SweepInterval().Seconds()) * 2
	return &DeadLetterMonitor{
		Context:           _context,
		ReceiptVisibility: visibility,
	}
}

// Sweep drains one pass over all dead-letter queues and returns the
// number of messages reported. Errors are accumulated per queue so
// one unreachable queue does not hide dead letters in the others.
func (monitor *DeadLetterMonitor) Sweep() (int, *models.WorkSummary) {
	summary := models.NewWorkSummary()
	summary.Start()
	reported := 0
	for _, queueName := range constants.DeadLetterQueues() {
		count, err := monitor.sweepQueue(queueName)
		reported += count
		if err != nil {
			summary.AddError("queue %s: %v", queueName, err)
		}
	}
	summary.Finish()
	return reported, summary
}

func (monitor *DeadLetterMonitor) sweepQueue(queueName string) (int, error) {
	queueURL, err := monitor.Context.QueueService.QueueURL(queueName)
	if err != nil {
		return 0, err
	}
	reported := 0
	for {
		message, err := monitor.Context.QueueService.Receive(queueURL, 0, monitor.ReceiptVisibility)
		if err != nil {
			return reported, err
		}
		if message == nil {
			return reported, nil
		}
		if err := monitor.report(queueName, message.Body); err != nil {
			return reported, err
		}
		reported++
	}
}

func (monitor *DeadLetterMonitor) report(queueName, body string) error {
	jobId := "unknown"
	if message, err := models.ParseIngestMessage([]byte(body)); err == nil {
		jobId = message.JobId
	}
	monitor.Context.MessageLog.Error("Dead letter in %s for job %s", queueName, jobId)
	subject := fmt.Sprintf("[%s] dead letter in %s", constants.DeadLetterWorkerName, queueName)
	notifyBody := fmt.Sprintf("Worker: %s\nQueue: %s\nJob: %s\nMessage body:\n%s",
		constants.DeadLetterWorkerName, queueName, jobId, body)
	return monitor.Context.Notifier.Post(subject, notifyBody)
}

// Run sweeps forever at the configured interval.
func (monitor *DeadLetterMonitor) Run() {
	interval := monitor.Context.Config.SweepInterval()
	monitor.Context.MessageLog.Info("Dead letter monitor sweeping every %s", interval)
	for {
		reported, summary := monitor.Sweep()
		if !summary.Succeeded() {
			monitor.Context.MessageLog.Error("Sweep errors: %s", summary.AllErrorsAsString())
		}
		monitor.Context.MessageLog.Info("Sweep reported %d dead letters in %s",
			reported, summary.RunTime())
		time.Sleep(interval)
	}
}
