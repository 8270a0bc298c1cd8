package workers

import (
	"fmt"

	"github.com/cul-it/cular/context"
	"github.com/cul-it/cular/models"
)

// LogWorker forwards job status to the external ticketing system.
// Any pipeline stage that wants an operator-visible status line
// enqueues an Ingest-typed status through here rather than talking
// to the ticket sink itself.
type LogWorker struct {
	Context *context.Context
}

func NewLogWorker(_context *context.Context) *LogWorker {
	return &LogWorker{Context: _context}
}

func (worker *LogWorker) Name() string {
	return "Log worker"
}

func (worker *LogWorker) Work(message *models.IngestMessage) error {
	subject := fmt.Sprintf("[%s] job %s", message.Worker, message.JobId)
	body := fmt.Sprintf("Job: %s\nTicket: %s\nWorker: %s\nStatus: %s",
		message.JobId, message.TicketId, message.Worker, message.Log)
	if err := worker.Context.Notifier.Post(subject, body); err != nil {
		return fmt.Errorf("cannot post status for job %s: %v", message.JobId, err)
	}
	return nil
}
