package models

import (
	"encoding/json"
	"fmt"

	"github.com/cul-it/cular/constants"
)

// IngestMessage is the unit of work routed through the queues. All
// messages for one job share a JobId. A message belongs to exactly
// one in-flight queue at a time; moving it between queues is the only
// state transition.
type IngestMessage struct {
	// JobId correlates all messages for one job.
	JobId string `json:"job_id"`

	// Type is one of the message type constants, and determines
	// which queue the message travels on.
	Type string `json:"type"`

	Depositor  string `json:"depositor,omitempty"`
	Collection string `json:"collection,omitempty"`

	// DestPath is the destination path on the filesystem archive.
	DestPath string `json:"dest_path,omitempty"`

	// IngestManifest is a location reference (an object key), not
	// inline manifest content.
	IngestManifest string `json:"ingest_manifest,omitempty"`

	// TicketId is the external tracking handle for this job.
	TicketId string `json:"ticket_id,omitempty"`

	// Periodic marks a scheduled fixity job. Periodic jobs verify
	// collections already in storage, so they carry no transfer
	// state, and a successful comparison chains to the next
	// collection without operator confirmation.
	Periodic bool `json:"periodic,omitempty"`

	// Worker names the last worker to touch this message.
	Worker string `json:"worker,omitempty"`

	// Log holds the last status text.
	Log string `json:"log,omitempty"`
}

// ParseIngestMessage deserializes and validates a queue message.
// A message without a job id or with an unroutable type is a
// structural error: it cannot be processed, only dead-lettered.
func ParseIngestMessage(data []byte) (*IngestMessage, error) {
	message := &IngestMessage{}
	if err := json.Unmarshal(data, message); err != nil {
		return nil, fmt.Errorf("cannot parse ingest message: %v", err)
	}
	if message.JobId == "" {
		return nil, fmt.Errorf("ingest message has no job_id")
	}
	if _, err := constants.QueueFor(message.Type); err != nil {
		return nil, err
	}
	return message, nil
}

// ToJson serializes the message for the queue.
func (message *IngestMessage) ToJson() ([]byte, error) {
	return json.Marshal(message)
}

// QueueName returns the name of the queue this message travels on.
func (message *IngestMessage) QueueName() (string, error) {
	return constants.QueueFor(message.Type)
}

// ForType returns a copy of this message retyped for the next
// pipeline stage, stamped with the name of the worker that produced
// it and a status line.
func (message *IngestMessage) ForType(messageType, worker, logText string) *IngestMessage {
	next := *message
	next.Type = messageType
	next.Worker = worker
	next.Log = logText
	return &next
}
