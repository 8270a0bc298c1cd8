package network

// Message is one unit of work received from a queue. ReceiptHandle is
// what the worker hands back to delete the message once processing
// succeeds; an undeleted message reappears after its visibility
// timeout expires.
type Message struct {
	Id            string
	ReceiptHandle string
	Body          string

	// Attempt is the delivery attempt count, starting at one.
	// The queue service dead-letters a message once this passes
	// the queue's redrive threshold.
	Attempt int
}

// QueueService is the queue collaborator the worker pipeline runs on.
// Implementations resolve queue names to URLs, deliver at-least-once,
// and move repeatedly failed messages to dead-letter queues. There is
// no central scheduler beyond the queue service itself.
type QueueService interface {
	// QueueURL resolves a queue name to the URL used by the other
	// calls.
	QueueURL(name string) (string, error)

	// Send enqueues a message body.
	Send(queueURL, body string) error

	// Receive long-polls for up to the configured wait time and
	// returns one message, or nil if the queue was empty. The
	// message stays invisible to other consumers for
	// visibilityTimeout seconds.
	Receive(queueURL string, waitSeconds, visibilityTimeout int64) (*Message, error)

	// Delete acknowledges a message so it is never redelivered.
	Delete(queueURL, receiptHandle string) error
}
