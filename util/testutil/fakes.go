package testutil

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/cul-it/cular/network"
)

// MemoryBlobStore is an in-memory BlobStore for tests.
type MemoryBlobStore struct {
	mutex   sync.Mutex
	objects map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{objects: make(map[string][]byte)}
}

func (store *MemoryBlobStore) Upload(key string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.objects[key] = data
	return nil
}

func (store *MemoryBlobStore) Open(key string) (io.ReadCloser, int64, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	data, ok := store.objects[key]
	if !ok {
		return nil, 0, network.ErrKeyNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (store *MemoryBlobStore) List(prefix string) ([]network.BlobObject, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	objects := make([]network.BlobObject, 0)
	for key, data := range store.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, network.BlobObject{
				Key:  key,
				Size: int64(len(data)),
			})
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (store *MemoryBlobStore) Delete(key string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	delete(store.objects, key)
	return nil
}

// PutObject stores raw bytes directly, for test setup.
func (store *MemoryBlobStore) PutObject(key string, data []byte) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.objects[key] = append([]byte(nil), data...)
}

// Keys returns all stored keys, sorted.
func (store *MemoryBlobStore) Keys() []string {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	keys := make([]string, 0, len(store.objects))
	for key := range store.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type inflightMessage struct {
	queueURL string
	message  *network.Message
}

// MemoryQueueService is an in-memory QueueService for tests. Queue
// URLs are the queue names themselves. Received messages are held
// in-flight until deleted; ExpireInflight simulates visibility
// timeouts by returning them to their queues.
type MemoryQueueService struct {
	mutex    sync.Mutex
	queues   map[string][]*network.Message
	inflight map[string]inflightMessage
	attempts map[string]int
	nextId   int
}

func NewMemoryQueueService() *MemoryQueueService {
	return &MemoryQueueService{
		queues:   make(map[string][]*network.Message),
		inflight: make(map[string]inflightMessage),
		attempts: make(map[string]int),
	}
}

func (qs *MemoryQueueService) QueueURL(name string) (string, error) {
	return name, nil
}

func (qs *MemoryQueueService) Send(queueURL, body string) error {
	qs.mutex.Lock()
	defer qs.mutex.Unlock()
	qs.nextId++
	qs.queues[queueURL] = append(qs.queues[queueURL], &network.Message{
		Id:   fmt.Sprintf("msg-%d", qs.nextId),
		Body: body,
	})
	return nil
}

func (qs *MemoryQueueService) Receive(queueURL string, waitSeconds, visibilityTimeout int64) (*network.Message, error) {
	qs.mutex.Lock()
	defer qs.mutex.Unlock()
	queue := qs.queues[queueURL]
	if len(queue) == 0 {
		return nil, nil
	}
	message := queue[0]
	qs.queues[queueURL] = queue[1:]
	qs.attempts[message.Id]++
	message.Attempt = qs.attempts[message.Id]
	message.ReceiptHandle = fmt.Sprintf("receipt-%s-%d", message.Id, message.Attempt)
	qs.inflight[message.ReceiptHandle] = inflightMessage{
		queueURL: queueURL,
		message:  message,
	}
	return message, nil
}

func (qs *MemoryQueueService) Delete(queueURL, receiptHandle string) error {
	qs.mutex.Lock()
	defer qs.mutex.Unlock()
	if _, ok := qs.inflight[receiptHandle]; !ok {
		return fmt.Errorf("receipt handle '%s' is not in flight", receiptHandle)
	}
	delete(qs.inflight, receiptHandle)
	return nil
}

// ExpireInflight returns all unacknowledged messages to their queues,
// as the queue service would when visibility timeouts lapse.
func (qs *MemoryQueueService) ExpireInflight() {
	qs.mutex.Lock()
	defer qs.mutex.Unlock()
	for receipt, entry := range qs.inflight {
		qs.queues[entry.queueURL] = append(qs.queues[entry.queueURL], entry.message)
		delete(qs.inflight, receipt)
	}
}

// QueueLength returns the number of visible messages in a queue.
func (qs *MemoryQueueService) QueueLength(queueURL string) int {
	qs.mutex.Lock()
	defer qs.mutex.Unlock()
	return len(qs.queues[queueURL])
}

// InflightCount returns the number of received-but-undeleted messages.
func (qs *MemoryQueueService) InflightCount() int {
	qs.mutex.Lock()
	defer qs.mutex.Unlock()
	return len(qs.inflight)
}

// Notification is one captured Post call.
type Notification struct {
	Subject string
	Body    string
}

// FakeNotifier is an in-memory NotificationClient for tests.
type FakeNotifier struct {
	mutex         sync.Mutex
	Notifications []Notification
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{Notifications: make([]Notification, 0)}
}

func (notifier *FakeNotifier) Post(subject, body string) error {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	notifier.Notifications = append(notifier.Notifications, Notification{
		Subject: subject,
		Body:    body,
	})
	return nil
}

// Count returns the number of notifications posted so far.
func (notifier *FakeNotifier) Count() int {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	return len(notifier.Notifications)
}

// FakeParameterStore is an in-memory ParameterStore for tests.
type FakeParameterStore struct {
	Params map[string]string
}

func (ps *FakeParameterStore) GetParameter(name string) (string, error) {
	value, ok := ps.Params[name]
	if !ok {
		return "", fmt.Errorf("no such parameter '%s'", name)
	}
	return value, nil
}
