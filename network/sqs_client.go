package network

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
)

// SQSClient implements QueueService on Amazon SQS. Queue URLs are
// resolved by name once and cached for the life of the process.
type SQSClient struct {
	svc   *sqs.SQS
	mutex sync.Mutex
	urls  map[string]string
}

// NewSQSClient returns a queue client for the given region.
// Credentials come from the standard AWS environment/instance chain.
func NewSQSClient(region string) (*SQSClient, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create AWS session: %v", err)
	}
	return &SQSClient{
		svc:  sqs.New(sess),
		urls: make(map[string]string),
	}, nil
}

func (client *SQSClient) QueueURL(name string) (string, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	if url, ok := client.urls[name]; ok {
		return url, nil
	}
	resp, err := client.svc.GetQueueUrl(&sqs.GetQueueUrlInput{
		QueueName: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("cannot resolve queue '%s': %v", name, err)
	}
	client.urls[name] = *resp.QueueUrl
	return *resp.QueueUrl, nil
}

func (client *SQSClient) Send(queueURL, body string) error {
	_, err := client.svc.SendMessage(&sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(body),
	})
	return err
}

func (client *SQSClient) Receive(queueURL string, waitSeconds, visibilityTimeout int64) (*Message, error) {
	resp, err := client.svc.ReceiveMessage(&sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueURL),
		MaxNumberOfMessages: aws.Int64(1),
		WaitTimeSeconds:     aws.Int64(waitSeconds),
		VisibilityTimeout:   aws.Int64(visibilityTimeout),
		AttributeNames: []*string{
			aws.String(sqs.MessageSystemAttributeNameApproximateReceiveCount),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}
	raw := resp.Messages[0]
	attempt := 1
	if countAttr, ok := raw.Attributes[sqs.MessageSystemAttributeNameApproximateReceiveCount]; ok {
		if count, err := strconv.Atoi(*countAttr); err == nil {
			attempt = count
		}
	}
	return &Message{
		Id:            aws.StringValue(raw.MessageId),
		ReceiptHandle: aws.StringValue(raw.ReceiptHandle),
		Body:          aws.StringValue(raw.Body),
		Attempt:       attempt,
	}, nil
}

func (client *SQSClient) Delete(queueURL, receiptHandle string) error {
	_, err := client.svc.DeleteMessage(&sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	return err
}
