package network

import (
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Client implements BlobStore on the primary preservation bucket.
// Uploads go through the s3manager chunked uploader so multi-gigabyte
// files are never held in memory; downloads are plain streaming
// GetObject reads.
type S3Client struct {
	Bucket   string
	svc      *s3.S3
	uploader *s3manager.Uploader
}

// NewS3Client returns a blob-store client for one bucket in one
// region.
func NewS3Client(region, bucket string) (*S3Client, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create AWS session: %v", err)
	}
	uploader := s3manager.NewUploader(sess)
	// Abandoned multipart parts accrue storage charges.
	uploader.LeavePartsOnError = false
	return &S3Client{
		Bucket:   bucket,
		svc:      s3.New(sess),
		uploader: uploader,
	}, nil
}

func (client *S3Client) Upload(key string, reader io.Reader, contentType string) error {
	_, err := client.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(client.Bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("error uploading '%s' to bucket '%s': %v",
			key, client.Bucket, err)
	}
	return nil
}

func (client *S3Client) Open(key string) (io.ReadCloser, int64, error) {
	resp, err := client.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(client.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if awsErr, ok := err.(awserr.Error); ok {
			if awsErr.Code() == s3.ErrCodeNoSuchKey || awsErr.Code() == "NotFound" {
				return nil, 0, ErrKeyNotFound
			}
		}
		return nil, 0, fmt.Errorf("error opening '%s' in bucket '%s': %v",
			key, client.Bucket, err)
	}
	return resp.Body, aws.Int64Value(resp.ContentLength), nil
}

func (client *S3Client) List(prefix string) ([]BlobObject, error) {
	objects := make([]BlobObject, 0)
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(client.Bucket),
		Prefix: aws.String(prefix),
	}
	err := client.svc.ListObjectsV2Pages(input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				objects = append(objects, BlobObject{
					Key:  aws.StringValue(obj.Key),
					Size: aws.Int64Value(obj.Size),
					ETag: aws.StringValue(obj.ETag),
				})
			}
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("error listing prefix '%s' in bucket '%s': %v",
			prefix, client.Bucket, err)
	}
	return objects, nil
}

func (client *S3Client) Delete(key string) error {
	_, err := client.svc.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(client.Bucket),
		Key:    aws.String(key),
	})
	return err
}
