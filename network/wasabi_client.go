package network

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// WasabiClient implements BlobStore on Wasabi, the S3-compatible
// secondary object store. Wasabi speaks the S3 wire protocol but not
// through AWS endpoints, so it gets the minio client rather than the
// AWS SDK. Endpoint is a host name without protocol; the client uses
// https.
type WasabiClient struct {
	Bucket string
	client *minio.Client
}

// NewWasabiClient returns a blob-store client for one Wasabi bucket.
func NewWasabiClient(endpoint, region, bucket, accessKeyId, secretKey string) (*WasabiClient, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyId, secretKey, ""),
		Secure: true,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create Wasabi client for '%s': %v",
			endpoint, err)
	}
	return &WasabiClient{
		Bucket: bucket,
		client: client,
	}, nil
}

func (wc *WasabiClient) Upload(key string, reader io.Reader, contentType string) error {
	// Size -1 makes minio stream in parts without buffering the
	// whole object.
	_, err := wc.client.PutObject(context.Background(), wc.Bucket, key,
		reader, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("error uploading '%s' to Wasabi bucket '%s': %v",
			key, wc.Bucket, err)
	}
	return nil
}

func (wc *WasabiClient) Open(key string) (io.ReadCloser, int64, error) {
	// Stat first: minio's GetObject is lazy and won't report a
	// missing key until the first read.
	info, err := wc.client.StatObject(context.Background(), wc.Bucket, key,
		minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, 0, ErrKeyNotFound
		}
		return nil, 0, fmt.Errorf("error checking '%s' in Wasabi bucket '%s': %v",
			key, wc.Bucket, err)
	}
	obj, err := wc.client.GetObject(context.Background(), wc.Bucket, key,
		minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("error opening '%s' in Wasabi bucket '%s': %v",
			key, wc.Bucket, err)
	}
	return obj, info.Size, nil
}

func (wc *WasabiClient) List(prefix string) ([]BlobObject, error) {
	objects := make([]BlobObject, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for info := range wc.client.ListObjects(ctx, wc.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("error listing prefix '%s' in Wasabi bucket '%s': %v",
				prefix, wc.Bucket, info.Err)
		}
		objects = append(objects, BlobObject{
			Key:  info.Key,
			Size: info.Size,
			ETag: info.ETag,
		})
	}
	return objects, nil
}

func (wc *WasabiClient) Delete(key string) error {
	return wc.client.RemoveObject(context.Background(), wc.Bucket, key,
		minio.RemoveObjectOptions{})
}
