package network

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrKeyNotFound is returned by Open when the requested key does not
// exist. The comparator treats a missing manifest as an expected
// transient state, so implementations must map their provider's
// not-found responses to this error.
var ErrKeyNotFound = errors.New("key not found")

// BlobObject describes one stored object returned by List.
type BlobObject struct {
	Key  string
	Size int64
	ETag string
}

// BlobStore is the object-store collaborator. One implementing type
// per backend; the implementation is selected via configuration,
// never via runtime type inspection.
type BlobStore interface {
	// Upload stores the reader's content under key.
	Upload(key string, reader io.Reader, contentType string) error

	// Open returns a streaming reader for the object and its size.
	// Returns ErrKeyNotFound for missing keys. The caller closes
	// the reader.
	Open(key string) (io.ReadCloser, int64, error)

	// List returns all objects whose keys begin with prefix.
	List(prefix string) ([]BlobObject, error)

	// Delete removes the object. Deleting a missing key is not an
	// error.
	Delete(key string) error
}

// GetJson downloads the object at key and unmarshals it into obj.
func GetJson(store BlobStore, key string, obj interface{}) error {
	reader, _, err := store.Open(key)
	if err != nil {
		return err
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("error reading '%s': %v", key, err)
	}
	return json.Unmarshal(data, obj)
}

// PutJson marshals obj and uploads it to key.
func PutJson(store BlobStore, key string, obj interface{}) error {
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return err
	}
	return store.Upload(key, bytes.NewReader(data), "application/json")
}
