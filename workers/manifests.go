package workers

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/context"
	"github.com/cul-it/cular/models"
)

// fetchManifest downloads and parses a manifest from the primary
// object store.
func fetchManifest(_context *context.Context, key string) (*models.Manifest, error) {
	reader, _, err := _context.S3Store.Open(key)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch manifest '%s': %w", key, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	return models.ParseManifest(data)
}

// fetchJobManifest fetches the ingest manifest the ingest worker
// recorded for this job.
func fetchJobManifest(_context *context.Context, jobId string) (*models.Manifest, error) {
	return fetchManifest(_context, constants.ManifestKey(jobId, constants.SuffixIngestManifest))
}

// storeManifest uploads a manifest in storage form under the job's
// key for the given suffix.
func storeManifest(_context *context.Context, manifest *models.Manifest, jobId, suffix, ingestDate string) error {
	data, err := manifest.ToStorageJson(ingestDate)
	if err != nil {
		return err
	}
	key := constants.ManifestKey(jobId, suffix)
	err = _context.S3Store.Upload(key, bytes.NewReader(data), "application/json")
	if err != nil {
		return fmt.Errorf("cannot store manifest '%s': %v", key, err)
	}
	return nil
}
