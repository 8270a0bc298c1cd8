package fixity

import (
	"errors"
	"fmt"
	"io"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/models"
	"github.com/cul-it/cular/network"
)

// FixityMismatchError means a fully-read copy of the collection
// disagrees with the ingest manifest. It is never retried: the bytes
// were all read, so re-reading cannot change the verdict. The diff is
// the auditable proof artifact and names every filepath that
// disagrees.
type FixityMismatchError struct {
	JobId    string
	Platform string
	Diff     *models.ManifestDiff
}

func (e *FixityMismatchError) Error() string {
	return fmt.Sprintf("fixity mismatch on %s for job %s:\n%s",
		e.Platform, e.JobId, e.Diff.String())
}

// Comparator performs the three-way equality check between the ingest
// manifest (intent) and the two observed manifests (S3 and SFS). All
// three are retrieved from the blob store by the manifest key
// convention.
type Comparator struct {
	Store network.BlobStore
}

func NewComparator(store network.BlobStore) *Comparator {
	return &Comparator{Store: store}
}

// fetchManifest retrieves and parses one manifest artifact by key.
func (c *Comparator) fetchManifest(key string) (*models.Manifest, error) {
	reader, _, err := c.Store.Open(key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading manifest '%s': %v", key, err)
	}
	return models.ParseManifest(data)
}

// Compare checks whether all three of a job's manifests agree.
//
// Returns (false, nil) if either observed manifest is not there yet:
// a backend that hasn't finished is an expected transient state, not
// a failure. Returns (false, FixityMismatchError) if a fully-present
// observed manifest disagrees with the ingest manifest. Returns
// (true, nil) when all three agree. A missing ingest manifest is a
// structural error: the job cannot be verified at all without its
// statement of intent.
func (c *Comparator) Compare(jobId string) (bool, error) {
	ingest, err := c.fetchManifest(constants.ManifestKey(jobId, constants.SuffixIngestManifest))
	if err != nil {
		if errors.Is(err, network.ErrKeyNotFound) {
			return false, fmt.Errorf("ingest manifest for job '%s' is missing", jobId)
		}
		return false, err
	}
	observed := map[string]string{
		constants.PlatformS3:  constants.ManifestKey(jobId, constants.SuffixS3Manifest),
		constants.PlatformSFS: constants.ManifestKey(jobId, constants.SuffixSFSManifest),
	}
	intent := ingest.FileMap()
	for _, platform := range []string{constants.PlatformS3, constants.PlatformSFS} {
		manifest, err := c.fetchManifest(observed[platform])
		if err != nil {
			if errors.Is(err, network.ErrKeyNotFound) {
				// Backend not finished yet.
				return false, nil
			}
			return false, err
		}
		diff := diffFileMaps(intent, manifest.FileMap())
		if !diff.IsEmpty() {
			return false, &FixityMismatchError{
				JobId:    jobId,
				Platform: platform,
				Diff:     diff,
			}
		}
	}
	return true, nil
}

// diffFileMaps compares two flattened filepath→entry maps on the
// fixity identity (sha1, size). Order never enters into it.
func diffFileMaps(expected, actual map[string]*models.FileEntry) *models.ManifestDiff {
	diff := models.NewManifestDiff()
	for path, expectedEntry := range expected {
		actualEntry, present := actual[path]
		if !present {
			diff.Add(path, expectedEntry, nil)
		} else if !expectedEntry.FixityEqual(actualEntry) {
			diff.Add(path, expectedEntry, actualEntry)
		}
	}
	for path, actualEntry := range actual {
		if _, present := expected[path]; !present {
			diff.Add(path, nil, actualEntry)
		}
	}
	return diff
}
