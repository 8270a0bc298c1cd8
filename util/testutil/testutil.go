// Package testutil provides fixture builders for unit tests.
package testutil

import (
	"crypto/sha1"
	"fmt"

	"github.com/cul-it/cular/models"
)

// FakeSha1 returns a deterministic hex sha1 derived from seed.
func FakeSha1(seed string) string {
	return fmt.Sprintf("%x", sha1.Sum([]byte(seed)))
}

// MakeFileEntry returns a file entry with a deterministic digest.
func MakeFileEntry(filepath string, size int64) *models.FileEntry {
	return &models.FileEntry{
		Filepath: filepath,
		Sha1:     FakeSha1(filepath),
		Md5:      "",
		Size:     size,
	}
}

// MakePackage returns a package with the given id containing
// fileCount files named <pkgNum>/file_<n>.txt.
func MakePackage(packageId string, pkgNum, fileCount int) *models.Package {
	pkg := models.NewPackage(packageId)
	pkg.SourcePath = fmt.Sprintf("/deposits/pkg_%d", pkgNum)
	for i := 0; i < fileCount; i++ {
		filepath := fmt.Sprintf("%d/file_%d.txt", pkgNum, i)
		pkg.AddFile(MakeFileEntry(filepath, int64(100+i)))
	}
	return pkg
}

// MakeManifest returns a manifest with packageCount packages of
// filesPerPackage files each. Package ids are stable, so two calls
// with the same arguments produce manifests that diff empty.
func MakeManifest(packageCount, filesPerPackage int) *models.Manifest {
	manifest := models.NewManifest("test_depositor", "test_collection")
	for i := 0; i < packageCount; i++ {
		pkg := MakePackage(fmt.Sprintf("urn:uuid:00000000-0000-0000-0000-%012d", i),
			i, filesPerPackage)
		if err := manifest.AddPackage(pkg); err != nil {
			panic(err)
		}
	}
	return manifest
}

// MakeIngestMessage returns a minimal valid message of the given type.
func MakeIngestMessage(jobId, messageType string) *models.IngestMessage {
	return &models.IngestMessage{
		JobId:      jobId,
		Type:       messageType,
		Depositor:  "test_depositor",
		Collection: "test_collection",
		TicketId:   "TICKET-1",
	}
}
