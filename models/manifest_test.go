package models_test

import (
	"testing"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/models"
	"github.com/cul-it/cular/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPackageGeneratesId(t *testing.T) {
	pkg := models.NewPackage("")
	assert.Regexp(t, constants.UUIDPattern, pkg.PackageId)

	pkg = models.NewPackage("urn:uuid:11111111-2222-3333-4444-555555555555")
	assert.Equal(t, "urn:uuid:11111111-2222-3333-4444-555555555555", pkg.PackageId)
}

func TestAddPackageRejectsDuplicates(t *testing.T) {
	manifest := models.NewManifest("dep", "coll")
	pkg := testutil.MakePackage("p1", 1, 2)
	require.Nil(t, manifest.AddPackage(pkg))

	err := manifest.AddPackage(testutil.MakePackage("p1", 1, 2))
	require.NotNil(t, err)
	dupErr, ok := err.(*models.DuplicatePackageError)
	require.True(t, ok)
	assert.Equal(t, "p1", dupErr.PackageId)
}

func TestGetPackage(t *testing.T) {
	manifest := testutil.MakeManifest(3, 2)
	pkg := manifest.GetPackage("urn:uuid:00000000-0000-0000-0000-000000000001")
	require.NotNil(t, pkg)
	assert.Equal(t, 2, len(pkg.Files))
	assert.Nil(t, manifest.GetPackage("no-such-package"))
}

func TestWalkFilesIsRestartable(t *testing.T) {
	manifest := testutil.MakeManifest(3, 4)
	count := func() int {
		n := 0
		err := manifest.WalkFiles(func(pkg *models.Package, entry *models.FileEntry) error {
			n++
			return nil
		})
		require.Nil(t, err)
		return n
	}
	assert.Equal(t, 12, count())
	assert.Equal(t, 12, count())
	assert.Equal(t, 12, manifest.FileCount())
}

func TestDiffOfSelfIsEmpty(t *testing.T) {
	manifest := testutil.MakeManifest(4, 5)
	assert.True(t, manifest.Diff(manifest).IsEmpty())
}

func TestDiffIsOrderIndependent(t *testing.T) {
	a := testutil.MakeManifest(3, 3)
	b := testutil.MakeManifest(3, 3)

	// Reverse package order and file order within each package.
	for i, j := 0, len(b.Packages)-1; i < j; i, j = i+1, j-1 {
		b.Packages[i], b.Packages[j] = b.Packages[j], b.Packages[i]
	}
	for _, pkg := range b.Packages {
		for i, j := 0, len(pkg.Files)-1; i < j; i, j = i+1, j-1 {
			pkg.Files[i], pkg.Files[j] = pkg.Files[j], pkg.Files[i]
		}
	}

	assert.True(t, a.Diff(b).IsEmpty())
	assert.True(t, b.Diff(a).IsEmpty())
}

func TestDiffReportsMissingAndChanged(t *testing.T) {
	a := testutil.MakeManifest(2, 2)
	b := testutil.MakeManifest(2, 2)

	// Change one file's digest, remove another file entirely.
	changed := b.Packages[0].Files[0]
	changed.Sha1 = "0000000000000000000000000000000000000000"
	removedPath := b.Packages[1].Files[1].Filepath
	b.Packages[1].Files = b.Packages[1].Files[:1]

	diff := a.Diff(b)
	require.False(t, diff.IsEmpty())
	assert.Equal(t, 2, len(diff.Entries))

	entry := diff.Entries[changed.Filepath]
	require.NotNil(t, entry)
	assert.NotNil(t, entry.Expected)
	assert.NotNil(t, entry.Actual)
	assert.NotEqual(t, entry.Expected.Sha1, entry.Actual.Sha1)

	entry = diff.Entries[removedPath]
	require.NotNil(t, entry)
	assert.NotNil(t, entry.Expected)
	assert.Nil(t, entry.Actual)

	// Equality is symmetric even though the payload shape isn't.
	assert.False(t, b.Diff(a).IsEmpty())
}

func TestDiffReportsUnmatchedPackages(t *testing.T) {
	a := testutil.MakeManifest(2, 2)
	b := testutil.MakeManifest(1, 2)
	diff := a.Diff(b)
	// Package 1 exists only in a, so both its files are reported.
	assert.Equal(t, 2, len(diff.Entries))
	for _, entry := range diff.Entries {
		assert.NotNil(t, entry.Expected)
		assert.Nil(t, entry.Actual)
	}
}

func TestMergeAddsNewPackagesAndFiles(t *testing.T) {
	storage := testutil.MakeManifest(1, 2)
	ingest := testutil.MakeManifest(2, 2)

	overwrites := storage.Merge(ingest)
	assert.Empty(t, overwrites)
	assert.Equal(t, 2, len(storage.Packages))
	assert.Equal(t, 4, storage.FileCount())
	assert.True(t, storage.Diff(ingest).IsEmpty())
}

func TestMergeRecordsOverwrites(t *testing.T) {
	storage := testutil.MakeManifest(1, 2)
	ingest := testutil.MakeManifest(1, 2)
	ingest.Packages[0].Files[0].Sha1 = "1111111111111111111111111111111111111111"
	changedPath := ingest.Packages[0].Files[0].Filepath

	overwrites := storage.Merge(ingest)
	require.Equal(t, 1, len(overwrites))
	assert.Equal(t, changedPath, overwrites[0])

	// The incoming entry replaced the stored one.
	stored := storage.Packages[0].GetFile(changedPath)
	assert.Equal(t, "1111111111111111111111111111111111111111", stored.Sha1)
}

func TestMergeIsIdempotent(t *testing.T) {
	storage := testutil.MakeManifest(1, 2)
	ingest := testutil.MakeManifest(2, 3)
	ingest.Packages[0].Files[0].Sha1 = "2222222222222222222222222222222222222222"

	first := storage.Merge(ingest)
	fileCount := storage.FileCount()

	second := storage.Merge(ingest)
	assert.Empty(t, second)
	assert.Equal(t, fileCount, storage.FileCount())
	assert.Equal(t, 1, len(first))
}

func TestIngestJsonRoundTrip(t *testing.T) {
	manifest := testutil.MakeManifest(3, 4)
	data, err := manifest.ToIngestJson()
	require.Nil(t, err)

	parsed, err := models.ParseManifest(data)
	require.Nil(t, err)
	assert.True(t, manifest.Diff(parsed).IsEmpty())
	assert.True(t, parsed.Diff(manifest).IsEmpty())
	assert.Equal(t, manifest.Depositor, parsed.Depositor)
	assert.Equal(t, manifest.CollectionId, parsed.CollectionId)
	assert.Equal(t, 3, parsed.NumberPackages)
}

func TestStorageJsonStampsIngestDate(t *testing.T) {
	manifest := testutil.MakeManifest(1, 3)
	manifest.Packages[0].Files[0].IngestDate = "2020-01-15"

	data, err := manifest.ToStorageJson("2026-08-30")
	require.Nil(t, err)

	parsed, err := models.ParseManifest(data)
	require.Nil(t, err)
	files := parsed.Packages[0].Files
	assert.Equal(t, "2020-01-15", files[0].IngestDate)
	assert.Equal(t, "2026-08-30", files[1].IngestDate)
	assert.Equal(t, "2026-08-30", files[2].IngestDate)
}

func TestParseManifestCrossChecksCounts(t *testing.T) {
	badPackageCount := `{"depositor":"d","collection_id":"c","number_packages":5,"packages":[]}`
	_, err := models.ParseManifest([]byte(badPackageCount))
	assert.NotNil(t, err)

	badFileCount := `{"depositor":"d","collection_id":"c","number_packages":1,
		"packages":[{"package_id":"p1","number_files":9,"files":[
		{"filepath":"a.txt","sha1":"ab","size":1}]}]}`
	_, err = models.ParseManifest([]byte(badFileCount))
	assert.NotNil(t, err)
}

func TestParseManifestRejectsDuplicates(t *testing.T) {
	dupPackages := `{"depositor":"d","collection_id":"c","packages":[
		{"package_id":"p1","files":[]},{"package_id":"p1","files":[]}]}`
	_, err := models.ParseManifest([]byte(dupPackages))
	require.NotNil(t, err)
	_, ok := err.(*models.DuplicatePackageError)
	assert.True(t, ok)

	dupFiles := `{"depositor":"d","collection_id":"c","packages":[
		{"package_id":"p1","files":[
		{"filepath":"a.txt","sha1":"ab","size":1},
		{"filepath":"a.txt","sha1":"cd","size":2}]}]}`
	_, err = models.ParseManifest([]byte(dupFiles))
	assert.NotNil(t, err)
}

func TestParseManifestAssignsMissingPackageIds(t *testing.T) {
	noId := `{"depositor":"d","collection_id":"c","packages":[
		{"files":[{"filepath":"a.txt","sha1":"ab","size":1}]}]}`
	parsed, err := models.ParseManifest([]byte(noId))
	require.Nil(t, err)
	assert.Regexp(t, constants.UUIDPattern, parsed.Packages[0].PackageId)
}

func TestParseManifestRejectsNegativeSize(t *testing.T) {
	negative := `{"depositor":"d","collection_id":"c","packages":[
		{"package_id":"p1","files":[{"filepath":"a.txt","sha1":"ab","size":-4}]}]}`
	_, err := models.ParseManifest([]byte(negative))
	assert.NotNil(t, err)
}

func TestFileMap(t *testing.T) {
	manifest := testutil.MakeManifest(2, 3)
	fileMap := manifest.FileMap()
	assert.Equal(t, 6, len(fileMap))
	entry := fileMap["0/file_0.txt"]
	require.NotNil(t, entry)
	assert.Equal(t, testutil.FakeSha1("0/file_0.txt"), entry.Sha1)
}

func TestManifestDiffString(t *testing.T) {
	diff := models.NewManifestDiff()
	diff.Add("b.txt", &models.FileEntry{Filepath: "b.txt", Sha1: "aa", Size: 1}, nil)
	diff.Add("a.txt", nil, &models.FileEntry{Filepath: "a.txt", Sha1: "bb", Size: 2})
	out := diff.String()
	assert.Contains(t, out, "a.txt: expected (missing), actual sha1=bb size=2")
	assert.Contains(t, out, "b.txt: expected sha1=aa size=1, actual (missing)")
	assert.Equal(t, []string{"a.txt", "b.txt"}, diff.Filepaths())
}

func TestTotalSize(t *testing.T) {
	manifest := testutil.MakeManifest(2, 2)
	// Each package holds files of size 100 and 101.
	assert.Equal(t, int64(402), manifest.TotalSize())
}
