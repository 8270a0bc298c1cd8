package models

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cul-it/cular/constants"
	uuid "github.com/satori/go.uuid"
)

// FileEntry describes one file in a package. Sha1 and Size together
// are the fixity identity of the file: two entries with the same
// filepath and differing sha1 or size indicate either corruption or
// an authorized overwrite.
type FileEntry struct {
	// Filepath is relative to the package root, forward-slash
	// separated, and unique within its package.
	Filepath string `json:"filepath"`

	// Sha1 is the authoritative checksum, as a hex digest.
	Sha1 string `json:"sha1"`

	// Md5 is an optional secondary digest.
	Md5 string `json:"md5,omitempty"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// IngestDate is set when the storage manifest is deployed.
	IngestDate string `json:"ingest_date,omitempty"`
}

// FixityEqual returns true if the other entry has the same sha1
// digest and size as this one.
func (f *FileEntry) FixityEqual(other *FileEntry) bool {
	if other == nil {
		return false
	}
	return f.Sha1 == other.Sha1 && f.Size == other.Size
}

// Copy returns a copy of this entry.
func (f *FileEntry) Copy() *FileEntry {
	entry := *f
	return &entry
}

// Package is a unit of original-order grouping: one deposited item
// and the files that make it up.
type Package struct {
	// PackageId uniquely identifies this package within its
	// manifest. Generated as a urn:uuid if the depositor did not
	// supply one.
	PackageId string `json:"package_id"`

	// SourcePath is the absolute path used to resolve relative
	// file paths at transfer time.
	SourcePath string `json:"source_path,omitempty"`

	// Bibid is the catalog record id, if the item has one.
	Bibid string `json:"bibid,omitempty"`

	// LocalId is a depositor-assigned identifier.
	LocalId string `json:"local_id,omitempty"`

	// NumberFiles is recomputed on serialization and cross-checked
	// on parse. Never trust the declared value.
	NumberFiles int `json:"number_files"`

	// Files holds the package's files in original order.
	Files []*FileEntry `json:"files"`
}

// NewPackage creates a Package, generating a urn:uuid package id if
// the one supplied is empty.
func NewPackage(packageId string) *Package {
	if packageId == "" {
		packageId = fmt.Sprintf("urn:uuid:%s", uuid.NewV4().String())
	}
	return &Package{
		PackageId: packageId,
		Files:     make([]*FileEntry, 0),
	}
}

// GetFile returns the file with the given package-relative path, or
// nil if the package has no such file.
func (p *Package) GetFile(filepath string) *FileEntry {
	for _, f := range p.Files {
		if f.Filepath == filepath {
			return f
		}
	}
	return nil
}

// AddFile appends a file entry to the package.
func (p *Package) AddFile(entry *FileEntry) {
	p.Files = append(p.Files, entry)
}

// TotalSize returns the sum of the sizes of all files in the package.
func (p *Package) TotalSize() int64 {
	var total int64
	for _, f := range p.Files {
		total += f.Size
	}
	return total
}

// Copy returns a deep copy of this package.
func (p *Package) Copy() *Package {
	pkg := &Package{
		PackageId:   p.PackageId,
		SourcePath:  p.SourcePath,
		Bibid:       p.Bibid,
		LocalId:     p.LocalId,
		NumberFiles: p.NumberFiles,
		Files:       make([]*FileEntry, len(p.Files)),
	}
	for i, f := range p.Files {
		pkg.Files[i] = f.Copy()
	}
	return pkg
}

// Manifest is the root aggregate describing one depositor/collection:
// an ordered set of packages of checksummed files. An ingest manifest
// declares what a deposit should contain; a storage manifest is the
// cumulative record of everything deposited into a collection; a
// fixity manifest records what a backend actually holds. All three
// share this type.
//
// A Manifest is never shared between goroutines. Each in-memory
// instance is owned by exactly one worker invocation.
type Manifest struct {
	Depositor    string   `json:"depositor"`
	CollectionId string   `json:"collection_id"`
	Steward      string   `json:"steward,omitempty"`
	Rights       string   `json:"rights,omitempty"`
	Locations    []string `json:"locations,omitempty"`

	// NumberPackages is recomputed on serialization and
	// cross-checked on parse.
	NumberPackages int `json:"number_packages"`

	Packages []*Package `json:"packages"`
}

// NewManifest creates an empty manifest for the given depositor and
// collection.
func NewManifest(depositor, collectionId string) *Manifest {
	return &Manifest{
		Depositor:    depositor,
		CollectionId: collectionId,
		Packages:     make([]*Package, 0),
	}
}

// DuplicatePackageError is returned when a package id that already
// exists in a manifest is added again.
type DuplicatePackageError struct {
	PackageId string
}

func (e *DuplicatePackageError) Error() string {
	return fmt.Sprintf("manifest already contains package '%s'", e.PackageId)
}

// GetPackage returns the package with the given id, or nil if the
// manifest has no such package.
func (m *Manifest) GetPackage(packageId string) *Package {
	for _, pkg := range m.Packages {
		if pkg.PackageId == packageId {
			return pkg
		}
	}
	return nil
}

// AddPackage appends a package to the manifest. Returns
// DuplicatePackageError if the manifest already contains a package
// with the same id.
func (m *Manifest) AddPackage(pkg *Package) error {
	if m.GetPackage(pkg.PackageId) != nil {
		return &DuplicatePackageError{PackageId: pkg.PackageId}
	}
	m.Packages = append(m.Packages, pkg)
	return nil
}

// WalkPackages calls fn once for each package, in manifest order.
// Iteration stops at the first error, which is returned. Walking has
// no side effects and may be repeated.
func (m *Manifest) WalkPackages(fn func(pkg *Package) error) error {
	for _, pkg := range m.Packages {
		if err := fn(pkg); err != nil {
			return err
		}
	}
	return nil
}

// WalkFiles calls fn once for each file in each package, in manifest
// order. Iteration stops at the first error, which is returned.
func (m *Manifest) WalkFiles(fn func(pkg *Package, entry *FileEntry) error) error {
	return m.WalkPackages(func(pkg *Package) error {
		for _, entry := range pkg.Files {
			if err := fn(pkg, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// FileCount returns the total number of files across all packages.
func (m *Manifest) FileCount() int {
	count := 0
	for _, pkg := range m.Packages {
		count += len(pkg.Files)
	}
	return count
}

// TotalSize returns the total size in bytes of all files in the
// manifest.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, pkg := range m.Packages {
		total += pkg.TotalSize()
	}
	return total
}

// FileMap flattens the manifest into a map of filepath to file entry
// across all packages. This is the order-independent view the
// comparator works on.
func (m *Manifest) FileMap() map[string]*FileEntry {
	fileMap := make(map[string]*FileEntry, m.FileCount())
	for _, pkg := range m.Packages {
		for _, entry := range pkg.Files {
			fileMap[entry.Filepath] = entry
		}
	}
	return fileMap
}

// FileDiff records a single disagreement between two manifests about
// one filepath. Expected is the receiver's entry, Actual the other
// manifest's. Either side may be nil when the file is present in only
// one manifest.
type FileDiff struct {
	Filepath string     `json:"filepath"`
	Expected *FileEntry `json:"expected"`
	Actual   *FileEntry `json:"actual"`
}

func (d *FileDiff) String() string {
	describe := func(entry *FileEntry) string {
		if entry == nil {
			return "(missing)"
		}
		return fmt.Sprintf("sha1=%s size=%d", entry.Sha1, entry.Size)
	}
	return fmt.Sprintf("%s: expected %s, actual %s",
		d.Filepath, describe(d.Expected), describe(d.Actual))
}

// ManifestDiff is the structured result of comparing two manifests.
// An empty diff means the manifests describe the same files.
type ManifestDiff struct {
	Entries map[string]*FileDiff `json:"entries"`
}

func NewManifestDiff() *ManifestDiff {
	return &ManifestDiff{Entries: make(map[string]*FileDiff)}
}

func (diff *ManifestDiff) Add(filepath string, expected, actual *FileEntry) {
	diff.Entries[filepath] = &FileDiff{
		Filepath: filepath,
		Expected: expected,
		Actual:   actual,
	}
}

// IsEmpty returns true if the compared manifests agreed on every file.
func (diff *ManifestDiff) IsEmpty() bool {
	return len(diff.Entries) == 0
}

// Filepaths returns the sorted list of filepaths that disagree.
func (diff *ManifestDiff) Filepaths() []string {
	paths := make([]string, 0, len(diff.Entries))
	for path := range diff.Entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// String renders the diff one filepath per line, sorted, for logs and
// ticket bodies. This is the auditable record of a fixity failure, so
// it names every filepath that disagrees.
func (diff *ManifestDiff) String() string {
	out := ""
	for _, path := range diff.Filepaths() {
		out += diff.Entries[path].String() + "\n"
	}
	return out
}

// Diff compares this manifest against another. Packages are matched
// by package id; within matched packages, files are joined by
// filepath, so two manifests listing the same files in different
// package or file order produce an empty diff. Files present on only
// one side are reported, as are files present on both sides with
// differing sha1 or size.
func (m *Manifest) Diff(other *Manifest) *ManifestDiff {
	diff := NewManifestDiff()
	for _, pkg := range m.Packages {
		otherPkg := other.GetPackage(pkg.PackageId)
		if otherPkg == nil {
			for _, entry := range pkg.Files {
				diff.Add(entry.Filepath, entry, nil)
			}
			continue
		}
		diffPackageFiles(diff, pkg, otherPkg)
	}
	for _, otherPkg := range other.Packages {
		if m.GetPackage(otherPkg.PackageId) == nil {
			for _, entry := range otherPkg.Files {
				diff.Add(entry.Filepath, nil, entry)
			}
		}
	}
	return diff
}

func diffPackageFiles(diff *ManifestDiff, pkg, otherPkg *Package) {
	otherFiles := make(map[string]*FileEntry, len(otherPkg.Files))
	for _, entry := range otherPkg.Files {
		otherFiles[entry.Filepath] = entry
	}
	for _, entry := range pkg.Files {
		otherEntry, present := otherFiles[entry.Filepath]
		if !present {
			diff.Add(entry.Filepath, entry, nil)
		} else if !entry.FixityEqual(otherEntry) {
			diff.Add(entry.Filepath, entry, otherEntry)
		}
		delete(otherFiles, entry.Filepath)
	}
	for _, otherEntry := range otherFiles {
		diff.Add(otherEntry.Filepath, nil, otherEntry)
	}
}

// Merge folds an ingest manifest into this (storage) manifest.
// Packages the receiver lacks are added wholesale; within existing
// packages, new filepaths are added and existing filepaths are
// overwritten with the incoming entry. The returned list names every
// filepath whose entry actually changed. Overwrites are never dropped
// silently: in a preservation system the caller must be able to
// enumerate them. Re-merging the same ingest manifest is a no-op and
// returns an empty list.
func (m *Manifest) Merge(ingest *Manifest) []string {
	overwrites := make([]string, 0)
	for _, incoming := range ingest.Packages {
		existing := m.GetPackage(incoming.PackageId)
		if existing == nil {
			m.Packages = append(m.Packages, incoming.Copy())
			continue
		}
		for _, entry := range incoming.Files {
			current := existing.GetFile(entry.Filepath)
			if current == nil {
				existing.AddFile(entry.Copy())
				continue
			}
			if current.FixityEqual(entry) && current.Md5 == entry.Md5 {
				continue
			}
			*current = *entry
			overwrites = append(overwrites, entry.Filepath)
		}
	}
	sort.Strings(overwrites)
	return overwrites
}

// recount refreshes the package and file counts prior to
// serialization. Declared counts are derived data and are never
// written out stale.
func (m *Manifest) recount() {
	m.NumberPackages = len(m.Packages)
	for _, pkg := range m.Packages {
		pkg.NumberFiles = len(pkg.Files)
	}
}

// ToIngestJson serializes the manifest in ingest form: the shape a
// depositor authors before transfer. Counts are recomputed.
func (m *Manifest) ToIngestJson() ([]byte, error) {
	m.recount()
	return json.MarshalIndent(m, "", "  ")
}

// ToStorageJson serializes the manifest in storage form. In addition
// to recomputing counts, every file is guaranteed an ingest date:
// files without one are stamped with ingestDate, which should be the
// deployment date in constants.IngestDateFormat.
func (m *Manifest) ToStorageJson(ingestDate string) ([]byte, error) {
	for _, pkg := range m.Packages {
		for _, entry := range pkg.Files {
			if entry.IngestDate == "" {
				entry.IngestDate = ingestDate
			}
		}
	}
	m.recount()
	return json.MarshalIndent(m, "", "  ")
}

// ParseManifest deserializes a manifest from either ingest or storage
// form. Declared package and file counts are cross-checked against
// the actual contents; a disagreement is a structural error, since it
// means the manifest was hand-edited or truncated. Duplicate package
// ids are likewise rejected. Packages without ids are assigned
// generated urn:uuid ids.
func ParseManifest(data []byte) (*Manifest, error) {
	manifest := &Manifest{}
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("cannot parse manifest: %v", err)
	}
	if manifest.NumberPackages != 0 && manifest.NumberPackages != len(manifest.Packages) {
		return nil, fmt.Errorf("manifest declares %d packages but contains %d",
			manifest.NumberPackages, len(manifest.Packages))
	}
	manifest.NumberPackages = len(manifest.Packages)
	seen := make(map[string]bool, len(manifest.Packages))
	for _, pkg := range manifest.Packages {
		if pkg.PackageId == "" {
			pkg.PackageId = fmt.Sprintf("urn:uuid:%s", uuid.NewV4().String())
		}
		if seen[pkg.PackageId] {
			return nil, &DuplicatePackageError{PackageId: pkg.PackageId}
		}
		seen[pkg.PackageId] = true
		if pkg.NumberFiles != 0 && pkg.NumberFiles != len(pkg.Files) {
			return nil, fmt.Errorf("package '%s' declares %d files but contains %d",
				pkg.PackageId, pkg.NumberFiles, len(pkg.Files))
		}
		pkg.NumberFiles = len(pkg.Files)
		paths := make(map[string]bool, len(pkg.Files))
		for _, entry := range pkg.Files {
			entry.Filepath = constants.NormalizeFilepath(entry.Filepath)
			if paths[entry.Filepath] {
				return nil, fmt.Errorf("package '%s' lists filepath '%s' twice",
					pkg.PackageId, entry.Filepath)
			}
			paths[entry.Filepath] = true
			if entry.Size < 0 {
				return nil, fmt.Errorf("file '%s' has negative size %d",
					entry.Filepath, entry.Size)
			}
		}
	}
	return manifest, nil
}
