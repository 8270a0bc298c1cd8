package fixity

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/models"
	"github.com/cul-it/cular/network"
	"github.com/cul-it/cular/util/fileutil"
)

// Generator walks one storage backend and produces a manifest of the
// files it actually observed there. Generators never consult the
// ingest manifest's checksums, only (optionally) its filepath list:
// "what we observed" stays strictly independent of "what we
// intended". The result holds a single package whose files are
// exactly the observed set, sorted by filepath.
type Generator interface {
	// Generate scans the backend for one depositor/collection.
	// When scope is non-nil, only the filepaths it names are
	// checked (update mode); when nil, the whole backend area is
	// walked.
	Generate(scope *models.Manifest) (*models.Manifest, error)
}

func newObservedManifest(depositor, collection string, entries []*models.FileEntry) *models.Manifest {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Filepath < entries[j].Filepath
	})
	manifest := models.NewManifest(depositor, collection)
	pkg := models.NewPackage("")
	pkg.Files = entries
	manifest.AddPackage(pkg)
	manifest.NumberPackages = 1
	pkg.NumberFiles = len(entries)
	return manifest
}

// scopeFilepaths flattens a scope manifest to its sorted filepath
// list. Only the paths are used, never the declared checksums.
func scopeFilepaths(scope *models.Manifest) []string {
	paths := make([]string, 0, scope.FileCount())
	scope.WalkFiles(func(pkg *models.Package, entry *models.FileEntry) error {
		paths = append(paths, entry.Filepath)
		return nil
	})
	sort.Strings(paths)
	return paths
}

// ObjectStoreGenerator produces an observed manifest from an object
// store by listing keys under the depositor/collection prefix and
// streaming each object through the checksum engine.
type ObjectStoreGenerator struct {
	Store      network.BlobStore
	Engine     *Engine
	Depositor  string
	Collection string
}

func NewObjectStoreGenerator(store network.BlobStore, engine *Engine, depositor, collection string) *ObjectStoreGenerator {
	return &ObjectStoreGenerator{
		Store:      store,
		Engine:     engine,
		Depositor:  depositor,
		Collection: collection,
	}
}

func (gen *ObjectStoreGenerator) prefix() string {
	return fmt.Sprintf("%s/%s/", gen.Depositor, gen.Collection)
}

func (gen *ObjectStoreGenerator) Generate(scope *models.Manifest) (*models.Manifest, error) {
	var keys []string
	prefix := gen.prefix()
	if scope == nil {
		objects, err := gen.Store.List(prefix)
		if err != nil {
			return nil, err
		}
		keys = make([]string, 0, len(objects))
		for _, obj := range objects {
			keys = append(keys, obj.Key)
		}
	} else {
		// Update mode: check only the named files instead of
		// re-listing an entire bucket.
		for _, path := range scopeFilepaths(scope) {
			keys = append(keys, prefix+path)
		}
	}
	entries := make([]*models.FileEntry, 0, len(keys))
	for _, key := range keys {
		key := key
		digest, size, err := gen.Engine.Digest(
			constants.AlgSha1, func() (io.ReadCloser, int64, error) {
				return gen.Store.Open(key)
			})
		if err != nil {
			// A key named by the scope but absent from the
			// backend simply isn't observed; the comparator
			// reports it as missing.
			if errors.Is(err, network.ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("cannot checksum '%s': %v", key, err)
		}
		entries = append(entries, &models.FileEntry{
			Filepath: strings.TrimPrefix(key, prefix),
			Sha1:     digest,
			Size:     size,
		})
	}
	return newObservedManifest(gen.Depositor, gen.Collection, entries), nil
}

// FilesystemGenerator produces an observed manifest from the SFS
// archive by walking the collection's directory tree. OS noise files
// (thumbnail caches, hidden system files) are excluded from the walk.
type FilesystemGenerator struct {
	Root       string
	Engine     *Engine
	Depositor  string
	Collection string
}

func NewFilesystemGenerator(root string, engine *Engine, depositor, collection string) *FilesystemGenerator {
	return &FilesystemGenerator{
		Root:       root,
		Engine:     engine,
		Depositor:  depositor,
		Collection: collection,
	}
}

// collectionDir is the directory the walk starts at.
func (gen *FilesystemGenerator) collectionDir() string {
	return filepath.Join(gen.Root, gen.Depositor, gen.Collection)
}

func (gen *FilesystemGenerator) Generate(scope *models.Manifest) (*models.Manifest, error) {
	dir := gen.collectionDir()
	var paths []string
	if scope == nil {
		files, err := fileutil.RecursiveFileList(dir)
		if err != nil {
			return nil, fmt.Errorf("cannot walk '%s': %v", dir, err)
		}
		for _, absPath := range files {
			rel, err := fileutil.RelativeToRoot(dir, absPath)
			if err != nil {
				return nil, err
			}
			paths = append(paths, rel)
		}
		sort.Strings(paths)
	} else {
		paths = scopeFilepaths(scope)
	}
	entries := make([]*models.FileEntry, 0, len(paths))
	for _, rel := range paths {
		absPath := filepath.Join(dir, filepath.FromSlash(rel))
		if scope != nil && !fileutil.FileExists(absPath) {
			continue
		}
		digest, size, err := gen.Engine.DigestFile(absPath, constants.AlgSha1)
		if err != nil {
			return nil, fmt.Errorf("cannot checksum '%s': %v", absPath, err)
		}
		entries = append(entries, &models.FileEntry{
			Filepath: rel,
			Sha1:     digest,
			Size:     size,
		})
	}
	return newObservedManifest(gen.Depositor, gen.Collection, entries), nil
}
