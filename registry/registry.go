// Package registry implements the manifest-of-manifests: an ordered
// list of every collection under preservation, each entry naming the
// collection's storage manifest location and its latest checksum.
// Periodic fixity runs walk this list in order, so entry order is
// significant and preserved across load/save cycles.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cul-it/cular/util/fileutil"
)

// Entry describes one collection under preservation.
type Entry struct {
	Depositor    string `json:"depositor"`
	CollectionId string `json:"collection_id"`
	// ManifestKey is the object store key of the collection's
	// storage manifest.
	ManifestKey string `json:"manifest_key"`
	// Sha1 is the digest of the storage manifest file itself, as of
	// the last time it was written.
	Sha1 string `json:"sha1"`
	// LastFixity is the date of the last completed fixity check,
	// empty if the collection has never been checked.
	LastFixity string `json:"last_fixity,omitempty"`
}

// Name returns the depositor-qualified collection name.
func (entry *Entry) Name() string {
	return entry.Depositor + "/" + entry.CollectionId
}

// Registry is the in-memory form of the registry file.
type Registry struct {
	Entries []*Entry `json:"entries"`
}

// Load reads the registry from a JSON file.
func Load(path string) (*Registry, error) {
	reg := &Registry{}
	err := fileutil.JsonFileToObject(path, reg)
	if err != nil {
		return nil, fmt.Errorf("cannot load registry from '%s': %w", path, err)
	}
	return reg, nil
}

// Save writes the registry to path. The write goes to a temp file
// first and is renamed into place, so a crash mid-write cannot leave
// a truncated registry behind.
func (reg *Registry) Save(path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, data, 0644)
}

// Find returns the entry for the named collection, or nil.
func (reg *Registry) Find(depositor, collectionId string) *Entry {
	for _, entry := range reg.Entries {
		if entry.Depositor == depositor && entry.CollectionId == collectionId {
			return entry
		}
	}
	return nil
}

// Successor returns the entry after the named collection in registry
// order, wrapping around to the first entry after the last. This is
// how a periodic fixity run chains from one collection to the next
// without ever stopping. Returns an error if the named collection is
// not registered or the registry is empty.
func (reg *Registry) Successor(depositor, collectionId string) (*Entry, error) {
	if len(reg.Entries) == 0 {
		return nil, fmt.Errorf("registry has no entries")
	}
	for i, entry := range reg.Entries {
		if entry.Depositor == depositor && entry.CollectionId == collectionId {
			return reg.Entries[(i+1)%len(reg.Entries)], nil
		}
	}
	return nil, fmt.Errorf("collection '%s/%s' is not in the registry",
		depositor, collectionId)
}

// Update records a new storage manifest digest for a collection,
// adding the entry if the collection is new. New entries go at the
// end of the list so existing fixity ordering is undisturbed.
func (reg *Registry) Update(depositor, collectionId, manifestKey, sha1 string) *Entry {
	entry := reg.Find(depositor, collectionId)
	if entry == nil {
		entry = &Entry{
			Depositor:    depositor,
			CollectionId: collectionId,
		}
		reg.Entries = append(reg.Entries, entry)
	}
	entry.ManifestKey = manifestKey
	entry.Sha1 = sha1
	return entry
}

// MarkFixity stamps the entry's last fixity date with today's date.
func (reg *Registry) MarkFixity(depositor, collectionId string) error {
	entry := reg.Find(depositor, collectionId)
	if entry == nil {
		return fmt.Errorf("collection '%s/%s' is not in the registry",
			depositor, collectionId)
	}
	entry.LastFixity = time.Now().UTC().Format("2006-01-02")
	return nil
}

// Names returns all registered collection names, sorted. Used by the
// queue CLI to show what exists.
func (reg *Registry) Names() []string {
	names := make([]string, len(reg.Entries))
	for i, entry := range reg.Entries {
		names[i] = entry.Name()
	}
	sort.Strings(names)
	return names
}
