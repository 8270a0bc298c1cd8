// Common vars and constants, shared by many parts of the cular services.
package constants

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Checksum algorithm enumerations.
const (
	AlgSha1 = "sha1"
	AlgMd5  = "md5"
)

var ChecksumAlgorithms = []string{AlgSha1, AlgMd5}

// Platform enumerations. A platform is one storage backend target.
// Every ingest job must reach all required platforms before fixity
// generation may begin.
const (
	PlatformS3     = "S3"
	PlatformSFS    = "SFS"
	PlatformWasabi = "Wasabi"
)

// RequiredPlatforms lists the platforms a transfer must complete on
// before a job is considered transferred.
var RequiredPlatforms = []string{PlatformS3, PlatformSFS}

// Transfer state enumerations, stored one row per (job_id, platform).
const (
	TransferInProgress = "in_progress"
	TransferComplete   = "complete"
)

// Message type enumerations. Each type maps to exactly one queue and
// one in-progress queue.
const (
	MsgIngest        = "Ingest"
	MsgTransferS3    = "Transfer S3"
	MsgTransferSFS   = "Transfer SFS"
	MsgFixityS3      = "Fixity S3"
	MsgFixitySFS     = "Fixity SFS"
	MsgFixityCompare = "Fixity Compare"
	MsgLog           = "Log"
)

var MessageTypes = []string{
	MsgIngest,
	MsgTransferS3,
	MsgTransferSFS,
	MsgFixityS3,
	MsgFixitySFS,
	MsgFixityCompare,
	MsgLog,
}

// queueNames maps each message type to its base queue name. In-progress
// and dead-letter queue names derive from these.
var queueNames = map[string]string{
	MsgIngest:        "cular_ingest",
	MsgTransferS3:    "cular_transfer_s3",
	MsgTransferSFS:   "cular_transfer_sfs",
	MsgFixityS3:      "cular_fixity_s3",
	MsgFixitySFS:     "cular_fixity_sfs",
	MsgFixityCompare: "cular_fixity_compare",
	MsgLog:           "cular_log_status",
}

// QueueFor returns the queue name for the given message type.
// Returns an error for unknown types, since a mistyped message type
// would otherwise silently route work into a nonexistent queue.
func QueueFor(messageType string) (string, error) {
	name, ok := queueNames[messageType]
	if !ok {
		return "", fmt.Errorf("no queue defined for message type '%s'", messageType)
	}
	return name, nil
}

// InProgressQueueFor returns the name of the in-progress queue for the
// given message type.
func InProgressQueueFor(messageType string) (string, error) {
	name, err := QueueFor(messageType)
	if err != nil {
		return "", err
	}
	return name + "_in_progress", nil
}

// DeadLetterQueueFor returns the name of the dead-letter queue for the
// given message type.
func DeadLetterQueueFor(messageType string) (string, error) {
	name, err := QueueFor(messageType)
	if err != nil {
		return "", err
	}
	return name + "_dead_letter", nil
}

// DeadLetterQueues returns the names of all dead-letter queues, in a
// stable order, for the dead-letter monitor's sweep.
func DeadLetterQueues() []string {
	names := make([]string, len(MessageTypes))
	for i, msgType := range MessageTypes {
		names[i], _ = DeadLetterQueueFor(msgType)
	}
	return names
}

// Manifest key conventions. Intermediate fixity artifacts live under
// the .manifest prefix in the depositor/collection bucket area.
const (
	ManifestPrefix       = ".manifest"
	SuffixIngestManifest = "ingest_manifest"
	SuffixS3Manifest     = "s3"
	SuffixSFSManifest    = "sfs"
	ManifestOfManifests  = "manifest_of_manifests.json"
)

// ManifestKey returns the conventional object key for an intermediate
// manifest artifact: ".manifest/<job_id>_<suffix>.json".
func ManifestKey(jobId, suffix string) string {
	return fmt.Sprintf("%s/%s_%s.json", ManifestPrefix, jobId, suffix)
}

// CollectionManifestKey returns the object key of a collection's
// cumulative storage manifest.
func CollectionManifestKey(depositor, collection string) string {
	return fmt.Sprintf("%s/%s_%s.json", ManifestPrefix, depositor, collection)
}

// IngestDateFormat is the date stamp recorded on each file when a
// storage manifest is deployed.
const IngestDateFormat = "2006-01-02"

// DeadLetterWorkerName tags tickets raised by the dead-letter monitor.
const DeadLetterWorkerName = "Dead letter monitor"

// ExcludedFiles are OS noise files that fixity generation skips when
// walking a filesystem archive. These appear in deposits made from
// desktop machines and are never part of the archival record.
var ExcludedFiles = []string{
	".DS_Store",
	"._.DS_Store",
	"Thumbs.db",
	"desktop.ini",
	".Spotlight-V100",
	".Trashes",
}

// AppleDoublePattern matches AppleDouble resource-fork files (._name)
// that macOS scatters through copied directory trees.
var AppleDoublePattern = regexp.MustCompile(`^\._`)

// IsExcludedFile returns true if the named file (base name only) is
// one of the OS noise files fixity generation should skip.
func IsExcludedFile(name string) bool {
	for _, excluded := range ExcludedFiles {
		if name == excluded {
			return true
		}
	}
	return AppleDoublePattern.MatchString(name)
}

// Checksum engine retry policy. The interval is a default only; it is
// configurable because production SFS mounts need minutes to recover
// while test suites must not sleep at all.
const (
	ChecksumMaxAttempts          = 3
	DefaultChecksumRetryInterval = 5 * time.Minute
	DigestChunkSize              = 64 * 1024
)

// UUIDPattern matches the urn:uuid form used for generated package ids.
var UUIDPattern = regexp.MustCompile(`^urn:uuid:[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// NormalizeFilepath converts OS-specific separators to the
// forward-slash form manifests require.
func NormalizeFilepath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}
