package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cul-it/cular/constants"
)

// WorkerConfig holds the queue-polling settings for one worker
// process.
type WorkerConfig struct {
	// MaxAttempts is the number of delivery attempts a message
	// gets before the queue service moves it to the dead-letter
	// queue (the redrive threshold).
	MaxAttempts int

	// WaitTimeSeconds is the long-poll window for one receive
	// call. The queue returns empty or one message within this
	// window.
	WaitTimeSeconds int64

	// VisibilityTimeout is how long, in seconds, a received
	// message stays invisible to other workers. A message not
	// deleted within this window is redelivered. Transfer workers
	// moving multi-gigabyte files need this set high.
	VisibilityTimeout int64

	// PollInterval is how long to wait after an empty poll before
	// polling again. A duration string like "5s".
	PollInterval string
}

// Interval parses PollInterval, falling back to five seconds.
func (wc *WorkerConfig) Interval() time.Duration {
	interval, err := time.ParseDuration(wc.PollInterval)
	if err != nil || interval <= 0 {
		return 5 * time.Second
	}
	return interval
}

// Config holds all process-wide settings. It is loaded once from a
// JSON file at startup and passed into every component constructor.
// Nothing reads configuration from ambient globals.
type Config struct {
	// ActiveConfig is the path of the file this config was loaded
	// from.
	ActiveConfig string `json:"-"`

	// Stage is the deployment stage: "development", "staging" or
	// "production". Used to namespace parameter-store lookups.
	Stage string

	// AWSRegion hosts the SQS queues, the SSM parameters and the
	// primary preservation bucket.
	AWSRegion string

	// S3Bucket is the primary preservation bucket. Depositor and
	// collection form the key prefix within it.
	S3Bucket string

	// Wasabi settings for the secondary object store. Endpoint is
	// a host name without protocol, e.g. "s3.wasabisys.com".
	WasabiEndpoint string
	WasabiRegion   string
	WasabiBucket   string

	// SFSRoot is the mount point of the networked filesystem
	// archive.
	SFSRoot string

	// TicketURL is the REST endpoint of the ticketing system that
	// receives failure notifications.
	TicketURL string

	// ParameterPrefix is the path prefix for parameter-store
	// lookups, e.g. "/cular". Stage is appended.
	ParameterPrefix string

	// TransferStateStore selects the durable store for transfer
	// state rows: "postgres" or "bolt".
	TransferStateStore string

	// DatabaseURL is the Postgres connection string. May be left
	// blank, in which case it is fetched from the parameter store
	// at startup.
	DatabaseURL string

	// BoltDBPath is the path of the bolt file used when
	// TransferStateStore is "bolt".
	BoltDBPath string

	// RegistryPath is the location of the manifest-of-manifests
	// registry file on the SFS archive.
	RegistryPath string

	// ChecksumRetryInterval is the back-off between checksum
	// recomputation attempts after a size mismatch. A duration
	// string. Production SFS mounts need minutes to recover; test
	// suites set this to something tiny.
	ChecksumRetryInterval string

	// DeadLetterSweepInterval is how often the dead-letter monitor
	// sweeps the dead-letter queues. A duration string.
	DeadLetterSweepInterval string

	// Logging settings.
	LogDirectory string
	LogLevel     string
	LogToStderr  bool

	// Per-worker queue settings.
	IngestWorker      WorkerConfig
	TransferS3Worker  WorkerConfig
	TransferSFSWorker WorkerConfig
	FixityS3Worker    WorkerConfig
	FixitySFSWorker   WorkerConfig
	CompareWorker     WorkerConfig
	LogWorker         WorkerConfig
}

// LoadConfigFile reads and validates a JSON config file.
func LoadConfigFile(pathToConfigFile string) (*Config, error) {
	data, err := os.ReadFile(pathToConfigFile)
	if err != nil {
		return nil, fmt.Errorf("error reading config file '%s': %v",
			pathToConfigFile, err)
	}
	config := &Config{}
	if err = json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing JSON from config file '%s': %v",
			pathToConfigFile, err)
	}
	config.ActiveConfig = pathToConfigFile
	if err = config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (config *Config) validate() error {
	if config.AWSRegion == "" {
		return fmt.Errorf("config is missing AWSRegion")
	}
	if config.S3Bucket == "" {
		return fmt.Errorf("config is missing S3Bucket")
	}
	if config.SFSRoot == "" {
		return fmt.Errorf("config is missing SFSRoot")
	}
	switch config.TransferStateStore {
	case "postgres", "bolt":
	case "":
		config.TransferStateStore = "postgres"
	default:
		return fmt.Errorf("'%s' is not a valid TransferStateStore; "+
			"use 'postgres' or 'bolt'", config.TransferStateStore)
	}
	return nil
}

// AbsLogDirectory returns the absolute path of the log directory.
func (config *Config) AbsLogDirectory() string {
	absLogDir, err := filepath.Abs(config.LogDirectory)
	if err != nil {
		panic(fmt.Sprintf("cannot get absolute path of log directory '%s'",
			config.LogDirectory))
	}
	return absLogDir
}

// EnsureLogDirectory creates the log directory if necessary and
// returns its absolute path.
func (config *Config) EnsureLogDirectory() (string, error) {
	absLogDir := config.AbsLogDirectory()
	if err := os.MkdirAll(absLogDir, 0755); err != nil {
		return "", err
	}
	return absLogDir, nil
}

// ChecksumInterval parses ChecksumRetryInterval, falling back to the
// default.
func (config *Config) ChecksumInterval() time.Duration {
	interval, err := time.ParseDuration(config.ChecksumRetryInterval)
	if err != nil || interval < 0 {
		return constants.DefaultChecksumRetryInterval
	}
	return interval
}

// SweepInterval parses DeadLetterSweepInterval, falling back to ten
// minutes.
func (config *Config) SweepInterval() time.Duration {
	interval, err := time.ParseDuration(config.DeadLetterSweepInterval)
	if err != nil || interval <= 0 {
		return 10 * time.Minute
	}
	return interval
}

// ParameterPath returns the full parameter-store path for the named
// parameter, namespaced by stage: <prefix>/<stage>/<name>.
func (config *Config) ParameterPath(name string) string {
	prefix := config.ParameterPrefix
	if prefix == "" {
		prefix = "/cular"
	}
	stage := config.Stage
	if stage == "" {
		stage = "development"
	}
	return fmt.Sprintf("%s/%s/%s", prefix, stage, name)
}

// CollectionPrefix returns the object-key prefix for a depositor and
// collection within the preservation buckets.
func (config *Config) CollectionPrefix(depositor, collection string) string {
	return fmt.Sprintf("%s/%s/", depositor, collection)
}
