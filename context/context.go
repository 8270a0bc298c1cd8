package context

import (
	"fmt"
	stdlog "log"
	"os"
	"sync/atomic"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/models"
	"github.com/cul-it/cular/network"
	"github.com/cul-it/cular/storage"
	"github.com/cul-it/cular/util/logger"
	"github.com/op/go-logging"
)

/*
Context sets up the items common to all of the pipeline workers
(ingest, transfer, fixity, compare, etc.): config, loggers, the
queue service, the blob stores for each platform, and the transfer
state store. It also keeps the running success/failure counts.
*/
type Context struct {
	Config          *models.Config
	MessageLog      *logging.Logger
	JsonLog         *stdlog.Logger
	QueueService    network.QueueService
	S3Store         network.BlobStore
	WasabiStore     network.BlobStore
	ParamStore      network.ParameterStore
	Notifier        network.NotificationClient
	TransferManager *storage.Manager
	pathToLogFile   string
	pathToJsonLog   string
	succeeded       int64
	failed          int64
}

/*
Creates and returns a new Context object. Because some items are
absolutely required by this object and the workers that use it,
this function exits the process if it cannot set up an essential
service. This object is meant to be used as a singleton with any
of the stand-alone worker processes.
*/
func NewContext(config *models.Config) (context *Context) {
	context = &Context{
		succeeded: int64(0),
		failed:    int64(0),
	}
	context.Config = config
	context.MessageLog, context.pathToLogFile = logger.InitLogger(config)
	context.JsonLog, context.pathToJsonLog = logger.InitJsonLogger(config)
	context.initQueueService()
	context.initBlobStores()
	context.initParamStore()
	context.Notifier = network.NewTicketClient(config.TicketURL)
	context.initTransferManager()
	return context
}

func (context *Context) initQueueService() {
	client, err := network.NewSQSClient(context.Config.AWSRegion)
	if err != nil {
		context.die("Cannot initialize queue service: %v", err)
	}
	context.QueueService = client
}

func (context *Context) initBlobStores() {
	s3, err := network.NewS3Client(context.Config.AWSRegion, context.Config.S3Bucket)
	if err != nil {
		context.die("Cannot initialize S3 client: %v", err)
	}
	context.S3Store = s3
	if context.Config.WasabiBucket == "" {
		return
	}
	wasabi, err := network.NewWasabiClient(
		context.Config.WasabiEndpoint,
		context.Config.WasabiRegion,
		context.Config.WasabiBucket,
		os.Getenv("WASABI_ACCESS_KEY_ID"),
		os.Getenv("WASABI_SECRET_ACCESS_KEY"))
	if err != nil {
		context.die("Cannot initialize Wasabi client: %v", err)
	}
	context.WasabiStore = wasabi
}

func (context *Context) initParamStore() {
	client, err := network.NewSSMClient(context.Config.AWSRegion)
	if err != nil {
		context.die("Cannot initialize parameter store client: %v", err)
	}
	context.ParamStore = client
}

// Initializes the transfer state store named by the config. The
// Postgres connection string may live in the parameter store rather
// than the config file, since it carries a password.
func (context *Context) initTransferManager() {
	var store storage.TransferStore
	var err error
	switch context.Config.TransferStateStore {
	case "bolt":
		store, err = storage.NewBoltStore(context.Config.BoltDBPath)
	default:
		databaseURL := context.Config.DatabaseURL
		if databaseURL == "" {
			databaseURL, err = context.ParamStore.GetParameter(
				context.Config.ParameterPath("database_url"))
			if err != nil {
				context.die("Cannot fetch database url from parameter store: %v", err)
			}
		}
		store, err = storage.NewPostgresStore(databaseURL)
	}
	if err != nil {
		context.die("Cannot initialize transfer state store: %v", err)
	}
	context.TransferManager = storage.NewManager(store)
}

func (context *Context) die(format string, a ...interface{}) {
	message := fmt.Sprintf("Exiting. "+format, a...)
	fmt.Fprintln(os.Stderr, message)
	context.MessageLog.Fatal(message)
}

// BlobStoreFor returns the blob store for the named object store
// platform, or nil for platforms that are not object stores.
func (context *Context) BlobStoreFor(platform string) network.BlobStore {
	switch platform {
	case constants.PlatformS3:
		return context.S3Store
	case constants.PlatformWasabi:
		return context.WasabiStore
	}
	return nil
}

// Returns the number of messages that succeeded.
func (context *Context) Succeeded() int64 {
	return atomic.LoadInt64(&context.succeeded)
}

// Returns the number of messages that failed.
func (context *Context) Failed() int64 {
	return atomic.LoadInt64(&context.failed)
}

// Increases the count of successfully processed messages by one.
func (context *Context) IncrementSucceeded() int64 {
	return atomic.AddInt64(&context.succeeded, 1)
}

// Increases the count of unsuccessfully processed messages by one.
func (context *Context) IncrementFailed() int64 {
	return atomic.AddInt64(&context.failed, 1)
}

// Returns the path to this process' log file.
func (context *Context) PathToLogFile() string {
	return context.pathToLogFile
}

// Returns the path to this process' JSON log file.
func (context *Context) PathToJsonLog() string {
	return context.pathToJsonLog
}

// Logs info about the number of messages that have succeeded and
// failed.
func (context *Context) LogStats() {
	context.MessageLog.Info("**STATS** Succeeded: %d, Failed: %d",
		context.Succeeded(), context.Failed())
}
