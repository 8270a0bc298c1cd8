package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cul-it/cular/context"
	"github.com/cul-it/cular/models"
	"github.com/cul-it/cular/registry"
	"github.com/cul-it/cular/workers"
)

// cular_queue is the operator's entry point. It queues a new ingest
// job from a deposited manifest, or starts a periodic fixity chain
// from a registered collection. Either way it prints a deployment
// summary and asks for confirmation before anything touches a queue.
func main() {
	opts := parseCommandLine()
	config, err := models.LoadConfigFile(opts.configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	if opts.periodic != "" {
		startPeriodic(_context, opts)
	} else {
		queueIngest(_context, opts)
	}
}

func queueIngest(_context *context.Context, opts options) {
	preview, err := workers.PlanIngest(_context, opts.manifest, opts.destPath, opts.ticketId)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot plan ingest: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("About to queue the following ingest job:")
	fmt.Println()
	fmt.Print(preview.String())
	fmt.Println()
	if !confirm("Queue this job?") {
		fmt.Println("Nothing queued.")
		return
	}
	if err := workers.Submit(_context, preview); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Queued job %s\n", preview.Message.JobId)
}

func startPeriodic(_context *context.Context, opts options) {
	reg, err := registry.Load(_context.Config.RegistryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot load registry: %v\n", err)
		os.Exit(1)
	}
	depositor, collection, ok := strings.Cut(opts.periodic, "/")
	if !ok {
		fmt.Fprintln(os.Stderr, "Param -periodic must be <depositor>/<collection>. Registered collections:")
		for _, name := range reg.Names() {
			fmt.Fprintf(os.Stderr, "  %s\n", name)
		}
		os.Exit(1)
	}
	entry := reg.Find(depositor, collection)
	if entry == nil {
		fmt.Fprintf(os.Stderr, "Collection '%s' is not in the registry.\n", opts.periodic)
		os.Exit(1)
	}
	fmt.Printf("About to start a periodic fixity chain at %s\n", entry.Name())
	fmt.Printf("Storage manifest: %s\n", entry.ManifestKey)
	if entry.LastFixity != "" {
		fmt.Printf("Last verified:    %s\n", entry.LastFixity)
	}
	fmt.Printf("Registered collections in chain: %d\n", len(reg.Entries))
	fmt.Println()
	if !confirm("Start the chain?") {
		fmt.Println("Nothing queued.")
		return
	}
	if err := workers.EnqueuePeriodicFixity(_context, "cular_queue", entry); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Started periodic fixity at %s\n", entry.Name())
}

// confirm prompts on the terminal. Only an explicit yes proceeds.
func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

type options struct {
	configFile string
	manifest   string
	destPath   string
	ticketId   string
	periodic   string
}

func parseCommandLine() options {
	var opts options
	flag.StringVar(&opts.configFile, "config", "", "Path to CULAR config file")
	flag.StringVar(&opts.manifest, "manifest", "", "Object key of the deposited ingest manifest")
	flag.StringVar(&opts.destPath, "dest", "", "Destination path on the filesystem archive (optional)")
	flag.StringVar(&opts.ticketId, "ticket", "", "External ticket id for this job (optional)")
	flag.StringVar(&opts.periodic, "periodic", "", "Start a periodic fixity chain at <depositor>/<collection>")
	flag.Parse()
	if opts.configFile == "" || (opts.manifest == "" && opts.periodic == "") {
		printUsage()
		os.Exit(1)
	}
	return opts
}

func printUsage() {
	message := `
cular_queue queues preservation work after showing a summary and
asking for confirmation.

Queue an ingest job:

    cular_queue -config=<config> -manifest=<object key> [-dest=<path>] [-ticket=<id>]

Start a periodic fixity chain:

    cular_queue -config=<config> -periodic=<depositor>/<collection>

Param -config is required, plus exactly one of -manifest or -periodic.
`
	fmt.Println(message)
}
